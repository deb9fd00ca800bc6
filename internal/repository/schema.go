package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// schema 建表语句，MySQL 与 SQLite 通用
var schema = []string{
	`CREATE TABLE IF NOT EXISTS node (
		id BIGINT NOT NULL PRIMARY KEY,
		type VARCHAR(16) NOT NULL,
		parent_id BIGINT NOT NULL DEFAULT 0,
		author_id BIGINT NOT NULL DEFAULT 0,
		title VARCHAR(255) NOT NULL DEFAULT '',
		dateline BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(16) NOT NULL DEFAULT 'publish'
	)`,
	`CREATE TABLE IF NOT EXISTS node_meta (
		node_id BIGINT NOT NULL,
		meta_key VARCHAR(191) NOT NULL,
		meta_value TEXT NOT NULL,
		PRIMARY KEY (node_id, meta_key)
	)`,
	`CREATE TABLE IF NOT EXISTS user (
		uid BIGINT NOT NULL PRIMARY KEY,
		username VARCHAR(32) NOT NULL UNIQUE,
		password VARCHAR(128) NOT NULL,
		email VARCHAR(128) NOT NULL DEFAULT '',
		role INT NOT NULL DEFAULT 0,
		status INT NOT NULL DEFAULT 0,
		dateline BIGINT NOT NULL DEFAULT 0,
		lastvisit BIGINT NOT NULL DEFAULT 0
	)`,
}

// Migrate 建表（幂等）
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
