package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/jmoiron/sqlx"
)

// MetaStore 节点 key-value 元数据接口
type MetaStore interface {
	Get(ctx context.Context, nodeID int64, key string) (string, bool, error)
	Set(ctx context.Context, nodeID int64, key, value string) error
	Delete(ctx context.Context, nodeID int64, key string) error
	// SetMany 在一个事务内写入同一节点的多个 key
	SetMany(ctx context.Context, nodeID int64, values map[string]string) error
	GetAll(ctx context.Context, nodeID int64) (map[string]string, error)
	DeleteAll(ctx context.Context, nodeID int64) error
}

type metaRow struct {
	Key   string `db:"meta_key"`
	Value string `db:"meta_value"`
}

// metaRepository node_meta 表实现
type metaRepository struct {
	db *sqlx.DB
}

var _ MetaStore = (*metaRepository)(nil)

// NewMetaRepository 创建 MetaStore 实例
func NewMetaRepository(db *sqlx.DB) MetaStore {
	return &metaRepository{db: db}
}

// Get 读取单个 key
func (r *metaRepository) Get(ctx context.Context, nodeID int64, key string) (string, bool, error) {
	var value string
	err := r.db.GetContext(ctx, &value,
		"SELECT meta_value FROM node_meta WHERE node_id = ? AND meta_key = ?", nodeID, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Set 写入单个 key
func (r *metaRepository) Set(ctx context.Context, nodeID int64, key, value string) error {
	return r.SetMany(ctx, nodeID, map[string]string{key: value})
}

// SetMany 批量写入（先删后插，兼容 MySQL / SQLite）
func (r *metaRepository) SetMany(ctx context.Context, nodeID int64, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	// 固定顺序，避免并发事务交叉加锁
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM node_meta WHERE node_id = ? AND meta_key = ?", nodeID, k); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO node_meta (node_id, meta_key, meta_value) VALUES (?, ?, ?)", nodeID, k, values[k]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete 删除单个 key
func (r *metaRepository) Delete(ctx context.Context, nodeID int64, key string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM node_meta WHERE node_id = ? AND meta_key = ?", nodeID, key)
	return err
}

// GetAll 读取节点全部 meta
func (r *metaRepository) GetAll(ctx context.Context, nodeID int64) (map[string]string, error) {
	var rows []metaRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT meta_key, meta_value FROM node_meta WHERE node_id = ?", nodeID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Value
	}
	return out, nil
}

// DeleteAll 删除节点全部 meta
func (r *metaRepository) DeleteAll(ctx context.Context, nodeID int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM node_meta WHERE node_id = ?", nodeID)
	return err
}
