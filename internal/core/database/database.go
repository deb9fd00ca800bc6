package database

import (
	"context"
	"fmt"
	"time"

	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"
	"forum_go/internal/repository"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var db *sqlx.DB

// sqlitePragmas SQLite 连接参数
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA busy_timeout=5000",
}

// Open 按配置打开数据库连接，不修改全局实例
func Open(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	conn, err := sqlx.Connect(cfg.Driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite" {
		for _, pragma := range sqlitePragmas {
			if _, err := conn.Exec(pragma); err != nil {
				conn.Close()
				return nil, fmt.Errorf("set pragma: %w", err)
			}
		}
		// SQLite 单写者
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
		conn.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	return conn, nil
}

// Init Initialize database connection
func Init(cfg *config.DatabaseConfig) error {
	conn, err := Open(cfg)
	if err != nil {
		logger.Error("failed to connect database", logger.ErrorField(err))
		return err
	}
	db = conn

	if cfg.Driver == "sqlite" {
		// 本地开发库自动建表
		if err := repository.Migrate(context.Background(), db); err != nil {
			logger.Error("failed to migrate database", logger.ErrorField(err))
			return err
		}
	}

	logger.Info("database initialized successfully",
		logger.String("driver", cfg.Driver),
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("database", cfg.Name))

	return nil
}

// Get Get database instance
func Get() *sqlx.DB {
	return db
}

// Close Close database connection
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// Ping Check database connection
func Ping() error {
	if db == nil {
		return nil
	}
	return db.Ping()
}
