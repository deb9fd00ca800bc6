package repository

import (
	"context"
	"database/sql"
	"errors"

	"forum_go/internal/model"

	"github.com/jmoiron/sqlx"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, uid int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateLastvisit(ctx context.Context, uid int64, timestamp int64) error
	Count(ctx context.Context) (int, error)
}

const userColumns = "uid, username, password, email, role, status, dateline, lastvisit"

// NewUserRepository 创建用户仓库
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

type userRepository struct {
	db *sqlx.DB
}

// Create 创建用户
func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO user ("+userColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		user.Uid, user.Username, user.Password, user.Email,
		user.Role, user.Status, user.Dateline, user.Lastvisit)
	return err
}

// GetByID 根据ID获取用户
func (r *userRepository) GetByID(ctx context.Context, uid int64) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM user WHERE uid = ? AND status = 0", uid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername 根据用户名获取用户
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, "SELECT "+userColumns+" FROM user WHERE username = ?", username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastvisit 更新最后访问时间
func (r *userRepository) UpdateLastvisit(ctx context.Context, uid int64, timestamp int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE user SET lastvisit = ? WHERE uid = ?", timestamp, uid)
	return err
}

// Count 用户总数
func (r *userRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM user")
	return n, err
}
