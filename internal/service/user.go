package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"
	"forum_go/internal/core/snowflake"
	"forum_go/internal/model"
	"forum_go/internal/pkg/apperr"
	"forum_go/internal/pkg/pool"
	"forum_go/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"
)

// UserService 用户服务（管理接口登录、作者信息）
type UserService struct {
	repo   repository.UserRepository
	l1     *pool.BigCache // 可为 nil
	sf     singleflight.Group
	ids    snowflake.Generator
	jwtCfg *config.JWTConfig
}

// NewUserService 创建用户服务
func NewUserService(repo repository.UserRepository, cacheCfg *config.CacheConfig, jwtCfg *config.JWTConfig, ids snowflake.Generator) *UserService {
	l1, err := pool.NewBigCache(cacheCfg.L1Cap, time.Duration(cacheCfg.L1TTL)*time.Second)
	if err != nil {
		logger.Warn("user l1 cache disabled", logger.ErrorField(err))
		l1 = nil
	}
	return &UserService{
		repo:   repo,
		l1:     l1,
		ids:    ids,
		jwtCfg: jwtCfg,
	}
}

// Login 用户登录
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		logger.Error("login: get user error", logger.ErrorField(err))
		return nil, err
	}
	if user == nil {
		return nil, apperr.ErrBadCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperr.ErrBadCredentials
	}
	if user.Status != 0 {
		return nil, apperr.ErrForbidden
	}

	// 更新最后访问时间
	if err := s.repo.UpdateLastvisit(ctx, user.Uid, time.Now().Unix()); err != nil {
		logger.Warn("login: update lastvisit error", logger.Int64("uid", user.Uid), logger.ErrorField(err))
	}

	token, err := GenerateToken(user, s.jwtCfg)
	if err != nil {
		logger.Error("login: generate token error", logger.ErrorField(err))
		return nil, err
	}

	return &model.LoginResponse{
		Token: token,
		User:  *user.ToDTO(),
	}, nil
}

// Register 用户注册；第一个注册的用户为管理员
func (s *UserService) Register(ctx context.Context, req *model.RegisterRequest) (*model.UserDTO, error) {
	exist, err := s.repo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, apperr.ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("register: hash password error", logger.ErrorField(err))
		return nil, err
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	role := model.RoleMember
	if count == 0 {
		role = model.RoleAdmin
	}

	now := time.Now().Unix()
	user := &model.User{
		Uid:       s.ids.Generate(),
		Username:  req.Username,
		Password:  string(hashed),
		Email:     req.Email,
		Role:      role,
		Dateline:  now,
		Lastvisit: now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		logger.Error("register: create user error", logger.ErrorField(err))
		return nil, err
	}

	logger.Info("user registered", logger.Int64("uid", user.Uid), logger.Int("role", role))
	return user.ToDTO(), nil
}

// GetUserByID 根据ID获取用户
func (s *UserService) GetUserByID(ctx context.Context, uid int64) (*model.UserDTO, error) {
	key := fmt.Sprintf("user:%d", uid)

	// L1
	if s.l1 != nil {
		if data, ok := s.l1.Get(key); ok {
			var dto model.UserDTO
			if err := json.Unmarshal(data, &dto); err == nil {
				return &dto, nil
			}
		}
	}

	// SingleFlight + DB
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		user, err := s.repo.GetByID(ctx, uid)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, apperr.ErrUserNotFound
		}
		dto := user.ToDTO()
		if s.l1 != nil {
			if data, err := json.Marshal(dto); err == nil {
				s.l1.Set(key, data)
			}
		}
		return dto, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.UserDTO), nil
}

// UserClaims JWT Claims
type UserClaims struct {
	UID      int64  `json:"uid"`
	Username string `json:"username"`
	Role     int    `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken 生成 JWT Token
func GenerateToken(user *model.User, cfg *config.JWTConfig) (string, error) {
	now := time.Now()
	claims := UserClaims{
		UID:      user.Uid,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(cfg.Expiry) * time.Second)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "forum_go",
			Subject:   fmt.Sprintf("%d", user.Uid),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ParseToken 校验并解析 JWT Token
func ParseToken(tokenString, secret string) (*UserClaims, error) {
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, apperr.ErrUnauthorized
	}
	return claims, nil
}
