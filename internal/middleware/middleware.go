package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"
	"forum_go/internal/model"
	"forum_go/internal/service"

	"github.com/gin-gonic/gin"
)

// 上下文中的用户信息
const (
	CtxUID      = "uid"
	CtxUsername = "username"
	CtxRole     = "role"
)

// LoggerMiddleware 请求日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("request",
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.String("query", query),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		)
	}
}

// RecoveryMiddleware 异常恢复中间件
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					logger.String("error", fmt.Sprintf("%v", err)),
					logger.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(500, gin.H{
					"code": 500,
					"msg":  "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// TimeoutMiddleware 给请求上下文加上超时，仓库查询随之取消
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware(corsCfg *config.CORSConfig) gin.HandlerFunc {
	if !corsCfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	methods := strings.Join(corsCfg.AllowedMethods, ", ")
	headers := strings.Join(corsCfg.AllowedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		// 空列表表示允许所有
		allowed := len(corsCfg.AllowedOrigins) == 0
		for _, o := range corsCfg.AllowedOrigins {
			if o == origin || o == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" && !corsCfg.AllowCredentials {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}

		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Access-Control-Allow-Credentials", strconv.FormatBool(corsCfg.AllowCredentials))
		c.Header("Access-Control-Max-Age", strconv.Itoa(corsCfg.MaxAge))

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// JWTMW JWT中间件
func JWTMW(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.AbortWithStatusJSON(401, gin.H{
				"code": 401,
				"msg":  "unauthorized",
			})
			return
		}

		// 验证 Bearer 前缀
		if !strings.HasPrefix(token, "Bearer ") {
			c.AbortWithStatusJSON(401, gin.H{
				"code": 401,
				"msg":  "invalid token format: missing 'Bearer ' prefix",
			})
			return
		}

		claims, err := service.ParseToken(strings.TrimPrefix(token, "Bearer "), cfg.Secret)
		if err != nil {
			logger.Debug("jwt rejected", logger.ErrorField(err))
			c.AbortWithStatusJSON(401, gin.H{
				"code": 401,
				"msg":  "invalid token",
			})
			return
		}

		c.Set(CtxUID, claims.UID)
		c.Set(CtxUsername, claims.Username)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// AdminMW 仅管理员可访问，需放在 JWTMW 之后
func AdminMW() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetInt(CtxRole) != model.RoleAdmin {
			c.AbortWithStatusJSON(403, gin.H{
				"code": 403,
				"msg":  "admin only",
			})
			return
		}
		c.Next()
	}
}

// GetUID 从上下文获取当前用户 ID，未登录为 0
func GetUID(c *gin.Context) int64 {
	return c.GetInt64(CtxUID)
}
