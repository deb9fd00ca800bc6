package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

var v *viper.Viper
var cfg *Config

// Config App-wide configuration
type Config struct {
	Database  DatabaseConfig
	Redis     RedisConfig
	App       AppConfig
	JWT       JWTConfig
	Cache     CacheConfig
	Snowflake SnowflakeConfig
	Logging   LoggingConfig
	Security  SecurityConfig
	Aggregate AggregateConfig
}

// DatabaseConfig Database Configuration
type DatabaseConfig struct {
	Driver          string // mysql | sqlite
	Host            string
	Port            int
	Username        string
	Password        string
	Name            string
	Path            string // sqlite 文件路径
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// RedisConfig Redis Configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// AppConfig Application Configuration
type AppConfig struct {
	Host string
	Port int
	Mode string
}

// JWTConfig JWT Configuration
type JWTConfig struct {
	Secret string
	Expiry int // Token过期时间(秒)
}

// CacheConfig Cache Configuration
type CacheConfig struct {
	L1Cap int // L1 容量（MB）
	L1TTL int // L1 过期时间（秒），即其他实例读到旧 meta 的上限
	L2TTL int // L2 过期时间（秒）
}

// SnowflakeConfig Snowflake Configuration
type SnowflakeConfig struct {
	WorkerID int64
}

// LoggingConfig Logging Configuration
type LoggingConfig struct {
	Level  string
	Output string
}

// SecurityConfig Security Configuration
type SecurityConfig struct {
	AllowIPs  []string // 管理接口 IP 白名单
	DenyIPs   []string // IP黑名单
	RateLimit int      // 每分钟请求数
	CORS      CORSConfig
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// AggregateConfig 聚合引擎配置
type AggregateConfig struct {
	IncrementalCounts bool // 发帖时对已计算的计数直接加减，而不是失效重算
	RecountWorkers    int  // 子树重算并发数
	RecountOnStart    bool // 启动时全量重算（导入后使用）
}

// Init Initialize configuration with Viper
func Init(configPath string) error {
	v = viper.New()
	cfg = &Config{}

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量覆盖
	v.SetEnvPrefix("FORUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvs()

	return parseConfig()
}

// setDefaults 设置默认值
func setDefaults() {
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.mode", "release")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.path", "forum.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 300)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("cache.l1_cap", 64)
	// L1 按进程缓存，失效与重算只清本实例；其他实例最多陈旧 l1_ttl 秒
	v.SetDefault("cache.l1_ttl", 30)
	v.SetDefault("cache.l2_ttl", 3600)

	v.SetDefault("snowflake.worker_id", 0)

	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.expiry", 86400)

	v.SetDefault("security.allow_ips", []string{"127.0.0.1", "::1"})
	v.SetDefault("security.rate_limit", 600)
	v.SetDefault("security.cors.enabled", false)
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("security.cors.max_age", 86400)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("aggregate.incremental_counts", true)
	v.SetDefault("aggregate.recount_workers", 4)
	v.SetDefault("aggregate.recount_on_start", false)
}

// bindEnvs 绑定环境变量
func bindEnvs() {
	v.BindEnv("database.driver", "FORUM_DATABASE_DRIVER")
	v.BindEnv("database.host", "FORUM_DATABASE_HOST")
	v.BindEnv("database.port", "FORUM_DATABASE_PORT")
	v.BindEnv("database.username", "FORUM_DATABASE_USERNAME")
	v.BindEnv("database.password", "FORUM_DATABASE_PASSWORD")
	v.BindEnv("database.name", "FORUM_DATABASE_NAME")
	v.BindEnv("database.path", "FORUM_DATABASE_PATH")

	v.BindEnv("redis.host", "FORUM_REDIS_HOST")
	v.BindEnv("redis.port", "FORUM_REDIS_PORT")
	v.BindEnv("redis.password", "FORUM_REDIS_PASSWORD")

	v.BindEnv("jwt.secret", "FORUM_JWT_SECRET")
}

// parseConfig 解析配置到结构体
func parseConfig() error {
	// Database
	cfg.Database.Driver = strings.ToLower(v.GetString("database.driver"))
	cfg.Database.Host = v.GetString("database.host")
	cfg.Database.Port = v.GetInt("database.port")
	cfg.Database.Username = v.GetString("database.username")
	cfg.Database.Password = v.GetString("database.password")
	cfg.Database.Name = v.GetString("database.name")
	cfg.Database.Path = v.GetString("database.path")
	cfg.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	cfg.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")
	cfg.Database.ConnMaxLifetime = v.GetInt("database.conn_max_lifetime")

	switch cfg.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	// Redis
	cfg.Redis.Enabled = v.GetBool("redis.enabled")
	cfg.Redis.Host = v.GetString("redis.host")
	cfg.Redis.Port = v.GetInt("redis.port")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Redis.PoolSize = v.GetInt("redis.pool_size")

	// App
	cfg.App.Host = v.GetString("app.host")
	cfg.App.Port = v.GetInt("app.port")
	cfg.App.Mode = v.GetString("app.mode")

	// JWT
	cfg.JWT.Secret = v.GetString("jwt.secret")
	cfg.JWT.Expiry = v.GetInt("jwt.expiry")

	// Cache
	cfg.Cache.L1Cap = v.GetInt("cache.l1_cap")
	cfg.Cache.L1TTL = v.GetInt("cache.l1_ttl")
	cfg.Cache.L2TTL = v.GetInt("cache.l2_ttl")

	// Snowflake
	cfg.Snowflake.WorkerID = v.GetInt64("snowflake.worker_id")

	// Logging
	cfg.Logging.Level = v.GetString("logging.level")
	cfg.Logging.Output = v.GetString("logging.output")

	// Security
	cfg.Security.AllowIPs = v.GetStringSlice("security.allow_ips")
	cfg.Security.DenyIPs = v.GetStringSlice("security.deny_ips")
	cfg.Security.RateLimit = v.GetInt("security.rate_limit")
	cfg.Security.CORS.Enabled = v.GetBool("security.cors.enabled")
	cfg.Security.CORS.AllowedOrigins = v.GetStringSlice("security.cors.allowed_origins")
	cfg.Security.CORS.AllowedMethods = v.GetStringSlice("security.cors.allowed_methods")
	cfg.Security.CORS.AllowedHeaders = v.GetStringSlice("security.cors.allowed_headers")
	cfg.Security.CORS.AllowCredentials = v.GetBool("security.cors.allow_credentials")
	cfg.Security.CORS.MaxAge = v.GetInt("security.cors.max_age")

	// Aggregate
	cfg.Aggregate.IncrementalCounts = v.GetBool("aggregate.incremental_counts")
	cfg.Aggregate.RecountWorkers = v.GetInt("aggregate.recount_workers")
	cfg.Aggregate.RecountOnStart = v.GetBool("aggregate.recount_on_start")
	if cfg.Aggregate.RecountWorkers <= 0 {
		cfg.Aggregate.RecountWorkers = 1
	}

	return nil
}

// Get 获取配置实例
func Get() *Config {
	return cfg
}

// GetDSN Get driver DSN
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		c.Username, c.Password, c.Host, c.Port, c.Name)
}

// GetRedisAddr Get Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetServerAddr Get server address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
