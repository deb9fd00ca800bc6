package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forum_go/internal/api/mgt"
	v1 "forum_go/internal/api/v1"
	"forum_go/internal/core/config"
	"forum_go/internal/core/database"
	"forum_go/internal/core/logger"
	"forum_go/internal/core/runtime"
	"forum_go/internal/core/snowflake"
	"forum_go/internal/middleware"
	"forum_go/internal/repository"
	"forum_go/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	// 1. 加载配置 (Viper)
	if err := config.Init("."); err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	// 2. 初始化 Logger
	if err := logger.Init(&cfg.Logging); err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting forum_go...")

	// 3. 初始化数据库
	if err := database.Init(&cfg.Database); err != nil {
		logger.Error("Failed to init database", logger.ErrorField(err))
		os.Exit(1)
	}
	defer database.Close()

	// 4. 初始化 Redis (L2 Cache)，关闭时只用 L1 + DB
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer redisClient.Close()
	}

	// 5. 初始化 Snowflake
	if err := snowflake.Init(&cfg.Snowflake); err != nil {
		logger.Error("Failed to init snowflake", logger.ErrorField(err))
		os.Exit(1)
	}
	ids := snowflake.Default()

	// 6. 初始化 Repository
	db := database.Get()
	nodeRepo := repository.NewNodeRepository(db)
	metaRepo := repository.NewMetaRepository(db)
	userRepo := repository.NewUserRepository(db)

	// 7. 初始化 Service
	metaSvc := service.NewMetaService(metaRepo, redisClient, &cfg.Cache)
	statusSvc := service.NewStatusResolver(nodeRepo, metaSvc)
	freshness := service.NewFreshnessTracker(nodeRepo, metaSvc)
	aggregate := service.NewAggregateCache(nodeRepo, metaSvc, freshness)
	recount := service.NewRecountEngine(nodeRepo, metaSvc, freshness, cfg.Aggregate.RecountWorkers)
	hooks := service.NewHooks(nodeRepo, aggregate, freshness, &cfg.Aggregate)
	contentSvc := service.NewContentService(nodeRepo, metaSvc, statusSvc, hooks, ids)
	forumSvc := service.NewForumService(nodeRepo, statusSvc, aggregate)
	userSvc := service.NewUserService(userRepo, &cfg.Cache, &cfg.JWT, ids)

	// 8. Runtime 预热
	rtConfig := &runtime.RuntimeConfig{
		ForumSvc:       forumSvc,
		Recount:        recount,
		RecountOnStart: cfg.Aggregate.RecountOnStart,
	}
	if err := runtime.Init(context.Background(), rtConfig); err != nil {
		logger.Error("Failed to init runtime", logger.ErrorField(err))
	}
	logger.Info("Runtime warmup: " + runtime.WarmUpLog())

	// 9. 初始化 Handler
	forumV1Handler := v1.NewForumHandler(forumSvc, aggregate)
	userV1Handler := v1.NewUserHandler(userSvc)

	authHandler := mgt.NewAuthHandler(userSvc)
	userMgtHandler := mgt.NewUserMgtHandler(userSvc)
	forumMgtHandler := mgt.NewForumMgtHandler(contentSvc, forumSvc)
	contentHandler := mgt.NewContentHandler(contentSvc)
	cacheHandler := mgt.NewCacheHandler(aggregate, recount, metaSvc)

	// 10. 创建 IP 限制器
	rateLimiter := middleware.NewIPLimiter(cfg.Security.RateLimit, 60)

	// 11. 注册路由
	gin.SetMode(cfg.App.Mode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.RateLimitMW(rateLimiter))
	router.Use(middleware.CORSMiddleware(&cfg.Security.CORS))
	router.Use(middleware.TimeoutMiddleware(30 * time.Second))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		if err := database.Ping(); err != nil {
			c.JSON(503, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(200, gin.H{
			"status":    "healthy",
			"runtime":   runtime.Get().Status(),
			"timestamp": time.Now().Unix(),
		})
	})

	// Health Check (详细版 - 用于负载均衡)
	router.GET("/healthz", func(c *gin.Context) {
		status := 200
		checks := make(map[string]string)

		if err := database.Ping(); err != nil {
			status = 503
			checks["database"] = err.Error()
		} else {
			checks["database"] = "ok"
		}

		if redisClient == nil {
			checks["redis"] = "disabled"
		} else if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			status = 503
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}

		c.JSON(status, gin.H{
			"checks":    checks,
			"timestamp": time.Now().Unix(),
		})
	})

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"name":    "forum_go",
			"status":  "running",
			"runtime": runtime.WarmUpLog(),
		})
	})

	// Metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public API (v1)
	v1Group := router.Group("/api/v1")
	v1Group.Use(middleware.PublicWhitelistMW(&cfg.Security))
	{
		v1Group.GET("/forums/tree", forumV1Handler.Tree)
		v1Group.GET("/forum/:fid", forumV1Handler.Get)
		v1Group.GET("/forum/:fid/status", forumV1Handler.Status)
		v1Group.GET("/forum/:fid/subforums", forumV1Handler.Subforums)
		v1Group.GET("/forum/:fid/ancestors", forumV1Handler.Ancestors)
		v1Group.GET("/forum/:fid/parent", forumV1Handler.Parent)
		v1Group.GET("/forum/:fid/metric/:metric", forumV1Handler.Metric)

		v1Group.GET("/user/:uid", userV1Handler.GetUser)
	}

	// Management API (mgt) - 强制 IP 白名单
	mgtGroup := router.Group("/api/mgt")
	mgtGroup.Use(middleware.AdminWhitelistMW(&cfg.Security))
	{
		mgtGroup.POST("/login", authHandler.Login)
		mgtGroup.POST("/user/register", authHandler.Register)

		authed := mgtGroup.Group("")
		authed.Use(middleware.JWTMW(&cfg.JWT))
		{
			authed.GET("/user/profile", userMgtHandler.GetProfile)

			authed.POST("/topic", contentHandler.CreateTopic)
			authed.POST("/reply", contentHandler.CreateReply)
		}

		admin := mgtGroup.Group("")
		admin.Use(middleware.JWTMW(&cfg.JWT), middleware.AdminMW())
		{
			admin.GET("/forums/tree", forumMgtHandler.Tree)
			admin.POST("/forum", forumMgtHandler.Create)
			admin.GET("/forum/:fid/subforums", forumMgtHandler.Subforums)
			admin.PUT("/forum/:fid/:action", forumMgtHandler.Action)
			admin.POST("/forum/:fid/recount", cacheHandler.Recount)
			admin.POST("/recount", cacheHandler.RecountAll)

			admin.DELETE("/node/:id", contentHandler.Delete)
			admin.PUT("/node/:id/move", contentHandler.Move)
			admin.PUT("/node/:id/status", contentHandler.SetStatus)

			admin.GET("/aggregate/:fid", cacheHandler.Snapshot)
			admin.PUT("/aggregate/:fid", cacheHandler.SetSubforumCount)
			admin.DELETE("/aggregate/:fid", cacheHandler.Invalidate)
			admin.POST("/cache/flush", cacheHandler.Flush)
		}
	}

	// 12. 启动 HTTP Server
	srv := &http.Server{
		Addr:    cfg.App.GetServerAddr(),
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", logger.ErrorField(err))
		}
	}()

	// pprof Server (可选，用于性能分析)
	go func() {
		logger.Info("PProf server starting", logger.String("addr", "localhost:6060"))
		if err := http.ListenAndServe("localhost:6060", nil); err != nil && err != http.ErrServerClosed {
			logger.Error("PProf server error", logger.ErrorField(err))
		}
	}()

	// Graceful shutdown (优雅关闭)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("Server exited gracefully")
}
