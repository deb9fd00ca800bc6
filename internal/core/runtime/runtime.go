package runtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"forum_go/internal/core/logger"
	"forum_go/internal/model"
	"forum_go/internal/service"
)

// Runtime 启动预热的状态
// 预热时解析每个版块的聚合数据，之后的读取直接命中存储
type Runtime struct {
	mu        sync.RWMutex
	forums    int
	roots     int
	recounted *service.RecountReport
	loadedAt  time.Time
	duration  time.Duration
}

// Singleton instance
var rt *Runtime
var once sync.Once

// RuntimeConfig Runtime 配置
type RuntimeConfig struct {
	ForumSvc       *service.ForumService
	Recount        *service.RecountEngine
	RecountOnStart bool // 先全量重算，再预热
}

// Init 初始化 Runtime
func Init(ctx context.Context, cfg *RuntimeConfig) error {
	var initErr error
	once.Do(func() {
		rt = &Runtime{}
		initErr = rt.warmup(ctx, cfg)
	})
	return initErr
}

// Get 获取 Runtime 实例
func Get() *Runtime {
	return rt
}

// warmup 预热数据
func (r *Runtime) warmup(ctx context.Context, cfg *RuntimeConfig) error {
	start := time.Now()
	logger.Info("runtime warmup started")

	var report *service.RecountReport
	if cfg.RecountOnStart && cfg.Recount != nil {
		var err error
		report, err = cfg.Recount.RecountAll(ctx)
		if err != nil {
			return fmt.Errorf("recount on start: %w", err)
		}
	}

	var tree []*model.ForumTreeNode
	if cfg.ForumSvc != nil {
		var err error
		tree, err = cfg.ForumSvc.Tree(ctx, true)
		if err != nil {
			return fmt.Errorf("warmup forum tree: %w", err)
		}
	}

	r.mu.Lock()
	r.roots = len(tree)
	r.forums = countForums(tree)
	r.recounted = report
	r.loadedAt = time.Now()
	r.duration = time.Since(start)
	r.mu.Unlock()

	logger.Info("runtime warmup completed",
		logger.Int("forums", r.forums),
		logger.Bool("recounted", report != nil),
		logger.Duration("duration", r.duration))
	return nil
}

// Reload 重新预热
func (r *Runtime) Reload(ctx context.Context, cfg *RuntimeConfig) error {
	return r.warmup(ctx, cfg)
}

func countForums(nodes []*model.ForumTreeNode) int {
	n := len(nodes)
	for _, node := range nodes {
		n += countForums(node.Children)
	}
	return n
}

// Status 返回运行时状态
func (r *Runtime) Status() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	status := map[string]interface{}{
		"forum_count": r.forums,
		"root_count":  r.roots,
		"loaded_at":   r.loadedAt.Format("2006-01-02 15:04:05"),
		"warmup_ms":   r.duration.Milliseconds(),
	}
	if r.recounted != nil {
		status["recount_updated"] = r.recounted.Updated
		status["recount_failed"] = len(r.recounted.Failed)
	}
	return status
}

// WarmUpLog 预热日志
func WarmUpLog() string {
	if rt == nil {
		return "runtime not initialized"
	}
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return fmt.Sprintf("Forum: %d, Roots: %d, Loaded: %s",
		rt.forums, rt.roots, rt.loadedAt.Format("2006-01-02 15:04:05"))
}
