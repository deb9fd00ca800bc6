package snowflake

import (
	"sync"

	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"

	"github.com/bwmarrin/snowflake"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
)

// Init Initialize snowflake generator
func Init(cfg *config.SnowflakeConfig) error {
	var initErr error
	nodeOnce.Do(func() {
		var err error
		node, err = snowflake.NewNode(cfg.WorkerID)
		if err != nil {
			logger.Error("failed to initialize snowflake",
				logger.ErrorField(err),
				logger.Int64("worker_id", cfg.WorkerID))
			initErr = err
			return
		}
		logger.Info("snowflake initialized",
			logger.Int64("worker_id", cfg.WorkerID))
	})
	return initErr
}

// Generator 节点/用户 ID 生成器
type Generator interface {
	Generate() int64
}

// nodeGenerator 基于全局 snowflake 节点
type nodeGenerator struct{}

// Default 返回全局生成器，需先调用 Init
func Default() Generator {
	return nodeGenerator{}
}

func (nodeGenerator) Generate() int64 {
	return Generate()
}

// Generate Generate new snowflake ID
func Generate() int64 {
	return node.Generate().Int64()
}

// NewGenerator 创建独立生成器（测试或命令行工具使用）
func NewGenerator(workerID int64) (Generator, error) {
	n, err := snowflake.NewNode(workerID)
	if err != nil {
		return nil, err
	}
	return snowflakeGenerator{n: n}, nil
}

type snowflakeGenerator struct {
	n *snowflake.Node
}

func (g snowflakeGenerator) Generate() int64 {
	return g.n.Generate().Int64()
}
