package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"
	"forum_go/internal/pkg/pool"
	"forum_go/internal/repository"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// MetaService 带两级缓存的 MetaStore
// 读：L1(bigcache) -> L2(redis) -> singleflight + DB，按节点缓存整张 meta 表
// 写：先写 DB，再删 L1/L2
// L1 只属于当前进程，其他实例在 cache.l1_ttl 内仍可能读到旧值；L2 与 DB 立即一致
type MetaService struct {
	repo  repository.MetaStore
	l1    *pool.BigCache // 可为 nil
	l2    *redis.Client  // 可为 nil（redis.enabled = false）
	sf    singleflight.Group
	l2TTL time.Duration
}

var _ repository.MetaStore = (*MetaService)(nil)

// NewMetaService 创建 MetaService
func NewMetaService(repo repository.MetaStore, l2 *redis.Client, cfg *config.CacheConfig) *MetaService {
	l1, err := pool.NewBigCache(cfg.L1Cap, time.Duration(cfg.L1TTL)*time.Second)
	if err != nil {
		logger.Warn("meta l1 cache disabled", logger.ErrorField(err))
		l1 = nil
	}
	return &MetaService{
		repo:  repo,
		l1:    l1,
		l2:    l2,
		l2TTL: time.Duration(cfg.L2TTL) * time.Second,
	}
}

func metaCacheKey(nodeID int64) string {
	return fmt.Sprintf("meta:%d", nodeID)
}

// Get 读取单个 key
func (s *MetaService) Get(ctx context.Context, nodeID int64, key string) (string, bool, error) {
	all, err := s.GetAll(ctx, nodeID)
	if err != nil {
		return "", false, err
	}
	v, ok := all[key]
	return v, ok, nil
}

// GetAll 读取节点全部 meta
func (s *MetaService) GetAll(ctx context.Context, nodeID int64) (map[string]string, error) {
	key := metaCacheKey(nodeID)

	// L1
	if s.l1 != nil {
		if data, ok := s.l1.Get(key); ok {
			if values, err := decodeMeta(data); err == nil {
				metaCacheHits.WithLabelValues("l1").Inc()
				return values, nil
			}
		}
	}

	// L2
	if s.l2 != nil {
		data, err := s.l2.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if values, err := decodeMeta(data); err == nil {
				metaCacheHits.WithLabelValues("l2").Inc()
				s.setL1(key, data)
				return values, nil
			}
		case !errors.Is(err, redis.Nil):
			logger.Warn("meta l2 get failed", logger.String("key", key), logger.ErrorField(err))
		}
	}

	// SingleFlight + DB
	metaCacheMisses.Inc()
	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		values, err := s.repo.GetAll(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(values); err == nil {
			if s.l2 != nil {
				if err := s.l2.Set(ctx, key, data, s.l2TTL).Err(); err != nil {
					logger.Warn("meta l2 set failed", logger.String("key", key), logger.ErrorField(err))
				}
			}
			s.setL1(key, data)
		}
		return values, nil
	})
	if err != nil {
		return nil, err
	}

	// 返回副本，调用方可以修改
	values := v.(map[string]string)
	out := make(map[string]string, len(values))
	for k, val := range values {
		out[k] = val
	}
	return out, nil
}

// Set 写入单个 key
func (s *MetaService) Set(ctx context.Context, nodeID int64, key, value string) error {
	if err := s.repo.Set(ctx, nodeID, key, value); err != nil {
		return err
	}
	s.evict(ctx, nodeID)
	return nil
}

// SetMany 批量写入，原子性由底层仓库保证
func (s *MetaService) SetMany(ctx context.Context, nodeID int64, values map[string]string) error {
	if err := s.repo.SetMany(ctx, nodeID, values); err != nil {
		return err
	}
	s.evict(ctx, nodeID)
	return nil
}

// Delete 删除单个 key
func (s *MetaService) Delete(ctx context.Context, nodeID int64, key string) error {
	if err := s.repo.Delete(ctx, nodeID, key); err != nil {
		return err
	}
	s.evict(ctx, nodeID)
	return nil
}

// DeleteAll 删除节点全部 meta
func (s *MetaService) DeleteAll(ctx context.Context, nodeID int64) error {
	if err := s.repo.DeleteAll(ctx, nodeID); err != nil {
		return err
	}
	s.evict(ctx, nodeID)
	return nil
}

// Evict 只清缓存（节点被仓库直接删除后调用）
func (s *MetaService) Evict(ctx context.Context, nodeID int64) {
	s.evict(ctx, nodeID)
}

// Flush 清空 L1
func (s *MetaService) Flush() error {
	if s.l1 == nil {
		return nil
	}
	return s.l1.Flush()
}

func (s *MetaService) evict(ctx context.Context, nodeID int64) {
	key := metaCacheKey(nodeID)
	if s.l1 != nil {
		if err := s.l1.Remove(key); err != nil {
			logger.Warn("meta l1 remove failed", logger.String("key", key), logger.ErrorField(err))
		}
	}
	if s.l2 != nil {
		if err := s.l2.Del(ctx, key).Err(); err != nil {
			logger.Warn("meta l2 del failed", logger.String("key", key), logger.ErrorField(err))
		}
	}
}

func (s *MetaService) setL1(key string, data []byte) {
	if s.l1 == nil {
		return
	}
	if err := s.l1.Set(key, data); err != nil {
		logger.Debug("meta l1 set failed", logger.String("key", key), logger.ErrorField(err))
	}
}

func decodeMeta(data []byte) (map[string]string, error) {
	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, err
	}
	return values, nil
}
