package pool

import (
	"context"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
)

const defaultCapacityMB = 64

// BigCache bigcache 包装器（L1，进程内）
// 只存 []byte，序列化由 Service 层负责
type BigCache struct {
	cache *bigcache.BigCache
}

// NewBigCache 创建 bigcache 实例
// capacityMB: 缓存容量（MB），expiration: 过期时间
func NewBigCache(capacityMB int, expiration time.Duration) (*BigCache, error) {
	if capacityMB <= 0 {
		capacityMB = defaultCapacityMB
	}
	cfg := bigcache.DefaultConfig(expiration)
	cfg.HardMaxCacheSize = capacityMB // 同时限制每个 shard 的初始分配
	cfg.MaxEntrySize = 1024           // 单个节点的 meta 很小
	cfg.Verbose = false

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	return &BigCache{cache: cache}, nil
}

// Get 读取；未命中返回 false
func (c *BigCache) Get(key string) ([]byte, bool) {
	data, err := c.cache.Get(key)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set 写入
func (c *BigCache) Set(key string, value []byte) error {
	return c.cache.Set(key, value)
}

// Remove 删除键，键不存在不算错误
func (c *BigCache) Remove(key string) error {
	err := c.cache.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

// Len 当前条目数
func (c *BigCache) Len() int {
	return c.cache.Len()
}

// Flush 清空所有缓存
func (c *BigCache) Flush() error {
	return c.cache.Reset()
}

// Close 关闭缓存
func (c *BigCache) Close() error {
	return c.cache.Close()
}
