package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forum_go/internal/model"
	"forum_go/internal/pkg/apperr"
	"forum_go/internal/repository"

	"golang.org/x/sync/singleflight"
)

// AggregateCache 版块聚合数据的惰性缓存
// 计数存于 node_meta，未计算（缺失、空串或格式错误）时计算并写回
type AggregateCache struct {
	tree  repository.ContentTree
	meta  repository.MetaStore
	fresh *FreshnessTracker
	slots slotCache
}

// NewAggregateCache 创建 AggregateCache
func NewAggregateCache(tree repository.ContentTree, meta repository.MetaStore, fresh *FreshnessTracker) *AggregateCache {
	return &AggregateCache{
		tree:  tree,
		meta:  meta,
		fresh: fresh,
		slots: slotCache{meta: meta, sf: &singleflight.Group{}},
	}
}

// GetOrCompute 按指标读取
// 计数返回数值；指针返回节点 ID 或 Unix 秒，不存在时 Present = false
func (c *AggregateCache) GetOrCompute(ctx context.Context, forumID int64, m model.Metric) (model.Reading, error) {
	r := model.Reading{Metric: m}
	switch m {
	case model.MetricSubforumCount, model.MetricTopicCount, model.MetricReplyCount, model.MetricVoiceCount:
		slot, err := c.count(ctx, forumID, m)
		r.Value, r.Present = int64(slot.OrZero()), slot.Computed()
		return r, err
	case model.MetricLastTopicID:
		slot, err := c.fresh.LastTopicID(ctx, forumID)
		r.Value, r.Present = slot.Get()
		return r, err
	case model.MetricLastReplyID:
		slot, err := c.fresh.LastReplyID(ctx, forumID)
		r.Value, r.Present = slot.Get()
		return r, err
	case model.MetricLastActive:
		slot, err := c.fresh.LastActive(ctx, forumID)
		if t, ok := slot.Get(); ok {
			r.Value, r.Present = t.Unix(), true
		}
		return r, err
	default:
		return r, fmt.Errorf("%w: unknown metric %q", apperr.ErrInvalidParams, m)
	}
}

// SubforumCount 子版块数；未显式设置时为 0
func (c *AggregateCache) SubforumCount(ctx context.Context, forumID int64) (int, error) {
	slot, err := c.count(ctx, forumID, model.MetricSubforumCount)
	return slot.OrZero(), err
}

// TopicCount 已发布主题数
func (c *AggregateCache) TopicCount(ctx context.Context, forumID int64) (int, error) {
	slot, err := c.count(ctx, forumID, model.MetricTopicCount)
	return slot.OrZero(), err
}

// ReplyCount 已发布回复数（经 topic 归属到版块）
func (c *AggregateCache) ReplyCount(ctx context.Context, forumID int64) (int, error) {
	slot, err := c.count(ctx, forumID, model.MetricReplyCount)
	return slot.OrZero(), err
}

// VoiceCount 参与者数，已知版块至少为 1
func (c *AggregateCache) VoiceCount(ctx context.Context, forumID int64) (int, error) {
	slot, err := c.count(ctx, forumID, model.MetricVoiceCount)
	return slot.OrZero(), err
}

// LastTopicID 最新主题 ID
func (c *AggregateCache) LastTopicID(ctx context.Context, forumID int64) (int64, bool, error) {
	slot, err := c.fresh.LastTopicID(ctx, forumID)
	id, ok := slot.Get()
	return id, ok, err
}

// LastReplyID 最新回复 ID
func (c *AggregateCache) LastReplyID(ctx context.Context, forumID int64) (int64, bool, error) {
	slot, err := c.fresh.LastReplyID(ctx, forumID)
	id, ok := slot.Get()
	return id, ok, err
}

// LastActive 最后活跃时间
func (c *AggregateCache) LastActive(ctx context.Context, forumID int64) (time.Time, bool, error) {
	slot, err := c.fresh.LastActive(ctx, forumID)
	at, ok := slot.Get()
	return at, ok, err
}

func (c *AggregateCache) count(ctx context.Context, forumID int64, m model.Metric) (model.Slot[int], error) {
	return loadOrCompute(ctx, c.slots, forumID, m, countCodec,
		func(ctx context.Context) (model.Slot[int], error) {
			return c.computeCount(ctx, forumID, m)
		})
}

// computeCount 从内容树重新计算单个计数
func (c *AggregateCache) computeCount(ctx context.Context, forumID int64, m model.Metric) (model.Slot[int], error) {
	if m == model.MetricSubforumCount {
		// 子版块数不做统计，只有 SetSubforumCount 写入的值
		if _, err := requireForum(ctx, c.tree, forumID); err != nil {
			return model.Unset[int](), err
		}
		return model.Some(0), nil
	}

	scan, err := scanForum(ctx, c.tree, forumID)
	if err != nil {
		return model.Unset[int](), err
	}
	switch m {
	case model.MetricTopicCount:
		return model.Some(scan.topicCount()), nil
	case model.MetricReplyCount:
		return model.Some(scan.replyCount()), nil
	default:
		return model.Some(scan.voiceCount()), nil
	}
}

// SetSubforumCount 显式设置子版块数
func (c *AggregateCache) SetSubforumCount(ctx context.Context, forumID int64, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative subforum count", apperr.ErrInvalidParams)
	}
	return c.meta.Set(ctx, forumID, model.MetricSubforumCount.Key(), model.EncodeCount(n))
}

// Increment 对已计算的计数直接加减；未计算的保持未计算，下次读取时重算
// 并发加减可能短暂不准，失效或重算后收敛
func (c *AggregateCache) Increment(ctx context.Context, forumID int64, m model.Metric, delta int) error {
	if !m.IsCounter() {
		return fmt.Errorf("%w: %s is not a counter", apperr.ErrInvalidParams, m)
	}
	n, ok := peek(ctx, c.slots, forumID, m, countCodec).Get()
	if !ok {
		return nil
	}
	n += delta
	if n < 0 {
		n = 0
	}
	return c.meta.Set(ctx, forumID, m.Key(), model.EncodeCount(n))
}

// Invalidate 重置为未计算；不传指标时重置全部
func (c *AggregateCache) Invalidate(ctx context.Context, forumID int64, metrics ...model.Metric) error {
	if len(metrics) == 0 {
		metrics = model.AllMetrics
	}
	for _, m := range metrics {
		if err := c.meta.Delete(ctx, forumID, m.Key()); err != nil {
			return fmt.Errorf("invalidate forum %d %s: %w", forumID, m, err)
		}
	}
	return nil
}

// IsComputed 指标是否已计算（不触发计算）
func (c *AggregateCache) IsComputed(ctx context.Context, forumID int64, m model.Metric) (bool, error) {
	raw, ok, err := c.meta.Get(ctx, forumID, m.Key())
	if err != nil {
		return false, err
	}
	switch m {
	case model.MetricLastTopicID, model.MetricLastReplyID:
		return model.DecodeID(raw, ok).Computed(), nil
	case model.MetricLastActive:
		return model.DecodeTime(raw, ok).Computed(), nil
	default:
		return model.DecodeCount(raw, ok).Computed(), nil
	}
}

// Snapshot 读取已存储的聚合数据，不计算
func (c *AggregateCache) Snapshot(ctx context.Context, forumID int64) (*model.ForumAggregate, error) {
	values, err := c.meta.GetAll(ctx, forumID)
	if err != nil {
		return nil, err
	}
	return model.DecodeAggregate(values), nil
}

// Resolve 计算所有未计算的指标并返回完整聚合
func (c *AggregateCache) Resolve(ctx context.Context, forumID int64) (*model.ForumAggregate, error) {
	var (
		agg  model.ForumAggregate
		errs []error
	)
	keep := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	agg.SubforumCount, err = c.count(ctx, forumID, model.MetricSubforumCount)
	keep(err)
	agg.TopicCount, err = c.count(ctx, forumID, model.MetricTopicCount)
	keep(err)
	agg.ReplyCount, err = c.count(ctx, forumID, model.MetricReplyCount)
	keep(err)
	agg.VoiceCount, err = c.count(ctx, forumID, model.MetricVoiceCount)
	keep(err)
	agg.LastTopicID, err = c.fresh.LastTopicID(ctx, forumID)
	keep(err)
	agg.LastReplyID, err = c.fresh.LastReplyID(ctx, forumID)
	keep(err)
	agg.LastActiveAt, err = c.fresh.LastActive(ctx, forumID)
	keep(err)

	return &agg, errors.Join(errs...)
}
