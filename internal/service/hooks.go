package service

import (
	"context"
	"errors"

	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"
	"forum_go/internal/model"
	"forum_go/internal/repository"
)

// Hooks 把内容树的变更事件翻译成聚合缓存的更新或失效
type Hooks struct {
	tree        repository.ContentTree
	cache       *AggregateCache
	fresh       *FreshnessTracker
	incremental bool
}

// NewHooks 创建 Hooks
func NewHooks(tree repository.ContentTree, cache *AggregateCache, fresh *FreshnessTracker, cfg *config.AggregateConfig) *Hooks {
	return &Hooks{
		tree:        tree,
		cache:       cache,
		fresh:       fresh,
		incremental: cfg.IncrementalCounts,
	}
}

// feeds 某类节点影响的指标
func feeds(kind model.Kind) []model.Metric {
	switch kind {
	case model.KindTopic:
		return []model.Metric{
			model.MetricTopicCount,
			model.MetricReplyCount,
			model.MetricVoiceCount,
			model.MetricLastTopicID,
			model.MetricLastReplyID,
			model.MetricLastActive,
		}
	case model.KindReply:
		return []model.Metric{
			model.MetricReplyCount,
			model.MetricVoiceCount,
			model.MetricLastReplyID,
			model.MetricLastActive,
		}
	default:
		return nil
	}
}

// TopicCreated 新主题：更新最新主题（补录的旧主题不会覆盖），计数加一或失效
// 主题作者不是 voice 来源
func (h *Hooks) TopicCreated(ctx context.Context, topic *model.Node) error {
	if !topic.Published() {
		return nil
	}
	forumID := topic.ParentID

	moved, err := h.fresh.AdvanceLastTopic(ctx, forumID, topic)
	if err != nil {
		return err
	}
	if err := h.bump(ctx, forumID, model.MetricTopicCount); err != nil {
		return err
	}
	if !moved {
		return nil
	}
	// 已有回复时最后活跃仍取回复时间，交给重算
	return h.cache.Invalidate(ctx, forumID, model.MetricLastActive)
}

// ReplyCreated 新回复：更新最新回复与最后活跃时间（补录的旧回复不会覆盖），计数加一或失效
func (h *Hooks) ReplyCreated(ctx context.Context, reply *model.Node) error {
	if !reply.Published() {
		return nil
	}
	forum, err := forumOfNode(ctx, h.tree, reply)
	if err != nil || forum == nil {
		return err
	}

	if err := h.fresh.AdvanceLastReply(ctx, forum.ID, reply); err != nil {
		return err
	}
	if err := h.bump(ctx, forum.ID, model.MetricReplyCount); err != nil {
		return err
	}
	return h.cache.Invalidate(ctx, forum.ID, model.MetricVoiceCount)
}

// NodeRemoved 节点已删除；forumID 为删除前解析出的所属版块
// 版块本身的聚合随 meta 一起删除
func (h *Hooks) NodeRemoved(ctx context.Context, node *model.Node, forumID int64) error {
	metrics := feeds(node.Kind)
	if len(metrics) == 0 || forumID == 0 {
		return nil
	}
	return h.cache.Invalidate(ctx, forumID, metrics...)
}

// NodeMoved 节点换父：新旧版块都失效
// 版块移动不影响任何聚合（计数不跨子版块汇总）
func (h *Hooks) NodeMoved(ctx context.Context, node *model.Node, oldForumID, newForumID int64) error {
	metrics := feeds(node.Kind)
	if len(metrics) == 0 {
		return nil
	}
	var errs []error
	if oldForumID != 0 {
		errs = append(errs, h.cache.Invalidate(ctx, oldForumID, metrics...))
	}
	if newForumID != 0 && newForumID != oldForumID {
		errs = append(errs, h.cache.Invalidate(ctx, newForumID, metrics...))
	}
	return errors.Join(errs...)
}

// PublishStateChanged 发布状态变化：所属版块的统计全部失效
func (h *Hooks) PublishStateChanged(ctx context.Context, node *model.Node, forumID int64) error {
	metrics := feeds(node.Kind)
	if len(metrics) == 0 || forumID == 0 {
		return nil
	}
	return h.cache.Invalidate(ctx, forumID, metrics...)
}

// StatusChanged 开关状态实时解析，不影响聚合
func (h *Hooks) StatusChanged(_ context.Context, forumID int64) error {
	logger.Debug("forum status changed", logger.Int64("fid", forumID))
	return nil
}

// VisibilityChanged 可见性实时解析，计数不按可见性过滤，不影响聚合
func (h *Hooks) VisibilityChanged(_ context.Context, forumID int64) error {
	logger.Debug("forum visibility changed", logger.Int64("fid", forumID))
	return nil
}

// bump 计数加一；关闭增量时直接失效
func (h *Hooks) bump(ctx context.Context, forumID int64, m model.Metric) error {
	if !h.incremental {
		return h.cache.Invalidate(ctx, forumID, m)
	}
	return h.cache.Increment(ctx, forumID, m, 1)
}
