package service

import (
	"context"
	"fmt"
	"time"

	"forum_go/internal/model"
	"forum_go/internal/repository"

	"golang.org/x/sync/singleflight"
)

// FreshnessTracker 版块最新主题、最新回复与最后活跃时间
type FreshnessTracker struct {
	tree  repository.ContentTree
	meta  repository.MetaStore
	slots slotCache
}

// NewFreshnessTracker 创建 FreshnessTracker
func NewFreshnessTracker(tree repository.ContentTree, meta repository.MetaStore) *FreshnessTracker {
	return &FreshnessTracker{
		tree:  tree,
		meta:  meta,
		slots: slotCache{meta: meta, sf: &singleflight.Group{}},
	}
}

// LastTopicID 最新已发布主题
func (t *FreshnessTracker) LastTopicID(ctx context.Context, forumID int64) (model.Slot[int64], error) {
	return loadOrCompute(ctx, t.slots, forumID, model.MetricLastTopicID, idCodec,
		func(ctx context.Context) (model.Slot[int64], error) {
			scan, err := scanForum(ctx, t.tree, forumID)
			if err != nil {
				return model.Unset[int64](), err
			}
			return nodeSlot(scan.lastTopic()), nil
		})
}

// LastReplyID 版块各主题下最新的已发布回复
func (t *FreshnessTracker) LastReplyID(ctx context.Context, forumID int64) (model.Slot[int64], error) {
	return loadOrCompute(ctx, t.slots, forumID, model.MetricLastReplyID, idCodec,
		func(ctx context.Context) (model.Slot[int64], error) {
			scan, err := scanForum(ctx, t.tree, forumID)
			if err != nil {
				return model.Unset[int64](), err
			}
			return nodeSlot(scan.lastReply()), nil
		})
}

// LastActive 最后活跃时间
func (t *FreshnessTracker) LastActive(ctx context.Context, forumID int64) (model.Slot[time.Time], error) {
	return loadOrCompute(ctx, t.slots, forumID, model.MetricLastActive, timeCodec,
		func(ctx context.Context) (model.Slot[time.Time], error) {
			scan, err := scanForum(ctx, t.tree, forumID)
			if err != nil {
				return model.Unset[time.Time](), err
			}
			return lastActive(scan.lastTopic(), scan.lastReply()), nil
		})
}

// lastActive 有回复时取最新回复的时间，否则取最新主题的时间，都没有则为空
// 不比较两者谁更新
func lastActive(topic, reply *model.Node) model.Slot[time.Time] {
	switch {
	case reply != nil:
		return model.Some(reply.CreatedAt())
	case topic != nil:
		return model.Some(topic.CreatedAt())
	default:
		return model.Empty[time.Time]()
	}
}

// computeInto 全量计算三个新鲜度字段（RecountEngine 使用）
func (t *FreshnessTracker) computeInto(scan *forumScan, agg *model.ForumAggregate) {
	topic, reply := scan.lastTopic(), scan.lastReply()
	agg.LastTopicID = nodeSlot(topic)
	agg.LastReplyID = nodeSlot(reply)
	agg.LastActiveAt = lastActive(topic, reply)
}

// SetLastTopic 发主题时直接更新，不重新扫描
func (t *FreshnessTracker) SetLastTopic(ctx context.Context, forumID, topicID int64) error {
	return t.meta.Set(ctx, forumID, model.MetricLastTopicID.Key(), model.EncodeID(model.Some(topicID)))
}

// SetLastReply 回复时直接更新，不重新扫描
func (t *FreshnessTracker) SetLastReply(ctx context.Context, forumID, replyID int64) error {
	return t.meta.Set(ctx, forumID, model.MetricLastReplyID.Key(), model.EncodeID(model.Some(replyID)))
}

// SetLastActive 直接更新最后活跃时间
func (t *FreshnessTracker) SetLastActive(ctx context.Context, forumID int64, at time.Time) error {
	return t.meta.Set(ctx, forumID, model.MetricLastActive.Key(), model.EncodeTime(model.Some(at)))
}

// AdvanceLastTopic 新主题排在已记录的最新主题之前时直接写入，否则保持不变
// 记录未计算或指向的主题已失效时清除记录，下次读取重算
// 返回最新主题是否可能变化
func (t *FreshnessTracker) AdvanceLastTopic(ctx context.Context, forumID int64, topic *model.Node) (bool, error) {
	current, known, err := t.current(ctx, forumID, model.MetricLastTopicID,
		func(n *model.Node) (bool, error) {
			return n.Kind == model.KindTopic && n.ParentID == forumID, nil
		})
	if err != nil {
		return false, err
	}
	if !known {
		return true, t.invalidate(ctx, forumID, model.MetricLastTopicID)
	}
	if !topic.Newer(current) {
		return false, nil
	}
	return true, t.SetLastTopic(ctx, forumID, topic.ID)
}

// AdvanceLastReply 新回复排在已记录的最新回复之前时同时写入最新回复与最后活跃时间
// 记录未计算或已失效时两者一起清除
func (t *FreshnessTracker) AdvanceLastReply(ctx context.Context, forumID int64, reply *model.Node) error {
	current, known, err := t.current(ctx, forumID, model.MetricLastReplyID,
		func(n *model.Node) (bool, error) {
			if n.Kind != model.KindReply {
				return false, nil
			}
			forum, err := forumOfNode(ctx, t.tree, n)
			if err != nil || forum == nil {
				return false, err
			}
			return forum.ID == forumID, nil
		})
	if err != nil {
		return err
	}
	if !known {
		return t.invalidate(ctx, forumID, model.MetricLastReplyID, model.MetricLastActive)
	}
	if !reply.Newer(current) {
		return nil
	}
	if err := t.SetLastReply(ctx, forumID, reply.ID); err != nil {
		return err
	}
	return t.SetLastActive(ctx, forumID, reply.CreatedAt())
}

// current 读取已记录的指针并加载节点
// known 为 false 表示记录未计算，或节点已删除、未发布、不再属于该版块
func (t *FreshnessTracker) current(ctx context.Context, forumID int64, m model.Metric,
	owns func(*model.Node) (bool, error)) (*model.Node, bool, error) {
	slot := peek(ctx, t.slots, forumID, m, idCodec)
	if !slot.Computed() {
		return nil, false, nil
	}
	id, ok := slot.Get()
	if !ok {
		return nil, true, nil
	}
	node, err := t.tree.GetNode(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if node == nil || !node.Published() {
		return nil, false, nil
	}
	mine, err := owns(node)
	if err != nil || !mine {
		return nil, false, err
	}
	return node, true, nil
}

func (t *FreshnessTracker) invalidate(ctx context.Context, forumID int64, metrics ...model.Metric) error {
	for _, m := range metrics {
		if err := t.meta.Delete(ctx, forumID, m.Key()); err != nil {
			return fmt.Errorf("invalidate forum %d %s: %w", forumID, m, err)
		}
	}
	return nil
}
