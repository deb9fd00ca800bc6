package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forum_go/internal/core/logger"
	"forum_go/internal/model"
	"forum_go/internal/pkg/apperr"
	"forum_go/internal/repository"

	"golang.org/x/sync/singleflight"
)

// slotCodec 指标在 meta 中的编解码
type slotCodec[T any] struct {
	decode func(raw string, ok bool) model.Slot[T]
	encode func(model.Slot[T]) string
}

var (
	countCodec = slotCodec[int]{
		decode: model.DecodeCount,
		encode: func(s model.Slot[int]) string { return model.EncodeCount(s.OrZero()) },
	}
	idCodec   = slotCodec[int64]{decode: model.DecodeID, encode: model.EncodeID}
	timeCodec = slotCodec[time.Time]{decode: model.DecodeTime, encode: model.EncodeTime}
)

// slotCache 单个聚合槽的 get-or-compute
// 并发计算同一个槽时由 singleflight 合并，重复写入同一个正确值无害
type slotCache struct {
	meta repository.MetaStore
	sf   *singleflight.Group
}

// peek 只读存储，不计算；读失败视为未计算
func peek[T any](ctx context.Context, c slotCache, forumID int64, m model.Metric, codec slotCodec[T]) model.Slot[T] {
	raw, ok, err := c.meta.Get(ctx, forumID, m.Key())
	if err != nil {
		logger.Warn("aggregate read failed, recomputing",
			logger.Int64("fid", forumID),
			logger.String("metric", string(m)),
			logger.ErrorField(err))
		return model.Unset[T]()
	}
	return codec.decode(raw, ok)
}

// loadOrCompute 存储中已计算则直接返回；否则计算、写回并返回
// 写回失败时仍返回计算值，错误包装 apperr.ErrCachePersist
func loadOrCompute[T any](ctx context.Context, c slotCache, forumID int64, m model.Metric, codec slotCodec[T],
	compute func(context.Context) (model.Slot[T], error)) (model.Slot[T], error) {
	if slot := peek(ctx, c, forumID, m, codec); slot.Computed() {
		aggregateReads.WithLabelValues(string(m), "stored").Inc()
		return slot, nil
	}

	// 同一次计算由多个调用方共享，不随第一个调用方取消
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := c.sf.Do(fmt.Sprintf("%d:%s", forumID, m), func() (interface{}, error) {
		slot, err := compute(flightCtx)
		if err != nil {
			return slot, err
		}
		aggregateReads.WithLabelValues(string(m), "computed").Inc()
		if err := c.meta.Set(flightCtx, forumID, m.Key(), codec.encode(slot)); err != nil {
			aggregatePersistErrors.WithLabelValues(string(m)).Inc()
			return slot, fmt.Errorf("%w: forum %d %s: %w", apperr.ErrCachePersist, forumID, m, err)
		}
		return slot, nil
	})
	if errors.Is(err, errUnknownForum) {
		return model.Unset[T](), nil
	}
	slot, _ := v.(model.Slot[T])
	return slot, err
}

// IsPersistError 值已算出，只是写回存储失败
func IsPersistError(err error) bool {
	return errors.Is(err, apperr.ErrCachePersist)
}

// forumScan 版块子树的一次扫描
type forumScan struct {
	forum   *model.Node
	topics  []*model.Node // 全部状态的主题
	replies []*model.Node // 这些主题下已发布的回复
}

// scanForum 读取版块的主题与回复；回复按主题归属解析到版块
func scanForum(ctx context.Context, tree repository.ContentTree, forumID int64) (*forumScan, error) {
	forum, err := requireForum(ctx, tree, forumID)
	if err != nil {
		return nil, err
	}
	topics, err := tree.Children(ctx, forumID, model.KindTopic, repository.AnyStatus)
	if err != nil {
		return nil, err
	}
	replies, err := tree.ChildrenOf(ctx, nodeIDs(topics), model.KindReply, model.StatePublish)
	if err != nil {
		return nil, err
	}
	return &forumScan{forum: forum, topics: topics, replies: replies}, nil
}

func (s *forumScan) publishedTopics() []*model.Node {
	out := make([]*model.Node, 0, len(s.topics))
	for _, t := range s.topics {
		if t.Published() {
			out = append(out, t)
		}
	}
	return out
}

func (s *forumScan) topicCount() int {
	return len(s.publishedTopics())
}

func (s *forumScan) replyCount() int {
	return len(s.replies)
}

// voiceCount 已发布回复的不同作者加上版块创建者，因此至少为 1
// 主题作者不计入
func (s *forumScan) voiceCount() int {
	authors := map[int64]struct{}{s.forum.AuthorID: {}}
	for _, r := range s.replies {
		authors[r.AuthorID] = struct{}{}
	}
	return len(authors)
}

func (s *forumScan) lastTopic() *model.Node {
	return newest(s.publishedTopics())
}

func (s *forumScan) lastReply() *model.Node {
	return newest(s.replies)
}

// nodeSlot 节点指针槽：无节点为“已计算但为空”
func nodeSlot(n *model.Node) model.Slot[int64] {
	if n == nil {
		return model.Empty[int64]()
	}
	return model.Some(n.ID)
}
