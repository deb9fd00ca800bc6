package service

import (
	"context"
	"errors"

	"forum_go/internal/core/logger"
	"forum_go/internal/model"
	"forum_go/internal/pkg/apperr"
	"forum_go/internal/repository"
)

// ForumService 版块读取服务（统计、状态、层级）
type ForumService struct {
	nodes  repository.NodeRepository
	status *StatusResolver
	cache  *AggregateCache
}

// NewForumService 创建 ForumService 实例
func NewForumService(nodes repository.NodeRepository, status *StatusResolver, cache *AggregateCache) *ForumService {
	return &ForumService{
		nodes:  nodes,
		status: status,
		cache:  cache,
	}
}

// Stats 版块统计：全部聚合指标 + 实时解析的状态
func (s *ForumService) Stats(ctx context.Context, fid int64) (*model.ForumStatsDTO, error) {
	forum, err := s.forum(ctx, fid)
	if err != nil {
		return nil, err
	}
	return s.stats(ctx, forum)
}

func (s *ForumService) stats(ctx context.Context, forum *model.Node) (*model.ForumStatsDTO, error) {
	agg, err := s.cache.Resolve(ctx, forum.ID)
	if err != nil {
		if !IsPersistError(err) {
			return nil, err
		}
		// 值已算出，只是没写回
		logger.Warn("forum stats not persisted", logger.Int64("fid", forum.ID), logger.ErrorField(err))
	}

	dto := &model.ForumStatsDTO{
		Fid:           forum.ID,
		Title:         forum.Title,
		Parent:        forum.ParentID,
		SubforumCount: agg.SubforumCount.OrZero(),
		TopicCount:    agg.TopicCount.OrZero(),
		ReplyCount:    agg.ReplyCount.OrZero(),
		VoiceCount:    agg.VoiceCount.OrZero(),
	}

	if id, ok := agg.LastTopicID.Get(); ok {
		dto.LastTopicID = id
		dto.LastTopicAuthorID = s.authorOf(ctx, id)
	}
	if id, ok := agg.LastReplyID.Get(); ok {
		dto.LastReplyID = id
		dto.LastReplyAuthorID = s.authorOf(ctx, id)
	}
	if at, ok := agg.LastActiveAt.Get(); ok {
		dto.LastActive = at.Unix()
	}

	if dto.Closed, err = s.status.IsClosed(ctx, forum.ID); err != nil {
		return nil, err
	}
	if dto.Private, err = s.status.IsPrivate(ctx, forum.ID); err != nil {
		return nil, err
	}
	if dto.Category, err = s.status.IsCategory(ctx, forum.ID); err != nil {
		return nil, err
	}
	return dto, nil
}

// authorOf 节点作者，节点已删除时为 0
func (s *ForumService) authorOf(ctx context.Context, id int64) int64 {
	node, err := s.nodes.GetNode(ctx, id)
	if err != nil || node == nil {
		return 0
	}
	return node.AuthorID
}

// Status 版块状态（自身属性 + 继承后的结果）
func (s *ForumService) Status(ctx context.Context, fid int64) (*model.ForumStatusDTO, error) {
	if _, err := s.forum(ctx, fid); err != nil {
		return nil, err
	}

	dto := &model.ForumStatusDTO{Fid: fid}
	forumType, err := s.status.ForumType(ctx, fid)
	if err != nil {
		return nil, err
	}
	status, err := s.status.Status(ctx, fid)
	if err != nil {
		return nil, err
	}
	visibility, err := s.status.Visibility(ctx, fid)
	if err != nil {
		return nil, err
	}
	dto.Type, dto.Status, dto.Visibility = string(forumType), string(status), string(visibility)
	dto.Category = forumType == model.ForumTypeCategory

	if dto.Closed, err = s.status.IsClosed(ctx, fid); err != nil {
		return nil, err
	}
	dto.Open = !dto.Closed
	if dto.Private, err = s.status.IsPrivate(ctx, fid); err != nil {
		return nil, err
	}
	return dto, nil
}

// Subforums 子版块；私有和隐藏版块仅在 includePrivate 时返回
func (s *ForumService) Subforums(ctx context.Context, fid int64, includePrivate bool) ([]*model.NodeDTO, error) {
	if _, err := s.forum(ctx, fid); err != nil {
		return nil, err
	}
	children, err := s.nodes.Children(ctx, fid, model.KindForum, model.StatePublish)
	if err != nil {
		return nil, err
	}

	list := make([]*model.NodeDTO, 0, len(children))
	for _, child := range children {
		ok, err := s.readable(ctx, child.ID, includePrivate)
		if err != nil {
			return nil, err
		}
		if ok {
			list = append(list, child.ToDTO())
		}
	}
	return list, nil
}

// readable 版块对当前读者是否可见
func (s *ForumService) readable(ctx context.Context, fid int64, includePrivate bool) (bool, error) {
	if includePrivate {
		return true, nil
	}
	hidden, err := s.status.IsHidden(ctx, fid)
	if err != nil || hidden {
		return false, err
	}
	private, err := s.status.IsPrivate(ctx, fid)
	return !private, err
}

// Ancestors 祖先版块，直接父版块在前
func (s *ForumService) Ancestors(ctx context.Context, fid int64) ([]*model.NodeDTO, error) {
	if _, err := s.forum(ctx, fid); err != nil {
		return nil, err
	}
	ancestors, err := Ancestors(ctx, s.nodes, fid)
	if err != nil {
		return nil, err
	}
	list := make([]*model.NodeDTO, 0, len(ancestors))
	for _, a := range ancestors {
		list = append(list, a.ToDTO())
	}
	return list, nil
}

// Parent 父版块，根版块返回 nil
func (s *ForumService) Parent(ctx context.Context, fid int64) (*model.NodeDTO, error) {
	forum, err := s.forum(ctx, fid)
	if err != nil {
		return nil, err
	}
	if forum.IsRoot() {
		return nil, nil
	}
	parent, err := s.nodes.GetNode(ctx, forum.ParentID)
	if err != nil || parent == nil {
		return nil, err
	}
	return parent.ToDTO(), nil
}

// Tree 论坛树（带统计），按层读取子版块
func (s *ForumService) Tree(ctx context.Context, includePrivate bool) ([]*model.ForumTreeNode, error) {
	roots, err := s.nodes.Roots(ctx, model.KindForum)
	if err != nil {
		return nil, err
	}

	nodeMap := make(map[int64]*model.ForumTreeNode)
	var result []*model.ForumTreeNode

	level := roots
	for len(level) > 0 {
		ids := make([]int64, 0, len(level))
		for _, f := range level {
			if !f.Published() {
				continue
			}
			if _, seen := nodeMap[f.ID]; seen {
				continue
			}
			ok, err := s.readable(ctx, f.ID, includePrivate)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}

			stats, err := s.stats(ctx, f)
			if err != nil {
				return nil, err
			}
			node := &model.ForumTreeNode{ForumStatsDTO: *stats}
			nodeMap[f.ID] = node
			ids = append(ids, f.ID)

			if parent, ok := nodeMap[f.ParentID]; ok {
				parent.Children = append(parent.Children, node)
			} else {
				result = append(result, node)
			}
		}

		level, err = s.nodes.ChildrenOf(ctx, ids, model.KindForum, repository.AnyStatus)
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

// forum 获取版块节点，不存在时返回 apperr.ErrNodeNotFound
func (s *ForumService) forum(ctx context.Context, fid int64) (*model.Node, error) {
	node, err := requireForum(ctx, s.nodes, fid)
	if errors.Is(err, errUnknownForum) {
		return nil, apperr.ErrNodeNotFound
	}
	return node, err
}
