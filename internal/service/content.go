package service

import (
	"context"
	"fmt"
	"time"

	"forum_go/internal/core/logger"
	"forum_go/internal/core/snowflake"
	"forum_go/internal/model"
	"forum_go/internal/pkg/apperr"
	"forum_go/internal/repository"
)

// ContentService 内容树写操作，每次变更都触发对应的 Hook
type ContentService struct {
	nodes  repository.NodeRepository
	meta   repository.MetaStore
	status *StatusResolver
	hooks  *Hooks
	ids    snowflake.Generator
	now    func() time.Time
}

// NewContentService 创建 ContentService
func NewContentService(nodes repository.NodeRepository, meta repository.MetaStore, status *StatusResolver, hooks *Hooks, ids snowflake.Generator) *ContentService {
	return &ContentService{
		nodes:  nodes,
		meta:   meta,
		status: status,
		hooks:  hooks,
		ids:    ids,
		now:    time.Now,
	}
}

// CreateForum 创建版块；聚合数据在首次读取时计算
func (s *ContentService) CreateForum(ctx context.Context, authorID int64, req *model.CreateForumRequest) (*model.Node, error) {
	if req.Visibility != "" && !req.Visibility.Valid() {
		return nil, fmt.Errorf("%w: visibility %q", apperr.ErrInvalidParams, req.Visibility)
	}
	if req.ParentID != 0 {
		if err := s.expectKind(ctx, req.ParentID, model.KindForum); err != nil {
			return nil, err
		}
	}

	forum := &model.Node{
		ID:       s.ids.Generate(),
		Kind:     model.KindForum,
		ParentID: req.ParentID,
		AuthorID: authorID,
		Title:    req.Title,
		Dateline: s.now().Unix(),
		Status:   model.StatePublish,
	}
	if err := s.nodes.Create(ctx, forum); err != nil {
		logger.Error("create forum failed", logger.ErrorField(err))
		return nil, err
	}

	attrs := make(map[string]string, 2)
	if req.Type == model.ForumTypeCategory {
		attrs[model.MetaForumType] = string(model.ForumTypeCategory)
	}
	if req.Visibility != "" && req.Visibility != model.VisibilityPublic {
		attrs[model.MetaForumVisibility] = string(req.Visibility)
	}
	if err := s.meta.SetMany(ctx, forum.ID, attrs); err != nil {
		return nil, err
	}

	logger.Info("forum created", logger.Int64("fid", forum.ID), logger.Int64("parent", forum.ParentID))
	return forum, nil
}

// CreateTopic 发主题；版块关闭或为分类时拒绝
func (s *ContentService) CreateTopic(ctx context.Context, authorID int64, req *model.CreatePostRequest) (*model.Node, error) {
	if err := s.expectKind(ctx, req.ParentID, model.KindForum); err != nil {
		return nil, err
	}
	category, err := s.status.IsCategory(ctx, req.ParentID)
	if err != nil {
		return nil, err
	}
	if category {
		return nil, apperr.ErrForumCategory
	}
	if err := s.expectOpen(ctx, req.ParentID); err != nil {
		return nil, err
	}

	topic := s.newPost(model.KindTopic, authorID, req)
	if err := s.nodes.Create(ctx, topic); err != nil {
		logger.Error("create topic failed", logger.ErrorField(err))
		return nil, err
	}
	if err := s.hooks.TopicCreated(ctx, topic); err != nil {
		logger.Warn("topic created hook failed", logger.Int64("tid", topic.ID), logger.ErrorField(err))
	}
	return topic, nil
}

// CreateReply 回复；主题所属版块关闭时拒绝
func (s *ContentService) CreateReply(ctx context.Context, authorID int64, req *model.CreatePostRequest) (*model.Node, error) {
	topic, err := s.nodes.GetNode(ctx, req.ParentID)
	if err != nil {
		return nil, err
	}
	if topic == nil || topic.Kind != model.KindTopic {
		return nil, apperr.ErrInvalidParent
	}
	if err := s.expectOpen(ctx, topic.ParentID); err != nil {
		return nil, err
	}

	reply := s.newPost(model.KindReply, authorID, req)
	if reply.Dateline < topic.Dateline {
		reply.Dateline = topic.Dateline
	}
	if err := s.nodes.Create(ctx, reply); err != nil {
		logger.Error("create reply failed", logger.ErrorField(err))
		return nil, err
	}
	if err := s.hooks.ReplyCreated(ctx, reply); err != nil {
		logger.Warn("reply created hook failed", logger.Int64("rid", reply.ID), logger.ErrorField(err))
	}
	return reply, nil
}

// Delete 删除节点；主题连同回复一起删除，非空版块不能删除
func (s *ContentService) Delete(ctx context.Context, id int64) error {
	node, err := s.nodes.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if node == nil {
		return apperr.ErrNodeNotFound
	}

	forum, err := forumOfNode(ctx, s.nodes, node)
	if err != nil {
		return err
	}

	switch node.Kind {
	case model.KindForum:
		for _, kind := range []model.Kind{model.KindForum, model.KindTopic} {
			children, err := s.nodes.Children(ctx, id, kind, repository.AnyStatus)
			if err != nil {
				return err
			}
			if len(children) > 0 {
				return fmt.Errorf("forum %d: %w", id, apperr.ErrNotEmpty)
			}
		}
	case model.KindTopic:
		replies, err := s.nodes.Children(ctx, id, model.KindReply, repository.AnyStatus)
		if err != nil {
			return err
		}
		for _, r := range replies {
			if err := s.remove(ctx, r.ID); err != nil {
				return err
			}
		}
	}

	if err := s.remove(ctx, id); err != nil {
		return err
	}

	var owner int64
	if node.Kind != model.KindForum {
		owner = forumID(forum)
	}
	if err := s.hooks.NodeRemoved(ctx, node, owner); err != nil {
		logger.Warn("node removed hook failed", logger.Int64("id", id), logger.ErrorField(err))
	}
	logger.Info("node deleted", logger.Int64("id", id), logger.String("type", node.Kind.String()))
	return nil
}

// Move 修改父节点
func (s *ContentService) Move(ctx context.Context, id, parentID int64) error {
	node, err := s.nodes.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if node == nil {
		return apperr.ErrNodeNotFound
	}
	if node.ParentID == parentID {
		return nil
	}

	switch node.Kind {
	case model.KindForum:
		if parentID != 0 {
			if err := s.expectKind(ctx, parentID, model.KindForum); err != nil {
				return err
			}
			if err := s.expectNotDescendant(ctx, id, parentID); err != nil {
				return err
			}
		}
	case model.KindTopic:
		if err := s.expectKind(ctx, parentID, model.KindForum); err != nil {
			return err
		}
		category, err := s.status.IsCategory(ctx, parentID)
		if err != nil {
			return err
		}
		if category {
			return apperr.ErrForumCategory
		}
	case model.KindReply:
		if err := s.expectKind(ctx, parentID, model.KindTopic); err != nil {
			return err
		}
	}

	oldForum, err := forumOfNode(ctx, s.nodes, node)
	if err != nil {
		return err
	}
	if err := s.nodes.Move(ctx, id, parentID); err != nil {
		return err
	}
	node.ParentID = parentID
	newForum, err := forumOfNode(ctx, s.nodes, node)
	if err != nil {
		return err
	}

	if err := s.hooks.NodeMoved(ctx, node, forumID(oldForum), forumID(newForum)); err != nil {
		logger.Warn("node moved hook failed", logger.Int64("id", id), logger.ErrorField(err))
	}
	return nil
}

// SetPublishState 修改发布状态
func (s *ContentService) SetPublishState(ctx context.Context, id int64, state model.PublishState) error {
	if !state.Valid() {
		return apperr.ErrInvalidStatus
	}
	node, err := s.nodes.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if node == nil {
		return apperr.ErrNodeNotFound
	}
	if node.Status == state {
		return nil
	}
	if err := s.nodes.SetStatus(ctx, id, state); err != nil {
		return err
	}
	node.Status = state

	forum, err := forumOfNode(ctx, s.nodes, node)
	if err != nil {
		return err
	}
	if err := s.hooks.PublishStateChanged(ctx, node, forumID(forum)); err != nil {
		logger.Warn("publish state hook failed", logger.Int64("id", id), logger.ErrorField(err))
	}
	return nil
}

// ForumAction 版块属性操作
type ForumAction string

const (
	ActionClose      ForumAction = "close"
	ActionOpen       ForumAction = "open"
	ActionCategorize ForumAction = "categorize"
	ActionNormalize  ForumAction = "normalize"
	ActionPrivatize  ForumAction = "privatize"
	ActionPublicize  ForumAction = "publicize"
	ActionHide       ForumAction = "hide"
)

// ApplyForumAction 修改版块开关、类型或可见性
func (s *ContentService) ApplyForumAction(ctx context.Context, fid int64, action ForumAction) error {
	var (
		err        error
		visibility bool
	)
	switch action {
	case ActionClose:
		err = s.status.Close(ctx, fid)
	case ActionOpen:
		err = s.status.Open(ctx, fid)
	case ActionCategorize:
		err = s.status.Categorize(ctx, fid)
	case ActionNormalize:
		err = s.status.Normalize(ctx, fid)
	case ActionPrivatize:
		err, visibility = s.status.Privatize(ctx, fid), true
	case ActionPublicize:
		err, visibility = s.status.Publicize(ctx, fid), true
	case ActionHide:
		err, visibility = s.status.Hide(ctx, fid), true
	default:
		return fmt.Errorf("%w: forum action %q", apperr.ErrInvalidParams, action)
	}
	if err != nil {
		return err
	}

	if visibility {
		err = s.hooks.VisibilityChanged(ctx, fid)
	} else {
		err = s.hooks.StatusChanged(ctx, fid)
	}
	if err != nil {
		logger.Warn("forum attribute hook failed", logger.Int64("fid", fid), logger.ErrorField(err))
	}
	logger.Info("forum attribute changed", logger.Int64("fid", fid), logger.String("action", string(action)))
	return nil
}

func (s *ContentService) newPost(kind model.Kind, authorID int64, req *model.CreatePostRequest) *model.Node {
	dateline := req.Dateline
	if dateline == 0 {
		dateline = s.now().Unix()
	}
	return &model.Node{
		ID:       s.ids.Generate(),
		Kind:     kind,
		ParentID: req.ParentID,
		AuthorID: authorID,
		Title:    req.Title,
		Dateline: dateline,
		Status:   model.StatePublish,
	}
}

// remove 删除节点并清理 meta 缓存
func (s *ContentService) remove(ctx context.Context, id int64) error {
	if err := s.nodes.Delete(ctx, id); err != nil {
		return err
	}
	return s.meta.DeleteAll(ctx, id)
}

func (s *ContentService) expectKind(ctx context.Context, id int64, kind model.Kind) error {
	node, err := s.nodes.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if node == nil || node.Kind != kind {
		return apperr.ErrInvalidParent
	}
	return nil
}

func (s *ContentService) expectOpen(ctx context.Context, forumID int64) error {
	closed, err := s.status.IsClosed(ctx, forumID)
	if err != nil {
		return err
	}
	if closed {
		return apperr.ErrForumClosed
	}
	return nil
}

// expectNotDescendant 版块不能移到自己或自己的子孙下面
func (s *ContentService) expectNotDescendant(ctx context.Context, id, parentID int64) error {
	if id == parentID {
		return apperr.ErrInvalidParent
	}
	ancestors, err := Ancestors(ctx, s.nodes, parentID)
	if err != nil {
		return err
	}
	for _, a := range ancestors {
		if a.ID == id {
			return apperr.ErrInvalidParent
		}
	}
	return nil
}

func forumID(n *model.Node) int64 {
	if n == nil {
		return 0
	}
	return n.ID
}
