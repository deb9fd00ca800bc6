package service

import (
	"context"
	"errors"

	"forum_go/internal/core/logger"
	"forum_go/internal/model"
	"forum_go/internal/pkg/apperr"
	"forum_go/internal/repository"
)

// StatusResolver 版块开关/可见性/类型解析
// 不缓存，每次都沿祖先链实时计算
type StatusResolver struct {
	tree repository.ContentTree
	meta repository.MetaStore
}

// NewStatusResolver 创建 StatusResolver
func NewStatusResolver(tree repository.ContentTree, meta repository.MetaStore) *StatusResolver {
	return &StatusResolver{tree: tree, meta: meta}
}

// ForumType 版块类型，默认 forum
func (r *StatusResolver) ForumType(ctx context.Context, id int64) (model.ForumType, error) {
	v, _, err := r.meta.Get(ctx, id, model.MetaForumType)
	if err != nil {
		return model.ForumTypeForum, err
	}
	if model.ForumType(v) == model.ForumTypeCategory {
		return model.ForumTypeCategory, nil
	}
	return model.ForumTypeForum, nil
}

// Status 版块自身开关状态，默认 open
func (r *StatusResolver) Status(ctx context.Context, id int64) (model.ForumStatus, error) {
	v, _, err := r.meta.Get(ctx, id, model.MetaForumStatus)
	if err != nil {
		return model.ForumOpen, err
	}
	if model.ForumStatus(v) == model.ForumClosed {
		return model.ForumClosed, nil
	}
	return model.ForumOpen, nil
}

// Visibility 版块自身可见性，默认 public
func (r *StatusResolver) Visibility(ctx context.Context, id int64) (model.Visibility, error) {
	v, _, err := r.meta.Get(ctx, id, model.MetaForumVisibility)
	if err != nil {
		return model.VisibilityPublic, err
	}
	if vis := model.Visibility(v); vis.Valid() {
		return vis, nil
	}
	return model.VisibilityPublic, nil
}

// IsCategory 只看自身类型，不遍历祖先
func (r *StatusResolver) IsCategory(ctx context.Context, id int64) (bool, error) {
	t, err := r.ForumType(ctx, id)
	return t == model.ForumTypeCategory, err
}

// IsClosedSelf 只看自身状态
func (r *StatusResolver) IsClosedSelf(ctx context.Context, id int64) (bool, error) {
	s, err := r.Status(ctx, id)
	return s == model.ForumClosed, err
}

// IsClosed 自身关闭，或任一分类型祖先自身关闭
func (r *StatusResolver) IsClosed(ctx context.Context, id int64) (bool, error) {
	closed, err := r.IsClosedSelf(ctx, id)
	if err != nil || closed {
		return closed, err
	}
	return r.closedByCategoryAncestor(ctx, id)
}

// IsOpen 版块存在且未关闭；未知节点返回 false
func (r *StatusResolver) IsOpen(ctx context.Context, id int64) (bool, error) {
	node, err := r.tree.GetNode(ctx, id)
	if err != nil || node == nil {
		return false, err
	}
	closed, err := r.IsClosed(ctx, id)
	return !closed, err
}

// IsPrivateSelf 只看自身可见性
func (r *StatusResolver) IsPrivateSelf(ctx context.Context, id int64) (bool, error) {
	v, err := r.Visibility(ctx, id)
	return v == model.VisibilityPrivate, err
}

// IsPrivate 自身私有，或任一祖先（不限类型）自身私有
func (r *StatusResolver) IsPrivate(ctx context.Context, id int64) (bool, error) {
	private, err := r.IsPrivateSelf(ctx, id)
	if err != nil || private {
		return private, err
	}
	return r.privateByAncestor(ctx, id)
}

// IsHidden 只看自身可见性
func (r *StatusResolver) IsHidden(ctx context.Context, id int64) (bool, error) {
	v, err := r.Visibility(ctx, id)
	return v == model.VisibilityHidden, err
}

// closedByCategoryAncestor 祖先中第一个“分类且自身关闭”的版块
// 非分类祖先关闭不向下继承
func (r *StatusResolver) closedByCategoryAncestor(ctx context.Context, id int64) (bool, error) {
	var closed bool
	err := walkAncestors(ctx, r.tree, id, func(a *model.Node) (bool, error) {
		category, err := r.IsCategory(ctx, a.ID)
		if err != nil || !category {
			return false, err
		}
		closed, err = r.IsClosedSelf(ctx, a.ID)
		return closed, err
	})
	return closed, err
}

// privateByAncestor 祖先中第一个自身私有的版块，不要求是分类
func (r *StatusResolver) privateByAncestor(ctx context.Context, id int64) (bool, error) {
	var private bool
	err := walkAncestors(ctx, r.tree, id, func(a *model.Node) (bool, error) {
		var err error
		private, err = r.IsPrivateSelf(ctx, a.ID)
		return private, err
	})
	return private, err
}

// Close 关闭版块
func (r *StatusResolver) Close(ctx context.Context, id int64) error {
	return r.setAttr(ctx, id, model.MetaForumStatus, string(model.ForumClosed))
}

// Open 开启版块
func (r *StatusResolver) Open(ctx context.Context, id int64) error {
	return r.setAttr(ctx, id, model.MetaForumStatus, string(model.ForumOpen))
}

// Categorize 设为分类
func (r *StatusResolver) Categorize(ctx context.Context, id int64) error {
	return r.setAttr(ctx, id, model.MetaForumType, string(model.ForumTypeCategory))
}

// Normalize 设为普通版块
func (r *StatusResolver) Normalize(ctx context.Context, id int64) error {
	return r.setAttr(ctx, id, model.MetaForumType, string(model.ForumTypeForum))
}

// Privatize 设为私有
func (r *StatusResolver) Privatize(ctx context.Context, id int64) error {
	return r.setAttr(ctx, id, model.MetaForumVisibility, string(model.VisibilityPrivate))
}

// Publicize 设为公开
func (r *StatusResolver) Publicize(ctx context.Context, id int64) error {
	return r.setAttr(ctx, id, model.MetaForumVisibility, string(model.VisibilityPublic))
}

// Hide 设为隐藏
func (r *StatusResolver) Hide(ctx context.Context, id int64) error {
	return r.setAttr(ctx, id, model.MetaForumVisibility, string(model.VisibilityHidden))
}

func (r *StatusResolver) setAttr(ctx context.Context, id int64, key, value string) error {
	if _, err := requireForum(ctx, r.tree, id); err != nil {
		if errors.Is(err, errUnknownForum) {
			return apperr.ErrNodeNotFound
		}
		return err
	}
	if err := r.meta.Set(ctx, id, key, value); err != nil {
		return err
	}
	logger.Debug("forum attribute changed",
		logger.Int64("fid", id),
		logger.String("key", key),
		logger.String("value", value))
	return nil
}
