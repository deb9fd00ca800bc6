package service

import (
	"context"
	"errors"
	"fmt"

	"forum_go/internal/model"
	"forum_go/internal/repository"
)

// errUnknownForum 版块不存在：读取返回零值，不写回
var errUnknownForum = errors.New("unknown forum")

// ForumOf 返回节点所属版块
// forum 返回自身，topic 返回父版块，reply 经 topic 解析到版块；无法解析时返回 nil, nil
func ForumOf(ctx context.Context, tree repository.ContentTree, id int64) (*model.Node, error) {
	node, err := tree.GetNode(ctx, id)
	if err != nil || node == nil {
		return nil, err
	}
	return forumOfNode(ctx, tree, node)
}

func forumOfNode(ctx context.Context, tree repository.ContentTree, node *model.Node) (*model.Node, error) {
	for hops := 0; hops < 2; hops++ {
		if node.Kind == model.KindForum {
			return node, nil
		}
		if node.IsRoot() {
			return nil, nil
		}
		parent, err := tree.GetNode(ctx, node.ParentID)
		if err != nil || parent == nil {
			return nil, err
		}
		if parent.Kind != node.Kind.ParentKind() {
			return nil, fmt.Errorf("node %d: parent %d is a %s", node.ID, parent.ID, parent.Kind)
		}
		node = parent
	}
	if node.Kind == model.KindForum {
		return node, nil
	}
	return nil, nil
}

// requireForum 获取版块节点，不存在或不是版块时返回 errUnknownForum
func requireForum(ctx context.Context, tree repository.ContentTree, forumID int64) (*model.Node, error) {
	node, err := tree.GetNode(ctx, forumID)
	if err != nil {
		return nil, err
	}
	if node == nil || node.Kind != model.KindForum {
		return nil, errUnknownForum
	}
	return node, nil
}

// walkAncestors 从直接父节点向上遍历到根，fn 返回 true 时停止
// 遇到环时终止
func walkAncestors(ctx context.Context, tree repository.ContentTree, id int64, fn func(*model.Node) (bool, error)) error {
	node, err := tree.GetNode(ctx, id)
	if err != nil || node == nil {
		return err
	}

	visited := map[int64]struct{}{node.ID: {}}
	for parentID := node.ParentID; parentID != 0; {
		if _, seen := visited[parentID]; seen {
			return nil
		}
		visited[parentID] = struct{}{}

		parent, err := tree.GetNode(ctx, parentID)
		if err != nil {
			return err
		}
		if parent == nil {
			return nil
		}
		stop, err := fn(parent)
		if err != nil || stop {
			return err
		}
		parentID = parent.ParentID
	}
	return nil
}

// Ancestors 祖先列表，直接父节点在前；根节点返回空列表
func Ancestors(ctx context.Context, tree repository.ContentTree, id int64) ([]*model.Node, error) {
	var out []*model.Node
	err := walkAncestors(ctx, tree, id, func(n *model.Node) (bool, error) {
		out = append(out, n)
		return false, nil
	})
	return out, err
}

// nodeIDs 提取 ID 列表
func nodeIDs(nodes []*model.Node) []int64 {
	ids := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

// newest 按 (dateline desc, id desc) 取最新节点
func newest(nodes []*model.Node) *model.Node {
	var best *model.Node
	for _, n := range nodes {
		if n.Newer(best) {
			best = n
		}
	}
	return best
}
