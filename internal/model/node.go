package model

import (
	"fmt"
	"time"
)

// Kind 节点类型（forum / topic / reply）
type Kind uint8

const (
	KindUnknown Kind = iota
	KindForum
	KindTopic
	KindReply
)

// String 返回存储用的类型字符串
func (k Kind) String() string {
	switch k {
	case KindForum:
		return "forum"
	case KindTopic:
		return "topic"
	case KindReply:
		return "reply"
	default:
		return "unknown"
	}
}

// ParseKind 解析存储中的类型字符串，仅在仓库边界调用一次
func ParseKind(s string) (Kind, error) {
	switch s {
	case "forum":
		return KindForum, nil
	case "topic":
		return KindTopic, nil
	case "reply":
		return KindReply, nil
	default:
		return KindUnknown, fmt.Errorf("unknown node type %q", s)
	}
}

// ParentKind 返回该类型合法父节点的类型
// forum 的父节点可以是 forum 或根（0）
func (k Kind) ParentKind() Kind {
	switch k {
	case KindForum, KindTopic:
		return KindForum
	case KindReply:
		return KindTopic
	default:
		return KindUnknown
	}
}

// PublishState 发布状态
type PublishState string

const (
	StatePublish PublishState = "publish"
	StateDraft   PublishState = "draft"
	StatePending PublishState = "pending"
	StateTrash   PublishState = "trash"
)

// Valid 是否为已知状态
func (s PublishState) Valid() bool {
	switch s {
	case StatePublish, StateDraft, StatePending, StateTrash:
		return true
	}
	return false
}

// Node 内容树节点
type Node struct {
	ID       int64        `json:"id"`
	Kind     Kind         `json:"-"`
	ParentID int64        `json:"parent_id"` // 0 表示根
	AuthorID int64        `json:"author_id"`
	Title    string       `json:"title"`
	Dateline int64        `json:"dateline"` // 创建时间（Unix 秒）
	Status   PublishState `json:"status"`
}

// CreatedAt 创建时间
func (n *Node) CreatedAt() time.Time {
	return time.Unix(n.Dateline, 0)
}

// IsRoot 是否为根节点
func (n *Node) IsRoot() bool {
	return n.ParentID == 0
}

// Published 是否已发布
func (n *Node) Published() bool {
	return n.Status == StatePublish
}

// Newer 按 (dateline desc, id desc) 排序时 n 是否排在 o 前面
func (n *Node) Newer(o *Node) bool {
	if o == nil {
		return true
	}
	if n.Dateline != o.Dateline {
		return n.Dateline > o.Dateline
	}
	return n.ID > o.ID
}

// NodeDTO 节点数据传输对象
type NodeDTO struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	ParentID int64  `json:"parent_id"`
	AuthorID int64  `json:"author_id"`
	Title    string `json:"title"`
	Dateline int64  `json:"dateline"`
	Status   string `json:"status"`
}

// ToDTO 转换为 DTO
func (n *Node) ToDTO() *NodeDTO {
	return &NodeDTO{
		ID:       n.ID,
		Type:     n.Kind.String(),
		ParentID: n.ParentID,
		AuthorID: n.AuthorID,
		Title:    n.Title,
		Dateline: n.Dateline,
		Status:   string(n.Status),
	}
}

// CreateForumRequest 创建版块请求
type CreateForumRequest struct {
	ParentID   int64      `json:"parent_id" binding:"min=0"`
	Title      string     `json:"title" binding:"required,max=255"`
	Type       ForumType  `json:"type" binding:"omitempty,oneof=forum category"`
	Visibility Visibility `json:"visibility" binding:"omitempty,oneof=public private hidden"`
}

// CreatePostRequest 创建主题/回复请求
// Dateline 为 0 时使用当前时间，导入数据时可指定
type CreatePostRequest struct {
	ParentID int64  `json:"parent_id" binding:"required,min=1"`
	Title    string `json:"title" binding:"required,max=255"`
	Dateline int64  `json:"dateline" binding:"min=0"`
}

// MoveRequest 移动节点请求
type MoveRequest struct {
	ParentID int64 `json:"parent_id" binding:"min=0"`
}

// PublishStateRequest 修改发布状态请求
type PublishStateRequest struct {
	Status PublishState `json:"status" binding:"required,oneof=publish draft pending trash"`
}
