package model

// 版块属性的 meta key
const (
	MetaForumType       = "_forum_type"
	MetaForumStatus     = "_forum_status"
	MetaForumVisibility = "_forum_visibility"
)

// ForumType 版块类型
type ForumType string

const (
	ForumTypeForum    ForumType = "forum"
	ForumTypeCategory ForumType = "category" // 纯分组版块，不能直接发主题
)

// ForumStatus 版块开关状态
type ForumStatus string

const (
	ForumOpen   ForumStatus = "open"
	ForumClosed ForumStatus = "closed"
)

// Visibility 版块可见性
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilityHidden  Visibility = "hidden"
)

// Valid 是否为已知可见性
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityHidden:
		return true
	}
	return false
}

// ForumStatsDTO 版块统计（供展示层使用）
type ForumStatsDTO struct {
	Fid               int64  `json:"fid"`
	Title             string `json:"title"`
	Parent            int64  `json:"parent"`
	SubforumCount     int    `json:"subforum_count"`
	TopicCount        int    `json:"topic_count"`
	ReplyCount        int    `json:"reply_count"`
	VoiceCount        int    `json:"voice_count"`
	LastTopicID       int64  `json:"last_topic_id,omitempty"`
	LastTopicAuthorID int64  `json:"last_topic_author_id,omitempty"`
	LastReplyID       int64  `json:"last_reply_id,omitempty"`
	LastReplyAuthorID int64  `json:"last_reply_author_id,omitempty"`
	LastActive        int64  `json:"last_active,omitempty"`
	Closed            bool   `json:"closed"`
	Private           bool   `json:"private"`
	Category          bool   `json:"category"`
}

// ForumStatusDTO 版块状态（实时解析，不缓存）
type ForumStatusDTO struct {
	Fid        int64  `json:"fid"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Visibility string `json:"visibility"`
	Closed     bool   `json:"closed"`
	Open       bool   `json:"open"`
	Private    bool   `json:"private"`
	Category   bool   `json:"category"`
}

// ForumTreeNode 论坛树节点
type ForumTreeNode struct {
	ForumStatsDTO
	Children []*ForumTreeNode `json:"children,omitempty"`
}
