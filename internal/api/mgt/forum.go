package mgt

import (
	"forum_go/internal/middleware"
	"forum_go/internal/model"
	"forum_go/internal/pkg/response"
	"forum_go/internal/service"

	"github.com/gin-gonic/gin"
)

// ForumMgtHandler 版块管理
type ForumMgtHandler struct {
	content *service.ContentService
	forums  *service.ForumService
}

// NewForumMgtHandler 创建 ForumMgtHandler
func NewForumMgtHandler(content *service.ContentService, forums *service.ForumService) *ForumMgtHandler {
	return &ForumMgtHandler{content: content, forums: forums}
}

// Create POST /api/mgt/forum
func (h *ForumMgtHandler) Create(c *gin.Context) {
	var req model.CreateForumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	forum, err := h.content.CreateForum(c.Request.Context(), middleware.GetUID(c), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, forum.ToDTO())
}

// Action PUT /api/mgt/forum/:fid/:action
// action: close | open | categorize | normalize | privatize | publicize | hide
func (h *ForumMgtHandler) Action(c *gin.Context) {
	fid, ok := forumParam(c)
	if !ok {
		return
	}

	action := service.ForumAction(c.Param("action"))
	if err := h.content.ApplyForumAction(c.Request.Context(), fid, action); err != nil {
		response.Fail(c, err)
		return
	}

	st, err := h.forums.Status(c.Request.Context(), fid)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, st)
}

// Tree GET /api/mgt/forums/tree
// 管理端包含私有与隐藏版块
func (h *ForumMgtHandler) Tree(c *gin.Context) {
	tree, err := h.forums.Tree(c.Request.Context(), true)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, tree)
}

// Subforums GET /api/mgt/forum/:fid/subforums
func (h *ForumMgtHandler) Subforums(c *gin.Context) {
	fid, ok := forumParam(c)
	if !ok {
		return
	}
	list, err := h.forums.Subforums(c.Request.Context(), fid, true)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, list)
}
