package mgt

import (
	"forum_go/internal/middleware"
	"forum_go/internal/model"
	"forum_go/internal/pkg/response"
	"forum_go/internal/pkg/util"
	"forum_go/internal/service"

	"github.com/gin-gonic/gin"
)

// ContentHandler 主题、回复与节点操作
type ContentHandler struct {
	svc *service.ContentService
}

// NewContentHandler 创建 ContentHandler
func NewContentHandler(svc *service.ContentService) *ContentHandler {
	return &ContentHandler{svc: svc}
}

// CreateTopic POST /api/mgt/topic
func (h *ContentHandler) CreateTopic(c *gin.Context) {
	var req model.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	topic, err := h.svc.CreateTopic(c.Request.Context(), middleware.GetUID(c), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, topic.ToDTO())
}

// CreateReply POST /api/mgt/reply
func (h *ContentHandler) CreateReply(c *gin.Context) {
	var req model.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	reply, err := h.svc.CreateReply(c.Request.Context(), middleware.GetUID(c), &req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, reply.ToDTO())
}

// Delete DELETE /api/mgt/node/:id
func (h *ContentHandler) Delete(c *gin.Context) {
	id, ok := nodeID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, nil)
}

// Move PUT /api/mgt/node/:id/move
func (h *ContentHandler) Move(c *gin.Context) {
	id, ok := nodeID(c)
	if !ok {
		return
	}
	var req model.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.Move(c.Request.Context(), id, req.ParentID); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, nil)
}

// SetStatus PUT /api/mgt/node/:id/status
func (h *ContentHandler) SetStatus(c *gin.Context) {
	id, ok := nodeID(c)
	if !ok {
		return
	}
	var req model.PublishStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.SetPublishState(c.Request.Context(), id, req.Status); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, nil)
}

func nodeID(c *gin.Context) (int64, bool) {
	id, err := util.ParseID(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}
