package v1

import (
	"forum_go/internal/model"
	"forum_go/internal/pkg/response"
	"forum_go/internal/pkg/util"
	"forum_go/internal/service"

	"github.com/gin-gonic/gin"
)

// ForumHandler Forum API Handler
type ForumHandler struct {
	svc   *service.ForumService
	cache *service.AggregateCache
}

// NewForumHandler 创建 ForumHandler
func NewForumHandler(svc *service.ForumService, cache *service.AggregateCache) *ForumHandler {
	return &ForumHandler{svc: svc, cache: cache}
}

// Tree GET /api/v1/forums/tree
func (h *ForumHandler) Tree(c *gin.Context) {
	tree, err := h.svc.Tree(c.Request.Context(), false)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, tree)
}

// Get GET /api/v1/forum/:fid
func (h *ForumHandler) Get(c *gin.Context) {
	fid, ok := forumID(c)
	if !ok {
		return
	}
	dto, err := h.svc.Stats(c.Request.Context(), fid)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, dto)
}

// Status GET /api/v1/forum/:fid/status
func (h *ForumHandler) Status(c *gin.Context) {
	fid, ok := forumID(c)
	if !ok {
		return
	}
	dto, err := h.svc.Status(c.Request.Context(), fid)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, dto)
}

// Subforums GET /api/v1/forum/:fid/subforums
func (h *ForumHandler) Subforums(c *gin.Context) {
	fid, ok := forumID(c)
	if !ok {
		return
	}
	list, err := h.svc.Subforums(c.Request.Context(), fid, false)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, list)
}

// Ancestors GET /api/v1/forum/:fid/ancestors
func (h *ForumHandler) Ancestors(c *gin.Context) {
	fid, ok := forumID(c)
	if !ok {
		return
	}
	list, err := h.svc.Ancestors(c.Request.Context(), fid)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, list)
}

// Parent GET /api/v1/forum/:fid/parent
func (h *ForumHandler) Parent(c *gin.Context) {
	fid, ok := forumID(c)
	if !ok {
		return
	}
	parent, err := h.svc.Parent(c.Request.Context(), fid)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, parent)
}

// Metric GET /api/v1/forum/:fid/metric/:metric
func (h *ForumHandler) Metric(c *gin.Context) {
	fid, ok := forumID(c)
	if !ok {
		return
	}
	m, ok := model.ParseMetric(c.Param("metric"))
	if !ok {
		response.BadRequest(c, "unknown metric")
		return
	}

	reading, err := h.cache.GetOrCompute(c.Request.Context(), fid, m)
	if err != nil && !service.IsPersistError(err) {
		response.Fail(c, err)
		return
	}
	response.Success(c, reading)
}

// forumID 解析 :fid，失败时已写入响应
func forumID(c *gin.Context) (int64, bool) {
	fid, err := util.ParseID(c.Param("fid"))
	if err != nil {
		response.BadRequest(c, "invalid fid")
		return 0, false
	}
	return fid, true
}
