package mgt

import (
	"forum_go/internal/model"
	"forum_go/internal/pkg/response"
	"forum_go/internal/pkg/util"
	"forum_go/internal/service"

	"github.com/gin-gonic/gin"
)

// CacheHandler 聚合缓存管理：查看、失效、重算
type CacheHandler struct {
	cache   *service.AggregateCache
	recount *service.RecountEngine
	meta    *service.MetaService
}

// NewCacheHandler 创建CacheHandler
func NewCacheHandler(cache *service.AggregateCache, recount *service.RecountEngine, meta *service.MetaService) *CacheHandler {
	return &CacheHandler{cache: cache, recount: recount, meta: meta}
}

// SubforumCountRequest 显式设置子版块数
type SubforumCountRequest struct {
	Count int `json:"count" binding:"min=0"`
}

// Snapshot GET /api/mgt/aggregate/:fid
// 只返回已存储的值，不触发计算
func (h *CacheHandler) Snapshot(c *gin.Context) {
	fid, ok := forumParam(c)
	if !ok {
		return
	}
	agg, err := h.cache.Snapshot(c.Request.Context(), fid)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, agg.ToDTO(fid))
}

// Invalidate DELETE /api/mgt/aggregate/:fid[?metric=topic_count]
func (h *CacheHandler) Invalidate(c *gin.Context) {
	fid, ok := forumParam(c)
	if !ok {
		return
	}

	var metrics []model.Metric
	for _, name := range c.QueryArray("metric") {
		m, ok := model.ParseMetric(name)
		if !ok {
			response.BadRequest(c, "unknown metric "+name)
			return
		}
		metrics = append(metrics, m)
	}

	if err := h.cache.Invalidate(c.Request.Context(), fid, metrics...); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMsg(c, nil, "aggregate invalidated")
}

// SetSubforumCount PUT /api/mgt/aggregate/:fid
func (h *CacheHandler) SetSubforumCount(c *gin.Context) {
	fid, ok := forumParam(c)
	if !ok {
		return
	}
	var req SubforumCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.cache.SetSubforumCount(c.Request.Context(), fid, req.Count); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, nil)
}

// Recount POST /api/mgt/forum/:fid/recount[?tree=1]
func (h *CacheHandler) Recount(c *gin.Context) {
	fid, ok := forumParam(c)
	if !ok {
		return
	}

	if util.ParseBool(c.Query("tree")) {
		report, err := h.recount.RecountTree(c.Request.Context(), fid)
		if err != nil {
			response.Fail(c, err)
			return
		}
		response.Success(c, report)
		return
	}

	agg, err := h.recount.RecountForum(c.Request.Context(), fid)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, agg.ToDTO(fid))
}

// RecountAll POST /api/mgt/recount
func (h *CacheHandler) RecountAll(c *gin.Context) {
	report, err := h.recount.RecountAll(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, report)
}

// Flush POST /api/mgt/cache/flush
// 只清本地 L1，存储中的聚合值不受影响
func (h *CacheHandler) Flush(c *gin.Context) {
	if err := h.meta.Flush(); err != nil {
		response.Fail(c, err)
		return
	}
	response.SuccessWithMsg(c, nil, "cache flushed")
}

func forumParam(c *gin.Context) (int64, bool) {
	fid, err := util.ParseID(c.Param("fid"))
	if err != nil {
		response.BadRequest(c, "invalid fid")
		return 0, false
	}
	return fid, true
}
