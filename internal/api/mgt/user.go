package mgt

import (
	"forum_go/internal/middleware"
	"forum_go/internal/pkg/response"
	"forum_go/internal/service"

	"github.com/gin-gonic/gin"
)

// UserMgtHandler 当前登录用户
type UserMgtHandler struct {
	svc *service.UserService
}

// NewUserMgtHandler 创建用户管理处理器
func NewUserMgtHandler(svc *service.UserService) *UserMgtHandler {
	return &UserMgtHandler{svc: svc}
}

// GetProfile GET /api/mgt/user/profile
func (h *UserMgtHandler) GetProfile(c *gin.Context) {
	uid := middleware.GetUID(c)
	if uid <= 0 {
		response.Unauthorized(c, "not logged in")
		return
	}

	profile, err := h.svc.GetUserByID(c.Request.Context(), uid)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, profile)
}
