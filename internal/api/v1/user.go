package v1

import (
	"forum_go/internal/pkg/response"
	"forum_go/internal/pkg/util"
	"forum_go/internal/service"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户公开API（节点作者信息）
type UserHandler struct {
	svc *service.UserService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// GetUser GET /api/v1/user/:uid
func (h *UserHandler) GetUser(c *gin.Context) {
	uid, err := util.ParseID(c.Param("uid"))
	if err != nil {
		response.BadRequest(c, "invalid uid")
		return
	}

	user, err := h.svc.GetUserByID(c.Request.Context(), uid)
	if err != nil {
		response.Fail(c, err)
		return
	}
	// 公开接口不返回邮箱
	public := *user
	public.Email = ""
	response.Success(c, &public)
}
