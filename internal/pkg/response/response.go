package response

import (
	"net/http"

	"forum_go/internal/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// Response Standard API Response
type Response struct {
	Code int         `json:"code"`
	Data interface{} `json:"data,omitempty"`
	Msg  string      `json:"msg,omitempty"`
}

// Success Success response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: apperr.CodeSuccess,
		Data: data,
		Msg:  "success",
	})
}

// SuccessWithMsg Success with message
func SuccessWithMsg(c *gin.Context, data interface{}, msg string) {
	c.JSON(http.StatusOK, Response{
		Code: apperr.CodeSuccess,
		Data: data,
		Msg:  msg,
	})
}

// Fail Fail response with error
func Fail(c *gin.Context, err error) {
	ae := apperr.WrapError(err, apperr.CodeInternalError)
	c.JSON(httpStatus(ae.Code), Response{
		Code: ae.Code,
		Msg:  ae.Message,
	})
}

// httpStatus 业务码对应的 HTTP 状态
func httpStatus(code int) int {
	switch code {
	case apperr.CodeBadRequest, apperr.CodeInvalidParent, apperr.CodeInvalidStatus:
		return http.StatusBadRequest
	case apperr.CodeUnauthorized, apperr.CodeBadCredentials:
		return http.StatusUnauthorized
	case apperr.CodeForbidden, apperr.CodeForumClosed, apperr.CodeForumCategory:
		return http.StatusForbidden
	case apperr.CodeNotFound, apperr.CodeNodeNotFound:
		return http.StatusNotFound
	case apperr.CodeUserExists, apperr.CodeNotEmpty:
		return http.StatusConflict
	case apperr.CodeInternalError, apperr.CodeDatabaseError, apperr.CodeCacheError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// BadRequest Bad request response
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{
		Code: apperr.CodeBadRequest,
		Msg:  msg,
	})
}

// Unauthorized Unauthorized response
func Unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, Response{
		Code: apperr.CodeUnauthorized,
		Msg:  msg,
	})
}

// NotFound Not found response
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, Response{
		Code: apperr.CodeNotFound,
		Msg:  msg,
	})
}
