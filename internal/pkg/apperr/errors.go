package apperr

import "errors"

// Business Error Codes
const (
	CodeSuccess        = 0
	CodeBadRequest     = 400
	CodeUnauthorized   = 401
	CodeForbidden      = 403
	CodeNotFound       = 404
	CodeInternalError  = 500
	CodeDatabaseError  = 1001
	CodeCacheError     = 1002
	CodeNodeNotFound   = 2001
	CodeInvalidParent  = 2002
	CodeForumClosed    = 2003
	CodeForumCategory  = 2004
	CodeInvalidStatus  = 2005
	CodeNotEmpty       = 2006
	CodeUserExists     = 3001
	CodeBadCredentials = 3002
)

// Business Errors
var (
	ErrNodeNotFound   = errors.New("node not found")
	ErrInvalidParent  = errors.New("invalid parent node")
	ErrForumClosed    = errors.New("forum is closed")
	ErrForumCategory  = errors.New("forum is a category")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrNotEmpty       = errors.New("node has children")
	ErrInvalidParams  = errors.New("invalid parameters")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrUserExists     = errors.New("username already taken")
	ErrUserNotFound   = errors.New("user not found")
	ErrBadCredentials = errors.New("invalid username or password")

	// ErrCachePersist 聚合值已算出但写回存储失败；返回值仍然可用
	ErrCachePersist = errors.New("aggregate cache persist failed")
)

// AppError Application Error with code and message
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

// NewAppError Create new application error
func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// codeOf 业务错误到错误码的映射
var codeOf = map[error]int{
	ErrNodeNotFound:   CodeNodeNotFound,
	ErrInvalidParent:  CodeInvalidParent,
	ErrForumClosed:    CodeForumClosed,
	ErrForumCategory:  CodeForumCategory,
	ErrInvalidStatus:  CodeInvalidStatus,
	ErrNotEmpty:       CodeNotEmpty,
	ErrInvalidParams:  CodeBadRequest,
	ErrUnauthorized:   CodeUnauthorized,
	ErrForbidden:      CodeForbidden,
	ErrUserExists:     CodeUserExists,
	ErrUserNotFound:   CodeNotFound,
	ErrBadCredentials: CodeBadCredentials,
	ErrCachePersist:   CodeCacheError,
}

// WrapError Wrap error with code
// 已知业务错误（含 %w 包装）使用对应错误码，其余使用 code
func WrapError(err error, code int) *AppError {
	if err == nil {
		return nil
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	for target, c := range codeOf {
		if errors.Is(err, target) {
			return &AppError{Code: c, Message: err.Error()}
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
	}
}
