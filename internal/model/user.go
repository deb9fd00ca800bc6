package model

// User 用户模型（节点作者）
type User struct {
	Uid       int64  `db:"uid"`
	Username  string `db:"username"`
	Password  string `db:"password"`
	Email     string `db:"email"`
	Role      int    `db:"role"`      // 0: 普通用户, 1: 管理员
	Status    int    `db:"status"`    // 0: 正常, 1: 禁用
	Dateline  int64  `db:"dateline"`  // 注册时间
	Lastvisit int64  `db:"lastvisit"` // 最后访问时间
}

// 用户角色
const (
	RoleMember = 0
	RoleAdmin  = 1
)

// UserDTO 用户数据传输对象
type UserDTO struct {
	Uid      int64  `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     int    `json:"role"`
	Status   int    `json:"status"`
	Dateline int64  `json:"dateline"`
}

// ToDTO 转换为 DTO
func (u *User) ToDTO() *UserDTO {
	return &UserDTO{
		Uid:      u.Uid,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		Status:   u.Status,
		Dateline: u.Dateline,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6,max=32"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6,max=32"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}
