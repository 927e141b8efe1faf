package public

import (
	"strings"

	handlershared "github.com/renthportal/renthportal-sub001/internal/http/handlers/shared"
	"github.com/renthportal/renthportal-sub001/internal/http/response"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 续期请求，token 为空时读取 Authorization 头
type RefreshRequest struct {
	Token string `json:"token"`
}

// MeResponse 当前账号
type MeResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// Login 账号密码登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlershared.RespondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	pair, err := h.AuthService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handlershared.RequestLog(c).Infow("auth_login_rejected", "username", strings.TrimSpace(req.Username), "client_ip", c.ClientIP())
		handlershared.RespondServiceError(c, err, "login failed")
		return
	}
	handlershared.RequestLog(c).Infow("auth_login_success", "user_id", pair.User.ID, "role", pair.User.Role)
	response.Success(c, pair)
}

// Refresh 续期令牌
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	_ = c.ShouldBindJSON(&req)
	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = bearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		handlershared.RespondError(c, response.CodeUnauthorized, "token missing", nil)
		return
	}
	pair, err := h.AuthService.Refresh(c.Request.Context(), token)
	if err != nil {
		handlershared.RespondServiceError(c, err, "refresh failed")
		return
	}
	response.Success(c, pair)
}

// Me 当前账号信息
func (h *Handler) Me(c *gin.Context) {
	session, ok := handlershared.CurrentSession(c)
	if !ok {
		return
	}
	user, err := h.AuthService.GetUser(session.UserID)
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "user fetch failed", err)
		return
	}
	if user == nil {
		response.Unauthorized(c, "user not found")
		return
	}
	response.Success(c, MeResponse{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name(),
		Role:     user.Role,
	})
}

// Logout 注销，所有已签发令牌失效
func (h *Handler) Logout(c *gin.Context) {
	session, ok := handlershared.CurrentSession(c)
	if !ok {
		return
	}
	if err := h.AuthService.Logout(c.Request.Context(), session.UserID); err != nil {
		handlershared.RespondError(c, response.CodeInternal, "logout failed", err)
		return
	}
	response.Success(c, nil)
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
