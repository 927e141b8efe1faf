package public

import "github.com/renthportal/renthportal-sub001/internal/provider"

// Handler 登录与会话接口处理器入口
// 说明：登录、续期无需鉴权，/me 与登出需携带令牌。
type Handler struct {
	*provider.Container
}

// New 创建处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
