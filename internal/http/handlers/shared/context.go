package shared

import (
	"github.com/renthportal/renthportal-sub001/internal/http/response"
	"github.com/renthportal/renthportal-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

// CurrentSession 读取鉴权中间件写入的调用方，缺失时直接返回 401。
func CurrentSession(c *gin.Context) (service.Session, bool) {
	session, ok := service.SessionFromContext(c.Request.Context())
	if !ok || session.UserID == 0 {
		RespondError(c, response.CodeUnauthorized, "unauthorized", nil)
		return service.Session{}, false
	}
	return session, true
}
