package admin

import (
	handlershared "github.com/renthportal/renthportal-sub001/internal/http/handlers/shared"
	"github.com/renthportal/renthportal-sub001/internal/http/response"
	"github.com/renthportal/renthportal-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

func currentSession(c *gin.Context) (service.Session, bool) {
	return handlershared.CurrentSession(c)
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, ok := handlershared.ParseUintParam(c.Param(name))
	if !ok || id == 0 {
		respondError(c, response.CodeBadRequest, name+" invalid", nil)
		return 0, false
	}
	return id, true
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}
