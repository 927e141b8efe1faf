package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/renthportal/renthportal-sub001/internal/http/handlers/shared"
	"github.com/renthportal/renthportal-sub001/internal/http/response"
	"github.com/renthportal/renthportal-sub001/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetAuditLogs 审计日志列表
func (h *Handler) GetAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	actorID, ok := handlershared.ParseUintParam(c.Query("actor_id"))
	if !ok {
		respondError(c, response.CodeBadRequest, "actor_id invalid", nil)
		return
	}
	targetID, ok := handlershared.ParseUintParam(c.Query("target_id"))
	if !ok {
		respondError(c, response.CodeBadRequest, "target_id invalid", nil)
		return
	}
	loc := h.Config.Delivery.Location()
	from, err := handlershared.ParseTimeNullable(c.Query("created_from"), loc)
	if err != nil {
		respondError(c, response.CodeBadRequest, "created_from invalid", nil)
		return
	}
	to, err := handlershared.ParseTimeNullable(c.Query("created_to"), loc)
	if err != nil {
		respondError(c, response.CodeBadRequest, "created_to invalid", nil)
		return
	}

	logs, total, err := h.AuditService.ListForAdmin(repository.AuditLogListFilter{
		Page:        page,
		PageSize:    pageSize,
		ActorID:     actorID,
		ActionCode:  strings.ToUpper(strings.TrimSpace(c.Query("action_code"))),
		TargetType:  strings.TrimSpace(c.Query("target_type")),
		TargetID:    targetID,
		CreatedFrom: from,
		CreatedTo:   to,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "audit log fetch failed", err)
		return
	}
	response.SuccessWithPage(c, logs, response.NewPagination(page, pageSize, total))
}
