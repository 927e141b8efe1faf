package driver

import (
	handlershared "github.com/renthportal/renthportal-sub001/internal/http/handlers/shared"
	"github.com/renthportal/renthportal-sub001/internal/http/response"
	"github.com/renthportal/renthportal-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

// GetTaskBoard 今日任务看板
func (h *Handler) GetTaskBoard(c *gin.Context) {
	actor, ok := handlershared.CurrentSession(c)
	if !ok {
		return
	}
	items, err := h.DeliveryService.ListForDriver(actor.UserID)
	if err != nil {
		handlershared.RespondError(c, response.CodeInternal, "task fetch failed", err)
		return
	}
	response.Success(c, service.BuildDriverTaskBoard(h.today(), actor.UserID, items))
}

// GetTask 任务详情，仅限被分配的司机
func (h *Handler) GetTask(c *gin.Context) {
	actor, ok := handlershared.CurrentSession(c)
	if !ok {
		return
	}
	id, ok := handlershared.ParseUintParam(c.Param("id"))
	if !ok || id == 0 {
		handlershared.RespondError(c, response.CodeBadRequest, "task id invalid", nil)
		return
	}
	item, err := h.DeliveryService.GetItemForDriver(actor, id)
	if err != nil {
		handlershared.RespondServiceError(c, err, "task fetch failed")
		return
	}
	response.Success(c, item)
}

// StartTask 出发：PLANNED -> IN_TRANSIT
func (h *Handler) StartTask(c *gin.Context) {
	actor, ok := handlershared.CurrentSession(c)
	if !ok {
		return
	}
	id, dir, ok := h.bindTaskURI(c)
	if !ok {
		return
	}
	item, err := h.DeliveryService.AdvanceToInTransit(c.Request.Context(), actor, id, dir)
	if err != nil {
		handlershared.RespondServiceError(c, err, "start task failed")
		return
	}
	response.Success(c, item)
}

// GetCompletionRecord 只读完工记录
func (h *Handler) GetCompletionRecord(c *gin.Context) {
	actor, ok := handlershared.CurrentSession(c)
	if !ok {
		return
	}
	id, dir, ok := h.bindTaskURI(c)
	if !ok {
		return
	}
	item, err := h.DeliveryService.GetItemForDriver(actor, id)
	if err != nil {
		handlershared.RespondServiceError(c, err, "task fetch failed")
		return
	}
	record := item.Leg(dir.String()).Completion()
	if record == nil {
		response.NotFound(c, "completion record not found")
		return
	}
	response.Success(c, record)
}
