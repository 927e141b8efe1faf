package admin

import (
	"strconv"
	"strings"
	"time"

	handlershared "github.com/renthportal/renthportal-sub001/internal/http/handlers/shared"
	"github.com/renthportal/renthportal-sub001/internal/http/response"
	"github.com/renthportal/renthportal-sub001/internal/repository"
	"github.com/renthportal/renthportal-sub001/internal/service"

	"github.com/gin-gonic/gin"
)

// AssignDeliveryRequest 安排送达请求
type AssignDeliveryRequest struct {
	DriverID    uint   `json:"driver_id" binding:"required"`
	PlannedDate string `json:"planned_date" binding:"required"`
	AssetID     uint   `json:"asset_id" binding:"required"`
}

// PlanReturnRequest 安排回收请求
type PlanReturnRequest struct {
	DriverID    uint   `json:"driver_id" binding:"required"`
	PlannedDate string `json:"planned_date" binding:"required"`
}

// GetDeliveryItems 交付行列表
func (h *Handler) GetDeliveryItems(c *gin.Context) {
	filter, ok := h.parseDeliveryItemFilter(c)
	if !ok {
		return
	}
	items, total, err := h.DeliveryService.ListForAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "delivery item fetch failed", err)
		return
	}
	response.SuccessWithPage(c, items, response.NewPagination(filter.Page, filter.PageSize, total))
}

// GetDeliveryItem 交付行详情
func (h *Handler) GetDeliveryItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	item, err := h.DeliveryService.GetItem(id)
	if err != nil {
		respondServiceError(c, err, "delivery item fetch failed")
		return
	}
	response.Success(c, item)
}

// AssignDelivery 安排送达（司机、计划日期、设备）
func (h *Handler) AssignDelivery(c *gin.Context) {
	actor, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req AssignDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	planned, err := h.parsePlannedDate(req.PlannedDate)
	if err != nil {
		respondError(c, response.CodeBadRequest, "planned date invalid", nil)
		return
	}
	item, err := h.DeliveryService.AssignDelivery(c.Request.Context(), actor, service.AssignDeliveryInput{
		ItemID:      id,
		DriverID:    req.DriverID,
		PlannedDate: planned,
		AssetID:     req.AssetID,
	})
	if err != nil {
		respondServiceError(c, err, "assign delivery failed")
		return
	}
	response.Success(c, item)
}

// PlanReturn 安排回收
func (h *Handler) PlanReturn(c *gin.Context) {
	actor, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req PlanReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	planned, err := h.parsePlannedDate(req.PlannedDate)
	if err != nil {
		respondError(c, response.CodeBadRequest, "planned date invalid", nil)
		return
	}
	item, err := h.DeliveryService.PlanReturn(c.Request.Context(), actor, service.PlanReturnInput{
		ItemID:      id,
		DriverID:    req.DriverID,
		PlannedDate: planned,
	})
	if err != nil {
		respondServiceError(c, err, "plan return failed")
		return
	}
	response.Success(c, item)
}

// ExportCompletions 导出完工记录 XLSX
func (h *Handler) ExportCompletions(c *gin.Context) {
	filter, ok := h.parseDeliveryItemFilter(c)
	if !ok {
		return
	}
	buf, err := h.ExportService.ExportXLSX(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "export failed", err)
		return
	}
	filename := h.ExportService.ExportFilename(time.Now())
	requestLog(c).Infow("admin_completions_exported", "filename", filename, "bytes", buf.Len())
	response.Attachment(c, filename, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf)
}

func (h *Handler) parseDeliveryItemFilter(c *gin.Context) (repository.DeliveryItemListFilter, bool) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	rentalID, ok := handlershared.ParseUintParam(c.Query("rental_id"))
	if !ok {
		respondError(c, response.CodeBadRequest, "rental_id invalid", nil)
		return repository.DeliveryItemListFilter{}, false
	}
	driverID, ok := handlershared.ParseUintParam(c.Query("driver_id"))
	if !ok {
		respondError(c, response.CodeBadRequest, "driver_id invalid", nil)
		return repository.DeliveryItemListFilter{}, false
	}
	loc := h.Config.Delivery.Location()
	from, err := handlershared.ParseTimeNullable(c.Query("completed_from"), loc)
	if err != nil {
		respondError(c, response.CodeBadRequest, "completed_from invalid", nil)
		return repository.DeliveryItemListFilter{}, false
	}
	to, err := handlershared.ParseTimeNullable(c.Query("completed_to"), loc)
	if err != nil {
		respondError(c, response.CodeBadRequest, "completed_to invalid", nil)
		return repository.DeliveryItemListFilter{}, false
	}
	return repository.DeliveryItemListFilter{
		Page:           page,
		PageSize:       pageSize,
		RentalID:       rentalID,
		DriverID:       driverID,
		DeliveryStatus: strings.ToUpper(strings.TrimSpace(c.Query("delivery_status"))),
		ReturnStatus:   strings.ToUpper(strings.TrimSpace(c.Query("return_status"))),
		CompletedFrom:  from,
		CompletedTo:    to,
	}, true
}

func (h *Handler) parsePlannedDate(raw string) (time.Time, error) {
	t, err := handlershared.ParseTimeNullable(raw, h.Config.Delivery.Location())
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, service.ErrInvalidPlannedDate
	}
	return *t, nil
}
