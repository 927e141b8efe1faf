package admin

import (
	"strconv"
	"strings"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/http/response"
	"github.com/renthportal/renthportal-sub001/internal/repository"

	"github.com/gin-gonic/gin"
)

// UpdateAssetStatusRequest 手动调整设备状态
type UpdateAssetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// DriverOption 司机下拉项
type DriverOption struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// GetAssets 设备列表
func (h *Handler) GetAssets(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	assets, total, err := h.AssetService.List(repository.AssetListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "asset fetch failed", err)
		return
	}
	response.SuccessWithPage(c, assets, response.NewPagination(page, pageSize, total))
}

// UpdateAssetStatus 手动调整设备状态（如送修）
func (h *Handler) UpdateAssetStatus(c *gin.Context) {
	actor, ok := currentSession(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateAssetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}
	asset, err := h.AssetService.ChangeStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		respondServiceError(c, err, "asset status update failed")
		return
	}
	response.Success(c, asset)
}

// GetDrivers 可分配的司机
func (h *Handler) GetDrivers(c *gin.Context) {
	users, err := h.UserRepo.ListByRole(constants.RoleDriver)
	if err != nil {
		respondError(c, response.CodeInternal, "driver fetch failed", err)
		return
	}
	options := make([]DriverOption, 0, len(users))
	for _, user := range users {
		options = append(options, DriverOption{ID: user.ID, Name: user.Name(), Status: user.Status})
	}
	response.Success(c, options)
}
