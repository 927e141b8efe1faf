package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/renthportal/renthportal-sub001/internal/http/handlers/shared"
	"github.com/renthportal/renthportal-sub001/internal/http/response"
	"github.com/renthportal/renthportal-sub001/internal/repository"

	"github.com/gin-gonic/gin"
)

// GetAssetSyncJobs 资产状态同步任务（outbox）列表
func (h *Handler) GetAssetSyncJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	itemID, ok := handlershared.ParseUintParam(c.Query("item_id"))
	if !ok {
		respondError(c, response.CodeBadRequest, "item_id invalid", nil)
		return
	}

	jobs, total, err := h.AssetSyncService.ListForAdmin(repository.AssetSyncJobListFilter{
		Page:     page,
		PageSize: pageSize,
		State:    strings.ToLower(strings.TrimSpace(c.Query("state"))),
		ItemID:   itemID,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "asset sync job fetch failed", err)
		return
	}
	response.SuccessWithPage(c, jobs, response.NewPagination(page, pageSize, total))
}

// RetryAssetSyncJob 手动重试失败的同步任务
func (h *Handler) RetryAssetSyncJob(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.AssetSyncService.Retry(c.Request.Context(), id); err != nil {
		respondServiceError(c, err, "asset sync retry failed")
		return
	}
	requestLog(c).Infow("admin_asset_sync_job_retried", "job_id", id)
	response.Success(c, gin.H{"id": id})
}
