package driver

import (
	"errors"
	"strings"
	"time"

	handlershared "github.com/renthportal/renthportal-sub001/internal/http/handlers/shared"
	"github.com/renthportal/renthportal-sub001/internal/http/response"
	"github.com/renthportal/renthportal-sub001/internal/provider"
	"github.com/renthportal/renthportal-sub001/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Handler 司机端接口处理器
type Handler struct {
	*provider.Container
	now func() time.Time
}

// New 创建司机端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c, now: time.Now}
}

// TaskURI 任务路径参数
type TaskURI struct {
	ID        uint   `uri:"id" binding:"required"`
	Direction string `uri:"direction" binding:"required,direction"`
}

func (h *Handler) bindTaskURI(c *gin.Context) (uint, service.Direction, bool) {
	var uri TaskURI
	if err := c.ShouldBindUri(&uri); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "direction" {
			handlershared.RespondServiceError(c, service.ErrInvalidDirection, "")
			return 0, "", false
		}
		handlershared.RespondError(c, response.CodeBadRequest, "task id invalid", nil)
		return 0, "", false
	}
	dir, err := service.ParseDirection(strings.TrimSpace(uri.Direction))
	if err != nil {
		handlershared.RespondServiceError(c, err, "")
		return 0, "", false
	}
	return uri.ID, dir, true
}

func (h *Handler) today() time.Time {
	return h.now().In(h.Config.Delivery.Location())
}
