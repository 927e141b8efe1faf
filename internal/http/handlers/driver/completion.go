package driver

import (
	"errors"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	handlershared "github.com/renthportal/renthportal-sub001/internal/http/handlers/shared"
	"github.com/renthportal/renthportal-sub001/internal/http/response"
	"github.com/renthportal/renthportal-sub001/internal/service"
	"github.com/renthportal/renthportal-sub001/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// CompletionForm 完工表单（multipart）
type CompletionForm struct {
	HourMeter      string   `form:"hour_meter"`
	FuelLevel      string   `form:"fuel_level"`
	PersonName     string   `form:"person_name"`
	Notes          string   `form:"notes"`
	Conditions     []string `form:"conditions" binding:"omitempty,dive,condition_tag"`
	ConditionNotes string   `form:"condition_notes"`
	Signature      string   `form:"signature"`
	GPSLat         string   `form:"gps_lat"`
	GPSLng         string   `form:"gps_lng"`
}

// CompleteTask 提交完工表单
func (h *Handler) CompleteTask(c *gin.Context) {
	actor, ok := handlershared.CurrentSession(c)
	if !ok {
		return
	}
	id, dir, ok := h.bindTaskURI(c)
	if !ok {
		return
	}
	var form CompletionForm
	if err := c.ShouldBind(&form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			handlershared.RespondServiceError(c, service.ErrUnknownConditionTag, "")
			return
		}
		handlershared.RespondError(c, response.CodeBadRequest, "bad request", nil)
		return
	}

	sub := service.FormSubmission{
		ItemID:         id,
		Direction:      dir,
		HourMeter:      form.HourMeter,
		PersonName:     form.PersonName,
		Notes:          form.Notes,
		Conditions:     form.Conditions,
		ConditionNotes: form.ConditionNotes,
		GPS:            parseGPS(form.GPSLat, form.GPSLng),
	}
	if raw := strings.TrimSpace(form.FuelLevel); raw != "" {
		fuel, err := strconv.Atoi(raw)
		if err != nil {
			handlershared.RespondError(c, response.CodeBadRequest, "fuel level invalid", nil)
			return
		}
		sub.FuelLevel = &fuel
	}

	maxSize := h.Config.Upload.MaxSize
	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		files := make([]*multipart.FileHeader, 0, len(mf.File["photos"])+len(mf.File["photos[]"]))
		files = append(files, mf.File["photos"]...)
		files = append(files, mf.File["photos[]"]...)
		for _, fh := range files {
			data, err := readFormFile(fh, maxSize)
			if err != nil {
				handlershared.RespondError(c, response.CodeBadRequest, "photo read failed", err)
				return
			}
			sub.Photos = append(sub.Photos, service.PhotoUpload{Filename: fh.Filename, Data: data})
		}
		if sigFiles := mf.File["signature"]; len(sigFiles) > 0 {
			data, err := readFormFile(sigFiles[0], maxSize)
			if err != nil {
				handlershared.RespondError(c, response.CodeBadRequest, "signature read failed", err)
				return
			}
			sub.Signature = data
		}
	}
	if len(sub.Signature) == 0 && strings.TrimSpace(form.Signature) != "" {
		data, err := storage.DecodeDataURL(form.Signature)
		if err != nil {
			handlershared.RespondServiceError(c, service.ErrInvalidSignature, "")
			return
		}
		sub.Signature = data
	}

	result, err := h.CompletionFormService.Submit(c.Request.Context(), actor, sub)
	if err != nil {
		handlershared.RespondServiceError(c, err, "completion failed")
		return
	}
	if result.SideEffectErr != nil {
		handlershared.RequestLog(c).Warnw("driver_completion_asset_sync_pending",
			"item_id", id,
			"direction", dir,
			"error", result.SideEffectErr,
		)
		response.SuccessWithMsg(c, "completed, asset status will be synced later", result)
		return
	}
	response.Success(c, result)
}

func readFormFile(fh *multipart.FileHeader, maxSize int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if maxSize <= 0 {
		return io.ReadAll(f)
	}
	// 多读一个字节，超限交给图片检查报错
	return io.ReadAll(io.LimitReader(f, maxSize+1))
}

func parseGPS(rawLat, rawLng string) *service.GPSFix {
	rawLat, rawLng = strings.TrimSpace(rawLat), strings.TrimSpace(rawLng)
	if rawLat == "" || rawLng == "" {
		return nil
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return nil
	}
	return &service.GPSFix{Lat: lat, Lng: lng}
}
