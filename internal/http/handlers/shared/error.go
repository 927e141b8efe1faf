package shared

import (
	"errors"

	"github.com/renthportal/renthportal-sub001/internal/http/response"
	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := c.GetString("request_id"); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	respondAppError(c, response.WrapError(code, msg, err))
}

func respondAppError(c *gin.Context, appErr *response.AppError) {
	if appErr.Err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", appErr.Err,
		)
	}
	if appErr.Detail != nil {
		response.ErrorWithData(c, appErr.Code, appErr.Message, appErr.Detail)
		return
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// mappedHandlerError 业务错误到接口错误码的映射
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

var serviceErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCredentials, code: response.CodeUnauthorized, msg: "invalid username or password"},
	{target: service.ErrInvalidToken, code: response.CodeUnauthorized, msg: "token invalid"},
	{target: service.ErrUserDisabled, code: response.CodeUnauthorized, msg: "user disabled"},
	{target: service.ErrForbidden, code: response.CodeForbidden, msg: "forbidden"},
	{target: service.ErrNotAssignedDriver, code: response.CodeForbidden, msg: "task is not assigned to you"},
	{target: service.ErrDeliveryItemNotFound, code: response.CodeNotFound, msg: "delivery item not found"},
	{target: service.ErrProposalNotFound, code: response.CodeNotFound, msg: "proposal not found"},
	{target: service.ErrAssetNotFound, code: response.CodeNotFound, msg: "asset not found"},
	{target: service.ErrDriverNotFound, code: response.CodeNotFound, msg: "driver not found"},
	{target: service.ErrAssetSyncJobNotFound, code: response.CodeNotFound, msg: "asset sync job not found"},
	{target: service.ErrInvalidTransition, code: response.CodeConflict, msg: "status changed, reload the task"},
	{target: service.ErrReturnBeforeDelivery, code: response.CodeConflict, msg: "delivery is not completed yet"},
	{target: service.ErrAssetUnavailable, code: response.CodeConflict, msg: "asset is not available"},
	{target: service.ErrProposalNotSigned, code: response.CodeConflict, msg: "proposal is not signed"},
	{target: service.ErrProposalAlreadyTransferred, code: response.CodeConflict, msg: "proposal already transferred"},
	{target: service.ErrAssetSyncJobNotFailed, code: response.CodeConflict, msg: "asset sync job is not failed"},
	{target: service.ErrProposalEmpty, code: response.CodeBadRequest, msg: "proposal has no line items"},
	{target: service.ErrInvalidDirection, code: response.CodeBadRequest, msg: "direction invalid"},
	{target: service.ErrInvalidPlannedDate, code: response.CodeBadRequest, msg: "planned date invalid"},
	{target: service.ErrInvalidAssetStatus, code: response.CodeBadRequest, msg: "asset status invalid"},
	{target: service.ErrValidation, code: response.CodeBadRequest, msg: "validation failed"},
	{target: service.ErrUploadFailed, code: response.CodeInternal, msg: "upload failed, nothing was saved"},
	{target: service.ErrPersistenceFailed, code: response.CodeInternal, msg: "save failed, uploads discarded"},
}

// RespondServiceError 将 service 层错误映射为统一响应
func RespondServiceError(c *gin.Context, err error, fallbackMsg string) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		appErr := response.WrapError(response.CodeBadRequest, "validation failed", nil).
			WithDetail(gin.H{"code": validationErr.Code, "field": validationErr.Field})
		respondAppError(c, appErr)
		return
	}
	for _, rule := range serviceErrorRules {
		if errors.Is(err, rule.target) {
			var logged error
			if rule.code == response.CodeInternal {
				logged = err
			}
			RespondError(c, rule.code, rule.msg, logged)
			return
		}
	}
	RespondError(c, response.CodeInternal, fallbackMsg, err)
}
