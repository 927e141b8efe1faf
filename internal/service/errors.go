package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrDeliveryItemNotFound = errors.New("delivery item not found")
	ErrNotAssignedDriver    = errors.New("caller is not the assigned driver")
	ErrReturnBeforeDelivery = errors.New("return requires a completed delivery")
	ErrInvalidDirection     = errors.New("invalid direction")
	ErrInvalidPlannedDate   = errors.New("invalid planned date")
	ErrDriverNotFound       = errors.New("driver not found")
	ErrAssetNotFound        = errors.New("asset not found")
	ErrAssetUnavailable     = errors.New("asset is not available")
	ErrInvalidAssetStatus   = errors.New("invalid asset status")
	ErrUploadFailed         = errors.New("upload failed")
	ErrPersistenceFailed    = errors.New("persistence failed")
	ErrSideEffectFailed     = errors.New("asset sync failed")
	ErrForbidden            = errors.New("forbidden")

	ErrProposalNotFound           = errors.New("proposal not found")
	ErrProposalNotSigned          = errors.New("proposal is not signed")
	ErrProposalAlreadyTransferred = errors.New("proposal already transferred")
	ErrProposalEmpty              = errors.New("proposal has no line items")

	ErrAssetSyncJobNotFound  = errors.New("asset sync job not found")
	ErrAssetSyncJobNotFailed = errors.New("asset sync job is not in failed state")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrInvalidToken       = errors.New("invalid token")
)

// ValidationError 完工表单字段校验错误，Code 为稳定的错误码
type ValidationError struct {
	Code  string
	Field string
	Cause error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation: %s (%s): %v", e.Code, e.Field, e.Cause)
	}
	return fmt.Sprintf("validation: %s (%s)", e.Code, e.Field)
}

func (e *ValidationError) Unwrap() error { return e.Cause }

// Is 使 errors.Is(err, ErrValidation) 对所有字段错误成立
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var (
	ErrMissingHourMeter       = &ValidationError{Code: "missing_hour_meter", Field: "hour_meter"}
	ErrInvalidHourMeter       = &ValidationError{Code: "invalid_hour_meter", Field: "hour_meter"}
	ErrMissingPersonName      = &ValidationError{Code: "missing_person_name", Field: "person_name"}
	ErrNoConditionSelected    = &ValidationError{Code: "no_condition_selected", Field: "conditions"}
	ErrMissingConditionDetail = &ValidationError{Code: "missing_condition_detail", Field: "condition_notes"}
	ErrUnknownConditionTag    = &ValidationError{Code: "unknown_condition_tag", Field: "conditions"}
	ErrTooManyPhotos          = &ValidationError{Code: "too_many_photos", Field: "photos"}
	ErrInvalidSignature       = &ValidationError{Code: "invalid_signature", Field: "signature"}
)

// UploadError 照片或签名上传失败，此时尚未修改任何状态
type UploadError struct {
	Target string // photo[0] / signature
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Target, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Is(target error) bool { return target == ErrUploadFailed }

// PersistenceError 完工记录写入失败
type PersistenceError struct {
	Attempts int
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist completion after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistenceFailed }
