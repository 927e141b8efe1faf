package service

import (
	"strings"

	"github.com/renthportal/renthportal-sub001/internal/constants"
	"github.com/renthportal/renthportal-sub001/internal/models"
)

// CompletionInput 完工记录输入（照片与签名已是上传后的地址）
type CompletionInput struct {
	HourMeter      *models.HourMeter
	FuelLevel      *int
	PersonName     string
	Notes          string
	Conditions     []string
	ConditionNotes string
	PhotoURLs      []string
	SignatureURL   string
	GPS            *GPSFix
}

// ValidateCompletion 校验并规范化完工输入
// 校验顺序固定：小时表、交接人、状况标签、状况说明。
func ValidateCompletion(input CompletionInput) (CompletionInput, error) {
	out := input
	if input.HourMeter == nil {
		return out, ErrMissingHourMeter
	}
	if input.HourMeter.IsNegative() {
		return out, ErrInvalidHourMeter
	}

	out.PersonName = strings.TrimSpace(input.PersonName)
	if out.PersonName == "" {
		return out, ErrMissingPersonName
	}

	conditions, err := NormalizeConditionTags(input.Conditions)
	if err != nil {
		return out, err
	}
	if len(conditions) == 0 {
		return out, ErrNoConditionSelected
	}
	out.Conditions = conditions

	out.ConditionNotes = strings.TrimSpace(input.ConditionNotes)
	if RequiresConditionDetail(conditions) && out.ConditionNotes == "" {
		return out, ErrMissingConditionDetail
	}

	fuel := ClampFuelLevel(input.FuelLevel)
	out.FuelLevel = &fuel
	out.Notes = strings.TrimSpace(input.Notes)
	if out.GPS != nil && !out.GPS.Valid() {
		out.GPS = nil
	}
	return out, nil
}

// ClampFuelLevel 油量限制在 0-100，缺省为 50
func ClampFuelLevel(v *int) int {
	if v == nil {
		return constants.DefaultFuelLevel
	}
	switch {
	case *v < 0:
		return 0
	case *v > 100:
		return 100
	default:
		return *v
	}
}
