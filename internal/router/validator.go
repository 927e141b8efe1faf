package router

import (
	"strings"

	"github.com/renthportal/renthportal-sub001/internal/logger"
	"github.com/renthportal/renthportal-sub001/internal/service"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators 注册交付相关的绑定校验标签
func RegisterValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		logger.Warnw("router_validator_engine_unexpected")
		return
	}
	if err := v.RegisterValidation("direction", validateDirection); err != nil {
		logger.Errorw("router_register_validation_failed", "tag", "direction", "error", err)
	}
	if err := v.RegisterValidation("condition_tag", validateConditionTag); err != nil {
		logger.Errorw("router_register_validation_failed", "tag", "condition_tag", "error", err)
	}
}

func validateDirection(fl validator.FieldLevel) bool {
	_, err := service.ParseDirection(fl.Field().String())
	return err == nil
}

// 空白项在归一化时会被跳过
func validateConditionTag(fl validator.FieldLevel) bool {
	tag := strings.TrimSpace(fl.Field().String())
	return tag == "" || service.IsKnownConditionTag(tag)
}
