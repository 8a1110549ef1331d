package dto

import (
	"fmt"

	"github.com/cresciperdi/intranet-api/internal/domain/entity"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators регистрирует правила content_type и audience в валидаторе gin.
// Вызывается один раз при старте.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
	}
	return registerRules(v)
}

func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("content_type", func(fl validator.FieldLevel) bool {
		return entity.IsValidContentType(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register content_type rule: %w", err)
	}
	if err := v.RegisterValidation("audience", func(fl validator.FieldLevel) bool {
		return entity.IsValidAudience(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register audience rule: %w", err)
	}
	return nil
}

// ValidationMessage превращает ошибку биндинга в короткое сообщение для клиента
func ValidationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Invalid request data: " + err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "content_type":
		return fmt.Sprintf("Field '%s' must be one of: video, text", fe.Field())
	case "audience":
		return fmt.Sprintf("Field '%s' must be one of: colaboradores, franqueados, ambos", fe.Field())
	case "oneof":
		return fmt.Sprintf("Field '%s' must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed rule '%s'", fe.Field(), fe.Tag())
	}
}
