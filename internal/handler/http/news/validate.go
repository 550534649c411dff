package news

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"news-fetcher/internal/domain/entity"
)

// RequestValidator checks fetch requests and reports failures per JSON field.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator registers the "category" rule and JSON field naming.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or nil function.
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return entity.ValidateCategory(fl.Field().String()) == nil
	})
	return &RequestValidator{validate: v}
}

// Validate returns a field → message map, or nil when req is valid.
func (rv *RequestValidator) Validate(req FetchRequest) map[string]string {
	err := rv.validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"request": err.Error()}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return fields
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "category":
		value, _ := fe.Value().(string)
		n := len(value)
		if n < entity.MinCategoryLength {
			return fmt.Sprintf("%s is too short: must be at least %d characters", fe.Field(), entity.MinCategoryLength)
		}
		if n > entity.MaxCategoryLength {
			return fmt.Sprintf("%s is too long: must be at most %d characters", fe.Field(), entity.MaxCategoryLength)
		}
		return fmt.Sprintf("%s must contain only letters, digits, spaces and hyphens", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
