package handler

import (
	"fmt"
	"strings"
	"sync"

	"fixmycity/backend/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the domain enum validators to gin's binding
// engine. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("complaintstatus", func(fl validator.FieldLevel) bool {
			return models.ComplaintStatus(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("principalstatus", func(fl validator.FieldLevel) bool {
			return models.AccountStatus(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s == "" {
				return true
			}
			return len(s) == 24 && strings.Trim(strings.ToLower(s), "0123456789abcdef") == ""
		})
	})
}

func validationMessage(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "email":
			parts = append(parts, field+" must be a valid email")
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "complaintstatus":
			parts = append(parts, field+" must be one of Pending, InProgress, Resolved")
		case "principalstatus":
			parts = append(parts, field+" must be one of active, suspended, removed")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of %s", field, fe.Param()))
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}
