package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"library-service/internal/models"
)

var registerOnce sync.Once

// registerValidations installs the custom rules on gin's validator.
func registerValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("cover_type", validateCoverType)
	})
}

func validateCoverType(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Pointer {
		if field.IsNil() {
			return true
		}
		field = field.Elem()
	}
	if field.Kind() != reflect.String {
		return false
	}
	return models.CoverType(field.String()).Valid()
}

// bindingMessage renders a binding failure as "<field>: <reason>".
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Sprintf("invalid request body: %v", err)
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + ": this field is required"
	case "max":
		return fmt.Sprintf("%s: ensure this field has no more than %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s: ensure this value is greater than or equal to %s", field, fe.Param())
	case "uuid":
		return field + ": must be a valid UUID"
	case "cover_type":
		return fmt.Sprintf("%s: %q is not a valid choice", field, fmt.Sprint(reflect.Indirect(reflect.ValueOf(fe.Value()))))
	default:
		return fmt.Sprintf("%s: failed on the %q rule", field, fe.Tag())
	}
}
