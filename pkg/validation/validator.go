package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/flowery-users/pkg/apperror"
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers alias tags used by request payloads.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		v.RegisterAlias("pwd", "min=8")
	}
}

// BindError turns a binding/validation failure into an InvalidInput error
// whose params are the per-field messages.
func BindError(op string, err error) *apperror.Error {
	params := make(map[string]any)
	for k, v := range ToDetails(err) {
		params[k] = v
	}
	return apperror.New(apperror.InvalidInput, op, "invalid payload", params)
}

// ToDetails converts validation/binding errors into a map[field]message.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "jwt":
		return "must be a valid JWT token"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "pwd":
		return "min length 8"
	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", fe.Tag(), param)
		}
		return fmt.Sprintf("validation failed for '%s'", fe.Tag())
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
