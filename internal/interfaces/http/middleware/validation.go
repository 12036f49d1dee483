package middleware

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/workshop/backend/internal/interfaces/http/dto"
)

var setupValidator sync.Once

// SetupValidator adapts gin's validator to the API: errors name fields the
// way clients send them, decimals validate as their string form and the
// money tag accepts non-negative amounts with at most two decimals.
func SetupValidator() {
	setupValidator.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(wireName)
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
			return isMoney(fl.Field().String())
		})
	})
}

// wireName is the json name of a body field, or the form name of a query field
func wireName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		name, _, _ = strings.Cut(field.Tag.Get("form"), ",")
	}
	return name
}

func isMoney(s string) bool {
	d, err := decimal.NewFromString(s)
	return err == nil && !d.IsNegative() && d.Equal(d.Round(2))
}

// ValidationDetails lists one entry per failed field
func ValidationDetails(errs validator.ValidationErrors) []dto.ValidationDetail {
	details := make([]dto.ValidationDetail, len(errs))
	for i, e := range errs {
		details[i] = dto.ValidationDetail{Field: e.Field(), Message: validationMessage(e)}
	}
	return details
}

func validationMessage(e validator.FieldError) string {
	param := e.Param()
	bound := param
	if e.Kind() == reflect.String && e.Tag() != "money" {
		bound = param + " characters"
	}

	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Must be at least " + bound
	case "max":
		return "Must be at most " + bound
	case "oneof":
		return "Must be one of: " + param
	case "uuid":
		return "Invalid UUID format"
	case "money":
		return "Must be a non-negative amount with at most 2 decimals"
	case "gte":
		return "Must be greater than or equal to " + param
	case "lte":
		return "Must be less than or equal to " + param
	case "datetime":
		return "Must match the layout " + param
	default:
		return "Invalid value"
	}
}
