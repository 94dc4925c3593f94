package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"bandsite-backend/internal/models"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(fld.Name[:1]) + fld.Name[1:]
		}
		return name
	})
	return v
}

// ValidateTour checks a tour submission and returns an empty string when it is acceptable.
// Otherwise it names the first failing field.
func ValidateTour(in models.TourInput) string {
	in.Date = strings.TrimSpace(in.Date)
	in.City = strings.TrimSpace(in.City)
	in.Venue = strings.TrimSpace(in.Venue)

	return validationMessage(validate.Struct(in))
}

func validationMessage(err error) string {
	if err == nil {
		return ""
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err.Error()
	}

	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// validateStruct runs the tag rules of any request struct
func validateStruct(v any) error {
	if msg := validationMessage(validate.Struct(v)); msg != "" {
		return invalid(msg)
	}
	return nil
}
