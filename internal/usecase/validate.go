package usecase

import (
	"errors"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = newValidator()

// newValidator reports fields by their JSON names so messages match what the
// caller sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateParams(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return newError(ErrorInternal, "validation_error", err)
	}

	missing := lo.FilterMap(fieldErrs, func(fe validator.FieldError, _ int) (string, bool) {
		return fe.Field(), fe.Tag() == "required"
	})
	if len(missing) > 0 {
		slices.Sort(missing)
		return newMessageError(ErrorInvalidInput, "missing_parameters",
			"Missing required parameters: "+strings.Join(lo.Uniq(missing), ", "), err)
	}

	invalid := lo.Uniq(lo.Map(fieldErrs, func(fe validator.FieldError, _ int) string {
		return fe.Field()
	}))
	slices.Sort(invalid)
	return newMessageError(ErrorInvalidInput, "invalid_parameters",
		"Invalid parameters: "+strings.Join(invalid, ", "), err)
}
