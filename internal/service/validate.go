package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// requestValidator checks request structs against their validate tags and
// reports failures keyed by JSON field name.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: v}
}

// Struct validates s and adds every failure to verr.
func (rv *requestValidator) Struct(verr *ValidationError, s any) error {
	return rv.collect(verr, "", rv.validate.Struct(s))
}

// Var validates a single value under the given field name.
func (rv *requestValidator) Var(verr *ValidationError, field string, value any, tag string) error {
	return rv.collect(verr, field, rv.validate.Var(value, tag))
}

func (rv *requestValidator) collect(verr *ValidationError, field string, err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	for _, fe := range fieldErrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		key, msg := fieldMessage(name, fe)
		verr.Add(key, msg)
	}
	return nil
}

func fieldMessage(field string, fe validator.FieldError) (string, string) {
	label := strings.ReplaceAll(field, "_", " ")
	switch fe.Tag() {
	case "required":
		return field, fmt.Sprintf("The %s field is required.", label)
	case "email":
		return field, fmt.Sprintf("The %s field must be a valid email address.", label)
	case "max":
		return field, fmt.Sprintf("The %s field must not be greater than %s characters.", label, fe.Param())
	case "min":
		return field, fmt.Sprintf("The %s field must be at least %s characters.", label, fe.Param())
	case "oneof":
		return field, fmt.Sprintf("The selected %s is invalid.", label)
	case "eqfield":
		// password_confirmation mismatches are reported on password.
		base := strings.TrimSuffix(field, "_confirmation")
		return base, fmt.Sprintf("The %s field confirmation does not match.", strings.ReplaceAll(base, "_", " "))
	default:
		return field, fmt.Sprintf("The %s field is invalid.", label)
	}
}
