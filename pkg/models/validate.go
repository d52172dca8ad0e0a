package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tag rules of s and folds the failures into a
// single ErrInvalidParams error naming each offending field by its JSON key.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	msgs := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "max":
		if k := fe.Kind(); k == reflect.Slice || k == reflect.Map {
			return fmt.Sprintf("%s can have at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have length %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", field, fe.Tag())
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
