package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report JSON field names so 400 bodies match the request payload
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationFields flattens validator output into field -> failed rule.
func validationFields(err error) (map[string]string, error) {
	fields := map[string]string{}
	if err == nil {
		return fields, nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, err
	}
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	return fields, nil
}

func trim(s string) string { return strings.TrimSpace(s) }
