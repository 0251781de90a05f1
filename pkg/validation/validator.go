// Package validation wraps go-playground/validator behind a small API so
// application services can validate input structs without depending on the
// validator package directly.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// engine lazily builds the shared validator.
// - Uses JSON tag names in error output.
// - Registers alias tags for common semantics.
func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		validate.RegisterAlias("pwd", "min=8") // password minimum length
		validate.RegisterAlias("uname", "min=3,max=24,alphanum")
	})
	return validate
}

// Struct validates v and returns a single error joining every field failure.
func Struct(v any) error {
	return engine().Struct(v)
}

// ToDetails converts validation errors into a map[field]message suitable
// for presenting to a user.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}
	return map[string]string{"input": "invalid input"}
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "alphanum":
		return "must contain only letters and digits"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "pwd":
		return "must be at least 8 characters"
	case "uname":
		return "must be 3-24 letters or digits"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
