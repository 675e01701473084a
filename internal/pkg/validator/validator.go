// Package validator provides a thin wrapper around the go-playground/validator library,
// enabling declarative struct validation with standardized error formatting.
//
// Domain packages may register their own tags (e.g., the set of executable
// transaction actions) through RegisterValidation during package initialization.
package validator

import (
	"errors"
	"fmt"
	"reflect"

	gvalidator "github.com/go-playground/validator/v10"
)

// ErrValidationFailed is returned as the first error in a multi-error chain when validation fails.
var ErrValidationFailed = errors.New("struct validation failed")

// validator is a singleton instance of the go-playground validator,
// initialized automatically on package load.
var validator *gvalidator.Validate

// errStringFormat defines the template used to describe individual validation errors.
//
// Example: "'Input.Account': value '0x1' does not meet the requirements for the 'eth_addr' validation"
const errStringFormat = "'%s': value '%v' does not meet the requirements for the '%s' validation"

func init() {
	validator = gvalidator.New(gvalidator.WithRequiredStructEnabled())
}

// formatError transforms a raw validator error into a multi-error chain rooted
// at ErrValidationFailed with one formatted message per failing field. Other
// errors are returned unchanged.
func formatError(err error) error {
	var validationErrors gvalidator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	errs := []error{ErrValidationFailed}
	for _, validationErr := range validationErrors {
		errs = append(errs, fmt.Errorf(errStringFormat,
			validationErr.Namespace(),
			validationErr.Value(),
			validationErr.Tag(),
		))
	}

	return errors.Join(errs...)
}

// Validate checks if the given struct satisfies its validation tags.
//
//	type Input struct {
//	    Description string `validate:"required"`
//	}
//
//	if err := validator.Validate(input); errors.Is(err, validator.ErrValidationFailed) {
//	    // Handle validation failure
//	}
func Validate(v any) error {
	if err := validator.Struct(v); err != nil {
		return formatError(err)
	}

	return nil
}

// RegisterValidation adds a custom string tag. The function receives the
// field value and reports whether it is acceptable. Fields whose kind is not
// string fail.
func RegisterValidation(tag string, fn func(value string) bool) error {
	return validator.RegisterValidation(tag, func(fl gvalidator.FieldLevel) bool {
		if fl.Field().Kind() != reflect.String {
			return false
		}
		return fn(fl.Field().String())
	})
}
