package apperr

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

// FromValidation converts the result of an ozzo-validation check into a
// Validation error keyed by field name. A nil input returns nil; an
// internal validation failure becomes a system error.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}

	var internal validation.InternalError
	if errors.As(err, &internal) {
		return System(err)
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for name, fe := range fieldErrs {
			if fe != nil {
				fields[name] = fe.Error()
			}
		}
		return Validation(fields)
	}

	return Validation(map[string]string{"body": err.Error()})
}

// Field builds a single-field Validation error.
func Field(name, message string) *Error {
	return Validation(map[string]string{name: message})
}
