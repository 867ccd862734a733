package user

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

var errInvalidPhone = errors.New("must be a valid phone number")

// phoneRule accepts numbers that parse as valid for region (or carry their
// own country code).
func phoneRule(region string) validation.Rule {
	return validation.By(func(value interface{}) error {
		s, _ := value.(string) //nolint:errcheck // non-strings fail below
		if s == "" {
			return nil
		}
		if _, err := normalisePhone(s, region); err != nil {
			return errInvalidPhone
		}
		return nil
	})
}

// normalisePhone returns s in E.164 form.
func normalisePhone(s, region string) (string, error) {
	num, err := phonenumbers.Parse(s, region)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errInvalidPhone
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
