// Package validation validates user-supplied contact fields at the HTTP
// boundary, before anything leaves the client side of the gateway.
package validation

import (
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"usergraph-portal/internal/domain"
	appErrors "usergraph-portal/pkg/errors"
)

// minPhoneDigits is the least number of digit characters a phone number
// must contain after stripping punctuation.
const minPhoneDigits = 7

// singleton instance; validator.Validate caches struct metadata, so one
// shared instance is the cheap path
var (
	instance *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		instance = validator.New()
		instance.RegisterValidation("phonedigits", phoneDigitsValidator)
	})
	return instance
}

// ValidateContact trims and validates the raw form fields and returns the
// normalized ContactInput. It is pure: no side effects, safe to call from
// tests directly.
//
// Rules:
//   - phone is required and must contain at least 7 digit characters;
//     punctuation and spacing are ignored ("+1 (555) 123-4567" passes)
//   - email is optional, but must be syntactically valid when present
func ValidateContact(phone, email string) (domain.ContactInput, error) {
	input := domain.ContactInput{
		Phone: strings.TrimSpace(phone),
		Email: strings.TrimSpace(email),
	}

	if input.Phone == "" {
		return domain.ContactInput{}, appErrors.NewValidation("phone is required")
	}

	if err := getValidator().Struct(input); err != nil {
		return domain.ContactInput{}, appErrors.NewValidation(validationMessage(err))
	}
	return input, nil
}

func phoneDigitsValidator(fl validator.FieldLevel) bool {
	return countDigits(fl.Field().String()) >= minPhoneDigits
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// validationMessage converts the first validator error into a
// user-facing message.
func validationMessage(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return "invalid input"
	}

	e := validationErrors[0]
	switch {
	case e.Field() == "Phone" && e.Tag() == "required":
		return "phone is required"
	case e.Field() == "Phone":
		return "phone is too short"
	case e.Field() == "Email":
		return "invalid email address"
	default:
		return "invalid input"
	}
}
