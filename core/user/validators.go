package user

import (
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/hucares/hucares/core"
)

var (
	usernameCharsTag   = "username_chars"
	usernameCharsText  = "username can only contain letters, numbers, hyphens, and underscores"
	usernameCharsRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	notReservedTag  = "not_reserved"
	notReservedText = "this username is reserved"
	reservedNames   = []string{"admin", "root", "api", "www", "mail", "support", "help", "info"}

	passwordStrengthTag  = "password_strength"
	passwordStrengthText = "password must contain at least one uppercase letter, one lowercase letter, and one number"
)

// InitValidators registers user-specific validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(usernameCharsTag, usernameCharsValidation)
	core.RegisterCustomTranslation(validate, translator, usernameCharsTag, usernameCharsText)

	_ = validate.RegisterValidation(notReservedTag, notReservedValidation)
	core.RegisterCustomTranslation(validate, translator, notReservedTag, notReservedText)

	_ = validate.RegisterValidation(passwordStrengthTag, passwordStrengthValidation)
	core.RegisterCustomTranslation(validate, translator, passwordStrengthTag, passwordStrengthText)
}

func usernameCharsValidation(fl validator.FieldLevel) bool {
	return usernameCharsRegex.MatchString(fl.Field().String())
}

func notReservedValidation(fl validator.FieldLevel) bool {
	val := strings.ToLower(fl.Field().String())
	for _, name := range reservedNames {
		if val == name {
			return false
		}
	}
	return true
}

// passwordStrengthValidation requires at least one lowercase letter, one
// uppercase letter and one digit.
func passwordStrengthValidation(fl validator.FieldLevel) bool {
	var lower, upper, digit bool
	for _, r := range fl.Field().String() {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return lower && upper && digit
}
