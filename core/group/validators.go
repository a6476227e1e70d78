package group

import (
	"regexp"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/hucares/hucares/core"
)

var (
	accessCodeTag   = "access_code"
	accessCodeText  = "access code must contain only uppercase letters and numbers"
	accessCodeRegex = regexp.MustCompile(`^[A-Z0-9]+$`)
)

// InitValidators registers group-specific validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(accessCodeTag, accessCodeValidation)
	core.RegisterCustomTranslation(validate, translator, accessCodeTag, accessCodeText)
}

func accessCodeValidation(fl validator.FieldLevel) bool {
	return accessCodeRegex.MatchString(fl.Field().String())
}
