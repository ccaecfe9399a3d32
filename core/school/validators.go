package school

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/saber-pedagogico/saber/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"

	severityTag  = "severity"
	severityText = "severity must be one of LEVE, MEDIA or GRAVE"

	dateTag  = "isodate"
	dateText = "date must be formatted as YYYY-MM-DD"
)

// InitValidators registers the school specific validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	_ = validate.RegisterValidation(severityTag, severityValidation)
	core.RegisterCustomTranslation(validate, translator, severityTag, severityText)

	_ = validate.RegisterValidation(dateTag, isoDateValidation)
	core.RegisterCustomTranslation(validate, translator, dateTag, dateText)
}

// Custom Validators

func roleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).Valid()
}

func severityValidation(fl validator.FieldLevel) bool {
	return Severity(fl.Field().String()).Valid()
}

func isoDateValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	for i, c := range s {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
