package validator

import "github.com/go-playground/validator/v10"

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

func NewTranscriptionValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("media_type", mediaTypeValidator),
		},
		{
			Rule: registerFn("language", languageValidator),
		},
	}
}
