package validation

import (
	"github.com/templui/pawcare/internal/model"
)

const (
	ReasonRequired       = "required"
	ReasonMustBePositive = "must_be_positive"
	ReasonOutOfRange     = "out_of_range"
	ReasonInvalidFormat  = "invalid_format"
	ReasonMustBeFuture   = "must_be_future"
	ReasonUnknownValue   = "unknown_value"
	ReasonTooLong        = "too_long"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

var messages = map[string]model.LocalizedText{
	ReasonRequired: model.Translations(map[string]string{
		"en": "This field is required.",
		"ko": "필수 입력 항목입니다.",
	}),
	ReasonMustBePositive: model.Translations(map[string]string{
		"en": "Must be greater than zero.",
		"ko": "0보다 커야 합니다.",
	}),
	ReasonOutOfRange: model.Translations(map[string]string{
		"en": "Value is outside the allowed range.",
		"ko": "허용 범위를 벗어났습니다.",
	}),
	ReasonInvalidFormat: model.Translations(map[string]string{
		"en": "Value has an invalid format.",
		"ko": "형식이 올바르지 않습니다.",
	}),
	ReasonMustBeFuture: model.Translations(map[string]string{
		"en": "Must be a time in the future.",
		"ko": "미래 시점이어야 합니다.",
	}),
	ReasonUnknownValue: model.Translations(map[string]string{
		"en": "Value is not one of the accepted options.",
		"ko": "허용되지 않는 값입니다.",
	}),
	ReasonTooLong: model.Translations(map[string]string{
		"en": "Value is too long.",
		"ko": "값이 너무 깁니다.",
	}),
}

// Message returns the user-facing text for a reason in the caller's language.
func Message(reason, acceptLanguage string) string {
	text, ok := messages[reason]
	if !ok {
		return reason
	}
	return text.Resolve(acceptLanguage)
}
