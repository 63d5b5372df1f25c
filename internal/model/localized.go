package model

import (
	"encoding/json"
	"errors"
	"sort"

	"golang.org/x/text/language"
)

// LocalizedText holds either a raw string or a set of translations keyed by
// BCP 47 locale. Upstream payloads use both shapes for the same field.
type LocalizedText struct {
	Raw      string
	ByLocale map[string]string
}

func Text(raw string) LocalizedText {
	return LocalizedText{Raw: raw}
}

func Translations(byLocale map[string]string) LocalizedText {
	return LocalizedText{ByLocale: byLocale}
}

func (t LocalizedText) IsLocalized() bool {
	return len(t.ByLocale) > 0
}

// Resolve picks the best translation for the Accept-Language value.
// Raw text is returned as-is; unmatched preferences fall back to English,
// then to the first locale in sorted order.
func (t LocalizedText) Resolve(acceptLanguage string) string {
	if !t.IsLocalized() {
		return t.Raw
	}

	locales := make([]string, 0, len(t.ByLocale))
	for locale := range t.ByLocale {
		locales = append(locales, locale)
	}
	sort.Strings(locales)

	// English first so the matcher falls back to it
	tags := []language.Tag{language.English}
	keys := []string{""}
	for _, locale := range locales {
		tag, err := language.Parse(locale)
		if err != nil {
			continue
		}
		tags = append(tags, tag)
		keys = append(keys, locale)
	}

	preferred, _, _ := language.ParseAcceptLanguage(acceptLanguage)
	_, index, confidence := language.NewMatcher(tags).Match(preferred...)
	if confidence != language.No && index > 0 {
		return t.ByLocale[keys[index]]
	}

	if text, ok := t.ByLocale["en"]; ok {
		return text
	}
	return t.ByLocale[locales[0]]
}

func (t LocalizedText) MarshalJSON() ([]byte, error) {
	if t.IsLocalized() {
		return json.Marshal(t.ByLocale)
	}
	return json.Marshal(t.Raw)
}

func (t *LocalizedText) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		*t = LocalizedText{Raw: raw}
		return nil
	}

	var byLocale map[string]string
	if err := json.Unmarshal(data, &byLocale); err != nil {
		return errors.New("localized text must be a string or an object of locale to text")
	}
	*t = LocalizedText{ByLocale: byLocale}
	return nil
}
