// Package i18n localizes the user-facing strings of the query pipeline:
// progress stage messages and error remediation text. The catalog is
// compiled in; locale resolution falls back to zh-TW, the primary
// audience of the ERP deployment.
package i18n

import (
	"golang.org/x/text/language"
)

// DefaultLocale is used when a request names no locale or an
// unsupported one.
const DefaultLocale = "zh-TW"

// locales lists the supported tags; order matches the matcher below and
// the first entry is the fallback.
var locales = []string{"zh-TW", "ja", "en"}

var matcher = language.NewMatcher([]language.Tag{
	language.MustParse("zh-TW"),
	language.Japanese,
	language.English,
})

// Locales returns the supported locale tags.
func Locales() []string {
	out := make([]string, len(locales))
	copy(out, locales)
	return out
}

// Normalize maps a requested locale onto the closest supported one.
// Unparseable or unknown tags fall back to the default.
func Normalize(locale string) string {
	if locale == "" {
		return DefaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return DefaultLocale
	}
	_, idx, _ := matcher.Match(tag)
	return locales[idx]
}

// Message returns the localized text for a message key. Keys without a
// translation for the locale fall back to zh-TW; unknown keys return
// the key itself so a missing entry is visible, not silent.
func Message(locale, key string) string {
	entry, ok := messages[key]
	if !ok {
		return key
	}
	if text, ok := entry[Normalize(locale)]; ok {
		return text
	}
	return entry[DefaultLocale]
}
