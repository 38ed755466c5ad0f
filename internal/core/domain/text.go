package domain

import (
	"fmt"
	"maps"
	"strings"
)

// DefaultLocale is used when a translation is requested for a missing locale.
const DefaultLocale = "en"

// TranslatedText holds the same text in several locales, keyed by locale code.
type TranslatedText map[string]string

// Get returns the text for locale, falling back to the default locale and
// then to any available translation.
func (t TranslatedText) Get(locale string) string {
	if v, ok := t[locale]; ok && v != "" {
		return v
	}
	if v, ok := t[DefaultLocale]; ok && v != "" {
		return v
	}
	for _, v := range t {
		if v != "" {
			return v
		}
	}
	return ""
}

// IsBlank reports whether no locale carries non-whitespace text.
func (t TranslatedText) IsBlank() bool {
	for _, v := range t {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (t TranslatedText) Clone() TranslatedText {
	if t == nil {
		return nil
	}
	return maps.Clone(t)
}

// TranslatedFromFlat collects a translation map from flat form keys.
// For prefix "name" it reads "name_en", "name_ar", ... and a bare "name"
// that fills the default locale. A nested map under "name" is also accepted.
func TranslatedFromFlat(data map[string]any, prefix string) TranslatedText {
	out := TranslatedText{}
	switch v := data[prefix].(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out[DefaultLocale] = s
		}
	case map[string]any:
		for locale, raw := range v {
			if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
				out[locale] = strings.TrimSpace(s)
			}
		}
	case map[string]string:
		for locale, s := range v {
			if strings.TrimSpace(s) != "" {
				out[locale] = strings.TrimSpace(s)
			}
		}
	case TranslatedText:
		for locale, s := range v {
			if strings.TrimSpace(s) != "" {
				out[locale] = strings.TrimSpace(s)
			}
		}
	}

	p := prefix + "_"
	for k, raw := range data {
		if !strings.HasPrefix(k, p) {
			continue
		}
		locale := strings.TrimPrefix(k, p)
		if len(locale) != 2 {
			continue
		}
		if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
			out[locale] = strings.TrimSpace(s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// StringField reads a trimmed string value from a loosely typed form map.
func StringField(data map[string]any, key string) string {
	switch v := data[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
