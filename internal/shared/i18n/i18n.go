package i18n

import (
	"Onboarding/internal/core/domain"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const successKey = "ok"

var supportedTags = []language.Tag{
	language.English,
	language.Arabic,
}

var tagMatcher = language.NewMatcher(supportedTags)

// Outcome is the caller-facing rendering of an operation result.
type Outcome struct {
	Success bool              `json:"success"`
	Kind    domain.ErrorKind  `json:"kind,omitempty"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Translator renders domain errors in the caller's language.
type Translator struct {
	cat           *catalog.Builder
	defaultLocale language.Tag
}

// New builds a translator with the English and Arabic catalogs. Unknown or
// empty locales resolve to defaultLocale.
func New(defaultLocale string) *Translator {
	cat := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range messages {
		for key, msg := range msgs {
			// Keys and messages are static; SetString only fails on malformed tags.
			_ = cat.SetString(tag, key, msg)
		}
	}
	t := &Translator{cat: cat, defaultLocale: language.English}
	t.defaultLocale = t.Resolve(defaultLocale)
	return t
}

// Resolve picks the supported language closest to locale, e.g. "ar-SA" -> ar.
func (t *Translator) Resolve(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return t.defaultLocale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return t.defaultLocale
	}
	_, idx, conf := tagMatcher.Match(tag)
	if conf == language.No {
		return t.defaultLocale
	}
	return supportedTags[idx]
}

func (t *Translator) printer(locale string) *message.Printer {
	return message.NewPrinter(t.Resolve(locale), message.Catalog(t.cat))
}

// Describe renders err for locale. A nil error is a success outcome;
// non-domain errors are reported as internal without leaking their text.
func (t *Translator) Describe(err error, locale string) Outcome {
	p := t.printer(locale)
	if err == nil {
		return Outcome{Success: true, Message: p.Sprintf(successKey)}
	}

	kind := domain.KindOf(err)
	out := Outcome{
		Kind:    kind,
		Message: p.Sprintf(string(kind)),
	}
	if _, known := messages[language.English][string(kind)]; !known {
		out.Kind = domain.KindInternal
		out.Message = p.Sprintf(string(domain.KindInternal))
	}

	if fields := domain.FieldsOf(err); len(fields) > 0 {
		out.Fields = make(map[string]string, len(fields))
		for field, detail := range fields {
			out.Fields[field] = t.detail(p, detail)
		}
	}
	return out
}

func (t *Translator) detail(p *message.Printer, detail string) string {
	if _, known := messages[language.English]["detail."+detail]; known {
		return p.Sprintf("detail." + detail)
	}
	return detail
}
