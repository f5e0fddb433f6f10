package i18n

import (
	"embed"
	"encoding/json"
	"path"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// I18nSupport resolves message ids for a language tag, falling back to the
// default language and finally to the id itself.
type I18nSupport struct {
	bundle      *i18n.Bundle
	defaultLang string
	supported   []language.Tag
	matcher     language.Matcher
}

func NewI18nSupport(defaultLang string) (*I18nSupport, error) {
	def, err := language.Parse(defaultLang)
	if err != nil {
		return nil, err
	}
	bundle := i18n.NewBundle(def)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		buf, err := localeFS.ReadFile(path.Join("locales", entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(buf, entry.Name()); err != nil {
			return nil, err
		}
	}

	tags := bundle.LanguageTags()
	return &I18nSupport{
		bundle:      bundle,
		defaultLang: def.String(),
		supported:   tags,
		matcher:     language.NewMatcher(tags),
	}, nil
}

// T translates key for languageTag. languageTag may be a bare tag ("es") or an
// Accept-Language header value.
func (i *I18nSupport) T(languageTag, key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, languageTag, i.defaultLang)
	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})
	if err != nil || translation == "" {
		return key
	}
	return translation
}

// Match returns the best supported base language for an Accept-Language
// header, or the default language.
func (i *I18nSupport) Match(acceptLanguage string) string {
	if strings.TrimSpace(acceptLanguage) == "" {
		return i.defaultLang
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return i.defaultLang
	}
	_, idx, conf := i.matcher.Match(tags...)
	if conf == language.No {
		return i.defaultLang
	}
	base, _ := i.supported[idx].Base()
	return base.String()
}

// Supports reports whether lang has its own message file.
func (i *I18nSupport) Supports(lang string) bool {
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	for _, t := range i.supported {
		if t == tag {
			return true
		}
	}
	return false
}
