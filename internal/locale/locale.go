// Package locale translates console messages and formats numbers for the user's language.
package locale

import (
	"embed"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/samber/lo"
	"github.com/tartampluch/go-tempo/internal/config"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

//go:embed locales/*.json
var localeFS embed.FS

var englishPrinter = message.NewPrinter(language.English)

const (
	localeDir    = "locales"
	localePrefix = "active."
	localeSuffix = ".json"

	maxFractionDigits = 4
)

// Translator holds the localizer and number printer of one language.
type Translator struct {
	Lang      string
	Languages []string // languages found in the embedded locale files

	localizer *i18n.Localizer
	printer   *message.Printer
}

// New loads the embedded locales and selects lang.
// Unknown languages fall back to config.DefaultLanguage.
func New(lang string) *Translator {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	detected := loadLocales(bundle)

	if !lo.Contains(detected, lang) {
		lang = config.DefaultLanguage
	}

	return &Translator{
		Lang:      lang,
		Languages: detected,
		localizer: i18n.NewLocalizer(bundle, lang),
		printer:   message.NewPrinter(language.Make(lang)),
	}
}

func loadLocales(bundle *i18n.Bundle) []string {
	entries, err := localeFS.ReadDir(localeDir)
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
		return nil
	}

	var detected []string

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, localePrefix) || !strings.HasSuffix(name, localeSuffix) {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, localePrefix), localeSuffix)
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, localeDir+"/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}

		detected = append(detected, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
			config.LogKeyFile, name,
		)
	}

	return detected
}

// Msg translates key with optional template data. A missing key is returned as is.
func (t *Translator) Msg(key string, data map[string]any) string {
	if t == nil || t.localizer == nil {
		return key
	}

	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyError, err,
		)
		return key
	}
	return msg
}

// Number formats v with the decimal separator of the selected language.
func (t *Translator) Number(v float32) string {
	p := englishPrinter
	if t != nil && t.printer != nil {
		p = t.printer
	}
	return p.Sprint(number.Decimal(v, number.MaxFractionDigits(maxFractionDigits)))
}
