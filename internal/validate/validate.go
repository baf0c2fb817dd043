// Package validate checks settings and request structs with go-playground/validator.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/samber/lo"
	"github.com/tartampluch/go-tempo/internal/config"
)

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// ValidationError is a field-to-message map returned when validation fails.
// Keys are field names in snake_case.
type ValidationError map[string]string

// Error implements the error interface.
func (vs ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Validator wraps a configured validator.Validate and its English translator.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New constructs a Validator with English translations and the custom "language" rule.
func New() (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	if err := registerLanguage(validate, enTrans); err != nil {
		return nil, err
	}

	return &Validator{validate: validate, translator: enTrans}, nil
}

var (
	defaultOnce sync.Once
	defaultVal  *Validator
	defaultErr  error
)

// Default returns a process-wide Validator, built on first use.
func Default() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultVal, defaultErr = New()
	})
	return defaultVal, defaultErr
}

// Struct validates data with the default Validator.
func Struct(data any) error {
	v, err := Default()
	if err != nil {
		return err
	}
	return v.Validate(data)
}

// Validate validates a struct and returns a ValidationError on failure.
func (v *Validator) Validate(data any) error {
	if err := v.validate.Struct(data); err != nil {
		var validateErrs validator.ValidationErrors
		if !errors.As(err, &validateErrs) {
			return err
		}

		errs := make(ValidationError)
		for _, fe := range validateErrs {
			errs[lo.SnakeCase(fe.Field())] = fe.Translate(v.translator)
		}
		return errs
	}

	return nil
}

func registerLanguage(validate *validator.Validate, enTrans ut.Translator) error {
	err := validate.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		lang, ok := fl.Field().Interface().(string)
		return ok && lo.Contains(config.SupportedLanguages, lang)
	})
	if err != nil {
		return err
	}

	return validate.RegisterTranslation("language", enTrans,
		func(ut ut.Translator) error {
			return ut.Add("language", "{0} must be one of the supported languages", false)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, err := ut.T(fe.Tag(), fe.Field())
			if err != nil {
				slog.Warn("error translating validation message",
					config.LogKeyComponent, config.CompSettings,
					config.LogKeyError, err)
				return fe.Error()
			}
			return t
		},
	)
}
