package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings holds the runtime configuration of the serve command.
// Values come from defaults, then the settings file, then TEMPO_* variables.
type Settings struct {
	Server   ServerSettings   `mapstructure:"server"`
	Live     LiveSettings     `mapstructure:"live"`
	Timeline TimelineSettings `mapstructure:"timeline"`
	Language string           `mapstructure:"language" validate:"required,language"`
}

// ServerSettings configures the HTTP listener.
type ServerSettings struct {
	Bind string `mapstructure:"bind" validate:"required,ip"`
	Port int    `mapstructure:"port" validate:"gte=1,lte=65535"`
}

// LiveSettings configures the WebSocket stream.
type LiveSettings struct {
	TickRate int `mapstructure:"tick_rate" validate:"gte=1,lte=240"`
}

// TimelineSettings describes the timeline published on the root route.
type TimelineSettings struct {
	Expr string  `mapstructure:"expr" validate:"required"`
	From float64 `mapstructure:"from"`
	To   float64 `mapstructure:"to" validate:"gtefield=From"`
	Step float64 `mapstructure:"step" validate:"gt=0"`
}

// Validator checks decoded settings. internal/validate satisfies it.
type Validator func(data any) error

// newViper returns a viper instance with defaults and environment overrides.
func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyServerBind, LocalhostBindAddr)
	v.SetDefault(KeyServerPort, DefaultPort)
	v.SetDefault(KeyLiveTickRate, DefaultTickRate)
	v.SetDefault(KeyTimelineExpr, DefaultExpr)
	v.SetDefault(KeyTimelineFrom, DefaultFrom)
	v.SetDefault(KeyTimelineTo, DefaultTo)
	v.SetDefault(KeyTimelineStep, DefaultStep)
	v.SetDefault(KeyLanguage, DefaultLanguage)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadSettings reads the settings file at path. An empty path uses defaults
// and environment variables only.
func LoadSettings(path string, validate Validator) (*Settings, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrSettingsRead, err)
		}
	}
	return decode(v, validate)
}

// LoadSettingsFromBytes reads settings from memory.
// configType is a format supported by viper ("yaml", "json", "toml").
func LoadSettingsFromBytes(configType string, data []byte, validate Validator) (*Settings, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config type is required")
	}

	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrSettingsRead, err)
	}
	return decode(v, validate)
}

// WatchSettings loads the file at path and calls onChange with every valid
// reload. Invalid reloads are logged and ignored.
func WatchSettings(path string, validate Validator, onChange func(*Settings)) (*Settings, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrSettingsRead, err)
	}

	s, err := decode(v, validate)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		log := slog.With(
			LogKeyComponent, CompSettings,
			LogKeyFile, e.Name,
		)
		log.Info(MsgSettingsReload)

		next, err := decode(v, validate)
		if err != nil {
			log.Error(ErrInvalidSettings, LogKeyError, err)
			return
		}
		onChange(next)
	})
	v.WatchConfig()

	return s, nil
}

func decode(v *viper.Viper, validate Validator) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrSettingsDecode, err)
	}

	if validate != nil {
		if err := validate(&s); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrInvalidSettings, err)
		}
	}

	slog.Debug(MsgSettingsLoaded,
		LogKeyComponent, CompSettings,
		LogKeyPort, s.Server.Port,
		LogKeyExpr, s.Timeline.Expr,
	)
	return &s, nil
}
