// Package config provides configuration types and defaults for defluff.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/zjrosen/defluff/internal/log"
	"github.com/zjrosen/defluff/internal/rules"
)

// HighlightStyle selects how spans are drawn. It has no effect on matching.
type HighlightStyle string

const (
	StyleDim           HighlightStyle = "dim"
	StyleWavyUnderline HighlightStyle = "wavy-underline"
	StyleStrikethrough HighlightStyle = "strikethrough"
	StyleNone          HighlightStyle = "none"
)

// HighlightStyles lists every accepted style.
var HighlightStyles = []HighlightStyle{StyleDim, StyleWavyUnderline, StyleStrikethrough, StyleNone}

// Settings holds all configuration options for defluff.
type Settings struct {
	// Enabled gates all scanning.
	Enabled bool `mapstructure:"enabled"`

	HighlightStyle HighlightStyle `mapstructure:"highlight_style" validate:"oneof=dim wavy-underline strikethrough none"`

	// CustomWordList is one phrase per line; a leading "-" excludes a built-in phrase.
	CustomWordList string `mapstructure:"custom_word_list"`

	Categories CategoryToggles `mapstructure:"categories"`

	// Language selects the built-in ruleset.
	Language rules.Language `mapstructure:"language" validate:"oneof=en de"`

	Tracing TracingConfig `mapstructure:"tracing"`
}

// CategoryToggles has one switch per built-in category.
type CategoryToggles struct {
	WeakQualifier bool `mapstructure:"weak_qualifier"`
	FillerWord    bool `mapstructure:"filler_word"`
	WeaselWord    bool `mapstructure:"weasel_word"`
	Jargon        bool `mapstructure:"jargon"`
	Complexity    bool `mapstructure:"complexity"`
	Redundancy    bool `mapstructure:"redundancy"`
}

// Enabled reports whether rules of category c are active. Custom rules have no
// toggle and are always active.
func (t CategoryToggles) Enabled(c rules.Category) bool {
	switch c {
	case rules.WeakQualifier:
		return t.WeakQualifier
	case rules.FillerWord:
		return t.FillerWord
	case rules.WeaselWord:
		return t.WeaselWord
	case rules.Jargon:
		return t.Jargon
	case rules.Complexity:
		return t.Complexity
	case rules.Redundancy:
		return t.Redundancy
	case rules.Custom:
		return true
	default:
		return false
	}
}

// Set returns a copy with category c switched on or off. Custom is ignored.
func (t CategoryToggles) Set(c rules.Category, on bool) CategoryToggles {
	switch c {
	case rules.WeakQualifier:
		t.WeakQualifier = on
	case rules.FillerWord:
		t.FillerWord = on
	case rules.WeaselWord:
		t.WeaselWord = on
	case rules.Jargon:
		t.Jargon = on
	case rules.Complexity:
		t.Complexity = on
	case rules.Redundancy:
		t.Redundancy = on
	}
	return t
}

// Active returns the enabled built-in categories in declaration order.
func (t CategoryToggles) Active() []rules.Category {
	var out []rules.Category
	for _, c := range rules.BuiltinCategories {
		if t.Enabled(c) {
			out = append(out, c)
		}
	}
	return out
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter" validate:"omitempty,oneof=none file stdout otlp"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/defluff/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/defluff/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "defluff", "traces", "traces.jsonl")
}

// LocalConfigPath is the project-level config file, checked first.
const LocalConfigPath = ".defluff/config.yaml"

// UserConfigDir returns ~/.config/defluff or empty string if home dir unavailable.
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "defluff")
}

// Defaults returns Settings with sensible default values.
func Defaults() Settings {
	return Settings{
		Enabled:        true,
		HighlightStyle: StyleDim,
		CustomWordList: "",
		Categories: CategoryToggles{
			WeakQualifier: true,
			FillerWord:    true,
			WeaselWord:    true,
			Jargon:        true,
			Complexity:    true,
			Redundancy:    true,
		},
		Language: rules.English,
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// SetDefaults registers every default on v so a partial file still yields
// complete settings.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("enabled", d.Enabled)
	v.SetDefault("highlight_style", string(d.HighlightStyle))
	v.SetDefault("custom_word_list", d.CustomWordList)
	v.SetDefault("language", string(d.Language))
	v.SetDefault("categories.weak_qualifier", d.Categories.WeakQualifier)
	v.SetDefault("categories.filler_word", d.Categories.FillerWord)
	v.SetDefault("categories.weasel_word", d.Categories.WeaselWord)
	v.SetDefault("categories.jargon", d.Categories.Jargon)
	v.SetDefault("categories.complexity", d.Categories.Complexity)
	v.SetDefault("categories.redundancy", d.Categories.Redundancy)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
}

// FromMap decodes a partial settings snapshot over Defaults. Keys that are
// absent keep their default value.
func FromMap(m map[string]any) (Settings, error) {
	s := Defaults()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Defaults(), fmt.Errorf("creating decoder: %w", err)
	}
	if err := dec.Decode(m); err != nil {
		return Defaults(), fmt.Errorf("decoding settings: %w", err)
	}
	return s, nil
}

// Load reads settings from v. Loading never fails outright: invalid fields are
// reset to their defaults and reported in the returned error.
func Load(v *viper.Viper) (Settings, error) {
	s, err := FromMap(v.AllSettings())
	if err != nil {
		log.ErrorErr(log.CatConfig, "Failed to decode settings, using defaults", err)
		return s, err
	}
	return Sanitize(s)
}

// ErrReadConfig is returned by LoadFile when the file cannot be read or parsed.
// Other LoadFile errors describe fields that were reset to their defaults.
var ErrReadConfig = errors.New("reading config")

// LoadFile reads settings from a YAML file at path.
func LoadFile(path string) (Settings, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Defaults(), fmt.Errorf("%w: %w", ErrReadConfig, err)
	}
	return Load(v)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks settings for errors.
func Validate(s Settings) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return ValidateTracing(s.Tracing)
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled && tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}

	return nil
}

// Sanitize normalizes s and resets every invalid field to its default.
// The returned error lists what was reset; the returned settings are always usable.
func Sanitize(s Settings) (Settings, error) {
	d := Defaults()
	s.HighlightStyle = HighlightStyle(strings.ToLower(strings.TrimSpace(string(s.HighlightStyle))))
	if lang, err := rules.ParseLanguage(string(s.Language)); err == nil {
		s.Language = lang
	}

	var errs []error
	var verrs validator.ValidationErrors
	if err := validate.Struct(s); errors.As(err, &verrs) {
		for _, fe := range verrs {
			switch ns := fe.StructNamespace(); {
			case ns == "Settings.HighlightStyle":
				s.HighlightStyle = d.HighlightStyle
			case ns == "Settings.Language":
				s.Language = d.Language
			case strings.HasPrefix(ns, "Settings.Tracing."):
				s.Tracing = d.Tracing
			}
			errs = append(errs, fmt.Errorf("%s: invalid value %v", fe.Namespace(), fe.Value()))
		}
	}
	if err := ValidateTracing(s.Tracing); err != nil {
		s.Tracing = d.Tracing
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		log.Warn(log.CatConfig, "Invalid settings reset to defaults", "error", err)
		return s, err
	}
	return s, nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# defluff configuration

# Highlight fluff phrases at all
enabled: true

# How highlighted phrases are drawn: dim, wavy-underline, strikethrough, none
highlight_style: dim

# Built-in ruleset: en or de
language: en

# Built-in categories
categories:
  weak_qualifier: true   # basically, just, very ...
  filler_word: true      # you know, needless to say ...
  weasel_word: true      # studies show, experts agree ...
  jargon: true           # paradigm shift, move the needle ...
  complexity: true       # in order to, utilize ...
  redundancy: true       # combine together, each and every ...

# Your own phrases, one per line.
# A line starting with "-" turns off a built-in phrase instead.
custom_word_list: ""
# custom_word_list: |
#   synergize
#   circle back
#   -just

# Distributed tracing of scans
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/defluff/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
