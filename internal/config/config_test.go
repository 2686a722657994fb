package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/defluff/internal/rules"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.True(t, cfg.Enabled)
	require.Equal(t, StyleDim, cfg.HighlightStyle)
	require.Equal(t, rules.English, cfg.Language)
	require.Empty(t, cfg.CustomWordList)
	require.Equal(t, rules.BuiltinCategories, cfg.Categories.Active())
	require.NoError(t, Validate(cfg))
}

func TestCategoryToggles_Enabled(t *testing.T) {
	var toggles CategoryToggles
	for _, c := range rules.BuiltinCategories {
		require.False(t, toggles.Enabled(c), "%s", c)
		require.True(t, toggles.Set(c, true).Enabled(c), "%s", c)
	}
	require.True(t, toggles.Enabled(rules.Custom), "custom rules have no toggle")
}

func TestCategoryToggles_SetIsolated(t *testing.T) {
	toggles := Defaults().Categories.Set(rules.Jargon, false)

	require.False(t, toggles.Jargon)
	require.True(t, toggles.Redundancy)
	require.NotContains(t, toggles.Active(), rules.Jargon)
	require.Len(t, toggles.Active(), len(rules.BuiltinCategories)-1)
}

func TestFromMap_PartialSnapshot(t *testing.T) {
	s, err := FromMap(map[string]any{
		"enabled":    false,
		"categories": map[string]any{"jargon": false},
	})
	require.NoError(t, err)

	require.False(t, s.Enabled)
	require.False(t, s.Categories.Jargon)
	require.True(t, s.Categories.Redundancy, "missing keys keep defaults")
	require.Equal(t, StyleDim, s.HighlightStyle)
	require.Equal(t, rules.English, s.Language)
}

func TestFromMap_Empty(t *testing.T) {
	s, err := FromMap(nil)
	require.NoError(t, err)
	require.Equal(t, Defaults(), s)
}

func TestFromMap_WrongType(t *testing.T) {
	s, err := FromMap(map[string]any{"categories": "all"})
	require.Error(t, err)
	require.Equal(t, Defaults(), s)
}

func TestSanitize_ResetsInvalidFields(t *testing.T) {
	s := Defaults()
	s.HighlightStyle = "sparkle"
	s.Language = "fr"
	s.Enabled = false

	got, err := Sanitize(s)
	require.Error(t, err)
	require.Contains(t, err.Error(), "HighlightStyle")
	require.Contains(t, err.Error(), "Language")
	require.Equal(t, StyleDim, got.HighlightStyle)
	require.Equal(t, rules.English, got.Language)
	require.False(t, got.Enabled, "valid fields are kept")
}

func TestSanitize_Normalizes(t *testing.T) {
	s := Defaults()
	s.HighlightStyle = " Wavy-Underline "
	s.Language = "Deutsch"

	got, err := Sanitize(s)
	require.NoError(t, err)
	require.Equal(t, StyleWavyUnderline, got.HighlightStyle)
	require.Equal(t, rules.German, got.Language)
}

func TestValidateTracing(t *testing.T) {
	tests := []struct {
		name    string
		tracing TracingConfig
		wantErr string
	}{
		{name: "defaults", tracing: Defaults().Tracing},
		{name: "bad rate", tracing: TracingConfig{SampleRate: 1.5}, wantErr: "sample_rate"},
		{name: "bad exporter", tracing: TracingConfig{Exporter: "kafka", SampleRate: 1}, wantErr: "exporter"},
		{name: "otlp without endpoint", tracing: TracingConfig{Enabled: true, Exporter: "otlp", SampleRate: 1}, wantErr: "otlp_endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTracing(tt.tracing)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSanitize_BadTracingFallsBack(t *testing.T) {
	s := Defaults()
	s.Tracing.SampleRate = 7

	got, err := Sanitize(s)
	require.Error(t, err)
	require.Equal(t, Defaults().Tracing, got.Tracing)
}

func TestLoad_ViperDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	s, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, Defaults(), s)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `enabled: true
highlight_style: strikethrough
language: de
categories:
  weasel_word: false
custom_word_list: |
  synergize
  -schon
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, StyleStrikethrough, s.HighlightStyle)
	require.Equal(t, rules.German, s.Language)
	require.False(t, s.Categories.WeaselWord)
	require.True(t, s.Categories.FillerWord)
	require.Equal(t, "synergize\n-schon\n", s.CustomWordList)
}

func TestLoadFile_Missing(t *testing.T) {
	s, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, ErrReadConfig)
	require.Equal(t, Defaults(), s)
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	s, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, Defaults(), s, "template must decode to the defaults")
}
