package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/sefer/internal"
	"github.com/valpere/sefer/internal/output"
)

func defaults(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(defaults(t))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Generator.Provider)
	assert.Equal(t, 180*time.Second, cfg.Generator.Timeout)
	assert.Equal(t, 1024, cfg.Generator.MaxTokens)
	assert.Equal(t, "he", cfg.SourceLang)
	assert.Equal(t, "en", cfg.TargetLang)
	assert.Equal(t, output.PolicySkip, cfg.Policy())
	assert.True(t, cfg.CheckOutput)

	formats, err := cfg.OutputFormats()
	require.NoError(t, err)
	assert.Equal(t, []output.Format{output.FormatJSON, output.FormatHTML}, formats)
}

func TestNewViper_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sefer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
generator:
  provider: ollama
  models: [aya:35b]
  timeout: 45s
output_dir: /tmp/out
formats: [txt]
overwrite: overwrite
labels:
  section: Gate
`), 0o644))

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Generator.Provider)
	assert.Equal(t, []string{"aya:35b"}, cfg.Generator.Models)
	assert.Equal(t, 45*time.Second, cfg.Generator.Timeout)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, output.PolicyOverwrite, cfg.Policy())
	assert.Equal(t, "Gate", cfg.Labels.Section)
}

func TestNewViper_MissingFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewViper_Env(t *testing.T) {
	t.Setenv("SEFER_GENERATOR_PROVIDER", "openrouter")
	t.Setenv("SEFER_TARGET_LANG", "fr")

	v, err := NewViper("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "openrouter", cfg.Generator.Provider)
	assert.Equal(t, "fr", cfg.TargetLang)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]interface{}
	}{
		{name: "bad language", set: map[string]interface{}{"target_lang": "not a language"}},
		{name: "bad provider", set: map[string]interface{}{"generator.provider": "google"}},
		{name: "bad format", set: map[string]interface{}{"formats": []string{"pdf"}}},
		{name: "no formats", set: map[string]interface{}{"formats": []string{}}},
		{name: "bad policy", set: map[string]interface{}{"overwrite": "ask"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := defaults(t)
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			assert.ErrorIs(t, err, internal.ErrInvalidArgument)
		})
	}
}

func TestOutputFormats_CommaSeparated(t *testing.T) {
	cfg := Config{Formats: []string{"json,html", "json"}}
	got, err := cfg.OutputFormats()
	require.NoError(t, err)
	assert.Equal(t, []output.Format{output.FormatJSON, output.FormatHTML}, got)
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Hebrew", LanguageName("he"))
	assert.Equal(t, "English", LanguageName("en"))
	assert.Equal(t, "??", LanguageName("??"))
}
