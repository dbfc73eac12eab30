// Package config loads run settings from a config file, SEFER_* environment
// variables and command flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/valpere/sefer/internal"
	"github.com/valpere/sefer/internal/output"
	"github.com/valpere/sefer/internal/reference"
	"github.com/valpere/sefer/internal/translator"
)

const EnvPrefix = "SEFER"

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Generator translator.ServiceConfig `mapstructure:"generator"`

	SefariaURL string `mapstructure:"sefaria_url"`
	SourceLang string `mapstructure:"source_lang"`
	TargetLang string `mapstructure:"target_lang"`

	// Labels override the level names reported by the Sefaria index.
	Labels reference.Labels `mapstructure:"labels"`

	OutputDir string   `mapstructure:"output_dir"`
	Formats   []string `mapstructure:"formats"`
	Overwrite string   `mapstructure:"overwrite"`

	DBPath      string `mapstructure:"db_path"`
	NoDB        bool   `mapstructure:"no_db"`
	CheckOutput bool   `mapstructure:"validate"`
	MetricsFile string `mapstructure:"metrics_file"`

	Log LogConfig `mapstructure:"log"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("generator.provider", "anthropic")
	v.SetDefault("generator.timeout", 180*time.Second)
	v.SetDefault("generator.max_tokens", 1024)
	v.SetDefault("sefaria_url", "https://www.sefaria.org")
	v.SetDefault("source_lang", "he")
	v.SetDefault("target_lang", "en")
	v.SetDefault("output_dir", "saved_translations")
	v.SetDefault("formats", []string{"json", "html"})
	v.SetDefault("overwrite", string(output.PolicySkip))
	v.SetDefault("db_path", defaultDBPath())
	v.SetDefault("validate", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func defaultDBPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "sefer.db"
	}
	return filepath.Join(dir, "sefer", "sefer.db")
}

// NewViper prepares a viper instance reading configFile, or sefer.yaml from
// the working directory or the user config directory when configFile is empty.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// nested keys are only seen by AutomaticEnv once bound
	for _, key := range []string{"generator.provider", "generator.api_key", "generator.base_url", "generator.models", "generator.timeout", "generator.max_tokens", "log.level", "log.format"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("sefer")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "sefer"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Generator.APIKey == "" && strings.EqualFold(cfg.Generator.Provider, "openrouter") {
		cfg.Generator.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be checked by decoding alone.
func (c *Config) Validate() error {
	if _, err := language.Parse(c.SourceLang); err != nil {
		return fmt.Errorf("invalid source_lang %q: %w", c.SourceLang, internal.ErrInvalidArgument)
	}
	if _, err := language.Parse(c.TargetLang); err != nil {
		return fmt.Errorf("invalid target_lang %q: %w", c.TargetLang, internal.ErrInvalidArgument)
	}
	if _, err := c.OutputFormats(); err != nil {
		return err
	}
	if _, err := output.ParsePolicy(c.Overwrite); err != nil {
		return err
	}

	known := false
	for _, p := range translator.Providers {
		if strings.EqualFold(p, c.Generator.Provider) {
			known = true
		}
	}
	if !known {
		return fmt.Errorf("unknown generator provider %q (supported: %s): %w",
			c.Generator.Provider, strings.Join(translator.Providers, ", "), internal.ErrInvalidArgument)
	}
	return nil
}

// OutputFormats parses Formats.
func (c *Config) OutputFormats() ([]output.Format, error) {
	if len(c.Formats) == 0 {
		return nil, fmt.Errorf("at least one output format is required: %w", internal.ErrInvalidArgument)
	}
	var formats []output.Format
	seen := make(map[output.Format]bool)
	for _, s := range c.Formats {
		// "json,html" arrives as one element from environment variables
		for _, part := range strings.Split(s, ",") {
			f, err := output.ParseFormat(part)
			if err != nil {
				return nil, err
			}
			if !seen[f] {
				seen[f] = true
				formats = append(formats, f)
			}
		}
	}
	return formats, nil
}

// Policy returns the parsed overwrite policy.
func (c *Config) Policy() output.Policy {
	p, err := output.ParsePolicy(c.Overwrite)
	if err != nil {
		return output.PolicySkip
	}
	return p
}

// LanguageName returns the English name of an ISO code, e.g. "he" → "Hebrew".
func LanguageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}
