// Package translator provides the text-generation backends used to translate
// passages: Anthropic, Ollama and OpenRouter. Every backend takes an opaque
// prompt and returns the generated text.
package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valpere/sefer/internal"
)

// ServiceConfig selects and configures a generation backend.
type ServiceConfig struct {
	Provider  string        `mapstructure:"provider" json:"provider"`
	APIKey    string        `mapstructure:"api_key" json:"-"`
	Models    []string      `mapstructure:"models" json:"models"`
	BaseURL   string        `mapstructure:"base_url" json:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxTokens int           `mapstructure:"max_tokens" json:"max_tokens"`
}

// Generator turns a prompt into generated text. Implementations return
// *GenerationError on failure.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Providers lists the backend names accepted by New.
var Providers = []string{"anthropic", "ollama", "openrouter"}

// New constructs the backend named by cfg.Provider.
func New(cfg ServiceConfig) (Generator, error) {
	var g interface {
		Generator
		setTimeout(time.Duration)
	}

	switch strings.ToLower(cfg.Provider) {
	case "anthropic":
		model := ""
		if len(cfg.Models) > 0 {
			model = cfg.Models[0]
		}
		g = NewAnthropic(cfg.APIKey, cfg.BaseURL, model, cfg.MaxTokens)
	case "ollama":
		g = NewOllama(cfg.BaseURL, cfg.Models)
	case "openrouter":
		g = NewOpenRouter(cfg.APIKey, cfg.BaseURL, cfg.Models, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: %s): %w",
			cfg.Provider, strings.Join(Providers, ", "), internal.ErrInvalidArgument)
	}

	if cfg.Timeout > 0 {
		g.setTimeout(cfg.Timeout)
	}
	return g, nil
}
