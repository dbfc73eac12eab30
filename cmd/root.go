/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/sefer/internal/config"
	"github.com/valpere/sefer/internal/logging"
)

var version = "0.1.0"

var (
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sefer",
	Short: "Chapter-context LLM translator for Sefaria texts",
	Long: `A CLI application that translates sectioned religious texts from Sefaria
passage by passage, giving the language model the whole chapter as context.

Supported generators: Anthropic, Ollama (self-hosted), OpenRouter

Use "sefer translate --help" for translation options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd); err != nil {
			return err
		}
		loaded, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// flagKeys maps command flags to config keys.
var flagKeys = map[string]string{
	"log-level":    "log.level",
	"log-format":   "log.format",
	"db":           "db_path",
	"no-db":        "no_db",
	"provider":     "generator.provider",
	"model":        "generator.models",
	"api-key":      "generator.api_key",
	"base-url":     "generator.base_url",
	"timeout":      "generator.timeout",
	"max-tokens":   "generator.max_tokens",
	"sefaria-url":  "sefaria_url",
	"source":       "source_lang",
	"target":       "target_lang",
	"output-dir":   "output_dir",
	"format":       "formats",
	"overwrite":    "overwrite",
	"validate":     "validate",
	"metrics-file": "metrics_file",
}

func bindFlags(cmd *cobra.Command) error {
	var err error
	v, err = config.NewViper(cfgFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind --%s: %w", name, err)
			}
		}
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./sefer.yaml or $XDG_CONFIG_HOME/sefer/sefer.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().String("sefaria-url", "https://www.sefaria.org", "Sefaria base URL")
}
