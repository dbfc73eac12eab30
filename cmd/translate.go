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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/sefer/internal"
	"github.com/valpere/sefer/internal/chapter"
	"github.com/valpere/sefer/internal/config"
	"github.com/valpere/sefer/internal/metrics"
	"github.com/valpere/sefer/internal/orchestrator"
	"github.com/valpere/sefer/internal/prompt"
	"github.com/valpere/sefer/internal/reference"
	"github.com/valpere/sefer/internal/validator"
)

var translateCmd = &cobra.Command{
	Use:   "translate <reference>",
	Short: "Translate a chapter or a whole section",
	Long: `Translate a chapter passage by passage. Each prompt carries the whole
chapter as context with the passage to translate marked.

A reference is Title.Section for a section or Title.Section.Chapter for a
chapter, with spaces in the title written as underscores:

  sefer translate Pardes_Rimmonim.6.3
  sefer translate Pardes_Rimmonim.6 --format json,html,txt

Available generators:
  - anthropic   Anthropic Messages API (ANTHROPIC_API_KEY)
  - ollama      Ollama LLM (self-hosted)
  - openrouter  OpenRouter LLM (OPENROUTER_API_KEY)

Progress is checkpointed per passage; re-running a failed chapter resumes
at the first untranslated passage.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		client := newClient()
		ref, err := parseReference(ctx, client, args[0])
		if err != nil {
			return err
		}

		gen, err := newGenerator()
		if err != nil {
			return err
		}
		formats, err := cfg.OutputFormats()
		if err != nil {
			return err
		}

		m := metrics.New()
		builder := prompt.Builder{
			SourceLanguage: config.LanguageName(cfg.SourceLang),
			TargetLanguage: config.LanguageName(cfg.TargetLang),
		}
		opts := []orchestrator.Option{
			orchestrator.WithLogger(slog.Default()),
			orchestrator.WithMetrics(m),
			orchestrator.WithPrompt(builder, cfg.SourceLang, cfg.TargetLang),
		}

		if !cfg.NoDB {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()
			opts = append(opts, orchestrator.WithStore(db))
		}
		if cfg.CheckOutput {
			opts = append(opts, orchestrator.WithValidator(validator.New(cfg.TargetLang, cfg.SourceLang, cfg.TargetLang)))
		}

		orch, err := orchestrator.New(client, gen, newWriter(), formats, opts...)
		if err != nil {
			return err
		}

		start := time.Now()
		var results []*orchestrator.Result
		switch ref.Level() {
		case reference.LevelSection:
			results, err = orch.TranslateSection(ctx, ref)
		case reference.LevelChapter:
			ch, cerr := reference.AsChapter(ref)
			if cerr != nil {
				return cerr
			}
			var res *orchestrator.Result
			res, err = orch.TranslateChapter(ctx, ch)
			if res != nil {
				results = append(results, res)
			}
		default:
			return fmt.Errorf("%s names a single passage; translate its chapter instead: %w", ref, internal.ErrInvalidArgument)
		}

		printResults(results)
		fmt.Printf("Elapsed: %s\n", time.Since(start).Round(time.Millisecond))

		if cfg.MetricsFile != "" {
			if merr := m.WriteTextfile(cfg.MetricsFile); merr != nil {
				slog.Error("failed to write metrics", "path", cfg.MetricsFile, "error", merr)
			}
		}

		var overloaded *chapter.OverloadedError
		if errors.As(err, &overloaded) {
			return fmt.Errorf("%w; progress is saved, re-run the same command to resume", overloaded)
		}
		return err
	},
}

func printResults(results []*orchestrator.Result) {
	for _, r := range results {
		switch {
		case r.Skipped:
			fmt.Printf("%s: already translated, skipped\n", r.Ref)
		case r.Completed < r.Total:
			fmt.Printf("%s: %d/%d passages translated\n", r.Ref, r.Completed, r.Total)
		default:
			resumed := ""
			if r.Resumed {
				resumed = " (resumed)"
			}
			fmt.Printf("%s: %d passages translated%s\n", r.Ref, r.Total, resumed)
			for _, p := range r.Paths {
				fmt.Printf("  %s\n", p)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringP("provider", "p", "anthropic", "Generator: anthropic, ollama, openrouter")
	translateCmd.Flags().StringSliceP("model", "m", nil, "Model(s); ollama and openrouter rotate across several")
	translateCmd.Flags().String("api-key", "", "API key (defaults to ANTHROPIC_API_KEY or OPENROUTER_API_KEY)")
	translateCmd.Flags().String("base-url", "", "Generator base URL")
	translateCmd.Flags().Duration("timeout", 180*time.Second, "Timeout per generation request")
	translateCmd.Flags().Int("max-tokens", 1024, "Maximum tokens per generated passage")

	translateCmd.Flags().StringP("source", "s", "he", "Source language code")
	translateCmd.Flags().StringP("target", "t", "en", "Target language code")
	translateCmd.Flags().StringP("output-dir", "o", "saved_translations", "Directory for translated chapters")
	translateCmd.Flags().StringSliceP("format", "f", []string{"json", "html"}, "Output formats: json, html, txt, md")
	translateCmd.Flags().String("overwrite", "skip", "Existing chapters: skip or overwrite")
	translateCmd.Flags().Bool("validate", true, "Warn when a translation is not in the target language")
	translateCmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this file after the run")

	translateCmd.Flags().String("db", "", "Checkpoint database path")
	translateCmd.Flags().Bool("no-db", false, "Disable checkpoints and the glossary")
}
