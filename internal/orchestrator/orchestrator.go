// Package orchestrator runs chapter and section translations end to end:
// fetch, checkpoint, translate passage by passage and write the artifacts.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/valpere/sefer/internal"
	"github.com/valpere/sefer/internal/chapter"
	"github.com/valpere/sefer/internal/metrics"
	"github.com/valpere/sefer/internal/output"
	"github.com/valpere/sefer/internal/prompt"
	"github.com/valpere/sefer/internal/reference"
	"github.com/valpere/sefer/internal/store"
	"github.com/valpere/sefer/internal/translator"
	"github.com/valpere/sefer/internal/validator"
)

// Fetcher retrieves source passages.
type Fetcher interface {
	FetchChapter(ctx context.Context, ref reference.Chapter) ([]string, error)
	FetchSection(ctx context.Context, ref reference.Reference) ([][]string, error)
}

// Result describes the outcome for one chapter.
type Result struct {
	Ref       reference.Chapter
	Skipped   bool
	Resumed   bool
	Completed int
	Total     int
	Paths     []string
}

type Option func(*Orchestrator)

// WithStore enables checkpoints and the glossary.
func WithStore(s *store.Store) Option {
	return func(o *Orchestrator) {
		o.store = s
	}
}

// WithValidator logs a warning for every translation that fails validation.
func WithValidator(v *validator.Validator) Option {
	return func(o *Orchestrator) {
		o.validator = v
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithPrompt sets the prompt builder. sourceLang and targetLang are the ISO
// codes used to look up glossary terms.
func WithPrompt(b prompt.Builder, sourceLang, targetLang string) Option {
	return func(o *Orchestrator) {
		o.builder = b
		o.sourceLang, o.targetLang = sourceLang, targetLang
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

type Orchestrator struct {
	fetcher Fetcher
	gen     translator.Generator
	model   string
	writer  *output.Writer
	formats []output.Format

	store     *store.Store
	validator *validator.Validator
	metrics   *metrics.Metrics
	builder   prompt.Builder

	sourceLang string
	targetLang string

	logger *slog.Logger
	now    func() time.Time
}

// New creates an Orchestrator writing formats through w.
func New(fetcher Fetcher, gen translator.Generator, w *output.Writer, formats []output.Format, opts ...Option) (*Orchestrator, error) {
	if fetcher == nil || gen == nil || w == nil {
		return nil, errors.New("orchestrator: fetcher, generator and writer are required")
	}
	if len(formats) == 0 {
		return nil, errors.New("orchestrator: at least one output format is required")
	}

	o := &Orchestrator{
		fetcher:    fetcher,
		gen:        gen,
		model:      modelName(gen),
		writer:     w,
		formats:    formats,
		builder:    prompt.Default,
		sourceLang: "he",
		targetLang: "en",
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics != nil {
		o.gen = o.metrics.Instrument(o.gen)
	}
	return o, nil
}

func modelName(gen translator.Generator) string {
	if m, ok := gen.(interface{ Model() string }); ok && m.Model() != "" {
		return m.Model()
	}
	return gen.Name()
}

// TranslateChapter translates one chapter. On failure the returned error is
// a *chapter.OverloadedError or *chapter.TranslationFailedError and the
// passages translated so far remain in the checkpoint.
func (o *Orchestrator) TranslateChapter(ctx context.Context, ref reference.Chapter) (*Result, error) {
	return o.translate(ctx, ref, nil)
}

// TranslateSection translates every chapter of a section in order, stopping
// at the first chapter that fails.
func (o *Orchestrator) TranslateSection(ctx context.Context, ref reference.Reference) ([]*Result, error) {
	if ref.Level() != reference.LevelSection {
		return nil, fmt.Errorf("%s is not a section reference: %w", ref, internal.ErrInvalidArgument)
	}

	chapters, err := o.fetcher.FetchSection(ctx, ref)
	if err != nil {
		return nil, err
	}
	o.logger.Info("section fetched", "section", ref.String(), "chapters", len(chapters))

	var results []*Result
	for i, passages := range chapters {
		r, err := reference.New(ref.Title, ref.Section, i+1, 0)
		if err != nil {
			return results, err
		}
		ch, err := reference.AsChapter(r.WithLabels(ref.Labels))
		if err != nil {
			return results, err
		}
		if len(passages) == 0 {
			o.logger.Warn("chapter has no passages", "chapter", ch.String())
			continue
		}

		res, err := o.translate(ctx, ch, passages)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// translate runs one chapter. passages is fetched when nil.
func (o *Orchestrator) translate(ctx context.Context, ref reference.Chapter, passages []string) (*Result, error) {
	res := &Result{Ref: ref}

	if o.writer.Policy() == output.PolicySkip {
		exists, err := o.writer.AllExist(ref, o.formats)
		if err != nil {
			return nil, err
		}
		if exists {
			o.logger.Info("chapter already translated, skipping", "chapter", ref.String())
			o.countChapter(metrics.ResultSkipped)
			res.Skipped = true
			return res, nil
		}
	}

	builder, err := o.promptBuilder(ctx)
	if err != nil {
		return nil, err
	}

	var checkpointID string
	hook := func(p reference.Passage, original, translation string) {
		if o.metrics != nil {
			o.metrics.PassageTranslated()
		}
		if checkpointID != "" {
			// an interrupt after a successful generation must not lose the passage;
			// if the save still fails the passage is regenerated on resume
			if err := o.store.SaveTranslation(context.WithoutCancel(ctx), checkpointID, p.Number(), translation); err != nil {
				o.logger.Error("failed to save passage to checkpoint", "passage", p.String(), "error", err)
			}
		}
		if o.validator != nil {
			if err := o.validator.CheckPassage(original, translation); err != nil {
				o.logger.Warn("translation looks suspicious", "passage", p.String(), "reason", err)
			}
		}
	}
	opts := []chapter.Option{
		chapter.WithLogger(o.logger),
		chapter.WithPromptFunc(builder.Build),
		chapter.WithPassageHook(hook),
	}

	tr, retrievedAt, id, resumed, err := o.load(ctx, ref, passages, opts)
	if err != nil {
		return nil, err
	}
	checkpointID = id
	res.Resumed = resumed
	res.Total = tr.Len()

	if o.validator != nil {
		if lang, ok := o.validator.SourceLanguage(tr.Passages()[0]); ok {
			o.logger.Debug("source language detected", "chapter", ref.String(), "language", lang)
		}
	}

	_, err = tr.TranslateRemaining(ctx)
	res.Completed = tr.Completed()
	if err != nil {
		var overloaded *chapter.OverloadedError
		if errors.As(err, &overloaded) {
			o.countChapter(metrics.ResultOverloaded)
		} else {
			o.countChapter(metrics.ResultFailed)
		}
		return res, err
	}

	doc, err := output.FromTranslator(tr, o.model, retrievedAt, o.now())
	if err != nil {
		return res, err
	}
	for _, f := range o.formats {
		path, written, err := o.writer.WriteChapter(doc, f)
		if err != nil {
			return res, err
		}
		if written {
			res.Paths = append(res.Paths, path)
		}
	}

	if checkpointID != "" {
		if err := o.store.CompleteCheckpoint(ctx, checkpointID); err != nil {
			return res, fmt.Errorf("failed to complete checkpoint: %w", err)
		}
	}
	o.countChapter(metrics.ResultTranslated)
	return res, nil
}

// load resumes a checkpoint or starts a fresh translation. A completed
// checkpoint is reused under PolicySkip so missing artifacts are rendered
// without generating again.
func (o *Orchestrator) load(ctx context.Context, ref reference.Chapter, passages []string, opts []chapter.Option) (tr *chapter.Translator, retrievedAt time.Time, checkpointID string, resumed bool, err error) {
	if o.store != nil {
		cp, err := o.store.FindCheckpoint(ctx, ref)
		switch {
		case err == nil && o.resumable(cp):
			snap, err := o.store.LoadSnapshot(ctx, cp.ID)
			if err != nil {
				return nil, time.Time{}, "", false, err
			}
			// labels supplied by the caller win over the stored ones
			snap.Ref = ref.Ref()
			tr, err := chapter.Restore(snap, o.gen, opts...)
			if err != nil {
				return nil, time.Time{}, "", false, err
			}
			o.logger.Info("resuming chapter from checkpoint",
				"chapter", ref.String(),
				"status", cp.Status,
				"completed", tr.Completed(),
				"total", tr.Len())
			return tr, cp.RetrievedAt, cp.ID, true, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, time.Time{}, "", false, err
		}
	}

	if passages == nil {
		passages, err = o.fetcher.FetchChapter(ctx, ref)
		if err != nil {
			return nil, time.Time{}, "", false, err
		}
		o.logger.Info("chapter fetched", "chapter", ref.String(), "passages", len(passages))
	}
	retrievedAt = o.now()

	tr, err = chapter.New(ref, passages, o.gen, opts...)
	if err != nil {
		return nil, time.Time{}, "", false, err
	}

	if o.store != nil {
		checkpointID, err = o.store.CreateCheckpoint(ctx, tr.Snapshot(), o.gen.Name(), retrievedAt)
		if err != nil {
			return nil, time.Time{}, "", false, fmt.Errorf("failed to create checkpoint: %w", err)
		}
	}
	return tr, retrievedAt, checkpointID, false, nil
}

func (o *Orchestrator) resumable(cp *store.Checkpoint) bool {
	switch cp.Status {
	case store.StatusRunning:
		return true
	case store.StatusCompleted:
		return o.writer.Policy() == output.PolicySkip
	}
	return false
}

func (o *Orchestrator) promptBuilder(ctx context.Context) (prompt.Builder, error) {
	b := o.builder
	if o.store == nil {
		return b, nil
	}
	terms, err := o.store.GetGlossaryTerms(ctx, o.sourceLang, o.targetLang)
	if err != nil {
		return b, fmt.Errorf("failed to load glossary: %w", err)
	}
	if len(terms) == 0 {
		return b, nil
	}
	merged := make(map[string]string, len(b.Glossary)+len(terms))
	for k, v := range b.Glossary {
		merged[k] = v
	}
	for k, v := range terms {
		merged[k] = v
	}
	b.Glossary = merged
	return b, nil
}

func (o *Orchestrator) countChapter(result string) {
	if o.metrics != nil {
		o.metrics.Chapter(result)
	}
}
