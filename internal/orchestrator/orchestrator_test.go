package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/valpere/sefer/internal"
	"github.com/valpere/sefer/internal/chapter"
	"github.com/valpere/sefer/internal/metrics"
	"github.com/valpere/sefer/internal/output"
	"github.com/valpere/sefer/internal/postprocess"
	"github.com/valpere/sefer/internal/prompt"
	"github.com/valpere/sefer/internal/reference"
	"github.com/valpere/sefer/internal/store"
)

type mockFetcher struct {
	chapters map[string][]string
	section  [][]string

	mu           sync.Mutex
	chapterCalls int
	sectionCalls int
}

func (f *mockFetcher) FetchChapter(_ context.Context, ref reference.Chapter) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chapterCalls++
	p, ok := f.chapters[ref.String()]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}

func (f *mockFetcher) FetchSection(_ context.Context, _ reference.Reference) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sectionCalls++
	return f.section, nil
}

// mockGenerator translates the marked passage as "EN:<passage>" and fails
// for passages listed in fail.
type mockGenerator struct {
	fail map[string]error
	// afterCall runs after each successful generation with the call count.
	afterCall func(n int)

	mu      sync.Mutex
	calls   int
	prompts []string
}

func (g *mockGenerator) Name() string { return "mock" }

func (g *mockGenerator) Generate(_ context.Context, p string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, p)

	open := "<" + postprocess.MarkerTag + ">"
	start := strings.Index(p, open) + len(open)
	end := strings.Index(p, "</"+postprocess.MarkerTag+">")
	passage := p[start:end]
	if err, ok := g.fail[passage]; ok {
		return "", err
	}
	if g.afterCall != nil {
		g.afterCall(g.calls)
	}
	return "EN:" + passage, nil
}

func testChapter(t *testing.T, number int) reference.Chapter {
	t.Helper()
	r, err := reference.New("Pardes_Rimmonim", 6, number, 0)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := reference.AsChapter(r)
	if err != nil {
		t.Fatal(err)
	}
	return ch
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "sefer.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newOrchestrator(t *testing.T, f Fetcher, g *mockGenerator, dir string, opts ...Option) *Orchestrator {
	t.Helper()
	w := output.NewWriter(dir, output.PolicySkip, nil)
	o, err := New(f, g, w, []output.Format{output.FormatJSON, output.FormatText}, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestNew_Validation(t *testing.T) {
	w := output.NewWriter(t.TempDir(), output.PolicySkip, nil)
	if _, err := New(nil, &mockGenerator{}, w, []output.Format{output.FormatJSON}); err == nil {
		t.Error("expected error for nil fetcher")
	}
	if _, err := New(&mockFetcher{}, &mockGenerator{}, w, nil); err == nil {
		t.Error("expected error for no formats")
	}
}

func TestTranslateChapter_WritesArtifacts(t *testing.T) {
	ctx := context.Background()
	ch := testChapter(t, 1)
	f := &mockFetcher{chapters: map[string][]string{ch.String(): {"A", "B", "C"}}}
	g := &mockGenerator{}
	s := newStore(t)
	m := metrics.New()
	dir := t.TempDir()

	o := newOrchestrator(t, f, g, dir, WithStore(s), WithMetrics(m))
	res, err := o.TranslateChapter(ctx, ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Completed != 3 || res.Total != 3 || res.Skipped || res.Resumed {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(res.Paths) != 2 {
		t.Fatalf("expected 2 written files, got %v", res.Paths)
	}

	doc, err := output.ReadChapter(res.Paths[0])
	if err != nil {
		t.Fatalf("ReadChapter: %v", err)
	}
	want := []internal.TranslatedPassage{
		{Original: "A", Translation: "EN:A"},
		{Original: "B", Translation: "EN:B"},
		{Original: "C", Translation: "EN:C"},
	}
	got := doc.Pairs()
	if len(got) != len(want) {
		t.Fatalf("expected %d pairs, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
	if doc.ModelVersion != "mock" {
		t.Errorf("expected model version 'mock', got %q", doc.ModelVersion)
	}

	cp, err := s.FindCheckpoint(ctx, ch)
	if err != nil {
		t.Fatalf("FindCheckpoint: %v", err)
	}
	if cp.Status != store.StatusCompleted || cp.Completed != 3 {
		t.Errorf("expected completed checkpoint, got %+v", cp)
	}

	if v := counterValue(t, m, "sefer_passages_translated_total"); v != 3 {
		t.Errorf("expected 3 passages counted, got %v", v)
	}
}

func TestTranslateChapter_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	ch := testChapter(t, 1)
	f := &mockFetcher{chapters: map[string][]string{ch.String(): {"A", "B"}}}
	g := &mockGenerator{}
	o := newOrchestrator(t, f, g, t.TempDir())

	if _, err := o.TranslateChapter(ctx, ch); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := o.TranslateChapter(ctx, ch)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !res.Skipped {
		t.Error("expected chapter to be skipped")
	}
	if g.calls != 2 || f.chapterCalls != 1 {
		t.Errorf("expected no work on second run, got %d generations and %d fetches", g.calls, f.chapterCalls)
	}
}

func TestTranslateChapter_ResumesAfterFailure(t *testing.T) {
	ctx := context.Background()
	ch := testChapter(t, 2)
	f := &mockFetcher{chapters: map[string][]string{ch.String(): {"A", "B", "C"}}}
	s := newStore(t)
	dir := t.TempDir()

	failing := &mockGenerator{fail: map[string]error{"B": errors.New("connection reset")}}
	res, err := newOrchestrator(t, f, failing, dir, WithStore(s)).TranslateChapter(ctx, ch)

	var failed *chapter.TranslationFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected *TranslationFailedError, got %v", err)
	}
	if failed.Passage != 2 || failed.Completed != 1 || failed.Total != 3 {
		t.Errorf("unexpected failure details: %+v", failed)
	}
	if res == nil || res.Completed != 1 || len(res.Paths) != 0 {
		t.Errorf("unexpected partial result: %+v", res)
	}

	cp, err := s.FindCheckpoint(ctx, ch)
	if err != nil {
		t.Fatalf("FindCheckpoint: %v", err)
	}
	if cp.Status != store.StatusRunning || cp.Completed != 1 {
		t.Errorf("expected running checkpoint with 1 passage, got %+v", cp)
	}

	working := &mockGenerator{}
	res, err = newOrchestrator(t, f, working, dir, WithStore(s)).TranslateChapter(ctx, ch)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !res.Resumed || res.Completed != 3 {
		t.Errorf("unexpected resume result: %+v", res)
	}
	if working.calls != 2 {
		t.Errorf("expected 2 generations on resume, got %d", working.calls)
	}
	if f.chapterCalls != 1 {
		t.Errorf("expected chapter to be fetched once, got %d", f.chapterCalls)
	}

	doc, err := output.ReadChapter(res.Paths[0])
	if err != nil {
		t.Fatalf("ReadChapter: %v", err)
	}
	if doc.Passages[0].Translation != "EN:A" || doc.Passages[2].Translation != "EN:C" {
		t.Errorf("unexpected passages: %+v", doc.Passages)
	}
}

func TestTranslateChapter_CompletedCheckpointRendersMissingFormat(t *testing.T) {
	ctx := context.Background()
	ch := testChapter(t, 4)
	f := &mockFetcher{chapters: map[string][]string{ch.String(): {"A", "B"}}}
	s := newStore(t)
	dir := t.TempDir()

	first := &mockGenerator{}
	if _, err := newOrchestrator(t, f, first, dir, WithStore(s)).TranslateChapter(ctx, ch); err != nil {
		t.Fatalf("first run: %v", err)
	}

	w := output.NewWriter(dir, output.PolicySkip, nil)
	second := &mockGenerator{}
	o, err := New(f, second, w, []output.Format{output.FormatJSON, output.FormatMarkdown}, WithStore(s))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := o.TranslateChapter(ctx, ch)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.calls != 0 || f.chapterCalls != 1 {
		t.Errorf("expected no generation or fetch, got %d generations and %d fetches", second.calls, f.chapterCalls)
	}
	if !res.Resumed || len(res.Paths) != 1 {
		t.Fatalf("expected only the markdown file to be written, got %+v", res)
	}
	if filepath.Ext(res.Paths[0]) != ".md" {
		t.Errorf("expected markdown path, got %s", res.Paths[0])
	}
}

func TestTranslateChapter_OverwriteIgnoresCompletedCheckpoint(t *testing.T) {
	ctx := context.Background()
	ch := testChapter(t, 5)
	f := &mockFetcher{chapters: map[string][]string{ch.String(): {"A"}}}
	s := newStore(t)
	dir := t.TempDir()

	if _, err := newOrchestrator(t, f, &mockGenerator{}, dir, WithStore(s)).TranslateChapter(ctx, ch); err != nil {
		t.Fatalf("first run: %v", err)
	}

	g := &mockGenerator{}
	w := output.NewWriter(dir, output.PolicyOverwrite, nil)
	o, err := New(f, g, w, []output.Format{output.FormatJSON}, WithStore(s))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := o.TranslateChapter(ctx, ch)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Resumed || g.calls != 1 || f.chapterCalls != 2 {
		t.Errorf("expected a fresh translation, got resumed=%v generations=%d fetches=%d", res.Resumed, g.calls, f.chapterCalls)
	}
}

func TestTranslateChapter_InterruptKeepsFinishedPassage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := testChapter(t, 6)
	f := &mockFetcher{chapters: map[string][]string{ch.String(): {"A", "B", "C"}}}
	s := newStore(t)

	// the interrupt lands after passage 1 was generated but before it is saved
	g := &mockGenerator{afterCall: func(n int) {
		if n == 1 {
			cancel()
		}
	}}
	_, err := newOrchestrator(t, f, g, t.TempDir(), WithStore(s)).TranslateChapter(ctx, ch)
	if err == nil {
		t.Fatal("expected the cancelled run to fail")
	}

	cp, err := s.FindCheckpoint(context.Background(), ch)
	if err != nil {
		t.Fatalf("FindCheckpoint: %v", err)
	}
	if cp.Completed != 1 {
		t.Errorf("expected the finished passage to be saved, got %d", cp.Completed)
	}
}

func TestTranslateChapter_Overloaded(t *testing.T) {
	ch := testChapter(t, 1)
	f := &mockFetcher{chapters: map[string][]string{ch.String(): {"A", "B"}}}
	g := &mockGenerator{fail: map[string]error{"A": errors.New("Error code: 529 - overloaded")}}
	m := metrics.New()

	_, err := newOrchestrator(t, f, g, t.TempDir(), WithMetrics(m)).TranslateChapter(context.Background(), ch)

	var overloaded *chapter.OverloadedError
	if !errors.As(err, &overloaded) {
		t.Fatalf("expected *OverloadedError, got %v", err)
	}
	if v := counterValue(t, m, "sefer_chapters_total"); v != 1 {
		t.Errorf("expected 1 chapter counted, got %v", v)
	}
}

func TestTranslateChapter_FetchError(t *testing.T) {
	f := &mockFetcher{}
	_, err := newOrchestrator(t, f, &mockGenerator{}, t.TempDir()).TranslateChapter(context.Background(), testChapter(t, 9))
	if err == nil {
		t.Fatal("expected fetch error")
	}
}

func TestTranslateChapter_Glossary(t *testing.T) {
	ctx := context.Background()
	ch := testChapter(t, 1)
	f := &mockFetcher{chapters: map[string][]string{ch.String(): {"חסד"}}}
	g := &mockGenerator{}
	s := newStore(t)
	if _, err := s.AddGlossaryTerm(ctx, "he", "en", "חסד", "Lovingkindness"); err != nil {
		t.Fatalf("AddGlossaryTerm: %v", err)
	}

	o := newOrchestrator(t, f, g, t.TempDir(), WithStore(s), WithPrompt(prompt.Default, "he", "en"))
	if _, err := o.TranslateChapter(ctx, ch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(g.prompts[0], "חסד → Lovingkindness") {
		t.Errorf("expected glossary term in prompt:\n%s", g.prompts[0])
	}
}

func TestTranslateSection(t *testing.T) {
	ctx := context.Background()
	f := &mockFetcher{section: [][]string{{"A", "B"}, {}, {"C"}}}
	g := &mockGenerator{}
	dir := t.TempDir()
	o := newOrchestrator(t, f, g, dir)

	section, err := reference.New("Pardes_Rimmonim", 6, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	results, err := o.TranslateSection(ctx, section)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[1].Ref.Number() != 3 {
		t.Errorf("expected chapter 3, got %d", results[1].Ref.Number())
	}
	if f.chapterCalls != 0 {
		t.Errorf("section passages must be reused, got %d chapter fetches", f.chapterCalls)
	}

	w := output.NewWriter(dir, output.PolicySkip, nil)
	ok, err := w.AllExist(testChapter(t, 3), []output.Format{output.FormatJSON, output.FormatText})
	if err != nil || !ok {
		t.Errorf("expected chapter 3 artifacts, ok=%v err=%v", ok, err)
	}
}

func TestTranslateSection_StopsAtFailure(t *testing.T) {
	f := &mockFetcher{section: [][]string{{"A"}, {"B"}, {"C"}}}
	g := &mockGenerator{fail: map[string]error{"B": errors.New("bad request")}}
	o := newOrchestrator(t, f, g, t.TempDir())

	section, _ := reference.New("Pardes_Rimmonim", 6, 0, 0)
	results, err := o.TranslateSection(context.Background(), section)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(results) != 2 {
		t.Errorf("expected results for chapters 1 and 2, got %d", len(results))
	}
	if g.calls != 2 {
		t.Errorf("chapter 3 must not be attempted, got %d generations", g.calls)
	}
}

func TestTranslateSection_RejectsChapter(t *testing.T) {
	o := newOrchestrator(t, &mockFetcher{}, &mockGenerator{}, t.TempDir())
	_, err := o.TranslateSection(context.Background(), testChapter(t, 1).Ref())
	if !errors.Is(err, internal.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func counterValue(t *testing.T, m *metrics.Metrics, name string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}
