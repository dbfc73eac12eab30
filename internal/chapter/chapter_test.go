package chapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/sefer/internal"
	"github.com/valpere/sefer/internal/reference"
	"github.com/valpere/sefer/internal/translator"
)

// suffixGenerator answers each prompt with the marked passage plus "-TR".
type suffixGenerator struct {
	calls   int
	failOn  int
	failErr error
}

func (g *suffixGenerator) Name() string { return "suffix" }

func (g *suffixGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	if g.failOn > 0 && g.calls == g.failOn {
		return "", g.failErr
	}
	return passageFromPrompt(prompt) + "-TR", nil
}

func passageFromPrompt(p string) string {
	const open, closing = "<passage-to-translate>", "</passage-to-translate>"
	start := strings.Index(p, open)
	end := strings.Index(p, closing)
	if start < 0 || end < start {
		return ""
	}
	return p[start+len(open) : end]
}

func chapterRef(t *testing.T) reference.Chapter {
	t.Helper()
	r, err := reference.New("Pardes_Rimmonim", 6, 5, 0)
	require.NoError(t, err)
	ch, err := reference.AsChapter(r)
	require.NoError(t, err)
	return ch
}

func newTranslator(t *testing.T, passages []string, gen translator.Generator, opts ...Option) *Translator {
	t.Helper()
	tr, err := New(chapterRef(t), passages, gen, opts...)
	require.NoError(t, err)
	return tr
}

func TestNew_EmptyChapter(t *testing.T) {
	_, err := New(chapterRef(t), nil, &suffixGenerator{})
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)

	_, err = New(chapterRef(t), []string{}, &suffixGenerator{})
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(chapterRef(t), []string{"A"}, nil)
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)

	_, err = New(reference.Chapter{}, []string{"A"}, &suffixGenerator{})
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)
}

func TestNew_CopiesPassages(t *testing.T) {
	passages := []string{"A", "B"}
	tr := newTranslator(t, passages, &suffixGenerator{})
	passages[0] = "changed"
	assert.Equal(t, []string{"A", "B"}, tr.Passages())
}

func TestTranslateNext_Example(t *testing.T) {
	tr := newTranslator(t, []string{"A", "B", "C"}, &suffixGenerator{})

	got, ok, err := tr.TranslateNext(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "A-TR", got)
	assert.Equal(t, []string{"A-TR"}, tr.Translations())
	next, ok := tr.NextPassage()
	assert.True(t, ok)
	assert.Equal(t, 2, next)

	for i := 0; i < 2; i++ {
		_, _, err := tr.TranslateNext(context.Background())
		require.NoError(t, err)
	}

	assert.True(t, tr.IsComplete())
	_, ok = tr.NextPassage()
	assert.False(t, ok)
	assert.Equal(t, []internal.TranslatedPassage{
		{Original: "A", Translation: "A-TR"},
		{Original: "B", Translation: "B-TR"},
		{Original: "C", Translation: "C-TR"},
	}, tr.Pairs())
}

func TestTranslateNext_AllLengths(t *testing.T) {
	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			passages := make([]string, n)
			for i := range passages {
				passages[i] = fmt.Sprintf("p%d", i+1)
			}
			tr := newTranslator(t, passages, &suffixGenerator{})

			for i := 0; i < n; i++ {
				_, ok, err := tr.TranslateNext(context.Background())
				require.NoError(t, err)
				require.True(t, ok)
			}

			require.True(t, tr.IsComplete())
			pairs := tr.Pairs()
			require.Len(t, pairs, n)
			for i, p := range pairs {
				assert.Equal(t, passages[i], p.Original)
				assert.Equal(t, passages[i]+"-TR", p.Translation)
			}
		})
	}
}

func TestTranslateNext_AfterComplete(t *testing.T) {
	gen := &suffixGenerator{}
	tr := newTranslator(t, []string{"A"}, gen)

	_, _, err := tr.TranslateNext(context.Background())
	require.NoError(t, err)

	got, ok, err := tr.TranslateNext(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, got)
	assert.Equal(t, []string{"A-TR"}, tr.Translations())
	assert.Equal(t, 1, gen.calls, "no generation after completion")
}

func TestTranslateNext_FailureLeavesStateUnchanged(t *testing.T) {
	cause := errors.New("connection reset")
	tr := newTranslator(t, []string{"A", "B"}, &suffixGenerator{failOn: 2, failErr: cause})

	_, _, err := tr.TranslateNext(context.Background())
	require.NoError(t, err)

	_, ok, err := tr.TranslateNext(context.Background())
	assert.False(t, ok)
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, 2, genErr.Passage.Number())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []string{"A-TR"}, tr.Translations())

	cur, ok := tr.Current()
	require.True(t, ok)
	assert.Equal(t, 2, cur.Number())
}

func TestTranslateNext_CancelledContext(t *testing.T) {
	gen := &suffixGenerator{}
	tr := newTranslator(t, []string{"A"}, gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := tr.TranslateNext(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, 0, tr.Completed())
}

func TestTranslateRemaining(t *testing.T) {
	var hooked []int
	tr := newTranslator(t, []string{"A", "B", "C"}, &suffixGenerator{},
		WithPassageHook(func(ref reference.Passage, original, translation string) {
			hooked = append(hooked, ref.Number())
			assert.Equal(t, original+"-TR", translation)
		}))

	pairs, err := tr.TranslateRemaining(context.Background())
	require.NoError(t, err)
	assert.Len(t, pairs, 3)
	assert.Equal(t, []int{1, 2, 3}, hooked)
}

func TestTranslateRemaining_Failed(t *testing.T) {
	const n, k = 5, 3
	cause := errors.New("invalid_request_error: prompt too long")
	passages := []string{"A", "B", "C", "D", "E"}
	tr := newTranslator(t, passages, &suffixGenerator{failOn: k, failErr: cause})

	pairs, err := tr.TranslateRemaining(context.Background())
	assert.Nil(t, pairs)

	var failed *TranslationFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, k, failed.Passage)
	assert.Equal(t, k-1, failed.Completed)
	assert.Equal(t, n, failed.Total)
	assert.Contains(t, err.Error(), "invalid_request_error: prompt too long")
	assert.Equal(t, "translation failed at passage 3. Completed 2/5 passages. Error: invalid_request_error: prompt too long", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, k-1, tr.Completed())
	assert.Equal(t, []internal.TranslatedPassage{
		{Original: "A", Translation: "A-TR"},
		{Original: "B", Translation: "B-TR"},
	}, tr.Pairs())
}

func TestTranslateRemaining_Overloaded(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		failOn int
	}{
		{name: "text any case", err: errors.New("API error: Overloaded_Error"), failOn: 1},
		{name: "status text", err: errors.New("Error code: 529 - {}"), failOn: 3},
		{name: "structured kind", err: &translator.GenerationError{Provider: "anthropic", Kind: translator.KindOverloaded, Err: errors.New("busy")}, failOn: 2},
		{name: "text wins over structured kind", err: &translator.GenerationError{Provider: "custom", Kind: translator.KindTransient, Err: errors.New("upstream said overloaded_error")}, failOn: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTranslator(t, []string{"A", "B", "C"}, &suffixGenerator{failOn: tt.failOn, failErr: tt.err})

			_, err := tr.TranslateRemaining(context.Background())
			var overloaded *OverloadedError
			require.True(t, errors.As(err, &overloaded))
			assert.Contains(t, err.Error(), "try again later")
			assert.Equal(t, tt.failOn-1, tr.Completed(), "partial progress is kept")
		})
	}
}

func TestTranslateRemaining_RateLimitIsNotOverload(t *testing.T) {
	err429 := &translator.GenerationError{Provider: "openrouter", Kind: translator.KindTransient, StatusCode: 429, Err: errors.New("Error code: 429 - slow down")}
	tr := newTranslator(t, []string{"A"}, &suffixGenerator{failOn: 1, failErr: err429})

	_, err := tr.TranslateRemaining(context.Background())
	var failed *TranslationFailedError
	assert.True(t, errors.As(err, &failed))
}

func TestWithPromptFunc(t *testing.T) {
	var seen []int
	tr := newTranslator(t, []string{"A", "B"}, &suffixGenerator{},
		WithPromptFunc(func(ref reference.Passage, chapter []string) (string, error) {
			seen = append(seen, ref.Number())
			return "<passage-to-translate>" + chapter[ref.Number()-1] + "</passage-to-translate>", nil
		}))

	_, err := tr.TranslateRemaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	passages := []string{"A", "B", "C", "D"}

	full := newTranslator(t, passages, &suffixGenerator{})
	want, err := full.TranslateRemaining(context.Background())
	require.NoError(t, err)

	interrupted := newTranslator(t, passages, &suffixGenerator{failOn: 3, failErr: errors.New("boom")})
	_, err = interrupted.TranslateRemaining(context.Background())
	require.Error(t, err)

	data, err := json.Marshal(interrupted.Snapshot())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))

	resumed, err := Restore(snap, &suffixGenerator{})
	require.NoError(t, err)
	next, ok := resumed.NextPassage()
	require.True(t, ok)
	assert.Equal(t, 3, next)

	got, err := resumed.TranslateRemaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, interrupted.Ref(), resumed.Ref())
}

func TestRestore_Rejects(t *testing.T) {
	ref := chapterRef(t).Ref()

	_, err := Restore(Snapshot{Ref: ref, Passages: []string{"A"}, Translations: []string{"x", "y"}}, &suffixGenerator{})
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)

	section, err := reference.New("T", 1, 0, 0)
	require.NoError(t, err)
	_, err = Restore(Snapshot{Ref: section, Passages: []string{"A"}}, &suffixGenerator{})
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)

	_, err = Restore(Snapshot{Ref: ref}, &suffixGenerator{})
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)
}

func TestRestore_Complete(t *testing.T) {
	snap := Snapshot{Ref: chapterRef(t).Ref(), Passages: []string{"A"}, Translations: []string{"done"}}
	gen := &suffixGenerator{}

	tr, err := Restore(snap, gen)
	require.NoError(t, err)
	assert.True(t, tr.IsComplete())

	pairs, err := tr.TranslateRemaining(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []internal.TranslatedPassage{{Original: "A", Translation: "done"}}, pairs)
	assert.Equal(t, 0, gen.calls)
}
