package reference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/sefer/internal"
)

func gateLabels() Labels {
	return Labels{Section: "Gate"}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		section int
		chapter int
		passage int
		wantErr bool
	}{
		{name: "section only", title: "Pardes_Rimmonim", section: 6},
		{name: "chapter", title: "Pardes_Rimmonim", section: 6, chapter: 5},
		{name: "passage", title: "Pardes_Rimmonim", section: 6, chapter: 5, passage: 3},
		{name: "empty title", title: "", section: 1, wantErr: true},
		{name: "blank title", title: "   ", section: 1, wantErr: true},
		{name: "zero section", title: "T", section: 0, wantErr: true},
		{name: "negative chapter", title: "T", section: 1, chapter: -1, wantErr: true},
		{name: "negative passage", title: "T", section: 1, chapter: 1, passage: -2, wantErr: true},
		{name: "passage without chapter", title: "T", section: 1, passage: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.title, tt.section, tt.chapter, tt.passage)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, internal.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestReference_Level(t *testing.T) {
	section, _ := New("T", 1, 0, 0)
	chapter, _ := New("T", 1, 2, 0)
	passage, _ := New("T", 1, 2, 3)

	assert.Equal(t, LevelSection, section.Level())
	assert.Equal(t, LevelChapter, chapter.Level())
	assert.Equal(t, LevelPassage, passage.Level())
}

func TestReference_DisplayText(t *testing.T) {
	ref, err := New("Pardes_Rimmonim", 6, 5, 3)
	require.NoError(t, err)
	gate := ref.WithLabels(gateLabels())

	tests := []struct {
		name         string
		ref          Reference
		level        Level
		includeTitle bool
		want         string
	}{
		{name: "own level", ref: ref, level: LevelSelf, includeTitle: true, want: "Pardes Rimmonim, Section 6, Chapter 5, Passage 3"},
		{name: "custom section label", ref: gate, level: LevelSelf, includeTitle: true, want: "Pardes Rimmonim, Gate 6, Chapter 5, Passage 3"},
		{name: "chapter level", ref: gate, level: LevelChapter, includeTitle: true, want: "Pardes Rimmonim, Gate 6, Chapter 5"},
		{name: "section level", ref: gate, level: LevelSection, includeTitle: true, want: "Pardes Rimmonim, Gate 6"},
		{name: "without title", ref: gate, level: LevelChapter, includeTitle: false, want: "Gate 6, Chapter 5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.ref.DisplayText(tt.level, tt.includeTitle)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReference_DisplayText_MissingField(t *testing.T) {
	ref, err := New("Pardes_Rimmonim", 6, 0, 0)
	require.NoError(t, err)

	_, err = ref.DisplayText(LevelChapter, true)
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)

	chapter, err := New("Pardes_Rimmonim", 6, 5, 0)
	require.NoError(t, err)
	_, err = chapter.DisplayText(LevelPassage, true)
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)
}

func TestReference_URLPath(t *testing.T) {
	ref, err := New("Pardes_Rimmonim", 6, 5, 3)
	require.NoError(t, err)

	got, err := ref.URLPath(LevelSection)
	require.NoError(t, err)
	assert.Equal(t, "Pardes_Rimmonim_6", got)

	got, err = ref.URLPath(LevelChapter)
	require.NoError(t, err)
	assert.Equal(t, "Pardes_Rimmonim_6_5", got)

	got, err = ref.URLPath(LevelPassage)
	require.NoError(t, err)
	assert.Equal(t, "Pardes_Rimmonim_6_5_3", got)

	_, err = ref.URLPath(Level(4))
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)

	section, _ := New("Pardes_Rimmonim", 6, 0, 0)
	_, err = section.URLPath(LevelChapter)
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)
}

func TestReference_FileName(t *testing.T) {
	ref, err := New("Pardes_Rimmonim", 6, 3, 0)
	require.NoError(t, err)

	got, err := ref.FileName(LevelChapter)
	require.NoError(t, err)
	assert.Equal(t, "pardes_rimmonim_006_003", got)

	got, err = ref.FileName(LevelSection)
	require.NoError(t, err)
	assert.Equal(t, "pardes_rimmonim_006", got)

	_, err = ref.FileName(LevelPassage)
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)
}

func TestAsChapter(t *testing.T) {
	section, _ := New("T", 1, 0, 0)
	_, err := AsChapter(section)
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)

	passage, _ := New("T", 1, 2, 3)
	ch, err := AsChapter(passage)
	require.NoError(t, err)
	assert.Equal(t, 2, ch.Number())
	assert.Equal(t, 0, ch.Ref().Passage, "passage number is dropped from chapter view")
	assert.Equal(t, LevelChapter, ch.Ref().Level())
}

func TestAsChapter_RejectsInvalid(t *testing.T) {
	_, err := AsChapter(Reference{Title: "T", Section: 0, Chapter: 1})
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)
}

func TestChapter_Passage(t *testing.T) {
	r, _ := New("T", 4, 2, 0)
	ch, err := AsChapter(r.WithLabels(gateLabels()))
	require.NoError(t, err)

	p, err := ch.Passage(7)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Number())
	assert.Equal(t, "T, Gate 4, Chapter 2, Passage 7", p.String())
	assert.Equal(t, ch, p.Chapter())

	// the chapter value is not affected by deriving passages from it
	assert.Equal(t, 0, ch.Ref().Passage)

	_, err = ch.Passage(0)
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)
}

func TestAsPassage(t *testing.T) {
	chapter, _ := New("T", 1, 2, 0)
	_, err := AsPassage(chapter)
	assert.ErrorIs(t, err, internal.ErrInvalidArgument)

	full, _ := New("T", 1, 2, 3)
	p, err := AsPassage(full)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Number())
}

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Reference
		wantErr bool
	}{
		{input: "Pardes_Rimmonim.6", want: Reference{Title: "Pardes_Rimmonim", Section: 6}},
		{input: "Pardes_Rimmonim.6.5", want: Reference{Title: "Pardes_Rimmonim", Section: 6, Chapter: 5}},
		{input: " Pardes_Rimmonim.6.5.3 ", want: Reference{Title: "Pardes_Rimmonim", Section: 6, Chapter: 5, Passage: 3}},
		{input: "Tomer_Devorah.1.2", want: Reference{Title: "Tomer_Devorah", Section: 1, Chapter: 2}},
		{input: "", wantErr: true},
		{input: "Pardes_Rimmonim", wantErr: true},
		{input: "Pardes_Rimmonim.0", wantErr: true},
		{input: "Pardes_Rimmonim.6.0", wantErr: true},
		{input: "Pardes_Rimmonim.6.5.0", wantErr: true},
		{input: "6.5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input, gateLabels())
			if tt.wantErr {
				assert.ErrorIs(t, err, internal.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Title, got.Title)
			assert.Equal(t, tt.want.Section, got.Section)
			assert.Equal(t, tt.want.Chapter, got.Chapter)
			assert.Equal(t, tt.want.Passage, got.Passage)
			assert.Equal(t, "Gate", got.Labels.Section)
			assert.Equal(t, "Chapter", got.Labels.Chapter)
		})
	}
}
