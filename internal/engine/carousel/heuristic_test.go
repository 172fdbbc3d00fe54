package carousel

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/anatolykoptev/go_carousel/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "mixed punctuation",
			text: "Hello there world. Short. Another sentence here! And a question here? tail",
			want: []string{"Hello there world.", "Another sentence here!", "And a question here?"},
		},
		{
			name: "decimal point does not split",
			text: "Version 1.5 is finally out. Upgrade when you can.",
			want: []string{"Version 1.5 is finally out.", "Upgrade when you can."},
		},
		{
			name: "no terminal punctuation",
			text: "a single run-on fragment without an ending",
			want: []string{"a single run-on fragment without an ending"},
		},
		{name: "empty", text: "", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSentences(tt.text))
		})
	}
}

func TestScoreSentence(t *testing.T) {
	tests := []struct {
		name     string
		sentence string
		want     float64
	}{
		{"nothing", "xyz", 0},
		{"all bonuses", "The key tip is to start early with 10 small steps every single day", 5.5},
		{"number only", "Chapter 7", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scoreSentence(tt.sentence); got != tt.want {
				t.Errorf("scoreSentence(%q) = %v, want %v", tt.sentence, got, tt.want)
			}
		})
	}
}

func TestHeadlineFor(t *testing.T) {
	assert.Equal(t, "✨ The quick brown fox jumps over", headlineFor("the quick brown fox jumps over the lazy dog.", 2))
	assert.Equal(t, "💡 Go now", headlineFor("go now!", 0))
	assert.Equal(t, "💡 Éxito total", headlineFor("éxito total", 10))
}

func TestCapContent(t *testing.T) {
	long := strings.Repeat("ñ", 130)
	got := capContent(long)
	assert.Equal(t, 120, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))

	exact := strings.Repeat("a", 120)
	assert.Equal(t, exact, capContent(exact))
}

func TestExtractHeuristicDemo(t *testing.T) {
	engine.Init(engine.Config{})

	concepts, err := ExtractHeuristic(DemoTranscript, 7)
	require.NoError(t, err)

	// 12 sentences allow at most ceil(12/3) picks.
	require.Len(t, concepts, 4)
	assert.True(t, strings.HasPrefix(concepts[0].Title, "🎬 "))
	assert.Equal(t, "🎯 Conclusión Clave", concepts[3].Title)

	buckets := map[int]bool{}
	for i, c := range concepts {
		assert.Equal(t, i+1, c.SlideNumber)
		assert.Equal(t, i == 0, c.IsIntro)
		assert.Equal(t, i == len(concepts)-1, c.IsOutro)
		assert.False(t, c.AIGenerated)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 120)
		if i > 0 {
			assert.Greater(t, c.Position, concepts[i-1].Position)
		}
		b := int(c.Position * 10)
		assert.False(t, buckets[b], "two concepts from the same tenth")
		buckets[b] = true
	}

	again, err := ExtractHeuristic(DemoTranscript, 7)
	require.NoError(t, err)
	assert.Equal(t, concepts, again)
}

func TestExtractHeuristicSlideCountCap(t *testing.T) {
	concepts, err := ExtractHeuristic(DemoTranscript, 2)
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	assert.True(t, concepts[0].IsIntro)
	assert.Equal(t, outroTitle, concepts[1].Title)
}

func TestExtractHeuristicTooShort(t *testing.T) {
	_, err := ExtractHeuristic("One sentence only here. [Music] Tiny.", 5)
	assert.ErrorIs(t, err, ErrTooFewSentences)
}
