package carousel

import (
	"fmt"
	"slices"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConcepts(n int) []Concept {
	out := make([]Concept, n)
	for i := range out {
		out[i] = Concept{SlideNumber: i + 1, Title: fmt.Sprintf("💡 Title %d", i+1), Content: fmt.Sprintf("content number %d", i+1)}
	}
	return out
}

func TestCaption(t *testing.T) {
	caption := Caption(sampleConcepts(6))
	for i := 1; i <= 5; i++ {
		assert.Contains(t, caption, fmt.Sprintf("%d. content number %d", i, i))
	}
	assert.NotContains(t, caption, "content number 6")
	assert.True(t, strings.HasPrefix(caption, "✨ ¡Desliza para ver las ideas clave! ✨"))
	assert.Contains(t, caption, "1. content number 1\n\n2. content number 2")
}

func TestHashtags(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantFirst []string
		wantLen   int
	}{
		{
			name:      "no topic",
			text:      "a talk about nothing in particular",
			wantFirst: []string{"#conocimiento", "#aprendizaje"},
			wantLen:   10,
		},
		{
			name:      "two topics",
			text:      "Business lessons and Marketing mistakes",
			wantFirst: []string{"#negocios", "#emprendedor", "#marketing", "#marketingdigital", "#conocimiento"},
			wantLen:   14,
		},
		{
			name:      "english and spanish keyword share tags",
			text:      "productividad and productivity",
			wantFirst: []string{"#productividad", "#gestiondeltiempo", "#conocimiento"},
			wantLen:   12,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Hashtags(tt.text)
			require.Len(t, got, tt.wantLen)
			assert.Equal(t, tt.wantFirst, got[:len(tt.wantFirst)])
		})
	}
}

func TestHashtagsCappedAt15(t *testing.T) {
	got := Hashtags("business negocio tech tecnología marketing finance health productivity leadership")
	require.Len(t, got, 15)
	assert.Equal(t, "#conocimiento", got[14])

	seen := map[string]bool{}
	for _, tag := range got {
		assert.False(t, seen[tag], "duplicate %s", tag)
		seen[tag] = true
	}
}

func TestGenerateCopy(t *testing.T) {
	concepts := sampleConcepts(3)
	c := GenerateCopy(concepts, "a tech talk")

	assert.Equal(t, strings.Join(c.HashtagsList, " "), c.Hashtags)
	assert.Equal(t, c.Caption+"\n\n"+c.Hashtags, c.FullPost)
	assert.Equal(t, utf8.RuneCountInString(c.FullPost), c.CharacterCount)
	assert.True(t, slices.Contains(CallsToAction, c.CTA), "unexpected CTA %q", c.CTA)
	assert.Equal(t, "#tecnologia", c.HashtagsList[0])
}
