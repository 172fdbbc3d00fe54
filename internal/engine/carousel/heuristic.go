package carousel

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/anatolykoptev/go_carousel/internal/engine"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
)

// ErrTooFewSentences is returned when the text has fewer than three usable sentences.
var ErrTooFewSentences = errors.New("transcript too short to extract meaningful concepts")

const (
	minSentenceRunes = 11
	maxContentRunes  = 120
	introPrefix      = "🎬 "
	outroTitle       = "🎯 Conclusión Clave"
)

var (
	keyPhrases = []string{
		"important", "key", "main", "essential", "critical",
		"remember", "note", "tip", "secret", "strategy",
		"first", "second", "third", "finally", "conclusion",
		"best", "top", "must", "should", "need",
		"success", "growth", "improve", "learn", "discover",
	}
	actionWords = []string{"do", "make", "create", "build", "start", "begin", "try", "use"}
	titleEmojis = []string{"💡", "🎯", "✨", "🚀", "💪", "🔥", "⭐", "📌", "🎨", "💎"}

	digitRe         = regexp.MustCompile(`\d`)
	leadingEmojiRe  = regexp.MustCompile(`^\S+\s`)
	trailingPunctRe = regexp.MustCompile(`[.!?,;:]$`)
)

// splitSentences splits normalized text after sentence-ending punctuation
// followed by whitespace and drops fragments of 10 characters or fewer.
func splitSentences(text string) []string {
	var out []string
	emit := func(s string) {
		s = strings.TrimSpace(s)
		if utf8.RuneCountInString(s) >= minSentenceRunes {
			out = append(out, s)
		}
	}
	start := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		next := i + utf8.RuneLen(r)
		if next < len(text) {
			if nr, _ := utf8.DecodeRuneInString(text[next:]); unicode.IsSpace(nr) {
				emit(text[start:next])
				start = next
			}
		}
	}
	emit(text[start:])
	return out
}

// scoreSentence rates a sentence by length, key phrases, action words and numbers.
func scoreSentence(sentence string) float64 {
	var score float64
	if n := len(strings.Fields(sentence)); n >= 8 && n <= 25 {
		score += 2
	}
	lower := strings.ToLower(sentence)
	for _, p := range keyPhrases {
		if strings.Contains(lower, p) {
			score++
		}
	}
	for _, w := range actionWords {
		if strings.Contains(lower, w) {
			score += 0.5
		}
	}
	if digitRe.MatchString(sentence) {
		score++
	}
	return score
}

// headlineFor builds an emoji-prefixed title from the first six words.
func headlineFor(text string, index int) string {
	words := strings.Fields(text)
	if len(words) > 6 {
		words = words[:6]
	}
	title := trailingPunctRe.ReplaceAllString(strings.Join(words, " "), "")
	if r, size := utf8.DecodeRuneInString(title); size > 0 {
		title = string(unicode.ToUpper(r)) + title[size:]
	}
	return titleEmojis[index%len(titleEmojis)] + " " + title
}

// capContent cuts text longer than 120 characters to 117 plus an ellipsis.
func capContent(s string) string {
	if engine.RuneLen(s) <= maxContentRunes {
		return s
	}
	return string([]rune(s)[:maxContentRunes-3]) + "..."
}

type scoredSentence struct {
	text     string
	score    float64
	position float64
}

// ExtractHeuristic picks up to slideCount high-scoring sentences spread over
// the transcript, at most one per tenth of its length.
func ExtractHeuristic(text string, slideCount int) ([]Concept, error) {
	sentences := splitSentences(transcript.Normalize(text))
	if len(sentences) < 3 {
		return nil, ErrTooFewSentences
	}

	scored := make([]scoredSentence, len(sentences))
	for i, s := range sentences {
		scored[i] = scoredSentence{text: s, score: scoreSentence(s), position: float64(i) / float64(len(sentences))}
	}
	ranked := make([]scoredSentence, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	want := min(slideCount, int(math.Ceil(float64(len(sentences))/3)))
	selected := make([]scoredSentence, 0, want)
	usedBuckets := make(map[int]bool)
	for _, s := range ranked {
		if len(selected) >= want {
			break
		}
		bucket := int(math.Floor(s.position * 10))
		if usedBuckets[bucket] {
			continue
		}
		usedBuckets[bucket] = true
		selected = append(selected, s)
	}
	sort.SliceStable(selected, func(i, j int) bool { return selected[i].position < selected[j].position })

	concepts := make([]Concept, len(selected))
	for i, s := range selected {
		concepts[i] = Concept{
			SlideNumber: i + 1,
			Title:       headlineFor(s.text, i),
			Content:     capContent(s.text),
			Position:    s.position,
			IsIntro:     i == 0,
			IsOutro:     i == len(selected)-1,
		}
	}
	if n := len(concepts); n > 0 {
		concepts[0].Title = introPrefix + leadingEmojiRe.ReplaceAllString(concepts[0].Title, "")
		concepts[n-1].Title = outroTitle
	}
	return concepts, nil
}
