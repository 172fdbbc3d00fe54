// Package toolutil provides shared helpers for the go_carousel MCP tools.
package toolutil

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/anatolykoptev/go_carousel/internal/engine/carousel"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
)

// ManualSuggestion is appended to transcript resolution failures.
const ManualSuggestion = "You can paste the transcript manually with the transcript field or carousel_process_text."

// NormSlideCount normalises a slide_count field: 0 → default, capped at the maximum.
func NormSlideCount(n int) int {
	return carousel.ClampSlideCount(n)
}

// NormStyle normalises a style field: empty or unknown → modern.
func NormStyle(style string) string {
	s := strings.ToLower(strings.TrimSpace(style))
	switch s {
	case carousel.StyleModern, carousel.StyleVibrant, carousel.StyleProfessional, carousel.StyleCreative:
		return s
	default:
		return carousel.StyleModern
	}
}

// ManualTranscript returns the trimmed text and true when it is long enough
// to be used instead of resolving a video (strictly more than the acceptance floor).
func ManualTranscript(text string) (string, bool) {
	t := strings.TrimSpace(text)
	return t, utf8.RuneCountInString(t) > transcript.AcceptanceFloor
}

// ResolveError wraps a transcript resolution failure for the tool caller.
// Invalid identifiers are returned as-is; everything else gets the manual
// transcript suggestion.
func ResolveError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, transcript.ErrInvalidIdentifier) {
		return err
	}
	return fmt.Errorf("%w. %s", err, ManualSuggestion)
}
