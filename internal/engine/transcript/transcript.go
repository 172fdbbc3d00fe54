// Package transcript defines the normalized transcript model shared by every
// transcript source and the Resolver that walks the source chain.
package transcript

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// AcceptanceFloor is the minimum transcript length, in characters, that any
// source may return as a success.
const AcceptanceFloor = 50

// UnknownTitle is the title reported when a source cannot determine one.
const UnknownTitle = "Unknown"

// Provenance tags.
const (
	SourceNative        = "native"
	SourceScraper       = "scraper-library"
	SourceRemoteService = "remote-service"
	SourceAudioSTT      = "audio-stt"
)

// Segment is one timed caption fragment.
type Segment struct {
	Text           string `json:"text"`
	OffsetMillis   int64  `json:"offset_ms"`
	DurationMillis int64  `json:"duration_ms"`
}

// Transcript is the normalized output of a successful resolution.
type Transcript struct {
	Text           string    `json:"text"`
	Segments       []Segment `json:"segments"`
	VideoTitle     string    `json:"video_title"`
	DurationMillis int64     `json:"duration_ms"`
	Source         string    `json:"source"`
}

// Clone returns a copy that shares no backing storage with t.
func (t Transcript) Clone() Transcript {
	c := t
	if t.Segments != nil {
		c.Segments = make([]Segment, len(t.Segments))
		copy(c.Segments, t.Segments)
	}
	return c
}

var (
	annotationRe = regexp.MustCompile(`\[[^\]]*\]`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// Normalize strips bracketed annotations such as [Music] or [Applause],
// collapses runs of whitespace to a single space and trims the result.
func Normalize(s string) string {
	s = annotationRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// JoinSegments joins segment texts with single spaces and normalizes the result.
func JoinSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return Normalize(strings.Join(parts, " "))
}

// Accept enforces the acceptance floor on already normalized text.
func Accept(text string) error {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return fmt.Errorf("%w: empty text", ErrTooShort)
	}
	if n < AcceptanceFloor {
		return fmt.Errorf("%w: %d chars, need %d", ErrTooShort, n, AcceptanceFloor)
	}
	return nil
}
