package carouselserver

import (
	"github.com/anatolykoptev/go_carousel/internal/engine/carousel"
	"github.com/anatolykoptev/go_carousel/internal/engine/store"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
)

// --- youtube_transcript ---

type TranscriptInput struct {
	URL string `json:"url" jsonschema:"YouTube watch URL, youtu.be/shorts/embed URL, or bare 11-character video id"`
}

type TranscriptOutput struct {
	VideoID    string                `json:"video_id"`
	Transcript transcript.Transcript `json:"transcript"`
	Attempts   []transcript.Outcome  `json:"attempts"`
}

// --- carousel_process / carousel_process_text ---

type ProcessInput struct {
	URL        string `json:"url,omitempty" jsonschema:"YouTube URL or video id (ignored when transcript is given)"`
	SlideCount int    `json:"slide_count,omitempty" jsonschema:"Number of slides, 1-10 (default 7)"`
	Transcript string `json:"transcript,omitempty" jsonschema:"Manual transcript text; used instead of the video when longer than 50 characters"`
}

type ProcessTextInput struct {
	Text       string `json:"text" jsonschema:"Transcript or article text, at least 50 characters"`
	SlideCount int    `json:"slide_count,omitempty" jsonschema:"Number of slides, 1-10 (default 7)"`
}

type DemoInput struct{}

// --- carousel_slides ---

type SlidesInput struct {
	Concepts   []carousel.Concept `json:"concepts" jsonschema:"Concepts returned by carousel_process"`
	VideoID    string             `json:"video_id,omitempty" jsonschema:"Video id for the cover thumbnail (manual and demo have none)"`
	VideoTitle string             `json:"video_title,omitempty" jsonschema:"Video title used for the cover headline"`
	Style      string             `json:"style,omitempty" jsonschema:"Visual style: modern (default), vibrant, professional, creative"`
}

type SlidesOutput struct {
	Slides       []carousel.Slide `json:"slides"`
	CoverPrompt  string           `json:"cover_prompt"`
	ThumbnailURL string           `json:"thumbnail_url,omitempty"`
	Style        string           `json:"style"`
	PromptsOnly  bool             `json:"prompts_only"`
	Message      string           `json:"message"`
}

// --- youtube_thumbnail ---

type ThumbnailInput struct {
	VideoID string `json:"video_id" jsonschema:"11-character YouTube video id"`
}

type ThumbnailOutput struct {
	VideoID      string `json:"video_id"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// --- transcript_history ---

type HistoryInput struct {
	VideoID string `json:"video_id,omitempty" jsonschema:"Only show resolutions of this video id"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum entries, newest first (default 20, max 200)"`
}

type HistoryOutput struct {
	Entries []store.Entry `json:"entries"`
	Count   int           `json:"count"`
}
