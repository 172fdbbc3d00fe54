package carousel

import (
	"context"
	"strings"

	"github.com/anatolykoptev/go_carousel/internal/engine"
)

// Titles used when the transcript did not come from a resolved video.
const (
	ManualVideoTitle = "Custom Transcript"
	DemoVideoTitle   = "Productivity & Time Management Tips"
)

// DemoTranscript is the fixed sample used by the demo tool.
const DemoTranscript = `Welcome to this comprehensive guide on productivity and time management.
The first key concept is the Pomodoro Technique, which involves working in focused 25-minute intervals followed by short breaks.
This method helps maintain concentration and prevents burnout.
The second important strategy is task batching, where you group similar tasks together to minimize context switching.
Studies show that context switching can reduce productivity by up to 40 percent.
Another crucial tip is to tackle your most important task first thing in the morning when your energy levels are highest.
This is often called eating the frog.
Digital minimalism is also essential in today's world.
Turn off unnecessary notifications and designate specific times to check email and social media.
Finally, remember that rest is productive.
Quality sleep and regular breaks actually improve your overall output.
The key to sustainable productivity is balance, not burnout.`

// Package is a complete carousel: concepts plus post copy.
type Package struct {
	VideoID          string    `json:"video_id"`
	VideoTitle       string    `json:"video_title"`
	Concepts         []Concept `json:"concepts"`
	Copy             Copy      `json:"copy"`
	SlideCount       int       `json:"slide_count"`
	TranscriptSource string    `json:"transcript_source,omitempty"`
	IsDemo           bool      `json:"is_demo,omitempty"`
}

// Build extracts concepts from text and generates the accompanying copy.
func Build(ctx context.Context, videoID, videoTitle, text string, slideCount int) (*Package, error) {
	text = strings.TrimSpace(text)
	concepts, err := ExtractConcepts(ctx, text, slideCount)
	if err != nil {
		return nil, err
	}
	engine.IncrCarouselBuilt()
	return &Package{
		VideoID:    videoID,
		VideoTitle: videoTitle,
		Concepts:   concepts,
		Copy:       GenerateCopy(concepts, text),
		SlideCount: len(concepts),
	}, nil
}

// BuildDemo builds the package for DemoTranscript.
func BuildDemo(ctx context.Context) (*Package, error) {
	p, err := Build(ctx, DemoVideoID, DemoVideoTitle, DemoTranscript, DefaultSlideCount)
	if err != nil {
		return nil, err
	}
	p.IsDemo = true
	return p, nil
}
