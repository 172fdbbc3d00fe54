package carousel

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
)

// Slide styles.
const (
	StyleModern       = "modern"
	StyleVibrant      = "vibrant"
	StyleProfessional = "professional"
	StyleCreative     = "creative"
)

// Video ids that do not refer to a real YouTube video.
const (
	ManualVideoID = "manual"
	DemoVideoID   = "demo"
)

var styleGuides = map[string]string{
	StyleModern:       "Modern minimalist design with bold typography, gradient background, clean geometric shapes",
	StyleVibrant:      "Vibrant colorful design with dynamic gradients, bold colors, energetic composition",
	StyleProfessional: "Professional corporate design with clean lines, subtle gradients, elegant typography",
	StyleCreative:     "Creative artistic design with abstract shapes, artistic elements, unique composition",
}

var slideEmojiRe = regexp.MustCompile(`[🎬🎯✨💡🔥⚡📌]`)

// Slide is the generation plan for one carousel image.
type Slide struct {
	SlideNumber   int    `json:"slide_number"`
	Type          string `json:"type"` // "cover" or "content"
	Title         string `json:"title"`
	OriginalTitle string `json:"original_title,omitempty"`
	Content       string `json:"content,omitempty"`
	Prompt        string `json:"prompt"`
	StylePrompt   string `json:"style_prompt"`
	ThumbnailURL  string `json:"thumbnail_url,omitempty"`
	Filename      string `json:"filename"`
}

// StyleGuide returns the description for style, defaulting to modern.
func StyleGuide(style string) string {
	if g, ok := styleGuides[strings.ToLower(strings.TrimSpace(style))]; ok {
		return g
	}
	return styleGuides[StyleModern]
}

// HasThumbnail reports whether videoID names a real video.
func HasThumbnail(videoID string) bool {
	return videoID != "" && videoID != ManualVideoID && videoID != DemoVideoID
}

// StripSlideEmoji removes the decorative emoji used in concept titles.
func StripSlideEmoji(title string) string {
	return strings.TrimSpace(slideEmojiRe.ReplaceAllString(title, ""))
}

// CoverPrompt describes the cover image for title, themed on topic.
func CoverPrompt(title, topic string) string {
	if topic == "" {
		topic = title
	}
	return fmt.Sprintf(coverSlidePrompt, topic, title)
}

// ContentPrompt describes content slide number of total.
func ContentPrompt(number, total int, title, content string) string {
	progress := int(math.Round(float64(number) / float64(total) * 100))
	return fmt.Sprintf(contentSlidePrompt, fmt.Sprintf("%02d", number), title, content, progress, number, total)
}

// PlanSlides builds image prompts for every concept. The first concept becomes
// the cover, titled with an LLM-generated headline when one is available.
func PlanSlides(ctx context.Context, concepts []Concept, videoID, videoTitle, style string) []Slide {
	total := len(concepts)
	guide := StyleGuide(style)

	coverTitle := GenerateCoverTitle(ctx, videoTitle)

	slides := make([]Slide, 0, total)
	for i, c := range concepts {
		num := c.SlideNumber
		if num == 0 {
			num = i + 1
		}
		styled := fmt.Sprintf(styledSlidePrompt, guide, c.Title, i+1, total)

		if i == 0 {
			title := coverTitle
			if title == "" {
				title = c.Title
			}
			s := Slide{
				SlideNumber:   1,
				Type:          "cover",
				Title:         title,
				OriginalTitle: videoTitle,
				Prompt:        CoverPrompt(title, videoTitle),
				StylePrompt:   styled,
				Filename:      "slide_01_cover.png",
			}
			if HasThumbnail(videoID) {
				s.ThumbnailURL = transcript.ThumbnailURL(videoID)
			}
			slides = append(slides, s)
			continue
		}

		title := StripSlideEmoji(c.Title)
		slides = append(slides, Slide{
			SlideNumber: num,
			Type:        "content",
			Title:       title,
			Content:     c.Content,
			Prompt:      ContentPrompt(num, total, title, c.Content),
			StylePrompt: styled,
			Filename:    fmt.Sprintf("slide_%02d_content.png", num),
		})
	}
	return slides
}
