// Package carousel turns a transcript into Instagram carousel material:
// key concepts, caption copy, hashtags and slide image prompts.
package carousel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_carousel/internal/engine"
)

const (
	DefaultSlideCount     = 7
	MaxSlideCount         = 10
	defaultTranscriptCap  = 8000
	conceptCacheNamespace = "concepts"
	coverCacheNamespace   = "cover"
	maxCoverTitleRunes    = 80
)

// Concept is the content of one slide.
type Concept struct {
	SlideNumber int     `json:"slide_number"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	Position    float64 `json:"position"`
	IsIntro     bool    `json:"is_intro"`
	IsOutro     bool    `json:"is_outro"`
	AIGenerated bool    `json:"ai_generated,omitempty"`
}

type conceptsReply struct {
	Concepts []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"concepts"`
}

var errBadShape = errors.New("llm reply has no usable concepts")

// ClampSlideCount maps n into 1..MaxSlideCount, using the default for n <= 0.
func ClampSlideCount(n int) int {
	switch {
	case n <= 0:
		if d := engine.Cfg.DefaultSlideCount; d > 0 && d <= MaxSlideCount {
			return d
		}
		return DefaultSlideCount
	case n > MaxSlideCount:
		return MaxSlideCount
	default:
		return n
	}
}

// ExtractConcepts asks the language model for slideCount concepts and falls
// back to the heuristic extractor when no model is configured or the call fails.
func ExtractConcepts(ctx context.Context, text string, slideCount int) ([]Concept, error) {
	slideCount = ClampSlideCount(slideCount)
	if !engine.LLMEnabled() {
		slog.Debug("carousel: llm disabled, using heuristic extraction")
		return ExtractHeuristic(text, slideCount)
	}

	concepts, err := extractWithLLM(ctx, text, slideCount)
	if err != nil {
		slog.Warn("carousel: llm extraction failed, using heuristic fallback", slog.Any("error", err))
		return ExtractHeuristic(text, slideCount)
	}
	return concepts, nil
}

func transcriptCap() int {
	if n := engine.Cfg.MaxTranscriptChars; n > 0 {
		return n
	}
	return defaultTranscriptCap
}

func extractWithLLM(ctx context.Context, text string, slideCount int) ([]Concept, error) {
	key := engine.CacheKey(conceptCacheNamespace, engine.ContentHash(text), strconv.Itoa(slideCount))
	if cached, ok := engine.CacheLoadJSON[[]Concept](ctx, key); ok && len(cached) > 0 {
		return cached, nil
	}

	prompt := fmt.Sprintf(conceptsPrompt, slideCount, engine.TruncateRunes(text, transcriptCap(), ""))
	reply, err := engine.CallLLMJSON[conceptsReply](ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("concepts LLM: %w", err)
	}
	concepts := conceptsFromReply(reply, slideCount)
	if len(concepts) == 0 {
		return nil, errBadShape
	}

	engine.CacheStoreJSON(ctx, key, concepts)
	return concepts, nil
}

// conceptsFromReply drops entries with an empty title or content, caps the
// list at slideCount and numbers the slides.
func conceptsFromReply(reply conceptsReply, slideCount int) []Concept {
	var concepts []Concept
	for _, c := range reply.Concepts {
		title, content := strings.TrimSpace(c.Title), strings.TrimSpace(c.Content)
		if title == "" || content == "" {
			continue
		}
		concepts = append(concepts, Concept{Title: title, Content: content, AIGenerated: true})
		if len(concepts) == slideCount {
			break
		}
	}
	for i := range concepts {
		concepts[i].SlideNumber = i + 1
		concepts[i].Position = float64(i) / float64(len(concepts))
		concepts[i].IsIntro = i == 0
		concepts[i].IsOutro = i == len(concepts)-1
	}
	return concepts
}

// GenerateCoverTitle asks the language model for a short cover headline based
// on videoTitle. Any failure returns videoTitle unchanged.
func GenerateCoverTitle(ctx context.Context, videoTitle string) string {
	if videoTitle == "" || !engine.LLMEnabled() {
		return videoTitle
	}
	key := engine.CacheKey(coverCacheNamespace, videoTitle)
	if cached, ok := engine.CacheLoadJSON[string](ctx, key); ok && cached != "" {
		return cached
	}
	raw, err := engine.CallLLMTuned(ctx, fmt.Sprintf(coverTitlePrompt, videoTitle), 0.7, 64)
	if err != nil {
		slog.Debug("carousel: cover title generation failed", slog.Any("error", err))
		return videoTitle
	}
	title := strings.TrimSpace(strings.NewReplacer(`"`, "", "'", "").Replace(raw))
	title = engine.TruncateAtWord(title, maxCoverTitleRunes)
	if title == "" {
		return videoTitle
	}
	engine.CacheStoreJSON(ctx, key, title)
	return title
}
