package carouselserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_carousel/internal/engine/carousel"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
	"github.com/anatolykoptev/go_carousel/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// transcriptSourceManual tags packages built from pasted text.
const transcriptSourceManual = "manual"

const promptsOnlyMessage = "Image rendering is not available. Returning prompts only."

func (t *tools) process(ctx context.Context, _ *mcp.CallToolRequest, input ProcessInput) (*mcp.CallToolResult, carousel.Package, error) {
	count := toolutil.NormSlideCount(input.SlideCount)

	if text, ok := toolutil.ManualTranscript(input.Transcript); ok {
		return buildPackage(ctx, carousel.ManualVideoID, carousel.ManualVideoTitle, text, count, transcriptSourceManual)
	}
	if strings.TrimSpace(input.URL) == "" {
		return nil, carousel.Package{}, errors.New("url or transcript text is required")
	}

	id, tr, _, err := t.resolve(ctx, input.URL)
	if err != nil {
		return nil, carousel.Package{}, toolutil.ResolveError(err)
	}
	title := tr.VideoTitle
	if title == "" {
		title = transcript.UnknownTitle
	}
	return buildPackage(ctx, id, title, tr.Text, count, tr.Source)
}

func (t *tools) processText(ctx context.Context, _ *mcp.CallToolRequest, input ProcessTextInput) (*mcp.CallToolResult, carousel.Package, error) {
	text := strings.TrimSpace(input.Text)
	if len([]rune(text)) < transcript.AcceptanceFloor {
		return nil, carousel.Package{}, fmt.Errorf("please provide at least %d characters of transcript text", transcript.AcceptanceFloor)
	}
	return buildPackage(ctx, carousel.ManualVideoID, carousel.ManualVideoTitle, text, toolutil.NormSlideCount(input.SlideCount), transcriptSourceManual)
}

func (t *tools) demo(ctx context.Context, _ *mcp.CallToolRequest, _ DemoInput) (*mcp.CallToolResult, carousel.Package, error) {
	p, err := carousel.BuildDemo(ctx)
	if err != nil {
		return nil, carousel.Package{}, err
	}
	return nil, *p, nil
}

func (t *tools) slides(ctx context.Context, _ *mcp.CallToolRequest, input SlidesInput) (*mcp.CallToolResult, SlidesOutput, error) {
	if len(input.Concepts) == 0 {
		return nil, SlidesOutput{}, errors.New("concepts array is required")
	}
	style := toolutil.NormStyle(input.Style)
	slides := carousel.PlanSlides(ctx, input.Concepts, input.VideoID, input.VideoTitle, style)

	out := SlidesOutput{
		Slides:      slides,
		CoverPrompt: slides[0].Prompt,
		Style:       style,
		PromptsOnly: true,
		Message:     promptsOnlyMessage,
	}
	if carousel.HasThumbnail(input.VideoID) {
		out.ThumbnailURL = transcript.ThumbnailURL(input.VideoID)
	}
	return nil, out, nil
}

func buildPackage(ctx context.Context, videoID, videoTitle, text string, count int, source string) (*mcp.CallToolResult, carousel.Package, error) {
	p, err := carousel.Build(ctx, videoID, videoTitle, text, count)
	if err != nil {
		return nil, carousel.Package{}, fmt.Errorf("concept extraction failed: %w", err)
	}
	p.TranscriptSource = source
	slog.Info("carousel: built",
		slog.String("id", videoID), slog.String("source", source),
		slog.Int("slides", p.SlideCount))
	return nil, *p, nil
}
