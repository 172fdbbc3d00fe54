package carouselserver

import (
	"context"
	"log/slog"

	"github.com/anatolykoptev/go_carousel/internal/engine"
	"github.com/anatolykoptev/go_carousel/internal/engine/store"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolCount is the number of tools RegisterTools adds.
const ToolCount = 7

// tools carries the dependencies shared by every handler.
type tools struct {
	resolver *transcript.Resolver
	history  *store.History // nil = history disabled
}

// RegisterTools registers all carousel tools on the given MCP server:
// youtube_transcript, carousel_process, carousel_process_text, carousel_demo,
// carousel_slides, youtube_thumbnail, transcript_history.
func RegisterTools(server *mcp.Server, resolver *transcript.Resolver, history *store.History) {
	t := &tools{resolver: resolver, history: history}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Get the transcript of a YouTube video. Tries native captions, the watch-page caption tracks, the Apify scraping service and finally audio download with AssemblyAI speech-to-text. Returns the transcript with segments, title, duration, source tag and every source attempt.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.transcript)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "carousel_process",
		Description: "Turn a YouTube video into an Instagram carousel: key concepts (one per slide) plus caption, hashtags and call to action. Pass a manual transcript (over 50 characters) to skip transcript extraction.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.process)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "carousel_process_text",
		Description: "Build an Instagram carousel (concepts + copy) from pasted transcript or article text of at least 50 characters.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.processText)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "carousel_demo",
		Description: "Build a sample carousel from a fixed productivity transcript. No network access needed.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.demo)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "carousel_slides",
		Description: "Generate image prompts for carousel slides from concepts returned by carousel_process. Styles: modern, vibrant, professional, creative. Returns prompts only (no rendered images) and the video thumbnail URL for the cover.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.slides)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_thumbnail",
		Description: "Get the max-resolution thumbnail URL for an 11-character YouTube video id.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.thumbnail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "transcript_history",
		Description: "List recent transcript resolutions with each source's outcome (succeeded, failed, not configured) and timing. Optionally filter by video id. Requires HISTORY_DSN.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, t.listHistory)
}

// record stores a resolution in the history store, if one is configured.
// Failures are logged and never reach the caller.
func (t *tools) record(ctx context.Context, videoID string, tr transcript.Transcript, outcomes []transcript.Outcome, err error) {
	if t.history == nil {
		return
	}
	if _, recErr := t.history.Record(context.WithoutCancel(ctx), videoID, tr, outcomes, err); recErr != nil {
		slog.Warn("history: record failed", slog.String("id", videoID), slog.Any("error", recErr))
	}
}

// resolve runs the resolver on raw input and records the result.
func (t *tools) resolve(ctx context.Context, raw string) (string, transcript.Transcript, []transcript.Outcome, error) {
	var (
		id       string
		tr       transcript.Transcript
		outcomes []transcript.Outcome
	)
	err := engine.TrackOperation(ctx, "resolve_transcript", func(ctx context.Context) error {
		var err error
		id, tr, outcomes, err = t.resolver.ResolveInput(ctx, raw)
		return err
	})
	if id != "" {
		t.record(ctx, id, tr, outcomes, err)
	}
	return id, tr, outcomes, err
}
