package carouselserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go_carousel/internal/engine/store"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
	"github.com/anatolykoptev/go_carousel/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (t *tools) transcript(ctx context.Context, _ *mcp.CallToolRequest, input TranscriptInput) (*mcp.CallToolResult, TranscriptOutput, error) {
	if strings.TrimSpace(input.URL) == "" {
		return nil, TranscriptOutput{}, errors.New("url is required")
	}
	id, tr, outcomes, err := t.resolve(ctx, input.URL)
	if err != nil {
		return nil, TranscriptOutput{}, toolutil.ResolveError(err)
	}
	return nil, TranscriptOutput{VideoID: id, Transcript: tr, Attempts: outcomes}, nil
}

func (t *tools) thumbnail(_ context.Context, _ *mcp.CallToolRequest, input ThumbnailInput) (*mcp.CallToolResult, ThumbnailOutput, error) {
	id := strings.TrimSpace(input.VideoID)
	if len(id) != 11 {
		return nil, ThumbnailOutput{}, fmt.Errorf("%w: video id must be 11 characters", transcript.ErrInvalidIdentifier)
	}
	id, err := transcript.ExtractVideoID(id)
	if err != nil {
		return nil, ThumbnailOutput{}, err
	}
	return nil, ThumbnailOutput{VideoID: id, ThumbnailURL: transcript.ThumbnailURL(id)}, nil
}

func (t *tools) listHistory(ctx context.Context, _ *mcp.CallToolRequest, input HistoryInput) (*mcp.CallToolResult, HistoryOutput, error) {
	if t.history == nil {
		return nil, HistoryOutput{}, store.ErrDisabled
	}
	entries, err := t.history.List(ctx, strings.TrimSpace(input.VideoID), input.Limit)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	return nil, HistoryOutput{Entries: entries, Count: len(entries)}, nil
}
