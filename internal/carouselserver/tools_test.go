package carouselserver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/anatolykoptev/go_carousel/internal/engine"
	"github.com/anatolykoptev/go_carousel/internal/engine/carousel"
	"github.com/anatolykoptev/go_carousel/internal/engine/store"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
	"github.com/anatolykoptev/go_carousel/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name  string
	text  string
	title string
	err   error
	calls atomic.Int32
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(_ context.Context, _ string) (transcript.Transcript, error) {
	f.calls.Add(1)
	if f.err != nil {
		return transcript.Transcript{}, f.err
	}
	return transcript.Transcript{Text: f.text, VideoTitle: f.title}, nil
}

func newTestTools(t *testing.T, withHistory bool, sources ...transcript.Source) *tools {
	t.Helper()
	engine.Init(engine.Config{})
	tt := &tools{resolver: transcript.New(sources...)}
	if withHistory {
		h, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { h.Close() })
		tt.history = h
	}
	return tt
}

func TestRegisterTools(t *testing.T) {
	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "dev"}, nil)
	assert.NotPanics(t, func() {
		RegisterTools(server, transcript.New(), nil)
	})
}

func TestTranscriptTool(t *testing.T) {
	native := &fakeSource{name: transcript.SourceNative, text: "too short"}
	scraper := &fakeSource{name: transcript.SourceScraper, text: carousel.DemoTranscript, title: "Productivity"}
	remote := &fakeSource{name: transcript.SourceRemoteService, text: carousel.DemoTranscript}
	tt := newTestTools(t, true, native, scraper, remote)
	ctx := context.Background()

	_, out, err := tt.transcript(ctx, nil, TranscriptInput{URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", out.VideoID)
	assert.Equal(t, transcript.SourceScraper, out.Transcript.Source)
	assert.Equal(t, "Productivity", out.Transcript.VideoTitle)
	require.Len(t, out.Attempts, 2)
	assert.Equal(t, transcript.StatusFailed, out.Attempts[0].Status)
	assert.Equal(t, int32(0), remote.calls.Load())

	_, hist, err := tt.listHistory(ctx, nil, HistoryInput{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	require.Equal(t, 1, hist.Count)
	assert.True(t, hist.Entries[0].Succeeded)
	assert.Equal(t, transcript.SourceScraper, hist.Entries[0].Source)
}

func TestTranscriptToolErrors(t *testing.T) {
	failing := &fakeSource{name: transcript.SourceNative, err: fmt.Errorf("%w: boom", transcript.ErrTransport)}
	tt := newTestTools(t, true, failing)
	ctx := context.Background()

	_, _, err := tt.transcript(ctx, nil, TranscriptInput{URL: ""})
	assert.EqualError(t, err, "url is required")

	_, _, err = tt.transcript(ctx, nil, TranscriptInput{URL: "not a url"})
	assert.ErrorIs(t, err, transcript.ErrInvalidIdentifier)
	assert.Equal(t, int32(0), failing.calls.Load())

	_, _, err = tt.transcript(ctx, nil, TranscriptInput{URL: "dQw4w9WgXcQ"})
	require.Error(t, err)
	assert.ErrorIs(t, err, transcript.ErrAllSourcesExhausted)
	assert.ErrorIs(t, err, transcript.ErrTransport)
	assert.Contains(t, err.Error(), toolutil.ManualSuggestion)

	_, hist, err := tt.listHistory(ctx, nil, HistoryInput{})
	require.NoError(t, err)
	require.Equal(t, 1, hist.Count, "invalid input is not recorded")
	assert.False(t, hist.Entries[0].Succeeded)
	assert.Contains(t, hist.Entries[0].Error, "native: failed")
}

func TestProcessTool(t *testing.T) {
	src := &fakeSource{name: transcript.SourceNative, text: carousel.DemoTranscript, title: "Time Management"}
	tt := newTestTools(t, false, src)
	ctx := context.Background()

	_, p, err := tt.process(ctx, nil, ProcessInput{URL: "https://youtu.be/dQw4w9WgXcQ", SlideCount: 3})
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", p.VideoID)
	assert.Equal(t, "Time Management", p.VideoTitle)
	assert.Equal(t, transcript.SourceNative, p.TranscriptSource)
	assert.Equal(t, 3, p.SlideCount)
	assert.Len(t, p.Concepts, 3)
	assert.NotEmpty(t, p.Copy.FullPost)
}

func TestProcessToolManualTranscript(t *testing.T) {
	src := &fakeSource{name: transcript.SourceNative, text: carousel.DemoTranscript}
	tt := newTestTools(t, false, src)

	_, p, err := tt.process(context.Background(), nil, ProcessInput{
		URL:        "https://youtu.be/dQw4w9WgXcQ",
		Transcript: "  " + carousel.DemoTranscript + "  ",
	})
	require.NoError(t, err)
	assert.Equal(t, carousel.ManualVideoID, p.VideoID)
	assert.Equal(t, carousel.ManualVideoTitle, p.VideoTitle)
	assert.Equal(t, "manual", p.TranscriptSource)
	assert.Equal(t, int32(0), src.calls.Load(), "manual transcript skips resolution")
}

func TestProcessToolErrors(t *testing.T) {
	failing := &fakeSource{name: transcript.SourceNative, err: transcript.ErrNoCaptions}
	tt := newTestTools(t, false, failing)
	ctx := context.Background()

	tests := []struct {
		name  string
		input ProcessInput
		want  string
	}{
		{"nothing given", ProcessInput{}, "url or transcript text is required"},
		{"short transcript and no url", ProcessInput{Transcript: "too short"}, "url or transcript text is required"},
		{"invalid url", ProcessInput{URL: "https://example.com/video"}, "invalid youtube url"},
		{"resolution fails", ProcessInput{URL: "dQw4w9WgXcQ"}, "paste the transcript manually"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := tt.process(ctx, nil, tc.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestProcessTextTool(t *testing.T) {
	tt := newTestTools(t, false)
	ctx := context.Background()

	_, _, err := tt.processText(ctx, nil, ProcessTextInput{Text: strings.Repeat("x", 49)})
	assert.ErrorContains(t, err, "at least 50 characters")

	_, p, err := tt.processText(ctx, nil, ProcessTextInput{Text: carousel.DemoTranscript})
	require.NoError(t, err)
	assert.Equal(t, carousel.ManualVideoID, p.VideoID)
	assert.Equal(t, "manual", p.TranscriptSource)
	assert.NotEmpty(t, p.Concepts)
}

func TestDemoTool(t *testing.T) {
	tt := newTestTools(t, false)
	_, p, err := tt.demo(context.Background(), nil, DemoInput{})
	require.NoError(t, err)
	assert.True(t, p.IsDemo)
	assert.Equal(t, carousel.DemoVideoID, p.VideoID)
}

func TestSlidesTool(t *testing.T) {
	tt := newTestTools(t, false)
	ctx := context.Background()

	_, _, err := tt.slides(ctx, nil, SlidesInput{})
	assert.ErrorContains(t, err, "concepts array is required")

	concepts := []carousel.Concept{
		{SlideNumber: 1, Title: "🎬 Start", Content: "intro"},
		{SlideNumber: 2, Title: "🎯 Conclusión Clave", Content: "end"},
	}
	_, out, err := tt.slides(ctx, nil, SlidesInput{Concepts: concepts, VideoID: "dQw4w9WgXcQ", VideoTitle: "Tips", Style: "Creative"})
	require.NoError(t, err)
	assert.True(t, out.PromptsOnly)
	assert.Equal(t, "creative", out.Style)
	assert.Equal(t, transcript.ThumbnailURL("dQw4w9WgXcQ"), out.ThumbnailURL)
	require.Len(t, out.Slides, 2)
	assert.Equal(t, out.Slides[0].Prompt, out.CoverPrompt)

	_, out, err = tt.slides(ctx, nil, SlidesInput{Concepts: concepts, VideoID: carousel.DemoVideoID})
	require.NoError(t, err)
	assert.Empty(t, out.ThumbnailURL)
	assert.Equal(t, "modern", out.Style)
}

func TestThumbnailTool(t *testing.T) {
	tt := newTestTools(t, false)
	ctx := context.Background()

	_, out, err := tt.thumbnail(ctx, nil, ThumbnailInput{VideoID: "dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", out.ThumbnailURL)

	for _, bad := range []string{"", "short", "dQw4w9WgXcQx", "dQw4w9WgX!Q"} {
		_, _, err := tt.thumbnail(ctx, nil, ThumbnailInput{VideoID: bad})
		assert.ErrorIs(t, err, transcript.ErrInvalidIdentifier, "input %q", bad)
	}
}

func TestHistoryToolDisabled(t *testing.T) {
	tt := newTestTools(t, false)
	_, _, err := tt.listHistory(context.Background(), nil, HistoryInput{})
	assert.ErrorIs(t, err, store.ErrDisabled)
}
