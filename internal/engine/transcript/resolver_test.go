package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name  string
	out   Transcript
	err   error
	gated bool
	ready bool
	hint  string
	calls atomic.Int32
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(_ context.Context, _ string) (Transcript, error) {
	f.calls.Add(1)
	return f.out, f.err
}

type gatedFake struct{ *fakeSource }

func (g gatedFake) Configured() (bool, string) { return g.ready, g.hint }

func sourceOf(f *fakeSource) Source {
	if f.gated {
		return gatedFake{f}
	}
	return f
}

func chain(fs ...*fakeSource) *Resolver {
	srcs := make([]Source, len(fs))
	for i, f := range fs {
		srcs[i] = sourceOf(f)
	}
	return New(srcs...)
}

func textOf(n int) string {
	return strings.Repeat("a", n)
}

func TestResolve_FirstSourceWins(t *testing.T) {
	native := &fakeSource{name: SourceNative, out: Transcript{Text: textOf(80), VideoTitle: "Talk"}}
	scraper := &fakeSource{name: SourceScraper, out: Transcript{Text: textOf(80)}}

	got, outcomes, err := chain(native, scraper).ResolveDetailed(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, SourceNative, got.Source)
	assert.Equal(t, "Talk", got.VideoTitle)
	assert.Equal(t, int32(0), scraper.calls.Load())
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusSucceeded, outcomes[0].Status)
	assert.Equal(t, 80, outcomes[0].Chars)
}

func TestResolve_FallbackOrdering(t *testing.T) {
	native := &fakeSource{name: SourceNative, err: fmt.Errorf("%w: no token", ErrNoCaptions)}
	scraper := &fakeSource{name: SourceScraper, out: Transcript{Text: textOf(120)}}
	remote := &fakeSource{name: SourceRemoteService, gated: true, ready: true}
	audio := &fakeSource{name: SourceAudioSTT, gated: true, ready: true}

	got, err := chain(native, scraper, remote, audio).Resolve(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, SourceScraper, got.Source)
	assert.Equal(t, UnknownTitle, got.VideoTitle)
	assert.Equal(t, int32(1), native.calls.Load())
	assert.Equal(t, int32(0), remote.calls.Load())
	assert.Equal(t, int32(0), audio.calls.Load())
}

func TestResolve_BelowFloorIsRejectedByDriver(t *testing.T) {
	// The source forgets to enforce the floor itself.
	lazy := &fakeSource{name: SourceNative, out: Transcript{Text: textOf(AcceptanceFloor - 1)}}
	good := &fakeSource{name: SourceScraper, out: Transcript{Text: textOf(AcceptanceFloor)}}

	got, outcomes, err := chain(lazy, good).ResolveDetailed(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, SourceScraper, got.Source)
	require.Len(t, outcomes, 2)
	assert.Equal(t, StatusFailed, outcomes[0].Status)
	assert.ErrorIs(t, outcomes[0].Err, ErrTooShort)
}

func TestResolve_SkipVersusFail(t *testing.T) {
	native := &fakeSource{name: SourceNative, err: fmt.Errorf("%w: HTTP 403", ErrTransport)}
	scraper := &fakeSource{name: SourceScraper, err: fmt.Errorf("%w: no caption tracks", ErrNoCaptions)}
	remote := &fakeSource{name: SourceRemoteService, gated: true, hint: "set APIFY_API_KEY to enable"}
	audio := &fakeSource{name: SourceAudioSTT, gated: true, hint: "set ASSEMBLYAI_API_KEY to enable"}

	_, outcomes, err := chain(native, scraper, remote, audio).ResolveDetailed(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllSourcesExhausted)
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, ErrNoCaptions)

	var ex *ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, "dQw4w9WgXcQ", ex.VideoID)
	assert.Equal(t, 2, Attempted(outcomes))
	assert.Equal(t, int32(0), remote.calls.Load())
	assert.Equal(t, int32(0), audio.calls.Load())

	msg := err.Error()
	assert.Contains(t, msg, "native: failed: transport error: HTTP 403")
	assert.Contains(t, msg, "scraper-library: failed: no captions available")
	assert.Contains(t, msg, "remote-service: not configured (set APIFY_API_KEY to enable)")
	assert.Contains(t, msg, "audio-stt: not configured (set ASSEMBLYAI_API_KEY to enable)")
}

func TestResolve_NotConfiguredFromFetchCountsAsSkip(t *testing.T) {
	src := &fakeSource{name: SourceRemoteService, err: fmt.Errorf("%w: set APIFY_API_KEY to enable", ErrNotConfigured)}

	_, outcomes, err := chain(src).ResolveDetailed(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusSkipped, outcomes[0].Status)
	assert.Equal(t, 0, Attempted(outcomes))
}

func TestResolve_Idempotent(t *testing.T) {
	segs := []Segment{{Text: "hello", OffsetMillis: 0, DurationMillis: 1000}}
	src := &fakeSource{name: SourceNative, out: Transcript{Text: textOf(60), Segments: segs, DurationMillis: 1000}}
	r := chain(src)

	a, err := r.Resolve(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	b, err := r.Resolve(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Returned values do not alias each other.
	a.Segments[0].Text = "mutated"
	assert.Equal(t, "hello", b.Segments[0].Text)
}

func TestResolve_CancelledContext(t *testing.T) {
	src := &fakeSource{name: SourceNative, out: Transcript{Text: textOf(60)}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain(src).Resolve(ctx, "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), src.calls.Load())
}

func TestResolveInput_EndToEnd(t *testing.T) {
	segs := make([]Segment, 5)
	for i := range segs {
		segs[i] = Segment{Text: textOf(120), OffsetMillis: int64(i) * 2000, DurationMillis: 2000}
	}
	native := &fakeSource{name: SourceNative, err: fmt.Errorf("%w: 30 chars, need 50", ErrTooShort)}
	scraper := &fakeSource{name: SourceScraper, out: Transcript{Text: JoinSegments(segs)[:600], Segments: segs}}

	id, got, outcomes, err := chain(native, scraper).ResolveInput(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", id)
	assert.Equal(t, SourceScraper, got.Source)
	assert.Len(t, got.Text, 600)
	assert.Len(t, got.Segments, 5)
	assert.Len(t, outcomes, 2)
}

func TestResolveInput_InvalidMakesNoCalls(t *testing.T) {
	src := &fakeSource{name: SourceNative, out: Transcript{Text: textOf(60)}}

	_, _, outcomes, err := chain(src).ResolveInput(context.Background(), "not a url")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	assert.Empty(t, outcomes)
	assert.Equal(t, int32(0), src.calls.Load())
}

func TestResolverSources(t *testing.T) {
	r := chain(&fakeSource{name: SourceNative}, &fakeSource{name: SourceAudioSTT, gated: true})
	assert.Equal(t, []string{SourceNative, SourceAudioSTT}, r.Sources())
}
