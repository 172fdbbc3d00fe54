package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anatolykoptev/go_carousel/internal/engine"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResolverOrder(t *testing.T) {
	r := NewResolver(&engine.Config{})
	assert.Equal(t, []string{
		transcript.SourceNative,
		transcript.SourceScraper,
		transcript.SourceRemoteService,
		transcript.SourceAudioSTT,
	}, r.Sources())
}

type deadlineProbe struct {
	deadline time.Time
	ok       bool
}

func (p *deadlineProbe) Name() string { return "probe" }

func (p *deadlineProbe) Fetch(ctx context.Context, _ string) (transcript.Transcript, error) {
	p.deadline, p.ok = ctx.Deadline()
	return transcript.Transcript{}, transcript.ErrNoCaptions
}

func TestWithTimeout(t *testing.T) {
	probe := &deadlineProbe{}
	assert.Same(t, transcript.Source(probe), withTimeout(probe, 0))

	wrapped := withTimeout(probe, time.Minute)
	assert.Equal(t, "probe", wrapped.Name())
	_, err := wrapped.Fetch(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, transcript.ErrNoCaptions)
	require.True(t, probe.ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), probe.deadline, 5*time.Second)
}

func TestResolverSkipsUnconfiguredSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	native := NewInnertube(srv.Client(), 0)
	native.BaseURL = srv.URL
	scraper := NewPageScraper(srv.Client(), nil, nil)
	scraper.BaseURL = srv.URL
	r := transcript.New(native, scraper, NewApify(&engine.Config{}), NewAudioSTT(&engine.Config{}))

	_, outcomes, err := r.ResolveDetailed(context.Background(), "dQw4w9WgXcQ")
	require.ErrorIs(t, err, transcript.ErrAllSourcesExhausted)

	var exhausted *transcript.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	require.Len(t, outcomes, 4)
	assert.Equal(t, transcript.StatusFailed, outcomes[0].Status)
	assert.Equal(t, transcript.StatusFailed, outcomes[1].Status)
	assert.Equal(t, transcript.StatusSkipped, outcomes[2].Status)
	assert.Equal(t, transcript.StatusSkipped, outcomes[3].Status)
	assert.Contains(t, err.Error(), "APIFY_API_KEY")
	assert.Equal(t, 2, transcript.Attempted(outcomes))
}
