package sources

import (
	"context"
	"time"

	"github.com/anatolykoptev/go_carousel/internal/engine"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
)

// NewResolver wires the four transcript sources in fixed priority order:
// native captions, the page scraper, the remote service, then audio download
// with speech-to-text.
func NewResolver(c *engine.Config) *transcript.Resolver {
	client := c.HTTPClient
	if client == nil {
		client = engine.HTTP()
	}
	return transcript.New(
		withTimeout(NewInnertube(client, c.InnertubeRPS), c.FetchTimeout),
		withTimeout(NewPageScraper(client, c.BrowserClient, c.CaptionLangs), c.FetchTimeout),
		NewApify(c),
		NewAudioSTT(c),
	)
}

// timedSource bounds each Fetch of a caption source. The remote-service and
// audio sources carry their own ceilings.
type timedSource struct {
	transcript.Source
	timeout time.Duration
}

func withTimeout(s transcript.Source, d time.Duration) transcript.Source {
	if d <= 0 {
		return s
	}
	return timedSource{Source: s, timeout: d}
}

func (t timedSource) Fetch(ctx context.Context, videoID string) (transcript.Transcript, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Source.Fetch(ctx, videoID)
}
