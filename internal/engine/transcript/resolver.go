package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_carousel/internal/engine"
)

// Source is one way of obtaining a transcript for a video id.
type Source interface {
	Name() string
	Fetch(ctx context.Context, videoID string) (Transcript, error)
}

// Gated is implemented by sources that depend on a credential. When
// Configured reports false the Resolver skips the source without calling
// Fetch; hint names what to set to enable it.
type Gated interface {
	Configured() (ok bool, hint string)
}

// Status is the result of consulting one source.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Outcome records what happened when the Resolver consulted a source.
type Outcome struct {
	Source  string        `json:"source"`
	Status  Status        `json:"status"`
	Message string        `json:"message,omitempty"`
	Chars   int           `json:"chars,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
	Err     error         `json:"-"`
}

// Label renders the outcome as it appears in the aggregate error message.
func (o Outcome) Label() string {
	switch o.Status {
	case StatusSkipped:
		return fmt.Sprintf("%s: not configured (%s)", o.Source, o.Message)
	case StatusFailed:
		return fmt.Sprintf("%s: failed: %s", o.Source, o.Message)
	default:
		return fmt.Sprintf("%s: ok (%d chars)", o.Source, o.Chars)
	}
}

// Attempted counts outcomes whose source was actually invoked.
func Attempted(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Status != StatusSkipped {
			n++
		}
	}
	return n
}

// Resolver tries its sources in order and returns the first acceptable
// transcript. It holds no per-request state and is safe for concurrent use.
type Resolver struct {
	sources []Source
}

// New returns a Resolver over sources, consulted in the given order.
func New(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// Sources returns the chain's source names in order.
func (r *Resolver) Sources() []string {
	names := make([]string, len(r.sources))
	for i, s := range r.sources {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns the first acceptable transcript for videoID.
func (r *Resolver) Resolve(ctx context.Context, videoID string) (Transcript, error) {
	t, _, err := r.ResolveDetailed(ctx, videoID)
	return t, err
}

// ResolveInput extracts the video id from a URL or bare id and resolves it.
// Invalid input fails with ErrInvalidIdentifier before any source is consulted.
func (r *Resolver) ResolveInput(ctx context.Context, raw string) (string, Transcript, []Outcome, error) {
	id, err := ExtractVideoID(raw)
	if err != nil {
		return "", Transcript{}, nil, err
	}
	t, outcomes, err := r.ResolveDetailed(ctx, id)
	return id, t, outcomes, err
}

// ResolveDetailed is Resolve that also reports every source's outcome, in
// chain order, up to and including the one that succeeded.
func (r *Resolver) ResolveDetailed(ctx context.Context, videoID string) (Transcript, []Outcome, error) {
	engine.IncrTranscriptRequest()
	outcomes := make([]Outcome, 0, len(r.sources))

	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			engine.IncrTranscriptFailure()
			return Transcript{}, outcomes, fmt.Errorf("resolve %s: %w", videoID, err)
		}

		name := src.Name()
		if g, ok := src.(Gated); ok {
			if configured, hint := g.Configured(); !configured {
				engine.IncrSourceSkip()
				slog.Debug("transcript: source skipped", slog.String("source", name), slog.String("id", videoID))
				outcomes = append(outcomes, Outcome{Source: name, Status: StatusSkipped, Message: hint})
				continue
			}
		}

		start := time.Now()
		t, err := src.Fetch(ctx, videoID)
		if err == nil {
			err = Accept(t.Text)
		}
		elapsed := time.Since(start)

		// A source may also refuse before any I/O when its credential is absent.
		if IsSkip(err) {
			engine.IncrSourceSkip()
			outcomes = append(outcomes, Outcome{Source: name, Status: StatusSkipped, Message: err.Error()})
			continue
		}

		engine.IncrSourceAttempt()
		if err != nil {
			engine.IncrSourceFailure()
			slog.Warn("transcript: source failed",
				slog.String("source", name), slog.String("id", videoID),
				slog.Duration("elapsed", elapsed), slog.Any("error", err))
			outcomes = append(outcomes, Outcome{
				Source:  name,
				Status:  StatusFailed,
				Message: err.Error(),
				Elapsed: elapsed,
				Err:     err,
			})
			continue
		}

		t.Source = name
		if t.VideoTitle == "" {
			t.VideoTitle = UnknownTitle
		}
		engine.IncrSourceSuccess(name)
		slog.Info("transcript: resolved",
			slog.String("source", name), slog.String("id", videoID),
			slog.Int("chars", len(t.Text)), slog.Int("segments", len(t.Segments)),
			slog.Duration("elapsed", elapsed))
		outcomes = append(outcomes, Outcome{
			Source:  name,
			Status:  StatusSucceeded,
			Chars:   len([]rune(t.Text)),
			Elapsed: elapsed,
		})
		return t.Clone(), outcomes, nil
	}

	engine.IncrTranscriptFailure()
	return Transcript{}, outcomes, &ExhaustedError{VideoID: videoID, Outcomes: outcomes}
}

// IsSkip reports whether err means the source was not configured.
func IsSkip(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
