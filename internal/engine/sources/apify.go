package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anatolykoptev/go_carousel/internal/engine"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"
)

const (
	apifyBaseURL          = "https://api.apify.com"
	apifyDefaultActor     = "im_broke~youtube-transcript-scraper"
	apifyDefaultTitle     = "YouTube Video"
	apifyCaptionStepMs    = 3000
	apifyModePoll         = "poll"
	apifyModeSync         = "sync"
	apifyMaxResponseBytes = 8 * 1024 * 1024
)

// Apify run states.
const (
	apifySucceeded = "SUCCEEDED"
	apifyFailed    = "FAILED"
	apifyAborted   = "ABORTED"
	apifyTimedOut  = "TIMED-OUT"
)

// Apify is the remote-service source: it runs a transcript-scraping actor on
// Apify and reads the run's dataset. Poll mode starts the run and polls its
// status; sync mode uses the blocking run-sync-get-dataset-items endpoint.
type Apify struct {
	APIKey       string
	ActorID      string
	Mode         string
	BaseURL      string
	PollInterval time.Duration
	MaxWait      time.Duration
	Client       *http.Client
}

// NewApify builds the remote-service source from engine configuration.
func NewApify(c *engine.Config) *Apify {
	a := &Apify{
		APIKey:       c.ApifyAPIKey,
		ActorID:      c.ApifyActorID,
		Mode:         c.ApifyMode,
		BaseURL:      c.ApifyBaseURL,
		PollInterval: c.ApifyPollInterval,
		MaxWait:      c.ApifyMaxWait,
		Client:       c.HTTPClient,
	}
	if a.ActorID == "" {
		a.ActorID = apifyDefaultActor
	}
	if a.Mode == "" {
		a.Mode = apifyModePoll
	}
	if a.BaseURL == "" {
		a.BaseURL = apifyBaseURL
	}
	if a.PollInterval <= 0 {
		a.PollInterval = 2 * time.Second
	}
	if a.MaxWait <= 0 {
		a.MaxWait = 60 * time.Second
	}
	if a.Client == nil {
		a.Client = engine.HTTP()
	}
	return a
}

func (a *Apify) Name() string { return transcript.SourceRemoteService }

// Configured reports whether an API token is set.
func (a *Apify) Configured() (bool, string) {
	if a.APIKey == "" {
		return false, "set APIFY_API_KEY to enable"
	}
	return true, ""
}

// ResultShape identifies which of the actor's output layouts a dataset item uses.
type ResultShape int

const (
	ShapeUnrecognized ResultShape = iota
	ShapeTranscriptItems
	ShapeCaptions
	ShapePlainText
)

func (s ResultShape) String() string {
	switch s {
	case ShapeTranscriptItems:
		return "transcript-items"
	case ShapeCaptions:
		return "captions"
	case ShapePlainText:
		return "plain-text"
	default:
		return "unrecognized"
	}
}

type apifyTranscriptItem struct {
	Text     string          `json:"text"`
	Start    decimal.Decimal `json:"start"`    // seconds
	Duration decimal.Decimal `json:"duration"` // seconds
}

// apifyResult is one dataset item resolved to exactly one shape.
type apifyResult struct {
	Shape    ResultShape
	Items    []apifyTranscriptItem
	Captions []string
	Text     string
	Title    string
	Duration int64 // milliseconds, 0 when the item carries none
}

// classifyApifyItem decides an item's shape by field presence, preferring
// timed items over bare captions over plain text.
func classifyApifyItem(raw json.RawMessage) apifyResult {
	var probe struct {
		Title          string          `json:"title"`
		VideoTitle     string          `json:"videoTitle"`
		Transcript     json.RawMessage `json:"transcript"`
		Captions       json.RawMessage `json:"captions"`
		TranscriptText string          `json:"transcriptText"`
		Duration       json.RawMessage `json:"duration"` // seconds
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return apifyResult{Shape: ShapeUnrecognized}
	}
	res := apifyResult{Title: probe.Title}
	var secs decimal.Decimal
	if len(probe.Duration) > 0 && json.Unmarshal(probe.Duration, &secs) == nil {
		res.Duration = secs.Mul(thousand).IntPart()
	}
	if res.Title == "" {
		res.Title = probe.VideoTitle
	}

	var items []apifyTranscriptItem
	if len(probe.Transcript) > 0 && json.Unmarshal(probe.Transcript, &items) == nil && len(items) > 0 {
		res.Shape, res.Items = ShapeTranscriptItems, items
		return res
	}
	var captions []string
	if len(probe.Captions) > 0 && json.Unmarshal(probe.Captions, &captions) == nil && len(captions) > 0 {
		res.Shape, res.Captions = ShapeCaptions, captions
		return res
	}
	// Some actor versions put a plain string under "transcript".
	var plain string
	if len(probe.Transcript) > 0 && json.Unmarshal(probe.Transcript, &plain) == nil && strings.TrimSpace(plain) != "" {
		res.Shape, res.Text = ShapePlainText, plain
		return res
	}
	if strings.TrimSpace(probe.TranscriptText) != "" {
		res.Shape, res.Text = ShapePlainText, probe.TranscriptText
		return res
	}
	res.Shape = ShapeUnrecognized
	return res
}

// segments converts the result into timed segments. Bare captions carry no
// timing, so each is given a synthetic 3s slot.
func (r apifyResult) segments() []transcript.Segment {
	switch r.Shape {
	case ShapeTranscriptItems:
		segs := make([]transcript.Segment, 0, len(r.Items))
		for _, it := range r.Items {
			text := transcript.Normalize(it.Text)
			if text == "" {
				continue
			}
			segs = append(segs, transcript.Segment{
				Text:           text,
				OffsetMillis:   it.Start.Mul(thousand).IntPart(),
				DurationMillis: it.Duration.Mul(thousand).IntPart(),
			})
		}
		return segs
	case ShapeCaptions:
		segs := make([]transcript.Segment, 0, len(r.Captions))
		for i, c := range r.Captions {
			segs = append(segs, transcript.Segment{
				Text:           transcript.Normalize(c),
				OffsetMillis:   int64(i) * apifyCaptionStepMs,
				DurationMillis: apifyCaptionStepMs,
			})
		}
		return segs
	default:
		return nil
	}
}

// toTranscript normalizes the result and enforces the acceptance floor.
func (r apifyResult) toTranscript() (transcript.Transcript, error) {
	if r.Shape == ShapeUnrecognized {
		return transcript.Transcript{}, fmt.Errorf("%w: unrecognized dataset item shape", transcript.ErrEmptyResult)
	}
	segs := r.segments()
	var text string
	if r.Shape == ShapePlainText {
		text = transcript.Normalize(r.Text)
	} else {
		text = transcript.JoinSegments(segs)
	}
	if err := transcript.Accept(text); err != nil {
		return transcript.Transcript{}, err
	}

	duration := r.Duration
	if n := len(segs); duration == 0 && n > 0 {
		duration = segs[n-1].OffsetMillis + segs[n-1].DurationMillis
	}
	title := r.Title
	if title == "" {
		title = apifyDefaultTitle
	}
	return transcript.Transcript{
		Text:           text,
		Segments:       segs,
		VideoTitle:     title,
		DurationMillis: duration,
		Source:         transcript.SourceRemoteService,
	}, nil
}

type apifyRunResp struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

func (a *Apify) endpoint(path string) string {
	return strings.TrimRight(a.BaseURL, "/") + path + "?token=" + url.QueryEscape(a.APIKey)
}

func (a *Apify) actorPath() string {
	// Apify accepts "user~actor"; the slash form must be rewritten.
	return url.PathEscape(strings.Replace(a.ActorID, "/", "~", 1))
}

// do sends one request and returns the body of a 2xx response. Non-2xx
// replies become ErrServiceStatus carrying the status and a body snippet.
func (a *Apify) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: apify: %w", transcript.ErrTransport, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, apifyMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: apify: read body: %w", transcript.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: apify HTTP %d: %s", transcript.ErrServiceStatus, resp.StatusCode, engine.TruncateRunes(string(data), 200, "..."))
	}
	return data, nil
}

func (a *Apify) runInput(videoID string) []byte {
	body, _ := json.Marshal(map[string]any{
		"urls":       []string{transcript.WatchURL(videoID)},
		"maxRetries": 2,
	})
	return body
}

// startRun launches the actor and returns the run id.
func (a *Apify) startRun(ctx context.Context, videoID string) (string, error) {
	data, err := a.do(ctx, http.MethodPost, a.endpoint("/v2/acts/"+a.actorPath()+"/runs"), a.runInput(videoID))
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	var run apifyRunResp
	if err := json.Unmarshal(data, &run); err != nil || run.Data.ID == "" {
		return "", fmt.Errorf("%w: start run: missing run id", transcript.ErrServiceStatus)
	}
	return run.Data.ID, nil
}

// waitRun polls the run until it reaches a terminal state or MaxWait elapses.
func (a *Apify) waitRun(ctx context.Context, runID string) error {
	return pollUntilDone(ctx, a.PollInterval, a.MaxWait, func(ctx context.Context) error {
		data, err := a.do(ctx, http.MethodGet, a.endpoint("/v2/actor-runs/"+url.PathEscape(runID)), nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("poll run %s: %w", runID, err))
		}
		var run apifyRunResp
		if err := json.Unmarshal(data, &run); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: poll run %s: %v", transcript.ErrServiceStatus, runID, err))
		}
		switch run.Data.Status {
		case apifySucceeded:
			return nil
		case apifyFailed, apifyAborted, apifyTimedOut:
			return backoff.Permanent(fmt.Errorf("%w: run %s %s", transcript.ErrRemoteJobFailed, runID, run.Data.Status))
		default:
			slog.Debug("apify: run pending", slog.String("run", runID), slog.String("status", run.Data.Status))
			return errPending
		}
	})
}

func decodeDataset(data []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: dataset is not a JSON array: %v", transcript.ErrServiceStatus, err)
	}
	return items, nil
}

// fetchPoll runs the actor asynchronously and reads its dataset once it succeeds.
func (a *Apify) fetchPoll(ctx context.Context, videoID string) ([]json.RawMessage, error) {
	runID, err := a.startRun(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if err := a.waitRun(ctx, runID); err != nil {
		return nil, err
	}
	data, err := a.do(ctx, http.MethodGet, a.endpoint("/v2/actor-runs/"+url.PathEscape(runID)+"/dataset/items"), nil)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	return decodeDataset(data)
}

// fetchSync blocks on run-sync-get-dataset-items, bounded by MaxWait.
func (a *Apify) fetchSync(ctx context.Context, videoID string) ([]json.RawMessage, error) {
	syncCtx, cancel := context.WithTimeout(ctx, a.MaxWait)
	defer cancel()
	data, err := a.do(syncCtx, http.MethodPost, a.endpoint("/v2/acts/"+a.actorPath()+"/run-sync-get-dataset-items"), a.runInput(videoID))
	if err != nil {
		if syncCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", transcript.ErrTimeout, a.MaxWait)
		}
		if strings.Contains(err.Error(), "HTTP 408") {
			return nil, fmt.Errorf("%w: %v", transcript.ErrTimeout, err)
		}
		return nil, err
	}
	return decodeDataset(data)
}

// Fetch runs the actor for videoID and converts the first recognizable
// dataset item into a transcript.
func (a *Apify) Fetch(ctx context.Context, videoID string) (transcript.Transcript, error) {
	if a.APIKey == "" {
		return transcript.Transcript{}, fmt.Errorf("%w: set APIFY_API_KEY to enable", transcript.ErrNotConfigured)
	}
	engine.IncrApifyRun()

	var (
		items []json.RawMessage
		err   error
	)
	if a.Mode == apifyModeSync {
		items, err = a.fetchSync(ctx, videoID)
	} else {
		items, err = a.fetchPoll(ctx, videoID)
	}
	if err != nil {
		return transcript.Transcript{}, err
	}
	if len(items) == 0 {
		return transcript.Transcript{}, fmt.Errorf("%w: empty dataset", transcript.ErrEmptyResult)
	}

	var lastErr error
	for _, raw := range items {
		res := classifyApifyItem(raw)
		if res.Shape == ShapeUnrecognized {
			continue
		}
		t, err := res.toTranscript()
		if err == nil {
			slog.Debug("apify: transcript received", slog.String("id", videoID), slog.String("shape", res.Shape.String()))
			return t, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return transcript.Transcript{}, lastErr
	}
	return transcript.Transcript{}, fmt.Errorf("%w: unrecognized dataset item shape", transcript.ErrEmptyResult)
}
