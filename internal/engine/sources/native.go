package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/anatolykoptev/go_carousel/internal/engine"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Innertube is the native-captions source: it reads YouTube's own transcript
// panel through the WEB Innertube API (/next → /get_transcript).
type Innertube struct {
	BaseURL string
	Client  *http.Client
	Limiter *rate.Limiter

	mu      sync.Mutex
	session *innertubeSession
	group   singleflight.Group
}

// innertubeSession is the process-wide client identity obtained on first use.
type innertubeSession struct {
	VisitorData   string
	ClientVersion string
}

// NewInnertube returns a native-captions source paced at rps requests per
// second (rps <= 0 disables pacing).
func NewInnertube(client *http.Client, rps float64) *Innertube {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Innertube{
		BaseURL: ytBaseURL,
		Client:  client,
		Limiter: rate.NewLimiter(limit, 1),
	}
}

func (s *Innertube) Name() string { return transcript.SourceNative }

var (
	visitorDataRe   = regexp.MustCompile(`"VISITOR_DATA":"([^"]+)"`)
	clientVersionRe = regexp.MustCompile(`"INNERTUBE_CLIENT_VERSION":"([^"]+)"`)
	// getTranscriptRE extracts the continuation token from a raw /next JSON response.
	getTranscriptRE = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)
)

// getSession returns the cached session, performing the handshake on first
// use. Concurrent first callers share one handshake; a failed handshake is not
// cached so a later call retries it.
func (s *Innertube) getSession(ctx context.Context) (*innertubeSession, error) {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess != nil {
		return sess, nil
	}

	v, err, _ := s.group.Do("session", func() (any, error) {
		s.mu.Lock()
		cached := s.session
		s.mu.Unlock()
		if cached != nil {
			return cached, nil
		}
		sess, err := s.handshake(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.session = sess
		s.mu.Unlock()
		slog.Debug("innertube: session ready", slog.String("client_version", sess.ClientVersion))
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*innertubeSession), nil
}

// handshake loads the YouTube home page and reads the ytcfg visitor id and
// WEB client version. Missing fields fall back to a generated visitor id and
// the pinned client version.
func (s *Innertube) handshake(ctx context.Context) (*innertubeSession, error) {
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		return s.Client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: innertube handshake: %v", transcript.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: innertube handshake: HTTP %d", transcript.ErrTransport, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("%w: innertube handshake: %v", transcript.ErrTransport, err)
	}

	sess := &innertubeSession{VisitorData: generateVisitorData(), ClientVersion: ytWebVersion}
	if m := visitorDataRe.FindSubmatch(body); len(m) >= 2 {
		sess.VisitorData = string(m[1])
	}
	if m := clientVersionRe.FindSubmatch(body); len(m) >= 2 {
		sess.ClientVersion = string(m[1])
	}
	return sess, nil
}

func extractTranscriptToken(data []byte) (string, error) {
	if m := getTranscriptRE.FindSubmatch(data); len(m) >= 2 {
		// The params value in the /next JSON response is URL-encoded.
		// /get_transcript expects the decoded (raw base64) form.
		decoded, err := url.QueryUnescape(string(m[1]))
		if err != nil {
			return string(m[1]), nil
		}
		return decoded, nil
	}
	return "", fmt.Errorf("%w: getTranscriptEndpoint not found in engagement panels", transcript.ErrNoCaptions)
}

// parseTranscriptSegments converts a /get_transcript response into timed segments.
// Offsets are startMs; durations are endMs - startMs.
func parseTranscriptSegments(resp ytGetTranscriptResp) []transcript.Segment {
	var segs []transcript.Segment
	for _, action := range resp.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		initial := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range initial {
			r := seg.TranscriptSegmentRenderer
			if r == nil {
				continue
			}
			var sb strings.Builder
			for _, run := range r.Snippet.Runs {
				sb.WriteString(run.Text)
			}
			text := transcript.Normalize(sb.String())
			if text == "" {
				continue
			}
			start, _ := strconv.ParseInt(r.StartMs, 10, 64)
			end, _ := strconv.ParseInt(r.EndMs, 10, 64)
			dur := end - start
			if dur < 0 {
				dur = 0
			}
			segs = append(segs, transcript.Segment{Text: text, OffsetMillis: start, DurationMillis: dur})
		}
	}
	return segs
}

// fetchMetadata reads title and duration from the WEB /player endpoint. Best-effort.
func (s *Innertube) fetchMetadata(ctx context.Context, sess *innertubeSession, videoID string) *videoDetails {
	data, err := postInnerTubeWEB(ctx, s.Client, s.BaseURL+ytPlayerPath, map[string]any{
		"videoId": videoID,
		"context": ytWebContext(sess),
	}, sess)
	if err != nil {
		slog.Debug("innertube: metadata unavailable", slog.String("id", videoID), slog.Any("error", err))
		return nil
	}
	var player innertubePlayerResp
	if err := json.Unmarshal(data, &player); err != nil {
		return nil
	}
	return player.VideoDetails
}

// Fetch fetches a transcript via:
//  1. POST /next → engagement panels containing the transcript continuation token
//  2. POST /get_transcript with the token → timed segments
func (s *Innertube) Fetch(ctx context.Context, videoID string) (transcript.Transcript, error) {
	if s.Limiter != nil {
		if err := s.Limiter.Wait(ctx); err != nil {
			return transcript.Transcript{}, err
		}
	}
	sess, err := s.getSession(ctx)
	if err != nil {
		return transcript.Transcript{}, err
	}

	details := s.fetchMetadata(ctx, sess, videoID)

	nextData, err := postInnerTubeWEB(ctx, s.Client, s.BaseURL+ytNextPath, map[string]any{
		"videoId": videoID,
		"context": ytWebContext(sess),
	}, sess)
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("/next: %w", err)
	}

	token, err := extractTranscriptToken(nextData)
	if err != nil {
		return transcript.Transcript{}, err
	}

	transcriptData, err := postInnerTubeWEB(ctx, s.Client, s.BaseURL+ytGetTranscriptPath, map[string]any{
		"params":  token,
		"context": ytWebContext(sess),
	}, sess)
	if err != nil {
		return transcript.Transcript{}, fmt.Errorf("/get_transcript: %w", err)
	}

	var transcriptResp ytGetTranscriptResp
	if err := json.Unmarshal(transcriptData, &transcriptResp); err != nil {
		return transcript.Transcript{}, fmt.Errorf("%w: decode transcript: %v", transcript.ErrTransport, err)
	}

	segs := parseTranscriptSegments(transcriptResp)
	if len(segs) == 0 {
		return transcript.Transcript{}, fmt.Errorf("%w: empty transcript segments", transcript.ErrNoCaptions)
	}
	text := transcript.JoinSegments(segs)
	if err := transcript.Accept(text); err != nil {
		return transcript.Transcript{}, err
	}

	duration := details.durationMillis()
	if duration == 0 {
		last := segs[len(segs)-1]
		duration = last.OffsetMillis + last.DurationMillis
	}
	title := details.title()
	if title == "" {
		title = transcript.UnknownTitle
	}

	return transcript.Transcript{
		Text:           text,
		Segments:       segs,
		VideoTitle:     title,
		DurationMillis: duration,
		Source:         transcript.SourceNative,
	}, nil
}
