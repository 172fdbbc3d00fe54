package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anatolykoptev/go_carousel/internal/engine"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testActorPath = "/v2/acts/im_broke~youtube-transcript-scraper"
	longSentence  = "Concurrency is not parallelism, and this talk explains why that distinction matters."
)

func newTestApify(srv *httptest.Server, mode string, maxWait time.Duration) *Apify {
	return NewApify(&engine.Config{
		ApifyAPIKey:       "apify-token",
		ApifyMode:         mode,
		ApifyBaseURL:      srv.URL,
		ApifyPollInterval: 10 * time.Millisecond,
		ApifyMaxWait:      maxWait,
		HTTPClient:        srv.Client(),
	})
}

// apifyRunServer serves the poll-mode endpoints. statuses are returned in
// order by the run status endpoint; the last one repeats.
func apifyRunServer(t *testing.T, statuses []string, dataset string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+testActorPath+"/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "apify-token" {
			t.Errorf("token missing from %s", r.URL)
		}
		body, _ := io.ReadAll(r.Body)
		var input struct {
			URLs []string `json:"urls"`
		}
		if err := json.Unmarshal(body, &input); err != nil || len(input.URLs) != 1 || !strings.Contains(input.URLs[0], "v=dQw4w9WgXcQ") {
			t.Errorf("unexpected run input %s", body)
		}
		fmt.Fprint(w, `{"data":{"id":"run-1","status":"READY"}}`)
	})
	mux.HandleFunc("GET /v2/actor-runs/run-1", func(w http.ResponseWriter, r *http.Request) {
		i := int(polls.Add(1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		fmt.Fprintf(w, `{"data":{"id":"run-1","status":%q}}`, statuses[i])
	})
	mux.HandleFunc("GET /v2/actor-runs/run-1/dataset/items", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, dataset)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &polls
}

func TestApifyPollSuccess(t *testing.T) {
	dataset := fmt.Sprintf(`[{"title":"Go Proverbs","duration":"120.5","transcript":[
		{"text":%q,"start":"0","duration":"4.2"},
		{"text":"[Applause] Thank you.","start":4.2,"duration":1.8}
	]}]`, longSentence)
	srv, polls := apifyRunServer(t, []string{"READY", "RUNNING", "SUCCEEDED"}, dataset)

	got, err := newTestApify(srv, apifyModePoll, 2*time.Second).Fetch(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)

	assert.Equal(t, transcript.SourceRemoteService, got.Source)
	assert.Equal(t, "Go Proverbs", got.VideoTitle)
	assert.Equal(t, int64(120500), got.DurationMillis)
	assert.Equal(t, longSentence+" Thank you.", got.Text)
	require.Len(t, got.Segments, 2)
	assert.Equal(t, int64(4200), got.Segments[1].OffsetMillis)
	assert.Equal(t, int64(1800), got.Segments[1].DurationMillis)
	assert.Equal(t, int32(3), polls.Load())
}

func TestApifyRunFailed(t *testing.T) {
	for _, status := range []string{apifyFailed, apifyAborted, apifyTimedOut} {
		t.Run(status, func(t *testing.T) {
			srv, polls := apifyRunServer(t, []string{"RUNNING", status}, `[]`)
			_, err := newTestApify(srv, apifyModePoll, 2*time.Second).Fetch(context.Background(), "dQw4w9WgXcQ")
			require.ErrorIs(t, err, transcript.ErrRemoteJobFailed)
			assert.Contains(t, err.Error(), status)
			assert.Equal(t, int32(2), polls.Load(), "terminal state must stop polling")
		})
	}
}

func TestApifyPollTimeout(t *testing.T) {
	srv, _ := apifyRunServer(t, []string{"RUNNING"}, `[]`)
	start := time.Now()
	_, err := newTestApify(srv, apifyModePoll, 150*time.Millisecond).Fetch(context.Background(), "dQw4w9WgXcQ")
	require.ErrorIs(t, err, transcript.ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestApifyEmptyDataset(t *testing.T) {
	srv, _ := apifyRunServer(t, []string{"SUCCEEDED"}, `[]`)
	_, err := newTestApify(srv, apifyModePoll, time.Second).Fetch(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, transcript.ErrEmptyResult)
}

func TestApifyServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"type":"invalid-token"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestApify(srv, apifyModePoll, time.Second).Fetch(context.Background(), "dQw4w9WgXcQ")
	require.ErrorIs(t, err, transcript.ErrServiceStatus)
	assert.Contains(t, err.Error(), "401")
}

func TestApifySyncMode(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+testActorPath+"/run-sync-get-dataset-items", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprintf(w, `[{"videoTitle":"Sync Talk","captions":[%q,"second caption","third caption"]}]`, longSentence)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	got, err := newTestApify(srv, apifyModeSync, time.Second).Fetch(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "Sync Talk", got.VideoTitle)

	offsets := make([]int64, 0, len(got.Segments))
	for _, s := range got.Segments {
		offsets = append(offsets, s.OffsetMillis)
		assert.Equal(t, int64(3000), s.DurationMillis)
	}
	assert.Equal(t, []int64{0, 3000, 6000}, offsets)
	assert.Equal(t, int64(9000), got.DurationMillis)
}

func TestApifySyncTimeoutStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestTimeout)
	}))
	defer srv.Close()

	_, err := newTestApify(srv, apifyModeSync, time.Second).Fetch(context.Background(), "dQw4w9WgXcQ")
	assert.ErrorIs(t, err, transcript.ErrTimeout)
}

func TestApifyNotConfigured(t *testing.T) {
	a := NewApify(&engine.Config{})
	ok, hint := a.Configured()
	assert.False(t, ok)
	assert.Contains(t, hint, "APIFY_API_KEY")

	_, err := a.Fetch(context.Background(), "dQw4w9WgXcQ")
	assert.True(t, errors.Is(err, transcript.ErrNotConfigured))
}

func TestClassifyApifyItem(t *testing.T) {
	tests := []struct {
		name  string
		item  string
		shape ResultShape
		title string
	}{
		{"timed items win", `{"title":"A","transcript":[{"text":"x","start":0,"duration":1}],"captions":["y"]}`, ShapeTranscriptItems, "A"},
		{"captions", `{"videoTitle":"B","captions":["one","two"]}`, ShapeCaptions, "B"},
		{"plain transcript string", `{"transcript":"just text"}`, ShapePlainText, ""},
		{"transcriptText", `{"transcriptText":"just text","transcript":[]}`, ShapePlainText, ""},
		{"empty arrays", `{"transcript":[],"captions":[]}`, ShapeUnrecognized, ""},
		{"not an object", `"hello"`, ShapeUnrecognized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyApifyItem(json.RawMessage(tt.item))
			if got.Shape != tt.shape {
				t.Errorf("shape = %s, want %s", got.Shape, tt.shape)
			}
			if got.Title != tt.title {
				t.Errorf("title = %q, want %q", got.Title, tt.title)
			}
		})
	}
}

func TestApifyResultDefaultTitle(t *testing.T) {
	res := apifyResult{Shape: ShapePlainText, Text: longSentence}
	got, err := res.toTranscript()
	require.NoError(t, err)
	assert.Equal(t, apifyDefaultTitle, got.VideoTitle)
	assert.Empty(t, got.Segments)

	_, err = apifyResult{Shape: ShapePlainText, Text: "short"}.toTranscript()
	assert.ErrorIs(t, err, transcript.ErrTooShort)
}

func TestApifyActorPath(t *testing.T) {
	a := &Apify{ActorID: "someone/transcripts"}
	assert.Equal(t, "someone~transcripts", a.actorPath())
}
