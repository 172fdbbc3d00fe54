package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anatolykoptev/go_carousel/internal/engine"
	"github.com/anatolykoptev/go_carousel/internal/engine/transcript"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

const assemblyAIBaseURL = "https://api.assemblyai.com"

// AudioSTT is the audio-stt source: it downloads the audio track with yt-dlp
// and transcribes it with AssemblyAI. Every file it creates is removed before
// Fetch returns.
type AudioSTT struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	MaxWait      time.Duration
	TempDir      string
	Client       *http.Client
	Downloader   Downloader
}

// NewAudioSTT builds the audio-stt source from engine configuration.
func NewAudioSTT(c *engine.Config) *AudioSTT {
	s := &AudioSTT{
		APIKey:       c.AssemblyAIAPIKey,
		BaseURL:      c.AssemblyAIBaseURL,
		PollInterval: c.AssemblyAIPollInterval,
		MaxWait:      c.AssemblyAIMaxWait,
		TempDir:      c.AudioTempDir,
		Client:       c.HTTPClient,
		Downloader:   YtDlp{Path: c.YtDlpPath},
	}
	if s.BaseURL == "" {
		s.BaseURL = assemblyAIBaseURL
	}
	if s.PollInterval <= 0 {
		s.PollInterval = 3 * time.Second
	}
	if s.MaxWait <= 0 {
		s.MaxWait = 10 * time.Minute
	}
	if s.Client == nil {
		s.Client = engine.HTTP()
	}
	return s
}

func (s *AudioSTT) Name() string { return transcript.SourceAudioSTT }

// Configured reports whether an API key is set and yt-dlp can be found.
func (s *AudioSTT) Configured() (bool, string) {
	if s.APIKey == "" {
		return false, "set ASSEMBLYAI_API_KEY to enable"
	}
	if y, ok := s.Downloader.(YtDlp); ok && !y.Available() {
		return false, "install yt-dlp or set YTDLP_PATH to enable"
	}
	return true, ""
}

func (s *AudioSTT) tempDir() string {
	if s.TempDir != "" {
		return s.TempDir
	}
	return os.TempDir()
}

type assemblyTranscript struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"` // queued, processing, completed, error
	Text          string   `json:"text"`
	Error         string   `json:"error"`
	AudioDuration *float64 `json:"audio_duration"` // seconds
}

// request sends an authenticated request and decodes a 2xx JSON reply into out.
func (s *AudioSTT) request(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(s.BaseURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", s.APIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: assemblyai %s: %w", transcript.ErrTransport, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return fmt.Errorf("%w: assemblyai %s: read body: %w", transcript.ErrTransport, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: assemblyai %s HTTP %d: %s", transcript.ErrServiceStatus, path, resp.StatusCode, engine.TruncateRunes(string(data), 200, "..."))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: assemblyai %s: decode: %v", transcript.ErrServiceStatus, path, err)
	}
	return nil
}

// upload streams the audio file to AssemblyAI and returns its private URL.
func (s *AudioSTT) upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open audio: %v", transcript.ErrDownloadFailed, err)
	}
	defer f.Close()

	var out struct {
		UploadURL string `json:"upload_url"`
	}
	if err := s.request(ctx, http.MethodPost, "/v2/upload", "application/octet-stream", f, &out); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("%w: upload: missing upload_url", transcript.ErrServiceStatus)
	}
	return out.UploadURL, nil
}

// submit creates a transcription job with automatic language detection.
func (s *AudioSTT) submit(ctx context.Context, audioURL string) (string, error) {
	body, _ := json.Marshal(map[string]any{
		"audio_url":          audioURL,
		"language_detection": true,
	})
	var job assemblyTranscript
	if err := s.request(ctx, http.MethodPost, "/v2/transcript", "application/json", bytes.NewReader(body), &job); err != nil {
		return "", fmt.Errorf("submit: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("%w: submit: missing job id", transcript.ErrServiceStatus)
	}
	return job.ID, nil
}

// wait polls the job until it completes. A job in "error" state fails
// immediately and is not retried.
func (s *AudioSTT) wait(ctx context.Context, jobID string) (assemblyTranscript, error) {
	var result assemblyTranscript
	err := pollUntilDone(ctx, s.PollInterval, s.MaxWait, func(ctx context.Context) error {
		var job assemblyTranscript
		if err := s.request(ctx, http.MethodGet, "/v2/transcript/"+jobID, "", nil, &job); err != nil {
			return backoff.Permanent(err)
		}
		switch job.Status {
		case "completed":
			result = job
			return nil
		case "error":
			return backoff.Permanent(fmt.Errorf("%w: %s", transcript.ErrTranscriptionFailed, job.Error))
		default:
			return errPending
		}
	})
	return result, err
}

// Fetch downloads the audio for videoID and transcribes it.
func (s *AudioSTT) Fetch(ctx context.Context, videoID string) (transcript.Transcript, error) {
	if s.APIKey == "" {
		return transcript.Transcript{}, fmt.Errorf("%w: set ASSEMBLYAI_API_KEY to enable", transcript.ErrNotConfigured)
	}

	dir := s.tempDir()
	prefix := fmt.Sprintf("youtube_audio_%s_%s", videoID, uuid.NewString())
	defer removeArtifacts(dir, prefix)

	engine.IncrAudioDownload()
	info, err := s.Downloader.Download(ctx, transcript.WatchURL(videoID), filepath.Join(dir, prefix+".%(ext)s"))
	if err != nil {
		return transcript.Transcript{}, err
	}
	audioPath, err := locateAudio(dir, prefix)
	if err != nil {
		return transcript.Transcript{}, err
	}

	durationMs := int64(math.Round(info.DurationSeconds * 1000))
	if durationMs == 0 && strings.HasSuffix(audioPath, ".mp3") {
		if d, err := mp3Duration(audioPath); err == nil {
			durationMs = d.Milliseconds()
		}
	}
	slog.Debug("audio: downloaded", slog.String("id", videoID), slog.String("file", filepath.Base(audioPath)), slog.Int64("duration_ms", durationMs))

	engine.IncrAssemblyAIJob()
	uploadURL, err := s.upload(ctx, audioPath)
	if err != nil {
		return transcript.Transcript{}, err
	}
	jobID, err := s.submit(ctx, uploadURL)
	if err != nil {
		return transcript.Transcript{}, err
	}
	job, err := s.wait(ctx, jobID)
	if err != nil {
		return transcript.Transcript{}, err
	}

	text := transcript.Normalize(job.Text)
	if err := transcript.Accept(text); err != nil {
		return transcript.Transcript{}, err
	}
	if durationMs == 0 && job.AudioDuration != nil {
		durationMs = int64(math.Round(*job.AudioDuration * 1000))
	}
	title := info.Title
	if title == "" {
		title = transcript.UnknownTitle
	}

	return transcript.Transcript{
		Text:           text,
		VideoTitle:     title,
		DurationMillis: durationMs,
		Source:         transcript.SourceAudioSTT,
	}, nil
}
