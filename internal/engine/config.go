package engine

import (
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMClient          *llm.Client // nil = heuristic concept extraction only

	FetchTimeout       time.Duration
	CaptionLangs       []string // preferred caption languages, in order
	InnertubeRPS       float64
	MaxTranscriptChars int // transcript prefix handed to the language model
	DefaultSlideCount  int

	ApifyAPIKey       string // empty = remote-service source skipped
	ApifyActorID      string
	ApifyMode         string // "poll" or "sync"
	ApifyBaseURL      string
	ApifyPollInterval time.Duration
	ApifyMaxWait      time.Duration

	AssemblyAIAPIKey       string // empty = audio-stt source skipped
	AssemblyAIBaseURL      string
	AssemblyAIPollInterval time.Duration
	AssemblyAIMaxWait      time.Duration
	YtDlpPath              string
	AudioTempDir           string

	HistoryDSN string // empty = resolution history disabled

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration
	HTTPClient           *http.Client
	BrowserClient        *BrowserClient // nil = watch page fetched with HTTPClient
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, carousel, store).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
	Cfg = &cfg
}

// HTTP returns the configured HTTP client, or http.DefaultClient before Init.
func HTTP() *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	return http.DefaultClient
}
