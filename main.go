// go_carousel — YouTube to Instagram carousel MCP server.
//
// Resolves video transcripts through a fixed chain of sources (native
// captions, watch-page caption tracks, Apify, yt-dlp + AssemblyAI), extracts
// slide concepts and builds Instagram copy and slide image prompts.
package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-kit/llm"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/anatolykoptev/go_carousel/internal/carouselserver"
	"github.com/anatolykoptev/go_carousel/internal/engine"
	"github.com/anatolykoptev/go_carousel/internal/engine/sources"
	"github.com/anatolykoptev/go_carousel/internal/engine/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	initEngine()

	slog.Info("starting go_carousel",
		slog.String("port", mcpPort),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_carousel",
		Version: version,
	}, nil)

	resolver := sources.NewResolver(engine.Cfg)
	slog.Info("transcript chain ready", slog.Any("sources", resolver.Sources()))

	carouselserver.RegisterTools(server, resolver, openHistory())
	slog.Info("tools registered", slog.Int("count", carouselserver.ToolCount))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_carousel",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 900 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func initEngine() {
	c := engine.Config{
		LLMAPIKey:              env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks:     env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:             env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:               env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:         env.Float("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:           env.Int("LLM_MAX_TOKENS", 4096),
		FetchTimeout:           env.Duration("FETCH_TIMEOUT", 30*time.Second),
		CaptionLangs:           env.List("CAPTION_LANGS", "en,es"),
		InnertubeRPS:           env.Float("INNERTUBE_RPS", 2),
		MaxTranscriptChars:     env.Int("MAX_TRANSCRIPT_CHARS", 8000),
		DefaultSlideCount:      env.Int("DEFAULT_SLIDE_COUNT", 7),
		ApifyAPIKey:            env.Str("APIFY_API_KEY", ""),
		ApifyActorID:           env.Str("APIFY_ACTOR_ID", ""),
		ApifyMode:              env.Str("APIFY_MODE", "poll"),
		ApifyBaseURL:           env.Str("APIFY_BASE_URL", ""),
		ApifyPollInterval:      env.Duration("APIFY_POLL_INTERVAL", 2*time.Second),
		ApifyMaxWait:           env.Duration("APIFY_MAX_WAIT", 60*time.Second),
		AssemblyAIAPIKey:       env.Str("ASSEMBLYAI_API_KEY", ""),
		AssemblyAIBaseURL:      env.Str("ASSEMBLYAI_BASE_URL", ""),
		AssemblyAIPollInterval: env.Duration("ASSEMBLYAI_POLL_INTERVAL", 3*time.Second),
		AssemblyAIMaxWait:      env.Duration("ASSEMBLYAI_MAX_WAIT", 10*time.Minute),
		YtDlpPath:              env.Str("YTDLP_PATH", ""),
		AudioTempDir:           env.Str("AUDIO_TEMP_DIR", ""),
		HistoryDSN:             env.Str("HISTORY_DSN", ""),
		CacheMaxEntries:        env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval:   env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		// No client-wide timeout: Apify sync runs and audio uploads outlive
		// FETCH_TIMEOUT and carry their own ceilings.
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
	var opts []stealth.ClientOption
	opts = append(opts, stealth.WithTimeout(15))

	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Error("stealth client init failed", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}

	if c.LLMAPIKey != "" {
		c.LLMClient = llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
			llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
			llm.WithMaxTokens(c.LLMMaxTokens),
			llm.WithTemperature(c.LLMTemperature),
			llm.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
		)
	} else {
		slog.Info("LLM_API_KEY not set, using heuristic concept extraction")
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 24*time.Hour)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}

// openHistory opens the resolution history store; nil when disabled or broken.
func openHistory() *store.History {
	if engine.Cfg.HistoryDSN == "" {
		slog.Info("HISTORY_DSN not set, resolution history disabled")
		return nil
	}
	h, err := store.Default()
	if err != nil {
		slog.Warn("history store init failed", slog.Any("error", err))
		return nil
	}
	slog.Info("history store initialized")
	return h
}
