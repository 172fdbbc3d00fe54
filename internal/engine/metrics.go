package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	TranscriptRequests atomic.Int64
	TranscriptFailures atomic.Int64
	SourceAttempts     atomic.Int64
	SourceFailures     atomic.Int64
	SourceSkips        atomic.Int64
	NativeSuccesses    atomic.Int64
	ScraperSuccesses   atomic.Int64
	RemoteSuccesses    atomic.Int64
	AudioSuccesses     atomic.Int64
	ApifyRuns          atomic.Int64
	AssemblyAIJobs     atomic.Int64
	AudioDownloads     atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	CarouselsBuilt     atomic.Int64
}

var metricKeys = []string{
	"transcript_requests", "transcript_failures",
	"source_attempts", "source_failures", "source_skips",
	"native_successes", "scraper_library_successes",
	"remote_service_successes", "audio_stt_successes",
	"apify_runs", "assemblyai_jobs", "audio_downloads",
	"llm_calls", "llm_errors", "carousels_built",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"transcript_requests":       metrics.TranscriptRequests.Load(),
		"transcript_failures":       metrics.TranscriptFailures.Load(),
		"source_attempts":           metrics.SourceAttempts.Load(),
		"source_failures":           metrics.SourceFailures.Load(),
		"source_skips":              metrics.SourceSkips.Load(),
		"native_successes":          metrics.NativeSuccesses.Load(),
		"scraper_library_successes": metrics.ScraperSuccesses.Load(),
		"remote_service_successes":  metrics.RemoteSuccesses.Load(),
		"audio_stt_successes":       metrics.AudioSuccesses.Load(),
		"apify_runs":                metrics.ApifyRuns.Load(),
		"assemblyai_jobs":           metrics.AssemblyAIJobs.Load(),
		"audio_downloads":           metrics.AudioDownloads.Load(),
		"llm_calls":                 metrics.LLMCalls.Load(),
		"llm_errors":                metrics.LLMErrors.Load(),
		"carousels_built":           metrics.CarouselsBuilt.Load(),
		"cache_hits":                hits,
		"cache_misses":              misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the transcript resolver.
func IncrTranscriptRequest() { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptFailure() { metrics.TranscriptFailures.Add(1) }
func IncrSourceAttempt()     { metrics.SourceAttempts.Add(1) }
func IncrSourceFailure()     { metrics.SourceFailures.Add(1) }
func IncrSourceSkip()        { metrics.SourceSkips.Add(1) }

// IncrSourceSuccess counts a successful resolution by provenance tag.
func IncrSourceSuccess(source string) {
	switch source {
	case "native":
		metrics.NativeSuccesses.Add(1)
	case "scraper-library":
		metrics.ScraperSuccesses.Add(1)
	case "remote-service":
		metrics.RemoteSuccesses.Add(1)
	case "audio-stt":
		metrics.AudioSuccesses.Add(1)
	}
}

// Incrementors for sources/ sub-package.
func IncrApifyRun()      { metrics.ApifyRuns.Add(1) }
func IncrAssemblyAIJob() { metrics.AssemblyAIJobs.Add(1) }
func IncrAudioDownload() { metrics.AudioDownloads.Add(1) }

// Incrementors for carousel/ sub-package.
func IncrLLMCall()       { metrics.LLMCalls.Add(1) }
func IncrLLMError()      { metrics.LLMErrors.Add(1) }
func IncrCarouselBuilt() { metrics.CarouselsBuilt.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
