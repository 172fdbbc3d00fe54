package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anatolykoptev/go-kit/llm"
)

// ErrLLMDisabled is returned when no language-model client is configured.
var ErrLLMDisabled = errors.New("llm: client not configured")

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// LLMEnabled reports whether a language-model client is configured.
func LLMEnabled() bool {
	return cfg.LLMClient != nil && cfg.LLMAPIKey != ""
}

// CallLLM sends a prompt using the configured temperature and max_tokens.
// Code fences are stripped from the reply.
func CallLLM(ctx context.Context, prompt string) (string, error) {
	if !LLMEnabled() {
		return "", ErrLLMDisabled
	}
	IncrLLMCall()
	resp, err := cfg.LLMClient.Complete(ctx, "", prompt)
	if err != nil {
		IncrLLMError()
		return "", err
	}
	return stripFences(resp), nil
}

// CallLLMTuned is CallLLM with per-call temperature and max_tokens.
func CallLLMTuned(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	if !LLMEnabled() {
		return "", ErrLLMDisabled
	}
	IncrLLMCall()
	resp, err := cfg.LLMClient.Complete(ctx, "", prompt,
		llm.WithChatTemperature(temperature),
		llm.WithChatMaxTokens(maxTokens),
	)
	if err != nil {
		IncrLLMError()
		return "", err
	}
	return stripFences(resp), nil
}

// CallLLMJSON sends a prompt and decodes the reply as JSON into T.
func CallLLMJSON[T any](ctx context.Context, prompt string) (T, error) {
	var out T
	raw, err := CallLLM(ctx, prompt)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(ExtractJSONObject(raw)), &out); err != nil {
		return out, fmt.Errorf("llm: parse failed on %q: %w", TruncateRunes(raw, 200, "..."), err)
	}
	return out, nil
}

// ExtractJSONObject returns the outermost {...} span of s, or s unchanged
// when no braces are present. Models often wrap JSON in prose.
func ExtractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
