package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
)

// Provider constants for LLM provider selection.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config holds LLM client configuration.
type Config struct {
	Provider string        // "ollama" or "openai"
	BaseURL  string        // required for ollama; optional custom endpoint for openai
	APIKey   string        // required for openai
	Model    string        // model name (e.g., "qwen2.5:7b", "gpt-4o-mini")
	Timeout  time.Duration // per-call bound applied by the HTTP transport
}

// Client produces one completion per prompt. Implementations are safe for
// concurrent use.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// Request is a single-prompt completion request.
type Request struct {
	Prompt      string
	Temperature float64
	MaxTokens   int // output token bound; providers map this to their own knob
}

// Response carries the completion text plus token accounting.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// New creates a Client for the configured provider. Defaults to Ollama.
func New(cfg Config) (Client, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOllama
	}

	switch provider {
	case ProviderOllama:
		return newOllamaClient(cfg)
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// DecodeJSON unmarshals a model reply into T. Replies wrapped in markdown
// code fences are unwrapped first. A malformed reply is an error for the
// caller to discard, never to retry.
func DecodeJSON[T any](text string) (T, error) {
	var result T
	if err := json.Unmarshal([]byte(StripFences(text)), &result); err != nil {
		return result, fmt.Errorf("parse model reply: %w", err)
	}
	return result, nil
}

// StripFences removes a surrounding ```json ... ``` block if present.
func StripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 && !strings.ContainsAny(t[:i], "{[") {
		t = t[i+1:] // drop the language tag line
	}
	if i := strings.LastIndex(t, "```"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

// GenerateSchema reflects a JSON schema from T for embedding in prompts.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
