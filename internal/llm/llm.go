// Package llm is the language-model boundary. Narrative generation and
// topic labeling go through here; everything degrades to a rule-based
// fallback so the pipeline never blocks on provider availability.
package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"newslens/internal/logger"
	"newslens/internal/metrics"
)

// Source tags where a result came from.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Request is one reasoning call.
type Request struct {
	System    string // Optional system prompt
	Prompt    string
	MaxTokens int  // 0 means the service default
	WantJSON  bool // Response must contain a single JSON object
}

// Result is the outcome of an invocation. When Source is SourceFallback the
// Text is empty and the caller composes its own deterministic output.
type Result struct {
	Text   string `json:"text"`
	JSON   string `json:"json,omitempty"` // Extracted JSON object when requested
	Source string `json:"source"`
	Model  string `json:"model,omitempty"`
}

// Provider is a concrete LLM backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, apiKey string, req Request) (string, error)
}

// Invoker is what pipeline stages depend on.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Result, error)
}

// Service fronts a Provider with key rotation and graceful degradation.
// A nil provider, exhausted keys or a provider error all yield a fallback
// result rather than an error; only context cancellation propagates.
type Service struct {
	provider Provider
	keys     *KeyManager
	maxTok   int
	timeout  time.Duration
	metrics  *metrics.Registry
	log      zerolog.Logger
}

// NewService builds the reasoning service. Provider may be nil, in which
// case every invocation is a fallback.
func NewService(provider Provider, keys *KeyManager, maxTokens int, timeout time.Duration, reg *metrics.Registry) *Service {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		provider: provider,
		keys:     keys,
		maxTok:   maxTokens,
		timeout:  timeout,
		metrics:  reg,
		log:      logger.With("llm"),
	}
}

func (s *Service) fallback() *Result {
	return &Result{Source: SourceFallback}
}

// Invoke runs one reasoning call. See Service for the degradation contract.
func (s *Service) Invoke(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.provider == nil {
		return s.fallback(), nil
	}

	key, ok := s.keys.Acquire(time.Now())
	if !ok {
		s.log.Debug().Msg("all API keys rate limited, degrading to fallback")
		s.metrics.LLMCall(s.provider.Name(), "fallback")
		return s.fallback(), nil
	}

	if req.MaxTokens <= 0 {
		req.MaxTokens = s.maxTok
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.provider.Complete(callCtx, key, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if IsRateLimited(err) {
			s.keys.Cooldown(key)
			s.log.Warn().Msg("API key rate limited by provider, cooling down")
		} else {
			s.log.Error().Err(err).Msg("provider call failed, degrading to fallback")
		}
		s.metrics.LLMCall(s.provider.Name(), "error")
		return s.fallback(), nil
	}

	res := &Result{Text: text, Source: SourceLLM, Model: s.provider.Name()}
	if req.WantJSON {
		obj, jerr := ExtractJSON(text)
		if jerr != nil {
			s.log.Warn().Err(jerr).Msg("response contained no valid JSON, degrading to fallback")
			s.metrics.LLMCall(s.provider.Name(), "error")
			return s.fallback(), nil
		}
		res.JSON = obj
	}
	s.metrics.LLMCall(s.provider.Name(), "ok")
	return res, nil
}
