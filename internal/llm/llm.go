// Package llm wraps the external generative-text provider behind a single
// capability: turn a prompt into text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/quizmind/apiserver/config"
)

// ErrEmptyResponse is returned when the provider answered without content.
var ErrEmptyResponse = errors.New("model returned no content")

// Generator produces text for a prompt. Implementations must honour ctx
// cancellation; callers bound latency with a deadline on ctx.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// New builds the Generator selected by cfg.Provider.
func New(cfg config.LLMConfig) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "openai":
		return NewOpenAIClient(cfg)
	case "stub":
		return NewStubClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
