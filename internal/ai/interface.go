// interface.go - Vision Provider Interface for supporting multiple AI providers

package ai

import (
	"context"

	"github.com/bosocmputer/waspada_api/internal/common"
	"github.com/bosocmputer/waspada_api/internal/processor"
)

// VisionProvider defines the interface that all LLM providers must implement
// This allows us to support multiple AI providers (Gemini, OpenAI-compatible) with the same interface
type VisionProvider interface {
	// Analyze sends a screenshot plus instructions and expects a JSON object back.
	// One attempt only: retries and fallback are handled by the Analyzer.
	Analyze(ctx context.Context, req *VisionRequest, reqCtx *common.RequestContext) (*Completion, error)

	// Chat is a plain text completion used by /chat
	Chat(ctx context.Context, prompt string, reqCtx *common.RequestContext) (*Completion, error)

	// GetProviderName returns the name of the provider (e.g., "gemini", "openai")
	GetProviderName() string

	// ModelName returns the configured model
	ModelName() string
}

// VisionRequest is one multimodal call
type VisionRequest struct {
	SystemPrompt    string
	UserText        string
	Image           *processor.ImageInput
	MaxOutputTokens int
}

// Completion is the provider-neutral reply
type Completion struct {
	Text         string
	FinishReason string
	Truncated    bool
	Usage        *common.TokenUsage
	Provider     string
	Model        string
}
