// factory.go - Vision Provider Factory for creating provider instances

package ai

import (
	"errors"
	"fmt"
	"log"

	"github.com/bosocmputer/waspada_api/configs"
)

// ErrMissingAPIKey is returned when the selected provider has no credential
var ErrMissingAPIKey = errors.New("missing LLM API key on server")

// CreateVisionProvider creates a vision provider based on configuration
func CreateVisionProvider() (VisionProvider, error) {
	provider := configs.LLM_PROVIDER

	switch provider {
	case "gemini":
		if configs.GEMINI_API_KEY == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrMissingAPIKey)
		}
		log.Printf("🔵 Creating Gemini provider (model: %s)", configs.GEMINI_MODEL)
		return NewGeminiProvider(configs.GEMINI_API_KEY, configs.GEMINI_MODEL), nil

	case "openai":
		if configs.OPENAI_API_KEY == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrMissingAPIKey)
		}
		log.Printf("🟢 Creating OpenAI-compatible provider (model: %s)", configs.OPENAI_MODEL)
		return NewOpenAIProvider(configs.OPENAI_API_KEY, configs.OPENAI_MODEL, configs.OPENAI_BASE_URL), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (supported: gemini, openai)", provider)
	}
}

// CreateVisionProviderWithFallback creates a vision provider with automatic fallback
// If the primary provider fails, the Analyzer will try the fallback provider
func CreateVisionProviderWithFallback() (primary VisionProvider, fallback VisionProvider, err error) {
	primary, err = CreateVisionProvider()
	if err != nil {
		return nil, nil, err
	}

	switch primary.GetProviderName() {
	case "gemini":
		if configs.OPENAI_API_KEY != "" {
			fallback = NewOpenAIProvider(configs.OPENAI_API_KEY, configs.OPENAI_MODEL, configs.OPENAI_BASE_URL)
			log.Printf("✅ Fallback provider configured: OpenAI")
		}

	case "openai":
		if configs.GEMINI_API_KEY != "" {
			fallback = NewGeminiProvider(configs.GEMINI_API_KEY, configs.GEMINI_MODEL)
			log.Printf("✅ Fallback provider configured: Gemini")
		}
	}

	return primary, fallback, nil
}
