// gemini.go - Gemini provider: multimodal analysis and chat via the genai SDK

package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/bosocmputer/waspada_api/configs"
	"github.com/bosocmputer/waspada_api/internal/common"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider implements VisionProvider interface for Google Gemini
type GeminiProvider struct {
	apiKey    string
	modelName string
	options   []option.ClientOption
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(apiKey, modelName string, opts ...option.ClientOption) *GeminiProvider {
	return &GeminiProvider{
		apiKey:    apiKey,
		modelName: modelName,
		options:   opts,
	}
}

// GetProviderName returns "gemini"
func (g *GeminiProvider) GetProviderName() string {
	return "gemini"
}

// ModelName returns the configured Gemini model
func (g *GeminiProvider) ModelName() string {
	return g.modelName
}

func (g *GeminiProvider) newClient(ctx context.Context) (*genai.Client, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(g.apiKey)}, g.options...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// Analyze sends the screenshot with JSON-only output enforced by a response schema
func (g *GeminiProvider) Analyze(ctx context.Context, req *VisionRequest, reqCtx *common.RequestContext) (*Completion, error) {
	if req == nil || req.Image == nil {
		return nil, fmt.Errorf("gemini analyze: image is required")
	}

	reqCtx.StartSubStep("init_gemini_client")
	client, err := g.newClient(ctx)
	if err != nil {
		reqCtx.EndSubStep("❌ FAILED")
		return nil, err
	}
	defer client.Close()

	model := client.GenerativeModel(g.modelName)

	// Explicit MaxOutputTokens so truncation is visible through FinishReason
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = configs.MAX_OUTPUT_TOKENS
	}
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: ptr(int32(maxTokens)),
	}
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = createAnalysisSchema()

	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}
	reqCtx.EndSubStep(fmt.Sprintf("model: %s, max tokens: %d", g.modelName, maxTokens))

	reqCtx.StartSubStep("call_gemini_api")
	resp, err := model.GenerateContent(ctx,
		genai.Text(req.UserText),
		genai.Blob{
			MIMEType: req.Image.MIMEType,
			Data:     req.Image.Data,
		},
	)
	if err != nil {
		reqCtx.EndSubStep("❌ FAILED")
		return nil, err
	}
	reqCtx.EndSubStep("")

	return g.toCompletion(resp, reqCtx)
}

// Chat runs a plain text completion
func (g *GeminiProvider) Chat(ctx context.Context, prompt string, reqCtx *common.RequestContext) (*Completion, error) {
	client, err := g.newClient(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	model := client.GenerativeModel(g.modelName)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: ptr(int32(configs.MAX_OUTPUT_TOKENS)),
	}
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(GetChatSystemPrompt())},
	}

	reqCtx.StartSubStep("call_gemini_api")
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		reqCtx.EndSubStep("❌ FAILED")
		return nil, err
	}
	reqCtx.EndSubStep("")

	return g.toCompletion(resp, reqCtx)
}

// toCompletion converts a genai response into the provider-neutral form
func (g *GeminiProvider) toCompletion(resp *genai.GenerateContentResponse, reqCtx *common.RequestContext) (*Completion, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no response from Gemini API")
	}

	candidate := resp.Candidates[0]

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}

	completion := &Completion{
		Text:         text.String(),
		FinishReason: candidate.FinishReason.String(),
		Provider:     g.GetProviderName(),
		Model:        g.modelName,
	}

	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		completion.Truncated = true
		reqCtx.LogWarning("Response was truncated (FinishReason: MAX_TOKENS)")
	}

	if resp.UsageMetadata != nil {
		tokens := common.CalculateTokenCost(
			int(resp.UsageMetadata.PromptTokenCount),
			int(resp.UsageMetadata.CandidatesTokenCount),
		)
		completion.Usage = &tokens
	}

	reqCtx.LogInfo("📦 Received response: %d chars", len(completion.Text))
	return completion, nil
}

// createAnalysisSchema creates the JSON schema for the screenshot analysis reply
func createAnalysisSchema() *genai.Schema {
	stringList := func(desc string) *genai.Schema {
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: desc,
			Items:       &genai.Schema{Type: genai.TypeString},
		}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"out_of_scope": {
				Type:        genai.TypeBoolean,
				Description: "True when the screenshot has no Malaysian context",
			},
			"malaysia_relevance": {
				Type:        genai.TypeString,
				Description: "One sentence on why this is or is not a Malaysian situation",
			},
			"scenario": {
				Type:   genai.TypeString,
				Format: "enum",
				Enum:   Scenarios,
			},
			"verdict": {
				Type:   genai.TypeString,
				Format: "enum",
				Enum:   Verdicts,
			},
			"risk": {
				Type:   genai.TypeString,
				Format: "enum",
				Enum:   Risks,
			},
			"what_the_screenshot_suggests": {
				Type:        genai.TypeString,
				Description: "1-2 sentences",
			},
			"key_red_flags":    stringList("Red flags, max 8"),
			"what_to_do_next":  stringList("Concrete next steps, max 10"),
			"who_to_contact":   stringList("Only the provided official resources plus the user's bank"),
			"evidence_to_save": stringList("Evidence to keep, max 8"),
			"message_you_can_copy": {
				Type:        genai.TypeString,
				Description: "2-5 line message for the bank or family",
			},
			"disclaimer": {
				Type: genai.TypeString,
			},
		},
		Required: RequiredKeys,
	}
}

// ptr is a helper function to get a pointer to an int32 value
func ptr(i int32) *int32 {
	return &i
}
