// openai.go - OpenAI-compatible chat completions client

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bosocmputer/waspada_api/configs"
	"github.com/bosocmputer/waspada_api/internal/common"
)

// OpenAIProvider implements VisionProvider interface for OpenAI-compatible APIs
type OpenAIProvider struct {
	apiKey    string
	modelName string
	baseURL   string
	client    *http.Client
}

// NewOpenAIProvider creates a new OpenAI-compatible provider
func NewOpenAIProvider(apiKey, modelName, baseURL string) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// GetProviderName returns "openai"
func (o *OpenAIProvider) GetProviderName() string {
	return "openai"
}

// ModelName returns the configured model
func (o *OpenAIProvider) ModelName() string {
	return o.modelName
}

// APIError is a non-200 reply from the chat completions endpoint
type APIError struct {
	StatusCode int
	Message    string
	Type       string
	Code       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("openai API error (%d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("openai API error (%d): %s", e.StatusCode, e.Message)
}

// Chat completions request/response structures
type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIContentPart struct {
	Type     string          `json:"type"` // "text" or "image_url"
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string or []openAIContentPart
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	Temperature    float64               `json:"temperature"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string      `json:"message"`
		Type    string      `json:"type"`
		Code    interface{} `json:"code"`
	} `json:"error"`
}

// Analyze sends the screenshot as an image_url content part and asks for a JSON object
func (o *OpenAIProvider) Analyze(ctx context.Context, req *VisionRequest, reqCtx *common.RequestContext) (*Completion, error) {
	if req == nil || req.Image == nil {
		return nil, fmt.Errorf("openai analyze: image is required")
	}

	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = configs.MAX_OUTPUT_TOKENS
	}

	request := openAIRequest{
		Model: o.modelName,
		Messages: []openAIMessage{
			{Role: "system", Content: req.SystemPrompt},
			{
				Role: "user",
				Content: []openAIContentPart{
					{Type: "text", Text: req.UserText},
					{Type: "image_url", ImageURL: &openAIImageURL{URL: req.Image.DataURL(), Detail: "auto"}},
				},
			},
		},
		MaxTokens:      maxTokens,
		Temperature:    0.2,
		ResponseFormat: &openAIResponseFormat{Type: "json_object"},
	}

	reqCtx.LogInfo("🟢 Using OpenAI-compatible provider (model: %s, image: %.2f KB)", o.modelName, float64(len(req.Image.Data))/1024.0)

	reqCtx.StartSubStep("call_openai_api")
	response, err := o.callChatCompletions(ctx, request)
	if err != nil {
		reqCtx.EndSubStep("❌ FAILED")
		return nil, err
	}
	reqCtx.EndSubStep("")

	return o.toCompletion(response, reqCtx)
}

// Chat runs a plain text completion
func (o *OpenAIProvider) Chat(ctx context.Context, prompt string, reqCtx *common.RequestContext) (*Completion, error) {
	request := openAIRequest{
		Model: o.modelName,
		Messages: []openAIMessage{
			{Role: "system", Content: GetChatSystemPrompt()},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   configs.MAX_OUTPUT_TOKENS,
		Temperature: 0.4,
	}

	reqCtx.StartSubStep("call_openai_api")
	response, err := o.callChatCompletions(ctx, request)
	if err != nil {
		reqCtx.EndSubStep("❌ FAILED")
		return nil, err
	}
	reqCtx.EndSubStep("")

	return o.toCompletion(response, reqCtx)
}

func (o *OpenAIProvider) toCompletion(response *openAIResponse, reqCtx *common.RequestContext) (*Completion, error) {
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from OpenAI API")
	}

	choice := response.Choices[0]
	model := response.Model
	if model == "" {
		model = o.modelName
	}

	tokens := common.CalculateTokenCost(response.Usage.PromptTokens, response.Usage.CompletionTokens)

	completion := &Completion{
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
		Truncated:    choice.FinishReason == "length",
		Usage:        &tokens,
		Provider:     o.GetProviderName(),
		Model:        model,
	}

	if completion.Truncated {
		reqCtx.LogWarning("Response was truncated (finish_reason: length)")
	}
	reqCtx.LogInfo("📦 Received response: %d chars", len(completion.Text))

	return completion, nil
}

// callChatCompletions makes HTTP request to the chat completions endpoint
func (o *OpenAIProvider) callChatCompletions(ctx context.Context, request openAIRequest) (*openAIResponse, error) {
	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		o.baseURL+"/chat/completions",
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", o.apiKey))

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}

		var errorResp openAIErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			apiErr.Message = errorResp.Error.Message
			apiErr.Type = errorResp.Error.Type
			if errorResp.Error.Code != nil {
				apiErr.Code = fmt.Sprint(errorResp.Error.Code)
			}
		}
		return nil, apiErr
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse chat completions response: %w", err)
	}

	return &response, nil
}
