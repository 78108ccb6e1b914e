// analyzer.go - Orchestrates provider calls: rate limit, retry, fallback, JSON shaping

package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bosocmputer/waspada_api/configs"
	"github.com/bosocmputer/waspada_api/internal/common"
	"github.com/bosocmputer/waspada_api/internal/metrics"
	"github.com/bosocmputer/waspada_api/internal/processor"
	"github.com/bosocmputer/waspada_api/internal/resources"
)

// Waiter is satisfied by ratelimit.RateLimiter
type Waiter interface {
	Wait(ctx context.Context) error
}

// Analyzer runs screenshot analyses and chat completions against the configured providers
type Analyzer struct {
	primary  VisionProvider
	fallback VisionProvider
	limiter  Waiter
	retry    RetryConfig
}

// NewAnalyzer wires providers and limiter. primary may be nil when no credential is set;
// every call then fails with ErrMissingAPIKey. fallback and limiter are optional.
func NewAnalyzer(primary, fallback VisionProvider, limiter Waiter, retry RetryConfig) *Analyzer {
	return &Analyzer{
		primary:  primary,
		fallback: fallback,
		limiter:  limiter,
		retry:    retry,
	}
}

// Ready reports whether a provider is configured
func (a *Analyzer) Ready() bool {
	return a != nil && a.primary != nil
}

// ProviderName of the primary provider, empty when unconfigured
func (a *Analyzer) ProviderName() string {
	if !a.Ready() {
		return ""
	}
	return a.primary.GetProviderName()
}

// ModelName of the primary provider, empty when unconfigured
func (a *Analyzer) ModelName() string {
	if !a.Ready() {
		return ""
	}
	return a.primary.ModelName()
}

// AnalysisInput is everything /analyze passes to the model
type AnalysisInput struct {
	Image *processor.ImageInput
	Note  string
	Lang  string
}

// AnalysisOutcome is a shaped result plus provider details
type AnalysisOutcome struct {
	Result     *AnalysisResult
	Completion *Completion
}

// AnalyzeScreenshot runs the full analysis pipeline for one screenshot
func (a *Analyzer) AnalyzeScreenshot(ctx context.Context, in AnalysisInput, directory *resources.Directory, reqCtx *common.RequestContext) (*AnalysisOutcome, error) {
	if !a.Ready() {
		return nil, ErrMissingAPIKey
	}

	lang := NormalizeLang(in.Lang)
	var hotlines []resources.Hotline
	if directory != nil {
		hotlines = directory.Hotlines
	}

	req := &VisionRequest{
		SystemPrompt:    GetScamAnalysisPrompt(lang, hotlines),
		UserText:        GetUserContext(in.Note),
		Image:           in.Image,
		MaxOutputTokens: configs.MAX_OUTPUT_TOKENS,
	}

	reqCtx.StartStep("upstream_analysis")
	completion, err := a.complete(ctx, reqCtx, "analyze", func(ctx context.Context, p VisionProvider) (*Completion, error) {
		return p.Analyze(ctx, req, reqCtx)
	})
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, err
	}
	reqCtx.EndStep("success", completion.Usage, nil)

	reqCtx.StartStep("shape_result")
	result, err := shapeAnalysis(completion)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, err
	}
	result.Lang = lang
	result.OfficialResources = hotlines
	if result.OfficialResources == nil {
		result.OfficialResources = []resources.Hotline{}
	}
	reqCtx.EndStep("success", nil, nil)

	reqCtx.LogInfo("🛡️  verdict: %s | risk: %s | scenario: %s | out_of_scope: %v",
		result.Verdict, result.Risk, result.Scenario, result.OutOfScope)

	return &AnalysisOutcome{Result: result, Completion: completion}, nil
}

func shapeAnalysis(completion *Completion) (*AnalysisResult, error) {
	raw := completion.Text

	data, err := ExtractJSONObject(raw)
	if err != nil {
		if completion.Truncated {
			err = fmt.Errorf("%w (response truncated at max output tokens)", err)
		}
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}

	result, err := ValidateAnalysis(data)
	if err != nil {
		return nil, &MalformedResponseError{Raw: raw, Err: err}
	}
	return result, nil
}

// Chat runs a plain text completion for /chat
func (a *Analyzer) Chat(ctx context.Context, prompt string, reqCtx *common.RequestContext) (*Completion, error) {
	if !a.Ready() {
		return nil, ErrMissingAPIKey
	}

	reqCtx.StartStep("upstream_chat")
	completion, err := a.complete(ctx, reqCtx, "chat", func(ctx context.Context, p VisionProvider) (*Completion, error) {
		return p.Chat(ctx, prompt, reqCtx)
	})
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return nil, err
	}
	reqCtx.EndStep("success", completion.Usage, nil)

	if strings.TrimSpace(completion.Text) == "" {
		return nil, &MalformedResponseError{Raw: completion.Text, Err: ErrEmptyResponse}
	}
	return completion, nil
}

// complete calls the primary provider with retry, then the fallback when the failure
// is retryable or unknown and the request is still alive
func (a *Analyzer) complete(
	ctx context.Context,
	reqCtx *common.RequestContext,
	operation string,
	call func(ctx context.Context, p VisionProvider) (*Completion, error),
) (*Completion, error) {
	completion, err := a.callProvider(ctx, reqCtx, operation, a.primary, call)
	if err == nil {
		return completion, nil
	}

	var upErr *UpstreamError
	if a.fallback == nil || ctx.Err() != nil || !errors.As(err, &upErr) || !shouldFallback(upErr) {
		return nil, err
	}

	reqCtx.LogWarning("🔄 Primary provider %s failed (%s), trying fallback %s",
		a.primary.GetProviderName(), upErr.Category, a.fallback.GetProviderName())

	completion, fbErr := a.callProvider(ctx, reqCtx, operation, a.fallback, call)
	if fbErr != nil {
		reqCtx.LogError("Fallback provider failed too: %v", fbErr)
		return nil, err
	}
	return completion, nil
}

func (a *Analyzer) callProvider(
	ctx context.Context,
	reqCtx *common.RequestContext,
	operation string,
	p VisionProvider,
	call func(ctx context.Context, p VisionProvider) (*Completion, error),
) (*Completion, error) {
	name := p.GetProviderName()

	start := time.Now()
	completion, err := callWithRetry(ctx, reqCtx, a.retry, name, a.limiter, func(ctx context.Context) (*Completion, error) {
		return call(ctx, p)
	})
	metrics.ObserveUpstream(name, operation, time.Since(start))

	if err != nil {
		var upErr *UpstreamError
		if errors.As(err, &upErr) {
			metrics.RecordUpstreamError(name, upErr.Category)
		}
		return nil, err
	}
	return completion, nil
}

func shouldFallback(upErr *UpstreamError) bool {
	if upErr.Retryable {
		return true
	}
	switch upErr.Category {
	case CategoryUnknown, CategoryUnknownAPIError, CategoryQuotaExceeded, CategoryUnauthorized, CategoryForbidden, CategoryNotFound:
		return true
	}
	return false
}
