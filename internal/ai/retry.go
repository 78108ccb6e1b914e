// retry.go - Retry logic and error handling for upstream LLM calls

package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bosocmputer/waspada_api/configs"
	"github.com/bosocmputer/waspada_api/internal/common"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
)

// Error categories
const (
	CategoryBadRequest      = "bad_request"
	CategoryUnauthorized    = "unauthorized"
	CategoryForbidden       = "forbidden"
	CategoryNotFound        = "not_found"
	CategoryPayloadTooLarge = "payload_too_large"
	CategoryRateLimit       = "rate_limit"
	CategoryQuotaExceeded   = "quota_exceeded"
	CategoryServerError     = "server_error"
	CategoryTimeout         = "timeout"
	CategoryCanceled        = "canceled"
	CategoryNetworkError    = "network_error"
	CategoryBlocked         = "blocked"
	CategoryUnknownAPIError = "unknown_api_error"
	CategoryUnknown         = "unknown"
)

// RetryConfig defines retry behavior for upstream calls
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides sensible defaults for retry behavior
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    1 * time.Second,
	MaxDelay:        8 * time.Second,
	BackoffMultiple: 2.0,
}

// RetryConfigFromEnv is DefaultRetryConfig with RETRY_MAX_ATTEMPTS applied
func RetryConfigFromEnv() RetryConfig {
	cfg := DefaultRetryConfig
	if configs.RETRY_MAX_ATTEMPTS > 0 {
		cfg.MaxAttempts = configs.RETRY_MAX_ATTEMPTS
	}
	return cfg
}

// UpstreamError represents a categorized provider error
type UpstreamError struct {
	Err        error
	Provider   string
	Category   string
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("[%s] %s (status: %d, retryable: %v)", e.Category, e.Message, e.StatusCode, e.Retryable)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// categorizeError analyzes error and determines retry strategy
func categorizeError(err error) *UpstreamError {
	if err == nil {
		return nil
	}

	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr
	}

	upErr = &UpstreamError{
		Err:       err,
		Category:  CategoryUnknown,
		Message:   err.Error(),
		Retryable: false,
	}

	// Status-bearing errors from either provider
	statusCode := 0
	apiMessage := ""
	var gErr *googleapi.Error
	var oErr *APIError
	switch {
	case errors.As(err, &gErr):
		statusCode = gErr.Code
		apiMessage = gErr.Message
	case errors.As(err, &oErr):
		statusCode = oErr.StatusCode
		apiMessage = oErr.Message
	}

	if statusCode != 0 {
		upErr.StatusCode = statusCode
		categorizeStatus(upErr, statusCode, apiMessage)
		return upErr
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		upErr.Category = CategoryBlocked
		upErr.Message = "Response blocked by provider safety filters"
		return upErr
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		upErr.Category = CategoryTimeout
		upErr.Message = "Request timeout - processing took too long"
		upErr.Retryable = true
		return upErr
	}

	if errors.Is(err, context.Canceled) {
		upErr.Category = CategoryCanceled
		upErr.Message = "Request was canceled"
		return upErr
	}

	// Check error message for common patterns
	errMsg := strings.ToLower(err.Error())

	switch {
	case containsAny(errMsg, "invalid_api_key", "incorrect api key", "api key not valid", "401"):
		upErr.Category = CategoryUnauthorized
		upErr.Message = "Invalid API key or authentication failed"

	case strings.Contains(errMsg, "quota"):
		upErr.Category = CategoryQuotaExceeded
		upErr.Message = "API quota exceeded - daily or monthly limit reached"

	case containsAny(errMsg, "rate limit", "429", "resource exhausted"):
		upErr.Category = CategoryRateLimit
		upErr.Message = "Rate limit exceeded - too many requests"
		upErr.Retryable = true

	case containsAny(errMsg, "timeout", "deadline"):
		upErr.Category = CategoryTimeout
		upErr.Message = "Request timeout"
		upErr.Retryable = true

	case containsAny(errMsg, "connection", "network"):
		upErr.Category = CategoryNetworkError
		upErr.Message = "Network connection error"
		upErr.Retryable = true
	}

	return upErr
}

func categorizeStatus(upErr *UpstreamError, code int, apiMessage string) {
	switch code {
	case 400:
		upErr.Category = CategoryBadRequest
		upErr.Message = "Invalid request format or parameters"

	case 401:
		upErr.Category = CategoryUnauthorized
		upErr.Message = "Invalid API key or authentication failed"

	case 403:
		upErr.Category = CategoryForbidden
		upErr.Message = "API key lacks required permissions"

	case 404:
		upErr.Category = CategoryNotFound
		upErr.Message = "Model not found or invalid endpoint"

	case 413:
		upErr.Category = CategoryPayloadTooLarge
		upErr.Message = "Request size exceeds limit (reduce image size)"

	case 429:
		// OpenAI reports exhausted credit as 429 insufficient_quota
		if strings.Contains(strings.ToLower(apiMessage), "quota") {
			upErr.Category = CategoryQuotaExceeded
			upErr.Message = "API quota exceeded - daily or monthly limit reached"
			return
		}
		upErr.Category = CategoryRateLimit
		upErr.Message = "Rate limit exceeded - too many requests"
		upErr.Retryable = true

	case 500, 502, 503, 504:
		upErr.Category = CategoryServerError
		upErr.Message = fmt.Sprintf("Upstream server error (%d)", code)
		upErr.Retryable = true

	default:
		upErr.Category = CategoryUnknownAPIError
		upErr.Message = fmt.Sprintf("API error: %s", apiMessage)
		upErr.Retryable = code >= 500
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// callWithRetry executes an upstream call with retry logic.
// Every attempt takes a limiter token first, retries included.
// Failures are always returned as *UpstreamError.
func callWithRetry(
	ctx context.Context,
	reqCtx *common.RequestContext,
	config RetryConfig,
	provider string,
	limiter Waiter,
	call func(ctx context.Context) (*Completion, error),
) (*Completion, error) {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr *UpstreamError

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		if attempt > 1 {
			reqCtx.LogInfo("Retry attempt %d/%d (%s)", attempt, config.MaxAttempts, provider)
		}

		if limiter != nil {
			if err := waitForToken(ctx, reqCtx, limiter, provider); err != nil {
				return nil, err
			}
		}

		resp, err := call(ctx)

		if err == nil {
			if attempt > 1 {
				reqCtx.LogInfo("✅ Retry succeeded on attempt %d", attempt)
			}
			return resp, nil
		}

		lastErr = categorizeError(err)
		lastErr.Provider = provider

		reqCtx.LogError("API call failed (attempt %d/%d): %s", attempt, config.MaxAttempts, lastErr.Error())

		if !lastErr.Retryable {
			reqCtx.LogError("Non-retryable error detected, aborting")
			return nil, lastErr
		}

		if attempt >= config.MaxAttempts {
			break
		}

		delay := calculateBackoff(attempt, config)

		// Rate limits get a longer pause
		if lastErr.Category == CategoryRateLimit {
			delay = delay * 2
			reqCtx.LogWarning("Rate limit hit, waiting %v before retry", delay)
		} else {
			reqCtx.LogInfo("Waiting %v before retry", delay)
		}

		select {
		case <-ctx.Done():
			ctxErr := categorizeError(ctx.Err())
			ctxErr.Provider = provider
			return nil, ctxErr
		case <-time.After(delay):
		}
	}

	reqCtx.LogError("All %d attempts failed, last error: %s", config.MaxAttempts, lastErr.Error())
	return nil, lastErr
}

func waitForToken(ctx context.Context, reqCtx *common.RequestContext, limiter Waiter, provider string) *UpstreamError {
	reqCtx.StartSubStep("rate_limit_wait")
	if err := limiter.Wait(ctx); err != nil {
		reqCtx.EndSubStep("❌ " + err.Error())
		upErr := categorizeError(err)
		if upErr.Category == CategoryUnknown {
			// rate.Limiter refuses up front when the wait would outlive the deadline
			upErr.Category = CategoryTimeout
			upErr.Message = "Request timeout while waiting for rate limiter"
		}
		upErr.Provider = provider
		return upErr
	}
	reqCtx.EndSubStep("")
	return nil
}

// calculateBackoff computes exponential backoff delay
func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt-1))

	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	return time.Duration(delay)
}

// BuildUserFriendlyError converts technical error to user-friendly message
func BuildUserFriendlyError(upErr *UpstreamError) map[string]interface{} {
	errorResponse := map[string]interface{}{
		"error":    "AI processing failed",
		"category": upErr.Category,
		"details":  upErr.Message,
	}

	switch upErr.Category {
	case CategoryRateLimit:
		errorResponse["suggestion"] = "Too many requests. Please wait a moment and try again."
		errorResponse["retry_after"] = "30-60 seconds"

	case CategoryQuotaExceeded:
		errorResponse["suggestion"] = "The AI service quota is used up. Please try again later."

	case CategoryUnauthorized, CategoryForbidden:
		errorResponse["error"] = "Server AI credential problem"
		errorResponse["suggestion"] = "API authentication failed. Please contact the service operator."

	case CategoryPayloadTooLarge:
		errorResponse["suggestion"] = "Image size is too large. Please crop the screenshot or use a smaller image."

	case CategoryTimeout:
		errorResponse["suggestion"] = "Request took too long. Please try again."
		errorResponse["retry_recommended"] = true

	case CategoryServerError:
		errorResponse["suggestion"] = "The AI service is temporarily unavailable. Please try again in a few minutes."
		errorResponse["retry_recommended"] = true

	case CategoryNetworkError:
		errorResponse["suggestion"] = "Network connection issue between the server and the AI service. Please try again."
		errorResponse["retry_recommended"] = true

	case CategoryBlocked:
		errorResponse["suggestion"] = "The AI service declined to analyse this image. Try a different screenshot."

	default:
		errorResponse["suggestion"] = "An unexpected error occurred. Please try again."
		errorResponse["retry_recommended"] = false
	}

	return errorResponse
}
