package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bosocmputer/waspada_api/internal/common"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

var fastRetry = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    time.Millisecond,
	MaxDelay:        4 * time.Millisecond,
	BackoffMultiple: 2.0,
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		category  string
		status    int
		retryable bool
	}{
		{"googleapi 400", &googleapi.Error{Code: 400}, CategoryBadRequest, 400, false},
		{"googleapi 401", &googleapi.Error{Code: 401}, CategoryUnauthorized, 401, false},
		{"googleapi 403", &googleapi.Error{Code: 403}, CategoryForbidden, 403, false},
		{"googleapi 404", &googleapi.Error{Code: 404}, CategoryNotFound, 404, false},
		{"googleapi 413", &googleapi.Error{Code: 413}, CategoryPayloadTooLarge, 413, false},
		{"googleapi 429", &googleapi.Error{Code: 429}, CategoryRateLimit, 429, true},
		{"googleapi 503", &googleapi.Error{Code: 503}, CategoryServerError, 503, true},
		{"googleapi 418", &googleapi.Error{Code: 418, Message: "teapot"}, CategoryUnknownAPIError, 418, false},
		{"wrapped googleapi", fmt.Errorf("call: %w", &googleapi.Error{Code: 500}), CategoryServerError, 500, true},
		{"openai 401", &APIError{StatusCode: 401, Message: "Incorrect API key provided"}, CategoryUnauthorized, 401, false},
		{"openai 429 rate", &APIError{StatusCode: 429, Message: "Rate limit reached"}, CategoryRateLimit, 429, true},
		{"openai 429 quota", &APIError{StatusCode: 429, Message: "You exceeded your current quota"}, CategoryQuotaExceeded, 429, false},
		{"deadline", context.DeadlineExceeded, CategoryTimeout, 0, true},
		{"wrapped deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), CategoryTimeout, 0, true},
		{"canceled", context.Canceled, CategoryCanceled, 0, false},
		{"blocked", &genai.BlockedError{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety}}, CategoryBlocked, 0, false},
		{"invalid key text", errors.New("error: invalid_api_key"), CategoryUnauthorized, 0, false},
		{"quota text", errors.New("Quota exceeded for project"), CategoryQuotaExceeded, 0, false},
		{"rate limit text", errors.New("rate limit reached"), CategoryRateLimit, 0, true},
		{"timeout text", errors.New("i/o timeout"), CategoryTimeout, 0, true},
		{"network text", errors.New("connection refused"), CategoryNetworkError, 0, true},
		{"unknown", errors.New("something odd"), CategoryUnknown, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upErr := categorizeError(tt.err)
			require.NotNil(t, upErr)
			assert.Equal(t, tt.category, upErr.Category)
			assert.Equal(t, tt.status, upErr.StatusCode)
			assert.Equal(t, tt.retryable, upErr.Retryable)
			assert.ErrorIs(t, upErr, tt.err)
		})
	}

	assert.Nil(t, categorizeError(nil))
}

func TestCategorizeError_KeepsExistingUpstreamError(t *testing.T) {
	orig := &UpstreamError{Category: CategoryRateLimit, Retryable: true}
	assert.Same(t, orig, categorizeError(fmt.Errorf("wrapped: %w", orig)))
}

func TestCallWithRetry_SucceedsAfterRetryableFailures(t *testing.T) {
	reqCtx := common.NewRequestContext("test")
	calls := 0

	resp, err := callWithRetry(context.Background(), reqCtx, fastRetry, "gemini", nil, func(ctx context.Context) (*Completion, error) {
		calls++
		if calls < 3 {
			return nil, &googleapi.Error{Code: 503}
		}
		return &Completion{Text: "ok"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 3, calls)
}

func TestCallWithRetry_StopsOnNonRetryable(t *testing.T) {
	reqCtx := common.NewRequestContext("test")
	calls := 0

	_, err := callWithRetry(context.Background(), reqCtx, fastRetry, "openai", nil, func(ctx context.Context) (*Completion, error) {
		calls++
		return nil, &APIError{StatusCode: 401, Message: "bad key"}
	})

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, CategoryUnauthorized, upErr.Category)
	assert.Equal(t, "openai", upErr.Provider)
	assert.Equal(t, 1, calls)
}

func TestCallWithRetry_ExhaustsAttempts(t *testing.T) {
	reqCtx := common.NewRequestContext("test")
	calls := 0

	_, err := callWithRetry(context.Background(), reqCtx, fastRetry, "gemini", nil, func(ctx context.Context) (*Completion, error) {
		calls++
		return nil, &googleapi.Error{Code: 429}
	})

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, CategoryRateLimit, upErr.Category)
	assert.Equal(t, 3, calls)
}

func TestCallWithRetry_ContextCanceledDuringWait(t *testing.T) {
	reqCtx := common.NewRequestContext("test")
	ctx, cancel := context.WithCancel(context.Background())

	slow := RetryConfig{MaxAttempts: 3, InitialDelay: time.Minute, MaxDelay: time.Minute, BackoffMultiple: 2}

	_, err := callWithRetry(ctx, reqCtx, slow, "gemini", nil, func(ctx context.Context) (*Completion, error) {
		cancel()
		return nil, &googleapi.Error{Code: 500}
	})

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, CategoryCanceled, upErr.Category)
	assert.ErrorIs(t, err, context.Canceled)
}

type countingWaiter struct {
	calls  int
	failAt int
}

func (w *countingWaiter) Wait(ctx context.Context) error {
	w.calls++
	if w.failAt > 0 && w.calls >= w.failAt {
		return errors.New("rate: Wait(n=1) would exceed context deadline")
	}
	return nil
}

func TestCallWithRetry_WaitsBeforeEveryAttempt(t *testing.T) {
	reqCtx := common.NewRequestContext("test")
	limiter := &countingWaiter{}
	calls := 0

	_, err := callWithRetry(context.Background(), reqCtx, fastRetry, "gemini", limiter, func(ctx context.Context) (*Completion, error) {
		calls++
		return nil, &googleapi.Error{Code: 503}
	})

	require.Error(t, err)
	assert.Equal(t, fastRetry.MaxAttempts, calls)
	assert.Equal(t, calls, limiter.calls)
}

func TestCallWithRetry_LimiterRefusalStopsRetries(t *testing.T) {
	reqCtx := common.NewRequestContext("test")
	limiter := &countingWaiter{failAt: 2}
	calls := 0

	_, err := callWithRetry(context.Background(), reqCtx, fastRetry, "gemini", limiter, func(ctx context.Context) (*Completion, error) {
		calls++
		return nil, &googleapi.Error{Code: 503}
	})

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, CategoryTimeout, upErr.Category)
	assert.Equal(t, "gemini", upErr.Provider)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, limiter.calls)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 1*time.Second, calculateBackoff(1, DefaultRetryConfig))
	assert.Equal(t, 2*time.Second, calculateBackoff(2, DefaultRetryConfig))
	assert.Equal(t, 4*time.Second, calculateBackoff(3, DefaultRetryConfig))
	assert.Equal(t, 8*time.Second, calculateBackoff(5, DefaultRetryConfig))
}

func TestBuildUserFriendlyError(t *testing.T) {
	resp := BuildUserFriendlyError(&UpstreamError{Category: CategoryRateLimit, Message: "Rate limit exceeded"})
	assert.Equal(t, "rate_limit", resp["category"])
	assert.NotEmpty(t, resp["suggestion"])
	assert.Equal(t, "30-60 seconds", resp["retry_after"])

	resp = BuildUserFriendlyError(&UpstreamError{Category: CategoryUnauthorized})
	assert.Equal(t, "Server AI credential problem", resp["error"])
}
