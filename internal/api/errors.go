// errors.go - Maps pipeline errors to HTTP status codes and error bodies

package api

import (
	"errors"
	"net/http"

	"github.com/bosocmputer/waspada_api/internal/ai"
	"github.com/bosocmputer/waspada_api/internal/common"
	"github.com/gin-gonic/gin"
)

// statusForCategory maps an upstream error category to the status returned to the client
func statusForCategory(category string) int {
	switch category {
	case ai.CategoryUnauthorized, ai.CategoryForbidden:
		return http.StatusInternalServerError
	case ai.CategoryRateLimit, ai.CategoryQuotaExceeded:
		return http.StatusServiceUnavailable
	case ai.CategoryTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// errorResponse builds status and body for an error out of ai.Analyzer
func errorResponse(err error, requestID string) (int, gin.H) {
	body := gin.H{"request_id": requestID}

	var malformed *ai.MalformedResponseError
	var missing *ai.MissingKeysError
	var upErr *ai.UpstreamError

	switch {
	case errors.Is(err, ai.ErrMissingAPIKey):
		body["error"] = "Server missing LLM credential"
		body["details"] = err.Error()
		return http.StatusInternalServerError, body

	case errors.As(err, &missing):
		body["error"] = "Model response missing required keys"
		body["details"] = missing.Error()
		if errors.As(err, &malformed) {
			body["raw"] = malformed.Raw
		}
		return http.StatusBadGateway, body

	case errors.As(err, &malformed):
		body["error"] = "Model returned malformed JSON"
		body["details"] = malformed.Err.Error()
		body["raw"] = malformed.Raw
		return http.StatusBadGateway, body

	case errors.As(err, &upErr):
		for k, v := range ai.BuildUserFriendlyError(upErr) {
			body[k] = v
		}
		return statusForCategory(upErr.Category), body
	}

	body["error"] = "Upstream request failed"
	body["details"] = err.Error()
	return http.StatusBadGateway, body
}

// respondError writes the mapped error and logs the request summary
func respondError(c *gin.Context, reqCtx *common.RequestContext, err error) {
	status, body := errorResponse(err, reqCtx.RequestID)
	reqCtx.LogError("%s failed with %d: %v", reqCtx.Operation, status, err)
	reqCtx.GetSummary()
	c.JSON(status, body)
}

// badRequest writes a 400 with the request id attached
func badRequest(c *gin.Context, reqCtx *common.RequestContext, message string, details string) {
	body := gin.H{
		"error":      message,
		"request_id": reqCtx.RequestID,
	}
	if details != "" {
		body["details"] = details
	}
	reqCtx.LogWarning("400 %s: %s", message, details)
	c.JSON(http.StatusBadRequest, body)
}
