// handlers.go - HTTP handlers for screenshot analysis, chat and the static resources

package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bosocmputer/waspada_api/configs"
	"github.com/bosocmputer/waspada_api/internal/ai"
	"github.com/bosocmputer/waspada_api/internal/common"
	"github.com/bosocmputer/waspada_api/internal/metrics"
	"github.com/bosocmputer/waspada_api/internal/processor"
	"github.com/bosocmputer/waspada_api/internal/resources"
	"github.com/bosocmputer/waspada_api/internal/storage"
	"github.com/gin-gonic/gin"
)

const (
	maxNoteRunes  = 1000
	defaultDays   = 7
	maxStatsDays  = 90
	maxBodyFactor = 2 // base64 inflates the image by ~4/3, plus JSON framing
)

// AnalysisStore is the optional analysis log behind /stats
type AnalysisStore interface {
	SaveAnalysis(record storage.AnalysisRecord)
	CountByVerdict(ctx context.Context, since time.Time) ([]storage.VerdictCount, error)
}

// Handler holds the dependencies shared by every route
type Handler struct {
	analyzer  *ai.Analyzer
	cache     *storage.ResultCache[*ai.AnalysisOutcome]
	store     AnalysisStore
	directory *resources.Directory
}

// NewHandler wires the route dependencies. cache and store may be nil.
func NewHandler(analyzer *ai.Analyzer, cache *storage.ResultCache[*ai.AnalysisOutcome], store AnalysisStore, directory *resources.Directory) *Handler {
	return &Handler{
		analyzer:  analyzer,
		cache:     cache,
		store:     store,
		directory: directory,
	}
}

// AnalyzeRequest is the /analyze body. image_data_url wins over image_base64.
type AnalyzeRequest struct {
	ImageBase64  string `json:"image_base64"`
	ImageDataURL string `json:"image_data_url"`
	Note         string `json:"note"`
	Lang         string `json:"lang"`
}

// ChatRequest is the /chat body
type ChatRequest struct {
	Prompt string `json:"prompt"`
}

// AnalyzeHandler handles POST /analyze
func (h *Handler) AnalyzeHandler(c *gin.Context) {
	reqCtx := common.NewRequestContext("analyze")

	if configs.MAX_IMAGE_BYTES > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(configs.MAX_IMAGE_BYTES)*maxBodyFactor)
	}

	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, reqCtx, "Invalid JSON body", err.Error())
		return
	}

	lang := ai.NormalizeLang(req.Lang)
	note := truncateRunes(strings.TrimSpace(req.Note), maxNoteRunes)

	reqCtx.StartStep("decode_image")
	image, err := processor.DecodeImage(req.ImageBase64, req.ImageDataURL)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		badRequest(c, reqCtx, "Invalid image", err.Error())
		return
	}
	reqCtx.EndStep("success", nil, nil)
	reqCtx.LogInfo("📷 %s, %d bytes | lang: %s | note: %d chars", image.MIMEType, len(image.Data), lang, len([]rune(note)))

	if !h.analyzer.Ready() {
		respondError(c, reqCtx, ai.ErrMissingAPIKey)
		return
	}

	cacheKey := storage.CacheKey(image.Fingerprint(), lang, note)
	if outcome, ok := h.cache.Get(cacheKey); ok {
		reqCtx.LogInfo("⚡ Cache hit, skipping upstream call")
		metrics.RecordCacheHit()
		h.respondAnalysis(c, reqCtx, image, outcome, true)
		return
	}

	prepared := image
	if configs.ENABLE_IMAGE_PREPROCESSING {
		reqCtx.StartStep("prepare_image")
		resized, err := processor.PrepareForVision(image, configs.MAX_IMAGE_DIMENSION, configs.MAX_IMAGE_PIXELS)
		if err != nil {
			// Fall back to the original bytes, the provider may still read them
			reqCtx.LogWarning("Image preprocessing failed, sending original: %v", err)
			reqCtx.EndStep("skipped", nil, nil)
		} else {
			prepared = resized
			reqCtx.EndStep("success", nil, nil)
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), configs.ANALYZE_TIMEOUT)
	defer cancel()

	outcome, err := h.analyzer.AnalyzeScreenshot(ctx, ai.AnalysisInput{
		Image: prepared,
		Note:  note,
		Lang:  lang,
	}, h.directory, reqCtx)
	if err != nil {
		respondError(c, reqCtx, err)
		return
	}

	metrics.RecordAnalysis(outcome.Result.Verdict, outcome.Result.Risk)
	h.cache.Set(cacheKey, outcome)
	h.respondAnalysis(c, reqCtx, image, outcome, false)
}

func (h *Handler) respondAnalysis(c *gin.Context, reqCtx *common.RequestContext, image *processor.ImageInput, outcome *ai.AnalysisOutcome, cached bool) {
	usage := common.TokenUsage{}
	if !cached && outcome.Completion.Usage != nil {
		usage = *outcome.Completion.Usage
	}

	result := outcome.Result
	channels := h.directory.ChannelsFor(result.Scenario)

	summary := reqCtx.GetSummary()
	duration := summary["total_duration_sec"]

	if h.store != nil {
		h.store.SaveAnalysis(storage.AnalysisRecord{
			RequestID:        reqCtx.RequestID,
			Lang:             result.Lang,
			Provider:         outcome.Completion.Provider,
			Model:            outcome.Completion.Model,
			Scenario:         result.Scenario,
			Verdict:          result.Verdict,
			Risk:             result.Risk,
			OutOfScope:       result.OutOfScope,
			ImageFingerprint: image.Fingerprint(),
			Cached:           cached,
			Tokens:           usage,
			DurationSec:      reqCtx.Duration().Seconds(),
			CreatedAt:        time.Now().UTC(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"result":   result,
		"channels": channels,
		"metadata": gin.H{
			"request_id":   reqCtx.RequestID,
			"provider":     outcome.Completion.Provider,
			"model":        outcome.Completion.Model,
			"cached":       cached,
			"duration_sec": duration,
			"tokens":       usage.TotalTokens,
			"cost_myr":     usage.CostMYR,
		},
	})
}

// ChatHandler handles POST /chat
func (h *Handler) ChatHandler(c *gin.Context) {
	reqCtx := common.NewRequestContext("chat")

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, reqCtx, "Invalid JSON body", err.Error())
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		badRequest(c, reqCtx, "Missing 'prompt'", "")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), configs.CHAT_TIMEOUT)
	defer cancel()

	completion, err := h.analyzer.Chat(ctx, prompt, reqCtx)
	if err != nil {
		respondError(c, reqCtx, err)
		return
	}

	reqCtx.GetSummary()
	c.JSON(http.StatusOK, gin.H{"output": strings.TrimSpace(completion.Text)})
}

// RootHandler handles GET /
func (h *Handler) RootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"service": configs.SERVICE_NAME,
	})
}

// HealthHandler handles GET /health
func (h *Handler) HealthHandler(c *gin.Context) {
	storageState := "disabled"
	if h.store != nil {
		storageState = "mongodb"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": configs.SERVICE_NAME,
		"version": configs.API_VERSION,
		"storage": storageState,
	})
}

// VersionHandler handles GET /version. The key itself is never echoed.
func (h *Handler) VersionHandler(c *gin.Context) {
	key := configs.ActiveAPIKey()

	provider := h.analyzer.ProviderName()
	if provider == "" {
		provider = configs.LLM_PROVIDER
	}
	model := h.analyzer.ModelName()
	if model == "" {
		model = configs.ActiveModel()
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"service":       configs.SERVICE_NAME,
		"provider":      provider,
		"has_key":       key != "",
		"key_format_ok": keyFormatOK(configs.LLM_PROVIDER, key),
		"key_fp":        keyFingerprint(key),
		"model":         model,
		"api_version":   configs.API_VERSION,
	})
}

// ResourcesHandler handles GET /resources
func (h *Handler) ResourcesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"last_verified": h.directory.LastVerified,
		"categories":    h.directory.Categories,
	})
}

// HotlinesHandler handles GET /hotlines
func (h *Handler) HotlinesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"resources": h.directory.Hotlines,
	})
}

// PlanHandler handles GET /plan/:scenario
func (h *Handler) PlanHandler(c *gin.Context) {
	key := resources.NormalizeScenario(c.Param("scenario"))
	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"result": h.directory.PlanFor(key),
	})
}

// StatsHandler handles GET /stats?days=N
func (h *Handler) StatsHandler(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Analysis storage is disabled",
			"details": "Set MONGO_URI to enable /stats",
		})
		return
	}

	days := defaultDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxStatsDays {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid 'days', expected an integer between 1 and " + strconv.Itoa(maxStatsDays),
			})
			return
		}
		days = n
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	counts, err := h.store.CountByVerdict(c.Request.Context(), since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to read analysis stats",
			"details": err.Error(),
		})
		return
	}

	var total int64
	for _, vc := range counts {
		total += vc.Count
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":     true,
		"days":   days,
		"since":  since,
		"total":  total,
		"counts": counts,
	})
}

// keyFormatOK is a shape check only, it never calls the provider
func keyFormatOK(provider, key string) bool {
	if provider == "openai" {
		return strings.HasPrefix(key, "sk-") && len(key) > 20
	}
	return strings.HasPrefix(key, "AIza") && len(key) > 30
}

// keyFingerprint is the first 8 hex chars of sha256(key), empty without a key
func keyFingerprint(key string) string {
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:8]
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
