// main.go - The entry point: wiring, router and graceful shutdown.

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bosocmputer/waspada_api/configs"
	"github.com/bosocmputer/waspada_api/internal/ai"
	"github.com/bosocmputer/waspada_api/internal/api"
	"github.com/bosocmputer/waspada_api/internal/metrics"
	"github.com/bosocmputer/waspada_api/internal/ratelimit"
	"github.com/bosocmputer/waspada_api/internal/resources"
	"github.com/bosocmputer/waspada_api/internal/storage"
)

func main() {
	// Step 0: Load configuration from environment variables
	configs.LoadConfig()

	metrics.Init()

	// Step 1: Static resources directory
	directory, err := resources.Load(configs.RESOURCES_FILE)
	if err != nil {
		log.Fatalf("Failed to load resources: %v", err)
	}

	// Step 2: LLM providers. A missing credential is not fatal, /analyze and /chat answer 500.
	primary, fallback, err := ai.CreateVisionProviderWithFallback()
	if err != nil {
		if !errors.Is(err, ai.ErrMissingAPIKey) {
			log.Fatalf("Failed to create LLM provider: %v", err)
		}
		log.Printf("⚠️  %v", err)
	}

	limiter := ratelimit.NewRateLimiter(configs.RATE_LIMIT_RPM)
	analyzer := ai.NewAnalyzer(primary, fallback, limiter, ai.RetryConfigFromEnv())

	// Step 3: Optional analysis log
	var store api.AnalysisStore
	mongoStore, err := storage.InitMongoDB(configs.MONGO_URI, configs.MONGO_DB_NAME)
	switch {
	case errors.Is(err, storage.ErrStorageDisabled):
		log.Println("MongoDB analysis log disabled (MONGO_URI not set)")
	case err != nil:
		log.Printf("⚠️  MongoDB unavailable, continuing without analysis log: %v", err)
	default:
		store = mongoStore
	}

	cache := storage.NewResultCache[*ai.AnalysisOutcome](configs.CACHE_TTL)

	// Step 4: Router
	router := api.NewRouter(api.NewHandler(analyzer, cache, store, directory))

	srv := &http.Server{
		Addr:           ":" + configs.PORT,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   configs.ANALYZE_TIMEOUT + 30*time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting %s v%s on :%s (provider: %s, model: %s)",
			configs.SERVICE_NAME, configs.API_VERSION, configs.PORT, configs.LLM_PROVIDER, configs.ActiveModel())
		log.Println("API Endpoints:")
		log.Println("  POST /analyze")
		log.Println("  POST /chat")
		log.Println("  GET  /version /health /resources /hotlines /plan/:scenario /stats /metrics")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Drop expired cache entries in the background
	stopPurge := make(chan struct{})
	if cache.Enabled() {
		go func() {
			ticker := time.NewTicker(configs.CACHE_TTL)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					cache.Purge()
					metrics.SetCacheEntries(cache.Len())
				case <-stopPurge:
					return
				}
			}
		}()
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	close(stopPurge)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	mongoStore.Close(ctx)

	log.Println("Server exited")
}
