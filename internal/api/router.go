// router.go - Gin engine, CORS and route table

package api

import (
	"time"

	"github.com/bosocmputer/waspada_api/configs"
	"github.com/bosocmputer/waspada_api/internal/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with every route registered
func NewRouter(h *Handler) *gin.Engine {
	router := gin.Default()
	router.Use(cors.New(corsConfig(configs.AllowedOrigins())))

	router.GET("/", h.RootHandler)
	router.GET("/health", h.HealthHandler)
	router.GET("/version", h.VersionHandler)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.POST("/analyze", h.AnalyzeHandler)
	router.POST("/chat", h.ChatHandler)

	router.GET("/resources", h.ResourcesHandler)
	router.GET("/hotlines", h.HotlinesHandler)
	router.GET("/plan/:scenario", h.PlanHandler)
	router.GET("/stats", h.StatsHandler)

	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.MaxAge = 24 * time.Hour

	for _, o := range origins {
		if o == "*" {
			config.AllowAllOrigins = true
			return config
		}
	}
	config.AllowOrigins = origins
	return config
}
