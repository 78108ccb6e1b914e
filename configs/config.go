// config.go - Configuration loaded from environment variables

package configs

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	SERVICE_NAME = "waspada-api"
	API_VERSION  = "2.0"
)

var (
	// Provider selection: "gemini" or "openai"
	LLM_PROVIDER string

	// Gemini AI Configuration
	GEMINI_API_KEY string
	GEMINI_MODEL   string

	// OpenAI-compatible chat completions
	OPENAI_API_KEY  string
	OPENAI_MODEL    string
	OPENAI_BASE_URL string

	// Pricing (per 1M tokens in USD), used for the cost estimate in responses
	INPUT_PRICE_PER_MILLION  float64
	OUTPUT_PRICE_PER_MILLION float64
	USD_TO_MYR               float64

	// Server Configuration
	PORT            string
	ALLOWED_ORIGINS string

	// Upstream call behaviour
	MAX_OUTPUT_TOKENS  int
	ANALYZE_TIMEOUT    time.Duration
	CHAT_TIMEOUT       time.Duration
	RETRY_MAX_ATTEMPTS int
	RATE_LIMIT_RPM     int

	// Image intake
	ENABLE_IMAGE_PREPROCESSING bool
	MAX_IMAGE_DIMENSION        int
	MIN_IMAGE_BYTES            int
	MAX_IMAGE_BYTES            int
	MAX_IMAGE_PIXELS           int

	// Static resources directory (YAML). Empty = embedded default.
	RESOURCES_FILE string

	// Result cache, 0 disables
	CACHE_TTL time.Duration

	// MongoDB analysis log, empty URI disables
	MONGO_URI     string
	MONGO_DB_NAME string
)

func init() {
	applyDefaults()
}

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	applyDefaults()

	// Credentials are optional at boot: /analyze and /chat answer 500 until one is set
	if GEMINI_API_KEY == "" && OPENAI_API_KEY == "" {
		log.Println("⚠️  No LLM credential configured (GEMINI_API_KEY / OPENAI_API_KEY)")
	}

	log.Println("✓ Configuration loaded successfully")
}

func applyDefaults() {
	LLM_PROVIDER = strings.ToLower(getEnv("LLM_PROVIDER", "gemini"))

	GEMINI_API_KEY = strings.TrimSpace(getEnv("GEMINI_API_KEY", ""))
	GEMINI_MODEL = getEnv("GEMINI_MODEL", "gemini-2.5-flash")

	OPENAI_API_KEY = strings.TrimSpace(getEnv("OPENAI_API_KEY", ""))
	OPENAI_MODEL = getEnv("OPENAI_MODEL", "gpt-4o-mini")
	OPENAI_BASE_URL = strings.TrimRight(getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/")

	INPUT_PRICE_PER_MILLION = getEnvFloat("INPUT_PRICE_PER_MILLION", 0.10)
	OUTPUT_PRICE_PER_MILLION = getEnvFloat("OUTPUT_PRICE_PER_MILLION", 0.40)
	USD_TO_MYR = getEnvFloat("USD_TO_MYR", 4.7)

	PORT = getEnv("PORT", "8080")
	ALLOWED_ORIGINS = getEnv("ALLOWED_ORIGINS", "*")

	MAX_OUTPUT_TOKENS = getEnvInt("MAX_OUTPUT_TOKENS", 1300)
	ANALYZE_TIMEOUT = getEnvDuration("ANALYZE_TIMEOUT", 60*time.Second)
	CHAT_TIMEOUT = getEnvDuration("CHAT_TIMEOUT", 30*time.Second)
	RETRY_MAX_ATTEMPTS = getEnvInt("RETRY_MAX_ATTEMPTS", 3)
	RATE_LIMIT_RPM = getEnvInt("RATE_LIMIT_RPM", 60)

	ENABLE_IMAGE_PREPROCESSING = getEnvBool("ENABLE_IMAGE_PREPROCESSING", true)
	MAX_IMAGE_DIMENSION = getEnvInt("MAX_IMAGE_DIMENSION", 1600)
	MIN_IMAGE_BYTES = getEnvInt("MIN_IMAGE_BYTES", 200)
	MAX_IMAGE_BYTES = getEnvInt("MAX_IMAGE_BYTES", 6_000_000)
	MAX_IMAGE_PIXELS = getEnvInt("MAX_IMAGE_PIXELS", 50_000_000)

	RESOURCES_FILE = getEnv("RESOURCES_FILE", "")
	CACHE_TTL = getEnvDuration("CACHE_TTL", 10*time.Minute)

	MONGO_URI = getEnv("MONGO_URI", "")
	MONGO_DB_NAME = getEnv("MONGO_DB_NAME", "waspada")
}

// AllowedOrigins splits ALLOWED_ORIGINS on commas
func AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(ALLOWED_ORIGINS, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// ActiveAPIKey returns the credential of the selected provider
func ActiveAPIKey() string {
	if LLM_PROVIDER == "openai" {
		return OPENAI_API_KEY
	}
	return GEMINI_API_KEY
}

// ActiveModel returns the model name of the selected provider
func ActiveModel() string {
	if LLM_PROVIDER == "openai" {
		return OPENAI_MODEL
	}
	return GEMINI_MODEL
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("45s") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
