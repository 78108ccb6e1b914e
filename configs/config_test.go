package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("ANALYZE_TIMEOUT", "")
	t.Setenv("MAX_IMAGE_BYTES", "")
	t.Setenv("MAX_IMAGE_PIXELS", "")

	applyDefaults()

	assert.Equal(t, "gemini", LLM_PROVIDER)
	assert.Equal(t, "", GEMINI_API_KEY)
	assert.Equal(t, 60*time.Second, ANALYZE_TIMEOUT)
	assert.Equal(t, 6_000_000, MAX_IMAGE_BYTES)
	assert.Equal(t, 50_000_000, MAX_IMAGE_PIXELS)
	assert.Equal(t, 1300, MAX_OUTPUT_TOKENS)
}

func TestApplyDefaults_FromEnvironment(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "  sk-test-key-1234567890  ")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:9999/v1/")
	t.Setenv("ANALYZE_TIMEOUT", "45")
	t.Setenv("CHAT_TIMEOUT", "1m")
	t.Setenv("ENABLE_IMAGE_PREPROCESSING", "false")
	t.Setenv("RATE_LIMIT_RPM", "not-a-number")

	applyDefaults()

	assert.Equal(t, "openai", LLM_PROVIDER)
	assert.Equal(t, "sk-test-key-1234567890", OPENAI_API_KEY)
	assert.Equal(t, "http://localhost:9999/v1", OPENAI_BASE_URL)
	assert.Equal(t, 45*time.Second, ANALYZE_TIMEOUT)
	assert.Equal(t, time.Minute, CHAT_TIMEOUT)
	assert.False(t, ENABLE_IMAGE_PREPROCESSING)
	assert.Equal(t, 60, RATE_LIMIT_RPM)

	assert.Equal(t, "sk-test-key-1234567890", ActiveAPIKey())
	assert.Equal(t, "gpt-4o-mini", ActiveModel())
}

func TestAllowedOrigins(t *testing.T) {
	orig := ALLOWED_ORIGINS
	defer func() { ALLOWED_ORIGINS = orig }()

	ALLOWED_ORIGINS = "https://a.example, https://b.example,,"
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, AllowedOrigins())

	ALLOWED_ORIGINS = " , "
	assert.Equal(t, []string{"*"}, AllowedOrigins())
}
