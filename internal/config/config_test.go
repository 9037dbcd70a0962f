package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, 2*time.Minute, cfg.LiveClass.ProtectionWindow)
	assert.Equal(t, 10*time.Second, cfg.LiveClass.LiveInterval)
	assert.Equal(t, 20*time.Second, cfg.LiveClass.StartingInterval)
	assert.Equal(t, 60*time.Second, cfg.LiveClass.UpcomingInterval)
	assert.Equal(t, "label", cfg.Installment.MatchStrategy)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("LMS_API_BASE_URL", "https://lms.example.com/api/")
	t.Setenv("LIVE_CLASS_POLL_LIVE", "5s")
	t.Setenv("INSTALLMENT_SUBMIT_CONCURRENCY", "8")
	t.Setenv("ALLOWED_ORIGINS", "https://admin.example.com,https://ops.example.com")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()

	assert.Equal(t, "https://lms.example.com/api", cfg.LMS.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.LiveClass.LiveInterval)
	assert.Equal(t, 8, cfg.Installment.SubmitConcurrency)
	assert.Equal(t, []string{"https://admin.example.com", "https://ops.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 0, cfg.RedisDB)
}
