package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaultsAndEnv(t *testing.T) {
	t.Setenv("FEED_BACKEND", "memory")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "3")
	LoadConfig()

	assert.Equal(t, "8080", AppConfig.AppPort)
	assert.Equal(t, "memory", AppConfig.FeedBackend)
	assert.Equal(t, "backend", AppConfig.PaymentProvider)
	assert.Equal(t, 1, AppConfig.RedisQueueDB)
	assert.Equal(t, 3*time.Second, HTTPTimeout())
	assert.Equal(t, 5*time.Minute, ListingCacheTTL())
	assert.False(t, IsProduction())
}
