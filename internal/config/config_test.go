package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadQRConfig_Defaults(t *testing.T) {
	t.Setenv("QR_MAX_ATTEMPTS", "")
	t.Setenv("QR_TOKEN_BYTES", "")
	t.Setenv("QR_PNG_SIZE", "")

	c := LoadQRConfig()
	assert.Equal(t, 5, c.MaxAttempts)
	assert.Equal(t, 8, c.TokenBytes)
	assert.Equal(t, 256, c.PNGSize)
}

func TestLoadQRConfig_ClampsBadValues(t *testing.T) {
	t.Setenv("QR_MAX_ATTEMPTS", "0")
	t.Setenv("QR_TOKEN_BYTES", "1")
	t.Setenv("QR_PNG_SIZE", "10")

	c := LoadQRConfig()
	assert.Equal(t, 1, c.MaxAttempts)
	assert.Equal(t, 4, c.TokenBytes)
	assert.Equal(t, 64, c.PNGSize)
}

func TestLoadBoothConfig(t *testing.T) {
	t.Setenv("BOOTH_AVAILABILITY_RULE", "")
	assert.Equal(t, RuleAnyAssignment, LoadBoothConfig().AvailabilityRule)

	t.Setenv("BOOTH_AVAILABILITY_RULE", "overlap")
	assert.Equal(t, RuleOverlap, LoadBoothConfig().AvailabilityRule)

	t.Setenv("BOOTH_AVAILABILITY_RULE", "something-else")
	assert.Equal(t, RuleAnyAssignment, LoadBoothConfig().AvailabilityRule)
}

func TestLoadRateLimitConfig_TTLAtLeastFiveIntervals(t *testing.T) {
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig(ScopeScan)
	assert.Equal(t, time.Minute, c.RefillInterval)
	assert.Equal(t, 5*time.Minute, c.TTL)
}

func TestLoadRateLimitConfig_ScopesAreSeparate(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "")
	t.Setenv("RATE_LIMIT_PREFIX", "")
	t.Setenv("LEAD_RATE_LIMIT_CAPACITY", "3")

	scan := LoadRateLimitConfig(ScopeScan)
	lead := LoadRateLimitConfig(ScopeLead)
	assert.Equal(t, 60, scan.Capacity)
	assert.Equal(t, "user", scan.KeyStrategy)
	assert.Equal(t, "expo:rl:scan", scan.Prefix)
	assert.Equal(t, 3, lead.Capacity)
	assert.Equal(t, "ip", lead.KeyStrategy)
	assert.Equal(t, "expo:rl:lead", lead.Prefix)
	assert.Equal(t, time.Minute, lead.RefillInterval)
}

func TestLoadRateLimitConfig_ScopeOverridesShared(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "off")
	t.Setenv("SCAN_RATE_LIMIT_ENABLED", "yes")
	t.Setenv("SCAN_RATE_LIMIT_CAPACITY", "0")

	assert.True(t, LoadRateLimitConfig(ScopeScan).Enabled)
	assert.False(t, LoadRateLimitConfig(ScopeLead).Enabled)
	assert.Equal(t, 1, LoadRateLimitConfig(ScopeScan).Capacity)
}

func TestLoadMailConfig(t *testing.T) {
	t.Setenv("MAIL_API_URL", "http://mail.local/send")
	t.Setenv("MAIL_TIMEOUT", "3s")

	c := LoadMailConfig()
	assert.Equal(t, "http://mail.local/send", c.APIURL)
	assert.Equal(t, 3*time.Second, c.Timeout)
	assert.Equal(t, "no-reply@expo.local", c.From)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("X_FLAG", "off")
	assert.False(t, envBool("X_FLAG", true))
	t.Setenv("X_FLAG", "YES")
	assert.True(t, envBool("X_FLAG", false))
	t.Setenv("X_FLAG", "maybe")
	assert.True(t, envBool("X_FLAG", true))
}
