package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Rate limit scopes.  Every scope keeps its own buckets under its own key
// prefix and reads its settings from <SCOPE>_RATE_LIMIT_* first, then from
// the shared RATE_LIMIT_* variables.
const (
	ScopeScan = "scan"
	ScopeLead = "lead"
)

// RateLimitConfig configures one Redis token bucket.
type RateLimitConfig struct {
	Scope          string
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string // ip, user, route or a combination joined by "_"
	Prefix         string
	Debug          bool
}

// scopeDefaults: door scanners are a handful of authenticated stations that
// burst when a queue forms, so they are keyed by user; the lead form is
// anonymous, so it is keyed by client address and refills slowly.
var scopeDefaults = map[string]RateLimitConfig{
	ScopeScan: {Capacity: 60, RefillTokens: 1, RefillInterval: time.Second, KeyStrategy: "user"},
	ScopeLead: {Capacity: 5, RefillTokens: 1, RefillInterval: time.Minute, KeyStrategy: "ip"},
}

// LoadRateLimitConfig reads the bucket settings of scope.
func LoadRateLimitConfig(scope string) RateLimitConfig {
	def, ok := scopeDefaults[scope]
	if !ok {
		def = RateLimitConfig{Capacity: 30, RefillTokens: 1, RefillInterval: 2 * time.Second, KeyStrategy: "ip_route"}
	}
	get := func(name string) string {
		if v := os.Getenv(strings.ToUpper(scope) + "_RATE_LIMIT_" + name); v != "" {
			return v
		}
		return os.Getenv("RATE_LIMIT_" + name)
	}

	c := RateLimitConfig{
		Scope:          scope,
		Enabled:        parseBool(get("ENABLED"), true),
		Capacity:       parseInt(get("CAPACITY"), def.Capacity),
		RefillTokens:   parseInt(get("REFILL_TOKENS"), def.RefillTokens),
		RefillInterval: parseDur(get("REFILL_INTERVAL"), def.RefillInterval),
		TTL:            parseDur(get("TTL"), 10*time.Minute),
		KeyStrategy:    strings.ToLower(or(get("KEY_STRATEGY"), def.KeyStrategy)),
		Prefix:         or(get("PREFIX"), "expo:rl") + ":" + scope,
		Debug:          parseBool(get("DEBUG"), false),
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}

func or(v, d string) string {
	if v != "" {
		return v
	}
	return d
}

func envStr(k, d string) string { return or(os.Getenv(k), d) }
func envBool(k string, d bool) bool { return parseBool(os.Getenv(k), d) }
func envInt(k string, d int) int { return parseInt(os.Getenv(k), d) }
func envDur(k string, d time.Duration) time.Duration { return parseDur(os.Getenv(k), d) }

func parseBool(v string, d bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func parseInt(v string, d int) int {
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func parseDur(v string, d time.Duration) time.Duration {
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
