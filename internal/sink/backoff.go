package sink

import (
	"math"
	"time"
)

// BackoffConfig defines the gap enforced between connect attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultBackoff waits 5s between attempts, doubling after each consecutive
// failure up to one minute.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 5 * time.Second,
		Multiplier:   2.0,
		MaxDelay:     time.Minute,
	}
}

// NextBackoffDelay returns the gap before attempt N (1-based). The gap never
// shrinks as N grows: a MaxDelay below InitialDelay caps at InitialDelay.
func NextBackoffDelay(cfg BackoffConfig, attempt int) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if attempt <= 1 {
		return cfg.InitialDelay
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	ceiling := max(cfg.MaxDelay, cfg.InitialDelay)
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(ceiling) {
		return ceiling
	}
	return time.Duration(delay)
}
