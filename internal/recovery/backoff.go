package recovery

import (
	"math"
	"math/rand"
	"time"
)

// Policy selects how the inter-attempt delay grows.
type Policy string

const (
	PolicyFixed             Policy = "fixed"
	PolicyLinear            Policy = "linear"
	PolicyExponential       Policy = "exponential"
	PolicyExponentialJitter Policy = "exponential_jitter"
)

// RetryConfig defines retry behavior. It is immutable for the duration
// of an execution.
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	JitterMax         float64       `yaml:"jitter_max"`
	Policy            Policy        `yaml:"policy"`
}

// DefaultRetryConfig provides sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BaseDelay:         1 * time.Second,
		MaxDelay:          60 * time.Second,
		BackoffMultiplier: 2.0,
		JitterMax:         0.1,
		Policy:            PolicyExponential,
	}
}

// Delay computes the backoff delay before retrying after the given
// attempt (1-based). Attempt numbers at or below zero yield no delay.
// All policies are capped at MaxDelay.
func Delay(attempt int, cfg RetryConfig) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var delay float64
	base := float64(cfg.BaseDelay)

	switch cfg.Policy {
	case PolicyFixed:
		delay = base
	case PolicyLinear:
		delay = base * float64(attempt)
	case PolicyExponential:
		delay = base * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
	case PolicyExponentialJitter:
		exp := base * math.Pow(cfg.BackoffMultiplier, float64(attempt-1))
		jitter := (rand.Float64()*2 - 1) * cfg.JitterMax
		delay = exp * (1 + jitter)
		if delay < 0 {
			delay = 0
		}
	default:
		delay = base
	}

	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
