package resilience

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffConfig parameterizes delay growth between retry attempts.
type BackoffConfig struct {
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the computed delay. Zero means no cap.
	MaxDelay time.Duration

	// Factor is the exponential growth factor.
	// Default: 2.0
	Factor float64

	// Jitter scales the delay by a uniform factor in [0.5, 1.0)
	// to prevent thundering herd.
	Jitter bool

	// Rand supplies the jitter source. Nil uses the shared
	// math/rand/v2 generator. Tests inject a seeded source.
	Rand *rand.Rand
}

// Backoff returns the delay to wait before the given retry attempt.
//
// attempt is 1-based. The delay grows as InitialDelay * Factor^(attempt-1)
// and is capped at MaxDelay before jitter is applied. Without jitter the
// result is deterministic and non-decreasing in attempt.
func Backoff(attempt int, cfg BackoffConfig) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	factor := cfg.Factor
	if factor <= 0 {
		factor = 2.0
	}

	d := float64(cfg.InitialDelay) * math.Pow(factor, float64(attempt-1))
	if cfg.MaxDelay > 0 && d > float64(cfg.MaxDelay) {
		d = float64(cfg.MaxDelay)
	}
	delay := time.Duration(d)

	if cfg.Jitter && delay > 0 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay = time.Duration(float64(delay) * (0.5 + 0.5*cfg.randFloat()))
	}

	return delay
}

func (c BackoffConfig) randFloat() float64 {
	if c.Rand != nil {
		return c.Rand.Float64()
	}
	return rand.Float64()
}
