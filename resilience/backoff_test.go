package resilience

import (
	"math/rand/v2"
	"testing"
	"time"
)

func TestBackoff_ExponentialGrowth(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Factor:       2.0,
	}

	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second, // capped
		30 * time.Second,
	}

	for i, w := range want {
		if got := Backoff(i+1, cfg); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoff_MonotonicUntilCap(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Factor:       1.5,
	}

	prev := time.Duration(0)
	for attempt := 1; attempt <= 20; attempt++ {
		d := Backoff(attempt, cfg)
		if d < prev {
			t.Fatalf("Backoff(%d) = %v decreased from %v", attempt, d, prev)
		}
		if d > cfg.MaxDelay {
			t.Fatalf("Backoff(%d) = %v exceeds cap %v", attempt, d, cfg.MaxDelay)
		}
		prev = d
	}
	if prev != cfg.MaxDelay {
		t.Errorf("final delay = %v, want cap %v", prev, cfg.MaxDelay)
	}
}

func TestBackoff_JitterBounds(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: time.Second,
		MaxDelay:     time.Minute,
		Factor:       2.0,
		Jitter:       true,
		Rand:         rand.New(rand.NewPCG(1, 2)),
	}

	base := 4 * time.Second // attempt 3 without jitter
	for i := 0; i < 100; i++ {
		d := Backoff(3, cfg)
		if d < base/2 || d > base {
			t.Fatalf("jittered delay %v outside [%v, %v]", d, base/2, base)
		}
	}
}

func TestBackoff_AttemptFloor(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: time.Second, Factor: 2.0}

	if got := Backoff(0, cfg); got != time.Second {
		t.Errorf("Backoff(0) = %v, want %v", got, time.Second)
	}
	if got := Backoff(-3, cfg); got != time.Second {
		t.Errorf("Backoff(-3) = %v, want %v", got, time.Second)
	}
}

func TestBackoff_DefaultFactor(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: time.Second, MaxDelay: time.Minute}

	if got := Backoff(2, cfg); got != 2*time.Second {
		t.Errorf("Backoff(2) = %v, want 2s with default factor", got)
	}
}

func BenchmarkBackoff(b *testing.B) {
	cfg := BackoffConfig{
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Factor:       2.0,
		Jitter:       true,
	}
	for i := 0; i < b.N; i++ {
		Backoff(i%10+1, cfg)
	}
}
