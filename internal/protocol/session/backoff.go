package session

import (
	"context"
	"math/rand"
	"time"
)

// retryBackoff paces the loop across consecutive retryable transport errors.
// A successful receive resets the streak.
type retryBackoff struct {
	cfg    BackoffConfig
	rng    *rand.Rand
	streak int
}

func newRetryBackoff(cfg BackoffConfig, rng *rand.Rand) *retryBackoff {
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	return &retryBackoff{cfg: cfg, rng: rng}
}

// delay returns the pause for the given 1-based streak length.
func (b *retryBackoff) delay(streak int) time.Duration {
	base := b.cfg.InitialDelay
	if base <= 0 {
		return 0
	}
	d := float64(base)
	for i := 1; i < streak; i++ {
		d *= b.cfg.Multiplier
		if b.cfg.MaxDelay > 0 && d >= float64(b.cfg.MaxDelay) {
			d = float64(b.cfg.MaxDelay)
			break
		}
	}
	if b.cfg.Jitter && b.rng != nil {
		// uniform in [0.5d, 1.5d)
		d *= 0.5 + b.rng.Float64()
	}
	return time.Duration(d)
}

// pause extends the streak and sleeps for its delay, returning early when
// ctx is done. It reports the streak length and the chosen delay.
func (b *retryBackoff) pause(ctx context.Context) (int, time.Duration) {
	b.streak++
	d := b.delay(b.streak)
	if d <= 0 {
		return b.streak, d
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
	return b.streak, d
}

func (b *retryBackoff) reset() {
	b.streak = 0
}
