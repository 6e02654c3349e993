package bus

import "time"

// Backoff yields Fibonacci reconnect delays (1, 2, 3, 5, 8, ... seconds)
// capped at Ceiling, with a ceiling on total attempts. One instance covers
// one outage; a successful reconnect discards it and the next outage starts
// from the first term again.
type Backoff struct {
	Ceiling     time.Duration
	MaxAttempts int

	prev, cur time.Duration
	attempts  int
}

func NewBackoff(ceiling time.Duration, maxAttempts int) *Backoff {
	return &Backoff{Ceiling: ceiling, MaxAttempts: maxAttempts}
}

// Next returns the delay before the next attempt, or false when the attempt
// ceiling is exhausted. Delays never exceed Ceiling.
func (b *Backoff) Next() (time.Duration, bool) {
	if b.MaxAttempts > 0 && b.attempts >= b.MaxAttempts {
		return 0, false
	}
	b.attempts++
	if b.cur == 0 {
		b.prev, b.cur = time.Second, time.Second
		return b.clamp(time.Second), true
	}
	b.prev, b.cur = b.cur, b.prev+b.cur
	return b.clamp(b.cur), true
}

func (b *Backoff) Attempts() int { return b.attempts }

func (b *Backoff) clamp(d time.Duration) time.Duration {
	if b.Ceiling > 0 && d > b.Ceiling {
		return b.Ceiling
	}
	return d
}
