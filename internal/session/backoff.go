package session

import "time"

const (
	DefaultReconnectInterval = 5 * time.Second
	DefaultReconnectCeiling  = 60 * time.Second
)

// Backoff is the initiator's reconnect delay. Each Next doubles the delay
// up to the ceiling; Reset returns it to the base once a session reaches
// Active. It is not safe for concurrent use.
type Backoff struct {
	base    time.Duration
	ceiling time.Duration
	current time.Duration
}

// NewBackoff returns a Backoff starting at base. Non-positive values fall
// back to the defaults; a ceiling below base is raised to base.
func NewBackoff(base, ceiling time.Duration) *Backoff {
	if base <= 0 {
		base = DefaultReconnectInterval
	}
	if ceiling <= 0 {
		ceiling = DefaultReconnectCeiling
	}
	if ceiling < base {
		ceiling = base
	}
	return &Backoff{base: base, ceiling: ceiling, current: base}
}

// Next returns the delay to wait before the upcoming attempt and doubles
// the delay for the one after.
func (b *Backoff) Next() time.Duration {
	d := b.current
	b.current *= 2
	if b.current > b.ceiling {
		b.current = b.ceiling
	}
	return d
}

// Current returns the delay Next would return, without advancing.
func (b *Backoff) Current() time.Duration {
	return b.current
}

// Reset returns the delay to the base.
func (b *Backoff) Reset() {
	b.current = b.base
}
