package workers

import (
	"context"
	"time"

	"github.com/tobert/halfremembered-launcher/internal/clock"
	"github.com/tobert/halfremembered-launcher/internal/logger"
	"github.com/tobert/halfremembered-launcher/internal/session"
)

// Reaper closes sessions that missed their heartbeats. It checks every half
// heartbeat interval and expires a session after two intervals of silence.
type Reaper struct {
	sessions Sessions
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration
	logger   *logger.Logger
}

// minReapInterval keeps the check period positive for very short heartbeat
// intervals.
const minReapInterval = time.Millisecond

func NewReaper(sessions Sessions, heartbeatInterval time.Duration, clk clock.Clock, log *logger.Logger) *Reaper {
	return &Reaper{
		sessions: sessions,
		clock:    clk,
		interval: max(heartbeatInterval/2, minReapInterval),
		timeout:  2 * heartbeatInterval,
		logger:   log,
	}
}

func (r *Reaper) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug().Dur("interval", r.interval).Dur("timeout", r.timeout).Msg("liveness reaper started")

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Reap(now)
		}
	}
}

// Reap closes and removes every session expired at now. It returns how many
// were removed.
func (r *Reaper) Reap(now time.Time) int {
	removed := 0
	for _, s := range r.sessions.Expired(now, r.timeout) {
		s.Logger().Warn().
			Time("last_heartbeat", s.LastHeartbeat()).
			Str("func", "*Reaper.Reap").
			Msg("heartbeat deadline elapsed")

		s.Close(session.ErrHeartbeatTimeout)
		if r.sessions.RemoveIf(s) {
			removed++
		}
	}
	return removed
}
