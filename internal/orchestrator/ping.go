package orchestrator

import (
	"context"
	"fmt"

	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/session"
	"github.com/tobert/halfremembered-launcher/internal/utils"
	"github.com/tobert/halfremembered-launcher/models"
)

// Ping sends Ping on the control channel of every selected session and
// reports round-trip times.
func (o *Orchestrator) Ping(ctx context.Context, sel registry.Selector) ([]models.PingOutcome, error) {
	targets, missing, err := o.targets.Select(sel)
	if err != nil {
		return nil, err
	}

	ctx = utils.WithRequestID(ctx, utils.NewID())

	outcomes := fanOut(ctx, o, targets, func(ctx context.Context, s *session.Session) models.PingOutcome {
		out := models.PingOutcome{SessionID: s.ID(), Hostname: s.Hostname()}

		pong, rtt, err := s.Ping(ctx)
		if err != nil {
			out.Error = failure(ctx, s, err)
			return out
		}

		out.RoundTrip = rtt
		out.Uptime = pong.Uptime
		out.PendingTransfers = pong.PendingTransfers
		return out
	})

	for _, name := range missing {
		outcomes = append(outcomes, models.PingOutcome{
			Hostname: name,
			Error:    fmt.Sprintf("%s: %s", ErrNoSuchSession, name),
		})
	}

	return outcomes, nil
}
