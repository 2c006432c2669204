package orchestrator

import (
	"context"

	"github.com/tobert/halfremembered-launcher/internal/registry"
	"github.com/tobert/halfremembered-launcher/internal/watch"
	"github.com/tobert/halfremembered-launcher/models"
)

// HandleWatchEvent syncs a changed file to every session, using the event's
// relative path as the destination.
func (o *Orchestrator) HandleWatchEvent(ctx context.Context, ev watch.Event) (models.SyncReport, error) {
	o.logger.Debug().Str("path", ev.AbsolutePath).Str("relative", ev.RelativePath).Msg("watch event")

	return o.Sync(ctx, SyncRequest{
		Source:      ev.AbsolutePath,
		Destination: ev.RelativePath,
		Selector:    registry.All(),
	})
}
