package server

import (
	"context"

	"github.com/tobert/halfremembered-launcher/internal/protocol"
)

// Dispatcher answers one administrative command. It never returns nil;
// failures come back as protocol.Error.
type Dispatcher interface {
	Handle(ctx context.Context, cmd protocol.Command) protocol.Message
}
