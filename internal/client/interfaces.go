// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"

	"github.com/tobert/halfremembered-launcher/internal/protocol"
)

// Commander sends one administrative command and returns the server's
// response. A protocol.Error from the server is returned as
// *protocol.RemoteError.
type Commander interface {
	Do(ctx context.Context, cmd protocol.Command) (protocol.Message, error)
}
