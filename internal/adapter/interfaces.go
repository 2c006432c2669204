// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter is the client side of the launcher's status HTTP API.
//
// [StatusAdapter] hides the REST transport from the monitor and the admin
// commands. Non-2xx responses are mapped to the sentinel errors in errors.go
// so callers can use [errors.Is] (for example [ErrNotFound] for an unknown
// session or [ErrStorageDisabled] when the server runs without a database).
package adapter

import (
	"context"

	"github.com/tobert/halfremembered-launcher/models"
)

// StatusAdapter reads the state of a running launcher server.
type StatusAdapter interface {
	// Version returns the server's build information.
	Version(ctx context.Context) (models.BuildInfo, error)

	// Status returns the server identity, uptime and every registered
	// daemon session.
	Status(ctx context.Context) (models.ServerStatus, error)

	// Clients lists the registered daemon sessions.
	Clients(ctx context.Context) ([]models.ClientInfo, error)

	// Client returns one session by id, or an error wrapping [ErrNotFound].
	Client(ctx context.Context, sessionID string) (models.ClientInfo, error)

	// Watches lists the stored directory watches.
	Watches(ctx context.Context) ([]models.Watch, error)

	// RecentSyncs returns up to limit sync history rows, newest first. A zero
	// limit leaves the page size to the server.
	RecentSyncs(ctx context.Context, limit uint64) ([]models.SyncRecord, error)
}
