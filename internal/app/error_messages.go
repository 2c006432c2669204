// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package app

import (
	"errors"

	"github.com/tobert/halfremembered-launcher/internal/adapter"
	"github.com/tobert/halfremembered-launcher/internal/client"
	"github.com/tobert/halfremembered-launcher/internal/config"
	"github.com/tobert/halfremembered-launcher/internal/crypto"
	"github.com/tobert/halfremembered-launcher/internal/protocol"
)

// Hints printed by the CLI under a failure. They say what the operator can
// do about the error; the error itself is printed above them.
const (
	// MsgServerUnreachable follows a failed dial or handshake.
	MsgServerUnreachable = "is `launcher server` running and is --server correct?"

	// MsgNoCredentials follows a missing ssh-agent and identity file.
	MsgNoCredentials = "start ssh-agent or pass --identity with a private key"

	// MsgKeyNotAuthorized follows a rejected public key.
	MsgKeyNotAuthorized = "add this key to the server's authorized_keys file"

	// MsgInvalidConfig follows a configuration that failed validation.
	MsgInvalidConfig = "check the config file, HRL_* environment variables and flags"

	// MsgStatusAPIDown follows a monitor that cannot reach the status API.
	MsgStatusAPIDown = "is the server's status API enabled and is --status-url correct?"

	// MsgStorageDisabled follows a history or watch read on a server
	// without a database.
	MsgStorageDisabled = "the server was started without a database"
)

var configErrors = []error{
	config.ErrInvalidAppConfigs,
	config.ErrInvalidTransportConfigs,
	config.ErrInvalidSessionConfigs,
	config.ErrInvalidSyncConfigs,
	config.ErrInvalidStorageConfigs,
	config.ErrInvalidServerConfigs,
	config.ErrInvalidAdapterConfigs,
}

// Hint returns the operator hint for err, or "" when there is none. Errors
// reported by the server itself carry their own reason and get no hint.
func Hint(err error) string {
	var remote *protocol.RemoteError
	switch {
	case err == nil, errors.As(err, &remote):
		return ""
	case errors.Is(err, crypto.ErrNoAuthMethods):
		return MsgNoCredentials
	case errors.Is(err, crypto.ErrUnauthorizedKey):
		return MsgKeyNotAuthorized
	case errors.Is(err, client.ErrServerUnreachable):
		return MsgServerUnreachable
	case errors.Is(err, adapter.ErrStorageDisabled):
		return MsgStorageDisabled
	case errors.Is(err, adapter.ErrUnavailable):
		return MsgStatusAPIDown
	}

	for _, target := range configErrors {
		if errors.Is(err, target) {
			return MsgInvalidConfig
		}
	}
	return ""
}
