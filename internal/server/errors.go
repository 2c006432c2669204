// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package server

import "errors"

var (
	// ErrStopRequested is the cause given to the server context when an
	// administrator asks the server to stop.
	ErrStopRequested = errors.New("server stop requested")

	// ErrFirstFrame is reported to a peer whose first control frame is
	// neither a Register nor a Command.
	ErrFirstFrame = errors.New("unexpected first frame")

	errUnknownPurpose = errors.New("unknown registration purpose")
)
