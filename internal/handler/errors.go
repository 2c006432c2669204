// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package handler

import "errors"

// ErrNoHandlersAreCreated is returned by NewHandlers when the server
// configuration disables every transport handler. Callers treat it as "run
// without a status API" rather than as a startup failure.
var ErrNoHandlersAreCreated = errors.New("no handlers are created")
