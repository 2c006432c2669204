// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the administrative side of the launcher: a
// one-shot control connection that sends a single command to the server,
// waits for the response and hangs up.
package client
