// Package orchestrator fans administrative operations out to daemon
// sessions.
//
// Every operation resolves a registry.Selector to its targets and runs one
// goroutine per target. Each target runs under its own deadline and under
// the session context, so a slow or vanished daemon fails on its own
// without holding up or cancelling the others. Outcomes are collected into
// a report in target order; nothing is retried.
//
// Sync pushes a file with the delta protocol: the daemon answers SyncStart
// with the signature of its current copy, the orchestrator computes the
// delta against the new content, compresses it once and streams it in
// SyncData chunks that fit the negotiated frame size.
package orchestrator
