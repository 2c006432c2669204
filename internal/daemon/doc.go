// Package daemon is the initiator side of the launcher: it dials the server,
// registers as a Daemon session, keeps the session alive with heartbeats,
// reconnects with backoff, and serves the Sync and Exec channels the server
// opens.
//
// Incoming files are reconstructed from the local copy plus a delta, written
// to a temporary file next to the destination, verified against the sender's
// SHA-256, and only then renamed into place.
package daemon
