// Package session implements the acceptor side of a daemon connection: the
// Connecting → Registered → Active → Disconnected state machine, the control
// channel loop that records heartbeats and answers, the per-session pending
// ping table, and the reconnect Backoff shared with the initiator.
//
// A Session owns its transport connection and a context that is cancelled,
// with a cause, when the session ends. Work on behalf of the session derives
// from that context, so supersession or liveness expiry stops it promptly.
package session
