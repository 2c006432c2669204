// Package app wires the launcher's roles out of their parts: the server
// with its store, registry, reaper, dispatcher and status API; the
// reconnecting daemon; and the one-shot admin client.
package app
