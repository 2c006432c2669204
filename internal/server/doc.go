// Package server runs the launcher's acceptor side.
//
// It accepts authenticated transport connections, classifies each one by its
// first control frame, and either files a daemon session in the registry or
// answers a one-shot administrative command. It also owns signal handling
// and the graceful shutdown of sessions, the listener and the background
// workers (the liveness reaper and the status HTTP server).
package server
