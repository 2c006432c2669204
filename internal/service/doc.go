// Package service holds the read-side services behind the status HTTP API:
// build information, the live fleet view, stored watches and the sync
// history.
package service
