// Package http implements the launcher's read-only status API.
//
// It exposes the live fleet view, stored watches and the recent sync history
// as JSON over chi routes. Request tracing, access logging and response
// compression are handled by middleware before requests reach the service
// layer.
package http
