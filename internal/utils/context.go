// Package utils provides general-purpose helpers shared by the launcher's
// packages: identifier generation, context keys, JSON response writing and
// the HTTP client used by the status adapter.
package utils

import (
	"context"
)

// contextKey is a private type for context keys.
// Using a dedicated type instead of a plain string prevents key collisions
// with other packages that may use string-based keys in the context.
type contextKey string

// String returns the string representation of the context key.
func (c contextKey) String() string {
	return string(c)
}

var (
	// SessionIDCtxKey carries the session id of the connection a request
	// belongs to.
	SessionIDCtxKey = contextKey("sessionID")

	// RequestIDCtxKey carries the id of the sync, exec or ping request being
	// served.
	RequestIDCtxKey = contextKey("requestID")
)

// WithSessionID returns a copy of ctx carrying id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDCtxKey, id)
}

// GetSessionIDFromContext retrieves the session id stored by WithSessionID.
//
//	id, ok := utils.GetSessionIDFromContext(ctx)
//	if !ok {
//	    // not running on behalf of a session
//	}
func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(SessionIDCtxKey).(string)
	return id, ok && id != ""
}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDCtxKey, id)
}

// GetRequestIDFromContext retrieves the request id stored by WithRequestID.
func GetRequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(RequestIDCtxKey).(string)
	return id, ok && id != ""
}
