package config

import "errors"

// Validation errors returned by validate when a configuration group is
// incomplete or invalid.
var (
	// ErrInvalidAppConfigs indicates invalid identity settings (for example,
	// an empty hostname).
	ErrInvalidAppConfigs = errors.New("invalid app configuration")
	// ErrInvalidTransportConfigs indicates invalid SSH settings (for example,
	// a malformed address or a non-positive frame size).
	ErrInvalidTransportConfigs = errors.New("invalid transport configuration")
	// ErrInvalidSessionConfigs indicates invalid heartbeat or reconnect timing.
	ErrInvalidSessionConfigs = errors.New("invalid session configuration")
	// ErrInvalidSyncConfigs indicates invalid delta-sync tuning.
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidStorageConfigs indicates an empty database DSN.
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidServerConfigs indicates invalid status API settings.
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
	// ErrInvalidAdapterConfigs indicates invalid status client settings.
	ErrInvalidAdapterConfigs = errors.New("invalid adapter configuration")
)
