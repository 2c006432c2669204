// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"time"

	"github.com/spf13/pflag"
)

// StructuredConfig is the top-level configuration container for the
// launcher. It aggregates all sub-configurations and is populated by merging
// defaults, an optional JSON or YAML file, environment variables and
// command-line flags.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type StructuredConfig struct {
	// App holds identity settings shared by every role.
	App App `envPrefix:"APP_"`

	// Transport holds the SSH listener and dialer settings.
	Transport Transport `envPrefix:"TRANSPORT_"`

	// Session holds heartbeat and reconnect timing.
	Session Session `envPrefix:"SESSION_"`

	// Sync holds delta-sync tuning.
	Sync Sync `envPrefix:"SYNC_"`

	// Storage holds the watch and sync-history database settings.
	Storage Storage `envPrefix:"STORAGE_"`

	// Server holds the status HTTP API settings.
	Server Server `envPrefix:"SERVER_"`

	// Adapter holds the status API client settings used by the monitor.
	Adapter Adapter `envPrefix:"ADAPTER_"`

	// FilePath is the optional path to a JSON or YAML configuration file.
	// Populated via the HRL_CONFIG environment variable or the --config flag.
	FilePath string `env:"CONFIG"`
}

// App holds settings describing the running process.
type App struct {
	// Hostname is reported in Register and Status.
	// Env: HRL_APP_HOSTNAME
	Hostname string `env:"HOSTNAME"`

	// Version is the launcher version string reported to peers.
	// Env: HRL_APP_VERSION
	Version string `env:"VERSION"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	// Env: HRL_APP_LOG_LEVEL
	LogLevel string `env:"LOG_LEVEL"`

	// WorkingDir is the directory relative sync destinations and commands
	// run under on a daemon.
	// Env: HRL_APP_WORKING_DIR
	WorkingDir string `env:"WORKING_DIR"`
}

// Transport holds SSH settings for both ends of a connection.
type Transport struct {
	// ListenAddress is the acceptor's host:port.
	// Env: HRL_TRANSPORT_LISTEN_ADDRESS
	ListenAddress string `env:"LISTEN_ADDRESS"`

	// ServerAddress is the host:port daemons and admin commands dial.
	// Env: HRL_TRANSPORT_SERVER_ADDRESS
	ServerAddress string `env:"SERVER_ADDRESS"`

	// HostKeyPath is the acceptor's private host key. It is generated on
	// first start when missing.
	// Env: HRL_TRANSPORT_HOST_KEY
	HostKeyPath string `env:"HOST_KEY"`

	// AuthorizedKeysPath lists the public keys allowed to connect.
	// Env: HRL_TRANSPORT_AUTHORIZED_KEYS
	AuthorizedKeysPath string `env:"AUTHORIZED_KEYS"`

	// IdentityPath is an optional private key file used by initiators.
	// Env: HRL_TRANSPORT_IDENTITY
	IdentityPath string `env:"IDENTITY"`

	// AgentSocket overrides SSH_AUTH_SOCK.
	// Env: HRL_TRANSPORT_AGENT_SOCKET
	AgentSocket string `env:"AGENT_SOCKET"`

	// KnownHostsPath enables host key checking when set.
	// Env: HRL_TRANSPORT_KNOWN_HOSTS
	KnownHostsPath string `env:"KNOWN_HOSTS"`

	// User is the SSH user name initiators present.
	// Env: HRL_TRANSPORT_USER
	User string `env:"USER"`

	// MaxFrameSize bounds a single wire frame in bytes.
	// Env: HRL_TRANSPORT_MAX_FRAME_SIZE
	MaxFrameSize int `env:"MAX_FRAME_SIZE"`
}

// Session holds the timing of the session state machine.
type Session struct {
	// Env: HRL_SESSION_HEARTBEAT_INTERVAL
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL"`
	// Env: HRL_SESSION_WELCOME_TIMEOUT
	WelcomeTimeout time.Duration `env:"WELCOME_TIMEOUT"`
	// Env: HRL_SESSION_RECONNECT_INTERVAL
	ReconnectInterval time.Duration `env:"RECONNECT_INTERVAL"`
	// Env: HRL_SESSION_RECONNECT_CEILING
	ReconnectCeiling time.Duration `env:"RECONNECT_CEILING"`
	// DrainTimeout bounds how long a shutdown waits for sessions to drain.
	// Env: HRL_SESSION_DRAIN_TIMEOUT
	DrainTimeout time.Duration `env:"DRAIN_TIMEOUT"`
}

// Sync holds delta-sync tuning for the orchestrator.
type Sync struct {
	// OpTimeout bounds one operation against one target.
	// Env: HRL_SYNC_OP_TIMEOUT
	OpTimeout time.Duration `env:"OP_TIMEOUT"`

	// BlockSize overrides the size-derived block size when non-zero.
	// Env: HRL_SYNC_BLOCK_SIZE
	BlockSize int `env:"BLOCK_SIZE"`

	// Compression is one of none, lz4 or zstd.
	// Env: HRL_SYNC_COMPRESSION
	Compression string `env:"COMPRESSION"`
}

// Storage groups the persistence settings.
type Storage struct {
	// DB holds the relational database connection settings.
	DB DB `envPrefix:"DB_"`
}

// DB holds connection settings for the watch and history database.
type DB struct {
	// DSN is a SQLite file path or a postgres:// URL.
	// Env: HRL_STORAGE_DB_DSN
	DSN string `env:"DSN"`
}

// Server holds the status HTTP API settings.
type Server struct {
	// HTTPAddress is the host:port the status API listens on. The value
	// "off" disables it.
	// Env: HRL_SERVER_HTTP_ADDRESS
	HTTPAddress string `env:"HTTP_ADDRESS"`

	// RequestTimeout bounds one status API request.
	// Env: HRL_SERVER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
}

// Adapter holds the status API client settings.
type Adapter struct {
	// StatusURL is the base URL of the status API.
	// Env: HRL_ADAPTER_STATUS_URL
	StatusURL string `env:"STATUS_URL"`

	// RequestTimeout bounds one outbound request.
	// Env: HRL_ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`

	// PollInterval is how often the monitor refreshes.
	// Env: HRL_ADAPTER_POLL_INTERVAL
	PollInterval time.Duration `env:"POLL_INTERVAL"`
}

// GetStructuredConfig loads, merges and validates the launcher
// configuration. Sources are applied in this order, later non-zero fields
// winning:
//  1. defaults
//  2. the JSON or YAML file (path resolved from env and flags)
//  3. environment variables
//  4. command-line flags that were set on fs
//
// fs may be nil when no flags were bound.
func GetStructuredConfig(fs *pflag.FlagSet) (*StructuredConfig, error) {
	return newConfigBuilder().
		withDefaults().
		withFile(fs).
		withEnv().
		withFlags(fs).
		build()
}
