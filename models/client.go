package models

import "time"

// ClientInfo is a point-in-time view of one registered daemon session as
// reported by ListClients, Status and the status HTTP API.
type ClientInfo struct {
	SessionID     string    `json:"session_id"`
	Hostname      string    `json:"hostname"`
	Platform      string    `json:"platform,omitempty"`
	Version       string    `json:"version,omitempty"`
	Identity      string    `json:"identity,omitempty"`
	Capabilities  []string  `json:"capabilities,omitempty"`
	State         string    `json:"state"`
	RemoteAddr    string    `json:"remote_addr,omitempty"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// ServerStatus is the payload of the Status command.
type ServerStatus struct {
	Hostname string        `json:"hostname"`
	Version  string        `json:"version"`
	Uptime   time.Duration `json:"uptime"`
	Clients  []ClientInfo  `json:"clients"`
}

// PingOutcome reports one target's answer to a Ping.
type PingOutcome struct {
	SessionID        string        `json:"session_id,omitempty"`
	Hostname         string        `json:"hostname"`
	RoundTrip        time.Duration `json:"round_trip"`
	Uptime           time.Duration `json:"uptime,omitempty"`
	PendingTransfers uint32        `json:"pending_transfers,omitempty"`
	Error            string        `json:"error,omitempty"`
}
