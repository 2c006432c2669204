package models

import "time"

// Watch is a stored directory-watch configuration. The launcher only keeps
// the parameters; an external filesystem watcher consumes them.
type Watch struct {
	ID          int64     `json:"id"`
	Path        string    `json:"path"`
	Recursive   bool      `json:"recursive"`
	Include     []string  `json:"include,omitempty"`
	Exclude     []string  `json:"exclude,omitempty"`
	Destination string    `json:"destination,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
