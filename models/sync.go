package models

import "time"

// SyncOutcome is the result of pushing one file to one target.
type SyncOutcome struct {
	SessionID        string        `json:"session_id,omitempty"`
	Hostname         string        `json:"hostname"`
	Success          bool          `json:"success"`
	BytesTransferred int64         `json:"bytes_transferred"`
	Checksum         string        `json:"checksum,omitempty"`
	Error            string        `json:"error,omitempty"`
	Duration         time.Duration `json:"duration"`
}

// SyncReport aggregates the per-target outcomes of one sync fan-out.
type SyncReport struct {
	RequestID   string        `json:"request_id"`
	Path        string        `json:"path"`
	Destination string        `json:"destination"`
	Size        int64         `json:"size"`
	Checksum    string        `json:"checksum"`
	StartedAt   time.Time     `json:"started_at"`
	Outcomes    []SyncOutcome `json:"outcomes"`
}

// Succeeded returns the number of targets that completed the sync.
func (r SyncReport) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Success {
			n++
		}
	}
	return n
}

// Failed returns the number of targets that did not complete the sync.
func (r SyncReport) Failed() int {
	return len(r.Outcomes) - r.Succeeded()
}

// SyncRecord is one persisted row of the sync history.
type SyncRecord struct {
	ID          int64     `json:"id"`
	RequestID   string    `json:"request_id"`
	Path        string    `json:"path"`
	Destination string    `json:"destination"`
	SyncOutcome
	RecordedAt time.Time `json:"recorded_at"`
}
