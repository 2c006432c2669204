package models

// ExecOutcome is the result of running one command on one target.
type ExecOutcome struct {
	SessionID string `json:"session_id,omitempty"`
	Hostname  string `json:"hostname"`
	ExitCode  int    `json:"exit_code"`
	Stdout    string `json:"stdout,omitempty"`
	Stderr    string `json:"stderr,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Success reports whether the command ran and exited with status zero.
func (o ExecOutcome) Success() bool {
	return o.Error == "" && o.ExitCode == 0
}

// ExecReport aggregates the per-target outcomes of one Execute fan-out.
type ExecReport struct {
	RequestID string        `json:"request_id"`
	Command   string        `json:"command"`
	Args      []string      `json:"args,omitempty"`
	Outcomes  []ExecOutcome `json:"outcomes"`
}
