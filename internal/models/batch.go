package models

import "strings"

// Batch job statuses reported by the backend. The set is owned by the backend
// and any other value is carried through untouched.
const (
	BatchPending   = "PENDING"
	BatchRunning   = "RUNNING"
	BatchCompleted = "COMPLETED"
	BatchFailed    = "FAILED"
)

// BatchState is the controller-side lifecycle of one batch job.
type BatchState string

const (
	BatchStateIdle      BatchState = "idle"
	BatchStateUploading BatchState = "uploading"
	BatchStatePolling   BatchState = "polling"
	BatchStateStopped   BatchState = "stopped"
	BatchStateCompleted BatchState = "completed"
	BatchStateFailed    BatchState = "failed"
)

// BatchStatus is the canonical snapshot of a batch job.
type BatchStatus struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	Processed    *int   `json:"processed,omitempty"`
	SuccessCount *int   `json:"success_count,omitempty"`
	ErrorCount   *int   `json:"error_count,omitempty"`
	Total        *int   `json:"total,omitempty"`
	Message      string `json:"message,omitempty"`
}

// IsTerminal reports whether no further polling is valid for this job.
func (s BatchStatus) IsTerminal() bool {
	return IsTerminalStatus(s.Status)
}

func IsTerminalStatus(status string) bool {
	switch strings.ToUpper(status) {
	case BatchCompleted, BatchFailed:
		return true
	}
	return false
}

// Progress returns the completion percentage while the job is running, or nil
// when there is nothing to show.
func (s BatchStatus) Progress() *float64 {
	if strings.ToUpper(s.Status) != BatchRunning || s.Processed == nil {
		return nil
	}
	denominator := *s.Processed
	if s.Total != nil && *s.Total > 0 {
		denominator = *s.Total
	}
	pct := 0.0
	if denominator > 0 {
		pct = float64(*s.Processed) / float64(denominator) * 100
	}
	if pct > 100 {
		pct = 100
	}
	return &pct
}

// BatchSnapshot is what the dashboard renders for the batch panel.
type BatchSnapshot struct {
	State    BatchState   `json:"state"`
	JobID    string       `json:"job_id,omitempty"`
	Status   *BatchStatus `json:"status,omitempty"`
	Polling  bool         `json:"polling"`
	Loading  bool         `json:"loading"`
	Progress *float64     `json:"progress,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// BatchFileSummary describes a staged batch file before it is uploaded.
type BatchFileSummary struct {
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}
