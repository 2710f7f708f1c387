package domain

import "time"

// AnalysisStatus tracks an analysis job through its lifecycle.
type AnalysisStatus string

const (
	AnalysisStatusQueued      AnalysisStatus = "queued"
	AnalysisStatusRunning     AnalysisStatus = "running"
	AnalysisStatusCompleted   AnalysisStatus = "completed"
	AnalysisStatusFailed      AnalysisStatus = "failed"
	AnalysisStatusCancelled   AnalysisStatus = "cancelled"
	// AnalysisStatusInterrupted marks jobs found running after a process
	// restart; they are never resumed.
	AnalysisStatusInterrupted AnalysisStatus = "interrupted"
)

// AnalysisJob is a queued or finished multi-agent research run.
type AnalysisJob struct {
	ID            string
	CompanyID     string
	RequestedBy   string
	Task          string
	Agents        []string
	Status        AnalysisStatus
	Result        []byte
	ErrorMessage  string
	CreatedAt     time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
}
