package dto

import (
	"encoding/json"
	"time"
)

// AnalysisRunRequest starts a research run against a company.
type AnalysisRunRequest struct {
	CompanyID string   `json:"company_id"`
	Task      string   `json:"task"`
	Agents    []string `json:"agents,omitempty"`
}

// AnalysisJobResponse is the public view of a job.
type AnalysisJobResponse struct {
	ID         string          `json:"id"`
	CompanyID  string          `json:"company_id"`
	Status     string          `json:"status"`
	Agents     []string        `json:"agents"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}
