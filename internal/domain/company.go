package domain

import "time"

// Company is a client company that go-to-market research is produced for.
// OwnerUserID is nullable: unowned companies are publicly readable.
type Company struct {
	ID          string
	OwnerUserID *string
	Name        string
	Domain      string
	Industry    string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
