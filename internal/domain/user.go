package domain

import "time"

// User is the domain model for client accounts.
type User struct {
	ID                string
	Email             string
	Name              string
	CompanyName       string
	PasswordHash      string
	Tier              Tier
	Active            bool
	DailyRequestCount int
	LastRequestDate   *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
