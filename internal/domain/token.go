package domain

import "time"

// TokenType discriminates access from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenData is the validated payload of a decoded JWT.
type TokenData struct {
	UserID    string
	Email     string
	Tier      Tier
	Type      TokenType
	JTI       string
	ExpiresAt time.Time
}
