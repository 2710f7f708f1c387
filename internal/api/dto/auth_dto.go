package dto

import "time"

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
	Password    string `json:"password"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest payload for minting a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenPairResponse standard response for auth endpoints.
type TokenPairResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TierChangeRequest payload for subscription changes.
type TierChangeRequest struct {
	Tier string `json:"tier"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
	Tier        string `json:"tier"`
}
