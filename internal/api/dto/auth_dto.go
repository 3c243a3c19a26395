package dto

import "time"

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Password string `json:"password"`
}

// StaffLoginResponse carries the issued session token.
type StaffLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
