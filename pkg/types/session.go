package types

import (
	"time"
)

// Session is the signed-in state of the dashboard.
type Session struct {
	BearerToken string
	IsLoggedIn  bool
	Username    string
	ExpiresAt   time.Time
}

// LoginResult reports the outcome of a login attempt. Login failures are
// described here instead of being returned as errors.
type LoginResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	TOTPRequired bool   `json:"totp_required"`
}
