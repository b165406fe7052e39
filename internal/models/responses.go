package models

// TokenPairResponse represents the tokens returned by login, register and refresh
type TokenPairResponse struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiIs..."`
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIs..."`
}

// AuthResponse represents the response to a successful login or registration
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// LoginFailureResponse carries the generic invalid-credentials message plus
// the number of attempts left before lockout
type LoginFailureResponse struct {
	Error             string `json:"error"`
	RemainingAttempts int    `json:"remaining_attempts"`
}

// AccountLockedResponse is returned while an account is locked out
type AccountLockedResponse struct {
	Error            string `json:"error"`
	MinutesRemaining int    `json:"minutes_remaining"`
	LockedUntil      string `json:"locked_until"`
}

// PasswordStrengthResponse carries strength feedback for a rejected password
type PasswordStrengthResponse struct {
	Error    string   `json:"error"`
	Score    int      `json:"score"`
	Strength string   `json:"strength"`
	Feedback []string `json:"feedback"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}
