package models

import (
	"time"

	"github.com/google/uuid"
)

// SecurityEventType identifies the kind of security-relevant action recorded
type SecurityEventType string

const (
	EventUserRegistered       SecurityEventType = "USER_REGISTERED"
	EventLoginSuccess         SecurityEventType = "LOGIN_SUCCESS"
	EventLoginFailed          SecurityEventType = "LOGIN_FAILED"
	EventAccountLocked        SecurityEventType = "ACCOUNT_LOCKED"
	EventLogout               SecurityEventType = "LOGOUT"
	EventLogoutAllDevices     SecurityEventType = "LOGOUT_ALL_DEVICES"
	EventSessionRevoked       SecurityEventType = "SESSION_REVOKED"
	EventPasswordResetRequest SecurityEventType = "PASSWORD_RESET_REQUEST"
	EventPasswordResetSuccess SecurityEventType = "PASSWORD_RESET_SUCCESS"
	EventPasswordChanged      SecurityEventType = "PASSWORD_CHANGED"
	EventEmailVerified        SecurityEventType = "EMAIL_VERIFIED"
)

// SecurityEvent represents one row of the append-only security audit trail
type SecurityEvent struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	UserID      *uuid.UUID        `json:"user_id" db:"user_id"` // nil for events on unknown accounts
	EventType   SecurityEventType `json:"event_type" db:"event_type"`
	Description string            `json:"description" db:"description"`
	Metadata    string            `json:"metadata" db:"metadata"` // JSON string with additional context
	IPAddress   string            `json:"ip_address" db:"ip_address"`
	UserAgent   string            `json:"user_agent" db:"user_agent"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// CreateSecurityEventRequest represents the request to append a security event
type CreateSecurityEventRequest struct {
	UserID      *uuid.UUID        `json:"user_id"`
	EventType   SecurityEventType `json:"event_type" binding:"required"`
	Description string            `json:"description" binding:"required"`
	Metadata    string            `json:"metadata"`
	IPAddress   string            `json:"ip_address"`
	UserAgent   string            `json:"user_agent"`
}
