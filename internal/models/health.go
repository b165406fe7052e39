package models

import "time"

// HealthResponse reports the API status along with each dependency the
// health check probed: the PostgreSQL pool and the Redis revocation store
type HealthResponse struct {
	Status          string    `json:"status" example:"healthy"`
	Database        string    `json:"database" example:"up"`
	RevocationStore string    `json:"revocation_store" example:"up"`
	Time            time.Time `json:"time" example:"2026-08-29T13:00:00Z"`
}
