package domain

import (
	"strings"
	"time"
)

// Credentials identifies the portal account used for every remote fetch.
// They are owned by the persistent store and loaded per refresh cycle.
type Credentials struct {
	// UserID is the portal login (usually a registration number).
	UserID string `json:"user_id"`
	// Secret is the portal password.
	Secret string `json:"secret"`
	// SavedAt is when the credentials were stored.
	SavedAt time.Time `json:"saved_at"`
}

// Validate checks that both fields are present.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.UserID) == "" || c.Secret == "" {
		return ErrInvalidInput
	}
	return nil
}

// String hides the secret so credentials are safe to log.
func (c Credentials) String() string {
	return "Credentials{UserID: " + c.UserID + ", Secret: ***}"
}
