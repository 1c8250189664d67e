package core

import (
	"time"

	"casedesk.app/server/internal/store"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID    string
	Email     string
	Name      *string
	SessionID string
	ExpiresAt time.Time
}

// Session is the result of a successful login.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *store.User `json:"user"`
}
