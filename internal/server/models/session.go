package models

import "time"

// Session backs one issued access token; deleting it revokes the token.
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
