// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a registered credential. The secret itself is never stored.
type User struct {
	ID         string
	Identifier string
	Salt       []byte
	SecretHash []byte
	CreatedAt  time.Time
}
