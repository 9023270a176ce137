// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data: similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account.
//
// WHY `json:"-"` ON PasswordHash?
// The hash must never leave the server. The "-" tag tells encoding/json to skip
// the field entirely, so even if a handler accidentally encodes a full User,
// the hash is not in the response.
//
// The repository only fills PasswordHash on the login lookup (GetByEmail);
// identity lookups by ID leave it empty.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Username     string    `json:"username"  db:"username"`
	Email        string    `json:"email"     db:"email"` // unique across all users
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
