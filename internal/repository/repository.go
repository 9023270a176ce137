// Package repository declares the storage contracts the services depend on.
// The concrete implementation lives in repository/sqlite; tests use in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/time-capsule/internal/model"
)

// UserRepository is the identity store.
type UserRepository interface {
	// Create assigns ID and timestamps. A duplicate email returns apperror.ErrConflict.
	Create(ctx context.Context, user *model.User) error
	// GetByEmail returns the full record including PasswordHash (login path only).
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetByID returns the profile without PasswordHash.
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// CapsuleRepository is the capsule store.
type CapsuleRepository interface {
	Create(ctx context.Context, capsule *model.Capsule) error
	GetByID(ctx context.Context, id string) (*model.Capsule, error)
	ListByOwner(ctx context.Context, userID string) ([]model.Capsule, error)
	// ListUnlockedByOwner returns capsules whose unlock date is <= now.
	ListUnlockedByOwner(ctx context.Context, userID string, now time.Time) ([]model.Capsule, error)
	// MarkNotified sets notified = true on one capsule and bumps updated_at.
	MarkNotified(ctx context.Context, id string) (time.Time, error)
	Delete(ctx context.Context, id string) error
}
