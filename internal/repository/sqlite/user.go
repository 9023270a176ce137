package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/time-capsule/internal/apperror"
	"github.com/sakif/time-capsule/internal/model"
	"github.com/sakif/time-capsule/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB is the identity store. It shares the connection pool owned by *DB.
type UserDB struct {
	conn *sql.DB
}

// Create inserts a new user. ID and timestamps are filled in on the caller's struct.
//
// The UNIQUE constraint on email is the real guard against duplicates; the
// service checks first for a friendly error, but two concurrent registrations
// can both pass that check. The loser gets apperror.ErrConflict from here.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	ts := now()
	user.ID = xid.New().String()
	user.CreatedAt = ts
	user.UpdatedAt = ts

	_, err := u.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email", "User already exists")
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// GetByEmail looks a user up by email, password hash included.
// Only the login path should call this.
func (u *UserDB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var usr model.User

	err := u.conn.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at, updated_at
		 FROM users WHERE email = ?`,
		email,
	).Scan(
		&usr.ID,
		&usr.Username,
		&usr.Email,
		&usr.PasswordHash,
		&usr.CreatedAt,
		&usr.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundWithID("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}

	return &usr, nil
}

// GetByID retrieves a user by internal ID. The password hash column is not
// selected, so the returned PasswordHash is always empty.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	id = strings.TrimSpace(id)
	var usr model.User

	err := u.conn.QueryRowContext(ctx,
		`SELECT id, username, email, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(
		&usr.ID,
		&usr.Username,
		&usr.Email,
		&usr.CreatedAt,
		&usr.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundWithID("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &usr, nil
}
