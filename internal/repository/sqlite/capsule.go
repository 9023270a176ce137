package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/time-capsule/internal/apperror"
	"github.com/sakif/time-capsule/internal/model"
	"github.com/sakif/time-capsule/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` fails to compile if *Y stops implementing X.
var _ repository.CapsuleRepository = (*DB)(nil)

const capsuleColumns = `id, user_id, message, unlock_date, locked_date,
	image_data, image_content_type, notified, created_at, updated_at`

// Create inserts a new capsule. ID, timestamps and notified=false are set on the
// caller's struct, which is exactly what the service returns to the client.
func (db *DB) Create(ctx context.Context, capsule *model.Capsule) error {
	ts := now()
	capsule.ID = xid.New().String()
	capsule.Notified = false
	capsule.CreatedAt = ts
	capsule.UpdatedAt = ts
	capsule.UnlockDate = capsule.UnlockDate.UTC()
	capsule.LockedDate = capsule.LockedDate.UTC()

	// NULLABLE COLUMNS:
	// A nil interface{} argument is bound as SQL NULL, so a capsule without an
	// image stores NULL in both image columns rather than an empty blob.
	var imageData, imageType any
	if capsule.Image != nil {
		imageData = capsule.Image.Data
		imageType = capsule.Image.ContentType
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO capsules (`+capsuleColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		capsule.ID,
		capsule.UserID,
		capsule.Message,
		capsule.UnlockDate,
		capsule.LockedDate,
		imageData,
		imageType,
		capsule.Notified,
		capsule.CreatedAt,
		capsule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating capsule: %w", err)
	}

	return nil
}

// GetByID retrieves a single capsule. sql.ErrNoRows becomes apperror.ErrNotFound.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Capsule, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+capsuleColumns+` FROM capsules WHERE id = ?`,
		id,
	)

	c, err := scanCapsule(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFoundWithID("capsule", id)
		}
		return nil, fmt.Errorf("sqlite: getting capsule %s: %w", id, err)
	}

	return c, nil
}

// ListByOwner returns every capsule the user owns, locked or not.
// No ORDER BY: callers get store order and must not rely on it.
func (db *DB) ListByOwner(ctx context.Context, userID string) ([]model.Capsule, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+capsuleColumns+` FROM capsules WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing capsules for %s: %w", userID, err)
	}
	return collectCapsules(rows)
}

// ListUnlockedByOwner returns the user's capsules with unlock_date <= now.
//
// Both sides of the comparison are UTC values written by the same driver
// format, so SQLite's text comparison orders them chronologically.
func (db *DB) ListUnlockedByOwner(ctx context.Context, userID string, at time.Time) ([]model.Capsule, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+capsuleColumns+` FROM capsules
		 WHERE user_id = ? AND unlock_date <= ?`,
		userID,
		at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing unlocked capsules for %s: %w", userID, err)
	}
	return collectCapsules(rows)
}

// MarkNotified flips the notified flag on a single row and returns the new
// updated_at. It only touches notified and updated_at, so a concurrent writer
// doing the same thing cannot clobber any other field.
func (db *DB) MarkNotified(ctx context.Context, id string) (time.Time, error) {
	ts := now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE capsules SET notified = 1, updated_at = ? WHERE id = ?`,
		ts,
		id,
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: marking capsule %s notified: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return time.Time{}, apperror.NotFoundWithID("capsule", id)
	}

	return ts, nil
}

// Delete removes a capsule. Zero rows affected means it was already gone.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM capsules WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting capsule %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFoundWithID("capsule", id)
	}

	return nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCapsule(s scanner) (*model.Capsule, error) {
	var (
		c         model.Capsule
		imageData []byte
		imageType sql.NullString
	)

	if err := s.Scan(
		&c.ID,
		&c.UserID,
		&c.Message,
		&c.UnlockDate,
		&c.LockedDate,
		&imageData,
		&imageType,
		&c.Notified,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(imageData) > 0 {
		c.Image = &model.Image{Data: imageData, ContentType: imageType.String}
	}

	return &c, nil
}

func collectCapsules(rows *sql.Rows) ([]model.Capsule, error) {
	// CRITICAL: always close rows when done!
	defer rows.Close()

	capsules := []model.Capsule{}
	for rows.Next() {
		c, err := scanCapsule(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning capsule row: %w", err)
		}
		capsules = append(capsules, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating capsules: %w", err)
	}

	return capsules, nil
}
