// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never *sqlite.DB, so tests can hand them
// in-memory fakes and the store can change without touching business rules.
package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/time-capsule/internal/apperror"
	"github.com/sakif/time-capsule/internal/model"
	"github.com/sakif/time-capsule/internal/repository"
)

// Client-facing messages for capsule operations.
const (
	MsgCapsuleFieldsRequired = "Message, unlockDate, and lockedDate are required"
	MsgCapsuleDateFormat     = "Invalid unlockDate or lockedDate format"
	MsgCapsuleImageType      = "Uploaded file must be an image"
	MsgCapsuleNotFound       = "Capsule not found"
	MsgCapsuleNotOwner       = "Not authorized"
)

// CreateCapsuleInput is what a client submits when sealing a capsule.
// The dates are raw strings; Create parses them.
type CreateCapsuleInput struct {
	Message    string
	UnlockDate string
	LockedDate string
	Image      *model.Image // nil when no file was uploaded
}

// CapsuleService runs the capsule lifecycle:
//
//	created (locked) → unlocked, not notified → unlocked, notified → deleted
//
// "Unlocked" is never stored. It is computed from UnlockDate and the current
// time whenever capsules are read.
type CapsuleService struct {
	repo   repository.CapsuleRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewCapsuleService creates a CapsuleService backed by repo.
func NewCapsuleService(repo repository.CapsuleRepository, logger *slog.Logger) *CapsuleService {
	return &CapsuleService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Create validates the input and stores a new capsule owned by ownerID.
//
// VALIDATION ORDER (first failure wins, all are apperror.ErrValidation):
//  1. message, unlockDate and lockedDate must all be present
//  2. both dates must parse
//  3. an uploaded file must have an image/* content type
func (s *CapsuleService) Create(ctx context.Context, ownerID string, in CreateCapsuleInput) (*model.Capsule, error) {
	// Only absent fields count as missing. A blank date fails the format
	// check instead, and a blank message is kept as written.
	if in.Message == "" || in.UnlockDate == "" || in.LockedDate == "" {
		return nil, apperror.ValidationFailed("", MsgCapsuleFieldsRequired)
	}

	unlock, err := parseCapsuleDate(in.UnlockDate)
	if err != nil {
		return nil, apperror.ValidationFailed("unlockDate", MsgCapsuleDateFormat)
	}
	locked, err := parseCapsuleDate(in.LockedDate)
	if err != nil {
		return nil, apperror.ValidationFailed("lockedDate", MsgCapsuleDateFormat)
	}

	if in.Image != nil && !strings.HasPrefix(in.Image.ContentType, "image/") {
		return nil, apperror.ValidationFailed("image", MsgCapsuleImageType)
	}

	capsule := &model.Capsule{
		UserID:     ownerID,
		Message:    in.Message,
		UnlockDate: unlock,
		LockedDate: locked,
		Image:      in.Image,
	}

	if err := s.repo.Create(ctx, capsule); err != nil {
		s.logger.Error("failed to create capsule",
			slog.String("userID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating capsule: %w", err)
	}

	s.logger.Info("capsule created",
		slog.String("id", capsule.ID),
		slog.String("userID", ownerID),
		slog.Time("unlockDate", capsule.UnlockDate),
		slog.Bool("hasImage", capsule.Image != nil),
	)

	return capsule, nil
}

// ListUnlocked returns the owner's capsules whose UnlockDate is at or before now.
//
// SIDE EFFECT:
// Every returned capsule that was not yet notified is flagged and persisted,
// one UPDATE per capsule, before this method returns. The returned views
// already show notified=true. Calling it again changes nothing more.
//
// A capsule deleted between the query and its update is left out of the result.
//
// The sequence is lazy: views (and their base64 images) are built as the
// caller ranges over it. Order is whatever the store returns.
func (s *CapsuleService) ListUnlocked(ctx context.Context, ownerID string) (iter.Seq[model.CapsuleView], error) {
	now := s.now()

	capsules, err := s.repo.ListUnlockedByOwner(ctx, ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("listing unlocked capsules: %w", err)
	}

	unlocked := capsules[:0]
	for _, c := range capsules {
		if !c.IsUnlocked(now) {
			continue
		}

		if !c.Notified {
			updatedAt, err := s.repo.MarkNotified(ctx, c.ID)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("marking capsule %s notified: %w", c.ID, err)
			}
			c.Notified = true
			c.UpdatedAt = updatedAt

			s.logger.Info("capsule notified",
				slog.String("id", c.ID),
				slog.String("userID", ownerID),
			)
		}

		unlocked = append(unlocked, c)
	}

	return views(unlocked), nil
}

// ListAll returns every capsule the owner has, locked or not. It never
// changes the notified flag.
func (s *CapsuleService) ListAll(ctx context.Context, ownerID string) (iter.Seq[model.CapsuleView], error) {
	capsules, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing capsules: %w", err)
	}
	return views(capsules), nil
}

// Delete removes a capsule on behalf of requesterID.
//
// ERRORS:
//   - apperror.ErrNotFound ("Capsule not found") if there is no such capsule
//   - apperror.ErrForbidden ("Not authorized") if requesterID is not the owner;
//     the capsule is left untouched
func (s *CapsuleService) Delete(ctx context.Context, id, requesterID string) error {
	if id == "" {
		return apperror.NotFound(MsgCapsuleNotFound)
	}

	capsule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound(MsgCapsuleNotFound)
		}
		return fmt.Errorf("fetching capsule %s for delete: %w", id, err)
	}

	if capsule.UserID != requesterID {
		s.logger.Warn("capsule delete refused",
			slog.String("id", id),
			slog.String("owner", capsule.UserID),
			slog.String("requester", requesterID),
		)
		return apperror.Forbidden(MsgCapsuleNotOwner)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.NotFound(MsgCapsuleNotFound)
		}
		return fmt.Errorf("deleting capsule %s: %w", id, err)
	}

	s.logger.Info("capsule deleted",
		slog.String("id", id),
		slog.String("userID", requesterID),
	)

	return nil
}

// views adapts a slice of capsules to a lazily shaped sequence of views.
func views(capsules []model.Capsule) iter.Seq[model.CapsuleView] {
	return func(yield func(model.CapsuleView) bool) {
		for i := range capsules {
			if !yield(capsules[i].View()) {
				return
			}
		}
	}
}
