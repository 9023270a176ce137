package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/time-capsule/internal/apperror"
	"github.com/sakif/time-capsule/internal/model"
	"github.com/sakif/time-capsule/internal/repository"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// In-memory implementations of the repository interfaces. They store copies,
// never the caller's pointers, so a test can't accidentally mutate "the
// database" through a returned value. Setting an err field makes every call
// fail, to simulate the store being down.

var (
	_ repository.UserRepository    = (*fakeUserRepo)(nil)
	_ repository.CapsuleRepository = (*fakeCapsuleRepo)(nil)
)

type fakeUserRepo struct {
	users  map[string]*model.User // by ID
	nextID int
	err    error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	if f.err != nil {
		return f.err
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.Conflict("email", "User already exists")
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFoundWithID("user", email)
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFoundWithID("user", id)
	}
	result := *u
	result.PasswordHash = ""
	return &result, nil
}

type fakeCapsuleRepo struct {
	capsules    map[string]*model.Capsule
	nextID      int
	markCalls   int
	err         error // fails every call
	markErr     error // fails only MarkNotified
	deleteAfter string
}

func newFakeCapsuleRepo() *fakeCapsuleRepo {
	return &fakeCapsuleRepo{capsules: make(map[string]*model.Capsule)}
}

// put stores a capsule directly, bypassing Create's defaults.
func (f *fakeCapsuleRepo) put(c model.Capsule) *model.Capsule {
	f.nextID++
	if c.ID == "" {
		c.ID = fmt.Sprintf("capsule-%d", f.nextID)
	}
	f.capsules[c.ID] = &c
	return &c
}

func (f *fakeCapsuleRepo) Create(_ context.Context, c *model.Capsule) error {
	if f.err != nil {
		return f.err
	}
	f.nextID++
	c.ID = fmt.Sprintf("capsule-%d", f.nextID)
	c.Notified = false
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	stored := *c
	f.capsules[c.ID] = &stored
	return nil
}

func (f *fakeCapsuleRepo) GetByID(_ context.Context, id string) (*model.Capsule, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.capsules[id]
	if !ok {
		return nil, apperror.NotFoundWithID("capsule", id)
	}
	result := *c
	return &result, nil
}

func (f *fakeCapsuleRepo) ListByOwner(_ context.Context, userID string) ([]model.Capsule, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Capsule{}
	for _, c := range f.capsules {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCapsuleRepo) ListUnlockedByOwner(_ context.Context, userID string, at time.Time) ([]model.Capsule, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Capsule{}
	for _, c := range f.capsules {
		if c.UserID == userID && !c.UnlockDate.After(at) {
			out = append(out, *c)
		}
	}
	// Simulate a concurrent delete landing between the query and the updates.
	if f.deleteAfter != "" {
		delete(f.capsules, f.deleteAfter)
	}
	return out, nil
}

func (f *fakeCapsuleRepo) MarkNotified(_ context.Context, id string) (time.Time, error) {
	f.markCalls++
	if f.err != nil {
		return time.Time{}, f.err
	}
	if f.markErr != nil {
		return time.Time{}, f.markErr
	}
	c, ok := f.capsules[id]
	if !ok {
		return time.Time{}, apperror.NotFoundWithID("capsule", id)
	}
	c.Notified = true
	c.UpdatedAt = time.Now().UTC()
	return c.UpdatedAt, nil
}

func (f *fakeCapsuleRepo) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.capsules[id]; !ok {
		return apperror.NotFoundWithID("capsule", id)
	}
	delete(f.capsules, id)
	return nil
}

// testLogger only prints errors, to keep test output readable.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
