package model

import (
	"encoding/base64"
	"time"
)

// Image is an uploaded picture stored inline with its capsule.
// ContentType was checked to start with "image/" when the capsule was created;
// nothing downstream re-validates it.
type Image struct {
	Data        []byte
	ContentType string
}

// Capsule is a sealed message that becomes readable at UnlockDate.
//
// LockedDate is supplied by the client when sealing, it is not the server's
// "now". CreatedAt/UpdatedAt are the server-managed audit timestamps.
//
// Notified goes false → true exactly once, the first time the capsule shows up
// in the owner's unlocked listing.
type Capsule struct {
	ID         string
	UserID     string
	Message    string
	UnlockDate time.Time
	LockedDate time.Time
	Image      *Image // nil when no image was uploaded
	Notified   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsUnlocked reports whether the capsule is readable at the given instant.
// The boundary is inclusive: a capsule whose UnlockDate equals now is unlocked.
func (c *Capsule) IsUnlocked(now time.Time) bool {
	return !now.Before(c.UnlockDate)
}

// CapsuleView is the transport shape of a Capsule.
//
// The raw image bytes never cross the API boundary. Image is either null or a
// data URI ("data:image/png;base64,....") that a browser can drop straight into
// an <img src>.
type CapsuleView struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user"`
	Message    string    `json:"message"`
	UnlockDate time.Time `json:"unlockDate"`
	LockedDate time.Time `json:"lockedDate"`
	Image      *string   `json:"image"`
	Notified   bool      `json:"notified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// View converts the capsule to its transport shape.
func (c *Capsule) View() CapsuleView {
	return CapsuleView{
		ID:         c.ID,
		UserID:     c.UserID,
		Message:    c.Message,
		UnlockDate: c.UnlockDate,
		LockedDate: c.LockedDate,
		Image:      c.imageDataURI(),
		Notified:   c.Notified,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func (c *Capsule) imageDataURI() *string {
	if c.Image == nil || len(c.Image.Data) == 0 {
		return nil
	}
	uri := "data:" + c.Image.ContentType + ";base64," + base64.StdEncoding.EncodeToString(c.Image.Data)
	return &uri
}
