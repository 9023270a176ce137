package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestIsUnlocked(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		unlock time.Time
		want   bool
	}{
		{"unlock date in the past", now.Add(-24 * time.Hour), true},
		{"unlock date exactly now", now, true},
		{"unlock date one nanosecond ahead", now.Add(time.Nanosecond), false},
		{"unlock date next year", now.AddDate(1, 0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Capsule{UnlockDate: tt.unlock}
			if got := c.IsUnlocked(now); got != tt.want {
				t.Errorf("IsUnlocked() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestView_NoImage(t *testing.T) {
	c := &Capsule{ID: "c1", UserID: "u1", Message: "hello"}

	v := c.View()
	if v.Image != nil {
		t.Errorf("Image = %q, want nil", *v.Image)
	}

	// null must be explicit in JSON, not omitted
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	img, ok := raw["image"]
	if !ok {
		t.Fatal(`"image" key missing from JSON`)
	}
	if img != nil {
		t.Errorf(`"image" = %v, want null`, img)
	}
}

func TestView_ImageBecomesDataURI(t *testing.T) {
	c := &Capsule{
		ID:    "c1",
		Image: &Image{Data: []byte("image1"), ContentType: "image/jpeg"},
	}

	v := c.View()
	if v.Image == nil {
		t.Fatal("Image = nil, want data URI")
	}
	// base64("image1") == "aW1hZ2Ux"
	want := "data:image/jpeg;base64,aW1hZ2Ux"
	if *v.Image != want {
		t.Errorf("Image = %q, want %q", *v.Image, want)
	}
}

func TestView_EmptyImageDataIsNull(t *testing.T) {
	c := &Capsule{Image: &Image{ContentType: "image/png"}}
	if v := c.View(); v.Image != nil {
		t.Errorf("Image = %q, want nil for zero-length data", *v.Image)
	}
}
