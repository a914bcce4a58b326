// Package models provides data model definitions for the photo wall core.
package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// UUID is a wrapper around string for UUID v4 type safety.
type UUID string

// Value implements driver.Valuer for UUID.
func (u UUID) Value() (driver.Value, error) {
	return string(u), nil
}

// Scan implements sql.Scanner for UUID.
func (u *UUID) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*u = ""
	case string:
		*u = UUID(v)
	case []byte:
		*u = UUID(v)
	default:
		return fmt.Errorf("cannot scan %T into UUID", value)
	}
	return nil
}

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// LifecycleState represents the development stage of a photo.
type LifecycleState string

const (
	StateCapturing  LifecycleState = "capturing"
	StateEjecting   LifecycleState = "ejecting"
	StateDeveloping LifecycleState = "developing"
	StateDeveloped  LifecycleState = "developed"
)

// MaxProgress is the development progress value at which a photo is
// considered fully developed.
const MaxProgress = 100

// Photo represents one captured, developing, or developed print.
type Photo struct {
	ID       UUID   `db:"id" json:"id"`
	Image    []byte `db:"image" json:"-"` // JPEG payload, immutable after capture
	Caption  string `db:"caption" json:"caption"`
	// Timestamp is formatted once at creation and never changes.
	Timestamp string  `db:"timestamp" json:"timestamp"`
	X         float64 `db:"x" json:"x"`
	Y         float64 `db:"y" json:"y"`
	// Rotation is a small random tilt in degrees, drawn once at creation.
	Rotation float64        `db:"rotation" json:"rotation"`
	State    LifecycleState `db:"state" json:"state"`
	ZIndex   int            `db:"z_index" json:"z_index"`
	// CaptionGeneration is the monotonic counter used to discard stale
	// caption responses. Internal; see the caption controller.
	CaptionGeneration int64 `db:"caption_generation" json:"-"`
	Progress          int   `db:"progress" json:"progress"`
	CreatedAt         int64 `db:"created_at" json:"created_at"`
}

// TableName returns the table name for Photo.
func (Photo) TableName() string {
	return "photos"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (p *Photo) CreatedAtTime() time.Time {
	return time.Unix(p.CreatedAt, 0)
}

// Developed reports whether the photo has finished developing.
func (p *Photo) Developed() bool {
	return p.State == StateDeveloped
}

// FormatTimestamp renders a capture time the way prints are labeled.
func FormatTimestamp(t time.Time) string {
	return t.Format("Jan 2, 2006 3:04 PM")
}
