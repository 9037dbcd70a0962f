// internal/domain/liveclass/entity.go
package liveclass

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

// ParseStatus normalizes the status strings the LMS API reports.
// Unknown values are treated as scheduled.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "live", "ongoing", "in_progress", "started":
		return StatusLive
	case "completed", "ended", "finished":
		return StatusCompleted
	case "expired", "cancelled", "canceled":
		return StatusExpired
	default:
		return StatusScheduled
	}
}

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

type Platform string

const (
	PlatformZoom     Platform = "zoom"
	PlatformMeritHub Platform = "merithub"
)

type LiveClass struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	UserID         string    `json:"user_id,omitempty"`
	CourseIDs      []string  `json:"course_ids"`
	StartTime      time.Time `json:"start_time"`
	Platform       Platform  `json:"platform"`
	Status         Status    `json:"status"`
	JoinURL        string    `json:"join_url,omitempty"`
	InstructorLink string    `json:"instructor_link,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// SnapshotSource records what produced a snapshot.
type SnapshotSource string

const (
	SourceLocal      SnapshotSource = "local"
	SourcePoll       SnapshotSource = "poll"
	SourceOptimistic SnapshotSource = "optimistic"
)

// Snapshot is the client-side mirror of the server's view of a class.
type Snapshot struct {
	ClassID   string         `json:"class_id"`
	Status    Status         `json:"status"`
	CanDelete bool           `json:"can_delete"`
	CanEdit   bool           `json:"can_edit"`
	Message   string         `json:"message,omitempty"`
	Source    SnapshotSource `json:"source"`
	CheckedAt time.Time      `json:"checked_at"`
}

// Deletable is true only when the server allowed it and the class is not live.
func (s Snapshot) Deletable() bool {
	return s.CanDelete && s.Status != StatusLive
}

// Editable is true only when the server allowed it and the class is not live.
func (s Snapshot) Editable() bool {
	return s.CanEdit && s.Status != StatusLive
}

// Optimistic reports whether the snapshot still awaits server confirmation.
func (s Snapshot) Optimistic() bool {
	return s.Source == SourceOptimistic
}

// Card pairs a class with its current snapshot for the dashboard.
type Card struct {
	Class    LiveClass `json:"class"`
	Snapshot Snapshot  `json:"snapshot"`
}

// StatusTransition is a persisted status change of a watched class.
type StatusTransition struct {
	ID         int64          `json:"id" db:"id"`
	ClassID    string         `json:"class_id" db:"class_id"`
	CourseIDs  pq.StringArray `json:"course_ids" db:"course_ids"`
	FromStatus Status         `json:"from_status" db:"from_status"`
	ToStatus   Status         `json:"to_status" db:"to_status"`
	Source     SnapshotSource `json:"source" db:"source"`
	Message    string         `json:"message,omitempty" db:"message"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}
