package models

import (
	"time"

	"gorm.io/datatypes"
)

type ProctoringEventType string

const (
	EventTabSwitch        ProctoringEventType = "tab-switch"
	EventFullscreenExit   ProctoringEventType = "fullscreen-exit"
	EventFaceLost         ProctoringEventType = "face-lost"
	EventMultipleFaces    ProctoringEventType = "multiple-faces"
	EventCopyPasteAttempt ProctoringEventType = "copy-paste-attempt"
	EventWebcamSnapshot   ProctoringEventType = "webcam-snapshot"
	EventFaceDetected     ProctoringEventType = "face-detected"
	EventAdminFlag        ProctoringEventType = "admin-flag"
)

var ProctoringEventTypes = []ProctoringEventType{
	EventTabSwitch,
	EventFullscreenExit,
	EventFaceLost,
	EventMultipleFaces,
	EventCopyPasteAttempt,
	EventWebcamSnapshot,
	EventFaceDetected,
	EventAdminFlag,
}

func (t ProctoringEventType) IsValid() bool {
	for _, known := range ProctoringEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) IsValid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityCritical
}

// Weight is the contribution of one event of this severity to the suspicion score.
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 1.0
	case SeverityWarning:
		return 0.5
	case SeverityInfo:
		return 0.1
	default:
		return 0
	}
}

// CountsAsWarning reports whether the event increments the attempt's warnings counter.
func (s Severity) CountsAsWarning() bool {
	return s == SeverityWarning || s == SeverityCritical
}

// ProctoringEvent is append-only: rows are never updated or deleted outside the attempt cascade.
type ProctoringEvent struct {
	ID        string              `json:"id" gorm:"primaryKey;size:36"`
	AttemptID string              `json:"attempt_id" gorm:"not null;index;size:36"`
	UserID    string              `json:"user_id" gorm:"not null;size:255"`
	EventType ProctoringEventType `json:"event_type" gorm:"not null;size:100"`
	Severity  Severity            `json:"severity" gorm:"default:warning;size:20"`
	Timestamp time.Time           `json:"timestamp" gorm:"not null;index"`
	Meta      datatypes.JSONMap   `json:"meta"`

	CreatedAt time.Time `json:"created_at"`
}

func (ProctoringEvent) TableName() string {
	return "proctor_events"
}
