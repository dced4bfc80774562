// Package class models the recurring FinalClass created when a demo is approved.
package class

import (
	"time"

	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a FinalClass.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Transitions lists the legal class status changes.
var Transitions = workflow.Table[Status]{
	StatusActive: {StatusPaused: true, StatusCompleted: true, StatusCancelled: true},
	StatusPaused: {StatusActive: true, StatusCompleted: true, StatusCancelled: true},
}

// ParseStatus validates a class status string.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusActive, StatusPaused, StatusCompleted, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

// FinalClass is the ongoing class bound to one tutor and one coordinator.
type FinalClass struct {
	ID                uuid.UUID
	LeadID            uuid.UUID
	DemoID            uuid.UUID
	TutorID           uuid.UUID
	CoordinatorID     uuid.UUID
	ParentID          uuid.NullUUID
	Subjects          []string
	Grade             string
	Schedule          Schedule
	CompletedSessions int
	TotalSessions     int
	Status            Status
	Version           int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
