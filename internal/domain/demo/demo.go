// Package demo models the per-attempt trial session of a lead.
package demo

import (
	"database/sql"
	"strings"
	"time"

	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

// Status is the state of one demo attempt.
type Status string

const (
	StatusScheduled  Status = "SCHEDULED"
	StatusCompleted  Status = "COMPLETED"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusReassigned Status = "REASSIGNED"
)

// Transitions is the per-attempt demo machine. REASSIGNED is only reached
// through reassignment, which also opens a fresh attempt.
var Transitions = workflow.Table[Status]{
	StatusScheduled: {StatusCompleted: true, StatusReassigned: true},
	StatusCompleted: {StatusApproved: true, StatusRejected: true},
}

// Active reports whether the attempt still blocks a new demo for its lead.
func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusCompleted
}

// AttendanceStatus is whether the student showed up for the demo.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
)

// History is one demo attempt for a lead.
type History struct {
	ID            uuid.UUID
	LeadID        uuid.UUID
	TutorID       uuid.UUID
	ScheduledDate time.Time
	ScheduledTime string
	Notes         string
	Status        Status

	Attendance   AttendanceStatus
	TopicCovered string
	Duration     string
	Feedback     string

	CoordinatorID   uuid.NullUUID
	RejectionReason string
	ReassignedTo    uuid.NullUUID // the attempt that replaced this one

	CompletedAt sql.NullTime
	ResolvedAt  sql.NullTime
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Outcome is what the tutor reports after running the demo.
type Outcome struct {
	Attendance   AttendanceStatus
	TopicCovered string
	Duration     string
	Feedback     string
}

// Validate enforces the fields a completion must carry.
func (o Outcome) Validate() error {
	switch o.Attendance {
	case AttendancePresent:
		if strings.TrimSpace(o.TopicCovered) == "" {
			return workflow.Invalid("topic_covered", "is required when the student was present")
		}
		if strings.TrimSpace(o.Duration) == "" {
			return workflow.Invalid("duration", "is required when the student was present")
		}
	case AttendanceAbsent:
	case "":
		return workflow.Invalid("attendance_status", "is required")
	default:
		return workflow.Invalid("attendance_status", "must be PRESENT or ABSENT")
	}
	if strings.TrimSpace(o.Feedback) == "" {
		return workflow.Invalid("feedback", "is required")
	}
	return nil
}

func (h *History) transition(next Status, at time.Time) error {
	if err := Transitions.Check("demo", h.ID, h.Status, next); err != nil {
		return err
	}
	h.Status = next
	h.UpdatedAt = at
	return nil
}

// Complete records the outcome of a SCHEDULED demo.
func (h *History) Complete(o Outcome, at time.Time) error {
	if err := Transitions.Check("demo", h.ID, h.Status, StatusCompleted); err != nil {
		return err
	}
	if err := o.Validate(); err != nil {
		return err
	}
	h.Attendance = o.Attendance
	h.TopicCovered = strings.TrimSpace(o.TopicCovered)
	h.Duration = strings.TrimSpace(o.Duration)
	h.Feedback = strings.TrimSpace(o.Feedback)
	h.CompletedAt = sql.NullTime{Time: at, Valid: true}
	return h.transition(StatusCompleted, at)
}

// Approve binds the coordinator who will own the resulting class.
func (h *History) Approve(coordinatorID uuid.UUID, at time.Time) error {
	if err := Transitions.Check("demo", h.ID, h.Status, StatusApproved); err != nil {
		return err
	}
	if coordinatorID == uuid.Nil {
		return workflow.ErrCoordinatorRequired
	}
	h.CoordinatorID = uuid.NullUUID{UUID: coordinatorID, Valid: true}
	h.ResolvedAt = sql.NullTime{Time: at, Valid: true}
	return h.transition(StatusApproved, at)
}

// Reject closes a COMPLETED demo; the reason is optional.
func (h *History) Reject(reason string, at time.Time) error {
	if err := h.transition(StatusRejected, at); err != nil {
		return err
	}
	h.RejectionReason = strings.TrimSpace(reason)
	h.ResolvedAt = sql.NullTime{Time: at, Valid: true}
	return nil
}

// Reassign closes a SCHEDULED demo in favour of the attempt replacement.
func (h *History) Reassign(replacement uuid.UUID, at time.Time) error {
	if err := h.transition(StatusReassigned, at); err != nil {
		return err
	}
	h.ReassignedTo = uuid.NullUUID{UUID: replacement, Valid: true}
	h.ResolvedAt = sql.NullTime{Time: at, Valid: true}
	return nil
}
