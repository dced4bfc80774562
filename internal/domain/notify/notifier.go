// Package notify describes best-effort messages sent after successful transitions.
package notify

import (
	"context"

	"tutorflow/internal/domain/staff"

	"github.com/google/uuid"
)

// Topic identifies what happened.
type Topic string

const (
	TopicLeadAnnounced         Topic = "LEAD_ANNOUNCED"
	TopicDemoScheduled         Topic = "DEMO_SCHEDULED"
	TopicDemoReassigned        Topic = "DEMO_REASSIGNED"
	TopicDemoCompleted         Topic = "DEMO_COMPLETED"
	TopicDemoApproved          Topic = "DEMO_APPROVED"
	TopicDemoRejected          Topic = "DEMO_REJECTED"
	TopicAttendanceSubmitted   Topic = "ATTENDANCE_SUBMITTED"
	TopicAttendanceApproved    Topic = "ATTENDANCE_APPROVED"
	TopicAttendanceRejected    Topic = "ATTENDANCE_REJECTED"
	TopicApprovalReminder      Topic = "APPROVAL_REMINDER"
	TopicPaymentOverdue        Topic = "PAYMENT_OVERDUE"
	TopicCoordinatorAssigned   Topic = "COORDINATOR_ASSIGNED"
	TopicParentAssigned        Topic = "PARENT_ASSIGNED"
	TopicLeadManagerReassigned Topic = "LEAD_MANAGER_REASSIGNED"
)

// Event is one notification. Recipients are member ids; Roles broadcasts to
// every active member holding one of the roles.
type Event struct {
	Topic        Topic
	Recipients   []uuid.UUID
	Roles        []staff.Role
	Text         string
	AttendanceID uuid.NullUUID // lets chat transports attach approval buttons
}

// Notifier delivers events. Failures must never undo the transition that
// produced the event; callers only log them.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}
