// Package attendance models per-session records of a FinalClass and their
// coordinator-then-parent approval chain.
package attendance

import (
	"database/sql"
	"strings"
	"time"

	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

// Status is the approval state of one session record.
type Status string

const (
	StatusPending             Status = "PENDING"
	StatusCoordinatorApproved Status = "COORDINATOR_APPROVED"
	StatusParentApproved      Status = "PARENT_APPROVED"
	StatusRejected            Status = "REJECTED"
)

// Transitions is the dual-approval machine. PARENT_APPROVED and REJECTED are terminal.
var Transitions = workflow.Table[Status]{
	StatusPending:             {StatusCoordinatorApproved: true, StatusRejected: true},
	StatusCoordinatorApproved: {StatusParentApproved: true, StatusRejected: true},
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusParentApproved || s == StatusRejected
}

// Mark is the student's presence for a session.
type Mark string

const (
	MarkPresent Mark = "PRESENT"
	MarkAbsent  Mark = "ABSENT"
	MarkLate    Mark = "LATE"
)

// ParseMark validates a student attendance mark.
func ParseMark(s string) (Mark, bool) {
	switch m := Mark(strings.ToUpper(strings.TrimSpace(s))); m {
	case MarkPresent, MarkAbsent, MarkLate:
		return m, true
	}
	return "", false
}

// Attendance is one session of a FinalClass. At most one exists per class and date.
type Attendance struct {
	ID            uuid.UUID
	FinalClassID  uuid.UUID
	SessionDate   time.Time
	SessionNumber int
	TopicCovered  string
	Notes         string
	StudentMark   Mark
	Status        Status

	SubmittedBy   uuid.UUID
	SubmittedAt   time.Time
	CoordinatorID uuid.NullUUID
	CoordinatorAt sql.NullTime
	ParentID      uuid.NullUUID
	ParentAt      sql.NullTime
	RejectedBy    uuid.NullUUID
	RejectedAt    sql.NullTime
	RejectReason  string

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *Attendance) transition(next Status, at time.Time) error {
	if err := Transitions.Check("attendance", a.ID, a.Status, next); err != nil {
		return err
	}
	a.Status = next
	a.UpdatedAt = at
	return nil
}

// CoordinatorApprove is the first gate. It returns changed=false when the
// record already passed this gate.
func (a *Attendance) CoordinatorApprove(coordinator uuid.UUID, at time.Time) (changed bool, err error) {
	if a.Status == StatusCoordinatorApproved {
		return false, nil
	}
	if err := a.transition(StatusCoordinatorApproved, at); err != nil {
		return false, err
	}
	a.CoordinatorID = uuid.NullUUID{UUID: coordinator, Valid: true}
	a.CoordinatorAt = sql.NullTime{Time: at, Valid: true}
	return true, nil
}

// ParentApprove is the second gate and cannot precede the coordinator's.
func (a *Attendance) ParentApprove(parent uuid.UUID, at time.Time) error {
	if a.Status == StatusPending {
		return workflow.ErrCoordinatorApprovalRequired
	}
	if err := a.transition(StatusParentApproved, at); err != nil {
		return err
	}
	a.ParentID = uuid.NullUUID{UUID: parent, Valid: true}
	a.ParentAt = sql.NullTime{Time: at, Valid: true}
	return nil
}

// Reject closes the record with a mandatory reason.
func (a *Attendance) Reject(by uuid.UUID, reason string, at time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return workflow.Invalid("reason", "is required to reject attendance")
	}
	if err := a.transition(StatusRejected, at); err != nil {
		return err
	}
	a.RejectedBy = uuid.NullUUID{UUID: by, Valid: true}
	a.RejectedAt = sql.NullTime{Time: at, Valid: true}
	a.RejectReason = reason
	return nil
}
