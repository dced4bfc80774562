// Package lead models a tutoring inquiry (ClassLead) and its announcements.
package lead

import (
	"database/sql"
	"time"

	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a ClassLead.
type Status string

const (
	StatusNew             Status = "NEW"
	StatusAnnounced       Status = "ANNOUNCED"
	StatusDemoScheduled   Status = "DEMO_SCHEDULED"
	StatusDemoCompleted   Status = "DEMO_COMPLETED"
	StatusConverted       Status = "CONVERTED"
	StatusPaymentReceived Status = "PAYMENT_RECEIVED"
	StatusRejected        Status = "REJECTED"
)

// Transitions is the ClassLead status machine. REJECTED is not terminal: a
// repost returns it to ANNOUNCED.
var Transitions = workflow.Table[Status]{
	StatusNew:           {StatusAnnounced: true},
	StatusRejected:      {StatusAnnounced: true},
	StatusAnnounced:     {StatusDemoScheduled: true},
	StatusDemoScheduled: {StatusDemoCompleted: true},
	StatusDemoCompleted: {StatusConverted: true, StatusRejected: true},
	StatusConverted:     {StatusPaymentReceived: true},
}

// AllStatuses in lifecycle order.
var AllStatuses = []Status{
	StatusNew, StatusAnnounced, StatusDemoScheduled, StatusDemoCompleted,
	StatusConverted, StatusPaymentReceived, StatusRejected,
}

// ParseStatus validates a lead status string.
func ParseStatus(s string) (Status, bool) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

type StudentType string

const (
	StudentSingle StudentType = "SINGLE"
	StudentGroup  StudentType = "GROUP"
)

type TeachingMode string

const (
	ModeOnline  TeachingMode = "ONLINE"
	ModeOffline TeachingMode = "OFFLINE"
	ModeHybrid  TeachingMode = "HYBRID"
)

// RequiresLocation reports whether the mode needs an address.
func (m TeachingMode) RequiresLocation() bool {
	return m == ModeOffline || m == ModeHybrid
}

// Student is one named member of a group lead with its own amounts.
type Student struct {
	Name     string `json:"name"`
	Gender   string `json:"gender"`
	Fee      int64  `json:"fee"`
	TutorFee int64  `json:"tutor_fee"`
}

// Location is only set for OFFLINE and HYBRID leads.
type Location struct {
	Address string
	City    string
	Area    string
}

// ClassLead is one inquiry, pre-conversion.
type ClassLead struct {
	ID            uuid.UUID
	StudentType   StudentType
	StudentName   string // SINGLE only
	StudentGender string // SINGLE only
	Students      []Student
	Grade         string
	Board         string
	Subjects      []string
	Mode          TeachingMode
	Location      Location

	Fee      int64 // SINGLE only; groups aggregate Students
	TutorFee int64

	ClassesPerMonth int
	PreferredDays   []class.Weekday
	PreferredTime   string
	ParentID        uuid.NullUUID

	CreatedBy       uuid.UUID
	ReassignedTo    uuid.NullUUID
	Status          Status
	RejectionReason string
	PaymentReceived bool
	ConvertedAt     sql.NullTime

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalFee is the lead's fee, summed over students for groups.
func (l *ClassLead) TotalFee() int64 {
	if l.StudentType != StudentGroup {
		return l.Fee
	}
	var total int64
	for _, s := range l.Students {
		total += s.Fee
	}
	return total
}

// TotalTutorFee is the tutor payout, summed over students for groups.
func (l *ClassLead) TotalTutorFee() int64 {
	if l.StudentType != StudentGroup {
		return l.TutorFee
	}
	var total int64
	for _, s := range l.Students {
		total += s.TutorFee
	}
	return total
}

// ManagerID is the manager currently responsible for the lead.
func (l *ClassLead) ManagerID() uuid.UUID {
	if l.ReassignedTo.Valid {
		return l.ReassignedTo.UUID
	}
	return l.CreatedBy
}

// Transition moves the lead to next if the status machine allows it.
func (l *ClassLead) Transition(next Status, at time.Time) error {
	if err := Transitions.Check("class lead", l.ID, l.Status, next); err != nil {
		return err
	}
	l.Status = next
	l.UpdatedAt = at
	return nil
}
