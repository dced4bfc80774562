package app

import (
	"context"
	"errors"
	"time"

	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/demo"
	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/store"
	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

var errNoSessionCount = errors.New("lead has neither classes per month nor preferred days to derive a session count")

// ClassProvisioner creates the FinalClass of an approved demo. It only runs
// inside the unit of work that approves the demo.
type ClassProvisioner struct{}

// Provision creates an ACTIVE class for l taught by the demo's tutor. A nil
// schedule falls back to the lead's preferred days and time. Every failure is
// returned as a *workflow.ProvisioningError.
func (ClassProvisioner) Provision(ctx context.Context, uow store.UnitOfWork, l *lead.ClassLead, d *demo.History, coordinatorID uuid.UUID, schedule *class.Schedule, now time.Time) (*class.FinalClass, error) {
	fail := func(cause error) error { return &workflow.ProvisioningError{LeadID: l.ID, Cause: cause} }

	sched := class.Schedule{DaysOfWeek: l.PreferredDays, TimeSlot: l.PreferredTime}
	if schedule != nil {
		sched = *schedule
	}
	if sched.TimeSlot == "" {
		sched.TimeSlot = d.ScheduledTime
	}

	total := l.ClassesPerMonth
	if total == 0 {
		total = 4 * len(sched.DaysOfWeek)
	}
	if total == 0 {
		return nil, fail(errNoSessionCount)
	}

	if _, err := uow.Classes().GetByLeadID(ctx, l.ID); err == nil {
		return nil, fail(class.ErrClassExistsForLead)
	} else if !errors.Is(err, class.ErrClassNotFound) {
		return nil, fail(err)
	}

	fc := &class.FinalClass{
		ID:            uuid.New(),
		LeadID:        l.ID,
		DemoID:        d.ID,
		TutorID:       d.TutorID,
		CoordinatorID: coordinatorID,
		ParentID:      l.ParentID,
		Subjects:      append([]string(nil), l.Subjects...),
		Grade:         l.Grade,
		Schedule:      sched,
		TotalSessions: total,
		Status:        class.StatusActive,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uow.Classes().Create(ctx, fc); err != nil {
		return nil, fail(err)
	}
	return fc, nil
}
