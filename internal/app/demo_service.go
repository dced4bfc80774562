package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/demo"
	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/notify"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/store"
	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DemoService runs the demo attempts of a lead and the lead transitions their
// outcomes drive.
type DemoService struct {
	base
	provisioner ClassProvisioner
}

func NewDemoService(d Deps) *DemoService {
	return &DemoService{base: newBase(d, "demo_service")}
}

// ReassignDemoInput moves a SCHEDULED demo to another tutor and slot.
type ReassignDemoInput struct {
	DemoID  uuid.UUID
	TutorID uuid.UUID
	Date    time.Time
	Time    string
	Notes   string
}

// ReassignDemo closes the scheduled attempt as REASSIGNED and opens a new one.
// The lead stays DEMO_SCHEDULED.
func (s *DemoService) ReassignDemo(ctx context.Context, actorID uuid.UUID, in ReassignDemoInput) (*demo.History, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager); err != nil {
		return nil, err
	}
	tutor, err := s.requireMember(ctx, "tutor_id", in.TutorID, staff.RoleTutor)
	if err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		return nil, workflow.Invalid("date", "is required")
	}
	if strings.TrimSpace(in.Time) == "" {
		return nil, workflow.Invalid("time", "is required")
	}

	now := s.now()
	var old, next *demo.History
	err = s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		old, err = uow.Demos().GetByID(ctx, in.DemoID)
		if err != nil {
			return err
		}
		next = &demo.History{
			ID:            uuid.New(),
			LeadID:        old.LeadID,
			TutorID:       tutor.ID,
			ScheduledDate: class.DateOnly(in.Date),
			ScheduledTime: strings.TrimSpace(in.Time),
			Notes:         strings.TrimSpace(in.Notes),
			Status:        demo.StatusScheduled,
			Version:       1,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := old.Reassign(next.ID, now); err != nil {
			return err
		}
		if old.TutorID == tutor.ID {
			return workflow.Invalid("tutor_id", "must differ from the currently assigned tutor")
		}
		if err := uow.Demos().Update(ctx, old); err != nil {
			return err
		}
		return uow.Demos().Create(ctx, next)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reassign demo: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"lead_id":     next.LeadID,
		"old_demo_id": old.ID,
		"demo_id":     next.ID,
		"tutor_id":    tutor.ID,
	}).Info("Demo reassigned")
	s.send(ctx, notify.Event{
		Topic:      notify.TopicDemoReassigned,
		Recipients: recipients(old.TutorID),
		Text:       fmt.Sprintf("Your demo on %s at %s was reassigned to another tutor.", class.FormatDate(old.ScheduledDate), old.ScheduledTime),
	})
	s.send(ctx, notify.Event{
		Topic:      notify.TopicDemoScheduled,
		Recipients: recipients(tutor.ID),
		Text:       fmt.Sprintf("You have a demo on %s at %s.", class.FormatDate(next.ScheduledDate), next.ScheduledTime),
	})
	return next, nil
}

// CompleteDemo records the tutor's outcome and moves the lead to DEMO_COMPLETED.
// Tutors may only complete their own demos.
func (s *DemoService) CompleteDemo(ctx context.Context, actorID, demoID uuid.UUID, outcome demo.Outcome) (*demo.History, *lead.ClassLead, error) {
	actor, err := s.access.Require(ctx, actorID, staff.RoleTutor, staff.RoleManager)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	var (
		h *demo.History
		l *lead.ClassLead
	)
	err = s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		h, err = uow.Demos().GetByID(ctx, demoID)
		if err != nil {
			return err
		}
		if actor.Role == staff.RoleTutor && h.TutorID != actor.ID {
			return fmt.Errorf("demo %s is assigned to another tutor: %w", h.ID, workflow.ErrForbidden)
		}
		if err := h.Complete(outcome, now); err != nil {
			return err
		}
		l, err = uow.Leads().GetByID(ctx, h.LeadID)
		if err != nil {
			return err
		}
		if err := l.Transition(lead.StatusDemoCompleted, now); err != nil {
			return err
		}
		if err := uow.Demos().Update(ctx, h); err != nil {
			return err
		}
		return uow.Leads().Update(ctx, l)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to complete demo: %w", err)
	}

	s.log.WithFields(logrus.Fields{"lead_id": l.ID, "demo_id": h.ID, "attendance": h.Attendance}).Info("Demo completed")
	s.send(ctx, notify.Event{
		Topic:      notify.TopicDemoCompleted,
		Recipients: recipients(l.ManagerID()),
		Text:       fmt.Sprintf("Demo for grade %s %s completed (student %s). Review and approve or reject.", l.Grade, strings.Join(l.Subjects, ", "), h.Attendance),
	})
	return h, l, nil
}

// ApproveDemoInput approves a completed demo. Schedule overrides the lead's
// preferred days and time for the new class.
type ApproveDemoInput struct {
	DemoID        uuid.UUID
	CoordinatorID uuid.UUID
	Schedule      *class.Schedule
}

// Approval is the outcome of ApproveDemo.
type Approval struct {
	Lead  *lead.ClassLead
	Demo  *demo.History
	Class *class.FinalClass
}

// ApproveDemo approves the demo, provisions its class and converts the lead in
// one unit of work. If provisioning fails nothing is written.
func (s *DemoService) ApproveDemo(ctx context.Context, actorID uuid.UUID, in ApproveDemoInput) (*Approval, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager); err != nil {
		return nil, err
	}
	if in.CoordinatorID != uuid.Nil {
		if _, err := s.requireMember(ctx, "coordinator_id", in.CoordinatorID, staff.RoleCoordinator); err != nil {
			return nil, err
		}
	}

	now := s.now()
	res := &Approval{}
	err := s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		h, err := uow.Demos().GetByID(ctx, in.DemoID)
		if err != nil {
			return err
		}
		if err := h.Approve(in.CoordinatorID, now); err != nil {
			return err
		}
		l, err := uow.Leads().GetByID(ctx, h.LeadID)
		if err != nil {
			return err
		}
		if err := lead.Transitions.Check("class lead", l.ID, l.Status, lead.StatusConverted); err != nil {
			return err
		}

		fc, err := s.provisioner.Provision(ctx, uow, l, h, in.CoordinatorID, in.Schedule, now)
		if err != nil {
			return err
		}

		if err := l.Transition(lead.StatusConverted, now); err != nil {
			return err
		}
		l.ConvertedAt = sql.NullTime{Time: now, Valid: true}
		if err := closeActiveAnnouncement(ctx, uow, l.ID, now); err != nil {
			return err
		}
		if err := uow.Demos().Update(ctx, h); err != nil {
			return err
		}
		if err := uow.Leads().Update(ctx, l); err != nil {
			return err
		}
		res.Lead, res.Demo, res.Class = l, h, fc
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to approve demo: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"lead_id":        res.Lead.ID,
		"demo_id":        res.Demo.ID,
		"class_id":       res.Class.ID,
		"coordinator_id": in.CoordinatorID,
	}).Info("Demo approved, class provisioned")
	s.send(ctx, notify.Event{
		Topic:      notify.TopicDemoApproved,
		Recipients: recipients(res.Class.TutorID),
		Text:       fmt.Sprintf("Your demo was approved. Class for grade %s %s starts with %d sessions.", res.Class.Grade, strings.Join(res.Class.Subjects, ", "), res.Class.TotalSessions),
	})
	s.send(ctx, notify.Event{
		Topic:      notify.TopicCoordinatorAssigned,
		Recipients: recipients(res.Class.CoordinatorID),
		Text:       fmt.Sprintf("You coordinate the new class for grade %s %s.", res.Class.Grade, strings.Join(res.Class.Subjects, ", ")),
	})
	return res, nil
}

func closeActiveAnnouncement(ctx context.Context, uow store.UnitOfWork, leadID uuid.UUID, at time.Time) error {
	ann, err := uow.Leads().GetActiveAnnouncement(ctx, leadID)
	if err != nil {
		if errors.Is(err, lead.ErrAnnouncementNotFound) {
			return nil
		}
		return err
	}
	return uow.Leads().CloseAnnouncement(ctx, ann.ID, at)
}

// RejectDemo rejects a completed demo; the lead becomes REJECTED and keeps the
// reason until it is reposted.
func (s *DemoService) RejectDemo(ctx context.Context, actorID, demoID uuid.UUID, reason string) (*demo.History, *lead.ClassLead, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager); err != nil {
		return nil, nil, err
	}
	now := s.now()
	var (
		h *demo.History
		l *lead.ClassLead
	)
	err := s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		h, err = uow.Demos().GetByID(ctx, demoID)
		if err != nil {
			return err
		}
		if err := h.Reject(reason, now); err != nil {
			return err
		}
		l, err = uow.Leads().GetByID(ctx, h.LeadID)
		if err != nil {
			return err
		}
		if err := l.Transition(lead.StatusRejected, now); err != nil {
			return err
		}
		l.RejectionReason = h.RejectionReason
		if err := uow.Demos().Update(ctx, h); err != nil {
			return err
		}
		return uow.Leads().Update(ctx, l)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reject demo: %w", err)
	}

	s.log.WithFields(logrus.Fields{"lead_id": l.ID, "demo_id": h.ID, "reason": h.RejectionReason}).Info("Demo rejected")
	text := "Your demo was not approved."
	if h.RejectionReason != "" {
		text = fmt.Sprintf("Your demo was not approved: %s", h.RejectionReason)
	}
	s.send(ctx, notify.Event{Topic: notify.TopicDemoRejected, Recipients: recipients(h.TutorID), Text: text})
	return h, l, nil
}

// ListDemos returns every attempt for a lead, oldest first.
func (s *DemoService) ListDemos(ctx context.Context, actorID, leadID uuid.UUID) ([]*demo.History, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager, staff.RoleCoordinator); err != nil {
		return nil, err
	}
	var out []*demo.History
	err := s.tx.View(ctx, func(uow store.UnitOfWork) error {
		if _, err := uow.Leads().GetByID(ctx, leadID); err != nil {
			return err
		}
		var err error
		out, err = uow.Demos().ListByLead(ctx, leadID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list demos: %w", err)
	}
	return out, nil
}
