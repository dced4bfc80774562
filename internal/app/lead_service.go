package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/demo"
	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/notify"
	"tutorflow/internal/domain/payment"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/store"
	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// LeadService owns the ClassLead status machine up to the demo outcome.
type LeadService struct {
	base
	payments payment.Rule
}

func NewLeadService(d Deps, payments payment.Rule) *LeadService {
	return &LeadService{base: newBase(d, "lead_service"), payments: payments}
}

// CreateLead opens a NEW lead owned by the calling manager.
func (s *LeadService) CreateLead(ctx context.Context, actorID uuid.UUID, in lead.NewLeadInput) (*lead.ClassLead, error) {
	manager, err := s.access.Require(ctx, actorID, staff.RoleManager)
	if err != nil {
		return nil, err
	}
	if in.ParentID.Valid {
		if _, err := s.requireMember(ctx, "parent_id", in.ParentID.UUID, staff.RoleParent); err != nil {
			return nil, err
		}
	}
	l, err := in.Build(uuid.New(), manager.ID, s.now())
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		return uow.Leads().Create(ctx, l)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}
	s.log.WithFields(logrus.Fields{"lead_id": l.ID, "actor_id": actorID}).Info("Lead created")
	return l, nil
}

// PostLead announces a NEW or REJECTED lead to the tutor pool. A repost closes
// the previous announcement so interests start over.
func (s *LeadService) PostLead(ctx context.Context, actorID, leadID uuid.UUID) (*lead.ClassLead, *lead.Announcement, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager); err != nil {
		return nil, nil, err
	}
	now := s.now()
	var (
		l   *lead.ClassLead
		ann *lead.Announcement
	)
	err := s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		l, err = uow.Leads().GetByID(ctx, leadID)
		if err != nil {
			return err
		}
		if err := l.Transition(lead.StatusAnnounced, now); err != nil {
			return err
		}
		prev, err := uow.Leads().GetActiveAnnouncement(ctx, l.ID)
		switch {
		case err == nil:
			if err := uow.Leads().CloseAnnouncement(ctx, prev.ID, now); err != nil {
				return err
			}
		case !errors.Is(err, lead.ErrAnnouncementNotFound):
			return err
		}
		ann = &lead.Announcement{ID: uuid.New(), LeadID: l.ID, Active: true, CreatedAt: now}
		if err := uow.Leads().CreateAnnouncement(ctx, ann); err != nil {
			return err
		}
		l.RejectionReason = ""
		return uow.Leads().Update(ctx, l)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to post lead: %w", err)
	}

	s.log.WithFields(logrus.Fields{"lead_id": l.ID, "announcement_id": ann.ID}).Info("Lead announced")
	s.send(ctx, notify.Event{
		Topic: notify.TopicLeadAnnounced,
		Roles: []staff.Role{staff.RoleTutor},
		Text:  fmt.Sprintf("New class lead: grade %s, %s, %s. Reply with interest in the app.", l.Grade, strings.Join(l.Subjects, ", "), l.Mode),
	})
	return l, ann, nil
}

// SelectTutorInput schedules the first demo attempt of an announced lead.
type SelectTutorInput struct {
	LeadID       uuid.UUID
	TutorID      uuid.UUID
	Date         time.Time
	Time         string
	Notes        string
	DirectAssign bool // skip the interest requirement
}

// SelectTutorForDemo schedules a demo with a tutor who expressed interest, or
// with any tutor when DirectAssign is set.
func (s *LeadService) SelectTutorForDemo(ctx context.Context, actorID uuid.UUID, in SelectTutorInput) (*lead.ClassLead, *demo.History, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager); err != nil {
		return nil, nil, err
	}
	tutor, err := s.requireMember(ctx, "tutor_id", in.TutorID, staff.RoleTutor)
	if err != nil {
		return nil, nil, err
	}
	if in.Date.IsZero() {
		return nil, nil, workflow.Invalid("date", "is required")
	}
	if strings.TrimSpace(in.Time) == "" {
		return nil, nil, workflow.Invalid("time", "is required")
	}

	now := s.now()
	var (
		l *lead.ClassLead
		h *demo.History
	)
	err = s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		l, err = uow.Leads().GetByID(ctx, in.LeadID)
		if err != nil {
			return err
		}
		if err := requireNoActiveDemo(ctx, uow, l.ID); err != nil {
			return err
		}
		if err := lead.Transitions.Check("class lead", l.ID, l.Status, lead.StatusDemoScheduled); err != nil {
			return err
		}
		if !in.DirectAssign {
			ann, err := uow.Leads().GetActiveAnnouncement(ctx, l.ID)
			if err != nil {
				if errors.Is(err, lead.ErrAnnouncementNotFound) {
					return workflow.ErrInterestRequired
				}
				return err
			}
			if _, err := uow.Leads().GetInterest(ctx, ann.ID, tutor.ID); err != nil {
				if errors.Is(err, lead.ErrInterestNotFound) {
					return workflow.Violation(workflow.GuardInterestRequired, fmt.Sprintf("tutor %s has not expressed interest", tutor.ID))
				}
				return err
			}
		}

		h = &demo.History{
			ID:            uuid.New(),
			LeadID:        l.ID,
			TutorID:       tutor.ID,
			ScheduledDate: class.DateOnly(in.Date),
			ScheduledTime: strings.TrimSpace(in.Time),
			Notes:         strings.TrimSpace(in.Notes),
			Status:        demo.StatusScheduled,
			Version:       1,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := uow.Demos().Create(ctx, h); err != nil {
			return err
		}
		if err := l.Transition(lead.StatusDemoScheduled, now); err != nil {
			return err
		}
		return uow.Leads().Update(ctx, l)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to schedule demo: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"lead_id":       l.ID,
		"demo_id":       h.ID,
		"tutor_id":      tutor.ID,
		"direct_assign": in.DirectAssign,
	}).Info("Demo scheduled")
	s.send(ctx, notify.Event{
		Topic:      notify.TopicDemoScheduled,
		Recipients: recipients(tutor.ID),
		Text:       fmt.Sprintf("You have a demo for grade %s %s on %s at %s.", l.Grade, strings.Join(l.Subjects, ", "), class.FormatDate(h.ScheduledDate), h.ScheduledTime),
	})
	return l, h, nil
}

func requireNoActiveDemo(ctx context.Context, uow store.UnitOfWork, leadID uuid.UUID) error {
	active, err := uow.Demos().GetActiveByLead(ctx, leadID)
	if err == nil {
		return workflow.Violation(workflow.GuardDemoAlreadyActive, fmt.Sprintf("demo %s is %s", active.ID, active.Status))
	}
	if errors.Is(err, demo.ErrDemoNotFound) {
		return nil
	}
	return err
}

// MarkPaymentReceived closes a CONVERTED lead. Marking twice is a no-op.
func (s *LeadService) MarkPaymentReceived(ctx context.Context, actorID, leadID uuid.UUID) (*lead.ClassLead, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager); err != nil {
		return nil, err
	}
	var l *lead.ClassLead
	changed := false
	err := s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		l, err = uow.Leads().GetByID(ctx, leadID)
		if err != nil {
			return err
		}
		if l.Status == lead.StatusPaymentReceived {
			return nil
		}
		if err := l.Transition(lead.StatusPaymentReceived, s.now()); err != nil {
			return err
		}
		l.PaymentReceived = true
		changed = true
		return uow.Leads().Update(ctx, l)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark payment: %w", err)
	}
	if changed {
		s.log.WithFields(logrus.Fields{"lead_id": l.ID, "actor_id": actorID}).Info("Payment received")
	}
	return l, nil
}

// ReassignManager hands the lead to another manager without touching its status.
func (s *LeadService) ReassignManager(ctx context.Context, actorID, leadID, managerID uuid.UUID) (*lead.ClassLead, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager); err != nil {
		return nil, err
	}
	manager, err := s.requireMember(ctx, "manager_id", managerID, staff.RoleManager)
	if err != nil {
		return nil, err
	}
	var l *lead.ClassLead
	err = s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		l, err = uow.Leads().GetByID(ctx, leadID)
		if err != nil {
			return err
		}
		l.ReassignedTo = uuid.NullUUID{UUID: manager.ID, Valid: true}
		l.UpdatedAt = s.now()
		return uow.Leads().Update(ctx, l)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reassign manager: %w", err)
	}

	s.log.WithFields(logrus.Fields{"lead_id": l.ID, "manager_id": manager.ID}).Info("Lead manager reassigned")
	s.send(ctx, notify.Event{
		Topic:      notify.TopicLeadManagerReassigned,
		Recipients: recipients(manager.ID),
		Text:       fmt.Sprintf("Lead for grade %s %s is now yours (status %s).", l.Grade, strings.Join(l.Subjects, ", "), l.Status),
	})
	return l, nil
}

// GetLead returns one lead.
func (s *LeadService) GetLead(ctx context.Context, actorID, leadID uuid.UUID) (*lead.ClassLead, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager, staff.RoleCoordinator); err != nil {
		return nil, err
	}
	var l *lead.ClassLead
	err := s.tx.View(ctx, func(uow store.UnitOfWork) error {
		var err error
		l, err = uow.Leads().GetByID(ctx, leadID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return l, nil
}

// ListLeads returns leads in status, newest first. An empty status lists all.
func (s *LeadService) ListLeads(ctx context.Context, actorID uuid.UUID, status lead.Status) ([]*lead.ClassLead, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager, staff.RoleCoordinator); err != nil {
		return nil, err
	}
	var out []*lead.ClassLead
	err := s.tx.View(ctx, func(uow store.UnitOfWork) error {
		var err error
		out, err = uow.Leads().ListByStatus(ctx, status)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return out, nil
}

// PaymentStatus derives the payment state of l at the current time.
func (s *LeadService) PaymentStatus(l *lead.ClassLead) payment.Status {
	var convertedAt time.Time
	if l.ConvertedAt.Valid {
		convertedAt = l.ConvertedAt.Time
	}
	return s.payments.Evaluate(convertedAt, l.PaymentReceived, s.now())
}
