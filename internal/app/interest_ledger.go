package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/store"
	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	subjectWeight = 60
	gradeWeight   = 25
	modeWeight    = 15
)

// MatchScore rates how well a tutor profile fits a lead, from 0 to 100.
// A tutor with no mode preference fits any mode.
func MatchScore(tutor *staff.Member, l *lead.ClassLead) int {
	score := 0
	if len(l.Subjects) > 0 {
		matched := 0
		for _, s := range l.Subjects {
			if containsFold(tutor.Subjects, s) {
				matched++
			}
		}
		score += subjectWeight * matched / len(l.Subjects)
	}
	if containsFold(tutor.Grades, l.Grade) {
		score += gradeWeight
	}
	if len(tutor.Modes) == 0 || containsFold(tutor.Modes, string(l.Mode)) {
		score += modeWeight
	}
	return score
}

func containsFold(list []string, v string) bool {
	v = strings.TrimSpace(v)
	return slices.ContainsFunc(list, func(s string) bool { return strings.EqualFold(strings.TrimSpace(s), v) })
}

// InterestLedger records tutors' interest in announced leads.
type InterestLedger struct {
	base
}

func NewInterestLedger(d Deps) *InterestLedger {
	return &InterestLedger{base: newBase(d, "interest_ledger")}
}

// ExpressInterest records the tutor's interest in the lead's active
// announcement. Expressing interest twice returns the existing record.
func (s *InterestLedger) ExpressInterest(ctx context.Context, tutorID, leadID uuid.UUID) (*lead.Interest, error) {
	tutor, err := s.access.Require(ctx, tutorID, staff.RoleTutor)
	if err != nil {
		return nil, err
	}

	var out *lead.Interest
	created := false
	err = s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		l, err := uow.Leads().GetByID(ctx, leadID)
		if err != nil {
			return err
		}
		if l.Status != lead.StatusAnnounced {
			return workflow.Violation(workflow.GuardLeadNotAnnounced, fmt.Sprintf("lead is %s", l.Status))
		}
		ann, err := uow.Leads().GetActiveAnnouncement(ctx, l.ID)
		if err != nil {
			if errors.Is(err, lead.ErrAnnouncementNotFound) {
				return workflow.ErrLeadNotAnnounced
			}
			return err
		}

		existing, err := uow.Leads().GetInterest(ctx, ann.ID, tutor.ID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, lead.ErrInterestNotFound) {
			return err
		}

		i := &lead.Interest{
			ID:             uuid.New(),
			AnnouncementID: ann.ID,
			LeadID:         l.ID,
			TutorID:        tutor.ID,
			MatchScore:     MatchScore(tutor, l),
			CreatedAt:      s.now(),
		}
		if err := uow.Leads().AddInterest(ctx, i); err != nil {
			return err
		}
		out, created = i, true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record interest: %w", err)
	}

	if created {
		s.log.WithFields(logrus.Fields{
			"lead_id":     leadID,
			"tutor_id":    tutor.ID,
			"match_score": out.MatchScore,
		}).Info("Tutor expressed interest")
	}
	return out, nil
}

// ListInterests returns the interests on the lead's active announcement, best
// match first. A lead without an active announcement has none.
func (s *InterestLedger) ListInterests(ctx context.Context, actorID, leadID uuid.UUID) ([]*lead.Interest, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager); err != nil {
		return nil, err
	}
	var out []*lead.Interest
	err := s.tx.View(ctx, func(uow store.UnitOfWork) error {
		if _, err := uow.Leads().GetByID(ctx, leadID); err != nil {
			return err
		}
		ann, err := uow.Leads().GetActiveAnnouncement(ctx, leadID)
		if errors.Is(err, lead.ErrAnnouncementNotFound) {
			out = []*lead.Interest{}
			return nil
		}
		if err != nil {
			return err
		}
		out, err = uow.Leads().ListInterests(ctx, ann.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list interests: %w", err)
	}
	return out, nil
}
