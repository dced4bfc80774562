// internal/app/notification_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"tutorflow/internal/domain/attendance"
	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/notify"
	"tutorflow/internal/domain/payment"
	"tutorflow/internal/domain/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NotificationService defines the scheduled notification jobs.
type NotificationService interface {
	// SendApprovalReminders nudges coordinators about PENDING attendance and
	// parents about COORDINATOR_APPROVED attendance that has waited too long.
	SendApprovalReminders(ctx context.Context) (int, error)
	// SweepOverduePayments tells managers about converted leads past their due date.
	SweepOverduePayments(ctx context.Context) (int, error)
}

// NotificationServiceImpl implements the NotificationService interface.
type NotificationServiceImpl struct {
	base
	remindAfter time.Duration
	payments    payment.Rule
}

func NewNotificationServiceImpl(d Deps, remindAfter time.Duration, payments payment.Rule) *NotificationServiceImpl {
	return &NotificationServiceImpl{
		base:        newBase(d, "notification_service"),
		remindAfter: remindAfter,
		payments:    payments,
	}
}

type reminder struct {
	a  *attendance.Attendance
	fc *class.FinalClass
}

// SendApprovalReminders returns how many reminders were sent.
func (s *NotificationServiceImpl) SendApprovalReminders(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.remindAfter)
	s.log.WithField("cutoff", cutoff).Info("Processing approval reminders")

	var pending, awaitingParent []reminder
	err := s.tx.View(ctx, func(uow store.UnitOfWork) error {
		var err error
		if pending, err = awaiting(ctx, uow, attendance.StatusPending, cutoff); err != nil {
			return err
		}
		awaitingParent, err = awaiting(ctx, uow, attendance.StatusCoordinatorApproved, cutoff)
		return err
	})
	if err != nil {
		s.log.WithError(err).Error("Failed to load attendance awaiting approval")
		return 0, fmt.Errorf("failed to load attendance awaiting approval: %w", err)
	}

	sent := 0
	for _, r := range pending {
		s.send(ctx, notify.Event{
			Topic:        notify.TopicApprovalReminder,
			Recipients:   recipients(r.fc.CoordinatorID),
			Text:         fmt.Sprintf("Reminder: session %d on %s is still waiting for your approval.", r.a.SessionNumber, class.FormatDate(r.a.SessionDate)),
			AttendanceID: uuid.NullUUID{UUID: r.a.ID, Valid: true},
		})
		sent++
	}
	for _, r := range awaitingParent {
		if !r.fc.ParentID.Valid {
			s.log.WithField("class_id", r.fc.ID).Warn("Class has no parent to remind")
			continue
		}
		s.send(ctx, notify.Event{
			Topic:        notify.TopicApprovalReminder,
			Recipients:   recipients(r.fc.ParentID.UUID),
			Text:         fmt.Sprintf("Reminder: please confirm session %d on %s.", r.a.SessionNumber, class.FormatDate(r.a.SessionDate)),
			AttendanceID: uuid.NullUUID{UUID: r.a.ID, Valid: true},
		})
		sent++
	}
	s.log.WithField("sent", sent).Info("Approval reminders processed")
	return sent, nil
}

func awaiting(ctx context.Context, uow store.UnitOfWork, status attendance.Status, cutoff time.Time) ([]reminder, error) {
	records, err := uow.Attendance().ListAwaiting(ctx, status, cutoff)
	if err != nil {
		return nil, err
	}
	classes := map[uuid.UUID]*class.FinalClass{}
	out := make([]reminder, 0, len(records))
	for _, a := range records {
		fc, ok := classes[a.FinalClassID]
		if !ok {
			if fc, err = uow.Classes().GetByID(ctx, a.FinalClassID); err != nil {
				return nil, err
			}
			classes[a.FinalClassID] = fc
		}
		out = append(out, reminder{a: a, fc: fc})
	}
	return out, nil
}

// SweepOverduePayments returns how many overdue leads were reported.
func (s *NotificationServiceImpl) SweepOverduePayments(ctx context.Context) (int, error) {
	var converted []*lead.ClassLead
	err := s.tx.View(ctx, func(uow store.UnitOfWork) error {
		var err error
		converted, err = uow.Leads().ListByStatus(ctx, lead.StatusConverted)
		return err
	})
	if err != nil {
		s.log.WithError(err).Error("Failed to list converted leads")
		return 0, fmt.Errorf("failed to list converted leads: %w", err)
	}

	now := s.now()
	overdue := 0
	for _, l := range converted {
		if !l.ConvertedAt.Valid {
			continue
		}
		if s.payments.Evaluate(l.ConvertedAt.Time, l.PaymentReceived, now) != payment.StatusOverdue {
			continue
		}
		overdue++
		due := s.payments.DueDate(l.ConvertedAt.Time)
		s.log.WithFields(logrus.Fields{"lead_id": l.ID, "due": due}).Warn("Payment overdue")
		s.send(ctx, notify.Event{
			Topic:      notify.TopicPaymentOverdue,
			Recipients: recipients(l.ManagerID()),
			Text:       fmt.Sprintf("Payment for the grade %s class (fee %d) was due on %s.", l.Grade, l.TotalFee(), class.FormatDate(due)),
		})
	}
	s.log.WithFields(logrus.Fields{"checked": len(converted), "overdue": overdue}).Info("Payment sweep processed")
	return overdue, nil
}
