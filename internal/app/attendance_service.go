package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutorflow/internal/domain/attendance"
	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/notify"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/store"
	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AttendanceService runs session submission and the coordinator-then-parent
// approval chain.
type AttendanceService struct {
	base
}

func NewAttendanceService(d Deps) *AttendanceService {
	return &AttendanceService{base: newBase(d, "attendance_service")}
}

// SubmitAttendanceInput is one session report from the class tutor.
type SubmitAttendanceInput struct {
	ClassID      uuid.UUID
	SessionDate  time.Time
	TopicCovered string
	Mark         attendance.Mark
	Notes        string
}

func (in SubmitAttendanceInput) validate() error {
	if in.ClassID == uuid.Nil {
		return workflow.Invalid("class_id", "is required")
	}
	if in.SessionDate.IsZero() {
		return workflow.Invalid("session_date", "is required")
	}
	if _, ok := attendance.ParseMark(string(in.Mark)); !ok {
		return workflow.Invalid("student_attendance", "must be PRESENT, ABSENT or LATE")
	}
	if in.Mark != attendance.MarkAbsent && strings.TrimSpace(in.TopicCovered) == "" {
		return workflow.Invalid("topic_covered", "is required unless the student was absent")
	}
	return nil
}

// Submit records a session. The class must be ACTIVE and the date must be on
// its schedule. When a record for the date exists it is returned together
// with an *workflow.AlreadySubmittedError and nothing changes.
func (s *AttendanceService) Submit(ctx context.Context, actorID uuid.UUID, in SubmitAttendanceInput) (*attendance.Attendance, error) {
	actor, err := s.access.Require(ctx, actorID, staff.RoleTutor, staff.RoleManager)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	day := class.DateOnly(in.SessionDate)
	now := s.now()

	var (
		a        *attendance.Attendance
		existing *attendance.Attendance
		fc       *class.FinalClass
	)
	err = s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		fc, err = uow.Classes().GetByID(ctx, in.ClassID)
		if err != nil {
			return err
		}
		if actor.Role == staff.RoleTutor && fc.TutorID != actor.ID {
			return fmt.Errorf("class %s is taught by another tutor: %w", fc.ID, workflow.ErrForbidden)
		}
		if fc.Status != class.StatusActive {
			return workflow.Violation(workflow.GuardClassNotActive, fmt.Sprintf("class is %s", fc.Status))
		}
		if !fc.Schedule.Includes(day) {
			return workflow.Violation(workflow.GuardNotAScheduledDay, fmt.Sprintf("%s is a %s", class.FormatDate(day), class.WeekdayOf(day)))
		}

		prev, err := uow.Attendance().GetByClassAndDate(ctx, fc.ID, day)
		if err == nil {
			existing = prev
			return &workflow.AlreadySubmittedError{AttendanceID: prev.ID, SessionDate: class.FormatDate(day)}
		}
		if !errors.Is(err, attendance.ErrAttendanceNotFound) {
			return err
		}

		a = &attendance.Attendance{
			ID:            uuid.New(),
			FinalClassID:  fc.ID,
			SessionDate:   day,
			SessionNumber: fc.CompletedSessions + 1,
			TopicCovered:  strings.TrimSpace(in.TopicCovered),
			Notes:         strings.TrimSpace(in.Notes),
			StudentMark:   in.Mark,
			Status:        attendance.StatusPending,
			SubmittedBy:   actor.ID,
			SubmittedAt:   now,
			Version:       1,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := uow.Attendance().Create(ctx, a); err != nil {
			return err
		}
		fc.CompletedSessions++
		fc.UpdatedAt = now
		return uow.Classes().Update(ctx, fc)
	})
	if errors.Is(err, attendance.ErrDuplicateSession) {
		// Lost the insert race to a concurrent submission for the same date.
		return s.alreadySubmitted(ctx, in.ClassID, day)
	}
	if err != nil {
		if existing != nil {
			return existing, err
		}
		return nil, fmt.Errorf("failed to submit attendance: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"class_id":      fc.ID,
		"attendance_id": a.ID,
		"session_date":  class.FormatDate(day),
		"session":       a.SessionNumber,
	}).Info("Attendance submitted")
	s.send(ctx, notify.Event{
		Topic:        notify.TopicAttendanceSubmitted,
		Recipients:   recipients(fc.CoordinatorID),
		Text:         fmt.Sprintf("Session %d of grade %s %s on %s needs your approval (student %s).", a.SessionNumber, fc.Grade, strings.Join(fc.Subjects, ", "), class.FormatDate(day), a.StudentMark),
		AttendanceID: uuid.NullUUID{UUID: a.ID, Valid: true},
	})
	return a, nil
}

func (s *AttendanceService) alreadySubmitted(ctx context.Context, classID uuid.UUID, day time.Time) (*attendance.Attendance, error) {
	var existing *attendance.Attendance
	err := s.tx.View(ctx, func(uow store.UnitOfWork) error {
		var err error
		existing, err = uow.Attendance().GetByClassAndDate(ctx, classID, day)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load concurrent submission: %w", err)
	}
	return existing, &workflow.AlreadySubmittedError{AttendanceID: existing.ID, SessionDate: class.FormatDate(day)}
}

// CoordinatorApprove passes the first gate. Approving twice is a no-op.
func (s *AttendanceService) CoordinatorApprove(ctx context.Context, actorID, attendanceID uuid.UUID) (*attendance.Attendance, error) {
	actor, err := s.access.Require(ctx, actorID, staff.RoleCoordinator)
	if err != nil {
		return nil, err
	}
	var (
		a       *attendance.Attendance
		fc      *class.FinalClass
		changed bool
	)
	err = s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		a, fc, err = loadWithClass(ctx, uow, attendanceID)
		if err != nil {
			return err
		}
		if actor.Role == staff.RoleCoordinator && fc.CoordinatorID != actor.ID {
			return fmt.Errorf("class %s has another coordinator: %w", fc.ID, workflow.ErrForbidden)
		}
		changed, err = a.CoordinatorApprove(actor.ID, s.now())
		if err != nil || !changed {
			return err
		}
		return uow.Attendance().Update(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to approve attendance: %w", err)
	}
	if !changed {
		return a, nil
	}

	s.log.WithFields(logrus.Fields{"class_id": fc.ID, "attendance_id": a.ID, "actor_id": actor.ID}).Info("Attendance approved by coordinator")
	if fc.ParentID.Valid {
		s.send(ctx, notify.Event{
			Topic:        notify.TopicAttendanceApproved,
			Recipients:   recipients(fc.ParentID.UUID),
			Text:         fmt.Sprintf("Please confirm session %d on %s (%s).", a.SessionNumber, class.FormatDate(a.SessionDate), a.TopicCovered),
			AttendanceID: uuid.NullUUID{UUID: a.ID, Valid: true},
		})
	}
	return a, nil
}

// ParentApprove passes the second gate. It requires the coordinator's approval.
func (s *AttendanceService) ParentApprove(ctx context.Context, actorID, attendanceID uuid.UUID) (*attendance.Attendance, error) {
	actor, err := s.access.Require(ctx, actorID, staff.RoleParent)
	if err != nil {
		return nil, err
	}
	var (
		a  *attendance.Attendance
		fc *class.FinalClass
	)
	err = s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		a, fc, err = loadWithClass(ctx, uow, attendanceID)
		if err != nil {
			return err
		}
		if err := checkParent(actor, fc); err != nil {
			return err
		}
		if err := a.ParentApprove(actor.ID, s.now()); err != nil {
			return err
		}
		return uow.Attendance().Update(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to approve attendance: %w", err)
	}

	s.log.WithFields(logrus.Fields{"class_id": fc.ID, "attendance_id": a.ID, "actor_id": actor.ID}).Info("Attendance approved by parent")
	s.send(ctx, notify.Event{
		Topic:      notify.TopicAttendanceApproved,
		Recipients: recipients(fc.TutorID, fc.CoordinatorID),
		Text:       fmt.Sprintf("Session %d on %s is fully approved.", a.SessionNumber, class.FormatDate(a.SessionDate)),
	})
	return a, nil
}

// Reject closes a pending or coordinator-approved record. The reason is mandatory.
func (s *AttendanceService) Reject(ctx context.Context, actorID, attendanceID uuid.UUID, reason string) (*attendance.Attendance, error) {
	actor, err := s.access.Require(ctx, actorID, staff.RoleCoordinator, staff.RoleParent)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, workflow.Invalid("reason", "is required to reject attendance")
	}
	var (
		a  *attendance.Attendance
		fc *class.FinalClass
	)
	err = s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		a, fc, err = loadWithClass(ctx, uow, attendanceID)
		if err != nil {
			return err
		}
		switch actor.Role {
		case staff.RoleCoordinator:
			if fc.CoordinatorID != actor.ID {
				return fmt.Errorf("class %s has another coordinator: %w", fc.ID, workflow.ErrForbidden)
			}
		case staff.RoleParent:
			if err := checkParent(actor, fc); err != nil {
				return err
			}
		}
		if err := a.Reject(actor.ID, reason, s.now()); err != nil {
			return err
		}
		return uow.Attendance().Update(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reject attendance: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"class_id":      fc.ID,
		"attendance_id": a.ID,
		"actor_id":      actor.ID,
		"reason":        a.RejectReason,
	}).Info("Attendance rejected")
	s.send(ctx, notify.Event{
		Topic:      notify.TopicAttendanceRejected,
		Recipients: recipients(fc.TutorID, fc.CoordinatorID),
		Text:       fmt.Sprintf("Session %d on %s was rejected by %s: %s", a.SessionNumber, class.FormatDate(a.SessionDate), actor.FullName(), a.RejectReason),
	})
	return a, nil
}

func checkParent(actor *staff.Member, fc *class.FinalClass) error {
	if actor.Role != staff.RoleParent {
		return nil
	}
	if !fc.ParentID.Valid || fc.ParentID.UUID != actor.ID {
		return fmt.Errorf("class %s belongs to another parent: %w", fc.ID, workflow.ErrForbidden)
	}
	return nil
}

func loadWithClass(ctx context.Context, uow store.UnitOfWork, attendanceID uuid.UUID) (*attendance.Attendance, *class.FinalClass, error) {
	a, err := uow.Attendance().GetByID(ctx, attendanceID)
	if err != nil {
		return nil, nil, err
	}
	fc, err := uow.Classes().GetByID(ctx, a.FinalClassID)
	if err != nil {
		return nil, nil, err
	}
	return a, fc, nil
}

// Get returns one attendance record.
func (s *AttendanceService) Get(ctx context.Context, actorID, attendanceID uuid.UUID) (*attendance.Attendance, error) {
	if _, err := s.access.Require(ctx, actorID); err != nil {
		return nil, err
	}
	var a *attendance.Attendance
	err := s.tx.View(ctx, func(uow store.UnitOfWork) error {
		var err error
		a, err = uow.Attendance().GetByID(ctx, attendanceID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return a, nil
}

// List returns the class's records ordered by session date.
func (s *AttendanceService) List(ctx context.Context, actorID, classID uuid.UUID) ([]*attendance.Attendance, error) {
	if _, err := s.access.Require(ctx, actorID); err != nil {
		return nil, err
	}
	var out []*attendance.Attendance
	err := s.tx.View(ctx, func(uow store.UnitOfWork) error {
		if _, err := uow.Classes().GetByID(ctx, classID); err != nil {
			return err
		}
		var err error
		out, err = uow.Attendance().ListByClass(ctx, classID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return out, nil
}
