package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"tutorflow/internal/domain/attendance"
	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/store"
	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

func seedLead(t *testing.T, s *Store) *lead.ClassLead {
	t.Helper()
	l := &lead.ClassLead{ID: uuid.New(), Status: lead.StatusNew, Subjects: []string{"Math"}, Version: 1, CreatedAt: time.Now()}
	err := s.WithinTx(context.Background(), func(uow store.UnitOfWork) error {
		return uow.Leads().Create(context.Background(), l)
	})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return l
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	l := seedLead(t, s)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(uow store.UnitOfWork) error {
		got, err := uow.Leads().GetByID(ctx, l.ID)
		if err != nil {
			return err
		}
		got.Status = lead.StatusAnnounced
		if err := uow.Leads().Update(ctx, got); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() = %v, want boom", err)
	}

	_ = s.View(ctx, func(uow store.UnitOfWork) error {
		got, err := uow.Leads().GetByID(ctx, l.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Status != lead.StatusNew || got.Version != 1 {
			t.Fatalf("after rollback lead = %s v%d, want NEW v1", got.Status, got.Version)
		}
		return nil
	})
}

func TestUpdateIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	s := New()
	l := seedLead(t, s)

	err := s.WithinTx(ctx, func(uow store.UnitOfWork) error {
		stale := *l
		fresh, _ := uow.Leads().GetByID(ctx, l.ID)
		if err := uow.Leads().Update(ctx, fresh); err != nil {
			return err
		}
		return uow.Leads().Update(ctx, &stale)
	})
	if !errors.Is(err, workflow.ErrConcurrencyConflict) {
		t.Fatalf("stale update = %v, want ErrConcurrencyConflict", err)
	}
}

func TestViewIsReadOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.View(ctx, func(uow store.UnitOfWork) error {
		return uow.Leads().Create(ctx, &lead.ClassLead{ID: uuid.New()})
	})
	if err == nil {
		t.Fatalf("expected a write in View to fail")
	}
}

func TestAttendanceUniquePerClassAndDate(t *testing.T) {
	ctx := context.Background()
	s := New()
	classID := uuid.New()
	day := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)

	err := s.WithinTx(ctx, func(uow store.UnitOfWork) error {
		if err := uow.Attendance().Create(ctx, &attendance.Attendance{ID: uuid.New(), FinalClassID: classID, SessionDate: day}); err != nil {
			return err
		}
		return uow.Attendance().Create(ctx, &attendance.Attendance{ID: uuid.New(), FinalClassID: classID, SessionDate: day})
	})
	if !errors.Is(err, attendance.ErrDuplicateSession) {
		t.Fatalf("second create = %v, want ErrDuplicateSession", err)
	}
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	l := seedLead(t, s)
	_ = s.View(ctx, func(uow store.UnitOfWork) error {
		got, _ := uow.Leads().GetByID(ctx, l.ID)
		got.Subjects[0] = "Poetry"
		again, _ := uow.Leads().GetByID(ctx, l.ID)
		if again.Subjects[0] != "Math" {
			t.Fatalf("store value was mutated through a returned pointer")
		}
		return nil
	})
}

func TestMembersDirectory(t *testing.T) {
	ctx := context.Background()
	repo := New().Members()
	tutor := &staff.Member{FirstName: "Tara", Role: staff.RoleTutor, IsActive: true}
	tutor.TelegramID.Int64, tutor.TelegramID.Valid = 42, true
	if err := repo.Create(ctx, tutor); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := &staff.Member{FirstName: "Copy", Role: staff.RoleTutor}
	dup.TelegramID.Int64, dup.TelegramID.Valid = 42, true
	if err := repo.Create(ctx, dup); !errors.Is(err, staff.ErrDuplicateTelegramID) {
		t.Fatalf("duplicate telegram id = %v", err)
	}
	got, err := repo.GetByTelegramID(ctx, 42)
	if err != nil || got.ID != tutor.ID {
		t.Fatalf("GetByTelegramID = %v, %v", got, err)
	}
	tutors, _ := repo.ListActiveByRole(ctx, staff.RoleTutor)
	if len(tutors) != 1 {
		t.Fatalf("active tutors = %d, want 1", len(tutors))
	}
	coordinators, _ := repo.ListActiveByRole(ctx, staff.RoleCoordinator)
	if len(coordinators) != 0 {
		t.Fatalf("active coordinators = %d, want 0", len(coordinators))
	}
}
