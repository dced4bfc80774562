package database

import (
	"context"
	"database/sql"
	"fmt"

	"tutorflow/internal/domain/attendance"
	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/demo"
	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/store"
	"tutorflow/internal/domain/workflow"
)

var errConcurrency = workflow.ErrConcurrencyConflict

// Store runs units of work in PostgreSQL transactions. Rows read through a
// WithinTx unit are locked FOR UPDATE until commit.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithinTx implements store.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(uow store.UnitOfWork) error) error {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback()

	if err := fn(&unit{q: txn, forUpdate: true}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// View implements store.Transactor with a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(uow store.UnitOfWork) error) error {
	txn, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("failed to begin read-only transaction: %w", err)
	}
	defer txn.Rollback()

	if err := fn(&unit{q: txn}); err != nil {
		return err
	}
	return txn.Commit()
}

// Members returns the staff directory. It runs outside any unit of work.
func (s *Store) Members() staff.Repository {
	return NewPostgresStaffRepository(s.db)
}

type unit struct {
	q         querier
	forUpdate bool
}

func (u *unit) Leads() lead.Repository {
	return &PostgresLeadRepository{q: u.q, forUpdate: u.forUpdate}
}

func (u *unit) Demos() demo.Repository {
	return &PostgresDemoRepository{q: u.q, forUpdate: u.forUpdate}
}

func (u *unit) Classes() class.Repository {
	return &PostgresClassRepository{q: u.q, forUpdate: u.forUpdate}
}

func (u *unit) Attendance() attendance.Repository {
	return &PostgresAttendanceRepository{q: u.q, forUpdate: u.forUpdate}
}
