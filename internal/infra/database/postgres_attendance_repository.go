package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tutorflow/internal/domain/attendance"
	"tutorflow/internal/domain/class"

	"github.com/google/uuid"
)

const attendanceColumns = `id, final_class_id, session_date, session_number, topic_covered, notes, student_mark, status,
	submitted_by, submitted_at, coordinator_id, coordinator_at, parent_id, parent_at,
	rejected_by, rejected_at, reject_reason, version, created_at, updated_at`

type PostgresAttendanceRepository struct {
	q         querier
	forUpdate bool
}

func scanAttendance(row rowScanner) (*attendance.Attendance, error) {
	a := &attendance.Attendance{}
	err := row.Scan(&a.ID, &a.FinalClassID, &a.SessionDate, &a.SessionNumber, &a.TopicCovered, &a.Notes, &a.StudentMark, &a.Status,
		&a.SubmittedBy, &a.SubmittedAt, &a.CoordinatorID, &a.CoordinatorAt, &a.ParentID, &a.ParentAt,
		&a.RejectedBy, &a.RejectedAt, &a.RejectReason, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.SessionDate = class.DateOnly(a.SessionDate)
	return a, nil
}

func (r *PostgresAttendanceRepository) Create(ctx context.Context, a *attendance.Attendance) error {
	query := `INSERT INTO attendance (` + attendanceColumns + `)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.q.ExecContext(ctx, query,
		a.ID, a.FinalClassID, a.SessionDate, a.SessionNumber, a.TopicCovered, a.Notes, a.StudentMark, a.Status,
		a.SubmittedBy, a.SubmittedAt, a.CoordinatorID, a.CoordinatorAt, a.ParentID, a.ParentAt,
		a.RejectedBy, a.RejectedAt, a.RejectReason, a.Version, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "attendance_class_session_key") {
			return attendance.ErrDuplicateSession
		}
		return fmt.Errorf("error creating attendance: %w", err)
	}
	return nil
}

func (r *PostgresAttendanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*attendance.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE id = $1` + lockClause(r.forUpdate)
	a, err := scanAttendance(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, attendance.ErrAttendanceNotFound
		}
		return nil, fmt.Errorf("error getting attendance by ID: %w", err)
	}
	return a, nil
}

func (r *PostgresAttendanceRepository) GetByClassAndDate(ctx context.Context, classID uuid.UUID, date time.Time) (*attendance.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE final_class_id = $1 AND session_date = $2`
	a, err := scanAttendance(r.q.QueryRowContext(ctx, query, classID, class.DateOnly(date)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, attendance.ErrAttendanceNotFound
		}
		return nil, fmt.Errorf("error getting attendance by class and date: %w", err)
	}
	return a, nil
}

func (r *PostgresAttendanceRepository) Update(ctx context.Context, a *attendance.Attendance) error {
	query := `UPDATE attendance
               SET status = $1, coordinator_id = $2, coordinator_at = $3, parent_id = $4, parent_at = $5,
                   rejected_by = $6, rejected_at = $7, reject_reason = $8, updated_at = $9, version = version + 1
               WHERE id = $10 AND version = $11`
	result, err := r.q.ExecContext(ctx, query,
		a.Status, a.CoordinatorID, a.CoordinatorAt, a.ParentID, a.ParentAt,
		a.RejectedBy, a.RejectedAt, a.RejectReason, a.UpdatedAt, a.ID, a.Version)
	if err != nil {
		return fmt.Errorf("error updating attendance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected for attendance update: %w", err)
	}
	if rowsAffected == 0 {
		return casMiss(ctx, r.q, "attendance", a.ID, attendance.ErrAttendanceNotFound)
	}
	a.Version++
	return nil
}

func (r *PostgresAttendanceRepository) ListByClass(ctx context.Context, classID uuid.UUID) ([]*attendance.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE final_class_id = $1 ORDER BY session_date ASC`
	return r.list(ctx, query, classID)
}

func (r *PostgresAttendanceRepository) ListAwaiting(ctx context.Context, status attendance.Status, cutoff time.Time) ([]*attendance.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance
               WHERE status = $1 AND updated_at < $2
               ORDER BY updated_at ASC`
	return r.list(ctx, query, status, cutoff)
}

func (r *PostgresAttendanceRepository) list(ctx context.Context, query string, args ...any) ([]*attendance.Attendance, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing attendance: %w", err)
	}
	defer rows.Close()

	records := make([]*attendance.Attendance, 0)
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning attendance row: %w", err)
		}
		records = append(records, a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance rows: %w", err)
	}
	return records, nil
}
