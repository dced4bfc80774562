package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/demo"

	"github.com/google/uuid"
)

const demoColumns = `id, lead_id, tutor_id, scheduled_date, scheduled_time, notes, status,
	attendance, topic_covered, duration, feedback, coordinator_id, rejection_reason, reassigned_to,
	completed_at, resolved_at, version, created_at, updated_at`

type PostgresDemoRepository struct {
	q         querier
	forUpdate bool
}

func scanDemo(row rowScanner) (*demo.History, error) {
	h := &demo.History{}
	err := row.Scan(&h.ID, &h.LeadID, &h.TutorID, &h.ScheduledDate, &h.ScheduledTime, &h.Notes, &h.Status,
		&h.Attendance, &h.TopicCovered, &h.Duration, &h.Feedback, &h.CoordinatorID, &h.RejectionReason, &h.ReassignedTo,
		&h.CompletedAt, &h.ResolvedAt, &h.Version, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	h.ScheduledDate = class.DateOnly(h.ScheduledDate)
	return h, nil
}

func (r *PostgresDemoRepository) Create(ctx context.Context, h *demo.History) error {
	query := `INSERT INTO demo_histories (` + demoColumns + `)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.q.ExecContext(ctx, query,
		h.ID, h.LeadID, h.TutorID, h.ScheduledDate, h.ScheduledTime, h.Notes, h.Status,
		h.Attendance, h.TopicCovered, h.Duration, h.Feedback, h.CoordinatorID, h.RejectionReason, h.ReassignedTo,
		h.CompletedAt, h.ResolvedAt, h.Version, h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating demo: %w", err)
	}
	return nil
}

func (r *PostgresDemoRepository) GetByID(ctx context.Context, id uuid.UUID) (*demo.History, error) {
	query := `SELECT ` + demoColumns + ` FROM demo_histories WHERE id = $1` + lockClause(r.forUpdate)
	h, err := scanDemo(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, demo.ErrDemoNotFound
		}
		return nil, fmt.Errorf("error getting demo by ID: %w", err)
	}
	return h, nil
}

func (r *PostgresDemoRepository) Update(ctx context.Context, h *demo.History) error {
	query := `UPDATE demo_histories
               SET status = $1, attendance = $2, topic_covered = $3, duration = $4, feedback = $5,
                   coordinator_id = $6, rejection_reason = $7, reassigned_to = $8,
                   completed_at = $9, resolved_at = $10, updated_at = $11, version = version + 1
               WHERE id = $12 AND version = $13`
	result, err := r.q.ExecContext(ctx, query,
		h.Status, h.Attendance, h.TopicCovered, h.Duration, h.Feedback,
		h.CoordinatorID, h.RejectionReason, h.ReassignedTo,
		h.CompletedAt, h.ResolvedAt, h.UpdatedAt, h.ID, h.Version)
	if err != nil {
		return fmt.Errorf("error updating demo: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected for demo update: %w", err)
	}
	if rowsAffected == 0 {
		return casMiss(ctx, r.q, "demo_histories", h.ID, demo.ErrDemoNotFound)
	}
	h.Version++
	return nil
}

func (r *PostgresDemoRepository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]*demo.History, error) {
	query := `SELECT ` + demoColumns + ` FROM demo_histories WHERE lead_id = $1 ORDER BY created_at ASC`
	rows, err := r.q.QueryContext(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("error listing demos for lead: %w", err)
	}
	defer rows.Close()

	demos := make([]*demo.History, 0)
	for rows.Next() {
		h, err := scanDemo(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning demo row: %w", err)
		}
		demos = append(demos, h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating demo rows: %w", err)
	}
	return demos, nil
}

func (r *PostgresDemoRepository) GetActiveByLead(ctx context.Context, leadID uuid.UUID) (*demo.History, error) {
	query := `SELECT ` + demoColumns + ` FROM demo_histories
               WHERE lead_id = $1 AND status IN ($2, $3)` + lockClause(r.forUpdate)
	h, err := scanDemo(r.q.QueryRowContext(ctx, query, leadID, demo.StatusScheduled, demo.StatusCompleted))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, demo.ErrDemoNotFound
		}
		return nil, fmt.Errorf("error getting active demo for lead: %w", err)
	}
	return h, nil
}
