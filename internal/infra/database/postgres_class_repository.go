package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tutorflow/internal/domain/class"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const classColumns = `id, lead_id, demo_id, tutor_id, coordinator_id, parent_id, subjects, grade,
	days_of_week, time_slot, completed_sessions, total_sessions, status, version, created_at, updated_at`

type PostgresClassRepository struct {
	q         querier
	forUpdate bool
}

func scanClass(row rowScanner) (*class.FinalClass, error) {
	c := &class.FinalClass{}
	var days pq.StringArray
	err := row.Scan(&c.ID, &c.LeadID, &c.DemoID, &c.TutorID, &c.CoordinatorID, &c.ParentID,
		pq.Array(&c.Subjects), &c.Grade, &days, &c.Schedule.TimeSlot,
		&c.CompletedSessions, &c.TotalSessions, &c.Status, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Schedule.DaysOfWeek = toWeekdays(days)
	return c, nil
}

func (r *PostgresClassRepository) Create(ctx context.Context, c *class.FinalClass) error {
	query := `INSERT INTO final_classes (` + classColumns + `)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.ExecContext(ctx, query,
		c.ID, c.LeadID, c.DemoID, c.TutorID, c.CoordinatorID, c.ParentID,
		textArray(c.Subjects), c.Grade, fromWeekdays(c.Schedule.DaysOfWeek), c.Schedule.TimeSlot,
		c.CompletedSessions, c.TotalSessions, c.Status, c.Version, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "final_classes_lead_id_key") {
			return class.ErrClassExistsForLead
		}
		return fmt.Errorf("error creating final class: %w", err)
	}
	return nil
}

func (r *PostgresClassRepository) GetByID(ctx context.Context, id uuid.UUID) (*class.FinalClass, error) {
	return r.getBy(ctx, "id", id)
}

func (r *PostgresClassRepository) GetByLeadID(ctx context.Context, leadID uuid.UUID) (*class.FinalClass, error) {
	return r.getBy(ctx, "lead_id", leadID)
}

func (r *PostgresClassRepository) getBy(ctx context.Context, column string, id uuid.UUID) (*class.FinalClass, error) {
	query := `SELECT ` + classColumns + ` FROM final_classes WHERE ` + column + ` = $1` + lockClause(r.forUpdate)
	c, err := scanClass(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, class.ErrClassNotFound
		}
		return nil, fmt.Errorf("error getting final class by %s: %w", column, err)
	}
	return c, nil
}

func (r *PostgresClassRepository) Update(ctx context.Context, c *class.FinalClass) error {
	query := `UPDATE final_classes
               SET coordinator_id = $1, parent_id = $2, completed_sessions = $3, status = $4, updated_at = $5, version = version + 1
               WHERE id = $6 AND version = $7`
	result, err := r.q.ExecContext(ctx, query, c.CoordinatorID, c.ParentID, c.CompletedSessions, c.Status, c.UpdatedAt, c.ID, c.Version)
	if err != nil {
		return fmt.Errorf("error updating final class: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected for final class update: %w", err)
	}
	if rowsAffected == 0 {
		return casMiss(ctx, r.q, "final_classes", c.ID, class.ErrClassNotFound)
	}
	c.Version++
	return nil
}

func (r *PostgresClassRepository) ListByStatus(ctx context.Context, status class.Status) ([]*class.FinalClass, error) {
	query := `SELECT ` + classColumns + ` FROM final_classes
               WHERE ($1::text = '' OR status = $1)
               ORDER BY created_at ASC`
	rows, err := r.q.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("error listing final classes: %w", err)
	}
	defer rows.Close()

	classes := make([]*class.FinalClass, 0)
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning final class row: %w", err)
		}
		classes = append(classes, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating final class rows: %w", err)
	}
	return classes, nil
}
