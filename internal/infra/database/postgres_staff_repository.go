package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tutorflow/internal/domain/staff"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const memberColumns = `id, telegram_id, first_name, last_name, role, subjects, grades, modes, is_active, created_at, updated_at`

type PostgresStaffRepository struct {
	db *sql.DB
}

func NewPostgresStaffRepository(db *sql.DB) *PostgresStaffRepository {
	return &PostgresStaffRepository{db: db}
}

func scanMember(row rowScanner) (*staff.Member, error) {
	m := &staff.Member{}
	err := row.Scan(&m.ID, &m.TelegramID, &m.FirstName, &m.LastName, &m.Role,
		pq.Array(&m.Subjects), pq.Array(&m.Grades), pq.Array(&m.Modes), &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PostgresStaffRepository) Create(ctx context.Context, m *staff.Member) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
		m.UpdatedAt = m.CreatedAt
	}
	query := `INSERT INTO members (` + memberColumns + `)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query, m.ID, m.TelegramID, m.FirstName, m.LastName, m.Role,
		textArray(m.Subjects), textArray(m.Grades), textArray(m.Modes), m.IsActive, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "members_telegram_id_key") {
			return staff.ErrDuplicateTelegramID
		}
		return fmt.Errorf("error creating member: %w", err)
	}
	return nil
}

func (r *PostgresStaffRepository) GetByID(ctx context.Context, id uuid.UUID) (*staff.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, staff.ErrMemberNotFound
		}
		return nil, fmt.Errorf("error getting member by ID: %w", err)
	}
	return m, nil
}

func (r *PostgresStaffRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*staff.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE telegram_id = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, staff.ErrMemberNotFound
		}
		return nil, fmt.Errorf("error getting member by Telegram ID: %w", err)
	}
	return m, nil
}

func (r *PostgresStaffRepository) Update(ctx context.Context, m *staff.Member) error {
	query := `UPDATE members
               SET first_name = $1, last_name = $2, role = $3, subjects = $4, grades = $5, modes = $6,
                   is_active = $7, updated_at = NOW()
               WHERE id = $8
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, m.FirstName, m.LastName, m.Role,
		textArray(m.Subjects), textArray(m.Grades), textArray(m.Modes), m.IsActive, m.ID).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return staff.ErrMemberNotFound
		}
		return fmt.Errorf("error updating member: %w", err)
	}
	return nil
}

func (r *PostgresStaffRepository) ListActive(ctx context.Context) ([]*staff.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE is_active = TRUE ORDER BY first_name, last_name`
	return r.list(ctx, query)
}

func (r *PostgresStaffRepository) ListActiveByRole(ctx context.Context, role staff.Role) ([]*staff.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE is_active = TRUE AND role = $1 ORDER BY first_name, last_name`
	return r.list(ctx, query, role)
}

func (r *PostgresStaffRepository) ListAll(ctx context.Context) ([]*staff.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members ORDER BY first_name, last_name`
	return r.list(ctx, query)
}

func (r *PostgresStaffRepository) list(ctx context.Context, query string, args ...any) ([]*staff.Member, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing members: %w", err)
	}
	defer rows.Close()

	members := make([]*staff.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning member row: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}
	return members, nil
}
