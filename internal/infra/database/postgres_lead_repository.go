package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/lead"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const leadColumns = `id, student_type, student_name, student_gender, students, grade, board, subjects, mode,
	address, city, area, fee, tutor_fee, classes_per_month, preferred_days, preferred_time,
	parent_id, created_by, reassigned_to, status, rejection_reason, payment_received, converted_at,
	version, created_at, updated_at`

// PostgresLeadRepository stores leads, announcements and interests.
type PostgresLeadRepository struct {
	q         querier
	forUpdate bool
}

func scanLead(row rowScanner) (*lead.ClassLead, error) {
	l := &lead.ClassLead{}
	var students []byte
	var days pq.StringArray
	err := row.Scan(&l.ID, &l.StudentType, &l.StudentName, &l.StudentGender, &students, &l.Grade, &l.Board,
		pq.Array(&l.Subjects), &l.Mode, &l.Location.Address, &l.Location.City, &l.Location.Area,
		&l.Fee, &l.TutorFee, &l.ClassesPerMonth, &days, &l.PreferredTime,
		&l.ParentID, &l.CreatedBy, &l.ReassignedTo, &l.Status, &l.RejectionReason, &l.PaymentReceived, &l.ConvertedAt,
		&l.Version, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(students) > 0 {
		if err := json.Unmarshal(students, &l.Students); err != nil {
			return nil, fmt.Errorf("error decoding students of lead %s: %w", l.ID, err)
		}
	}
	l.PreferredDays = toWeekdays(days)
	return l, nil
}

func (r *PostgresLeadRepository) Create(ctx context.Context, l *lead.ClassLead) error {
	students, err := json.Marshal(studentsOrEmpty(l.Students))
	if err != nil {
		return fmt.Errorf("error encoding students: %w", err)
	}
	query := `INSERT INTO class_leads (` + leadColumns + `)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
                       $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)`
	_, err = r.q.ExecContext(ctx, query,
		l.ID, l.StudentType, l.StudentName, l.StudentGender, students, l.Grade, l.Board,
		textArray(l.Subjects), l.Mode, l.Location.Address, l.Location.City, l.Location.Area,
		l.Fee, l.TutorFee, l.ClassesPerMonth, fromWeekdays(l.PreferredDays), l.PreferredTime,
		l.ParentID, l.CreatedBy, l.ReassignedTo, l.Status, l.RejectionReason, l.PaymentReceived, l.ConvertedAt,
		l.Version, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating class lead: %w", err)
	}
	return nil
}

func (r *PostgresLeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*lead.ClassLead, error) {
	query := `SELECT ` + leadColumns + ` FROM class_leads WHERE id = $1` + lockClause(r.forUpdate)
	l, err := scanLead(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lead.ErrLeadNotFound
		}
		return nil, fmt.Errorf("error getting class lead by ID: %w", err)
	}
	return l, nil
}

// Update writes the mutable lifecycle fields when the stored version matches.
func (r *PostgresLeadRepository) Update(ctx context.Context, l *lead.ClassLead) error {
	query := `UPDATE class_leads
               SET status = $1, rejection_reason = $2, payment_received = $3, converted_at = $4,
                   reassigned_to = $5, updated_at = $6, version = version + 1
               WHERE id = $7 AND version = $8`
	result, err := r.q.ExecContext(ctx, query, l.Status, l.RejectionReason, l.PaymentReceived, l.ConvertedAt,
		l.ReassignedTo, l.UpdatedAt, l.ID, l.Version)
	if err != nil {
		return fmt.Errorf("error updating class lead: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected for class lead update: %w", err)
	}
	if rowsAffected == 0 {
		return casMiss(ctx, r.q, "class_leads", l.ID, lead.ErrLeadNotFound)
	}
	l.Version++
	return nil
}

func (r *PostgresLeadRepository) ListByStatus(ctx context.Context, status lead.Status) ([]*lead.ClassLead, error) {
	query := `SELECT ` + leadColumns + ` FROM class_leads
               WHERE ($1::text = '' OR status = $1)
               ORDER BY created_at DESC`
	rows, err := r.q.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("error listing class leads: %w", err)
	}
	defer rows.Close()

	leads := make([]*lead.ClassLead, 0)
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning class lead row: %w", err)
		}
		leads = append(leads, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating class lead rows: %w", err)
	}
	return leads, nil
}

func (r *PostgresLeadRepository) CreateAnnouncement(ctx context.Context, a *lead.Announcement) error {
	query := `INSERT INTO announcements (id, lead_id, active, created_at, closed_at)
               VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.ExecContext(ctx, query, a.ID, a.LeadID, a.Active, a.CreatedAt, a.ClosedAt)
	if err != nil {
		return fmt.Errorf("error creating announcement: %w", err)
	}
	return nil
}

func (r *PostgresLeadRepository) GetActiveAnnouncement(ctx context.Context, leadID uuid.UUID) (*lead.Announcement, error) {
	query := `SELECT id, lead_id, active, created_at, closed_at
               FROM announcements WHERE lead_id = $1 AND active` + lockClause(r.forUpdate)
	a := &lead.Announcement{}
	err := r.q.QueryRowContext(ctx, query, leadID).Scan(&a.ID, &a.LeadID, &a.Active, &a.CreatedAt, &a.ClosedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lead.ErrAnnouncementNotFound
		}
		return nil, fmt.Errorf("error getting active announcement: %w", err)
	}
	return a, nil
}

func (r *PostgresLeadRepository) CloseAnnouncement(ctx context.Context, announcementID uuid.UUID, at time.Time) error {
	query := `UPDATE announcements SET active = FALSE, closed_at = $1 WHERE id = $2`
	result, err := r.q.ExecContext(ctx, query, at, announcementID)
	if err != nil {
		return fmt.Errorf("error closing announcement: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected for announcement close: %w", err)
	}
	if rowsAffected == 0 {
		return lead.ErrAnnouncementNotFound
	}
	return nil
}

func (r *PostgresLeadRepository) AddInterest(ctx context.Context, i *lead.Interest) error {
	query := `INSERT INTO interests (id, announcement_id, lead_id, tutor_id, match_score, created_at)
               VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.ExecContext(ctx, query, i.ID, i.AnnouncementID, i.LeadID, i.TutorID, i.MatchScore, i.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "interests_announcement_tutor_key") {
			return lead.ErrDuplicateInterest
		}
		return fmt.Errorf("error adding interest: %w", err)
	}
	return nil
}

func (r *PostgresLeadRepository) GetInterest(ctx context.Context, announcementID, tutorID uuid.UUID) (*lead.Interest, error) {
	query := `SELECT id, announcement_id, lead_id, tutor_id, match_score, created_at
               FROM interests WHERE announcement_id = $1 AND tutor_id = $2`
	i := &lead.Interest{}
	err := r.q.QueryRowContext(ctx, query, announcementID, tutorID).
		Scan(&i.ID, &i.AnnouncementID, &i.LeadID, &i.TutorID, &i.MatchScore, &i.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, lead.ErrInterestNotFound
		}
		return nil, fmt.Errorf("error getting interest: %w", err)
	}
	return i, nil
}

func (r *PostgresLeadRepository) ListInterests(ctx context.Context, announcementID uuid.UUID) ([]*lead.Interest, error) {
	query := `SELECT id, announcement_id, lead_id, tutor_id, match_score, created_at
               FROM interests WHERE announcement_id = $1
               ORDER BY match_score DESC, created_at ASC`
	rows, err := r.q.QueryContext(ctx, query, announcementID)
	if err != nil {
		return nil, fmt.Errorf("error listing interests: %w", err)
	}
	defer rows.Close()

	interests := make([]*lead.Interest, 0)
	for rows.Next() {
		i := &lead.Interest{}
		if err := rows.Scan(&i.ID, &i.AnnouncementID, &i.LeadID, &i.TutorID, &i.MatchScore, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning interest row: %w", err)
		}
		interests = append(interests, i)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interest rows: %w", err)
	}
	return interests, nil
}

func studentsOrEmpty(s []lead.Student) []lead.Student {
	if s == nil {
		return []lead.Student{}
	}
	return s
}

// textArray never yields NULL, so NOT NULL array columns accept empty slices.
func textArray(s []string) pq.StringArray {
	if s == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(s)
}

func toWeekdays(days []string) []class.Weekday {
	if len(days) == 0 {
		return nil
	}
	out := make([]class.Weekday, len(days))
	for i, d := range days {
		out[i] = class.Weekday(d)
	}
	return out
}

func fromWeekdays(days []class.Weekday) pq.StringArray {
	out := make(pq.StringArray, len(days))
	for i, d := range days {
		out[i] = string(d)
	}
	return out
}
