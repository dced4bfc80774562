package attendance

import (
	"context"
	"fmt"
	"time"

	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

var ErrAttendanceNotFound = fmt.Errorf("attendance %w", workflow.ErrNotFound)
var ErrDuplicateSession = fmt.Errorf("attendance already exists for this class and date")

// Repository persists attendance records. Create returns ErrDuplicateSession
// when a record for the same class and date exists. Update is a
// compare-and-swap on Version.
type Repository interface {
	Create(ctx context.Context, a *Attendance) error
	GetByID(ctx context.Context, id uuid.UUID) (*Attendance, error)
	GetByClassAndDate(ctx context.Context, classID uuid.UUID, date time.Time) (*Attendance, error)
	Update(ctx context.Context, a *Attendance) error
	ListByClass(ctx context.Context, classID uuid.UUID) ([]*Attendance, error) // by session date
	// ListAwaiting returns records in status last touched before cutoff, oldest first.
	ListAwaiting(ctx context.Context, status Status, cutoff time.Time) ([]*Attendance, error)
}
