package demo

import (
	"context"
	"fmt"

	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

var ErrDemoNotFound = fmt.Errorf("demo %w", workflow.ErrNotFound)

// Repository persists demo attempts. Update is a compare-and-swap on Version.
type Repository interface {
	Create(ctx context.Context, h *History) error
	GetByID(ctx context.Context, id uuid.UUID) (*History, error)
	Update(ctx context.Context, h *History) error
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]*History, error) // oldest first
	// GetActiveByLead returns the SCHEDULED or COMPLETED attempt, or ErrDemoNotFound.
	GetActiveByLead(ctx context.Context, leadID uuid.UUID) (*History, error)
}
