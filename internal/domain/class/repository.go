package class

import (
	"context"
	"fmt"

	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

var ErrClassNotFound = fmt.Errorf("final class %w", workflow.ErrNotFound)
var ErrClassExistsForLead = fmt.Errorf("a final class already exists for this lead")

// Repository persists FinalClass aggregates. Update is a compare-and-swap on
// Version and bumps it on success.
type Repository interface {
	Create(ctx context.Context, c *FinalClass) error
	GetByID(ctx context.Context, id uuid.UUID) (*FinalClass, error)
	GetByLeadID(ctx context.Context, leadID uuid.UUID) (*FinalClass, error)
	Update(ctx context.Context, c *FinalClass) error
	ListByStatus(ctx context.Context, status Status) ([]*FinalClass, error) // empty status lists all
}
