package staff

import (
	"context"
	"fmt"

	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

var ErrMemberNotFound = fmt.Errorf("member %w", workflow.ErrNotFound)
var ErrDuplicateTelegramID = fmt.Errorf("member with this Telegram ID already exists")

// Repository defines the operations for persisting and retrieving members.
type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*Member, error)
	Update(ctx context.Context, m *Member) error // first/last name, role, profile, IsActive
	ListActive(ctx context.Context) ([]*Member, error)
	ListActiveByRole(ctx context.Context, role Role) ([]*Member, error)
	ListAll(ctx context.Context) ([]*Member, error)
}
