package lead

import (
	"context"
	"fmt"
	"time"

	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

var ErrLeadNotFound = fmt.Errorf("class lead %w", workflow.ErrNotFound)
var ErrAnnouncementNotFound = fmt.Errorf("active announcement %w", workflow.ErrNotFound)
var ErrInterestNotFound = fmt.Errorf("interest %w", workflow.ErrNotFound)
var ErrDuplicateInterest = fmt.Errorf("tutor already expressed interest in this announcement")

// Repository persists ClassLead aggregates together with their announcements
// and interests. Update is a compare-and-swap on Version.
type Repository interface {
	Create(ctx context.Context, l *ClassLead) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClassLead, error)
	Update(ctx context.Context, l *ClassLead) error
	ListByStatus(ctx context.Context, status Status) ([]*ClassLead, error) // empty status lists all

	CreateAnnouncement(ctx context.Context, a *Announcement) error
	GetActiveAnnouncement(ctx context.Context, leadID uuid.UUID) (*Announcement, error)
	CloseAnnouncement(ctx context.Context, announcementID uuid.UUID, at time.Time) error

	AddInterest(ctx context.Context, i *Interest) error
	GetInterest(ctx context.Context, announcementID, tutorID uuid.UUID) (*Interest, error)
	ListInterests(ctx context.Context, announcementID uuid.UUID) ([]*Interest, error) // highest score first
}
