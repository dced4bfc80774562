package lead

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Announcement broadcasts a lead to the tutor pool. Only one per lead is active.
type Announcement struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Active    bool
	CreatedAt time.Time
	ClosedAt  sql.NullTime
}

// Interest records a tutor's willingness to demo for an announced lead.
type Interest struct {
	ID             uuid.UUID
	AnnouncementID uuid.UUID
	LeadID         uuid.UUID
	TutorID        uuid.UUID
	MatchScore     int
	CreatedAt      time.Time
}
