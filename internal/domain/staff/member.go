package staff

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Role is what a member may do in the workflow.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleManager     Role = "MANAGER"
	RoleCoordinator Role = "COORDINATOR"
	RoleTutor       Role = "TUTOR"
	RoleParent      Role = "PARENT"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleAdmin, RoleManager, RoleCoordinator, RoleTutor, RoleParent:
		return r, true
	}
	return "", false
}

// Member is a person known to the system: staff, tutors and parents alike.
type Member struct {
	ID         uuid.UUID
	TelegramID sql.NullInt64 // members without Telegram get no bot notifications
	FirstName  string
	LastName   sql.NullString
	Role       Role
	Subjects   []string // tutors only, used for interest match scoring
	Grades     []string
	Modes      []string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FullName joins first and last name.
func (m *Member) FullName() string {
	if m.LastName.Valid && m.LastName.String != "" {
		return m.FirstName + " " + m.LastName.String
	}
	return m.FirstName
}
