package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutorflow/internal/domain/staff"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrMemberAlreadyExists = fmt.Errorf("member with this Telegram ID already exists")
var ErrMemberAlreadyInactive = fmt.Errorf("member is already inactive")

// NewMemberInput describes a person added to the staff directory. A zero
// TelegramID adds a member who only uses the HTTP API.
type NewMemberInput struct {
	TelegramID int64
	FirstName  string
	LastName   string
	Role       staff.Role
	Subjects   []string
	Grades     []string
	Modes      []string
}

// AdminService maintains the staff directory. Telegram commands are
// authorized against the configured admin Telegram ID or any active ADMIN
// member; API calls go through the Authorizer.
type AdminService struct {
	members         staff.Repository
	access          Authorizer
	adminTelegramID int64
	log             *logrus.Entry
	now             func() time.Time
}

func NewAdminService(members staff.Repository, access Authorizer, adminID int64, logger *logrus.Entry) *AdminService {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &AdminService{
		members:         members,
		access:          access,
		adminTelegramID: adminID,
		log:             logger.WithField("component", "admin_service"),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// EnsureBootstrapAdmin makes sure the configured admin exists as an ADMIN
// member so the API has a first actor.
func (s *AdminService) EnsureBootstrapAdmin(ctx context.Context) (*staff.Member, error) {
	if s.adminTelegramID == 0 {
		return nil, nil
	}
	m, err := s.members.GetByTelegramID(ctx, s.adminTelegramID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, staff.ErrMemberNotFound) {
		return nil, fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}
	return s.create(ctx, NewMemberInput{TelegramID: s.adminTelegramID, FirstName: "Admin", Role: staff.RoleAdmin})
}

func (s *AdminService) authorizeTelegram(ctx context.Context, telegramID int64) error {
	if telegramID != 0 && telegramID == s.adminTelegramID {
		return nil
	}
	m, err := s.members.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, staff.ErrMemberNotFound) {
			return ErrAdminNotAuthorized
		}
		return fmt.Errorf("failed to look up performing admin: %w", err)
	}
	if !m.IsActive || m.Role != staff.RoleAdmin {
		return ErrAdminNotAuthorized
	}
	return nil
}

// AddMember handles adding a member on behalf of a Telegram admin.
func (s *AdminService) AddMember(ctx context.Context, performingAdminID int64, in NewMemberInput) (*staff.Member, error) {
	if err := s.authorizeTelegram(ctx, performingAdminID); err != nil {
		return nil, err
	}
	return s.create(ctx, in)
}

// RegisterMember handles adding a member on behalf of an API actor.
func (s *AdminService) RegisterMember(ctx context.Context, actorID uuid.UUID, in NewMemberInput) (*staff.Member, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleAdmin); err != nil {
		return nil, err
	}
	return s.create(ctx, in)
}

func (s *AdminService) create(ctx context.Context, in NewMemberInput) (*staff.Member, error) {
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, invalidf("first_name", "is required")
	}
	if _, ok := staff.ParseRole(string(in.Role)); !ok {
		return nil, invalidf("role", "unknown role %q", in.Role)
	}

	if in.TelegramID != 0 {
		// Check if a member already exists by Telegram ID
		_, err := s.members.GetByTelegramID(ctx, in.TelegramID)
		if err == nil {
			return nil, ErrMemberAlreadyExists
		}
		if !errors.Is(err, staff.ErrMemberNotFound) {
			return nil, fmt.Errorf("failed to check existing member: %w", err)
		}
	}

	now := s.now()
	m := &staff.Member{
		ID:         uuid.New(),
		TelegramID: sql.NullInt64{Int64: in.TelegramID, Valid: in.TelegramID != 0},
		FirstName:  strings.TrimSpace(in.FirstName),
		Role:       in.Role,
		Subjects:   in.Subjects,
		Grades:     in.Grades,
		Modes:      in.Modes,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if ln := strings.TrimSpace(in.LastName); ln != "" {
		m.LastName = sql.NullString{String: ln, Valid: true}
	}

	if err := s.members.Create(ctx, m); err != nil {
		if errors.Is(err, staff.ErrDuplicateTelegramID) {
			return nil, ErrMemberAlreadyExists
		}
		return nil, fmt.Errorf("failed to create member in repository: %w", err)
	}
	s.log.WithFields(logrus.Fields{"member_id": m.ID, "role": m.Role}).Info("Member added")
	return m, nil
}

// RemoveMember handles deactivating a member by Telegram ID.
func (s *AdminService) RemoveMember(ctx context.Context, performingAdminID int64, telegramID int64) (*staff.Member, error) {
	if err := s.authorizeTelegram(ctx, performingAdminID); err != nil {
		return nil, err
	}

	target, err := s.members.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, staff.ErrMemberNotFound) {
			return nil, staff.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member by Telegram ID for removal: %w", err)
	}
	if !target.IsActive {
		return target, ErrMemberAlreadyInactive
	}

	target.IsActive = false
	target.UpdatedAt = s.now()
	if err := s.members.Update(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to update member to inactive in repository: %w", err)
	}
	s.log.WithFields(logrus.Fields{"member_id": target.ID, "role": target.Role}).Info("Member deactivated")
	return target, nil
}

// SetTutorProfile replaces the subjects, grades and modes used for match scoring.
func (s *AdminService) SetTutorProfile(ctx context.Context, performingAdminID int64, telegramID int64, subjects, grades, modes []string) (*staff.Member, error) {
	if err := s.authorizeTelegram(ctx, performingAdminID); err != nil {
		return nil, err
	}
	m, err := s.members.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if m.Role != staff.RoleTutor {
		return nil, invalidf("telegram_id", "member is a %s, not a tutor", m.Role)
	}
	m.Subjects, m.Grades, m.Modes = subjects, grades, modes
	m.UpdatedAt = s.now()
	if err := s.members.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update tutor profile: %w", err)
	}
	return m, nil
}

// ListMembers returns the whole directory for a Telegram admin.
func (s *AdminService) ListMembers(ctx context.Context, performingAdminID int64) ([]*staff.Member, error) {
	if err := s.authorizeTelegram(ctx, performingAdminID); err != nil {
		return nil, err
	}
	return s.members.ListAll(ctx)
}

// MemberByTelegramID resolves a chat user to an active member.
func (s *AdminService) MemberByTelegramID(ctx context.Context, telegramID int64) (*staff.Member, error) {
	m, err := s.members.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if !m.IsActive {
		return nil, staff.ErrMemberNotFound
	}
	return m, nil
}
