package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

// Authorizer confirms that an actor holds one of the roles an operation is
// gated on. It does not deal with credentials: the transport asserts who the
// actor is.
type Authorizer interface {
	Require(ctx context.Context, actorID uuid.UUID, roles ...staff.Role) (*staff.Member, error)
}

// DirectoryAuthorizer checks roles against the staff directory. Admins pass
// every check; an empty role list only requires an active member.
type DirectoryAuthorizer struct {
	members staff.Repository
}

func NewDirectoryAuthorizer(members staff.Repository) *DirectoryAuthorizer {
	return &DirectoryAuthorizer{members: members}
}

func (a *DirectoryAuthorizer) Require(ctx context.Context, actorID uuid.UUID, roles ...staff.Role) (*staff.Member, error) {
	if actorID == uuid.Nil {
		return nil, fmt.Errorf("no actor asserted: %w", workflow.ErrForbidden)
	}
	m, err := a.members.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, staff.ErrMemberNotFound) {
			return nil, fmt.Errorf("unknown actor %s: %w", actorID, workflow.ErrForbidden)
		}
		return nil, fmt.Errorf("failed to look up actor %s: %w", actorID, err)
	}
	if !m.IsActive {
		return nil, fmt.Errorf("actor %s is inactive: %w", actorID, workflow.ErrForbidden)
	}
	if m.Role == staff.RoleAdmin || len(roles) == 0 || slices.Contains(roles, m.Role) {
		return m, nil
	}
	return nil, fmt.Errorf("actor %s has role %s, need one of %v: %w", actorID, m.Role, roles, workflow.ErrForbidden)
}

func invalidf(field, format string, args ...any) error {
	return workflow.Invalid(field, fmt.Sprintf(format, args...))
}
