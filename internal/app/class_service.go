package app

import (
	"context"
	"fmt"
	"strings"

	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/notify"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ClassService administers provisioned classes.
type ClassService struct {
	base
}

func NewClassService(d Deps) *ClassService {
	return &ClassService{base: newBase(d, "class_service")}
}

// ReassignCoordinator binds the class to another coordinator. The class
// status is left alone.
func (s *ClassService) ReassignCoordinator(ctx context.Context, actorID, classID, coordinatorID uuid.UUID) (*class.FinalClass, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager); err != nil {
		return nil, err
	}
	coord, err := s.requireMember(ctx, "coordinator_id", coordinatorID, staff.RoleCoordinator)
	if err != nil {
		return nil, err
	}
	var fc *class.FinalClass
	err = s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		fc, err = uow.Classes().GetByID(ctx, classID)
		if err != nil {
			return err
		}
		fc.CoordinatorID = coord.ID
		fc.UpdatedAt = s.now()
		return uow.Classes().Update(ctx, fc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reassign coordinator: %w", err)
	}

	s.log.WithFields(logrus.Fields{"class_id": fc.ID, "coordinator_id": coord.ID}).Info("Class coordinator reassigned")
	s.send(ctx, notify.Event{
		Topic:      notify.TopicCoordinatorAssigned,
		Recipients: recipients(coord.ID),
		Text:       fmt.Sprintf("You now coordinate the class for grade %s %s.", fc.Grade, strings.Join(fc.Subjects, ", ")),
	})
	return fc, nil
}

// ReassignParent binds the class to a parent account. Classes provisioned
// from a lead without a parent need this before parents can approve sessions.
func (s *ClassService) ReassignParent(ctx context.Context, actorID, classID, parentID uuid.UUID) (*class.FinalClass, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager); err != nil {
		return nil, err
	}
	parent, err := s.requireMember(ctx, "parent_id", parentID, staff.RoleParent)
	if err != nil {
		return nil, err
	}
	var fc *class.FinalClass
	err = s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		fc, err = uow.Classes().GetByID(ctx, classID)
		if err != nil {
			return err
		}
		fc.ParentID = uuid.NullUUID{UUID: parent.ID, Valid: true}
		fc.UpdatedAt = s.now()
		return uow.Classes().Update(ctx, fc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reassign parent: %w", err)
	}

	s.log.WithFields(logrus.Fields{"class_id": fc.ID, "parent_id": parent.ID}).Info("Class parent reassigned")
	s.send(ctx, notify.Event{
		Topic:      notify.TopicParentAssigned,
		Recipients: recipients(parent.ID),
		Text:       fmt.Sprintf("You will now confirm sessions of the class for grade %s %s.", fc.Grade, strings.Join(fc.Subjects, ", ")),
	})
	return fc, nil
}

// ChangeStatus pauses, resumes, completes or cancels a class.
func (s *ClassService) ChangeStatus(ctx context.Context, actorID, classID uuid.UUID, next class.Status) (*class.FinalClass, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager); err != nil {
		return nil, err
	}
	var fc *class.FinalClass
	err := s.tx.WithinTx(ctx, func(uow store.UnitOfWork) error {
		var err error
		fc, err = uow.Classes().GetByID(ctx, classID)
		if err != nil {
			return err
		}
		if err := class.Transitions.Check("final class", fc.ID, fc.Status, next); err != nil {
			return err
		}
		fc.Status = next
		fc.UpdatedAt = s.now()
		return uow.Classes().Update(ctx, fc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to change class status: %w", err)
	}
	s.log.WithFields(logrus.Fields{"class_id": fc.ID, "status": fc.Status}).Info("Class status changed")
	return fc, nil
}

// GetClass returns one class.
func (s *ClassService) GetClass(ctx context.Context, actorID, classID uuid.UUID) (*class.FinalClass, error) {
	if _, err := s.access.Require(ctx, actorID); err != nil {
		return nil, err
	}
	var fc *class.FinalClass
	err := s.tx.View(ctx, func(uow store.UnitOfWork) error {
		var err error
		fc, err = uow.Classes().GetByID(ctx, classID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get class: %w", err)
	}
	return fc, nil
}

// ListClasses returns classes in status, oldest first. An empty status lists all.
func (s *ClassService) ListClasses(ctx context.Context, actorID uuid.UUID, status class.Status) ([]*class.FinalClass, error) {
	if _, err := s.access.Require(ctx, actorID, staff.RoleManager, staff.RoleCoordinator); err != nil {
		return nil, err
	}
	var out []*class.FinalClass
	err := s.tx.View(ctx, func(uow store.UnitOfWork) error {
		var err error
		out, err = uow.Classes().ListByStatus(ctx, status)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list classes: %w", err)
	}
	return out, nil
}
