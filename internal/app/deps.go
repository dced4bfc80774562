package app

import (
	"context"
	"errors"
	"time"

	"tutorflow/internal/domain/notify"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators shared by the workflow services.
type Deps struct {
	Tx       store.Transactor
	Members  staff.Repository
	Access   Authorizer
	Notifier notify.Notifier
	Logger   *logrus.Entry
}

type base struct {
	tx       store.Transactor
	members  staff.Repository
	access   Authorizer
	notifier notify.Notifier
	log      *logrus.Entry
	now      func() time.Time
}

func newBase(d Deps, component string) base {
	logger := d.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return base{
		tx:       d.Tx,
		members:  d.Members,
		access:   d.Access,
		notifier: d.Notifier,
		log:      logger.WithField("component", component),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// send delivers ev best-effort. A delivery failure is logged and never returned:
// the transition that produced ev has already been committed.
func (b *base) send(ctx context.Context, ev notify.Event) {
	if b.notifier == nil {
		return
	}
	if len(ev.Recipients) == 0 && len(ev.Roles) == 0 {
		return
	}
	if err := b.notifier.Notify(ctx, ev); err != nil {
		b.log.WithError(err).WithField("topic", ev.Topic).Error("Notification delivery failed")
	}
}

// requireMember checks that id belongs to an active member with role.
func (b *base) requireMember(ctx context.Context, field string, id uuid.UUID, role staff.Role) (*staff.Member, error) {
	if id == uuid.Nil {
		return nil, invalidf(field, "is required")
	}
	m, err := b.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, staff.ErrMemberNotFound) {
			return nil, invalidf(field, "does not reference a known member")
		}
		return nil, err
	}
	if !m.IsActive || m.Role != role {
		return nil, invalidf(field, "must reference an active "+string(role))
	}
	return m, nil
}

func recipients(ids ...uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			out = append(out, id)
		}
	}
	return out
}
