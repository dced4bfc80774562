package memstore

import (
	"context"
	"slices"
	"strings"

	"tutorflow/internal/domain/staff"

	"github.com/google/uuid"
)

type memberRepo struct{ s *Store }

func (r *memberRepo) Create(ctx context.Context, m *staff.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.TelegramID.Valid {
		for _, existing := range r.s.data.members {
			if existing.TelegramID.Valid && existing.TelegramID.Int64 == m.TelegramID.Int64 {
				return staff.ErrDuplicateTelegramID
			}
		}
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.s.data.members[m.ID] = copyMember(*m)
	return nil
}

func (r *memberRepo) GetByID(ctx context.Context, id uuid.UUID) (*staff.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.data.members[id]
	if !ok {
		return nil, staff.ErrMemberNotFound
	}
	out := copyMember(m)
	return &out, nil
}

func (r *memberRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*staff.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.data.members {
		if m.TelegramID.Valid && m.TelegramID.Int64 == telegramID {
			out := copyMember(m)
			return &out, nil
		}
	}
	return nil, staff.ErrMemberNotFound
}

func (r *memberRepo) Update(ctx context.Context, m *staff.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.members[m.ID]; !ok {
		return staff.ErrMemberNotFound
	}
	r.s.data.members[m.ID] = copyMember(*m)
	return nil
}

func (r *memberRepo) list(keep func(staff.Member) bool) []*staff.Member {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*staff.Member, 0)
	for _, m := range r.s.data.members {
		if keep(m) {
			c := copyMember(m)
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *staff.Member) int { return strings.Compare(a.FullName(), b.FullName()) })
	return out
}

func (r *memberRepo) ListActive(ctx context.Context) ([]*staff.Member, error) {
	return r.list(func(m staff.Member) bool { return m.IsActive }), nil
}

func (r *memberRepo) ListActiveByRole(ctx context.Context, role staff.Role) ([]*staff.Member, error) {
	return r.list(func(m staff.Member) bool { return m.IsActive && m.Role == role }), nil
}

func (r *memberRepo) ListAll(ctx context.Context) ([]*staff.Member, error) {
	return r.list(func(staff.Member) bool { return true }), nil
}
