// Package memstore is an in-process implementation of the store and staff
// repositories. A write transaction holds a store-wide lock and restores a
// snapshot when it fails, so it has the same all-or-nothing behavior as the
// Postgres store. The staff directory shares the same lock, so Members must
// not be used from inside WithinTx or View.
package memstore

import (
	"context"
	"errors"
	"slices"
	"sync"

	"tutorflow/internal/domain/attendance"
	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/demo"
	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/store"

	"github.com/google/uuid"
)

var errReadOnly = errors.New("memstore: write attempted in a read-only view")

type dataset struct {
	leads         map[uuid.UUID]lead.ClassLead
	announcements map[uuid.UUID]lead.Announcement
	interests     map[uuid.UUID]lead.Interest
	demos         map[uuid.UUID]demo.History
	classes       map[uuid.UUID]class.FinalClass
	attendance    map[uuid.UUID]attendance.Attendance
	members       map[uuid.UUID]staff.Member
}

func newDataset() *dataset {
	return &dataset{
		leads:         map[uuid.UUID]lead.ClassLead{},
		announcements: map[uuid.UUID]lead.Announcement{},
		interests:     map[uuid.UUID]lead.Interest{},
		demos:         map[uuid.UUID]demo.History{},
		classes:       map[uuid.UUID]class.FinalClass{},
		attendance:    map[uuid.UUID]attendance.Attendance{},
		members:       map[uuid.UUID]staff.Member{},
	}
}

// snapshot copies the maps; values are already deep copies owned by the store.
func (d *dataset) snapshot() *dataset {
	return &dataset{
		leads:         cloneMap(d.leads),
		announcements: cloneMap(d.announcements),
		interests:     cloneMap(d.interests),
		demos:         cloneMap(d.demos),
		classes:       cloneMap(d.classes),
		attendance:    cloneMap(d.attendance),
		members:       cloneMap(d.members),
	}
}

func cloneMap[V any](m map[uuid.UUID]V) map[uuid.UUID]V {
	out := make(map[uuid.UUID]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store is safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data *dataset
}

// New returns an empty store.
func New() *Store {
	return &Store{data: newDataset()}
}

var _ store.Transactor = (*Store)(nil)

// WithinTx implements store.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(uow store.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.data.snapshot()
	if err := fn(&unit{d: s.data}); err != nil {
		s.data = before
		return err
	}
	return nil
}

// View implements store.Transactor.
func (s *Store) View(ctx context.Context, fn func(uow store.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&unit{d: s.data, readOnly: true})
}

// Members returns the staff directory backed by this store.
func (s *Store) Members() staff.Repository {
	return &memberRepo{s: s}
}

type unit struct {
	d        *dataset
	readOnly bool
}

func (u *unit) Leads() lead.Repository { return &leadRepo{u} }
func (u *unit) Demos() demo.Repository { return &demoRepo{u} }
func (u *unit) Classes() class.Repository { return &classRepo{u} }
func (u *unit) Attendance() attendance.Repository { return &attendanceRepo{u} }

func (u *unit) writable() error {
	if u.readOnly {
		return errReadOnly
	}
	return nil
}

func copyLead(l lead.ClassLead) lead.ClassLead {
	l.Students = slices.Clone(l.Students)
	l.Subjects = slices.Clone(l.Subjects)
	l.PreferredDays = slices.Clone(l.PreferredDays)
	return l
}

func copyClass(c class.FinalClass) class.FinalClass {
	c.Subjects = slices.Clone(c.Subjects)
	c.Schedule.DaysOfWeek = slices.Clone(c.Schedule.DaysOfWeek)
	return c
}

func copyMember(m staff.Member) staff.Member {
	m.Subjects = slices.Clone(m.Subjects)
	m.Grades = slices.Clone(m.Grades)
	m.Modes = slices.Clone(m.Modes)
	return m
}
