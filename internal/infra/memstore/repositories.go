package memstore

import (
	"context"
	"slices"
	"time"

	"tutorflow/internal/domain/attendance"
	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/demo"
	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

// --- Leads, announcements and interests ---

type leadRepo struct{ u *unit }

func (r *leadRepo) Create(ctx context.Context, l *lead.ClassLead) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	r.u.d.leads[l.ID] = copyLead(*l)
	return nil
}

func (r *leadRepo) GetByID(ctx context.Context, id uuid.UUID) (*lead.ClassLead, error) {
	l, ok := r.u.d.leads[id]
	if !ok {
		return nil, lead.ErrLeadNotFound
	}
	out := copyLead(l)
	return &out, nil
}

func (r *leadRepo) Update(ctx context.Context, l *lead.ClassLead) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	stored, ok := r.u.d.leads[l.ID]
	if !ok {
		return lead.ErrLeadNotFound
	}
	if stored.Version != l.Version {
		return workflow.ErrConcurrencyConflict
	}
	l.Version++
	r.u.d.leads[l.ID] = copyLead(*l)
	return nil
}

func (r *leadRepo) ListByStatus(ctx context.Context, status lead.Status) ([]*lead.ClassLead, error) {
	out := make([]*lead.ClassLead, 0)
	for _, l := range r.u.d.leads {
		if status != "" && l.Status != status {
			continue
		}
		c := copyLead(l)
		out = append(out, &c)
	}
	slices.SortFunc(out, func(a, b *lead.ClassLead) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (r *leadRepo) CreateAnnouncement(ctx context.Context, a *lead.Announcement) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	r.u.d.announcements[a.ID] = *a
	return nil
}

func (r *leadRepo) GetActiveAnnouncement(ctx context.Context, leadID uuid.UUID) (*lead.Announcement, error) {
	for _, a := range r.u.d.announcements {
		if a.LeadID == leadID && a.Active {
			out := a
			return &out, nil
		}
	}
	return nil, lead.ErrAnnouncementNotFound
}

func (r *leadRepo) CloseAnnouncement(ctx context.Context, announcementID uuid.UUID, at time.Time) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	a, ok := r.u.d.announcements[announcementID]
	if !ok {
		return lead.ErrAnnouncementNotFound
	}
	a.Active = false
	a.ClosedAt.Time, a.ClosedAt.Valid = at, true
	r.u.d.announcements[announcementID] = a
	return nil
}

func (r *leadRepo) AddInterest(ctx context.Context, i *lead.Interest) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	for _, existing := range r.u.d.interests {
		if existing.AnnouncementID == i.AnnouncementID && existing.TutorID == i.TutorID {
			return lead.ErrDuplicateInterest
		}
	}
	r.u.d.interests[i.ID] = *i
	return nil
}

func (r *leadRepo) GetInterest(ctx context.Context, announcementID, tutorID uuid.UUID) (*lead.Interest, error) {
	for _, i := range r.u.d.interests {
		if i.AnnouncementID == announcementID && i.TutorID == tutorID {
			out := i
			return &out, nil
		}
	}
	return nil, lead.ErrInterestNotFound
}

func (r *leadRepo) ListInterests(ctx context.Context, announcementID uuid.UUID) ([]*lead.Interest, error) {
	out := make([]*lead.Interest, 0)
	for _, i := range r.u.d.interests {
		if i.AnnouncementID == announcementID {
			c := i
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *lead.Interest) int {
		if a.MatchScore != b.MatchScore {
			return b.MatchScore - a.MatchScore
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

// --- Demos ---

type demoRepo struct{ u *unit }

func (r *demoRepo) Create(ctx context.Context, h *demo.History) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	r.u.d.demos[h.ID] = *h
	return nil
}

func (r *demoRepo) GetByID(ctx context.Context, id uuid.UUID) (*demo.History, error) {
	h, ok := r.u.d.demos[id]
	if !ok {
		return nil, demo.ErrDemoNotFound
	}
	return &h, nil
}

func (r *demoRepo) Update(ctx context.Context, h *demo.History) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	stored, ok := r.u.d.demos[h.ID]
	if !ok {
		return demo.ErrDemoNotFound
	}
	if stored.Version != h.Version {
		return workflow.ErrConcurrencyConflict
	}
	h.Version++
	r.u.d.demos[h.ID] = *h
	return nil
}

func (r *demoRepo) ListByLead(ctx context.Context, leadID uuid.UUID) ([]*demo.History, error) {
	out := make([]*demo.History, 0)
	for _, h := range r.u.d.demos {
		if h.LeadID == leadID {
			c := h
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *demo.History) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (r *demoRepo) GetActiveByLead(ctx context.Context, leadID uuid.UUID) (*demo.History, error) {
	for _, h := range r.u.d.demos {
		if h.LeadID == leadID && h.Status.Active() {
			c := h
			return &c, nil
		}
	}
	return nil, demo.ErrDemoNotFound
}

// --- Classes ---

type classRepo struct{ u *unit }

func (r *classRepo) Create(ctx context.Context, c *class.FinalClass) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	for _, existing := range r.u.d.classes {
		if existing.LeadID == c.LeadID {
			return class.ErrClassExistsForLead
		}
	}
	r.u.d.classes[c.ID] = copyClass(*c)
	return nil
}

func (r *classRepo) GetByID(ctx context.Context, id uuid.UUID) (*class.FinalClass, error) {
	c, ok := r.u.d.classes[id]
	if !ok {
		return nil, class.ErrClassNotFound
	}
	out := copyClass(c)
	return &out, nil
}

func (r *classRepo) GetByLeadID(ctx context.Context, leadID uuid.UUID) (*class.FinalClass, error) {
	for _, c := range r.u.d.classes {
		if c.LeadID == leadID {
			out := copyClass(c)
			return &out, nil
		}
	}
	return nil, class.ErrClassNotFound
}

func (r *classRepo) Update(ctx context.Context, c *class.FinalClass) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	stored, ok := r.u.d.classes[c.ID]
	if !ok {
		return class.ErrClassNotFound
	}
	if stored.Version != c.Version {
		return workflow.ErrConcurrencyConflict
	}
	c.Version++
	r.u.d.classes[c.ID] = copyClass(*c)
	return nil
}

func (r *classRepo) ListByStatus(ctx context.Context, status class.Status) ([]*class.FinalClass, error) {
	out := make([]*class.FinalClass, 0)
	for _, c := range r.u.d.classes {
		if status != "" && c.Status != status {
			continue
		}
		cc := copyClass(c)
		out = append(out, &cc)
	}
	slices.SortFunc(out, func(a, b *class.FinalClass) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

// --- Attendance ---

type attendanceRepo struct{ u *unit }

func (r *attendanceRepo) Create(ctx context.Context, a *attendance.Attendance) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	for _, existing := range r.u.d.attendance {
		if existing.FinalClassID == a.FinalClassID && existing.SessionDate.Equal(a.SessionDate) {
			return attendance.ErrDuplicateSession
		}
	}
	r.u.d.attendance[a.ID] = *a
	return nil
}

func (r *attendanceRepo) GetByID(ctx context.Context, id uuid.UUID) (*attendance.Attendance, error) {
	a, ok := r.u.d.attendance[id]
	if !ok {
		return nil, attendance.ErrAttendanceNotFound
	}
	return &a, nil
}

func (r *attendanceRepo) GetByClassAndDate(ctx context.Context, classID uuid.UUID, date time.Time) (*attendance.Attendance, error) {
	day := class.DateOnly(date)
	for _, a := range r.u.d.attendance {
		if a.FinalClassID == classID && a.SessionDate.Equal(day) {
			out := a
			return &out, nil
		}
	}
	return nil, attendance.ErrAttendanceNotFound
}

func (r *attendanceRepo) Update(ctx context.Context, a *attendance.Attendance) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	stored, ok := r.u.d.attendance[a.ID]
	if !ok {
		return attendance.ErrAttendanceNotFound
	}
	if stored.Version != a.Version {
		return workflow.ErrConcurrencyConflict
	}
	a.Version++
	r.u.d.attendance[a.ID] = *a
	return nil
}

func (r *attendanceRepo) ListByClass(ctx context.Context, classID uuid.UUID) ([]*attendance.Attendance, error) {
	out := make([]*attendance.Attendance, 0)
	for _, a := range r.u.d.attendance {
		if a.FinalClassID == classID {
			c := a
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *attendance.Attendance) int { return a.SessionDate.Compare(b.SessionDate) })
	return out, nil
}

func (r *attendanceRepo) ListAwaiting(ctx context.Context, status attendance.Status, cutoff time.Time) ([]*attendance.Attendance, error) {
	out := make([]*attendance.Attendance, 0)
	for _, a := range r.u.d.attendance {
		if a.Status == status && a.UpdatedAt.Before(cutoff) {
			c := a
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *attendance.Attendance) int { return a.UpdatedAt.Compare(b.UpdatedAt) })
	return out, nil
}
