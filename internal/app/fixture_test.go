package app

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/demo"
	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/notify"
	"tutorflow/internal/domain/payment"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/infra/memstore"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) byTopic(topic notify.Topic) []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Event
	for _, ev := range n.events {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	store    *memstore.Store
	notifier *recordingNotifier

	access    *DirectoryAuthorizer
	leads     *LeadService
	interests *InterestLedger
	demos     *DemoService
	classes   *ClassService
	att       *AttendanceService
	jobs      *NotificationServiceImpl
	admin     *AdminService

	admin0, manager, manager2, tutor, tutor2, coord, coord2, parent *staff.Member

	now time.Time
}

const adminTelegramID = 1000

var paymentRule = payment.Rule{DueAfter: 7 * 24 * time.Hour}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	f := &fixture{
		store:    memstore.New(),
		notifier: &recordingNotifier{},
		now:      time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	members := f.store.Members()
	f.access = NewDirectoryAuthorizer(members)
	d := Deps{
		Tx:       f.store,
		Members:  members,
		Access:   f.access,
		Notifier: f.notifier,
		Logger:   logrus.NewEntry(logger),
	}
	f.leads = NewLeadService(d, paymentRule)
	f.interests = NewInterestLedger(d)
	f.demos = NewDemoService(d)
	f.classes = NewClassService(d)
	f.att = NewAttendanceService(d)
	f.jobs = NewNotificationServiceImpl(d, 24*time.Hour, paymentRule)
	f.admin = NewAdminService(members, f.access, adminTelegramID, logrus.NewEntry(logger))
	f.setClock(f.now)

	add := func(name string, role staff.Role, tg int64) *staff.Member {
		m := &staff.Member{
			ID:        uuid.New(),
			FirstName: name,
			Role:      role,
			IsActive:  true,
		}
		if tg != 0 {
			m.TelegramID = sql.NullInt64{Int64: tg, Valid: true}
		}
		if role == staff.RoleTutor {
			m.Subjects = []string{"Math", "Physics"}
			m.Grades = []string{"10"}
			m.Modes = []string{"ONLINE"}
		}
		if err := members.Create(ctx, m); err != nil {
			t.Fatalf("seed member %s: %v", name, err)
		}
		return m
	}
	f.admin0 = add("Ada", staff.RoleAdmin, adminTelegramID)
	f.manager = add("Mira", staff.RoleManager, 1001)
	f.manager2 = add("Milan", staff.RoleManager, 1002)
	f.tutor = add("Tomas", staff.RoleTutor, 1003)
	f.tutor2 = add("Tara", staff.RoleTutor, 1004)
	f.coord = add("Cleo", staff.RoleCoordinator, 1005)
	f.coord2 = add("Cyrus", staff.RoleCoordinator, 1006)
	f.parent = add("Priya", staff.RoleParent, 1007)
	return f
}

func (f *fixture) setClock(now time.Time) {
	f.now = now
	clock := func() time.Time { return now }
	f.leads.now = clock
	f.interests.now = clock
	f.demos.now = clock
	f.classes.now = clock
	f.att.now = clock
	f.jobs.now = clock
	f.admin.now = clock
}

func (f *fixture) advance(d time.Duration) { f.setClock(f.now.Add(d)) }

func day(s string) time.Time {
	t, err := class.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (f *fixture) leadInput() lead.NewLeadInput {
	return lead.NewLeadInput{
		StudentType:   lead.StudentSingle,
		StudentName:   "Asha",
		Grade:         "10",
		Subjects:      []string{"Math"},
		Mode:          lead.ModeOnline,
		Fee:           8000,
		TutorFee:      5000,
		PreferredDays: []string{"saturday"},
		PreferredTime: "17:00",
		ParentID:      uuid.NullUUID{UUID: f.parent.ID, Valid: true},
	}
}

func (f *fixture) createLead(t *testing.T, mutate func(*lead.NewLeadInput)) *lead.ClassLead {
	t.Helper()
	in := f.leadInput()
	if mutate != nil {
		mutate(&in)
	}
	l, err := f.leads.CreateLead(context.Background(), f.manager.ID, in)
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	return l
}

func (f *fixture) postLead(t *testing.T, leadID uuid.UUID) *lead.Announcement {
	t.Helper()
	_, ann, err := f.leads.PostLead(context.Background(), f.manager.ID, leadID)
	if err != nil {
		t.Fatalf("PostLead: %v", err)
	}
	return ann
}

// scheduledDemo returns an announced lead whose demo with f.tutor is SCHEDULED.
func (f *fixture) scheduledDemo(t *testing.T, mutate func(*lead.NewLeadInput)) (*lead.ClassLead, *demo.History) {
	t.Helper()
	ctx := context.Background()
	l := f.createLead(t, mutate)
	f.postLead(t, l.ID)
	if _, err := f.interests.ExpressInterest(ctx, f.tutor.ID, l.ID); err != nil {
		t.Fatalf("ExpressInterest: %v", err)
	}
	l, h, err := f.leads.SelectTutorForDemo(ctx, f.manager.ID, SelectTutorInput{
		LeadID:  l.ID,
		TutorID: f.tutor.ID,
		Date:    day("2024-06-01"),
		Time:    "17:00",
	})
	if err != nil {
		t.Fatalf("SelectTutorForDemo: %v", err)
	}
	return l, h
}

func presentOutcome() demo.Outcome {
	return demo.Outcome{Attendance: demo.AttendancePresent, TopicCovered: "Algebra", Duration: "1hr", Feedback: "Engaged"}
}

func (f *fixture) completedDemo(t *testing.T, mutate func(*lead.NewLeadInput)) (*lead.ClassLead, *demo.History) {
	t.Helper()
	_, h := f.scheduledDemo(t, mutate)
	h, l, err := f.demos.CompleteDemo(context.Background(), f.tutor.ID, h.ID, presentOutcome())
	if err != nil {
		t.Fatalf("CompleteDemo: %v", err)
	}
	return l, h
}

func (f *fixture) activeClass(t *testing.T) *class.FinalClass {
	t.Helper()
	_, h := f.completedDemo(t, nil)
	res, err := f.demos.ApproveDemo(context.Background(), f.manager.ID, ApproveDemoInput{DemoID: h.ID, CoordinatorID: f.coord.ID})
	if err != nil {
		t.Fatalf("ApproveDemo: %v", err)
	}
	return res.Class
}

func (f *fixture) lead(t *testing.T, id uuid.UUID) *lead.ClassLead {
	t.Helper()
	l, err := f.leads.GetLead(context.Background(), f.manager.ID, id)
	if err != nil {
		t.Fatalf("GetLead: %v", err)
	}
	return l
}

func (f *fixture) class(t *testing.T, id uuid.UUID) *class.FinalClass {
	t.Helper()
	fc, err := f.classes.GetClass(context.Background(), f.manager.ID, id)
	if err != nil {
		t.Fatalf("GetClass: %v", err)
	}
	return fc
}
