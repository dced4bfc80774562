package database

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"tutorflow/internal/app"
	"tutorflow/internal/domain/attendance"
	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/demo"
	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/payment"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/store"
	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// These tests run against a real Postgres when TEST_DATABASE_URL is set.
// They truncate every workflow table, so point it at a throwaway database.

type pgFixture struct {
	store *Store

	leads     *app.LeadService
	interests *app.InterestLedger
	demos     *app.DemoService
	classes   *app.ClassService
	att       *app.AttendanceService

	manager, tutor, coord, parent *staff.Member
}

func newPGFixture(t *testing.T) *pgFixture {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	ctx := context.Background()

	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	db, err := NewPostgresConnection(ctx, dsn)
	if err != nil {
		t.Fatalf("NewPostgresConnection: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := RunMigrations(ctx, db, log); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if _, err := db.ExecContext(ctx, `TRUNCATE attendance, final_classes, demo_histories, interests,
		announcements, class_leads, members CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}

	st := NewStore(db)
	members := st.Members()
	access := app.NewDirectoryAuthorizer(members)
	d := app.Deps{Tx: st, Members: members, Access: access, Logger: log}
	f := &pgFixture{
		store:     st,
		leads:     app.NewLeadService(d, payment.Rule{DueAfter: 7 * 24 * time.Hour}),
		interests: app.NewInterestLedger(d),
		demos:     app.NewDemoService(d),
		classes:   app.NewClassService(d),
		att:       app.NewAttendanceService(d),
	}

	add := func(name string, role staff.Role, tg int64) *staff.Member {
		m := &staff.Member{
			ID:         uuid.New(),
			TelegramID: sql.NullInt64{Int64: tg, Valid: true},
			FirstName:  name,
			Role:       role,
			IsActive:   true,
		}
		if role == staff.RoleTutor {
			m.Subjects, m.Grades, m.Modes = []string{"Math"}, []string{"10"}, []string{"ONLINE"}
		}
		if err := members.Create(ctx, m); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
		return m
	}
	f.manager = add("Mira", staff.RoleManager, 5001)
	f.tutor = add("Tomas", staff.RoleTutor, 5002)
	f.coord = add("Cleo", staff.RoleCoordinator, 5003)
	f.parent = add("Priya", staff.RoleParent, 5004)
	return f
}

func pgDay(s string) time.Time {
	d, err := class.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// activeClass drives a lead from creation to a provisioned class.
func (f *pgFixture) activeClass(t *testing.T) (*lead.ClassLead, *class.FinalClass) {
	t.Helper()
	ctx := context.Background()

	l, err := f.leads.CreateLead(ctx, f.manager.ID, lead.NewLeadInput{
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
	})
	if err != nil {
		t.Fatalf("CreateLead: %v", err)
	}
	if _, _, err := f.leads.PostLead(ctx, f.manager.ID, l.ID); err != nil {
		t.Fatalf("PostLead: %v", err)
	}
	first, err := f.interests.ExpressInterest(ctx, f.tutor.ID, l.ID)
	if err != nil {
		t.Fatalf("ExpressInterest: %v", err)
	}
	again, err := f.interests.ExpressInterest(ctx, f.tutor.ID, l.ID)
	if err != nil || again.ID != first.ID {
		t.Fatalf("repeated ExpressInterest = %v, %v; want the existing interest", again, err)
	}

	_, h, err := f.leads.SelectTutorForDemo(ctx, f.manager.ID, app.SelectTutorInput{
		LeadID: l.ID, TutorID: f.tutor.ID, Date: pgDay("2024-06-01"), Time: "17:00",
	})
	if err != nil {
		t.Fatalf("SelectTutorForDemo: %v", err)
	}
	_, _, err = f.leads.SelectTutorForDemo(ctx, f.manager.ID, app.SelectTutorInput{
		LeadID: l.ID, TutorID: f.tutor.ID, Date: pgDay("2024-06-02"), Time: "17:00",
	})
	if !errors.Is(err, workflow.ErrDemoAlreadyActive) {
		t.Fatalf("second demo = %v, want DEMO_ALREADY_ACTIVE", err)
	}

	if _, _, err := f.demos.CompleteDemo(ctx, f.tutor.ID, h.ID, demo.Outcome{
		Attendance: demo.AttendancePresent, TopicCovered: "Algebra", Duration: "1hr", Feedback: "Engaged",
	}); err != nil {
		t.Fatalf("CompleteDemo: %v", err)
	}
	res, err := f.demos.ApproveDemo(ctx, f.manager.ID, app.ApproveDemoInput{DemoID: h.ID, CoordinatorID: f.coord.ID})
	if err != nil {
		t.Fatalf("ApproveDemo: %v", err)
	}
	if res.Lead.Status != lead.StatusConverted || res.Demo.Status != demo.StatusApproved {
		t.Fatalf("after approval lead=%s demo=%s", res.Lead.Status, res.Demo.Status)
	}
	return res.Lead, res.Class
}

func (f *pgFixture) submit(t *testing.T, classID uuid.UUID, date string) *attendance.Attendance {
	t.Helper()
	a, err := f.att.Submit(context.Background(), f.tutor.ID, app.SubmitAttendanceInput{
		ClassID: classID, SessionDate: pgDay(date), TopicCovered: "Fractions", Mark: attendance.MarkPresent,
	})
	if err != nil {
		t.Fatalf("Submit(%s): %v", date, err)
	}
	return a
}

func TestPostgresRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newPGFixture(t)
	l, fc := f.activeClass(t)

	// More sessions than the monthly plan.
	var records []*attendance.Attendance
	for _, date := range []string{"2024-06-01", "2024-06-08", "2024-06-15", "2024-06-22", "2024-06-29"} {
		records = append(records, f.submit(t, fc.ID, date))
	}
	got, err := f.classes.GetClass(ctx, f.manager.ID, fc.ID)
	if err != nil {
		t.Fatalf("GetClass: %v", err)
	}
	if got.CompletedSessions != 5 || got.TotalSessions != 4 {
		t.Fatalf("sessions = %d/%d, want 5/4", got.CompletedSessions, got.TotalSessions)
	}

	if _, err := f.att.Submit(ctx, f.tutor.ID, app.SubmitAttendanceInput{
		ClassID: fc.ID, SessionDate: pgDay("2024-06-03"), TopicCovered: "Fractions", Mark: attendance.MarkPresent,
	}); !errors.Is(err, workflow.ErrNotAScheduledDay) {
		t.Fatalf("Monday session = %v, want NOT_A_SCHEDULED_DAY", err)
	}

	first := records[0]
	if _, err := f.att.ParentApprove(ctx, f.parent.ID, first.ID); !errors.Is(err, workflow.ErrCoordinatorApprovalRequired) {
		t.Fatalf("early ParentApprove = %v", err)
	}
	if _, err := f.att.CoordinatorApprove(ctx, f.coord.ID, first.ID); err != nil {
		t.Fatalf("CoordinatorApprove: %v", err)
	}
	approved, err := f.att.ParentApprove(ctx, f.parent.ID, first.ID)
	if err != nil {
		t.Fatalf("ParentApprove: %v", err)
	}
	if approved.Status != attendance.StatusParentApproved || approved.Version != 3 {
		t.Fatalf("attendance = %s v%d, want %s v3", approved.Status, approved.Version, attendance.StatusParentApproved)
	}

	rejected, err := f.att.Reject(ctx, f.coord.ID, records[1].ID, "wrong topic")
	if err != nil || rejected.Status != attendance.StatusRejected {
		t.Fatalf("Reject = %v, %v", rejected, err)
	}

	paid, err := f.leads.MarkPaymentReceived(ctx, f.manager.ID, l.ID)
	if err != nil || paid.Status != lead.StatusPaymentReceived {
		t.Fatalf("MarkPaymentReceived = %v, %v", paid, err)
	}

	list, err := f.att.List(ctx, f.manager.ID, fc.ID)
	if err != nil || len(list) != 5 {
		t.Fatalf("List = %d, %v; want 5", len(list), err)
	}
}

func TestPostgresConcurrentSubmissions(t *testing.T) {
	ctx := context.Background()
	f := newPGFixture(t)
	_, fc := f.activeClass(t)

	const n = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  []uuid.UUID
		reported []uuid.UUID
		others   []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := f.att.Submit(ctx, f.tutor.ID, app.SubmitAttendanceInput{
				ClassID: fc.ID, SessionDate: pgDay("2024-06-08"), TopicCovered: "Fractions", Mark: attendance.MarkPresent,
			})
			mu.Lock()
			defer mu.Unlock()
			var already *workflow.AlreadySubmittedError
			switch {
			case err == nil:
				created = append(created, a.ID)
			case errors.As(err, &already):
				reported = append(reported, already.AttendanceID)
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if len(created) != 1 || len(reported) != n-1 {
		t.Fatalf("created=%d already=%d, want 1 and %d", len(created), len(reported), n-1)
	}
	for _, id := range reported {
		if id != created[0] {
			t.Fatalf("AlreadySubmitted pointed at %s, want %s", id, created[0])
		}
	}
	got, err := f.classes.GetClass(ctx, f.manager.ID, fc.ID)
	if err != nil || got.CompletedSessions != 1 {
		t.Fatalf("CompletedSessions = %v, %v; want 1", got, err)
	}
}

func TestPostgresRepositoryConstraints(t *testing.T) {
	ctx := context.Background()
	f := newPGFixture(t)
	_, fc := f.activeClass(t)
	a := f.submit(t, fc.ID, "2024-06-15")

	var stale *class.FinalClass
	if err := f.store.View(ctx, func(uow store.UnitOfWork) error {
		var err error
		stale, err = uow.Classes().GetByID(ctx, fc.ID)
		return err
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
	if _, err := f.classes.ReassignParent(ctx, f.manager.ID, fc.ID, f.parent.ID); err != nil {
		t.Fatalf("ReassignParent: %v", err)
	}
	err := f.store.WithinTx(ctx, func(uow store.UnitOfWork) error {
		stale.CompletedSessions = 0
		return uow.Classes().Update(ctx, stale)
	})
	if !errors.Is(err, workflow.ErrConcurrencyConflict) {
		t.Fatalf("stale class update = %v, want concurrency conflict", err)
	}

	err = f.store.WithinTx(ctx, func(uow store.UnitOfWork) error {
		dup := *a
		dup.ID = uuid.New()
		return uow.Attendance().Create(ctx, &dup)
	})
	if !errors.Is(err, attendance.ErrDuplicateSession) {
		t.Fatalf("duplicate session insert = %v, want ErrDuplicateSession", err)
	}

	err = f.store.WithinTx(ctx, func(uow store.UnitOfWork) error {
		_, err := uow.Classes().GetByID(ctx, uuid.New())
		return err
	})
	if !errors.Is(err, class.ErrClassNotFound) {
		t.Fatalf("missing class = %v, want ErrClassNotFound", err)
	}

	bound, err := f.classes.GetClass(ctx, f.manager.ID, fc.ID)
	if err != nil || !bound.ParentID.Valid || bound.ParentID.UUID != f.parent.ID {
		t.Fatalf("parent after reassignment = %v, %v", bound, err)
	}
}
