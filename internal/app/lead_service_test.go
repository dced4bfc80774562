package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/demo"
	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/notify"
	"tutorflow/internal/domain/payment"
	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

func TestScenarioLeadToApprovedAttendance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	l := f.createLead(t, nil)
	l, _, err := f.leads.PostLead(ctx, f.manager.ID, l.ID)
	if err != nil || l.Status != lead.StatusAnnounced {
		t.Fatalf("PostLead = %v, %v; want ANNOUNCED", l, err)
	}
	if _, err := f.interests.ExpressInterest(ctx, f.tutor.ID, l.ID); err != nil {
		t.Fatalf("ExpressInterest: %v", err)
	}
	l, h, err := f.leads.SelectTutorForDemo(ctx, f.manager.ID, SelectTutorInput{
		LeadID: l.ID, TutorID: f.tutor.ID, Date: day("2024-06-01"), Time: "17:00",
	})
	if err != nil {
		t.Fatalf("SelectTutorForDemo: %v", err)
	}
	if l.Status != lead.StatusDemoScheduled || h.Status != demo.StatusScheduled {
		t.Fatalf("after select lead=%s demo=%s", l.Status, h.Status)
	}

	h, l, err = f.demos.CompleteDemo(ctx, f.tutor.ID, h.ID, presentOutcome())
	if err != nil {
		t.Fatalf("CompleteDemo: %v", err)
	}
	if l.Status != lead.StatusDemoCompleted || h.Status != demo.StatusCompleted {
		t.Fatalf("after complete lead=%s demo=%s", l.Status, h.Status)
	}

	res, err := f.demos.ApproveDemo(ctx, f.manager.ID, ApproveDemoInput{DemoID: h.ID, CoordinatorID: f.coord.ID})
	if err != nil {
		t.Fatalf("ApproveDemo: %v", err)
	}
	fc := res.Class
	if res.Lead.Status != lead.StatusConverted || !res.Lead.ConvertedAt.Valid {
		t.Fatalf("lead = %s converted=%v, want CONVERTED", res.Lead.Status, res.Lead.ConvertedAt.Valid)
	}
	if fc.TutorID != f.tutor.ID || fc.CoordinatorID != f.coord.ID || fc.CompletedSessions != 0 || fc.Status != class.StatusActive {
		t.Fatalf("class = %+v", fc)
	}
	if fc.TotalSessions != 4 {
		t.Fatalf("TotalSessions = %d, want 4", fc.TotalSessions)
	}

	a, err := f.att.Submit(ctx, f.tutor.ID, SubmitAttendanceInput{
		ClassID: fc.ID, SessionDate: day("2024-06-08"), TopicCovered: "Linear equations", Mark: "PRESENT",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if a.Status != "PENDING" || a.SessionNumber != 1 {
		t.Fatalf("attendance = %s #%d, want PENDING #1", a.Status, a.SessionNumber)
	}
	if got := f.class(t, fc.ID).CompletedSessions; got != 1 {
		t.Fatalf("CompletedSessions = %d, want 1", got)
	}

	a, err = f.att.CoordinatorApprove(ctx, f.coord.ID, a.ID)
	if err != nil || a.Status != "COORDINATOR_APPROVED" {
		t.Fatalf("CoordinatorApprove = %v, %v", a, err)
	}
	a, err = f.att.ParentApprove(ctx, f.parent.ID, a.ID)
	if err != nil || a.Status != "PARENT_APPROVED" {
		t.Fatalf("ParentApprove = %v, %v", a, err)
	}
	if !a.Status.Terminal() {
		t.Fatalf("PARENT_APPROVED should be terminal")
	}
}

func TestPostLeadFromIllegalStatusLeavesLeadUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l, _ := f.scheduledDemo(t, nil)

	_, _, err := f.leads.PostLead(ctx, f.manager.ID, l.ID)
	if workflow.KindOf(err) != workflow.KindInvalidTransition {
		t.Fatalf("PostLead from DEMO_SCHEDULED = %v, want invalid transition", err)
	}
	if got := f.lead(t, l.ID); got.Status != lead.StatusDemoScheduled || got.Version != l.Version {
		t.Fatalf("lead = %s v%d, want DEMO_SCHEDULED v%d", got.Status, got.Version, l.Version)
	}
}

func TestCreateLeadRequiresManager(t *testing.T) {
	f := newFixture(t)
	_, err := f.leads.CreateLead(context.Background(), f.tutor.ID, f.leadInput())
	if !errors.Is(err, workflow.ErrForbidden) {
		t.Fatalf("CreateLead as tutor = %v, want forbidden", err)
	}
}

func TestSelectTutorRequiresInterestUnlessDirect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l := f.createLead(t, nil)
	f.postLead(t, l.ID)

	in := SelectTutorInput{LeadID: l.ID, TutorID: f.tutor2.ID, Date: day("2024-06-02"), Time: "10:00"}
	if _, _, err := f.leads.SelectTutorForDemo(ctx, f.manager.ID, in); !errors.Is(err, workflow.ErrInterestRequired) {
		t.Fatalf("select without interest = %v, want InterestRequired", err)
	}
	if got := f.lead(t, l.ID); got.Status != lead.StatusAnnounced {
		t.Fatalf("lead = %s, want ANNOUNCED", got.Status)
	}

	in.DirectAssign = true
	got, h, err := f.leads.SelectTutorForDemo(ctx, f.manager.ID, in)
	if err != nil {
		t.Fatalf("direct assign: %v", err)
	}
	if got.Status != lead.StatusDemoScheduled || h.TutorID != f.tutor2.ID {
		t.Fatalf("direct assign gave lead=%s tutor=%s", got.Status, h.TutorID)
	}
}

func TestSelectTutorRejectsSecondActiveDemo(t *testing.T) {
	f := newFixture(t)
	l, _ := f.scheduledDemo(t, nil)

	_, _, err := f.leads.SelectTutorForDemo(context.Background(), f.manager.ID, SelectTutorInput{
		LeadID: l.ID, TutorID: f.tutor2.ID, Date: day("2024-06-03"), Time: "10:00", DirectAssign: true,
	})
	if !errors.Is(err, workflow.ErrDemoAlreadyActive) {
		t.Fatalf("second demo = %v, want DemoAlreadyActive", err)
	}
}

func TestSelectTutorValidatesInput(t *testing.T) {
	f := newFixture(t)
	l := f.createLead(t, nil)
	f.postLead(t, l.ID)

	tests := []struct {
		name string
		in   SelectTutorInput
	}{
		{"missing tutor", SelectTutorInput{LeadID: l.ID, Date: day("2024-06-02"), Time: "10:00"}},
		{"coordinator as tutor", SelectTutorInput{LeadID: l.ID, TutorID: f.coord.ID, Date: day("2024-06-02"), Time: "10:00"}},
		{"missing date", SelectTutorInput{LeadID: l.ID, TutorID: f.tutor.ID, Time: "10:00"}},
		{"missing time", SelectTutorInput{LeadID: l.ID, TutorID: f.tutor.ID, Date: day("2024-06-02")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.leads.SelectTutorForDemo(context.Background(), f.manager.ID, tt.in)
			if workflow.KindOf(err) != workflow.KindValidation {
				t.Fatalf("err = %v, want validation", err)
			}
		})
	}
}

func TestMarkPaymentReceived(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	l, _ := f.completedDemo(t, nil)
	if _, err := f.leads.MarkPaymentReceived(ctx, f.manager.ID, l.ID); workflow.KindOf(err) != workflow.KindInvalidTransition {
		t.Fatalf("payment before conversion = %v, want invalid transition", err)
	}

	fc := f.activeClass(t)
	first, err := f.leads.MarkPaymentReceived(ctx, f.manager.ID, fc.LeadID)
	if err != nil {
		t.Fatalf("MarkPaymentReceived: %v", err)
	}
	if first.Status != lead.StatusPaymentReceived || !first.PaymentReceived {
		t.Fatalf("lead = %s paid=%v", first.Status, first.PaymentReceived)
	}
	second, err := f.leads.MarkPaymentReceived(ctx, f.manager.ID, fc.LeadID)
	if err != nil {
		t.Fatalf("second MarkPaymentReceived: %v", err)
	}
	if second.Version != first.Version {
		t.Fatalf("idempotent mark wrote the lead: v%d -> v%d", first.Version, second.Version)
	}
	if got := f.leads.PaymentStatus(second); got != payment.StatusPaid {
		t.Fatalf("PaymentStatus = %s, want PAID", got)
	}
}

func TestReassignManagerKeepsStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l, _ := f.scheduledDemo(t, nil)

	got, err := f.leads.ReassignManager(ctx, f.manager.ID, l.ID, f.manager2.ID)
	if err != nil {
		t.Fatalf("ReassignManager: %v", err)
	}
	if got.Status != lead.StatusDemoScheduled || got.ManagerID() != f.manager2.ID {
		t.Fatalf("lead = %s manager=%s", got.Status, got.ManagerID())
	}
	if evs := f.notifier.byTopic(notify.TopicLeadManagerReassigned); len(evs) != 1 || evs[0].Recipients[0] != f.manager2.ID {
		t.Fatalf("reassignment notifications = %+v", evs)
	}

	if _, err := f.leads.ReassignManager(ctx, f.manager.ID, l.ID, f.tutor.ID); workflow.KindOf(err) != workflow.KindValidation {
		t.Fatalf("reassign to tutor = %v, want validation", err)
	}
}

func TestNotificationFailureDoesNotUndoTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.err = errors.New("telegram is down")

	l := f.createLead(t, nil)
	got, _, err := f.leads.PostLead(ctx, f.manager.ID, l.ID)
	if err != nil {
		t.Fatalf("PostLead with failing notifier: %v", err)
	}
	if got.Status != lead.StatusAnnounced || f.lead(t, l.ID).Status != lead.StatusAnnounced {
		t.Fatalf("lead was not announced")
	}
	if len(f.notifier.byTopic(notify.TopicLeadAnnounced)) != 1 {
		t.Fatalf("announcement was not attempted")
	}
}

func TestListLeadsByStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.createLead(t, nil)
	f.advance(time.Minute)
	f.createLead(t, nil)
	f.postLead(t, a.ID)

	announced, err := f.leads.ListLeads(ctx, f.manager.ID, lead.StatusAnnounced)
	if err != nil {
		t.Fatalf("ListLeads: %v", err)
	}
	if len(announced) != 1 || announced[0].ID != a.ID {
		t.Fatalf("announced leads = %v", announced)
	}
	all, _ := f.leads.ListLeads(ctx, f.manager.ID, "")
	if len(all) != 2 {
		t.Fatalf("all leads = %d, want 2", len(all))
	}
	if _, err := f.leads.GetLead(ctx, f.manager.ID, uuid.New()); !errors.Is(err, lead.ErrLeadNotFound) {
		t.Fatalf("GetLead(unknown) = %v", err)
	}
}
