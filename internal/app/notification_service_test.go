package app

import (
	"context"
	"testing"
	"time"

	"tutorflow/internal/domain/notify"
)

func TestSendApprovalReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	fc := f.activeClass(t)
	pending := f.submit(t, fc.ID, "2024-06-08")
	approved := f.submit(t, fc.ID, "2024-06-15")
	if _, err := f.att.CoordinatorApprove(ctx, f.coord.ID, approved.ID); err != nil {
		t.Fatalf("CoordinatorApprove: %v", err)
	}

	sent, err := f.jobs.SendApprovalReminders(ctx)
	if err != nil || sent != 0 {
		t.Fatalf("fresh records: sent=%d err=%v, want 0", sent, err)
	}

	f.advance(48 * time.Hour)
	sent, err = f.jobs.SendApprovalReminders(ctx)
	if err != nil {
		t.Fatalf("SendApprovalReminders: %v", err)
	}
	if sent != 2 {
		t.Fatalf("sent = %d, want 2", sent)
	}
	evs := f.notifier.byTopic(notify.TopicApprovalReminder)
	if len(evs) != 2 {
		t.Fatalf("reminders = %d, want 2", len(evs))
	}
	got := map[string]bool{}
	for _, ev := range evs {
		got[ev.Recipients[0].String()+"/"+ev.AttendanceID.UUID.String()] = true
	}
	if !got[f.coord.ID.String()+"/"+pending.ID.String()] || !got[f.parent.ID.String()+"/"+approved.ID.String()] {
		t.Fatalf("reminders went to the wrong people: %v", got)
	}
}

func TestSweepOverduePayments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	fc := f.activeClass(t)

	if n, err := f.jobs.SweepOverduePayments(ctx); err != nil || n != 0 {
		t.Fatalf("sweep at conversion = %d, %v; want 0", n, err)
	}

	f.advance(8 * 24 * time.Hour)
	n, err := f.jobs.SweepOverduePayments(ctx)
	if err != nil || n != 1 {
		t.Fatalf("sweep after due date = %d, %v; want 1", n, err)
	}
	if evs := f.notifier.byTopic(notify.TopicPaymentOverdue); len(evs) != 1 || evs[0].Recipients[0] != f.manager.ID {
		t.Fatalf("overdue notifications = %+v", evs)
	}

	if _, err := f.leads.MarkPaymentReceived(ctx, f.manager.ID, fc.LeadID); err != nil {
		t.Fatalf("MarkPaymentReceived: %v", err)
	}
	if n, _ := f.jobs.SweepOverduePayments(ctx); n != 0 {
		t.Fatalf("sweep after payment = %d, want 0", n)
	}
}
