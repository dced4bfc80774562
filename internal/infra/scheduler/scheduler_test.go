package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeNotifications struct {
	mu        sync.Mutex
	reminders int
	sweeps    int
	err       error
}

func (f *fakeNotifications) SendApprovalReminders(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reminders++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("job ran without a deadline")
	}
	return 2, f.err
}

func (f *fakeNotifications) SweepOverduePayments(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	return 1, f.err
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := NewNotificationScheduler(&fakeNotifications{}, quietLogger(), "not a spec", "0 9 * * *")
	if err := s.Start(); err == nil {
		t.Fatal("Start succeeded with an invalid cron spec")
	}
}

func TestStartAndStop(t *testing.T) {
	s := NewNotificationScheduler(&fakeNotifications{}, quietLogger(), "0 */3 * * *", "0 9 * * *")
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if n := len(s.cronEngine.Entries()); n != 2 {
		t.Fatalf("entries = %d, want 2", n)
	}
	s.Stop()
}

func TestRunJob(t *testing.T) {
	fake := &fakeNotifications{}
	s := NewNotificationScheduler(fake, quietLogger(), "", "")

	if got := s.runJob("approval_reminders", time.Second, fake.SendApprovalReminders); got != 2 {
		t.Fatalf("runJob = %d, want 2", got)
	}
	fake.err = errors.New("db down")
	s.runJob("payment_sweep", time.Second, fake.SweepOverduePayments)
	if fake.reminders != 1 || fake.sweeps != 1 {
		t.Fatalf("reminders=%d sweeps=%d", fake.reminders, fake.sweeps)
	}
}
