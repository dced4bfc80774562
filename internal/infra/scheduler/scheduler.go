package scheduler

import (
	"context"
	"fmt"
	"time"

	"tutorflow/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	approvalJobTimeout = 1 * time.Minute
	paymentJobTimeout  = 5 * time.Minute
)

type NotificationScheduler struct {
	cronEngine        *cron.Cron
	notifService      app.NotificationService
	log               *logrus.Entry
	cronSpecApprovals string
	cronSpecPayments  string
}

func NewNotificationScheduler(
	notifService app.NotificationService,
	log *logrus.Entry,
	cronSpecApprovals string,
	cronSpecPayments string,
) *NotificationScheduler {
	return &NotificationScheduler{
		cronEngine:        cron.New(cron.WithLocation(time.Local)),
		notifService:      notifService,
		log:               log,
		cronSpecApprovals: cronSpecApprovals,
		cronSpecPayments:  cronSpecPayments,
	}
}

// Start registers the jobs and starts the cron engine. It fails without
// starting anything if a cron spec does not parse.
func (s *NotificationScheduler) Start() error {
	s.log.Info("Starting notification scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecApprovals, func() {
		s.runJob("approval_reminders", approvalJobTimeout, s.notifService.SendApprovalReminders)
	})
	if err != nil {
		return fmt.Errorf("could not add approval reminder cron job: %w", err)
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecPayments, func() {
		s.runJob("payment_sweep", paymentJobTimeout, s.notifService.SweepOverduePayments)
	})
	if err != nil {
		return fmt.Errorf("could not add payment sweep cron job: %w", err)
	}

	s.cronEngine.Start()
	s.log.WithFields(logrus.Fields{
		"approval_spec": s.cronSpecApprovals,
		"payment_spec":  s.cronSpecPayments,
	}).Info("Notification scheduler started with jobs.")
	return nil
}

// runJob executes one job with its own timeout and logs the outcome.
func (s *NotificationScheduler) runJob(name string, timeout time.Duration, job func(ctx context.Context) (int, error)) int {
	log := s.log.WithField("job", name)
	log.Debug("Cron job triggered.")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sent, err := job(ctx)
	if err != nil {
		log.WithError(err).Error("Cron job failed")
		return sent
	}
	log.WithField("notified", sent).Info("Cron job finished.")
	return sent
}

func (s *NotificationScheduler) Stop() {
	s.log.Info("Stopping notification scheduler...")
	// Stop returns a context that is done once running jobs finish.
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.log.Info("Notification scheduler gracefully stopped.")
}
