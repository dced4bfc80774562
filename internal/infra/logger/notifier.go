package logger

import (
	"context"

	"tutorflow/internal/domain/notify"

	"github.com/sirupsen/logrus"
)

// EventLogger is the notifier used when no chat transport is configured.
type EventLogger struct {
	log *logrus.Entry
}

func NewEventLogger(log *logrus.Entry) *EventLogger {
	return &EventLogger{log: log}
}

func (l *EventLogger) Notify(ctx context.Context, ev notify.Event) error {
	fields := logrus.Fields{
		"topic":      ev.Topic,
		"recipients": ev.Recipients,
		"roles":      ev.Roles,
	}
	if ev.AttendanceID.Valid {
		fields["attendance_id"] = ev.AttendanceID.UUID
	}
	l.log.WithFields(fields).Info(ev.Text)
	return nil
}
