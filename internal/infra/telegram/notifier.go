package telegram

import (
	"context"
	"errors"
	"fmt"

	"tutorflow/internal/domain/notify"
	"tutorflow/internal/domain/staff"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Callback data prefixes for the inline approval buttons.
const (
	callbackCoordinatorApprove = "att_capprove_"
	callbackParentApprove      = "att_papprove_"
)

// Notifier delivers workflow events as Telegram messages. Recipients and role
// broadcasts are resolved through the staff directory; members without a
// Telegram ID are skipped.
type Notifier struct {
	client  Client
	members staff.Repository
	log     *logrus.Entry
}

func NewNotifier(client Client, members staff.Repository, log *logrus.Entry) *Notifier {
	return &Notifier{client: client, members: members, log: log}
}

// Notify implements notify.Notifier. Every resolvable recipient is attempted;
// the returned error joins the individual failures.
func (n *Notifier) Notify(ctx context.Context, ev notify.Event) error {
	targets, err := n.resolve(ctx, ev)
	if err != nil {
		return err
	}

	var errs []error
	for _, m := range targets {
		opts := &telebot.SendOptions{ReplyMarkup: approvalMarkup(m.Role, ev.AttendanceID)}
		if err := n.client.SendMessage(m.TelegramID.Int64, ev.Text, opts); err != nil {
			n.log.WithError(err).WithFields(logrus.Fields{
				"topic":       ev.Topic,
				"member_id":   m.ID,
				"telegram_id": m.TelegramID.Int64,
			}).Warn("Failed to send Telegram notification")
			errs = append(errs, fmt.Errorf("member %s: %w", m.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (n *Notifier) resolve(ctx context.Context, ev notify.Event) ([]*staff.Member, error) {
	seen := make(map[uuid.UUID]bool)
	targets := make([]*staff.Member, 0, len(ev.Recipients))
	add := func(m *staff.Member) {
		if seen[m.ID] || !m.IsActive || !m.TelegramID.Valid {
			return
		}
		seen[m.ID] = true
		targets = append(targets, m)
	}

	for _, id := range ev.Recipients {
		m, err := n.members.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, staff.ErrMemberNotFound) {
				n.log.WithField("member_id", id).Warn("Notification recipient not found")
				continue
			}
			return nil, fmt.Errorf("failed to resolve recipient %s: %w", id, err)
		}
		add(m)
	}
	for _, role := range ev.Roles {
		ms, err := n.members.ListActiveByRole(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve role %s: %w", role, err)
		}
		for _, m := range ms {
			add(m)
		}
	}
	return targets, nil
}

// approvalMarkup attaches the approve button matching the recipient's step in
// the approval chain. Other recipients get a plain message.
func approvalMarkup(role staff.Role, attendanceID uuid.NullUUID) *telebot.ReplyMarkup {
	if !attendanceID.Valid {
		return nil
	}
	var btn telebot.InlineButton
	switch role {
	case staff.RoleCoordinator:
		btn = telebot.InlineButton{Text: "Approve", Data: callbackCoordinatorApprove + attendanceID.UUID.String()}
	case staff.RoleParent:
		btn = telebot.InlineButton{Text: "Confirm session", Data: callbackParentApprove + attendanceID.UUID.String()}
	default:
		return nil
	}
	return &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{{btn}}}
}
