// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tutorflow/internal/domain/staff"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminTelegramID int64,
	members memberResolver,
	baseLogger *logrus.Entry, // For contextual logging
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		m, err := members.MemberByTelegramID(ctx, senderID)
		switch {
		case err == nil:
			logCtx.WithFields(logrus.Fields{"member_id": m.ID, "role": m.Role}).Info("User identified as member")
			return c.Send(fmt.Sprintf("Hello, %s! You are registered as %s. Use /help to see what I can do.", m.FirstName, m.Role))
		case senderID == adminTelegramID:
			logCtx.Info("User identified as configured admin")
			return c.Send(fmt.Sprintf("Hello, administrator %s! Use /help for the list of commands.", c.Sender().FirstName))
		case errors.Is(err, staff.ErrMemberNotFound):
			logCtx.Info("User is unknown")
			return c.Send("Hello! I deliver tutoring workflow notifications. Ask an administrator to add you to the staff directory.")
		default:
			logCtx.WithError(err).Error("Error checking member status for /start command")
			return c.Send("Could not check your status. Please try again later.")
		}
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		role := staff.Role("")
		m, err := members.MemberByTelegramID(ctx, senderID)
		switch {
		case err == nil:
			role = m.Role
		case senderID == adminTelegramID:
			role = staff.RoleAdmin
		case !errors.Is(err, staff.ErrMemberNotFound):
			logCtx.WithError(err).Error("Error checking member status for /help command")
			return c.Send("Could not check your status. Please try again later.")
		}
		return c.Send(helpText(role), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

// helpText lists the commands available to role. An empty role is an unknown user.
func helpText(role staff.Role) string {
	var help strings.Builder
	switch role {
	case staff.RoleAdmin:
		help.WriteString("Administrator commands:\n\n")
		help.WriteString("`/add_staff <TelegramID> <Role> <FirstName> [LastName]`\n - Add a member to the staff directory.\n\n")
		help.WriteString("`/remove_staff <TelegramID>`\n - Deactivate a member.\n\n")
		help.WriteString("`/list_staff [active|all]`\n - List members.\n\n")
		help.WriteString("`/set_tutor_profile <TelegramID> <Subjects> <Grades> [Modes]`\n - Set a tutor's match profile, comma separated.\n\n")
	case staff.RoleCoordinator:
		help.WriteString("I send you attendance records of your classes. Press *Approve* under a record to approve it.\n\n")
		help.WriteString("`/reject_attendance <AttendanceID> <reason>`\n - Reject a record.\n\n")
	case staff.RoleParent:
		help.WriteString("I ask you to confirm sessions after the coordinator approved them. Press *Confirm session* to confirm.\n\n")
		help.WriteString("`/reject_attendance <AttendanceID> <reason>`\n - Dispute a record.\n\n")
	case staff.RoleManager, staff.RoleTutor:
		help.WriteString("I notify you about leads, demos and classes assigned to you.\n\n")
	default:
		return "There are no commands for you yet. Ask an administrator to add you to the staff directory."
	}
	help.WriteString("`/help`\n - Show this message.")
	return help.String()
}
