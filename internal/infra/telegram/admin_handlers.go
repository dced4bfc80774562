package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tutorflow/internal/app"
	"tutorflow/internal/domain/staff"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const msgNotAuthorized = "Error: you are not allowed to run this command."

// RegisterAdminHandlers registers the staff directory commands. Authorization
// happens in the admin service: the configured admin or any active ADMIN member.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, baseLogger *logrus.Entry) {
	b.Handle("/add_staff", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/add_staff",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		in, err := parseAddStaffArgs(c.Args())
		if err != nil {
			handlerLogger.WithField("args_count", len(c.Args())).Warn("Invalid command format")
			return c.Send(err.Error())
		}
		handlerLogger = handlerLogger.WithFields(logrus.Fields{
			"member_telegram_id": in.TelegramID,
			"role":               in.Role,
		})

		m, err := adminService.AddMember(ctx, c.Sender().ID, in)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch {
			case errors.Is(err, app.ErrAdminNotAuthorized):
				logWithError.Warn("Unauthorized access attempt")
				return c.Send(msgNotAuthorized)
			case errors.Is(err, app.ErrMemberAlreadyExists):
				logWithError.Warn("Member already exists")
				return c.Send(fmt.Sprintf("Error: a member with Telegram ID %d already exists.", in.TelegramID))
			default:
				logWithError.Error("Failed to add member")
				return c.Send(fmt.Sprintf("Could not add member: %s", err.Error()))
			}
		}

		handlerLogger.WithField("member_id", m.ID).Info("Member added successfully")
		return c.Send(fmt.Sprintf("%s %s added (member ID %s).", m.Role, m.FullName(), m.ID))
	})

	b.Handle("/remove_staff", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/remove_staff",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		args := c.Args()
		// Expected format: /remove_staff <TelegramID>
		if len(args) != 1 {
			return c.Send("Invalid format. Use: /remove_staff <TelegramID>")
		}
		telegramID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			handlerLogger.WithField("arg", args[0]).Warn("Invalid Telegram ID format")
			return c.Send("Error: Telegram ID must be a number.")
		}
		handlerLogger = handlerLogger.WithField("member_telegram_id", telegramID)

		removed, err := adminService.RemoveMember(ctx, c.Sender().ID, telegramID)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch {
			case errors.Is(err, app.ErrAdminNotAuthorized):
				logWithError.Warn("Unauthorized access attempt")
				return c.Send(msgNotAuthorized)
			case errors.Is(err, staff.ErrMemberNotFound):
				logWithError.Warn("Member to remove not found")
				return c.Send(fmt.Sprintf("No member with Telegram ID %d.", telegramID))
			case errors.Is(err, app.ErrMemberAlreadyInactive):
				logWithError.Warn("Member already inactive")
				return c.Send(fmt.Sprintf("%s was already deactivated.", removed.FullName()))
			default:
				logWithError.Error("Failed to remove member")
				return c.Send(fmt.Sprintf("Could not remove member: %s", err.Error()))
			}
		}

		handlerLogger.WithField("member_id", removed.ID).Info("Member deactivated successfully")
		return c.Send(fmt.Sprintf("%s (Telegram ID %d) deactivated.", removed.FullName(), telegramID))
	})

	b.Handle("/list_staff", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/list_staff",
			"sender_id": c.Sender().ID,
		})

		args := c.Args()
		// Optional argument: 'active' or 'all'
		listType := "active"
		if len(args) > 0 {
			listType = strings.ToLower(args[0])
		}
		if listType != "active" && listType != "all" {
			handlerLogger.Warn("Invalid list type argument")
			return c.Send("Invalid argument. Use 'active' or 'all'.")
		}

		members, err := adminService.ListMembers(ctx, c.Sender().ID)
		if err != nil {
			if errors.Is(err, app.ErrAdminNotAuthorized) {
				handlerLogger.WithError(err).Warn("Unauthorized access attempt")
				return c.Send(msgNotAuthorized)
			}
			handlerLogger.WithError(err).Error("Failed to get list of members")
			return c.Send(fmt.Sprintf("Could not list members: %s", err.Error()))
		}

		text := formatMemberList(members, listType == "all")
		handlerLogger.WithField("members_count", len(members)).Info("Successfully retrieved member list")
		return c.Send(text)
	})

	b.Handle("/set_tutor_profile", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/set_tutor_profile",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		telegramID, subjects, grades, modes, err := parseTutorProfileArgs(c.Args())
		if err != nil {
			return c.Send(err.Error())
		}

		m, err := adminService.SetTutorProfile(ctx, c.Sender().ID, telegramID, subjects, grades, modes)
		if err != nil {
			switch {
			case errors.Is(err, app.ErrAdminNotAuthorized):
				handlerLogger.WithError(err).Warn("Unauthorized access attempt")
				return c.Send(msgNotAuthorized)
			case errors.Is(err, staff.ErrMemberNotFound):
				return c.Send(fmt.Sprintf("No member with Telegram ID %d.", telegramID))
			default:
				handlerLogger.WithError(err).Warn("Failed to set tutor profile")
				return c.Send(describeError(err))
			}
		}
		handlerLogger.WithField("member_id", m.ID).Info("Tutor profile updated")
		return c.Send(fmt.Sprintf("Profile of %s updated: subjects %s, grades %s, modes %s.",
			m.FullName(), joinOrAny(m.Subjects), joinOrAny(m.Grades), joinOrAny(m.Modes)))
	})
}

// parseAddStaffArgs reads <TelegramID> <Role> <FirstName> [LastName].
func parseAddStaffArgs(args []string) (app.NewMemberInput, error) {
	usage := fmt.Errorf("Invalid format. Use: /add_staff <TelegramID> <%s> <FirstName> [LastName]", roleChoices())
	if len(args) < 3 || len(args) > 4 {
		return app.NewMemberInput{}, usage
	}
	telegramID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return app.NewMemberInput{}, errors.New("Error: Telegram ID must be a number.")
	}
	role, ok := staff.ParseRole(strings.ToUpper(args[1]))
	if !ok {
		return app.NewMemberInput{}, fmt.Errorf("Error: unknown role %q. Roles: %s", args[1], roleChoices())
	}
	in := app.NewMemberInput{TelegramID: telegramID, Role: role, FirstName: args[2]}
	if len(args) == 4 {
		in.LastName = args[3]
	}
	return in, nil
}

// parseTutorProfileArgs reads <TelegramID> <subjects> <grades> [modes] with
// comma separated lists.
func parseTutorProfileArgs(args []string) (int64, []string, []string, []string, error) {
	if len(args) < 3 || len(args) > 4 {
		return 0, nil, nil, nil, errors.New("Invalid format. Use: /set_tutor_profile <TelegramID> <Math,Physics> <9,10> [ONLINE,OFFLINE]")
	}
	telegramID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, nil, nil, nil, errors.New("Error: Telegram ID must be a number.")
	}
	var modes []string
	if len(args) == 4 {
		for _, m := range splitList(args[3]) {
			modes = append(modes, strings.ToUpper(m))
		}
	}
	return telegramID, splitList(args[1]), splitList(args[2]), modes, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func roleChoices() string {
	return strings.Join([]string{
		string(staff.RoleAdmin), string(staff.RoleManager), string(staff.RoleCoordinator),
		string(staff.RoleTutor), string(staff.RoleParent),
	}, "|")
}

func joinOrAny(values []string) string {
	if len(values) == 0 {
		return "any"
	}
	return strings.Join(values, ",")
}

func formatMemberList(members []*staff.Member, includeInactive bool) string {
	var response strings.Builder
	title := "Active members"
	if includeInactive {
		title = "All members"
	}
	response.WriteString(fmt.Sprintf("--- %s ---\n", title))

	count := 0
	for _, m := range members {
		if !includeInactive && !m.IsActive {
			continue
		}
		count++
		status := "inactive"
		if m.IsActive {
			status = "active"
		}
		tg := "-"
		if m.TelegramID.Valid {
			tg = strconv.FormatInt(m.TelegramID.Int64, 10)
		}
		response.WriteString(fmt.Sprintf("%s | %s | Telegram: %s | %s | %s\n", m.Role, m.FullName(), tg, status, m.ID))
	}
	if count == 0 {
		return "No members found."
	}
	return response.String()
}
