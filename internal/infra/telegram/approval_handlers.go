package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tutorflow/internal/domain/attendance"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

type memberResolver interface {
	MemberByTelegramID(ctx context.Context, telegramID int64) (*staff.Member, error)
}

type attendanceApprover interface {
	CoordinatorApprove(ctx context.Context, actorID, attendanceID uuid.UUID) (*attendance.Attendance, error)
	ParentApprove(ctx context.Context, actorID, attendanceID uuid.UUID) (*attendance.Attendance, error)
	Reject(ctx context.Context, actorID, attendanceID uuid.UUID, reason string) (*attendance.Attendance, error)
}

// ApprovalHandlers turns inline button presses and /reject_attendance into
// attendance approvals made on behalf of the chat user.
type ApprovalHandlers struct {
	ctx        context.Context
	members    memberResolver
	attendance attendanceApprover
	log        *logrus.Entry
}

func NewApprovalHandlers(ctx context.Context, members memberResolver, att attendanceApprover, log *logrus.Entry) *ApprovalHandlers {
	return &ApprovalHandlers{ctx: ctx, members: members, attendance: att, log: log}
}

func (h *ApprovalHandlers) Register(b *telebot.Bot) {
	b.Handle(telebot.OnCallback, h.OnCallback)
	b.Handle("/reject_attendance", h.RejectAttendance)
}

type approvalAction int

const (
	actionCoordinatorApprove approvalAction = iota + 1
	actionParentApprove
)

// parseApprovalCallback decodes att_capprove_<uuid> and att_papprove_<uuid>.
func parseApprovalCallback(data string) (approvalAction, uuid.UUID, error) {
	// telebot prefixes unique callbacks with \f; plain Data buttons arrive as-is.
	data = strings.TrimPrefix(data, "\f")
	var action approvalAction
	var raw string
	switch {
	case strings.HasPrefix(data, callbackCoordinatorApprove):
		action, raw = actionCoordinatorApprove, strings.TrimPrefix(data, callbackCoordinatorApprove)
	case strings.HasPrefix(data, callbackParentApprove):
		action, raw = actionParentApprove, strings.TrimPrefix(data, callbackParentApprove)
	default:
		return 0, uuid.Nil, fmt.Errorf("unhandled callback data: %q", data)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("invalid attendance id %q in callback: %w", raw, err)
	}
	return action, id, nil
}

func (h *ApprovalHandlers) OnCallback(c telebot.Context) error {
	data := c.Callback().Data
	logCtx := h.log.WithFields(logrus.Fields{"handler": "callback", "sender_id": c.Sender().ID})

	action, attendanceID, err := parseApprovalCallback(data)
	if err != nil {
		logCtx.WithError(err).Warn("Unknown callback")
		return c.Respond(&telebot.CallbackResponse{Text: "Unknown action."})
	}
	logCtx = logCtx.WithField("attendance_id", attendanceID)

	member, err := h.members.MemberByTelegramID(h.ctx, c.Sender().ID)
	if err != nil {
		logCtx.WithError(err).Warn("Callback from unknown member")
		return c.Respond(&telebot.CallbackResponse{Text: "You are not registered."})
	}

	switch action {
	case actionCoordinatorApprove:
		_, err = h.attendance.CoordinatorApprove(h.ctx, member.ID, attendanceID)
	case actionParentApprove:
		_, err = h.attendance.ParentApprove(h.ctx, member.ID, attendanceID)
	}
	if err != nil {
		logCtx.WithError(err).Warn("Approval from Telegram failed")
		return c.Respond(&telebot.CallbackResponse{Text: describeError(err), ShowAlert: true})
	}

	logCtx.WithField("member_id", member.ID).Info("Attendance approved from Telegram")
	return c.Respond(&telebot.CallbackResponse{Text: "Approved. Thank you!"})
}

// RejectAttendance handles /reject_attendance <AttendanceID> <reason...>.
func (h *ApprovalHandlers) RejectAttendance(c telebot.Context) error {
	logCtx := h.log.WithFields(logrus.Fields{"handler": "/reject_attendance", "sender_id": c.Sender().ID})

	args := c.Args()
	if len(args) < 2 {
		return c.Send("Invalid format. Use: /reject_attendance <AttendanceID> <reason>")
	}
	attendanceID, err := uuid.Parse(args[0])
	if err != nil {
		return c.Send("Error: attendance ID is not valid.")
	}
	reason := strings.Join(args[1:], " ")

	member, err := h.members.MemberByTelegramID(h.ctx, c.Sender().ID)
	if err != nil {
		logCtx.WithError(err).Warn("Rejection from unknown member")
		return c.Send("You are not registered.")
	}

	a, err := h.attendance.Reject(h.ctx, member.ID, attendanceID, reason)
	if err != nil {
		logCtx.WithError(err).Warn("Rejection from Telegram failed")
		return c.Send(describeError(err))
	}
	logCtx.WithField("attendance_id", a.ID).Info("Attendance rejected from Telegram")
	return c.Send(fmt.Sprintf("Session %d rejected.", a.SessionNumber))
}

// describeError renders a workflow error for a chat user.
func describeError(err error) string {
	switch workflow.KindOf(err) {
	case workflow.KindForbidden:
		return "You are not allowed to do that."
	case workflow.KindNotFound:
		return "Record not found."
	case workflow.KindInvalidTransition:
		return "This record was already processed."
	case workflow.KindConcurrencyConflict:
		return "Someone else changed this record. Please try again."
	case workflow.KindGuardViolation, workflow.KindValidation, workflow.KindAlreadySubmitted:
		return domainMessage(err)
	default:
		return "Something went wrong. Please try again later."
	}
}

// domainMessage strips service wrapping down to the typed workflow error.
func domainMessage(err error) string {
	var (
		ve *workflow.ValidationError
		gv *workflow.GuardViolationError
		as *workflow.AlreadySubmittedError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &gv):
		return gv.Error()
	case errors.As(err, &as):
		return as.Error()
	}
	return err.Error()
}
