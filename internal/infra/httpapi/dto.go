package httpapi

import (
	"errors"
	"time"

	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/workflow"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type selectTutorRequest struct {
	TutorID      uuid.UUID `json:"tutor_id" validate:"required"`
	Date         string    `json:"date" validate:"required"`
	Time         string    `json:"time" validate:"required,max=20"`
	Notes        string    `json:"notes" validate:"max=500"`
	DirectAssign bool      `json:"direct_assign"`
}

type reassignDemoRequest struct {
	TutorID uuid.UUID `json:"tutor_id" validate:"required"`
	Date    string    `json:"date" validate:"required"`
	Time    string    `json:"time" validate:"required,max=20"`
	Notes   string    `json:"notes" validate:"max=500"`
}

type completeDemoRequest struct {
	AttendanceStatus string `json:"attendance_status" validate:"required,oneof=PRESENT ABSENT"`
	TopicCovered     string `json:"topic_covered" validate:"max=255"`
	Duration         string `json:"duration" validate:"max=40"`
	Feedback         string `json:"feedback" validate:"max=1000"`
}

type approveDemoRequest struct {
	CoordinatorID uuid.UUID `json:"coordinator_id" validate:"required"`
	DaysOfWeek    []string  `json:"days_of_week"`
	TimeSlot      string    `json:"time_slot" validate:"max=20"`
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"required,max=1000"`
}

type managerRequest struct {
	ManagerID uuid.UUID `json:"manager_id" validate:"required"`
}

type coordinatorRequest struct {
	CoordinatorID uuid.UUID `json:"coordinator_id" validate:"required"`
}

type parentRequest struct {
	ParentID uuid.UUID `json:"parent_id" validate:"required"`
}

type classStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type submitAttendanceRequest struct {
	SessionDate  string `json:"session_date" validate:"required"`
	TopicCovered string `json:"topic_covered" validate:"max=255"`
	StudentMark  string `json:"student_mark" validate:"required"`
	Notes        string `json:"notes" validate:"max=1000"`
}

type newMemberRequest struct {
	TelegramID int64    `json:"telegram_id" validate:"min=0"`
	FirstName  string   `json:"first_name" validate:"required,max=80"`
	LastName   string   `json:"last_name" validate:"max=80"`
	Role       string   `json:"role" validate:"required,oneof=ADMIN MANAGER TUTOR COORDINATOR PARENT"`
	Subjects   []string `json:"subjects"`
	Grades     []string `json:"grades"`
	Modes      []string `json:"modes"`
}

// schedule converts the optional override. Nil means "derive from the lead".
func (r approveDemoRequest) schedule() (*class.Schedule, error) {
	if len(r.DaysOfWeek) == 0 && r.TimeSlot == "" {
		return nil, nil
	}
	days := make([]class.Weekday, 0, len(r.DaysOfWeek))
	for _, raw := range r.DaysOfWeek {
		d, err := class.ParseWeekday(raw)
		if err != nil {
			return nil, workflow.Invalid("days_of_week", err.Error())
		}
		days = append(days, d)
	}
	return &class.Schedule{DaysOfWeek: days, TimeSlot: r.TimeSlot}, nil
}

func parseDate(field, raw string) (time.Time, error) {
	d, err := class.ParseDate(raw)
	if err != nil {
		return time.Time{}, workflow.Invalid(field, "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

// rejectInput renders body and validation failures. Other errors propagate.
func rejectInput(c *fiber.Ctx, err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return validationFailed(c, err)
	}
	return err
}
