package lead

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/workflow"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	groupMinStudents = 2
	groupMaxStudents = 10
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// StudentInput is one group member as submitted by a manager.
type StudentInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Gender   string `json:"gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Fee      int64  `json:"fee" validate:"min=0"`
	TutorFee int64  `json:"tutor_fee" validate:"min=0"`
}

// NewLeadInput carries everything needed to open a ClassLead.
type NewLeadInput struct {
	StudentType   StudentType    `json:"student_type" validate:"required,oneof=SINGLE GROUP"`
	StudentName   string         `json:"student_name" validate:"max=120"`
	StudentGender string         `json:"student_gender" validate:"omitempty,oneof=MALE FEMALE OTHER"`
	Students      []StudentInput `json:"students" validate:"omitempty,dive"`
	Grade         string         `json:"grade" validate:"required,max=20"`
	Board         string         `json:"board" validate:"max=60"`
	Subjects      []string       `json:"subjects" validate:"required,min=1,dive,required"`
	Mode          TeachingMode   `json:"mode" validate:"required,oneof=ONLINE OFFLINE HYBRID"`
	Address       string         `json:"address" validate:"max=255"`
	City          string         `json:"city" validate:"max=80"`
	Area          string         `json:"area" validate:"max=80"`
	Fee           int64          `json:"fee" validate:"min=0"`
	TutorFee      int64          `json:"tutor_fee" validate:"min=0"`

	ClassesPerMonth int           `json:"classes_per_month" validate:"min=0,max=62"`
	PreferredDays   []string      `json:"preferred_days"`
	PreferredTime   string        `json:"preferred_time" validate:"omitempty,max=20"`
	ParentID        uuid.NullUUID `json:"parent_id"`
}

// Build validates the input and returns a NEW lead created by manager.
func (in NewLeadInput) Build(id, manager uuid.UUID, now time.Time) (*ClassLead, error) {
	if err := validate.Struct(in); err != nil {
		return nil, translateValidation(err)
	}

	l := &ClassLead{
		ID:              id,
		StudentType:     in.StudentType,
		Grade:           strings.TrimSpace(in.Grade),
		Board:           strings.TrimSpace(in.Board),
		Mode:            in.Mode,
		ClassesPerMonth: in.ClassesPerMonth,
		PreferredTime:   strings.TrimSpace(in.PreferredTime),
		ParentID:        in.ParentID,
		CreatedBy:       manager,
		Status:          StatusNew,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, s := range in.Subjects {
		l.Subjects = append(l.Subjects, strings.TrimSpace(s))
	}
	for _, d := range in.PreferredDays {
		wd, err := class.ParseWeekday(d)
		if err != nil {
			return nil, workflow.Invalid("preferred_days", err.Error())
		}
		l.PreferredDays = append(l.PreferredDays, wd)
	}

	switch in.StudentType {
	case StudentSingle:
		if len(in.Students) > 0 {
			return nil, workflow.Invalid("students", "single leads cannot list group students")
		}
		if strings.TrimSpace(in.StudentName) == "" {
			return nil, workflow.Invalid("student_name", "is required for single leads")
		}
		l.StudentName = strings.TrimSpace(in.StudentName)
		l.StudentGender = in.StudentGender
		l.Fee = in.Fee
		l.TutorFee = in.TutorFee
	case StudentGroup:
		if in.StudentName != "" || in.StudentGender != "" {
			return nil, workflow.Invalid("student_name", "group leads name their students in the students list")
		}
		if in.Fee != 0 || in.TutorFee != 0 {
			return nil, workflow.Invalid("fee", "group leads carry per-student amounts only")
		}
		if len(in.Students) < groupMinStudents || len(in.Students) > groupMaxStudents {
			return nil, workflow.Invalid("students", fmt.Sprintf("a group needs between %d and %d students", groupMinStudents, groupMaxStudents))
		}
		for _, s := range in.Students {
			l.Students = append(l.Students, Student{
				Name:     strings.TrimSpace(s.Name),
				Gender:   s.Gender,
				Fee:      s.Fee,
				TutorFee: s.TutorFee,
			})
		}
	}

	loc := Location{
		Address: strings.TrimSpace(in.Address),
		City:    strings.TrimSpace(in.City),
		Area:    strings.TrimSpace(in.Area),
	}
	if in.Mode.RequiresLocation() {
		if loc.Address == "" {
			return nil, workflow.Invalid("address", fmt.Sprintf("is required for %s classes", in.Mode))
		}
		if loc.City == "" {
			return nil, workflow.Invalid("city", fmt.Sprintf("is required for %s classes", in.Mode))
		}
		l.Location = loc
	} else if loc != (Location{}) {
		return nil, workflow.Invalid("address", "online classes do not take a location")
	}

	return l, nil
}

func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return workflow.Invalid(fe.Namespace(), fmt.Sprintf("failed %q validation", fe.Tag()))
	}
	return workflow.Invalid("", err.Error())
}
