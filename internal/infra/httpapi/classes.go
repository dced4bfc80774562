package httpapi

import (
	"errors"

	"tutorflow/internal/app"
	"tutorflow/internal/domain/attendance"
	"tutorflow/internal/domain/class"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/workflow"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) registerClassRoutes(r fiber.Router) {
	classes := r.Group("/classes")
	classes.Get("/", s.listClasses)
	classes.Get("/:id", s.getClass)
	classes.Put("/:id/coordinator", s.reassignCoordinator)
	classes.Put("/:id/parent", s.reassignParent)
	classes.Put("/:id/status", s.changeClassStatus)
	classes.Post("/:id/attendance", s.submitAttendance)
	classes.Get("/:id/attendance", s.listAttendance)
}

func (s *Server) registerAttendanceRoutes(r fiber.Router) {
	att := r.Group("/attendance")
	att.Get("/:id", s.getAttendance)
	att.Post("/:id/coordinator-approval", s.coordinatorApprove)
	att.Post("/:id/parent-approval", s.parentApprove)
	att.Post("/:id/reject", s.rejectAttendance)
}

func (s *Server) listClasses(c *fiber.Ctx) error {
	var status class.Status
	if raw := c.Query("status"); raw != "" {
		st, ok := class.ParseStatus(raw)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "unknown class status "+raw)
		}
		status = st
	}
	classes, err := s.svc.Classes.ListClasses(c.UserContext(), actorID(c), status)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Classes fetched", classes)
}

func (s *Server) getClass(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	fc, err := s.svc.Classes.GetClass(c.UserContext(), actorID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Class fetched", fc)
}

func (s *Server) reassignCoordinator(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req coordinatorRequest
	if err := s.bind(c, &req); err != nil {
		return rejectInput(c, err)
	}
	fc, err := s.svc.Classes.ReassignCoordinator(c.UserContext(), actorID(c), id, req.CoordinatorID)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Coordinator reassigned", fc)
}

func (s *Server) reassignParent(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req parentRequest
	if err := s.bind(c, &req); err != nil {
		return rejectInput(c, err)
	}
	fc, err := s.svc.Classes.ReassignParent(c.UserContext(), actorID(c), id, req.ParentID)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Parent reassigned", fc)
}

func (s *Server) changeClassStatus(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req classStatusRequest
	if err := s.bind(c, &req); err != nil {
		return rejectInput(c, err)
	}
	status, ok := class.ParseStatus(req.Status)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "unknown class status "+req.Status)
	}
	fc, err := s.svc.Classes.ChangeStatus(c.UserContext(), actorID(c), id, status)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Class status changed", fc)
}

func (s *Server) submitAttendance(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req submitAttendanceRequest
	if err := s.bind(c, &req); err != nil {
		return rejectInput(c, err)
	}
	date, err := parseDate("session_date", req.SessionDate)
	if err != nil {
		return s.fail(c, err)
	}
	mark, ok := attendance.ParseMark(req.StudentMark)
	if !ok {
		return s.fail(c, workflow.Invalid("student_mark", "must be PRESENT, ABSENT or LATE"))
	}
	a, err := s.svc.Attendance.Submit(c.UserContext(), actorID(c), app.SubmitAttendanceInput{
		ClassID:      id,
		SessionDate:  date,
		TopicCovered: req.TopicCovered,
		Mark:         mark,
		Notes:        req.Notes,
	})
	var dup *workflow.AlreadySubmittedError
	switch {
	case errors.As(err, &dup) && a != nil:
		return errorWithDetails(c, fiber.StatusConflict, err.Error(), fiber.Map{
			"kind":     workflow.KindAlreadySubmitted,
			"existing": a,
		})
	case err != nil:
		return s.fail(c, err)
	}
	return successWithCode(c, fiber.StatusCreated, "Attendance submitted", a)
}

func (s *Server) listAttendance(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	records, err := s.svc.Attendance.List(c.UserContext(), actorID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Attendance fetched", records)
}

func (s *Server) getAttendance(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := s.svc.Attendance.Get(c.UserContext(), actorID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Attendance fetched", a)
}

func (s *Server) coordinatorApprove(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := s.svc.Attendance.CoordinatorApprove(c.UserContext(), actorID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Attendance approved by coordinator", a)
}

func (s *Server) parentApprove(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := s.svc.Attendance.ParentApprove(c.UserContext(), actorID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Attendance approved by parent", a)
}

func (s *Server) rejectAttendance(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req reasonRequest
	if err := s.bind(c, &req); err != nil {
		return rejectInput(c, err)
	}
	a, err := s.svc.Attendance.Reject(c.UserContext(), actorID(c), id, req.Reason)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Attendance rejected", a)
}

func (s *Server) registerMember(c *fiber.Ctx) error {
	var req newMemberRequest
	if err := s.bind(c, &req); err != nil {
		return rejectInput(c, err)
	}
	m, err := s.svc.Admin.RegisterMember(c.UserContext(), actorID(c), app.NewMemberInput{
		TelegramID: req.TelegramID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Role:       staff.Role(req.Role),
		Subjects:   req.Subjects,
		Grades:     req.Grades,
		Modes:      req.Modes,
	})
	if err != nil {
		if errors.Is(err, app.ErrMemberAlreadyExists) {
			return errorResponse(c, fiber.StatusConflict, err.Error())
		}
		return s.fail(c, err)
	}
	return successWithCode(c, fiber.StatusCreated, "Member registered", m)
}
