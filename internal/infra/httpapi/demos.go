package httpapi

import (
	"tutorflow/internal/app"
	"tutorflow/internal/domain/demo"

	"github.com/gofiber/fiber/v2"
)

func (s *Server) registerDemoRoutes(r fiber.Router) {
	demos := r.Group("/demos")
	demos.Post("/:id/reassign", s.reassignDemo)
	demos.Post("/:id/complete", s.completeDemo)
	demos.Post("/:id/approve", s.approveDemo)
	demos.Post("/:id/reject", s.rejectDemo)
}

func (s *Server) reassignDemo(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req reassignDemoRequest
	if err := s.bind(c, &req); err != nil {
		return rejectInput(c, err)
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return s.fail(c, err)
	}
	h, err := s.svc.Demos.ReassignDemo(c.UserContext(), actorID(c), app.ReassignDemoInput{
		DemoID:  id,
		TutorID: req.TutorID,
		Date:    date,
		Time:    req.Time,
		Notes:   req.Notes,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return successWithCode(c, fiber.StatusCreated, "Demo reassigned", h)
}

func (s *Server) completeDemo(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req completeDemoRequest
	if err := s.bind(c, &req); err != nil {
		return rejectInput(c, err)
	}
	h, l, err := s.svc.Demos.CompleteDemo(c.UserContext(), actorID(c), id, demo.Outcome{
		Attendance:   demo.AttendanceStatus(req.AttendanceStatus),
		TopicCovered: req.TopicCovered,
		Duration:     req.Duration,
		Feedback:     req.Feedback,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Demo completed", fiber.Map{"demo": h, "lead": s.view(l)})
}

func (s *Server) approveDemo(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req approveDemoRequest
	if err := s.bind(c, &req); err != nil {
		return rejectInput(c, err)
	}
	sched, err := req.schedule()
	if err != nil {
		return s.fail(c, err)
	}
	res, err := s.svc.Demos.ApproveDemo(c.UserContext(), actorID(c), app.ApproveDemoInput{
		DemoID:        id,
		CoordinatorID: req.CoordinatorID,
		Schedule:      sched,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return successWithCode(c, fiber.StatusCreated, "Demo approved and class provisioned", fiber.Map{
		"demo":  res.Demo,
		"lead":  s.view(res.Lead),
		"class": res.Class,
	})
}

func (s *Server) rejectDemo(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req reasonRequest
	if err := s.bind(c, &req); err != nil {
		return rejectInput(c, err)
	}
	h, l, err := s.svc.Demos.RejectDemo(c.UserContext(), actorID(c), id, req.Reason)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Demo rejected", fiber.Map{"demo": h, "lead": s.view(l)})
}
