package httpapi

import (
	"tutorflow/internal/app"
	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/payment"

	"github.com/gofiber/fiber/v2"
)

type leadView struct {
	*lead.ClassLead
	PaymentStatus payment.Status `json:"PaymentStatus"`
}

func (s *Server) registerLeadRoutes(r fiber.Router) {
	leads := r.Group("/leads")
	leads.Post("/", s.createLead)
	leads.Get("/", s.listLeads)
	leads.Get("/:id", s.getLead)
	leads.Post("/:id/post", s.postLead)
	leads.Put("/:id/manager", s.reassignManager)
	leads.Post("/:id/payment", s.markPaymentReceived)
	leads.Post("/:id/interests", s.expressInterest)
	leads.Get("/:id/interests", s.listInterests)
	leads.Post("/:id/demos", s.selectTutorForDemo)
	leads.Get("/:id/demos", s.listDemos)
}

func (s *Server) view(l *lead.ClassLead) leadView {
	return leadView{ClassLead: l, PaymentStatus: s.svc.Leads.PaymentStatus(l)}
}

func (s *Server) createLead(c *fiber.Ctx) error {
	var in lead.NewLeadInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	l, err := s.svc.Leads.CreateLead(c.UserContext(), actorID(c), in)
	if err != nil {
		return s.fail(c, err)
	}
	return successWithCode(c, fiber.StatusCreated, "Lead created", s.view(l))
}

func (s *Server) listLeads(c *fiber.Ctx) error {
	var status lead.Status
	if raw := c.Query("status"); raw != "" {
		st, ok := lead.ParseStatus(raw)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "unknown lead status "+raw)
		}
		status = st
	}
	leads, err := s.svc.Leads.ListLeads(c.UserContext(), actorID(c), status)
	if err != nil {
		return s.fail(c, err)
	}
	out := make([]leadView, 0, len(leads))
	for _, l := range leads {
		out = append(out, s.view(l))
	}
	return success(c, "Leads fetched", out)
}

func (s *Server) getLead(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	l, err := s.svc.Leads.GetLead(c.UserContext(), actorID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Lead fetched", s.view(l))
}

func (s *Server) postLead(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	l, ann, err := s.svc.Leads.PostLead(c.UserContext(), actorID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Lead announced", fiber.Map{"lead": s.view(l), "announcement": ann})
}

func (s *Server) reassignManager(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req managerRequest
	if err := s.bind(c, &req); err != nil {
		return rejectInput(c, err)
	}
	l, err := s.svc.Leads.ReassignManager(c.UserContext(), actorID(c), id, req.ManagerID)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Manager reassigned", s.view(l))
}

func (s *Server) markPaymentReceived(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	l, err := s.svc.Leads.MarkPaymentReceived(c.UserContext(), actorID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Payment recorded", s.view(l))
}

func (s *Server) expressInterest(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	in, err := s.svc.Interests.ExpressInterest(c.UserContext(), actorID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	return successWithCode(c, fiber.StatusCreated, "Interest recorded", in)
}

func (s *Server) listInterests(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	interests, err := s.svc.Interests.ListInterests(c.UserContext(), actorID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Interests fetched", interests)
}

func (s *Server) selectTutorForDemo(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req selectTutorRequest
	if err := s.bind(c, &req); err != nil {
		return rejectInput(c, err)
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return s.fail(c, err)
	}
	l, h, err := s.svc.Leads.SelectTutorForDemo(c.UserContext(), actorID(c), app.SelectTutorInput{
		LeadID:       id,
		TutorID:      req.TutorID,
		Date:         date,
		Time:         req.Time,
		Notes:        req.Notes,
		DirectAssign: req.DirectAssign,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return successWithCode(c, fiber.StatusCreated, "Demo scheduled", fiber.Map{"lead": s.view(l), "demo": h})
}

func (s *Server) listDemos(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	demos, err := s.svc.Demos.ListDemos(c.UserContext(), actorID(c), id)
	if err != nil {
		return s.fail(c, err)
	}
	return success(c, "Demos fetched", demos)
}
