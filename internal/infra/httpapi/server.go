// Package httpapi exposes the tutoring workflow over a JSON REST API.
package httpapi

import (
	"context"
	"errors"
	"time"

	"tutorflow/internal/app"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	headerActorID   = "X-Actor-ID"
	headerRequestID = "X-Request-ID"
	requestTimeout  = 15 * time.Second
)

// Services are the workflow services the API dispatches to.
type Services struct {
	Leads      *app.LeadService
	Interests  *app.InterestLedger
	Demos      *app.DemoService
	Classes    *app.ClassService
	Attendance *app.AttendanceService
	Admin      *app.AdminService
}

type Server struct {
	svc      Services
	log      *logrus.Entry
	validate *validator.Validate
}

// NewServer builds the fiber application with every route registered.
func NewServer(svc Services, log *logrus.Entry) *fiber.App {
	s := &Server{svc: svc, log: log, validate: validator.New()}

	fapp := fiber.New(fiber.Config{
		AppName:               "tutorflow",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          s.handleError,
	})
	fapp.Use(recover.New(recover.Config{EnableStackTrace: true}))
	fapp.Use(s.requestLogger)

	fapp.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := fapp.Group("/api/v1", s.requireActor)
	s.registerLeadRoutes(api)
	s.registerDemoRoutes(api)
	s.registerClassRoutes(api)
	s.registerAttendanceRoutes(api)
	api.Post("/staff", s.registerMember)

	return fapp
}

// requestLogger stamps a request id, bounds the request context and logs the outcome.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	rid := c.Get(headerRequestID)
	if rid == "" {
		rid = uuid.NewString()
	}
	c.Set(headerRequestID, rid)
	c.Locals("request_id", rid)

	ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
	defer cancel()
	c.SetUserContext(ctx)

	err := c.Next()
	if err != nil {
		if herr := s.handleError(c, err); herr != nil {
			return herr
		}
	}
	s.log.WithFields(logrus.Fields{
		"request_id": rid,
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     c.Response().StatusCode(),
		"latency_ms": time.Since(start).Milliseconds(),
	}).Info("HTTP request")
	return nil
}

// handleError renders errors that escaped the handlers, fiber's own included.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return errorResponse(c, fe.Code, fe.Message)
	}
	return s.fail(c, err)
}

// requireActor resolves the acting member from the X-Actor-ID header.
func (s *Server) requireActor(c *fiber.Ctx) error {
	raw := c.Get(headerActorID)
	if raw == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing "+headerActorID+" header")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid "+headerActorID+" header")
	}
	c.Locals("actor_id", id)
	return c.Next()
}

func actorID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals("actor_id").(uuid.UUID)
	return id
}

func pathID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// bind parses the JSON body into req and runs struct validation.
func (s *Server) bind(c *fiber.Ctx, req interface{}) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return s.validate.Struct(req)
}
