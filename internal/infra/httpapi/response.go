package httpapi

import (
	"errors"

	"tutorflow/internal/domain/workflow"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

func success(c *fiber.Ctx, message string, data interface{}) error {
	return successWithCode(c, fiber.StatusOK, message, data)
}

func successWithCode(c *fiber.Ctx, code int, message string, data interface{}) error {
	return c.Status(code).JSON(fiber.Map{
		"code":    code,
		"status":  "success",
		"message": message,
		"data":    data,
	})
}

func errorResponse(c *fiber.Ctx, code int, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"code":    code,
		"status":  "error",
		"message": message,
	})
}

func errorWithDetails(c *fiber.Ctx, code int, message string, details interface{}) error {
	return c.Status(code).JSON(fiber.Map{
		"code":    code,
		"status":  "error",
		"message": message,
		"errors":  details,
	})
}

// validationFailed renders validator.v10 field errors as field -> tag.
func validationFailed(c *fiber.Ctx, err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid input")
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	return errorWithDetails(c, fiber.StatusBadRequest, "Validation failed", fields)
}

// statusFor maps a workflow error kind to an HTTP status.
func statusFor(kind workflow.Kind) int {
	switch kind {
	case workflow.KindInvalidTransition, workflow.KindGuardViolation,
		workflow.KindConcurrencyConflict, workflow.KindAlreadySubmitted:
		return fiber.StatusConflict
	case workflow.KindValidation, workflow.KindProvisioningFailure:
		return fiber.StatusUnprocessableEntity
	case workflow.KindNotFound:
		return fiber.StatusNotFound
	case workflow.KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// errorDetails exposes the structured part of typed workflow errors.
func errorDetails(err error) fiber.Map {
	var (
		ve *workflow.ValidationError
		gv *workflow.GuardViolationError
		it *workflow.InvalidTransitionError
		as *workflow.AlreadySubmittedError
	)
	switch {
	case errors.As(err, &ve):
		return fiber.Map{"field": ve.Field, "message": ve.Message}
	case errors.As(err, &gv):
		return fiber.Map{"guard": gv.Guard, "detail": gv.Detail}
	case errors.As(err, &it):
		return fiber.Map{"aggregate": it.Aggregate, "from": it.From, "attempted": it.Attempted}
	case errors.As(err, &as):
		return fiber.Map{"attendance_id": as.AttendanceID, "session_date": as.SessionDate}
	}
	return nil
}

// fail renders a service error. Unknown errors never leak their text.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	kind := workflow.KindOf(err)
	code := statusFor(kind)
	if code == fiber.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.Path()).Error("Request failed")
		return errorResponse(c, code, "Internal server error")
	}
	details := errorDetails(err)
	if details == nil {
		return errorResponse(c, code, err.Error())
	}
	details["kind"] = kind
	return errorWithDetails(c, code, err.Error(), details)
}
