// Package workflow holds the error taxonomy and transition tables shared by the
// lead, demo, class and attendance aggregates.
package workflow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind classifies an error so transports can render it without string matching.
type Kind string

const (
	KindUnknown             Kind = "UNKNOWN"
	KindInvalidTransition   Kind = "INVALID_TRANSITION"
	KindValidation          Kind = "VALIDATION"
	KindGuardViolation      Kind = "GUARD_VIOLATION"
	KindAlreadySubmitted    Kind = "ALREADY_SUBMITTED"
	KindConcurrencyConflict Kind = "CONCURRENCY_CONFLICT"
	KindProvisioningFailure Kind = "PROVISIONING_FAILURE"
	KindNotFound            Kind = "NOT_FOUND"
	KindForbidden           Kind = "FORBIDDEN"
)

// Guard names a domain precondition that rejected a request.
type Guard string

const (
	GuardNotAScheduledDay            Guard = "NOT_A_SCHEDULED_DAY"
	GuardDemoAlreadyActive           Guard = "DEMO_ALREADY_ACTIVE"
	GuardCoordinatorRequired         Guard = "COORDINATOR_REQUIRED"
	GuardCoordinatorApprovalRequired Guard = "COORDINATOR_APPROVAL_REQUIRED"
	GuardInterestRequired            Guard = "INTEREST_REQUIRED"
	GuardClassNotActive              Guard = "CLASS_NOT_ACTIVE"
	GuardLeadNotAnnounced            Guard = "LEAD_NOT_ANNOUNCED"
)

var (
	ErrConcurrencyConflict = errors.New("aggregate was modified concurrently")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("actor is not allowed to perform this operation")

	ErrNotAScheduledDay            = &GuardViolationError{Guard: GuardNotAScheduledDay}
	ErrDemoAlreadyActive           = &GuardViolationError{Guard: GuardDemoAlreadyActive}
	ErrCoordinatorRequired         = &GuardViolationError{Guard: GuardCoordinatorRequired}
	ErrCoordinatorApprovalRequired = &GuardViolationError{Guard: GuardCoordinatorApprovalRequired}
	ErrInterestRequired            = &GuardViolationError{Guard: GuardInterestRequired}
	ErrClassNotActive              = &GuardViolationError{Guard: GuardClassNotActive}
	ErrLeadNotAnnounced            = &GuardViolationError{Guard: GuardLeadNotAnnounced}
)

// InvalidTransitionError reports a status change outside the legal successor set.
type InvalidTransitionError struct {
	Aggregate string
	ID        uuid.UUID
	From      string
	Attempted string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s: invalid transition from %s to %s", e.Aggregate, e.ID, e.From, e.Attempted)
}

// Is matches any InvalidTransitionError so callers can test with errors.Is.
func (e *InvalidTransitionError) Is(target error) bool {
	_, ok := target.(*InvalidTransitionError)
	return ok
}

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// Invalid is a shorthand for building a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// GuardViolationError reports a rejected domain precondition.
type GuardViolationError struct {
	Guard  Guard
	Detail string
}

func (e *GuardViolationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("guard violation: %s", e.Guard)
	}
	return fmt.Sprintf("guard violation: %s: %s", e.Guard, e.Detail)
}

// Is matches guard violations with the same Guard.
func (e *GuardViolationError) Is(target error) bool {
	t, ok := target.(*GuardViolationError)
	if !ok {
		return false
	}
	return t.Guard == "" || t.Guard == e.Guard
}

// Violation returns a guard violation carrying detail for the given guard.
func Violation(g Guard, detail string) error {
	return &GuardViolationError{Guard: g, Detail: detail}
}

// AlreadySubmittedError is informational: attendance for the date already exists.
type AlreadySubmittedError struct {
	AttendanceID uuid.UUID
	SessionDate  string
}

func (e *AlreadySubmittedError) Error() string {
	return fmt.Sprintf("attendance for %s already submitted as %s", e.SessionDate, e.AttendanceID)
}

func (e *AlreadySubmittedError) Is(target error) bool {
	_, ok := target.(*AlreadySubmittedError)
	return ok
}

// ProvisioningError wraps a failure to create the class during demo approval.
type ProvisioningError struct {
	LeadID uuid.UUID
	Cause  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("class provisioning for lead %s failed: %v", e.LeadID, e.Cause)
}

func (e *ProvisioningError) Unwrap() error { return e.Cause }

func (e *ProvisioningError) Is(target error) bool {
	_, ok := target.(*ProvisioningError)
	return ok
}

// KindOf classifies err. Wrapped errors are unwrapped.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var (
		it *InvalidTransitionError
		ve *ValidationError
		gv *GuardViolationError
		as *AlreadySubmittedError
		pe *ProvisioningError
	)
	switch {
	case errors.As(err, &pe):
		return KindProvisioningFailure
	case errors.As(err, &it):
		return KindInvalidTransition
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &gv):
		return KindGuardViolation
	case errors.As(err, &as):
		return KindAlreadySubmitted
	case errors.Is(err, ErrConcurrencyConflict):
		return KindConcurrencyConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindUnknown
	}
}
