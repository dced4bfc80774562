package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
)

func TestKindOf(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"invalid transition", &InvalidTransitionError{Aggregate: "lead", ID: id, From: "NEW", Attempted: "CONVERTED"}, KindInvalidTransition},
		{"wrapped validation", fmt.Errorf("complete demo: %w", Invalid("topic", "is required")), KindValidation},
		{"guard", ErrNotAScheduledDay, KindGuardViolation},
		{"already submitted", &AlreadySubmittedError{AttendanceID: id}, KindAlreadySubmitted},
		{"conflict", fmt.Errorf("update: %w", ErrConcurrencyConflict), KindConcurrencyConflict},
		{"provisioning wins over cause", &ProvisioningError{LeadID: id, Cause: Invalid("schedule", "empty")}, KindProvisioningFailure},
		{"not found", fmt.Errorf("lead %s: %w", id, ErrNotFound), KindNotFound},
		{"forbidden", ErrForbidden, KindForbidden},
		{"other", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Fatalf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGuardViolationIsMatchesByGuard(t *testing.T) {
	err := fmt.Errorf("submit: %w", Violation(GuardNotAScheduledDay, "2024-06-09 is a SUNDAY"))
	if !errors.Is(err, ErrNotAScheduledDay) {
		t.Fatalf("expected errors.Is to match ErrNotAScheduledDay")
	}
	if errors.Is(err, ErrDemoAlreadyActive) {
		t.Fatalf("did not expect a match against a different guard")
	}
}

type testStatus string

func TestTableCheck(t *testing.T) {
	table := Table[testStatus]{
		"A": {"B": true},
		"B": {"C": true, "A": true},
	}
	if err := table.Check("thing", uuid.Nil, "A", "B"); err != nil {
		t.Fatalf("A→B: unexpected error %v", err)
	}
	err := table.Check("thing", uuid.Nil, "A", "C")
	var it *InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("A→C: expected InvalidTransitionError, got %v", err)
	}
	if it.From != "A" || it.Attempted != "C" {
		t.Fatalf("error = %+v, want from A attempted C", it)
	}
	if table.Allows("C", "A") {
		t.Fatalf("C has no successors")
	}
	if got := len(table.Successors("B")); got != 2 {
		t.Fatalf("successors of B = %d, want 2", got)
	}
}
