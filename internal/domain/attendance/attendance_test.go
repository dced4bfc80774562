package attendance

import (
	"errors"
	"testing"
	"time"

	"tutorflow/internal/domain/workflow"

	"github.com/google/uuid"
)

func pending() *Attendance {
	return &Attendance{ID: uuid.New(), FinalClassID: uuid.New(), Status: StatusPending}
}

func TestCoordinatorApproveIsIdempotent(t *testing.T) {
	a := pending()
	coord := uuid.New()
	changed, err := a.CoordinatorApprove(coord, time.Now())
	if err != nil || !changed {
		t.Fatalf("first approval = %v, %v; want changed", changed, err)
	}
	changed, err = a.CoordinatorApprove(coord, time.Now())
	if err != nil || changed {
		t.Fatalf("second approval = %v, %v; want unchanged no-op", changed, err)
	}
	if a.Status != StatusCoordinatorApproved {
		t.Fatalf("status = %s", a.Status)
	}
}

func TestParentApproveRequiresCoordinator(t *testing.T) {
	a := pending()
	if err := a.ParentApprove(uuid.New(), time.Now()); !errors.Is(err, workflow.ErrCoordinatorApprovalRequired) {
		t.Fatalf("ParentApprove from PENDING = %v, want CoordinatorApprovalRequired", err)
	}
	if a.Status != StatusPending {
		t.Fatalf("status changed to %s", a.Status)
	}
	if _, err := a.CoordinatorApprove(uuid.New(), time.Now()); err != nil {
		t.Fatalf("CoordinatorApprove failed: %v", err)
	}
	if err := a.ParentApprove(uuid.New(), time.Now()); err != nil {
		t.Fatalf("ParentApprove failed: %v", err)
	}
	if !a.Status.Terminal() {
		t.Fatalf("PARENT_APPROVED must be terminal")
	}
	if _, err := a.CoordinatorApprove(uuid.New(), time.Now()); !errors.Is(err, &workflow.InvalidTransitionError{}) {
		t.Fatalf("CoordinatorApprove after parent approval = %v, want InvalidTransition", err)
	}
}

func TestRejectNeedsReason(t *testing.T) {
	a := pending()
	err := a.Reject(uuid.New(), "   ", time.Now())
	var ve *workflow.ValidationError
	if !errors.As(err, &ve) || ve.Field != "reason" {
		t.Fatalf("Reject without reason = %v, want validation error on reason", err)
	}
	if a.Status != StatusPending {
		t.Fatalf("status changed to %s", a.Status)
	}
	if err := a.Reject(uuid.New(), "wrong topic", time.Now()); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if err := a.Reject(uuid.New(), "again", time.Now()); !errors.Is(err, &workflow.InvalidTransitionError{}) {
		t.Fatalf("Reject twice = %v, want InvalidTransition", err)
	}
}

func TestRejectFromCoordinatorApproved(t *testing.T) {
	a := pending()
	a.Status = StatusCoordinatorApproved
	if err := a.Reject(uuid.New(), "parent disputes", time.Now()); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if a.Status != StatusRejected || a.RejectReason != "parent disputes" {
		t.Fatalf("after reject: %s %q", a.Status, a.RejectReason)
	}
}

func TestParseMark(t *testing.T) {
	if m, ok := ParseMark("late"); !ok || m != MarkLate {
		t.Fatalf("ParseMark(late) = %q, %v", m, ok)
	}
	if _, ok := ParseMark("EXCUSED"); ok {
		t.Fatalf("EXCUSED is not a mark")
	}
}
