// Package payment derives a lead's payment status from its due date.
package payment

import "time"

// Status is the derived payment state shown next to a converted lead.
type Status string

const (
	StatusNotApplicable Status = "NOT_APPLICABLE" // not converted yet
	StatusPaid          Status = "PAID"
	StatusNotDue        Status = "NOT_DUE"
	StatusDueSoon       Status = "DUE_SOON"
	StatusOverdue       Status = "OVERDUE"
)

// DueSoonWindow is how close to the due date a payment counts as due soon.
const DueSoonWindow = 3 * 24 * time.Hour

// Rule evaluates payment status for leads converted at a given time.
type Rule struct {
	DueAfter time.Duration // from conversion to due date
}

// DueDate is when payment is expected for a lead converted at convertedAt.
func (r Rule) DueDate(convertedAt time.Time) time.Time {
	return convertedAt.Add(r.DueAfter)
}

// Evaluate derives the status. A zero convertedAt means the lead is not converted.
func (r Rule) Evaluate(convertedAt time.Time, received bool, now time.Time) Status {
	if received {
		return StatusPaid
	}
	if convertedAt.IsZero() {
		return StatusNotApplicable
	}
	due := r.DueDate(convertedAt)
	switch {
	case now.After(due):
		return StatusOverdue
	case due.Sub(now) <= DueSoonWindow:
		return StatusDueSoon
	default:
		return StatusNotDue
	}
}
