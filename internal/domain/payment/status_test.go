package payment

import (
	"testing"
	"time"
)

func TestRuleEvaluate(t *testing.T) {
	rule := Rule{DueAfter: 7 * 24 * time.Hour}
	converted := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		converted time.Time
		received  bool
		now       time.Time
		want      Status
	}{
		{"received wins", converted, true, converted.AddDate(0, 1, 0), StatusPaid},
		{"not converted", time.Time{}, false, converted, StatusNotApplicable},
		{"fresh conversion", converted, false, converted.Add(time.Hour), StatusNotDue},
		{"inside due soon window", converted, false, converted.AddDate(0, 0, 5), StatusDueSoon},
		{"exactly due", converted, false, converted.AddDate(0, 0, 7), StatusDueSoon},
		{"past due", converted, false, converted.AddDate(0, 0, 8), StatusOverdue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Evaluate(tt.converted, tt.received, tt.now); got != tt.want {
				t.Fatalf("Evaluate() = %s, want %s", got, tt.want)
			}
		})
	}
}
