package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"tutorflow/internal/domain/lead"
	"tutorflow/internal/domain/staff"
	"tutorflow/internal/domain/workflow"
)

func TestMatchScore(t *testing.T) {
	tutor := &staff.Member{Subjects: []string{"math", "Physics"}, Grades: []string{"10"}, Modes: []string{"ONLINE"}}
	tests := []struct {
		name string
		lead lead.ClassLead
		want int
	}{
		{"perfect", lead.ClassLead{Subjects: []string{"Math"}, Grade: "10", Mode: lead.ModeOnline}, 100},
		{"half the subjects", lead.ClassLead{Subjects: []string{"Math", "Chemistry"}, Grade: "10", Mode: lead.ModeOnline}, 70},
		{"wrong grade and mode", lead.ClassLead{Subjects: []string{"Physics"}, Grade: "12", Mode: lead.ModeOffline}, 60},
		{"nothing in common", lead.ClassLead{Subjects: []string{"History"}, Grade: "8", Mode: lead.ModeHybrid}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchScore(tutor, &tt.lead); got != tt.want {
				t.Fatalf("MatchScore = %d, want %d", got, tt.want)
			}
		})
	}

	anyMode := &staff.Member{Subjects: []string{"Math"}}
	if got := MatchScore(anyMode, &lead.ClassLead{Subjects: []string{"Math"}, Grade: "10", Mode: lead.ModeHybrid}); got != 75 {
		t.Fatalf("MatchScore without mode preference = %d, want 75", got)
	}
}

func TestExpressInterest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	l := f.createLead(t, nil)

	if _, err := f.interests.ExpressInterest(ctx, f.tutor.ID, l.ID); !errors.Is(err, workflow.ErrLeadNotAnnounced) {
		t.Fatalf("interest in NEW lead = %v, want LeadNotAnnounced", err)
	}
	f.postLead(t, l.ID)

	first, err := f.interests.ExpressInterest(ctx, f.tutor.ID, l.ID)
	if err != nil {
		t.Fatalf("ExpressInterest: %v", err)
	}
	if first.MatchScore != 100 {
		t.Fatalf("MatchScore = %d, want 100", first.MatchScore)
	}
	again, err := f.interests.ExpressInterest(ctx, f.tutor.ID, l.ID)
	if err != nil || again.ID != first.ID {
		t.Fatalf("repeat interest = %v, %v; want the existing record", again, err)
	}

	if _, err := f.interests.ExpressInterest(ctx, f.manager.ID, l.ID); !errors.Is(err, workflow.ErrForbidden) {
		t.Fatalf("interest from a manager = %v, want forbidden", err)
	}

	f.advance(time.Minute)
	if _, err := f.interests.ExpressInterest(ctx, f.tutor2.ID, l.ID); err != nil {
		t.Fatalf("second tutor: %v", err)
	}
	list, err := f.interests.ListInterests(ctx, f.manager.ID, l.ID)
	if err != nil {
		t.Fatalf("ListInterests: %v", err)
	}
	if len(list) != 2 || list[0].TutorID != f.tutor.ID {
		t.Fatalf("interests = %v, want earliest of equal scores first", list)
	}
}
