package core

import "testing"

func TestStatus_Validation(t *testing.T) {
	for _, s := range AllStatuses() {
		if !ValidStatus(s) {
			t.Fatalf("expected status %s to be valid", s)
		}
	}
	if ValidStatus("invalid") {
		t.Fatalf("expected invalid status to be rejected")
	}
}

func TestStatus_Parse(t *testing.T) {
	s, err := ParseStatus("discussing")
	if err != nil {
		t.Fatalf("unexpected error parsing status: %v", err)
	}
	if s != StatusDiscussing {
		t.Fatalf("expected discussing, got %s", s)
	}

	s, err = ParseStatus(" Completed ")
	if err != nil {
		t.Fatalf("unexpected error parsing padded status: %v", err)
	}
	if s != StatusCompleted {
		t.Fatalf("expected completed, got %s", s)
	}

	if _, err := ParseStatus("unknown"); err == nil {
		t.Fatalf("expected error parsing invalid status")
	}
}

func TestStatus_Terminal(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatalf("expected completed and failed to be terminal")
	}
	if StatusCreated.Terminal() || StatusVoting.Terminal() {
		t.Fatalf("expected non-terminal states")
	}
}

func TestStatus_Transitions(t *testing.T) {
	allowed := []struct {
		from, to Status
	}{
		{StatusCreated, StatusDiscussing},
		{StatusDiscussing, StatusDiscussing},
		{StatusDiscussing, StatusProposing},
		{StatusProposing, StatusVoting},
		{StatusVoting, StatusCompleted},
		{StatusCreated, StatusFailed},
		{StatusDiscussing, StatusFailed},
		{StatusProposing, StatusFailed},
		{StatusVoting, StatusFailed},
	}
	for _, tr := range allowed {
		if !tr.from.CanTransitionTo(tr.to) {
			t.Errorf("expected %s -> %s to be allowed", tr.from, tr.to)
		}
	}

	denied := []struct {
		from, to Status
	}{
		{StatusCreated, StatusProposing},
		{StatusCreated, StatusVoting},
		{StatusCreated, StatusCompleted},
		{StatusDiscussing, StatusVoting},
		{StatusDiscussing, StatusCompleted},
		{StatusProposing, StatusDiscussing},
		{StatusProposing, StatusCompleted},
		{StatusVoting, StatusDiscussing},
		{StatusCompleted, StatusFailed},
		{StatusFailed, StatusDiscussing},
		{StatusCompleted, StatusDiscussing},
	}
	for _, tr := range denied {
		if tr.from.CanTransitionTo(tr.to) {
			t.Errorf("expected %s -> %s to be denied", tr.from, tr.to)
		}
	}
}
