package service

import (
	"strings"
	"testing"

	"github.com/roundtable-ai/roundtable/internal/core"
)

func TestRenderDiscussion_FirstRound(t *testing.T) {
	r := newRenderer(t)

	out, err := r.RenderDiscussion(DiscussionParams{
		Topic:     "Pick a queueing system",
		Round:     1,
		MaxRounds: 3,
	})
	if err != nil {
		t.Fatalf("RenderDiscussion() error: %v", err)
	}

	for _, want := range []string{
		"Pick a queueing system",
		"round 1 of at most 3",
		"No one has spoken yet",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
	if strings.Contains(out, "status: active") {
		t.Error("frontmatter leaked into the rendered prompt")
	}
}

func TestRenderDiscussion_WithTranscript(t *testing.T) {
	r := newRenderer(t)

	out, err := r.RenderDiscussion(DiscussionParams{
		Topic:      "Pick a queueing system",
		Round:      2,
		MaxRounds:  3,
		Transcript: "**Alpha**: The benchmark favors option two.",
	})
	if err != nil {
		t.Fatalf("RenderDiscussion() error: %v", err)
	}

	if !strings.Contains(out, "The benchmark favors option two.") {
		t.Error("transcript not included in the rendered prompt")
	}
	if strings.Contains(out, "No one has spoken yet") {
		t.Error("empty-transcript text shown despite a transcript")
	}
}

func TestRenderProposal(t *testing.T) {
	r := newRenderer(t)

	out, err := r.RenderProposal(ProposalParams{
		Topic:      "Pick a queueing system",
		Transcript: "**Alpha**: Benchmarks first.",
	})
	if err != nil {
		t.Fatalf("RenderProposal() error: %v", err)
	}

	for _, want := range []string{"section markers", "TITLE:", "DESCRIPTION:", "BENEFITS:", "STEPS:", "Benchmarks first."} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered prompt missing %q", want)
		}
	}
}

func TestRenderBallot_PerRule(t *testing.T) {
	r := newRenderer(t)
	proposals := []BallotProposal{
		{ID: "P1", Title: "One", Description: "First option."},
		{ID: "P2", Title: "Two"},
	}

	tests := []struct {
		rule     core.VotingRule
		contains []string
		excludes []string
	}{
		{core.RuleMajority, []string{"VOTE: P1"}, []string{"RANKING:", "RATE P1"}},
		{core.RuleUnanimity, []string{"VOTE: P1"}, []string{"RANKING:"}},
		{core.RuleRated, []string{"RATE P1: 3", "RATE P2: 3"}, []string{"VOTE: P1"}},
		{core.RuleRanked, []string{"RANKING: P1 > P2"}, []string{"RATE P1"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.rule), func(t *testing.T) {
			out, err := r.RenderBallot(BallotParams{
				Topic:     "Pick a queueing system",
				Rule:      tt.rule,
				Proposals: proposals,
			})
			if err != nil {
				t.Fatalf("RenderBallot() error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("%s ballot missing %q", tt.rule, want)
				}
			}
			for _, not := range tt.excludes {
				if strings.Contains(out, not) {
					t.Errorf("%s ballot unexpectedly contains %q", tt.rule, not)
				}
			}
			if !strings.Contains(out, "P1: One") {
				t.Errorf("%s ballot missing the proposal listing", tt.rule)
			}
			if !strings.Contains(out, "(no description)") {
				t.Errorf("%s ballot should placeholder a missing description", tt.rule)
			}
		})
	}
}

func TestSystemPrompt(t *testing.T) {
	p := core.PersonaProfile{
		ID:                   "analyst",
		DisplayName:          "The Analyst",
		SystemPromptFragment: "You are The Analyst. Lead with data.",
	}

	out := SystemPrompt(p)

	if !strings.HasPrefix(out, "You are The Analyst.") {
		t.Errorf("SystemPrompt should start with the persona fragment, got %q", out)
	}
	if !strings.Contains(out, "roundtable") {
		t.Error("SystemPrompt missing the shared deliberation framing")
	}
}

func TestListTemplates(t *testing.T) {
	r := newRenderer(t)

	names := r.ListTemplates()
	if len(names) != 3 {
		t.Fatalf("ListTemplates() = %v, want 3 templates", names)
	}
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	for _, want := range []string{"discussion", "proposal", "ballot"} {
		if !found[want] {
			t.Errorf("ListTemplates() missing %q", want)
		}
	}
}

func TestListPrompts(t *testing.T) {
	metas, err := ListPrompts()
	if err != nil {
		t.Fatalf("ListPrompts() error: %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("len(metas) = %d, want 3", len(metas))
	}

	wantOrder := []string{"message", "proposal", "voting"}
	for i, meta := range metas {
		if meta.Phase != wantOrder[i] {
			t.Errorf("metas[%d].Phase = %s, want %s", i, meta.Phase, wantOrder[i])
		}
		if meta.Status != "active" {
			t.Errorf("metas[%d].Status = %s, want active", i, meta.Status)
		}
		if len(meta.Sha256) != 64 {
			t.Errorf("metas[%d].Sha256 = %q, want a hex digest", i, meta.Sha256)
		}
	}
}

func TestGetPrompt(t *testing.T) {
	p, err := GetPrompt("ballot")
	if err != nil {
		t.Fatalf("GetPrompt() error: %v", err)
	}

	if p.ID != "ballot" || p.Phase != "voting" {
		t.Errorf("meta = %+v, want id=ballot phase=voting", p.PromptMeta)
	}
	if strings.HasPrefix(p.Content, "---") {
		t.Error("Content should not start with frontmatter")
	}
	if !strings.Contains(p.Content, "How to vote") {
		t.Error("Content missing the template body")
	}
}

func TestGetPrompt_Unknown(t *testing.T) {
	if _, err := GetPrompt("no-such-prompt"); err == nil {
		t.Fatal("GetPrompt() should fail for an unknown id")
	}
	if _, err := GetPrompt("  "); err == nil {
		t.Fatal("GetPrompt() should fail for a blank id")
	}
}

func TestSplitFrontmatter(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantFM   string
		wantBody string
		wantOK   bool
	}{
		{"valid", "---\nid: x\n---\nbody", "id: x", "body", true},
		{"extra blank lines", "---\nid: x\n---\n\n\nbody", "id: x", "body", true},
		{"crlf", "---\r\nid: x\r\n---\r\nbody", "id: x", "body", true},
		{"no frontmatter", "plain text", "", "plain text", false},
		{"unclosed", "---\nid: x\nbody", "", "---\nid: x\nbody", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, ok := splitFrontmatter(tt.raw)
			if ok != tt.wantOK || fm != tt.wantFM || body != tt.wantBody {
				t.Errorf("splitFrontmatter() = (%q, %q, %v), want (%q, %q, %v)",
					fm, body, ok, tt.wantFM, tt.wantBody, tt.wantOK)
			}
		})
	}
}

func TestRenderTranscript(t *testing.T) {
	personas := phasePersonas()
	rounds := []core.Round{
		{Index: 0, Messages: []core.Message{
			{PersonaID: "alpha", Text: "First point."},
			{PersonaID: "beta", Text: "Second point."},
			{PersonaID: "gamma", Text: "Third point."},
		}},
		{Index: 1, Messages: []core.Message{
			{PersonaID: "alpha", Text: "I agree."},
			{PersonaID: "beta", Text: "I agree too."},
			{PersonaID: "gamma", Text: "Same."},
		}},
	}

	out := renderTranscript(personas, rounds)

	for _, want := range []string{
		"### Round 1",
		"### Round 2",
		"**Alpha**: First point.",
		"**Gamma**: Same.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q", want)
		}
	}
	if strings.HasSuffix(out, "\n") {
		t.Error("transcript should not end with a newline")
	}
}

func TestRenderTranscript_Empty(t *testing.T) {
	if got := renderTranscript(phasePersonas(), nil); got != "" {
		t.Errorf("renderTranscript(nil rounds) = %q, want empty", got)
	}
}
