package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/roundtable-ai/roundtable/internal/adapters/completion"
	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/logging"
)

func phasePersonas() []core.PersonaProfile {
	return []core.PersonaProfile{
		{ID: "alpha", DisplayName: "Alpha", SystemPromptFragment: "You are Alpha. MARKER-ALPHA", Index: 0},
		{ID: "beta", DisplayName: "Beta", SystemPromptFragment: "You are Beta. MARKER-BETA", Index: 1},
		{ID: "gamma", DisplayName: "Gamma", SystemPromptFragment: "You are Gamma. MARKER-GAMMA", Index: 2},
	}
}

func phaseSession(t *testing.T, rule core.VotingRule) *core.Session {
	t.Helper()
	sess := core.NewSession("sess-1", "Pick a queueing system", "", 3, rule, phasePersonas())
	if err := sess.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	return sess
}

func newRenderer(t *testing.T) *PromptRenderer {
	t.Helper()
	r, err := NewPromptRenderer()
	if err != nil {
		t.Fatalf("NewPromptRenderer() error: %v", err)
	}
	return r
}

func TestMessagePhase_Run(t *testing.T) {
	mock := completion.NewMockClient(
		completion.Script{SystemContains: "MARKER-ALPHA", Reply: "I agree with Beta's framing."},
		completion.Script{SystemContains: "MARKER-BETA", Reply: "I disagree, the costs are unproven."},
		completion.Script{SystemContains: "MARKER-GAMMA", Reply: "Throughput numbers would settle this."},
	)
	sess := phaseSession(t, core.RuleMajority)
	phase := NewMessagePhase(mock, newRenderer(t), logging.NewNop(), time.Second)

	round, err := phase.Run(context.Background(), sess, 0)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if round.Index != 0 {
		t.Errorf("Index = %d, want 0", round.Index)
	}
	if len(round.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(round.Messages))
	}

	wantOrder := []core.PersonaID{"alpha", "beta", "gamma"}
	wantSignal := []core.AgreementSignal{core.SignalAgree, core.SignalDisagree, core.SignalNeutral}
	for i, m := range round.Messages {
		if m.PersonaID != wantOrder[i] {
			t.Errorf("Messages[%d].PersonaID = %s, want %s", i, m.PersonaID, wantOrder[i])
		}
		if m.AgreementSignal != wantSignal[i] {
			t.Errorf("Messages[%d].AgreementSignal = %s, want %s", i, m.AgreementSignal, wantSignal[i])
		}
		if m.IsFallback {
			t.Errorf("Messages[%d] unexpectedly a fallback", i)
		}
		if m.RoundIndex != 0 {
			t.Errorf("Messages[%d].RoundIndex = %d, want 0", i, m.RoundIndex)
		}
	}
	if round.FallbackCount() != 0 {
		t.Errorf("FallbackCount() = %d, want 0", round.FallbackCount())
	}
}

func TestMessagePhase_FallbackOnError(t *testing.T) {
	mock := completion.NewMockClient(
		completion.Script{SystemContains: "MARKER-BETA", Err: errors.New("backend down")},
		completion.Script{Reply: "I agree with the emerging direction."},
	)
	sess := phaseSession(t, core.RuleMajority)
	phase := NewMessagePhase(mock, newRenderer(t), logging.NewNop(), time.Second)

	round, err := phase.Run(context.Background(), sess, 0)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if round.FallbackCount() != 1 {
		t.Fatalf("FallbackCount() = %d, want 1", round.FallbackCount())
	}
	beta := round.Messages[1]
	if !beta.IsFallback {
		t.Fatal("beta's message should be a fallback")
	}
	if beta.AgreementSignal != core.SignalNeutral {
		t.Errorf("fallback AgreementSignal = %s, want neutral", beta.AgreementSignal)
	}
	if !strings.Contains(beta.Text, "unable to respond") {
		t.Errorf("fallback Text = %q, want the substitute notice", beta.Text)
	}
}

func TestMessagePhase_FallbackOnEmptyReply(t *testing.T) {
	mock := completion.NewMockClient(
		completion.Script{SystemContains: "MARKER-ALPHA", Reply: "   "},
		completion.Script{Reply: "Something substantive."},
	)
	sess := phaseSession(t, core.RuleMajority)
	phase := NewMessagePhase(mock, newRenderer(t), logging.NewNop(), time.Second)

	round, err := phase.Run(context.Background(), sess, 0)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !round.Messages[0].IsFallback {
		t.Error("whitespace-only reply should become a fallback message")
	}
	if round.Messages[1].IsFallback || round.Messages[2].IsFallback {
		t.Error("other personas should not be affected")
	}
}

func TestMessagePhase_TimeoutYieldsAllFallbacks(t *testing.T) {
	mock := completion.NewMockClient().WithDelay(time.Second)
	sess := phaseSession(t, core.RuleMajority)
	phase := NewMessagePhase(mock, newRenderer(t), logging.NewNop(), 20*time.Millisecond)

	round, err := phase.Run(context.Background(), sess, 0)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !round.AllFallback() {
		t.Errorf("AllFallback() = false, want true after per-call timeouts")
	}
}

func TestMessagePhase_TranscriptReachesLaterRounds(t *testing.T) {
	mock := completion.NewMockClient(
		completion.Script{PromptContains: "CUCUMBER-BENCHMARK", Reply: "I agree with Alpha's cucumber benchmark."},
		completion.Script{PromptContains: "round 1 of", Reply: "Run the CUCUMBER-BENCHMARK before choosing."},
	)
	sess := phaseSession(t, core.RuleMajority)
	phase := NewMessagePhase(mock, newRenderer(t), logging.NewNop(), time.Second)

	first, err := phase.Run(context.Background(), sess, 0)
	if err != nil {
		t.Fatalf("Run(round 0) error: %v", err)
	}
	if err := sess.AddRound(first); err != nil {
		t.Fatalf("AddRound() error: %v", err)
	}

	second, err := phase.Run(context.Background(), sess, 1)
	if err != nil {
		t.Fatalf("Run(round 1) error: %v", err)
	}
	for i, m := range second.Messages {
		if !strings.Contains(m.Text, "I agree with Alpha") {
			t.Errorf("Messages[%d].Text = %q, want the transcript-matched reply", i, m.Text)
		}
	}
}

func TestProposalPhase_Run(t *testing.T) {
	mock := completion.NewMockClient(
		completion.Script{
			SystemContains: "MARKER-ALPHA",
			Reply: "TITLE: Buy the managed queue\nDESCRIPTION: It removes a whole class of paging.\n" +
				"BENEFITS:\n- No broker upkeep\nSTEPS:\n1. Size the workload\n2. Migrate consumers",
		},
		completion.Script{
			SystemContains: "MARKER-BETA",
			Reply: "TITLE: Run our own broker\nDESCRIPTION: Full control over retention and cost.\n" +
				"BENEFITS:\n- Predictable cost\nSTEPS:\n1. Provision\n2. Operate",
		},
		completion.Script{SystemContains: "MARKER-GAMMA", Reply: "Just pick whatever is simplest."},
	)
	sess := phaseSession(t, core.RuleMajority)
	phase := NewProposalPhase(mock, newRenderer(t), logging.NewNop(), time.Second)

	proposals, err := phase.Run(context.Background(), sess)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(proposals) != 3 {
		t.Fatalf("len(proposals) = %d, want 3", len(proposals))
	}

	for i, wantID := range []string{"P1", "P2", "P3"} {
		if proposals[i].ID != wantID {
			t.Errorf("proposals[%d].ID = %s, want %s", i, proposals[i].ID, wantID)
		}
	}
	if proposals[0].Title != "Buy the managed queue" {
		t.Errorf("P1 Title = %q", proposals[0].Title)
	}
	if len(proposals[0].Steps) != 2 {
		t.Errorf("P1 Steps = %v, want 2 items", proposals[0].Steps)
	}
	if proposals[0].QualityScore <= 0 {
		t.Errorf("P1 QualityScore = %f, want > 0", proposals[0].QualityScore)
	}

	// Gamma ignored the markers; the reply degrades to a lead-line title.
	if proposals[2].Title != "Just pick whatever is simplest." {
		t.Errorf("P3 Title = %q, want the lead line", proposals[2].Title)
	}
	if proposals[2].IsFallback {
		t.Error("an unstructured but non-empty reply is not a fallback")
	}
}

func TestProposalPhase_FallbackOnError(t *testing.T) {
	mock := completion.NewMockClient(
		completion.Script{SystemContains: "MARKER-GAMMA", Err: errors.New("unreachable")},
		completion.Script{Reply: "TITLE: Fine\nDESCRIPTION: Works."},
	)
	sess := phaseSession(t, core.RuleMajority)
	phase := NewProposalPhase(mock, newRenderer(t), logging.NewNop(), time.Second)

	proposals, err := phase.Run(context.Background(), sess)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	gamma := proposals[2]
	if !gamma.IsFallback {
		t.Fatal("gamma's proposal should be a fallback")
	}
	if gamma.ID != "P3" {
		t.Errorf("fallback keeps its positional id, got %s", gamma.ID)
	}
	if gamma.QualityScore != 0 {
		t.Errorf("fallback QualityScore = %f, want 0", gamma.QualityScore)
	}
}

func TestVotingPhase_Majority(t *testing.T) {
	mock := completion.NewMockClient(
		completion.Script{SystemContains: "MARKER-ALPHA", Reply: "VOTE: P2"},
		completion.Script{SystemContains: "MARKER-BETA", Reply: "VOTE: P2"},
		completion.Script{SystemContains: "MARKER-GAMMA", Reply: "VOTE: P3"},
	)
	sess := phaseSession(t, core.RuleMajority)
	proposals := threeProposals()

	phase := NewVotingPhase(mock, newRenderer(t), logging.NewNop(), time.Second)
	votes, outcome, err := phase.Run(context.Background(), sess, proposals)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(votes) != 3 {
		t.Fatalf("len(votes) = %d, want 3", len(votes))
	}
	if outcome.WinnerProposalID != "P2" {
		t.Errorf("WinnerProposalID = %s, want P2", outcome.WinnerProposalID)
	}
	if got := outcome.ConsensusScore; got < 0.66 || got > 0.67 {
		t.Errorf("ConsensusScore = %f, want 2/3", got)
	}
	if outcome.Distribution.Unanimous {
		t.Error("Unanimous = true, want false")
	}
}

func TestVotingPhase_UnparsableBallotGetsDefault(t *testing.T) {
	mock := completion.NewMockClient(
		completion.Script{SystemContains: "MARKER-ALPHA", Reply: "They all look the same to me."},
		completion.Script{Reply: "VOTE: P1"},
	)
	sess := phaseSession(t, core.RuleMajority)
	proposals := threeProposals()
	proposals[2].QualityScore = 0.9 // default ballot backs the best proposal

	phase := NewVotingPhase(mock, newRenderer(t), logging.NewNop(), time.Second)
	votes, outcome, err := phase.Run(context.Background(), sess, proposals)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if !votes[0].IsFallback {
		t.Fatal("alpha's vote should be a default ballot")
	}
	if votes[0].Ballot.ProposalID != "P3" {
		t.Errorf("default ballot = %s, want the highest-quality proposal P3", votes[0].Ballot.ProposalID)
	}
	if outcome.Distribution.FallbackBallots != 1 {
		t.Errorf("FallbackBallots = %d, want 1", outcome.Distribution.FallbackBallots)
	}
}

func TestVotingPhase_Ranked(t *testing.T) {
	mock := completion.NewMockClient(
		completion.Script{PromptContains: "RANKING:", Reply: "RANKING: P2 > P1 > P3"},
	)
	sess := phaseSession(t, core.RuleRanked)
	proposals := threeProposals()

	phase := NewVotingPhase(mock, newRenderer(t), logging.NewNop(), time.Second)
	votes, outcome, err := phase.Run(context.Background(), sess, proposals)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if outcome.WinnerProposalID != "P2" {
		t.Errorf("WinnerProposalID = %s, want P2", outcome.WinnerProposalID)
	}
	// Borda with 3 proposals: first place 2 points per ballot.
	if got := outcome.Distribution.Totals["P2"]; got != 6 {
		t.Errorf("Totals[P2] = %f, want 6", got)
	}
	if !outcome.Distribution.Unanimous {
		t.Error("identical rankings should report unanimous top choices")
	}
	for i, v := range votes {
		if len(v.Ballot.Ranking) != 3 {
			t.Errorf("votes[%d].Ranking = %v, want full permutation", i, v.Ballot.Ranking)
		}
	}
}

func TestVotingPhase_Rated(t *testing.T) {
	mock := completion.NewMockClient(
		completion.Script{PromptContains: "RATE P1", Reply: "RATE P1: 2\nRATE P2: 5\nRATE P3: 3"},
	)
	sess := phaseSession(t, core.RuleRated)
	proposals := threeProposals()

	phase := NewVotingPhase(mock, newRenderer(t), logging.NewNop(), time.Second)
	_, outcome, err := phase.Run(context.Background(), sess, proposals)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if outcome.WinnerProposalID != "P2" {
		t.Errorf("WinnerProposalID = %s, want P2", outcome.WinnerProposalID)
	}
	if got := outcome.Distribution.Totals["P2"]; got != 15 {
		t.Errorf("Totals[P2] = %f, want 15", got)
	}
}
