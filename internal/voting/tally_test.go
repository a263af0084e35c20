package voting

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/roundtable-ai/roundtable/internal/core"
)

func testProposals(qualities ...float64) []core.Proposal {
	ps := make([]core.Proposal, len(qualities))
	for i, q := range qualities {
		ps[i] = core.Proposal{
			ID:           core.ProposalID(i),
			PersonaID:    core.PersonaID(fmt.Sprintf("persona-%d", i+1)),
			Title:        fmt.Sprintf("Proposal %d", i+1),
			QualityScore: q,
		}
	}
	return ps
}

func vote(persona, proposalID string) core.Vote {
	return core.Vote{PersonaID: core.PersonaID(persona), Ballot: core.Ballot{ProposalID: proposalID}}
}

func ratedVote(persona string, ratings map[string]int) core.Vote {
	return core.Vote{PersonaID: core.PersonaID(persona), Ballot: core.Ballot{Ratings: ratings}}
}

func rankedVote(persona string, ranking ...string) core.Vote {
	return core.Vote{PersonaID: core.PersonaID(persona), Ballot: core.Ballot{Ranking: ranking}}
}

func TestTally_Majority(t *testing.T) {
	proposals := testProposals(0.5, 0.8, 0.3)
	votes := []core.Vote{
		vote("a", "P2"),
		vote("b", "P2"),
		vote("c", "P1"),
	}

	out, err := Tally(core.RuleMajority, proposals, votes)
	if err != nil {
		t.Fatalf("Tally() error = %v", err)
	}

	if out.WinnerProposalID != "P2" {
		t.Errorf("winner = %s, want P2", out.WinnerProposalID)
	}
	wantTotals := map[string]float64{"P1": 1, "P2": 2, "P3": 0}
	if !reflect.DeepEqual(out.Distribution.Totals, wantTotals) {
		t.Errorf("totals = %v, want %v", out.Distribution.Totals, wantTotals)
	}
	if out.ConsensusScore != 2.0/3.0 {
		t.Errorf("consensus = %f, want %f", out.ConsensusScore, 2.0/3.0)
	}
	if out.Distribution.Unanimous {
		t.Error("Unanimous = true, want false")
	}
}

func TestTally_MajorityTieBreak(t *testing.T) {
	proposals := testProposals(0.1, 0.9)
	votes := []core.Vote{
		vote("a", "P2"),
		vote("b", "P1"),
	}

	out, err := Tally(core.RuleMajority, proposals, votes)
	if err != nil {
		t.Fatalf("Tally() error = %v", err)
	}

	// Tied tallies resolve to the earliest canonical proposal, not the
	// highest quality score.
	if out.WinnerProposalID != "P1" {
		t.Errorf("winner = %s, want P1 (canonical tie-break)", out.WinnerProposalID)
	}
}

func TestTally_UnanimityUnanimous(t *testing.T) {
	proposals := testProposals(0.5, 0.5, 0.5)
	votes := []core.Vote{
		vote("a", "P3"),
		vote("b", "P3"),
		vote("c", "P3"),
	}

	out, err := Tally(core.RuleUnanimity, proposals, votes)
	if err != nil {
		t.Fatalf("Tally() error = %v", err)
	}

	if out.WinnerProposalID != "P3" {
		t.Errorf("winner = %s, want P3", out.WinnerProposalID)
	}
	if !out.Distribution.Unanimous {
		t.Error("Unanimous = false, want true")
	}
	if out.ConsensusScore != 1.0 {
		t.Errorf("consensus = %f, want 1.0", out.ConsensusScore)
	}
}

func TestTally_UnanimityFallsBackToMajority(t *testing.T) {
	proposals := testProposals(0.5, 0.5, 0.5)
	votes := []core.Vote{
		vote("a", "P1"),
		vote("b", "P1"),
		vote("c", "P2"),
	}

	out, err := Tally(core.RuleUnanimity, proposals, votes)
	if err != nil {
		t.Fatalf("Tally() error = %v", err)
	}

	if out.WinnerProposalID != "P1" {
		t.Errorf("winner = %s, want P1 (majority fallback)", out.WinnerProposalID)
	}
	if out.Distribution.Unanimous {
		t.Error("Unanimous = true, want false")
	}
	if out.ConsensusScore != 2.0/3.0 {
		t.Errorf("consensus = %f, want %f", out.ConsensusScore, 2.0/3.0)
	}
}

func TestTally_RatedSums(t *testing.T) {
	proposals := testProposals(0.5, 0.5, 0.5)
	votes := []core.Vote{
		ratedVote("a", map[string]int{"P1": 5, "P2": 3, "P3": 1}),
		ratedVote("b", map[string]int{"P1": 2, "P2": 4, "P3": 4}),
		ratedVote("c", map[string]int{"P1": 3, "P2": 4, "P3": 2}),
	}

	out, err := Tally(core.RuleRated, proposals, votes)
	if err != nil {
		t.Fatalf("Tally() error = %v", err)
	}

	wantTotals := map[string]float64{"P1": 10, "P2": 11, "P3": 7}
	if !reflect.DeepEqual(out.Distribution.Totals, wantTotals) {
		t.Errorf("totals = %v, want %v", out.Distribution.Totals, wantTotals)
	}
	if out.WinnerProposalID != "P2" {
		t.Errorf("winner = %s, want P2", out.WinnerProposalID)
	}
	// Voter b rates P2 and P3 equally; the top choice resolves to the
	// earlier canonical proposal, so b supports the winner.
	if out.TopChoices["b"] != "P2" {
		t.Errorf("TopChoices[b] = %s, want P2", out.TopChoices["b"])
	}
	if out.ConsensusScore != 2.0/3.0 {
		t.Errorf("consensus = %f, want %f", out.ConsensusScore, 2.0/3.0)
	}
}

func TestTally_RatedFlatBallots(t *testing.T) {
	proposals := testProposals(0.2, 0.9, 0.5)
	flat := DefaultBallot(core.RuleRated, proposals)
	votes := []core.Vote{
		{PersonaID: "a", Ballot: flat, IsFallback: true},
		{PersonaID: "b", Ballot: flat, IsFallback: true},
		{PersonaID: "c", Ballot: flat, IsFallback: true},
	}

	out, err := Tally(core.RuleRated, proposals, votes)
	if err != nil {
		t.Fatalf("Tally() error = %v", err)
	}

	// All totals tie at 9; the canonical tie-break picks P1.
	if out.WinnerProposalID != "P1" {
		t.Errorf("winner = %s, want P1", out.WinnerProposalID)
	}
	if out.Distribution.FallbackBallots != 3 {
		t.Errorf("FallbackBallots = %d, want 3", out.Distribution.FallbackBallots)
	}
}

func TestTally_RankedBorda(t *testing.T) {
	proposals := testProposals(0.5, 0.5, 0.5)
	votes := []core.Vote{
		rankedVote("a", "P1", "P2", "P3"),
		rankedVote("b", "P2", "P1", "P3"),
		rankedVote("c", "P2", "P3", "P1"),
	}

	out, err := Tally(core.RuleRanked, proposals, votes)
	if err != nil {
		t.Fatalf("Tally() error = %v", err)
	}

	// K=3, so positions score 2/1/0.
	// P1: 2+1+0 = 3, P2: 1+2+2 = 5, P3: 0+0+1 = 1.
	wantTotals := map[string]float64{"P1": 3, "P2": 5, "P3": 1}
	if !reflect.DeepEqual(out.Distribution.Totals, wantTotals) {
		t.Errorf("totals = %v, want %v", out.Distribution.Totals, wantTotals)
	}
	if out.WinnerProposalID != "P2" {
		t.Errorf("winner = %s, want P2", out.WinnerProposalID)
	}
	if out.ConsensusScore != 2.0/3.0 {
		t.Errorf("consensus = %f, want %f", out.ConsensusScore, 2.0/3.0)
	}
}

func TestTally_RankedTieBreak(t *testing.T) {
	proposals := testProposals(0.5, 0.5)
	votes := []core.Vote{
		rankedVote("a", "P1", "P2"),
		rankedVote("b", "P2", "P1"),
	}

	out, err := Tally(core.RuleRanked, proposals, votes)
	if err != nil {
		t.Fatalf("Tally() error = %v", err)
	}

	if out.WinnerProposalID != "P1" {
		t.Errorf("winner = %s, want P1 (canonical tie-break)", out.WinnerProposalID)
	}
}

func TestTally_WinnerAlwaysInProposalSet(t *testing.T) {
	proposals := testProposals(0.1, 0.7, 0.4, 0.7)

	for _, rule := range core.AllVotingRules() {
		t.Run(string(rule), func(t *testing.T) {
			ballot := DefaultBallot(rule, proposals)
			votes := make([]core.Vote, 0, 4)
			for _, p := range []string{"a", "b", "c", "d"} {
				votes = append(votes, core.Vote{PersonaID: core.PersonaID(p), Ballot: ballot, IsFallback: true})
			}

			out, err := Tally(rule, proposals, votes)
			if err != nil {
				t.Fatalf("Tally() error = %v", err)
			}

			if core.FindProposal(proposals, out.WinnerProposalID) == nil {
				t.Errorf("winner %s not in proposal set", out.WinnerProposalID)
			}
			if out.ConsensusScore < 0 || out.ConsensusScore > 1 {
				t.Errorf("consensus = %f, want within [0,1]", out.ConsensusScore)
			}
		})
	}
}

func TestTally_InvalidBallots(t *testing.T) {
	proposals := testProposals(0.5, 0.5, 0.5)

	tests := []struct {
		name string
		rule core.VotingRule
		vote core.Vote
	}{
		{"unknown proposal", core.RuleMajority, vote("a", "P9")},
		{"rated missing proposal", core.RuleRated, ratedVote("a", map[string]int{"P1": 3, "P2": 3})},
		{"rated unknown proposal", core.RuleRated, ratedVote("a", map[string]int{"P1": 3, "P2": 3, "P9": 3})},
		{"rating out of range", core.RuleRated, ratedVote("a", map[string]int{"P1": 3, "P2": 3, "P3": 6})},
		{"partial ranking", core.RuleRanked, rankedVote("a", "P1", "P2")},
		{"duplicate in ranking", core.RuleRanked, rankedVote("a", "P1", "P2", "P2")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tally(tt.rule, proposals, []core.Vote{tt.vote})
			if err == nil {
				t.Fatal("Tally() error = nil, want invalid ballot error")
			}
			if !core.IsCode(err, "INVALID_BALLOT") {
				t.Errorf("error code = %s, want INVALID_BALLOT", core.ErrorCode(err))
			}
		})
	}
}

func TestTally_EmptyInputs(t *testing.T) {
	proposals := testProposals(0.5)
	votes := []core.Vote{vote("a", "P1")}

	if _, err := Tally(core.RuleMajority, nil, votes); err == nil {
		t.Error("Tally() with no proposals: error = nil, want error")
	}
	if _, err := Tally(core.RuleMajority, proposals, nil); err == nil {
		t.Error("Tally() with no votes: error = nil, want error")
	}
	if _, err := Tally("plurality", proposals, votes); err == nil {
		t.Error("Tally() with unknown rule: error = nil, want error")
	}
}

func TestTally_Idempotent(t *testing.T) {
	proposals := testProposals(0.9, 0.2, 0.6)
	votes := []core.Vote{
		rankedVote("a", "P3", "P1", "P2"),
		rankedVote("b", "P1", "P3", "P2"),
		rankedVote("c", "P3", "P2", "P1"),
	}

	first, err := Tally(core.RuleRanked, proposals, votes)
	if err != nil {
		t.Fatalf("Tally() error = %v", err)
	}
	second, err := Tally(core.RuleRanked, proposals, votes)
	if err != nil {
		t.Fatalf("Tally() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated tally diverged: %+v vs %+v", first, second)
	}
}

func TestDefaultBallot(t *testing.T) {
	proposals := testProposals(0.2, 0.9, 0.5)

	b := DefaultBallot(core.RuleMajority, proposals)
	if b.ProposalID != "P2" {
		t.Errorf("majority default = %s, want P2 (highest quality)", b.ProposalID)
	}

	b = DefaultBallot(core.RuleUnanimity, proposals)
	if b.ProposalID != "P2" {
		t.Errorf("unanimity default = %s, want P2", b.ProposalID)
	}

	b = DefaultBallot(core.RuleRated, proposals)
	if len(b.Ratings) != 3 {
		t.Fatalf("rated default has %d ratings, want 3", len(b.Ratings))
	}
	for id, rating := range b.Ratings {
		if rating != 3 {
			t.Errorf("rated default %s = %d, want 3", id, rating)
		}
	}

	b = DefaultBallot(core.RuleRanked, proposals)
	want := []string{"P2", "P3", "P1"}
	if !reflect.DeepEqual(b.Ranking, want) {
		t.Errorf("ranked default = %v, want %v", b.Ranking, want)
	}
}

func TestDefaultBallot_QualityTie(t *testing.T) {
	proposals := testProposals(0.5, 0.5)

	b := DefaultBallot(core.RuleMajority, proposals)
	if b.ProposalID != "P1" {
		t.Errorf("majority default = %s, want P1 (canonical tie-break)", b.ProposalID)
	}

	b = DefaultBallot(core.RuleRanked, proposals)
	want := []string{"P1", "P2"}
	if !reflect.DeepEqual(b.Ranking, want) {
		t.Errorf("ranked default = %v, want %v", b.Ranking, want)
	}
}
