package cmd

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundtable-ai/roundtable/internal/adapters/state"
	"github.com/roundtable-ai/roundtable/internal/core"
)

func seedSession(t *testing.T, dir string) {
	t.Helper()

	team := []core.PersonaProfile{
		{ID: "analyst", DisplayName: "The Analyst", SystemPromptFragment: "You are the Analyst.", Index: 0},
		{ID: "skeptic", DisplayName: "The Skeptic", SystemPromptFragment: "You are the Skeptic.", Index: 2},
	}
	sess := core.NewSession("sess-cli", "Choose a cache", "mara", 3, core.RuleMajority, team)
	require.NoError(t, sess.Start())
	require.NoError(t, sess.AddRound(core.Round{Index: 0, Messages: []core.Message{
		{PersonaID: "analyst", RoundIndex: 0, Text: "Redis has the numbers."},
		{PersonaID: "skeptic", RoundIndex: 0, Text: "Prove it under load."},
	}}))
	require.NoError(t, sess.BeginProposing())
	require.NoError(t, sess.SetProposals([]core.Proposal{
		{ID: "P1", PersonaID: "analyst", Title: "Keep Redis", Description: "Stay on Redis.", QualityScore: 0.8},
		{ID: "P2", PersonaID: "skeptic", Title: "Benchmark first", Description: "Measure, then move.", QualityScore: 0.7},
	}))
	require.NoError(t, sess.BeginVoting())
	require.NoError(t, sess.SetVotes([]core.Vote{
		{PersonaID: "analyst", Ballot: core.Ballot{ProposalID: "P1"}},
		{PersonaID: "skeptic", Ballot: core.Ballot{ProposalID: "P1"}},
	}))
	require.NoError(t, sess.Complete())

	result := &core.SessionResult{
		SessionID:        "sess-cli",
		WinnerProposalID: "P1",
		WinnerPersonaID:  "analyst",
		ConsensusScore:   1.0,
		VotingRule:       core.RuleMajority,
		Distribution: core.VoteDistribution{
			Rule:      core.RuleMajority,
			Totals:    map[string]float64{"P1": 2, "P2": 0},
			Unanimous: true,
		},
		Participants: []core.ParticipantStat{{PersonaID: "analyst"}, {PersonaID: "skeptic"}},
		RoundsUsed:   1,
		Usage:        core.Usage{InputTokens: 40, OutputTokens: 18},
	}

	store, err := state.Open(filepath.Join(dir, ".roundtable", "roundtable.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.SaveSession(context.Background(), sess, result))
}

func resetSessionsFlags() {
	sessionsJSON = false
	listTopic = ""
	listUser = ""
	listStatus = ""
	listLimit = 20
	showRender = false
}

func TestSessionsList(t *testing.T) {
	dir := testWorkspace(t)
	t.Cleanup(resetSessionsFlags)
	seedSession(t, dir)

	output := captureStdout(t, func() {
		require.NoError(t, runSessionsList(nil, nil))
	})

	assert.Contains(t, output, "sess-cli")
	assert.Contains(t, output, "Choose a cache")
	assert.Contains(t, output, "completed")
	assert.Contains(t, output, "P1")
	assert.Contains(t, output, "100%")
}

func TestSessionsList_StatusFilter(t *testing.T) {
	dir := testWorkspace(t)
	t.Cleanup(resetSessionsFlags)
	seedSession(t, dir)

	listStatus = "failed"
	output := captureStdout(t, func() {
		require.NoError(t, runSessionsList(nil, nil))
	})

	assert.Contains(t, output, "No sessions found")
}

func TestSessionsList_BadStatus(t *testing.T) {
	t.Cleanup(resetSessionsFlags)

	listStatus = "done"
	err := runSessionsList(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session status")
}

func TestSessionsList_JSON(t *testing.T) {
	dir := testWorkspace(t)
	t.Cleanup(resetSessionsFlags)
	seedSession(t, dir)

	sessionsJSON = true
	output := captureStdout(t, func() {
		require.NoError(t, runSessionsList(nil, nil))
	})

	var payload struct {
		Sessions []core.SessionSummary `json:"sessions"`
		Count    int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &payload))
	require.Equal(t, 1, payload.Count)
	assert.Equal(t, "sess-cli", payload.Sessions[0].ID)
}

func TestSessionsShow(t *testing.T) {
	dir := testWorkspace(t)
	t.Cleanup(resetSessionsFlags)
	seedSession(t, dir)

	output := captureStdout(t, func() {
		require.NoError(t, runSessionsShow(nil, []string{"sess-cli"}))
	})

	assert.Contains(t, output, "# RoundTable: Choose a cache")
	assert.Contains(t, output, "Keep Redis")
	assert.Contains(t, output, "The Analyst")
}

func TestSessionsShow_NotFound(t *testing.T) {
	testWorkspace(t)
	t.Cleanup(resetSessionsFlags)

	err := runSessionsShow(nil, []string{"sess-missing"})
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err))
}

func TestSessionsAnalytics(t *testing.T) {
	dir := testWorkspace(t)
	t.Cleanup(resetSessionsFlags)
	seedSession(t, dir)

	output := captureStdout(t, func() {
		require.NoError(t, runSessionsAnalytics(nil, nil))
	})

	assert.Contains(t, output, "Persona win rates:")
	assert.Contains(t, output, "analyst")
	assert.Contains(t, output, "Voting rule effectiveness:")
	assert.Contains(t, output, "majority")
}
