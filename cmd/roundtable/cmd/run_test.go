package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roundtable-ai/roundtable/internal/adapters/state"
	"github.com/roundtable-ai/roundtable/internal/core"
)

func resetRunFlags() {
	runFile = ""
	runRounds = 0
	runVoting = ""
	runTeam = ""
	runPersonas = nil
	runSuggest = false
	runUser = ""
	runAdapter = ""
	runNoReport = false
	quiet = false
}

// Full deliberation against the mock adapter: three demo personas
// discuss, propose, and vote P2 to a unanimous majority verdict.
func TestRunSession_MockAdapter(t *testing.T) {
	dir := testWorkspace(t)
	t.Cleanup(resetRunFlags)

	output := captureStdout(t, func() {
		require.NoError(t, runSession(nil, []string{"Choose a build system"}))
	})

	assert.Contains(t, output, "RoundTable: Choose a build system")
	assert.Contains(t, output, "wins")

	store, err := state.Open(filepath.Join(dir, ".roundtable", "roundtable.db"))
	require.NoError(t, err)
	defer store.Close()

	summaries, err := store.ListSessions(context.Background(), core.SessionFilter{Limit: 5})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, core.StatusCompleted, summaries[0].Status)

	sess, result, err := store.GetSession(context.Background(), summaries[0].ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "P2", result.WinnerProposalID)
	assert.Len(t, sess.Proposals, 3)
	assert.Len(t, sess.Votes, 3)

	// The markdown report lands next to the store.
	entries, err := os.ReadDir(filepath.Join(dir, ".roundtable", "reports"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestRunSession_NoReportFlag(t *testing.T) {
	dir := testWorkspace(t)
	t.Cleanup(resetRunFlags)

	runNoReport = true
	quiet = true

	output := captureStdout(t, func() {
		require.NoError(t, runSession(nil, []string{"Choose a cache"}))
	})

	// Quiet mode still prints the verdict.
	assert.Contains(t, output, "wins")
	assert.NotContains(t, output, "Round 1")

	_, err := os.Stat(filepath.Join(dir, ".roundtable", "reports"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunSession_RankedRule(t *testing.T) {
	testWorkspace(t)
	t.Cleanup(resetRunFlags)

	runVoting = "ranked"
	quiet = true

	captureStdout(t, func() {
		require.NoError(t, runSession(nil, []string{"Pick a message broker"}))
	})

	store, err := openStore()
	require.NoError(t, err)
	defer store.Close()

	summaries, err := store.ListSessions(context.Background(), core.SessionFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, core.RuleRanked, summaries[0].VotingRule)
	assert.Equal(t, core.StatusCompleted, summaries[0].Status)
}

func TestRunSession_BadVotingRule(t *testing.T) {
	testWorkspace(t)
	t.Cleanup(resetRunFlags)

	runVoting = "coin-flip"

	err := runSession(nil, []string{"Choose a cache"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voting rule")
}
