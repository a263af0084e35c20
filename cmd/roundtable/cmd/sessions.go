package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roundtable-ai/roundtable/internal/adapters/state"
	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/report"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect stored deliberation sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, newest first",
	RunE:  runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a stored session as a markdown report",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsAnalyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show persona win rates and voting rule effectiveness",
	RunE:  runSessionsAnalytics,
}

var (
	sessionsJSON bool
	listTopic    string
	listUser     string
	listStatus   string
	listLimit    int
	showRender   bool
)

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsAnalyticsCmd)

	sessionsCmd.PersistentFlags().BoolVar(&sessionsJSON, "json", false, "Output as JSON")

	sessionsListCmd.Flags().StringVar(&listTopic, "topic", "", "Filter by topic substring")
	sessionsListCmd.Flags().StringVar(&listUser, "user", "", "Filter by user id")
	sessionsListCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (e.g. completed, failed)")
	sessionsListCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum sessions to list")

	sessionsShowCmd.Flags().BoolVar(&showRender, "render", false, "Render the report for the terminal")
}

// openStore opens the session database configured in store.path.
func openStore() (*state.SQLiteStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return state.Open(cfg.Store.Path)
}

func runSessionsList(_ *cobra.Command, _ []string) error {
	filter := core.SessionFilter{
		Topic:  listTopic,
		UserID: listUser,
		Limit:  listLimit,
	}
	if listStatus != "" {
		st, err := core.ParseStatus(listStatus)
		if err != nil {
			return err
		}
		filter.Status = st.String()
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.ListSessions(context.Background(), filter)
	if err != nil {
		return err
	}

	if sessionsJSON {
		return outputJSON(map[string]any{
			"sessions": summaries,
			"count":    len(summaries),
		})
	}

	if len(summaries) == 0 {
		fmt.Println("No sessions found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tRULE\tROUNDS\tWINNER\tCONSENSUS\tTOPIC")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			s.ID,
			formatTime(s.StartedAt),
			s.Status,
			s.VotingRule,
			s.RoundsUsed,
			orDash(s.WinnerProposalID),
			formatConsensus(s),
			truncate(s.Topic, 48),
		)
	}
	return w.Flush()
}

func runSessionsShow(_ *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	sess, result, err := store.GetSession(context.Background(), args[0])
	if err != nil {
		return err
	}

	if sessionsJSON {
		return outputJSON(map[string]any{
			"session": sess,
			"result":  result,
		})
	}

	md := report.Markdown(sess, result)
	if showRender {
		rendered, err := report.Render(md)
		if err == nil {
			fmt.Print(rendered)
			return nil
		}
		// Fall through to the raw markdown when rendering fails.
	}
	fmt.Print(md)
	return nil
}

func runSessionsAnalytics(_ *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	winRates, err := store.WinRateByPersona(ctx)
	if err != nil {
		return err
	}
	rules, err := store.EffectivenessByVotingRule(ctx)
	if err != nil {
		return err
	}

	if sessionsJSON {
		return outputJSON(map[string]any{
			"personas": winRates,
			"rules":    rules,
		})
	}

	fmt.Println("Persona win rates:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  PERSONA\tSESSIONS\tWINS\tWIN RATE")
	for _, row := range winRates {
		fmt.Fprintf(w, "  %s\t%d\t%d\t%.0f%%\n", row.PersonaID, row.Sessions, row.Wins, row.WinRate*100)
	}
	w.Flush()

	fmt.Println()
	fmt.Println("Voting rule effectiveness:")
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  RULE\tSESSIONS\tAVG CONSENSUS\tAVG ROUNDS\tUNANIMOUS")
	for _, row := range rules {
		fmt.Fprintf(w, "  %s\t%d\t%.0f%%\t%.1f\t%.0f%%\n",
			row.Rule, row.Sessions, row.AvgConsensus*100, row.AvgRounds, row.UnanimousShare*100)
	}
	return w.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatConsensus(s core.SessionSummary) string {
	if s.Status != core.StatusCompleted {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", s.ConsensusScore*100)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
