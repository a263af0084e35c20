package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/report"
	"github.com/roundtable-ai/roundtable/internal/service"
	"github.com/roundtable-ai/roundtable/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run [topic]",
	Short: "Run a deliberation session to a verdict",
	Long: `Run a full deliberation: the persona team discusses the topic over a
bounded number of rounds, drafts proposals, and votes under the chosen
rule. The topic can be provided as an argument or via --file.

Examples:
  roundtable run "Should we adopt gRPC for internal services?"
  roundtable run --team FULL --voting ranked "Pick a message broker"
  roundtable run --personas analyst,skeptic --rounds 2 "Cache eviction policy"
  roundtable run --adapter mock "Dry run without a backend"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSession,
}

var (
	runFile     string
	runRounds   int
	runVoting   string
	runTeam     string
	runPersonas []string
	runSuggest  bool
	runUser     string
	runAdapter  string
	runNoReport bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "Read the topic from a file")
	runCmd.Flags().IntVar(&runRounds, "rounds", 0, "Maximum discussion rounds (default from config)")
	runCmd.Flags().StringVar(&runVoting, "voting", "", "Voting rule: majority, unanimity, rated, ranked")
	runCmd.Flags().StringVar(&runTeam, "team", "", "Persona team preset (DEFAULT, FULL, COMPACT)")
	runCmd.Flags().StringSliceVar(&runPersonas, "personas", nil, "Explicit persona ids, overrides --team")
	runCmd.Flags().BoolVar(&runSuggest, "suggest", false, "Pick the team by topic relevance")
	runCmd.Flags().StringVar(&runUser, "user", "", "User id recorded on the session")
	runCmd.Flags().StringVar(&runAdapter, "adapter", "", "Completion adapter override (command, http, mock)")
	runCmd.Flags().BoolVar(&runNoReport, "no-report", false, "Skip writing the markdown report")
}

func runSession(_ *cobra.Command, args []string) error {
	topic, err := getTopic(args, runFile)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runAdapter != "" {
		cfg.Completion.Adapter = runAdapter
	}
	logger := newLogger(cfg)

	rule := cfg.Session.VotingRule
	if runVoting != "" {
		rule = runVoting
	}
	parsed, err := core.ParseVotingRule(rule)
	if err != nil {
		return err
	}

	rounds := cfg.Session.MaxRounds
	if runRounds > 0 {
		rounds = runRounds
	}

	eng, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}

	team, err := resolveTeam(eng.registry, cfg, topic, runPersonas, runTeam, runSuggest)
	if err != nil {
		return err
	}

	// Subscribe before launching so the session_started event is not
	// missed.
	ch := eng.bus.Subscribe()

	sess, err := eng.manager.Launch(service.Trigger{
		Topic:     topic,
		UserID:    runUser,
		MaxRounds: rounds,
		Rule:      parsed,
		Personas:  team,
	})
	if err != nil {
		return err
	}

	// Interrupt cancels the session; it fails as canceled and the
	// partial transcript is still persisted.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupt received, canceling session...")
		eng.manager.Shutdown()
	}()

	tui.NewPrinter(os.Stdout, quiet).Follow(context.Background(), ch, sess.ID)

	// The terminal event arrives before the session goroutine finishes
	// persisting, so wait and drain before reading the stored verdict.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := eng.manager.Wait(ctx); err != nil {
		logger.Warn("waiting for session", "error", err)
	}
	if err := eng.saver.Drain(ctx); err != nil {
		logger.Warn("draining session saver", "error", err)
	}

	final, result, err := eng.store.GetSession(ctx, sess.ID)
	if err != nil {
		eng.bus.Close()
		_ = eng.store.Close()
		return fmt.Errorf("loading finished session: %w", err)
	}

	fmt.Println()
	fmt.Println(tui.Verdict(final, result))

	if !runNoReport && final.Status == core.StatusCompleted {
		writer := report.NewWriter(cfg.Store.ReportsDir)
		if path, err := writer.Write(final, result); err != nil {
			logger.Warn("writing report", "error", err)
		} else if !quiet {
			fmt.Println(tui.SubtleStyle.Render("Report: " + path))
		}
	}

	eng.bus.Close()
	if err := eng.store.Close(); err != nil {
		logger.Warn("closing store", "error", err)
	}

	if final.Status == core.StatusFailed {
		return fmt.Errorf("session failed: %s", final.FailureCode)
	}
	return nil
}
