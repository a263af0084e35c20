package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/events"
)

// Printer tails the event bus and renders one line per deliberation
// step. With quiet set it consumes events without printing, so the
// caller can still block until the session settles.
type Printer struct {
	out   io.Writer
	quiet bool
}

// NewPrinter creates a progress printer writing to out.
func NewPrinter(out io.Writer, quiet bool) *Printer {
	return &Printer{out: out, quiet: quiet}
}

// Follow renders events for one session until it reaches a terminal
// state, the channel closes, or ctx is canceled.
func (p *Printer) Follow(ctx context.Context, ch <-chan events.Event, sessionID string) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if ev.SessionID() != sessionID {
				continue
			}
			if p.render(ev) {
				return
			}
		}
	}
}

// render prints one event and reports whether it was terminal.
func (p *Printer) render(ev events.Event) bool {
	switch e := ev.(type) {
	case events.SessionCompletedEvent, events.SessionFailedEvent:
		return true

	case events.SessionStartedEvent:
		p.printf("%s\n", TitleStyle.Render("RoundTable: "+e.Topic))
		p.printf("%s\n", SubtleStyle.Render(fmt.Sprintf("%s rule, up to %d round(s): %s",
			e.VotingRule, e.MaxRounds, strings.Join(e.Personas, ", "))))

	case events.RoundStartedEvent:
		p.printf("\n%s\n", TitleStyle.Render(fmt.Sprintf("Round %d", e.Round)))

	case events.MessageAddedEvent:
		note := SubtleStyle.Render("(" + e.Signal + ")")
		if e.IsFallback {
			note = FallbackStyle.Render("(fallback)")
		}
		p.printf("  %s spoke %s\n", PersonaStyle.Render(e.PersonaID), note)

	case events.SessionEarlyStoppedEvent:
		p.printf("  %s\n", SubtleStyle.Render(fmt.Sprintf("consensus reached, stopping after round %d", e.Round)))

	case events.PhaseStartedEvent:
		switch e.Phase {
		case core.PhaseProposal.String():
			p.printf("\n%s\n", TitleStyle.Render("Collecting proposals"))
		case core.PhaseVoting.String():
			p.printf("\n%s\n", TitleStyle.Render("Voting"))
		}

	case events.ProposalAddedEvent:
		if e.IsFallback {
			p.printf("  %s %s\n", e.ProposalID, FallbackStyle.Render("(fallback) by "+e.PersonaID))
			break
		}
		p.printf("  %s %s %s\n", e.ProposalID, e.Title,
			SubtleStyle.Render(fmt.Sprintf("by %s, quality %.2f", e.PersonaID, e.QualityScore)))

	case events.VoteAddedEvent:
		note := ""
		if e.IsFallback {
			note = " " + FallbackStyle.Render("(default ballot)")
		}
		p.printf("  %s voted%s\n", PersonaStyle.Render(e.PersonaID), note)
	}
	return false
}

func (p *Printer) printf(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, format, args...)
}

// Verdict renders the outcome box for a finished session.
func Verdict(sess *core.Session, result *core.SessionResult) string {
	if sess.Status == core.StatusFailed || result == nil {
		lines := []string{
			ErrorStyle.Render("No verdict"),
			fmt.Sprintf("Session failed with %s after %d round(s).", sess.FailureCode, len(sess.Rounds)),
		}
		return FailureBoxStyle.Render(strings.Join(lines, "\n"))
	}

	winner := WinnerStyle.Render(fmt.Sprintf("%s wins", proposalTitle(sess, result.WinnerProposalID)))
	detail := fmt.Sprintf("proposed by %s, %s rule, consensus %.0f%%",
		personaName(sess, result.WinnerPersonaID), result.VotingRule, result.ConsensusScore*100)
	rounds := fmt.Sprintf("%d of %d round(s) used", result.RoundsUsed, sess.MaxRounds)
	if result.EarlyStopped {
		rounds += ", stopped early"
	}
	if result.Distribution.Unanimous {
		detail += ", unanimous"
	}
	lines := []string{
		winner,
		detail,
		SubtleStyle.Render(rounds),
		SubtleStyle.Render(fmt.Sprintf("%d input / %d output tokens",
			result.Usage.InputTokens, result.Usage.OutputTokens)),
	}
	return VerdictBoxStyle.Render(strings.Join(lines, "\n"))
}

func proposalTitle(sess *core.Session, proposalID string) string {
	for _, p := range sess.Proposals {
		if p.ID == proposalID {
			if p.Title != "" {
				return p.Title
			}
			break
		}
	}
	return proposalID
}

func personaName(sess *core.Session, id core.PersonaID) string {
	for _, p := range sess.Personas {
		if p.ID == id {
			return p.DisplayName
		}
	}
	return string(id)
}
