package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roundtable-ai/roundtable/internal/core"
)

// frontmatter is the metadata block at the top of every report.
type frontmatter struct {
	ID          string  `yaml:"id"`
	Topic       string  `yaml:"topic"`
	Status      string  `yaml:"status"`
	VotingRule  string  `yaml:"voting_rule"`
	Winner      string  `yaml:"winner,omitempty"`
	WinnerBy    string  `yaml:"winner_persona,omitempty"`
	Consensus   float64 `yaml:"consensus_score,omitempty"`
	RoundsUsed  int     `yaml:"rounds_used"`
	FailureCode string  `yaml:"failure_code,omitempty"`
	StartedAt   string  `yaml:"started_at,omitempty"`
	EndedAt     string  `yaml:"ended_at,omitempty"`
	GeneratedAt string  `yaml:"generated_at"`
}

// Markdown renders a session to a markdown document with YAML
// frontmatter. result is nil for sessions that never completed; the
// document then carries the failure instead of a verdict, and whatever
// transcript survived.
func Markdown(sess *core.Session, result *core.SessionResult) string {
	var sb strings.Builder

	writeFrontmatter(&sb, sess, result)
	sb.WriteString("# RoundTable: " + sess.Topic + "\n")
	writeVerdict(&sb, sess, result)
	writeDiscussion(&sb, sess)
	writeProposals(&sb, sess)
	writeVotes(&sb, sess, result)
	writeParticipants(&sb, result)

	return sb.String()
}

func writeFrontmatter(sb *strings.Builder, sess *core.Session, result *core.SessionResult) {
	fm := frontmatter{
		ID:          sess.ID,
		Topic:       sess.Topic,
		Status:      string(sess.Status),
		VotingRule:  string(sess.VotingRule),
		RoundsUsed:  sess.RoundsUsed(),
		FailureCode: sess.FailureCode,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if sess.StartedAt != nil {
		fm.StartedAt = sess.StartedAt.UTC().Format(time.RFC3339)
	}
	if sess.EndedAt != nil {
		fm.EndedAt = sess.EndedAt.UTC().Format(time.RFC3339)
	}
	if result != nil {
		fm.Winner = result.WinnerProposalID
		fm.WinnerBy = string(result.WinnerPersonaID)
		fm.Consensus = result.ConsensusScore
	}

	sb.WriteString("---\n")
	if raw, err := yaml.Marshal(fm); err == nil {
		sb.Write(raw)
	}
	sb.WriteString("---\n\n")
}

func writeVerdict(sb *strings.Builder, sess *core.Session, result *core.SessionResult) {
	sb.WriteString("\n## Verdict\n\n")

	if result == nil {
		code := sess.FailureCode
		if code == "" {
			code = "unknown failure"
		}
		fmt.Fprintf(sb, "No verdict was reached: the session failed with `%s` after %d round(s).\n",
			code, sess.RoundsUsed())
		return
	}

	title := result.WinnerProposalID
	if winner := core.FindProposal(sess.Proposals, result.WinnerProposalID); winner != nil && winner.Title != "" {
		title = winner.Title
	}

	fmt.Fprintf(sb, "**%s** (`%s`) by %s won under the %s rule with a consensus score of %.0f%%",
		title, result.WinnerProposalID, personaName(sess, result.WinnerPersonaID),
		result.VotingRule, result.ConsensusScore*100)
	if result.Distribution.Unanimous {
		sb.WriteString(", unanimously")
	}
	fmt.Fprintf(sb, ", after %d of %d rounds.\n", result.RoundsUsed, sess.MaxRounds)

	if result.EarlyStopped {
		sb.WriteString("\nThe table reached agreement early and skipped the remaining rounds.\n")
	}
}

func writeDiscussion(sb *strings.Builder, sess *core.Session) {
	if len(sess.Rounds) == 0 {
		return
	}
	sb.WriteString("\n## Discussion\n")
	for _, round := range sess.Rounds {
		fmt.Fprintf(sb, "\n### Round %d\n\n", round.Index+1)
		for _, msg := range round.Messages {
			name := personaName(sess, msg.PersonaID)
			if msg.IsFallback {
				fmt.Fprintf(sb, "**%s** _(fallback)_: %s\n\n", name, msg.Text)
				continue
			}
			fmt.Fprintf(sb, "**%s**: %s\n\n", name, msg.Text)
		}
	}
}

func writeProposals(sb *strings.Builder, sess *core.Session) {
	if len(sess.Proposals) == 0 {
		return
	}
	sb.WriteString("\n## Proposals\n")
	for _, p := range sess.Proposals {
		title := p.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(sb, "\n### %s: %s (%s)\n\n", p.ID, title, personaName(sess, p.PersonaID))
		if p.IsFallback {
			sb.WriteString("_No proposal was submitted; a placeholder was recorded._\n\n")
		}
		fmt.Fprintf(sb, "_Quality %.2f_\n\n", p.QualityScore)
		if p.Description != "" {
			sb.WriteString(p.Description + "\n\n")
		}
		if len(p.Benefits) > 0 {
			sb.WriteString("**Benefits:**\n\n")
			for _, b := range p.Benefits {
				sb.WriteString("- " + b + "\n")
			}
			sb.WriteString("\n")
		}
		if len(p.Steps) > 0 {
			sb.WriteString("**Steps:**\n\n")
			for i, s := range p.Steps {
				fmt.Fprintf(sb, "%d. %s\n", i+1, s)
			}
			sb.WriteString("\n")
		}
	}
}

func writeVotes(sb *strings.Builder, sess *core.Session, result *core.SessionResult) {
	if len(sess.Votes) == 0 {
		return
	}
	sb.WriteString("\n## Votes\n\n")
	sb.WriteString("| Persona | Ballot |\n|---|---|\n")
	for _, v := range sess.Votes {
		name := personaName(sess, v.PersonaID)
		if v.IsFallback {
			name += " (default)"
		}
		fmt.Fprintf(sb, "| %s | %s |\n", name, ballotCell(sess, v.Ballot))
	}

	if result != nil && len(result.Distribution.Totals) > 0 {
		fmt.Fprintf(sb, "\n| Proposal | %s |\n|---|---|\n", totalsHeader(result.Distribution.Rule))
		for _, p := range sess.Proposals {
			fmt.Fprintf(sb, "| %s | %s |\n", p.ID, trimFloat(result.Distribution.Totals[p.ID]))
		}
	}
}

func writeParticipants(sb *strings.Builder, result *core.SessionResult) {
	if result == nil || len(result.Participants) == 0 {
		return
	}
	sb.WriteString("\n## Participants\n\n")
	sb.WriteString("| Persona | Messages | Fallbacks | Proposal | Quality | Top choice | Won | Tokens in/out |\n")
	sb.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, p := range result.Participants {
		won := ""
		if p.Won {
			won = "yes"
		}
		fmt.Fprintf(sb, "| %s | %d | %d | %s | %.2f | %s | %s | %d/%d |\n",
			p.DisplayName, p.Messages, p.FallbackMessages, p.ProposalID,
			p.ProposalQuality, p.TopChoice, won,
			p.Usage.InputTokens, p.Usage.OutputTokens)
	}
	fmt.Fprintf(sb, "\nTotal usage: %d input tokens, %d output tokens.\n",
		result.Usage.InputTokens, result.Usage.OutputTokens)
}

// ballotCell flattens one ballot for the per-persona vote table.
func ballotCell(sess *core.Session, b core.Ballot) string {
	switch sess.VotingRule {
	case core.RuleRated:
		parts := make([]string, 0, len(sess.Proposals))
		for _, p := range sess.Proposals {
			if r, ok := b.Ratings[p.ID]; ok {
				parts = append(parts, fmt.Sprintf("%s=%d", p.ID, r))
			}
		}
		return strings.Join(parts, ", ")
	case core.RuleRanked:
		return strings.Join(b.Ranking, " > ")
	default:
		return b.ProposalID
	}
}

func totalsHeader(rule core.VotingRule) string {
	switch rule {
	case core.RuleRated:
		return "Rating sum"
	case core.RuleRanked:
		return "Borda points"
	default:
		return "Votes"
	}
}

// trimFloat drops trailing zeros so whole totals render as integers.
func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func personaName(sess *core.Session, id core.PersonaID) string {
	for _, p := range sess.Personas {
		if p.ID == id {
			if p.DisplayName != "" {
				return p.DisplayName
			}
			break
		}
	}
	return string(id)
}
