package service

import (
	"regexp"
	"strings"

	"github.com/roundtable-ai/roundtable/internal/core"
)

// Stance patterns are phrase-anchored so negations never count as
// agreement: "I don't agree" matches the negation pattern, not the
// agreement one.
var (
	agreePattern = regexp.MustCompile(`(?i)\b(?:` +
		`i (?:fully |broadly |largely |generally |strongly )?agree|` +
		`we (?:all )?agree|` +
		`agreed|` +
		`i concur|` +
		`i (?:second|support|endorse|back) th(?:is|at)|` +
		`i support|` +
		`same page|` +
		`well said|` +
		`sounds right` +
		`)\b`)

	disagreePattern = regexp.MustCompile(`(?i)\b(?:` +
		`disagree(?:s|d|ing)?|` +
		`i (?:must )?(?:differ|object|dissent)|` +
		`push(?:ing)? back|` +
		`not convinced|` +
		`on the contrary|` +
		`i'?m (?:skeptical|wary)|` +
		`too risky|` +
		`strongly oppose` +
		`)\b`)

	negatedAgreePattern = regexp.MustCompile(`(?i)\b(?:don'?t|do not|can'?t|cannot|won'?t|will not|refuse to|hard to|struggle to) ` +
		`(?:fully |entirely |completely |really |quite )?(?:agree|concur|support)\b`)
)

// DetectAgreement classifies a message's stance with a lightweight
// phrase scan. Ambiguous or silent text is neutral.
func DetectAgreement(text string) core.AgreementSignal {
	t := strings.ToLower(text)

	agree := len(agreePattern.FindAllString(t, -1))
	disagree := len(disagreePattern.FindAllString(t, -1)) + len(negatedAgreePattern.FindAllString(t, -1))

	switch {
	case agree > disagree:
		return core.SignalAgree
	case disagree > agree:
		return core.SignalDisagree
	default:
		return core.SignalNeutral
	}
}

// EarlyStop reports whether a completed round ends the discussion
// early: every non-fallback message agreed and at least
// ceil(N/2)+1 personas actually responded.
func EarlyStop(round core.Round, personaCount int) bool {
	responded := 0
	for _, m := range round.Messages {
		if m.IsFallback {
			continue
		}
		if m.AgreementSignal != core.SignalAgree {
			return false
		}
		responded++
	}
	return responded >= earlyStopQuorum(personaCount)
}

func earlyStopQuorum(n int) int {
	return (n+1)/2 + 1
}
