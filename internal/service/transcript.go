package service

import (
	"fmt"
	"strings"

	"github.com/roundtable-ai/roundtable/internal/core"
)

// renderTranscript formats completed rounds as prompt context. Rounds
// are already normalized to persona-registration order, so the output
// is deterministic for a given session state.
func renderTranscript(personas []core.PersonaProfile, rounds []core.Round) string {
	if len(rounds) == 0 {
		return ""
	}

	names := make(map[core.PersonaID]string, len(personas))
	for _, p := range personas {
		names[p.ID] = p.DisplayName
	}

	var b strings.Builder
	for _, round := range rounds {
		fmt.Fprintf(&b, "### Round %d\n\n", round.Index+1)
		for _, m := range round.Messages {
			name := names[m.PersonaID]
			if name == "" {
				name = string(m.PersonaID)
			}
			fmt.Fprintf(&b, "**%s**: %s\n\n", name, strings.TrimSpace(m.Text))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
