package core

// Phase represents one fan-out stage of a session. Discussion runs the
// message phase once per round; proposal and voting run exactly once.
type Phase string

const (
	// PhaseMessage is a discussion round: each persona reacts to the topic
	// and the prior transcript in parallel.
	PhaseMessage Phase = "message"

	// PhaseProposal collects one structured proposal per persona.
	PhaseProposal Phase = "proposal"

	// PhaseVoting collects one ballot per persona over the proposal set.
	PhaseVoting Phase = "voting"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}
