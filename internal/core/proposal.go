package core

import "fmt"

// Proposal is one persona's structured candidate solution. IDs are "P1"
// through "PN" in persona-registration order and serve as the vote target
// keys shown to voters.
type Proposal struct {
	ID           string    `json:"id"`
	PersonaID    PersonaID `json:"persona_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Benefits     []string  `json:"benefits"`
	Steps        []string  `json:"steps"`
	QualityScore float64   `json:"quality_score"`
	IsFallback   bool      `json:"is_fallback"`
	Usage        Usage     `json:"usage"`
}

// ProposalID builds the canonical id for the proposal at the given
// persona-registration position (0-based).
func ProposalID(position int) string {
	return fmt.Sprintf("P%d", position+1)
}

// FallbackProposal builds the substitute proposal for a persona whose
// call failed or produced nothing parseable.
func FallbackProposal(persona PersonaProfile, position int) Proposal {
	return Proposal{
		ID:           ProposalID(position),
		PersonaID:    persona.ID,
		Title:        fmt.Sprintf("%s's proposal (unavailable)", persona.DisplayName),
		Description:  "",
		Benefits:     []string{},
		Steps:        []string{},
		QualityScore: 0,
		IsFallback:   true,
	}
}

// FindProposal returns the proposal with the given id, or nil.
func FindProposal(proposals []Proposal, id string) *Proposal {
	for i := range proposals {
		if proposals[i].ID == id {
			return &proposals[i]
		}
	}
	return nil
}

// AllFallbackProposals reports whether every proposal is a fallback.
func AllFallbackProposals(proposals []Proposal) bool {
	if len(proposals) == 0 {
		return false
	}
	for _, p := range proposals {
		if !p.IsFallback {
			return false
		}
	}
	return true
}
