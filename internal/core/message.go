package core

import "fmt"

// AgreementSignal classifies the stance a discussion message takes.
type AgreementSignal string

const (
	SignalAgree    AgreementSignal = "agree"
	SignalDisagree AgreementSignal = "disagree"
	SignalNeutral  AgreementSignal = "neutral"
)

// Message is one persona's contribution to one discussion round.
type Message struct {
	PersonaID       PersonaID       `json:"persona_id"`
	RoundIndex      int             `json:"round_index"`
	Text            string          `json:"text"`
	AgreementSignal AgreementSignal `json:"agreement_signal"`
	IsFallback      bool            `json:"is_fallback"`
	Usage           Usage           `json:"usage"`
}

// FallbackMessage builds the substitute message for a persona whose call
// timed out, errored, or returned empty content.
func FallbackMessage(persona PersonaProfile, roundIndex int) Message {
	return Message{
		PersonaID:       persona.ID,
		RoundIndex:      roundIndex,
		Text:            fmt.Sprintf("%s was unable to respond this round.", persona.DisplayName),
		AgreementSignal: SignalNeutral,
		IsFallback:      true,
	}
}

// Round is one completed discussion round. Messages are normalized to
// persona-registration order and the slice is never mutated after the
// round completes.
type Round struct {
	Index    int       `json:"index"`
	Messages []Message `json:"messages"`
}

// FallbackCount returns how many messages in the round are fallbacks.
func (r *Round) FallbackCount() int {
	n := 0
	for _, m := range r.Messages {
		if m.IsFallback {
			n++
		}
	}
	return n
}

// Responded returns how many personas produced a real (non-fallback)
// message this round.
func (r *Round) Responded() int {
	return len(r.Messages) - r.FallbackCount()
}

// AllFallback reports whether every message in the round is a fallback.
func (r *Round) AllFallback() bool {
	return len(r.Messages) > 0 && r.FallbackCount() == len(r.Messages)
}
