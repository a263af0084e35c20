package service

import (
	"context"
	"strings"
	"time"

	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/logging"
)

// DefaultCallTimeout bounds a single persona completion call.
const DefaultCallTimeout = 30 * time.Second

// MessagePhase runs one discussion round: every persona reacts to the
// accumulated transcript in parallel.
type MessagePhase struct {
	client  core.CompletionClient
	prompts *PromptRenderer
	logger  *logging.Logger
	timeout time.Duration
}

// NewMessagePhase creates a message phase. A non-positive timeout
// falls back to DefaultCallTimeout.
func NewMessagePhase(client core.CompletionClient, prompts *PromptRenderer, logger *logging.Logger, timeout time.Duration) *MessagePhase {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &MessagePhase{
		client:  client,
		prompts: prompts,
		logger:  logger.WithComponent("message_phase"),
		timeout: timeout,
	}
}

// Run executes one discussion round and returns it with exactly one
// message per persona, in registration order. Failed or empty calls
// become fallback messages; Run errors only when the prompt itself
// cannot be built.
func (p *MessagePhase) Run(ctx context.Context, sess *core.Session, roundIndex int) (core.Round, error) {
	personas := sess.Personas

	prompt, err := p.prompts.RenderDiscussion(DiscussionParams{
		Topic:      sess.Topic,
		Round:      roundIndex + 1,
		MaxRounds:  sess.MaxRounds,
		Transcript: renderTranscript(personas, sess.Rounds),
	})
	if err != nil {
		return core.Round{}, err
	}

	// The user prompt is shared; each persona differs by its system
	// prompt inside the fan-out.
	prompts := make([]string, len(personas))
	for i := range prompts {
		prompts[i] = prompt
	}

	results := fanOut(ctx, p.client, p.timeout, personas, prompts)

	round := core.Round{Index: roundIndex, Messages: make([]core.Message, len(personas))}
	for i, persona := range personas {
		res := results[i]
		if res.failed() {
			p.logger.WithPersona(string(persona.ID)).Warn("discussion call failed, substituting fallback",
				"round", roundIndex,
				"error", res.err,
			)
			round.Messages[i] = core.FallbackMessage(persona, roundIndex)
			continue
		}

		text := strings.TrimSpace(res.text)
		round.Messages[i] = core.Message{
			PersonaID:       persona.ID,
			RoundIndex:      roundIndex,
			Text:            text,
			AgreementSignal: DetectAgreement(text),
			Usage:           res.usage,
		}
	}

	return round, nil
}
