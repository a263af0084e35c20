package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/events"
	"github.com/roundtable-ai/roundtable/internal/logging"
)

// DefaultSessionTimeout bounds one full deliberation wall-clock.
const DefaultSessionTimeout = 5 * time.Minute

// breakerLimit is the number of consecutive all-fallback phase
// executions after which the session fails.
const breakerLimit = 2

// Trigger is a fully resolved request to deliberate one topic. Personas
// arrive already looked up; the orchestrator never touches the registry.
type Trigger struct {
	Topic     string
	UserID    string
	MaxRounds int
	Rule      core.VotingRule
	Personas  []core.PersonaProfile
}

// OrchestratorConfig holds orchestrator timeouts.
type OrchestratorConfig struct {
	// CallTimeout bounds each persona completion call.
	CallTimeout time.Duration

	// SessionTimeout bounds the whole session wall-clock in Run.
	SessionTimeout time.Duration
}

// DefaultOrchestratorConfig returns default configuration.
func DefaultOrchestratorConfig() *OrchestratorConfig {
	return &OrchestratorConfig{
		CallTimeout:    DefaultCallTimeout,
		SessionTimeout: DefaultSessionTimeout,
	}
}

// Orchestrator drives exactly one session through the lifecycle:
// created -> discussing -> proposing -> voting -> completed, with
// failed reachable from any non-terminal state. It is single-use; a
// second Run (or overlapping RunRound/Finalize calls) returns a
// SESSION_STATE error.
type Orchestrator struct {
	config   *OrchestratorConfig
	message  *MessagePhase
	proposal *ProposalPhase
	voting   *VotingPhase
	bus      *events.Bus
	saver    *Saver
	logger   *logging.Logger

	started atomic.Bool // Begin already called
	busy    atomic.Bool // an operation is in flight

	// mu guards session mutation and observer snapshots. Phase fan-outs
	// run outside the lock; only the goroutine holding busy mutates.
	mu     sync.Mutex
	sess   *core.Session
	result *core.SessionResult

	discussionDone bool
	earlyStopped   bool
	fallbackStreak int
}

// NewOrchestrator creates a session orchestrator. The bus and saver may
// be nil, in which case events and persistence are skipped.
func NewOrchestrator(
	config *OrchestratorConfig,
	client core.CompletionClient,
	prompts *PromptRenderer,
	bus *events.Bus,
	saver *Saver,
	logger *logging.Logger,
) *Orchestrator {
	if config == nil {
		config = DefaultOrchestratorConfig()
	}
	return &Orchestrator{
		config:   config,
		message:  NewMessagePhase(client, prompts, logger, config.CallTimeout),
		proposal: NewProposalPhase(client, prompts, logger, config.CallTimeout),
		voting:   NewVotingPhase(client, prompts, logger, config.CallTimeout),
		bus:      bus,
		saver:    saver,
		logger:   logger.WithComponent("orchestrator"),
	}
}

// Begin validates the trigger and creates the session in the discussing
// state. Returns a snapshot of the new session.
func (o *Orchestrator) Begin(trigger Trigger) (*core.Session, error) {
	if !o.started.CompareAndSwap(false, true) {
		return nil, core.ErrSessionState("orchestrator already ran a session")
	}

	sess := core.NewSession(
		uuid.NewString(),
		trigger.Topic,
		trigger.UserID,
		trigger.MaxRounds,
		trigger.Rule,
		trigger.Personas,
	)
	if err := sess.Validate(); err != nil {
		o.started.Store(false)
		return nil, err
	}
	if err := sess.Start(); err != nil {
		o.started.Store(false)
		return nil, err
	}

	o.mu.Lock()
	o.sess = sess
	o.mu.Unlock()

	ids := make([]string, len(sess.Personas))
	for i, p := range sess.Personas {
		ids[i] = string(p.ID)
	}

	o.logger.Info("session started",
		"session_id", sess.ID,
		"topic_length", len(sess.Topic),
		"personas", len(ids),
		"rule", sess.VotingRule.String(),
		"max_rounds", sess.MaxRounds,
	)
	o.publish(events.NewSessionStartedEvent(sess.ID, sess.Topic, ids, sess.VotingRule.String(), sess.MaxRounds))

	return sess.Clone(), nil
}

// Run executes the full deliberation under the session wall-clock
// budget: discussion rounds until early stop or max rounds, then
// proposals, voting, and aggregation. Equivalent to Begin followed by
// RunRound until done followed by Finalize.
func (o *Orchestrator) Run(ctx context.Context, trigger Trigger) (*core.SessionResult, error) {
	if _, err := o.Begin(trigger); err != nil {
		return nil, err
	}
	if !o.busy.CompareAndSwap(false, true) {
		return nil, core.ErrSessionState("another operation is in progress")
	}
	defer o.busy.Store(false)

	ctx, cancel := context.WithTimeout(ctx, o.config.SessionTimeout)
	defer cancel()

	for {
		_, done, err := o.runRound(ctx)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
	}

	return o.finalize(ctx)
}

// RunRound executes exactly one discussion round for incremental
// observation. The bool reports whether discussion is finished, either
// by early stop or by reaching max rounds.
func (o *Orchestrator) RunRound(ctx context.Context) (*core.Round, bool, error) {
	if !o.started.Load() {
		return nil, false, core.ErrSessionState("session not started")
	}
	if !o.busy.CompareAndSwap(false, true) {
		return nil, false, core.ErrSessionState("another operation is in progress")
	}
	defer o.busy.Store(false)

	return o.runRound(ctx)
}

// Finalize runs the proposal and voting phases and aggregates the
// result. It may only be called after discussion finished.
func (o *Orchestrator) Finalize(ctx context.Context) (*core.SessionResult, error) {
	if !o.started.Load() {
		return nil, core.ErrSessionState("session not started")
	}
	if !o.busy.CompareAndSwap(false, true) {
		return nil, core.ErrSessionState("another operation is in progress")
	}
	defer o.busy.Store(false)

	return o.finalize(ctx)
}

// Session returns a deep snapshot of the session, safe to inspect while
// the orchestrator keeps running. Nil before Begin.
func (o *Orchestrator) Session() *core.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return nil
	}
	return o.sess.Clone()
}

// Result returns the session result, or nil while the session is still
// running or after a failure.
func (o *Orchestrator) Result() *core.SessionResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}

func (o *Orchestrator) runRound(ctx context.Context) (*core.Round, bool, error) {
	sess := o.sess
	if sess.Status != core.StatusDiscussing {
		return nil, false, core.ErrSessionState(fmt.Sprintf("cannot run a round in %s state", sess.Status))
	}
	if o.discussionDone {
		return nil, false, core.ErrSessionState("discussion already finished")
	}

	roundIndex := len(sess.Rounds)
	roundNum := roundIndex + 1

	o.logger.Info("round started", "session_id", sess.ID, "round", roundNum, "max_rounds", sess.MaxRounds)
	o.publish(events.NewRoundStartedEvent(sess.ID, roundNum))

	round, err := o.message.Run(ctx, sess, roundIndex)
	if err != nil {
		return nil, false, o.fail(err)
	}

	o.mu.Lock()
	err = sess.AddRound(round)
	o.mu.Unlock()
	if err != nil {
		return nil, false, o.fail(err)
	}

	for _, m := range round.Messages {
		o.publish(events.NewMessageAddedEvent(sess.ID, roundNum, string(m.PersonaID), string(m.AgreementSignal), m.IsFallback))
	}

	// The partial transcript is kept even when the deadline killed the
	// round, so a timed-out session still persists what it gathered.
	if ctx.Err() != nil {
		return nil, false, o.fail(o.ctxErr(ctx))
	}
	if err := o.trackFallbacks(core.PhaseMessage, round.AllFallback()); err != nil {
		return nil, false, o.fail(err)
	}

	done := false
	if EarlyStop(round, len(sess.Personas)) {
		done = true
		o.earlyStopped = true
		o.logger.Info("early stop: personas converged", "session_id", sess.ID, "round", roundNum)
		o.publish(events.NewSessionEarlyStoppedEvent(sess.ID, roundNum))
	} else if len(sess.Rounds) >= sess.MaxRounds {
		done = true
	}
	o.discussionDone = done

	o.logger.Info("round completed",
		"session_id", sess.ID,
		"round", roundNum,
		"fallbacks", round.FallbackCount(),
		"discussion_done", done,
	)
	o.publish(events.NewRoundCompletedEvent(sess.ID, roundNum, round.FallbackCount(), o.earlyStopped))

	return &round, done, nil
}

func (o *Orchestrator) finalize(ctx context.Context) (*core.SessionResult, error) {
	sess := o.sess
	if sess.Status != core.StatusDiscussing {
		return nil, core.ErrSessionState(fmt.Sprintf("cannot finalize in %s state", sess.Status))
	}
	if !o.discussionDone {
		return nil, core.ErrSessionState("discussion has not finished")
	}

	// Proposal phase, exactly once.
	o.mu.Lock()
	err := sess.BeginProposing()
	o.mu.Unlock()
	if err != nil {
		return nil, err
	}
	o.logger.Info("proposal phase started", "session_id", sess.ID)
	o.publish(events.NewPhaseStartedEvent(sess.ID, core.PhaseProposal.String()))

	proposals, err := o.proposal.Run(ctx, sess)
	if err != nil {
		return nil, o.fail(err)
	}

	o.mu.Lock()
	err = sess.SetProposals(proposals)
	o.mu.Unlock()
	if err != nil {
		return nil, o.fail(err)
	}

	proposalFallbacks := 0
	for _, p := range proposals {
		if p.IsFallback {
			proposalFallbacks++
		}
		o.publish(events.NewProposalAddedEvent(sess.ID, p.ID, string(p.PersonaID), p.Title, p.QualityScore, p.IsFallback))
	}
	o.logger.Info("proposal phase completed", "session_id", sess.ID, "proposals", len(proposals), "fallbacks", proposalFallbacks)
	o.publish(events.NewPhaseCompletedEvent(sess.ID, core.PhaseProposal.String(), proposalFallbacks))

	if ctx.Err() != nil {
		return nil, o.fail(o.ctxErr(ctx))
	}
	if err := o.trackFallbacks(core.PhaseProposal, core.AllFallbackProposals(proposals)); err != nil {
		return nil, o.fail(err)
	}

	// Voting phase, exactly once.
	o.mu.Lock()
	err = sess.BeginVoting()
	o.mu.Unlock()
	if err != nil {
		return nil, o.fail(err)
	}
	o.logger.Info("voting phase started", "session_id", sess.ID, "rule", sess.VotingRule.String())
	o.publish(events.NewPhaseStartedEvent(sess.ID, core.PhaseVoting.String()))

	votes, outcome, err := o.voting.Run(ctx, sess, proposals)
	if err != nil {
		return nil, o.fail(err)
	}

	o.mu.Lock()
	err = sess.SetVotes(votes)
	o.mu.Unlock()
	if err != nil {
		return nil, o.fail(err)
	}

	for _, v := range votes {
		o.publish(events.NewVoteAddedEvent(sess.ID, string(v.PersonaID), v.IsFallback))
	}
	o.logger.Info("voting phase completed", "session_id", sess.ID, "fallbacks", outcome.Distribution.FallbackBallots)
	o.publish(events.NewPhaseCompletedEvent(sess.ID, core.PhaseVoting.String(), outcome.Distribution.FallbackBallots))

	if ctx.Err() != nil {
		return nil, o.fail(o.ctxErr(ctx))
	}
	if err := o.trackFallbacks(core.PhaseVoting, core.AllFallbackVotes(votes)); err != nil {
		return nil, o.fail(err)
	}

	result := BuildResult(sess, outcome)

	o.mu.Lock()
	err = sess.Complete()
	if err == nil {
		o.result = result
	}
	o.mu.Unlock()
	if err != nil {
		return nil, o.fail(err)
	}

	o.logger.Info("session completed",
		"session_id", sess.ID,
		"winner", result.WinnerProposalID,
		"winner_persona", string(result.WinnerPersonaID),
		"consensus", result.ConsensusScore,
		"rounds", result.RoundsUsed,
		"early_stopped", result.EarlyStopped,
	)
	o.publish(events.NewSessionCompletedEvent(sess.ID, result.WinnerProposalID, string(result.WinnerPersonaID), result.ConsensusScore, result.RoundsUsed))
	o.enqueueSave(result)

	return result, nil
}

// fail transitions the session to failed, publishes the failure, hands
// the partial session to the saver, and returns the original error.
func (o *Orchestrator) fail(err error) error {
	code := core.ErrorCode(err)
	if code == "" {
		code = "INTERNAL"
	}

	o.mu.Lock()
	sess := o.sess
	ferr := sess.Fail(code)
	o.mu.Unlock()
	if ferr != nil {
		// Already terminal, nothing more to record.
		return err
	}

	o.logger.Error("session failed", "session_id", sess.ID, "code", code, "error", err)
	o.publish(events.NewSessionFailedEvent(sess.ID, code, err.Error()))
	o.enqueueSave(nil)

	return err
}

// trackFallbacks advances the availability breaker. Two consecutive
// phase executions in which every call fell back fail the session.
func (o *Orchestrator) trackFallbacks(phase core.Phase, allFallback bool) error {
	if !allFallback {
		o.fallbackStreak = 0
		return nil
	}
	o.fallbackStreak++
	o.logger.Warn("every persona call fell back",
		"session_id", o.sess.ID,
		"phase", phase.String(),
		"streak", o.fallbackStreak,
	)
	if o.fallbackStreak >= breakerLimit {
		return core.ErrAllAgentsUnavailable(phase)
	}
	return nil
}

// ctxErr classifies why the session context ended.
func (o *Orchestrator) ctxErr(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return core.ErrSessionTimeout(o.config.SessionTimeout)
	}
	return core.ErrSessionCanceled()
}

func (o *Orchestrator) publish(e events.Event) {
	if o.bus != nil {
		o.bus.Publish(e)
	}
}

func (o *Orchestrator) enqueueSave(result *core.SessionResult) {
	if o.saver == nil {
		return
	}
	o.mu.Lock()
	snap := o.sess.Clone()
	o.mu.Unlock()
	o.saver.Enqueue(snap, result)
}
