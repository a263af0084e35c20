package service

import (
	"context"
	"sort"
	"sync"

	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/events"
	"github.com/roundtable-ai/roundtable/internal/logging"
)

// Manager launches sessions in the background and tracks the live
// orchestrators so callers can snapshot sessions in flight. It never
// mutates a session; it only launches and reads.
type Manager struct {
	config  *OrchestratorConfig
	client  core.CompletionClient
	prompts *PromptRenderer
	bus     *events.Bus
	saver   *Saver
	logger  *logging.Logger

	running sync.Map // session id -> *managed
	wg      sync.WaitGroup
}

type managed struct {
	orch   *Orchestrator
	cancel context.CancelFunc
}

// NewManager creates a session manager. The bus and saver may be nil;
// they are handed through to each orchestrator.
func NewManager(
	config *OrchestratorConfig,
	client core.CompletionClient,
	prompts *PromptRenderer,
	bus *events.Bus,
	saver *Saver,
	logger *logging.Logger,
) *Manager {
	if config == nil {
		config = DefaultOrchestratorConfig()
	}
	return &Manager{
		config:  config,
		client:  client,
		prompts: prompts,
		bus:     bus,
		saver:   saver,
		logger:  logger.WithComponent("manager"),
	}
}

// Launch validates the trigger, starts the session, and runs it to
// completion in the background. The returned snapshot carries the new
// session id; callers poll Get or subscribe to the bus for progress.
func (m *Manager) Launch(trigger Trigger) (*core.Session, error) {
	orch := NewOrchestrator(m.config, m.client, m.prompts, m.bus, m.saver, m.logger)

	snap, err := orch.Begin(trigger)
	if err != nil {
		return nil, err
	}

	// Sessions outlive the request that triggered them, so the run
	// context detaches from the caller and carries its own budget.
	ctx, cancel := context.WithTimeout(context.Background(), m.config.SessionTimeout)
	m.running.Store(snap.ID, &managed{orch: orch, cancel: cancel})

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.running.Delete(snap.ID)
		defer cancel()
		m.drive(ctx, orch)
	}()

	return snap, nil
}

// drive steps the discussion round by round and finalizes. Failures are
// already logged and persisted by the orchestrator.
func (m *Manager) drive(ctx context.Context, orch *Orchestrator) {
	for {
		_, done, err := orch.RunRound(ctx)
		if err != nil {
			return
		}
		if done {
			break
		}
	}
	_, _ = orch.Finalize(ctx)
}

// Get returns a deep snapshot of a live session, or false when no
// session with that id is currently running.
func (m *Manager) Get(id string) (*core.Session, bool) {
	v, ok := m.running.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*managed).orch.Session(), true
}

// Result returns a live session's result once it completed, before the
// entry is removed from tracking.
func (m *Manager) Result(id string) (*core.SessionResult, bool) {
	v, ok := m.running.Load(id)
	if !ok {
		return nil, false
	}
	res := v.(*managed).orch.Result()
	return res, res != nil
}

// Active returns the ids of sessions currently running, sorted.
func (m *Manager) Active() []string {
	ids := make([]string, 0)
	m.running.Range(func(key, _ any) bool {
		ids = append(ids, key.(string))
		return true
	})
	sort.Strings(ids)
	return ids
}

// Shutdown cancels every running session. Each fails as canceled and
// persists its partial transcript through the saver.
func (m *Manager) Shutdown() {
	m.running.Range(func(_, v any) bool {
		v.(*managed).cancel()
		return true
	})
}

// Wait blocks until every launched session has finished, or the context
// expires. Call after Shutdown and before draining the saver.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
