package service

import (
	"context"
	"sync"
	"time"

	"github.com/roundtable-ai/roundtable/internal/core"
	"github.com/roundtable-ai/roundtable/internal/logging"
)

// saveTimeout bounds a single store write.
const saveTimeout = 30 * time.Second

// Saver persists sessions asynchronously so phase execution never waits
// on the store. A single goroutine drains the queue in enqueue order.
type Saver struct {
	store  core.SessionStore
	logger *logging.Logger

	queue chan saveJob
	done  chan struct{}
	once  sync.Once
}

type saveJob struct {
	session *core.Session
	result  *core.SessionResult
}

// NewSaver creates a saver and starts its worker goroutine. A
// non-positive queueSize gets a small default.
func NewSaver(store core.SessionStore, logger *logging.Logger, queueSize int) *Saver {
	if queueSize <= 0 {
		queueSize = 16
	}
	s := &Saver{
		store:  store,
		logger: logger.WithComponent("saver"),
		queue:  make(chan saveJob, queueSize),
		done:   make(chan struct{}),
	}
	go s.loop()
	return s
}

// Enqueue hands a session (and its result, when completed) to the
// worker. Callers pass snapshots; the saver never sees live state.
func (s *Saver) Enqueue(session *core.Session, result *core.SessionResult) {
	s.queue <- saveJob{session: session, result: result}
}

// Drain stops accepting work, waits for the queue to empty, and closes
// the store. Safe to call more than once.
func (s *Saver) Drain(ctx context.Context) error {
	s.once.Do(func() { close(s.queue) })

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.store.Close()
}

func (s *Saver) loop() {
	defer close(s.done)
	for job := range s.queue {
		// Saves get their own context: the session that produced the
		// job may already be canceled or timed out.
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := s.store.SaveSession(ctx, job.session, job.result)
		cancel()
		if err != nil {
			s.logger.Error("session save failed",
				"session_id", job.session.ID,
				"status", job.session.Status.String(),
				"error", err,
			)
			continue
		}
		s.logger.Debug("session saved",
			"session_id", job.session.ID,
			"status", job.session.Status.String(),
		)
	}
}
