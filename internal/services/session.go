package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"churninsight/dashboard/internal/metrics"
)

// Session bundles the controllers of one dashboard operator.
type Session struct {
	ID         string
	Batch      *BatchController
	Search     *SearchController
	Prediction *PredictionController
}

// Close disposes the session's poller and cancels its pending search.
func (s *Session) Close() {
	if s.Batch != nil {
		s.Batch.Close()
	}
	if s.Search != nil {
		s.Search.Close()
	}
}

type SessionFactory func(id string) *Session

// SessionRegistry hands out sessions by id and reaps the idle ones.
type SessionRegistry interface {
	Get(id string) *Session
	Remove(id string)
	Len() int
	Start(ctx context.Context)
	Stop()
}

type sessionEntry struct {
	session  *Session
	lastSeen time.Time
}

type sessionRegistry struct {
	factory       SessionFactory
	idleTimeout   time.Duration
	sweepInterval time.Duration
	metrics       *metrics.Collector
	log           *zap.Logger
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

func NewSessionRegistry(
	factory SessionFactory,
	idleTimeout time.Duration,
	sweepInterval time.Duration,
	collector *metrics.Collector,
	log *zap.Logger,
) SessionRegistry {
	if log == nil {
		log = zap.NewNop()
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &sessionRegistry{
		factory:       factory,
		idleTimeout:   idleTimeout,
		sweepInterval: sweepInterval,
		metrics:       collector,
		log:           log,
		now:           time.Now,
		sessions:      make(map[string]*sessionEntry),
		stopChan:      make(chan struct{}),
	}
}

// Get returns the session for id, creating it on first use.
func (r *sessionRegistry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.sessions[id]; ok {
		entry.lastSeen = r.now()
		return entry.session
	}

	session := r.factory(id)
	r.sessions[id] = &sessionEntry{session: session, lastSeen: r.now()}
	r.metrics.SetActiveSessions(len(r.sessions))
	r.log.Debug("session created", zap.String("session_id", id))
	return session
}

func (r *sessionRegistry) Remove(id string) {
	r.mu.Lock()
	entry, ok := r.sessions[id]
	delete(r.sessions, id)
	r.metrics.SetActiveSessions(len(r.sessions))
	r.mu.Unlock()

	if ok {
		entry.session.Close()
	}
}

func (r *sessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Start launches the idle-session reaper.
func (r *sessionRegistry) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.reapIdle(ctx)
	r.log.Info("session reaper started",
		zap.Duration("idle_timeout", r.idleTimeout),
		zap.Duration("sweep_interval", r.sweepInterval),
	)
}

// Stop halts the reaper and closes every session.
func (r *sessionRegistry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()

	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*sessionEntry)
	r.metrics.SetActiveSessions(0)
	r.mu.Unlock()

	for _, entry := range sessions {
		entry.session.Close()
	}
	r.log.Info("session registry stopped", zap.Int("closed", len(sessions)))
}

func (r *sessionRegistry) reapIdle(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.sweep(); n > 0 {
				r.log.Info("reaped idle sessions", zap.Int("count", n))
			}
		}
	}
}

// sweep closes sessions idle for longer than the timeout and returns how
// many it closed.
func (r *sessionRegistry) sweep() int {
	if r.idleTimeout <= 0 {
		return 0
	}

	cutoff := r.now().Add(-r.idleTimeout)
	var idle []*Session

	r.mu.Lock()
	for id, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) {
			idle = append(idle, entry.session)
			delete(r.sessions, id)
		}
	}
	r.metrics.SetActiveSessions(len(r.sessions))
	r.mu.Unlock()

	for _, session := range idle {
		session.Close()
	}
	r.metrics.RecordReaped(len(idle))
	return len(idle)
}
