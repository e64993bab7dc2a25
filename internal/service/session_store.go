package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/anmicius0/unit-batch-station/internal/scan"
	"github.com/anmicius0/unit-batch-station/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// Factory builds the workflow of a new session.
type Factory func(kind Kind, sessionID string) (Workflow, error)

// NewFactory returns a Factory that gives each session its own deps and the current scan rules.
func NewFactory(base Deps, rules func(workflow string) scan.Rules) Factory {
	return func(kind Kind, sessionID string) (Workflow, error) {
		deps := base
		deps.SessionID = sessionID
		if rules != nil {
			deps.Rules = rules(string(kind))
		}
		return New(kind, deps)
	}
}

// Session owns one workflow. Calls through Do are serialized.
type Session struct {
	ID        string
	Kind      Kind
	CreatedAt time.Time

	mu       sync.Mutex
	workflow Workflow
	lastUsed time.Time
	now      func() time.Time
}

// Do runs fn with exclusive access to the workflow.
func (s *Session) Do(fn func(Workflow) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = s.now()
	return fn(s.workflow)
}

// View returns the current view of the workflow.
func (s *Session) View() View {
	var v View
	_ = s.Do(func(w Workflow) error {
		v = w.View()
		return nil
	})
	return v
}

// idleSince reports the last use, or false when the session is busy.
func (s *Session) idleSince() (time.Time, bool) {
	if !s.mu.TryLock() {
		return time.Time{}, false
	}
	defer s.mu.Unlock()
	return s.lastUsed, true
}

// SessionStore keeps the live sessions of the station and expires idle ones.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	ttl      time.Duration
	now      func() time.Time
	onRemove func(id string)

	stopCh    chan struct{}
	doneCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
	started   bool
}

// NewSessionStore creates a store. A non-positive ttl disables expiry.
func NewSessionStore(factory Factory, ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// OnRemove registers a callback run after a session is deleted or expires.
func (ss *SessionStore) OnRemove(fn func(id string)) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.onRemove = fn
}

// Create starts a session running a new workflow of kind.
func (ss *SessionStore) Create(kind Kind) (*Session, error) {
	id := uuid.NewString()
	w, err := ss.factory(kind, id)
	if err != nil {
		return nil, err
	}
	now := ss.now()
	s := &Session{ID: id, Kind: kind, CreatedAt: now, workflow: w, lastUsed: now, now: ss.now}

	ss.mu.Lock()
	ss.sessions[id] = s
	count := len(ss.sessions)
	ss.mu.Unlock()

	utils.Logger.Info("Session created",
		zap.String(utils.FieldSessionID, id),
		zap.String(utils.FieldWorkflow, string(kind)),
		zap.Int("sessions", count))
	return s, nil
}

// Get returns the session with id.
func (ss *SessionStore) Get(id string) (*Session, error) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	s, ok := ss.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes the session with id.
func (ss *SessionStore) Delete(id string) error {
	ss.mu.Lock()
	_, ok := ss.sessions[id]
	delete(ss.sessions, id)
	onRemove := ss.onRemove
	ss.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if onRemove != nil {
		onRemove(id)
	}
	utils.Logger.Info("Session deleted", zap.String(utils.FieldSessionID, id))
	return nil
}

// Len returns the number of live sessions.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// Reap deletes sessions idle for longer than the TTL and returns how many went away.
// Busy sessions are skipped.
func (ss *SessionStore) Reap() int {
	if ss.ttl <= 0 {
		return 0
	}
	now := ss.now()

	ss.mu.Lock()
	var expired []string
	for id, s := range ss.sessions {
		last, idle := s.idleSince()
		if idle && now.Sub(last) > ss.ttl {
			expired = append(expired, id)
			delete(ss.sessions, id)
		}
	}
	onRemove := ss.onRemove
	ss.mu.Unlock()

	for _, id := range expired {
		if onRemove != nil {
			onRemove(id)
		}
		utils.Logger.Info("Session expired", zap.String(utils.FieldSessionID, id))
	}
	return len(expired)
}

// Start runs the reaper every interval until ctx is done or Close is called.
func (ss *SessionStore) Start(ctx context.Context, interval time.Duration) {
	if ss.ttl <= 0 {
		return
	}
	if interval <= 0 {
		interval = ss.ttl / 2
	}
	ss.startOnce.Do(func() {
		ss.mu.Lock()
		ss.started = true
		ss.mu.Unlock()

		go func() {
			defer close(ss.doneCh)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ss.stopCh:
					return
				case <-ticker.C:
					ss.Reap()
				}
			}
		}()
	})
}

// Close stops the reaper and waits for it to exit.
func (ss *SessionStore) Close() {
	ss.stopOnce.Do(func() {
		close(ss.stopCh)
		ss.mu.RLock()
		started := ss.started
		ss.mu.RUnlock()
		if started {
			<-ss.doneCh
		}
	})
}
