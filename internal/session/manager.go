// Package session hosts many wizard instances behind opaque ids for the HTTP
// front end. Each session owns a Controller and an Outbox of notifications;
// sessions idle past the TTL are swept.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "creator-match/internal/common/errors"
	"creator-match/internal/common/logger"
	"creator-match/internal/common/metrics"
	"creator-match/internal/common/observability"
	"creator-match/internal/models"
	notificationsink "creator-match/internal/services/notification-sink"
	"creator-match/internal/wizard"

	"github.com/google/uuid"
)

type Config struct {
	Wizard        wizard.Config
	TTL           time.Duration
	SweepInterval time.Duration
	// OutboxCapacity bounds undrained notifications per session.
	OutboxCapacity int
}

func DefaultConfig() *Config {
	return &Config{
		Wizard:        wizard.Config{EnableEmailCapture: true},
		TTL:           30 * time.Minute,
		SweepInterval: time.Minute,
	}
}

func (c *Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}
	return nil
}

type Dependencies struct {
	Scores wizard.ScoreGenerator
	Email  wizard.EmailDispatcher
	// Sinks receive every session's notifications next to its Outbox.
	Sinks []wizard.NotificationSink
	// SNS, when set, is tagged with the session id and added per session.
	SNS           *notificationsink.SNSSink
	Store         Store
	Observability *observability.Observability
	Logger        logger.Logger
}

// Entry is one live session.
type Entry struct {
	ID         string
	Controller *wizard.Controller
	Outbox     *notificationsink.Outbox

	mu      sync.Mutex
	meta    models.Session
	version int64

	// persistMu orders snapshot saves and store syncs for this entry.
	persistMu sync.Mutex
}

// Meta returns a copy of the session envelope.
func (e *Entry) Meta() models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meta
}

func (e *Entry) touch(ttl time.Duration) models.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.meta.Touch(ttl)
	return e.meta
}

// Version is the last store version this entry wrote or adopted.
func (e *Entry) Version() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.version
}

func (e *Entry) setVersion(v int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.version = v
}

func (e *Entry) adopt(meta models.Session, v int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.meta = meta
	e.version = v
}

func (e *Entry) expired(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return now.After(e.meta.ExpiresAt)
}

type Manager struct {
	cfg    *Config
	deps   Dependencies
	email  wizard.EmailDispatcher
	logger logger.Logger

	mu       sync.Mutex
	sessions map[string]*Entry
	closed   bool
	done     chan struct{}

	watchers sync.WaitGroup
}

func NewManager(deps Dependencies, config *Config) (*Manager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if deps.Scores == nil {
		return nil, fmt.Errorf("score generator is required")
	}
	if config.Wizard.EnableEmailCapture && deps.Email == nil {
		return nil, fmt.Errorf("email dispatcher is required when email capture is enabled")
	}

	m := &Manager{
		cfg:      config,
		deps:     deps,
		logger:   logger.ForComponent(deps.Logger, "session-manager"),
		sessions: make(map[string]*Entry),
		done:     make(chan struct{}),
	}
	if deps.Email != nil {
		m.email = &timedDispatcher{next: deps.Email, obs: deps.Observability}
	}
	return m, nil
}

// Create starts a fresh wizard in its own session.
func (m *Manager) Create(ctx context.Context) (*Entry, error) {
	now := time.Now().UTC()
	meta := models.Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(m.cfg.TTL),
	}

	entry, err := m.newEntry(meta)
	if err != nil {
		return nil, err
	}

	if err := m.add(entry); err != nil {
		return nil, err
	}
	m.deps.Observability.RecordSession(ctx, "created")
	m.logger.Info("session created", map[string]interface{}{"sessionId": meta.ID})

	m.Persist(ctx, entry)
	return entry, nil
}

// Get returns a live session and extends its expiry. Sessions missing from
// memory are reloaded from the store when one is configured; sessions held in
// memory pick up any newer snapshot another instance saved.
func (m *Manager) Get(ctx context.Context, id string) (*Entry, error) {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	m.mu.Unlock()

	if ok && entry.expired(time.Now()) {
		m.evict(ctx, entry, "expired")
		return nil, apperrors.NewSessionNotFoundError(id)
	}

	if ok && m.deps.Store != nil {
		entry.persistMu.Lock()
		err := m.syncLocked(ctx, entry)
		entry.persistMu.Unlock()
		if errors.Is(err, ErrNotFound) {
			m.evict(ctx, entry, "removed")
			return nil, apperrors.NewSessionNotFoundError(id)
		}
	}

	if !ok {
		var err error
		entry, err = m.reload(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	entry.touch(m.cfg.TTL)
	return entry, nil
}

// Delete ends a session.
func (m *Manager) Delete(ctx context.Context, id string) error {
	entry, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	m.evict(ctx, entry, "closed")
	return nil
}

// Persist mirrors a live session to the store under the next version. When
// another instance saved a newer version first, the entry is resynced from the
// store instead. Other store errors are logged and the in-memory session is
// kept.
func (m *Manager) Persist(ctx context.Context, entry *Entry) {
	if m.deps.Store == nil {
		return
	}
	m.mu.Lock()
	live := m.sessions[entry.ID] == entry
	m.mu.Unlock()
	if !live {
		return
	}

	entry.persistMu.Lock()
	defer entry.persistMu.Unlock()

	rec := Record{
		Session: entry.Meta(),
		State:   entry.Controller.Snapshot(),
		Version: entry.Version() + 1,
	}
	err := m.deps.Store.Save(ctx, rec, m.cfg.TTL)
	switch {
	case err == nil:
		entry.setVersion(rec.Version)
	case errors.Is(err, ErrStale):
		m.logger.Info("session changed elsewhere, resyncing", map[string]interface{}{
			"sessionId": entry.ID,
			"version":   rec.Version,
		})
		if errors.Is(m.syncLocked(ctx, entry), ErrNotFound) {
			m.evict(ctx, entry, "removed")
		}
	default:
		m.logger.Warn("session persist failed", map[string]interface{}{
			"sessionId": entry.ID,
			"error":     err,
		})
	}
}

// syncLocked restores a newer stored snapshot into entry. It returns
// ErrNotFound when a record this entry already wrote has been removed. Callers
// hold entry.persistMu.
func (m *Manager) syncLocked(ctx context.Context, entry *Entry) error {
	rec, err := m.deps.Store.Load(ctx, entry.ID)
	if errors.Is(err, ErrNotFound) {
		if entry.Version() == 0 {
			return nil
		}
		return ErrNotFound
	}
	if err != nil {
		m.logger.Warn("session sync failed", map[string]interface{}{"sessionId": entry.ID, "error": err})
		return nil
	}
	if rec.Version <= entry.Version() {
		return nil
	}

	if err := entry.Controller.Restore(rec.State); err != nil {
		m.logger.Warn("ignoring unrestorable session snapshot", map[string]interface{}{
			"sessionId": entry.ID,
			"version":   rec.Version,
			"error":     err,
		})
		return nil
	}
	entry.adopt(rec.Session, rec.Version)
	m.logger.Debug("session synced from store", map[string]interface{}{
		"sessionId": entry.ID,
		"version":   rec.Version,
		"step":      rec.State.Step,
	})
	return nil
}

// SubmitEmail starts the async dispatch and persists the session again once
// the outcome is known.
func (m *Manager) SubmitEmail(ctx context.Context, entry *Entry, address string) error {
	outcome, err := entry.Controller.SubmitEmail(ctx, address)
	if err != nil {
		return err
	}
	m.Persist(ctx, entry)

	// After Close the dispatch is still awaited through the controller, but
	// its outcome is not persisted.
	m.track(func() {
		<-outcome
		m.Persist(context.WithoutCancel(ctx), entry)
	})
	return nil
}

// track runs fn on a goroutine that Close waits for. Once Close has begun,
// fn is not started.
func (m *Manager) track(fn func()) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.watchers.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.watchers.Done()
		fn()
	}()
}

// Sweep evicts every expired session and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) int {
	now := time.Now()

	m.mu.Lock()
	var stale []*Entry
	for _, e := range m.sessions {
		if e.expired(now) {
			stale = append(stale, e)
		}
	}
	m.mu.Unlock()

	for _, e := range stale {
		m.evict(ctx, e, "expired")
	}
	if len(stale) > 0 {
		m.logger.Info("expired sessions swept", map[string]interface{}{"count": len(stale)})
	}
	return len(stale)
}

// Run sweeps on SweepInterval until ctx is done or the manager is closed.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close refuses new sessions and waits for in-flight email dispatches.
func (m *Manager) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	entries := make([]*Entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.mu.Unlock()

	for _, e := range entries {
		e.Controller.Wait()
	}
	m.watchers.Wait()
}

func (m *Manager) newEntry(meta models.Session) (*Entry, error) {
	outbox := notificationsink.NewOutbox(m.cfg.OutboxCapacity)

	sinks := append(notificationsink.Fanout{outbox}, m.deps.Sinks...)
	if m.deps.SNS != nil {
		sinks = append(sinks, m.deps.SNS.ForSession(meta.ID))
	}

	ctrl, err := wizard.New(m.cfg.Wizard, wizard.Dependencies{
		Scores:   m.deps.Scores,
		Email:    m.email,
		Notifier: sinks,
		Logger:   m.logger.WithFields(map[string]interface{}{"sessionId": meta.ID}),
	})
	if err != nil {
		return nil, err
	}

	return &Entry{
		ID:         meta.ID,
		Controller: ctrl,
		Outbox:     outbox,
		meta:       meta,
	}, nil
}

func (m *Manager) add(entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return apperrors.NewInternalError(errors.New("session manager is shut down"))
	}
	m.sessions[entry.ID] = entry
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	return nil
}

func (m *Manager) reload(ctx context.Context, id string) (*Entry, error) {
	if m.deps.Store == nil {
		return nil, apperrors.NewSessionNotFoundError(id)
	}

	rec, err := m.deps.Store.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	if err != nil {
		m.logger.Error("session reload failed", map[string]interface{}{"sessionId": id, "error": err})
		return nil, apperrors.NewInternalError(err)
	}
	if rec.Session.IsExpired() {
		_ = m.deps.Store.Delete(ctx, id)
		return nil, apperrors.NewSessionNotFoundError(id)
	}

	entry, err := m.newEntry(rec.Session)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	entry.version = rec.Version
	if err := entry.Controller.Restore(rec.State); err != nil {
		m.logger.Warn("discarding unrestorable session", map[string]interface{}{"sessionId": id, "error": err})
		_ = m.deps.Store.Delete(ctx, id)
		return nil, apperrors.NewSessionNotFoundError(id)
	}

	m.mu.Lock()
	if existing, ok := m.sessions[id]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.mu.Unlock()

	if err := m.add(entry); err != nil {
		return nil, err
	}
	m.logger.Info("session restored", map[string]interface{}{"sessionId": id})
	return entry, nil
}

func (m *Manager) evict(ctx context.Context, entry *Entry, reason string) {
	m.mu.Lock()
	current, ok := m.sessions[entry.ID]
	if ok && current == entry {
		delete(m.sessions, entry.ID)
	}
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	// Once closed, Close has already collected this entry and waits on it.
	watch := ok && current == entry && !m.closed
	if watch {
		m.watchers.Add(1)
	}
	m.mu.Unlock()

	if !ok || current != entry {
		return
	}

	if watch {
		go func() {
			defer m.watchers.Done()
			entry.Controller.Wait()
		}()
	}

	if m.deps.Store != nil {
		if err := m.deps.Store.Delete(ctx, entry.ID); err != nil {
			m.logger.Warn("session delete failed", map[string]interface{}{"sessionId": entry.ID, "error": err})
		}
	}
	m.deps.Observability.RecordSession(ctx, reason)
	m.logger.Info("session ended", map[string]interface{}{"sessionId": entry.ID, "reason": reason})
}

// timedDispatcher records dispatch latency on the otel meter.
type timedDispatcher struct {
	next wizard.EmailDispatcher
	obs  *observability.Observability
}

func (d *timedDispatcher) Send(ctx context.Context, address string, result *models.MatchResult) (*models.DeliveryReceipt, error) {
	start := time.Now()
	receipt, err := d.next.Send(ctx, address, result)

	provider, outcome := "unknown", "sent"
	if receipt != nil {
		provider = receipt.Provider
	}
	if err != nil {
		outcome = "failed"
	}
	d.obs.RecordDispatch(ctx, time.Since(start), provider, outcome)
	return receipt, err
}
