// Package ledger stores reasoning sessions: per-session, per-branch step
// sequences with revision history, bounded by a TTL sweep and a session
// capacity.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/reasonledger/pkg/models"
)

// RemovalReason explains why a session left the store.
type RemovalReason string

const (
	RemovalCleared   RemovalReason = "cleared"
	RemovalCapacity  RemovalReason = "capacity"
	RemovalExpired   RemovalReason = "expired"
	RemovalDestroyed RemovalReason = "destroyed"
)

// StoreStats are store-wide counters.
type StoreStats struct {
	Sessions      int   `json:"sessions"`
	Records       int   `json:"records"`
	Evictions     int64 `json:"evictions"`
	Expirations   int64 `json:"expirations"`
	Sweeps        int64 `json:"sweeps"`
	MaxSessions   int   `json:"max_sessions"`
	MaxRecords    int   `json:"max_records"`
	TTLMillis     int64 `json:"ttl_ms"`
	SweepInterval int64 `json:"cleanup_interval_ms"`
}

// Store owns all sessions. Records handed out by read methods are shared
// and must be treated as read-only.
type Store struct {
	ctx       context.Context
	sessions  map[string]*session
	onAdded   func(sessionID string, rec *models.ThoughtRecord)
	onRemoved func(sessionID string, reason RemovalReason)
	cancel    context.CancelFunc
	opts      Options
	wg        sync.WaitGroup
	mu        sync.RWMutex
	records   int
	closed    bool

	evictions   atomic.Int64
	expirations atomic.Int64
	sweeps      atomic.Int64
}

var (
	defaultStore     *Store
	defaultStoreOnce sync.Once
)

// Default returns the process-wide store, created on first use with
// DefaultOptions.
func Default() *Store {
	defaultStoreOnce.Do(func() {
		defaultStore = New(DefaultOptions())
	})
	return defaultStore
}

// New creates a store and starts its TTL sweeper unless
// opts.CleanupInterval is negative.
func New(opts Options) *Store {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		opts:     opts,
		sessions: make(map[string]*session),
		ctx:      ctx,
		cancel:   cancel,
	}
	if opts.CleanupInterval > 0 {
		s.startSweeper()
	}
	return s
}

// SetOnThoughtAdded registers a callback invoked after each successful insert.
func (s *Store) SetOnThoughtAdded(fn func(sessionID string, rec *models.ThoughtRecord)) {
	s.mu.Lock()
	s.onAdded = fn
	s.mu.Unlock()
}

// SetOnSessionRemoved registers a callback invoked for every removed session.
func (s *Store) SetOnSessionRemoved(fn func(sessionID string, reason RemovalReason)) {
	s.mu.Lock()
	s.onRemoved = fn
	s.mu.Unlock()
}

// AddOption modifies a single AddThought call.
type AddOption func(*addConfig)

type addConfig struct {
	override bool
}

// WithOverride allows replacing an existing step on the same branch.
func WithOverride() AddOption {
	return func(c *addConfig) { c.override = true }
}

// AddThought stores rec under sessionID, creating the session if needed.
// The record is copied; its ID, branch and timestamp are filled in.
// Creating a session when the store is at capacity evicts the least
// recently touched session first.
func (s *Store) AddThought(sessionID string, rec *models.ThoughtRecord, opts ...AddOption) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	if rec == nil {
		return newValidationError(ErrInvalidStep, "invalid_step", 0, 0, "thought record is required")
	}
	if rec.StepNumber < 1 {
		return newValidationError(ErrInvalidStep, "invalid_step", rec.StepNumber, 0,
			"step number must be positive, got %d", rec.StepNumber)
	}

	var cfg addConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	stored := rec.Clone()
	stored.BranchID = stored.Branch()
	stored.ID = models.StepID(sessionID, stored.BranchID, stored.StepNumber)
	now := s.opts.Now()
	if stored.Timestamp.IsZero() {
		stored.Timestamp = now
	}
	tokens := countTokens(stored.Thought)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	sess, exists := s.sessions[sessionID]
	replacing := false
	if exists {
		_, replacing = sess.byKey[stepKey{branch: stored.BranchID, step: stored.StepNumber}]
	}
	if replacing && !cfg.override {
		s.mu.Unlock()
		recordInsert("duplicate")
		return newValidationError(ErrDuplicateStep, "duplicate_step", stored.StepNumber, stored.StepNumber,
			"step %d already exists on branch %q", stored.StepNumber, stored.BranchID)
	}
	if !replacing && s.opts.MaxRecords > 0 && s.records >= s.opts.MaxRecords {
		s.mu.Unlock()
		recordInsert("rejected")
		log.Warn().
			Str("session", sessionID).
			Int("step", stored.StepNumber).
			Int("maxRecords", s.opts.MaxRecords).
			Msg("Ledger full, thought rejected")
		return fmt.Errorf("%w: limit of %d records reached", ErrStoreFull, s.opts.MaxRecords)
	}

	var evicted []string
	if !exists {
		evicted = s.evictOverflowLocked()
		sess = newSession(sessionID, now)
		s.sessions[sessionID] = sess
	}
	if !sess.put(stored, tokens) {
		s.records++
	}
	sess.touch(now)
	onAdded, onRemoved := s.onAdded, s.onRemoved
	s.mu.Unlock()

	for _, id := range evicted {
		log.Info().Str("session", id).Msg("Session evicted, ledger at capacity")
		recordRemoval(RemovalCapacity)
		if onRemoved != nil {
			onRemoved(id, RemovalCapacity)
		}
	}
	if !exists {
		recordSessionDelta(1)
	}
	if replacing {
		recordInsert("overridden")
	} else {
		recordInsert("stored")
	}

	log.Debug().
		Str("session", sessionID).
		Str("branch", stored.BranchID).
		Int("step", stored.StepNumber).
		Bool("override", replacing).
		Msg("Thought stored")

	if onAdded != nil {
		onAdded(sessionID, stored)
	}
	return nil
}

// evictOverflowLocked removes least recently touched sessions until there
// is room for one more. Caller holds s.mu.
func (s *Store) evictOverflowLocked() []string {
	var evicted []string
	for len(s.sessions) >= s.opts.MaxSessions {
		victim := s.oldestLocked()
		if victim == nil {
			break
		}
		s.removeLocked(victim)
		s.evictions.Add(1)
		evicted = append(evicted, victim.id)
	}
	return evicted
}

func (s *Store) oldestLocked() *session {
	var oldest *session
	for _, sess := range s.sessions {
		if oldest == nil || olderThan(sess, oldest) {
			oldest = sess
		}
	}
	return oldest
}

func olderThan(a, b *session) bool {
	la, lb := a.lastAccess.Load(), b.lastAccess.Load()
	if la != lb {
		return la < lb
	}
	if !a.createdAt.Equal(b.createdAt) {
		return a.createdAt.Before(b.createdAt)
	}
	return a.id < b.id
}

func (s *Store) removeLocked(sess *session) {
	delete(s.sessions, sess.id)
	s.records -= len(sess.entries)
}

// lookup returns the session and marks it accessed.
// Caller holds at least a read lock.
func (s *Store) lookupLocked(sessionID string) *session {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	sess.touch(s.opts.Now())
	return sess
}

// GetThoughts returns the session's records in ascending step order. An
// empty branch selects all branches. Unknown sessions yield an empty slice.
func (s *Store) GetThoughts(sessionID, branch string) []*models.ThoughtRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.lookupLocked(sessionID)
	if sess == nil {
		return []*models.ThoughtRecord{}
	}
	return sess.ordered(branch)
}

// GetStep returns the most recently written record with the given step
// number across all branches.
func (s *Store) GetStep(sessionID string, step int) (*models.ThoughtRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.lookupLocked(sessionID)
	if sess == nil {
		return nil, false
	}
	e, ok := sess.byStep[step]
	if !ok {
		return nil, false
	}
	return e.rec, true
}

// GetBranchStep returns the record for step on a specific branch.
func (s *Store) GetBranchStep(sessionID, branch string, step int) (*models.ThoughtRecord, bool) {
	if branch == "" {
		branch = models.DefaultBranch
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.lookupLocked(sessionID)
	if sess == nil {
		return nil, false
	}
	e, ok := sess.byKey[stepKey{branch: branch, step: step}]
	if !ok {
		return nil, false
	}
	return e.rec, true
}

// HasStep reports whether any branch of the session holds step.
func (s *Store) HasStep(sessionID string, step int) bool {
	_, ok := s.GetStep(sessionID, step)
	return ok
}

// Branches returns the session's branch ids in creation order.
func (s *Store) Branches(sessionID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.lookupLocked(sessionID)
	if sess == nil {
		return []string{}
	}
	out := make([]string, len(sess.branchOrder))
	copy(out, sess.branchOrder)
	return out
}

// List returns metadata for every session, oldest first. Listing does not
// count as access.
func (s *Store) List() []models.SessionInfo {
	s.mu.RLock()
	out := make([]models.SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.info())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Clear removes one session. It reports whether the session existed.
func (s *Store) Clear(sessionID string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok {
		s.removeLocked(sess)
	}
	onRemoved := s.onRemoved
	s.mu.Unlock()

	if !ok {
		return false
	}
	recordRemoval(RemovalCleared)
	log.Info().Str("session", sessionID).Msg("Session cleared")
	if onRemoved != nil {
		onRemoved(sessionID, RemovalCleared)
	}
	return true
}

// ClearAll removes every session and returns how many were removed.
func (s *Store) ClearAll() int {
	return s.dropAll(RemovalCleared)
}

func (s *Store) dropAll(reason RemovalReason) int {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.sessions = make(map[string]*session)
	s.records = 0
	onRemoved := s.onRemoved
	s.mu.Unlock()

	sort.Strings(ids)
	for _, id := range ids {
		recordRemoval(reason)
		if onRemoved != nil {
			onRemoved(id, reason)
		}
	}
	if len(ids) > 0 {
		log.Info().Int("sessions", len(ids)).Str("reason", string(reason)).Msg("Ledger cleared")
	}
	return len(ids)
}

// Destroy stops the sweeper and drops all state. The store rejects writes
// afterwards. Safe to call more than once.
func (s *Store) Destroy() {
	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if already {
		return
	}
	s.dropAll(RemovalDestroyed)
}

// Stats returns store-wide counters.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreStats{
		Sessions:      len(s.sessions),
		Records:       s.records,
		Evictions:     s.evictions.Load(),
		Expirations:   s.expirations.Load(),
		Sweeps:        s.sweeps.Load(),
		MaxSessions:   s.opts.MaxSessions,
		MaxRecords:    s.opts.MaxRecords,
		TTLMillis:     s.opts.TTL.Milliseconds(),
		SweepInterval: s.opts.CleanupInterval.Milliseconds(),
	}
}
