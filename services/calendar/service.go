package calendar

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ErrSessionNotFound is returned for unknown or evicted session ids.
var ErrSessionNotFound = errors.New("calendar session not found")

// Options configures a Service.
type Options struct {
	Round           RoundOptions
	RefreshSchedule string        // cron spec, e.g. "@every 30m"
	SessionTTL      time.Duration // idle sessions are evicted after this long
	Clock           func() time.Time
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Round:           DefaultRoundOptions(),
		RefreshSchedule: "@every 30m",
		SessionTTL:      2 * time.Hour,
		Clock:           time.Now,
	}
}

// Status holds the current state of the calendar background worker.
type Status struct {
	Running              bool      `json:"running"`
	State                string    `json:"state"` // "idle", "refreshing", "stopped"
	LastRefreshAt        time.Time `json:"lastRefreshAt"`
	LastRefreshMs        int64     `json:"lastRefreshMs"`
	NextRefreshAt        time.Time `json:"nextRefreshAt"`
	RefreshSchedule      string    `json:"refreshSchedule"`
	SessionsTracked      int       `json:"sessionsTracked"`
	TotalEntries         int       `json:"totalEntries"`
	RoundsCommitted      int64     `json:"roundsCommitted"`
	StaleRoundsDiscarded int64     `json:"staleRoundsDiscarded"`
	LastError            string    `json:"lastError,omitempty"`
}

// Snapshot is a point-in-time copy of a session's state.
type Snapshot struct {
	ID    string
	State State
}

type session struct {
	mu       sync.Mutex
	id       string
	state    State
	cancel   context.CancelFunc
	settled  chan struct{} // closed when the latest started round settles
	lastSeen time.Time
}

// Service keeps one calendar view state per viewer session and runs the
// fetch rounds that fill them.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*session
	fetcher  Fetcher
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	rounds sync.WaitGroup

	cron       *cron.Cron
	cronEntry  cron.EntryID
	stopCh     chan struct{}
	refreshNow chan struct{} // trigger immediate refresh
	loopDone   chan struct{}

	roundsCommitted atomic.Int64
	staleDiscarded  atomic.Int64

	// Status tracking
	statusMu      sync.RWMutex
	running       bool
	state         string // "idle", "refreshing", "stopped"
	lastRefreshAt time.Time
	lastRefreshMs int64
	lastError     string
}

// New creates a calendar service backed by fetcher.
func New(fetcher Fetcher, opts Options) *Service {
	defaults := DefaultOptions()
	if opts.Round.FetchTimeout <= 0 {
		opts.Round.FetchTimeout = defaults.Round.FetchTimeout
	}
	if opts.Round.MaxConcurrent <= 0 {
		opts.Round.MaxConcurrent = defaults.Round.MaxConcurrent
	}
	if opts.RefreshSchedule == "" {
		opts.RefreshSchedule = defaults.RefreshSchedule
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaults.SessionTTL
	}
	if opts.Clock == nil {
		opts.Clock = defaults.Clock
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		sessions: make(map[string]*session),
		fetcher:  fetcher,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		state:    "idle",
	}
}

// Open creates a session showing month m in loc and starts its first round.
func (s *Service) Open(loc *time.Location, m Month) Snapshot {
	now := s.opts.Clock()
	sess := &session{
		id:       uuid.NewString(),
		state:    NewState(loc),
		lastSeen: now,
	}

	sess.mu.Lock()
	next, round := Navigate(sess.state, m, now)
	sess.state = next
	s.startRoundLocked(sess, round)
	snap := Snapshot{ID: sess.id, State: sess.state}
	sess.mu.Unlock()

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	log.Printf("[calendar] session opened id=%s month=%s tz=%s offsets=%v", sess.id, m, sess.state.Location, round.Offsets)
	return snap
}

// Get returns the current state of a session.
func (s *Service) Get(id string) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.lastSeen = s.opts.Clock()
	return Snapshot{ID: id, State: sess.state}, nil
}

// Navigate switches a session to month m. Any round still in flight for the
// previous month is abandoned and its results will be discarded.
func (s *Service) Navigate(id string, m Month) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	now := s.opts.Clock()
	sess.lastSeen = now
	next, round := Navigate(sess.state, m, now)
	sess.state = next
	s.startRoundLocked(sess, round)
	return Snapshot{ID: id, State: sess.state}, nil
}

// Reload refetches the displayed month, preserving the selection.
func (s *Service) Reload(id string) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	now := s.opts.Clock()
	sess.lastSeen = now
	s.reloadLocked(sess, now)
	return Snapshot{ID: id, State: sess.state}, nil
}

// Select marks key as the session's active day.
func (s *Service) Select(id string, key DateKey) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.lastSeen = s.opts.Clock()
	next, err := Select(sess.state, key)
	if err != nil {
		return Snapshot{}, err
	}
	sess.state = next
	return Snapshot{ID: id, State: sess.state}, nil
}

// Wait blocks until the session's latest round has settled and been
// committed, or ctx is done.
func (s *Service) Wait(ctx context.Context, id string) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	for {
		sess.mu.Lock()
		if !sess.state.Loading {
			snap := Snapshot{ID: id, State: sess.state}
			sess.mu.Unlock()
			return snap, nil
		}
		settled := sess.settled
		sess.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		}
	}
}

// Close removes a session and abandons its in-flight round.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.mu.Lock()
	if sess.cancel != nil {
		sess.cancel()
	}
	sess.mu.Unlock()
	return nil
}

func (s *Service) lookup(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Service) reloadLocked(sess *session, now time.Time) {
	next, round := Refresh(sess.state, now)
	sess.state = next
	s.startRoundLocked(sess, round)
}

// startRoundLocked launches round for sess. sess.mu must be held.
func (s *Service) startRoundLocked(sess *session, round Round) {
	if sess.cancel != nil {
		sess.cancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	sess.cancel = cancel
	done := make(chan struct{})
	sess.settled = done

	s.rounds.Add(1)
	go func() {
		defer s.rounds.Done()
		defer close(done)
		defer cancel()

		results := RunRound(ctx, s.fetcher, round, s.opts.Round, func(n int) {
			sess.mu.Lock()
			sess.state = WithProgress(sess.state, round, n)
			sess.mu.Unlock()
		})

		sess.mu.Lock()
		defer sess.mu.Unlock()
		next, ok := Commit(sess.state, round, results, s.opts.Clock())
		if !ok {
			s.staleDiscarded.Add(1)
			log.Printf("[calendar] discarded stale round session=%s generation=%d month=%s (current generation=%d)",
				sess.id, round.Generation, round.Month, sess.state.Generation)
			return
		}
		sess.state = next
		s.roundsCommitted.Add(1)

		if next.Stats.Weeks > 0 && next.Stats.Failed == next.Stats.Weeks {
			s.setLastError(fmt.Sprintf("all %d schedule weeks failed for %s", next.Stats.Weeks, round.Month))
		}
		log.Printf("[calendar] round committed session=%s generation=%d month=%s weeks=%d failed=%d entries=%d duplicates=%d",
			sess.id, round.Generation, round.Month, next.Stats.Weeks, next.Stats.Failed, next.Stats.Entries, next.Stats.Duplicates)
	}()
}

func (s *Service) setLastError(msg string) {
	s.statusMu.Lock()
	s.lastError = msg
	s.statusMu.Unlock()
}

// StartBackgroundRefresh reloads every open session on the configured cron
// schedule and whenever Refresh is called.
func (s *Service) StartBackgroundRefresh() error {
	c := cron.New()
	entry, err := c.AddFunc(s.opts.RefreshSchedule, s.doRefresh)
	if err != nil {
		return fmt.Errorf("parse refresh schedule %q: %w", s.opts.RefreshSchedule, err)
	}
	s.cron = c
	s.cronEntry = entry
	s.stopCh = make(chan struct{})
	s.refreshNow = make(chan struct{}, 1)
	s.loopDone = make(chan struct{})

	s.statusMu.Lock()
	s.running = true
	s.state = "idle"
	s.statusMu.Unlock()

	c.Start()
	go func() {
		defer close(s.loopDone)
		for {
			select {
			case <-s.refreshNow:
				log.Println("[calendar] background refresh: manual refresh triggered...")
				s.doRefresh()
				log.Println("[calendar] background refresh: manual refresh complete")
			case <-s.stopCh:
				log.Println("[calendar] background refresh: stopped")
				return
			}
		}
	}()
	log.Printf("[calendar] background refresh scheduled: %s", s.opts.RefreshSchedule)
	return nil
}

// Refresh triggers an immediate refresh of all sessions. Non-blocking.
func (s *Service) Refresh() {
	if s.refreshNow == nil {
		return
	}
	select {
	case s.refreshNow <- struct{}{}:
	default:
		// Already a refresh pending
	}
}

// doRefresh evicts idle sessions, reloads the rest and waits for their rounds.
func (s *Service) doRefresh() {
	s.statusMu.Lock()
	s.state = "refreshing"
	s.statusMu.Unlock()

	start := time.Now()
	s.refreshAll()
	elapsed := time.Since(start)

	s.statusMu.Lock()
	s.state = "idle"
	s.lastRefreshAt = time.Now()
	s.lastRefreshMs = elapsed.Milliseconds()
	s.statusMu.Unlock()
}

func (s *Service) refreshAll() {
	now := s.opts.Clock()

	s.mu.Lock()
	var active []*session
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastSeen) > s.opts.SessionTTL
		if idle && sess.cancel != nil {
			sess.cancel()
		}
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			log.Printf("[calendar] evicted idle session id=%s", id)
			continue
		}
		active = append(active, sess)
	}
	s.mu.Unlock()

	var waits []chan struct{}
	for _, sess := range active {
		sess.mu.Lock()
		s.reloadLocked(sess, now)
		waits = append(waits, sess.settled)
		sess.mu.Unlock()
	}
	for _, done := range waits {
		select {
		case <-done:
		case <-s.ctx.Done():
			return
		}
	}
}

// GetStatus returns the current status of the calendar worker.
func (s *Service) GetStatus() Status {
	s.statusMu.RLock()
	st := Status{
		Running:         s.running,
		State:           s.state,
		LastRefreshAt:   s.lastRefreshAt,
		LastRefreshMs:   s.lastRefreshMs,
		RefreshSchedule: s.opts.RefreshSchedule,
		LastError:       s.lastError,
	}
	s.statusMu.RUnlock()

	if s.cron != nil && st.Running {
		st.NextRefreshAt = s.cron.Entry(s.cronEntry).Next
	}
	st.RoundsCommitted = s.roundsCommitted.Load()
	st.StaleRoundsDiscarded = s.staleDiscarded.Load()

	s.mu.RLock()
	st.SessionsTracked = len(s.sessions)
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	for _, sess := range sessions {
		sess.mu.Lock()
		st.TotalEntries += sess.state.Index.Len()
		sess.mu.Unlock()
	}
	return st
}

// Stop halts background refresh, abandons in-flight rounds and waits for
// their goroutines to exit.
func (s *Service) Stop() {
	s.cancel()
	if s.stopCh != nil {
		close(s.stopCh)
		<-s.loopDone
		<-s.cron.Stop().Done()
		s.stopCh = nil
	}
	s.rounds.Wait()

	s.statusMu.Lock()
	s.running = false
	s.state = "stopped"
	s.statusMu.Unlock()
}
