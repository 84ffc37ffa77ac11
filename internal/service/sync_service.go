package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"alcyxob/mindtrack-app/internal/auth"
	"alcyxob/mindtrack-app/internal/cache"
	"alcyxob/mindtrack-app/internal/clock"
	"alcyxob/mindtrack-app/internal/domain"
	"alcyxob/mindtrack-app/internal/realtime"
	"alcyxob/mindtrack-app/internal/repository"

	"github.com/google/uuid"
)

// --- Error Definitions ---
var (
	ErrNotStarted  = errors.New("progress service not started")
	ErrInvalidDay  = errors.New("day number out of program range")
	ErrInvalidWeek = errors.New("week number out of program range")
	// ErrSyncFailed wraps a remote failure during an explicitly requested
	// sync. The local write-through has already succeeded by then, so the
	// caller can show a "sync failed" indicator without any data being lost.
	ErrSyncFailed = errors.New("sync with remote store failed")
)

// State is the orchestrator's session state machine.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSyncing State = "syncing"
	StateError   State = "error"
)

// Options tunes the orchestrator's timers. Zero values get defaults.
type Options struct {
	// SyncInterval is how often dirty local state is pushed to the remote
	// store and remote changes are merged back.
	SyncInterval time.Duration

	// FallbackPollInterval is how often to fetch-and-merge while the
	// realtime channel is disconnected, compensating for missed
	// notifications.
	FallbackPollInterval time.Duration

	// ShutdownFlushTimeout bounds the final best-effort remote write on
	// Stop. If the write cannot finish in time, at most the last unsynced
	// mutations are lost locally until the next launch re-syncs them from
	// the cache.
	ShutdownFlushTimeout time.Duration

	Logger *log.Logger
}

func (o *Options) withDefaults() {
	if o.SyncInterval <= 0 {
		o.SyncInterval = 15 * time.Second
	}
	if o.FallbackPollInterval <= 0 {
		o.FallbackPollInterval = 30 * time.Second
	}
	if o.ShutdownFlushTimeout <= 0 {
		o.ShutdownFlushTimeout = 3 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
}

// ProgressService is the Sync Orchestrator: it owns the in-memory progress
// record, decides when to touch the local cache and the remote store, and
// keeps other sessions of the same user informed through the realtime
// channel.
type ProgressService interface {
	// Start resolves the identity, performs the initial load and launches
	// the background sync loops. The context bounds the initial load only.
	Start(ctx context.Context) error

	// Stop shuts the loops down and, if local state is still dirty,
	// attempts one bounded best-effort remote write.
	Stop() error

	// Progress returns a deep copy of the current in-memory record.
	Progress() *domain.UserProgress

	// State reports the session state machine's current state.
	State() State

	// UpdateDayProgress merges a partial update into one day's entry. The
	// call returns once the local write-through completed; the remote write
	// happens in the background unless forceSync is set.
	UpdateDayProgress(ctx context.Context, day int, patch domain.DayPatch, forceSync bool) error

	// UpdateWeekReflection is the weekly-checkpoint counterpart of
	// UpdateDayProgress.
	UpdateWeekReflection(ctx context.Context, week int, patch domain.WeekPatch, forceSync bool) error

	// ForceSyncWithServer runs a full push-then-pull cycle now and reports
	// its outcome. Backs the user-facing "Sync" action.
	ForceSyncWithServer(ctx context.Context) error

	// ReloadProgress discards the in-memory record and reloads it from the
	// remote store and cache.
	ReloadProgress(ctx context.Context) error

	// Resume is the foreground trigger: call it when the session becomes
	// visible again so owed syncs run immediately instead of on the timer.
	Resume()
}

// progressService implements ProgressService.
type progressService struct {
	repo     repository.ProgressRepository
	cache    cache.Store
	channel  realtime.Channel
	provider auth.Provider
	clk      clock.Clock
	opts     Options
	logger   *log.Logger

	sessionID string
	identity  auth.Identity

	// mu guards the in-memory record and the sync bookkeeping around it.
	mu          sync.Mutex
	progress    *domain.UserProgress
	dirty       bool
	state       State
	mutationSeq uint64

	// syncMu serializes remote cycles: at most one push/pull against the
	// remote store is in flight per session.
	syncMu sync.Mutex

	// Cap-1 kick channels coalesce triggers: a kick arriving while a cycle
	// runs parks in the buffer and fires one follow-up cycle, never a
	// concurrent duplicate.
	syncKicks chan struct{}
	pollKicks chan struct{}

	sub     realtime.Subscription
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewProgressService wires the orchestrator. repo may be nil for purely
// anonymous deployments; channel may be nil, which disables realtime and
// leans on the fallback poll.
func NewProgressService(
	repo repository.ProgressRepository,
	cacheStore cache.Store,
	channel realtime.Channel,
	provider auth.Provider,
	clk clock.Clock,
	opts Options,
) ProgressService {
	opts.withDefaults()
	if channel == nil {
		channel = realtime.NoopChannel{}
	}
	if clk == nil {
		clk = clock.System()
	}
	if provider == nil {
		provider = auth.NewStaticProvider("")
	}
	return &progressService{
		repo:      repo,
		cache:     cacheStore,
		channel:   channel,
		provider:  provider,
		clk:       clk,
		opts:      opts,
		logger:    opts.Logger,
		sessionID: uuid.NewString(),
		state:     StateIdle,
		syncKicks: make(chan struct{}, 1),
		pollKicks: make(chan struct{}, 1),
	}
}

// Start implements ProgressService.Start.
func (s *progressService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("progress service already started")
	}
	s.started = true
	s.state = StateLoading
	s.mu.Unlock()

	ident, err := s.provider.Identify()
	if err != nil {
		// A bad token degrades to a local-only session rather than failing
		// the launch.
		s.logger.Printf("WARNING: identity resolution failed, continuing anonymously: %v", err)
		ident = auth.Anonymous
	}
	s.identity = ident

	if err := s.loadInitial(ctx); err != nil {
		return err
	}

	s.runCtx, s.cancel = context.WithCancel(context.Background())

	if s.remoteEnabled() {
		sub, err := s.channel.Subscribe(s.runCtx, s.identity.OwnerID, s.handleMessage)
		if err != nil {
			s.logger.Printf("WARNING: realtime subscribe failed, relying on fallback poll: %v", err)
		} else {
			s.sub = sub
		}
	}

	s.wg.Add(1)
	go s.run()

	return nil
}

// Stop implements ProgressService.Stop.
func (s *progressService) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	dirty := s.dirty
	snapshot := s.progress.Clone()
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	s.wg.Wait()

	if snapshot != nil {
		s.saveCache(snapshot)
	}

	// Accepted-loss-window contract: one bounded write attempt; if it cannot
	// finish before teardown the mutations survive in the cache and are
	// pushed on the next launch.
	if dirty && s.remoteEnabled() && snapshot != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownFlushTimeout)
		defer cancel()
		if err := s.repo.Upsert(ctx, s.identity.OwnerID, snapshot); err != nil {
			s.logger.Printf("WARNING: shutdown flush did not complete: %v", err)
		}
	}
	return nil
}

// Progress implements ProgressService.Progress.
func (s *progressService) Progress() *domain.UserProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress.Clone()
}

// State implements ProgressService.State.
func (s *progressService) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// UpdateDayProgress implements ProgressService.UpdateDayProgress.
func (s *progressService) UpdateDayProgress(ctx context.Context, day int, patch domain.DayPatch, forceSync bool) error {
	if day < 1 || day > domain.TotalDays {
		return ErrInvalidDay
	}

	s.mu.Lock()
	if s.progress == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	entry := s.progress.Days[day]
	patch.Apply(&entry)
	s.progress.Days[day] = entry
	s.progress.RecountCompletedDays()
	s.progress.LastUpdated = s.clk.Now().UTC()
	s.mutationSeq++
	s.dirty = true
	snapshot := s.progress.Clone()
	s.mu.Unlock()

	s.saveCache(snapshot)
	return s.afterMutation(ctx, forceSync)
}

// UpdateWeekReflection implements ProgressService.UpdateWeekReflection.
func (s *progressService) UpdateWeekReflection(ctx context.Context, week int, patch domain.WeekPatch, forceSync bool) error {
	if week < 1 || week > domain.TotalWeeks {
		return ErrInvalidWeek
	}

	s.mu.Lock()
	if s.progress == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	entry := s.progress.WeekReflections[week]
	patch.Apply(&entry)
	s.progress.WeekReflections[week] = entry
	s.progress.LastUpdated = s.clk.Now().UTC()
	s.mutationSeq++
	s.dirty = true
	snapshot := s.progress.Clone()
	s.mu.Unlock()

	s.saveCache(snapshot)
	return s.afterMutation(ctx, forceSync)
}

// afterMutation either runs the remote cycle inline (forced, for changes too
// important to risk losing) or schedules a background one.
func (s *progressService) afterMutation(ctx context.Context, forceSync bool) error {
	if !s.remoteEnabled() {
		return nil
	}
	if forceSync {
		if err := s.syncCycle(ctx, realtime.KindPartial); err != nil {
			return fmt.Errorf("%w: %v", ErrSyncFailed, err)
		}
		return nil
	}
	s.kick(s.syncKicks)
	return nil
}

// ForceSyncWithServer implements ProgressService.ForceSyncWithServer.
func (s *progressService) ForceSyncWithServer(ctx context.Context) error {
	if !s.remoteEnabled() {
		return nil
	}
	if err := s.syncCycle(ctx, realtime.KindFullSync); err != nil {
		return fmt.Errorf("%w: %v", ErrSyncFailed, err)
	}
	return nil
}

// ReloadProgress implements ProgressService.ReloadProgress.
func (s *progressService) ReloadProgress(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	return s.loadInitial(ctx)
}

// Resume implements ProgressService.Resume.
func (s *progressService) Resume() {
	s.mu.Lock()
	dirty := s.dirty
	s.mu.Unlock()

	if dirty {
		s.kick(s.syncKicks)
	} else {
		// Nothing to push, but another session may have moved on while we
		// were backgrounded.
		s.kick(s.pollKicks)
	}
}

// --- initial load ---

// loadInitial establishes the in-memory record: remote first, cache fallback
// with ownership check, fresh default last. It also reconciles the active day
// against the wall clock.
func (s *progressService) loadInitial(ctx context.Context) error {
	now := s.clk.Now().UTC()
	owner := s.identity.OwnerID

	var loaded *domain.UserProgress
	dirty := false
	synced := false

	if s.remoteEnabled() {
		remote, err := s.repo.Fetch(ctx, owner)
		switch {
		case err == nil:
			if local, lerr := s.cache.Load(owner); lerr == nil {
				// Both sides exist; reconcile rather than clobbering
				// whichever is staler.
				loaded = domain.Merge(local, remote)
				dirty = true
			} else {
				loaded = remote
			}
			synced = true
		case errors.Is(err, repository.ErrNotFound):
			if local, lerr := s.cache.Load(owner); lerr == nil {
				loaded = local
			} else {
				loaded = domain.DefaultProgress(owner, now)
			}
			// First-ever sync: persist the present side to the remote
			// store right away.
			if uerr := s.repo.Upsert(ctx, owner, loaded); uerr != nil {
				s.logger.Printf("WARNING: initial remote write failed, will retry on next sync: %v", uerr)
				dirty = true
			} else {
				synced = true
			}
		default:
			// Remote unreachable: operate local-only until the next
			// successful sync.
			s.logger.Printf("WARNING: remote store unavailable, loading from cache: %v", err)
			if local, lerr := s.cache.Load(owner); lerr == nil {
				loaded = local
			} else {
				loaded = domain.DefaultProgress(owner, now)
			}
			dirty = true
		}
	} else {
		if local, lerr := s.cache.Load(""); lerr == nil {
			loaded = local
		} else {
			loaded = domain.DefaultProgress(owner, now)
		}
	}

	loaded.OwnerID = owner
	if loaded.TotalDays == 0 {
		loaded.TotalDays = domain.TotalDays
	}

	// Reconcile the active day against today's date.
	if day := domain.DayNumberFor(loaded.StartDate, s.clk.Now()); day != loaded.CurrentDay {
		loaded.CurrentDay = day
		loaded.LastUpdated = now
		dirty = true
	}

	s.mu.Lock()
	s.progress = loaded
	s.dirty = dirty
	if synced {
		s.progress.LastSyncTimestamp = now
		s.progress.SyncStatus = domain.SyncSuccess
	}
	s.state = StateIdle
	snapshot := s.progress.Clone()
	s.mu.Unlock()

	s.saveCache(snapshot)
	return nil
}

// --- background loops ---

func (s *progressService) run() {
	defer s.wg.Done()

	syncTicker := time.NewTicker(s.opts.SyncInterval)
	defer syncTicker.Stop()
	pollTicker := time.NewTicker(s.opts.FallbackPollInterval)
	defer pollTicker.Stop()

	for {
		select {
		case <-s.runCtx.Done():
			return

		case <-syncTicker.C:
			if s.isDirty() {
				s.backgroundSync()
			}

		case <-pollTicker.C:
			if !s.channel.Connected() {
				s.backgroundPull()
			}

		case <-s.syncKicks:
			s.backgroundSync()

		case <-s.pollKicks:
			s.backgroundPull()
		}
	}
}

func (s *progressService) backgroundSync() {
	if err := s.syncCycle(s.runCtx, realtime.KindFullSync); err != nil {
		// Dirty stays set; the next trigger retries.
		s.logger.Printf("WARNING: background sync failed: %v", err)
	}
}

func (s *progressService) backgroundPull() {
	if err := s.pullAndMerge(s.runCtx); err != nil {
		s.logger.Printf("WARNING: fallback poll failed: %v", err)
	}
}

// --- sync cycles ---

// syncCycle is the full push-then-pull reconciliation: upsert local state,
// fetch the row back to absorb concurrent sessions' writes, merge, persist
// locally and notify other sessions. Serialized by syncMu.
func (s *progressService) syncCycle(ctx context.Context, notify realtime.Kind) error {
	if !s.remoteEnabled() {
		return nil
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	if s.progress == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	snapshot := s.progress.Clone()
	seq := s.mutationSeq
	s.state = StateSyncing
	s.progress.SyncStatus = domain.SyncSyncing
	s.mu.Unlock()

	owner := s.identity.OwnerID

	if err := s.repo.Upsert(ctx, owner, snapshot); err != nil {
		s.setError()
		return fmt.Errorf("pushing progress: %w", err)
	}

	remote, err := s.repo.Fetch(ctx, owner)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.setError()
		return fmt.Errorf("fetching progress: %w", err)
	}

	now := s.clk.Now().UTC()

	s.mu.Lock()
	if remote != nil {
		s.progress = domain.Merge(s.progress, remote)
	}
	if s.mutationSeq == seq {
		// No mutation slipped in while the cycle ran; everything local is
		// now confirmed remote.
		s.dirty = false
	}
	s.progress.LastSyncTimestamp = now
	s.progress.SyncStatus = domain.SyncSuccess
	s.state = StateIdle
	merged := s.progress.Clone()
	s.mu.Unlock()

	s.saveCache(merged)
	s.publish(ctx, notify, merged)
	return nil
}

// pullAndMerge is the receive-only half of the cycle, used for fallback
// polling and full_sync notifications.
func (s *progressService) pullAndMerge(ctx context.Context) error {
	if !s.remoteEnabled() {
		return nil
	}

	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	owner := s.identity.OwnerID

	remote, err := s.repo.Fetch(ctx, owner)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Nothing remote yet; adopt our side there.
			s.mu.Lock()
			snapshot := s.progress.Clone()
			s.mu.Unlock()
			if snapshot == nil {
				return ErrNotStarted
			}
			return s.repo.Upsert(ctx, owner, snapshot)
		}
		return fmt.Errorf("fetching progress: %w", err)
	}

	now := s.clk.Now().UTC()

	s.mu.Lock()
	if s.progress == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.progress = domain.Merge(s.progress, remote)
	s.progress.LastSyncTimestamp = now
	merged := s.progress.Clone()
	s.mu.Unlock()

	s.saveCache(merged)
	return nil
}

// applyInline merges a payload delivered on the realtime channel without a
// round-trip fetch.
func (s *progressService) applyInline(payload *domain.UserProgress) {
	s.mu.Lock()
	if s.progress == nil {
		s.mu.Unlock()
		return
	}
	s.progress = domain.Merge(s.progress, payload)
	merged := s.progress.Clone()
	s.mu.Unlock()

	s.saveCache(merged)
}

// handleMessage reacts to channel traffic. Duplicates and reordered messages
// are harmless: both paths funnel into the merge.
func (s *progressService) handleMessage(msg realtime.Message) {
	if msg.SessionID == s.sessionID {
		return
	}
	switch msg.Kind {
	case realtime.KindPartial:
		if msg.Payload != nil {
			s.applyInline(msg.Payload)
			return
		}
		s.kick(s.pollKicks)
	case realtime.KindFullSync:
		s.kick(s.pollKicks)
	default:
		s.logger.Printf("WARNING: ignoring unknown realtime message kind %q", msg.Kind)
	}
}

// --- helpers ---

func (s *progressService) publish(ctx context.Context, kind realtime.Kind, snapshot *domain.UserProgress) {
	msg := realtime.Message{
		Kind:      kind,
		OwnerID:   s.identity.OwnerID,
		SessionID: s.sessionID,
		SentAt:    s.clk.Now().UTC(),
	}
	if kind == realtime.KindPartial {
		msg.Payload = snapshot
	}
	if err := s.channel.Publish(ctx, s.identity.OwnerID, msg); err != nil {
		// Best-effort by contract; other sessions catch up on their poll.
		s.logger.Printf("realtime publish skipped: %v", err)
	}
}

func (s *progressService) saveCache(snapshot *domain.UserProgress) {
	if err := s.cache.Save(snapshot, s.identity.OwnerID); err != nil {
		s.logger.Printf("WARNING: local cache write failed: %v", err)
	}
}

func (s *progressService) remoteEnabled() bool {
	return s.repo != nil && s.identity.Authenticated
}

func (s *progressService) isDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *progressService) setError() {
	s.mu.Lock()
	s.state = StateError
	if s.progress != nil {
		s.progress.SyncStatus = domain.SyncError
	}
	s.mu.Unlock()
}

func (s *progressService) kick(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
