package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"alcyxob/mindtrack-app/internal/auth"
	"alcyxob/mindtrack-app/internal/cache"
	"alcyxob/mindtrack-app/internal/clock"
	"alcyxob/mindtrack-app/internal/domain"
	"alcyxob/mindtrack-app/internal/realtime"
	"alcyxob/mindtrack-app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeRepo struct {
	mu          sync.Mutex
	rows        map[string]*domain.UserProgress
	failUpserts int
	failFetches int
	upsertCalls int
	fetchCalls  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]*domain.UserProgress)}
}

func (r *fakeRepo) Fetch(ctx context.Context, ownerID string) (*domain.UserProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchCalls++
	if r.failFetches > 0 {
		r.failFetches--
		return nil, repository.RepositoryError("remote unavailable")
	}
	row, ok := r.rows[ownerID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return row.Clone(), nil
}

func (r *fakeRepo) Upsert(ctx context.Context, ownerID string, p *domain.UserProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertCalls++
	if r.failUpserts > 0 {
		r.failUpserts--
		return repository.RepositoryError("remote unavailable")
	}
	r.rows[ownerID] = p.Clone()
	return nil
}

func (r *fakeRepo) row(ownerID string) *domain.UserProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[ownerID]; ok {
		return row.Clone()
	}
	return nil
}

func (r *fakeRepo) rowCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// fakeChannel delivers published messages synchronously to every subscriber
// of the same owner, including the publisher, which filters its own echo by
// session id.
type fakeChannel struct {
	mu        sync.Mutex
	connected bool
	handlers  map[string][]func(realtime.Message)
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{connected: true, handlers: make(map[string][]func(realtime.Message))}
}

func (c *fakeChannel) Subscribe(ctx context.Context, ownerID string, onMessage func(realtime.Message)) (realtime.Subscription, error) {
	c.mu.Lock()
	c.handlers[ownerID] = append(c.handlers[ownerID], onMessage)
	c.mu.Unlock()
	return fakeSubscription{}, nil
}

func (c *fakeChannel) Publish(ctx context.Context, ownerID string, msg realtime.Message) error {
	c.mu.Lock()
	handlers := append([]func(realtime.Message){}, c.handlers[ownerID]...)
	c.mu.Unlock()
	msg.OwnerID = ownerID
	for _, h := range handlers {
		h(msg)
	}
	return nil
}

func (c *fakeChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

type fakeSubscription struct{}

func (fakeSubscription) Unsubscribe() {}

// --- helpers ---

// quietOptions keeps the background tickers out of the way so tests drive
// every cycle explicitly.
func quietOptions() Options {
	return Options{
		SyncInterval:         time.Hour,
		FallbackPollInterval: time.Hour,
		ShutdownFlushTimeout: time.Second,
	}
}

func startService(t *testing.T, repo repository.ProgressRepository, store cache.Store, ch realtime.Channel, owner string) ProgressService {
	t.Helper()
	svc := NewProgressService(repo, store, ch, auth.NewStaticProvider(owner),
		clock.NewManual(time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)), quietOptions())
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() { _ = svc.Stop() })
	return svc
}

func textPatch(slot int, text string) domain.DayPatch {
	var p domain.DayPatch
	p.Goals[slot] = &domain.GoalPatch{Text: &text}
	return p
}

func completedPatch(slot int) domain.DayPatch {
	done := true
	var p domain.DayPatch
	p.Goals[slot] = &domain.GoalPatch{Completed: &done}
	return p
}

// --- tests ---

func TestStartCreatesDefaultAndPersistsIt(t *testing.T) {
	repo := newFakeRepo()
	svc := startService(t, repo, cache.NewMemoryStore(), nil, "u1")

	p := svc.Progress()
	require.NotNil(t, p)
	assert.Equal(t, 1, p.CurrentDay)
	assert.Equal(t, "u1", p.OwnerID)
	assert.Equal(t, domain.TotalDays, p.TotalDays)

	// First-ever sync pushed the fresh record remotely.
	assert.NotNil(t, repo.row("u1"))
	assert.Equal(t, StateIdle, svc.State())
}

func TestStartAdoptsExistingRemote(t *testing.T) {
	repo := newFakeRepo()
	remote := domain.DefaultProgress("u1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	remote.CurrentDay = 12
	remote.Days[11] = domain.DayProgress{Gratitude: [3]string{"from another device", "", ""}}
	require.NoError(t, repo.Upsert(context.Background(), "u1", remote))

	svc := startService(t, repo, cache.NewMemoryStore(), nil, "u1")

	p := svc.Progress()
	assert.Equal(t, "from another device", p.Days[11].Gratitude[0])
	// Day rollover reconciles against the clock, never backwards.
	assert.GreaterOrEqual(t, p.CurrentDay, 12)
}

func TestStartMergesRemoteWithCache(t *testing.T) {
	repo := newFakeRepo()
	start := time.Date(2025, 6, 25, 0, 0, 0, 0, time.UTC)

	remote := domain.DefaultProgress("u1", start)
	remote.Days[2] = domain.DayProgress{Gratitude: [3]string{"remote entry", "", ""}}
	require.NoError(t, repo.Upsert(context.Background(), "u1", remote))

	store := cache.NewMemoryStore()
	local := domain.DefaultProgress("u1", start)
	local.Days[1] = domain.DayProgress{Gratitude: [3]string{"cached entry", "", ""}}
	require.NoError(t, store.Save(local, "u1"))

	svc := startService(t, repo, store, nil, "u1")

	p := svc.Progress()
	assert.Equal(t, "cached entry", p.Days[1].Gratitude[0])
	assert.Equal(t, "remote entry", p.Days[2].Gratitude[0])
}

func TestStartFallsBackToCacheWhenRemoteDown(t *testing.T) {
	repo := newFakeRepo()
	repo.failFetches = 1

	store := cache.NewMemoryStore()
	local := domain.DefaultProgress("u1", time.Now())
	local.Days[1] = domain.DayProgress{Gratitude: [3]string{"offline entry", "", ""}}
	require.NoError(t, store.Save(local, "u1"))

	svc := startService(t, repo, store, nil, "u1")

	p := svc.Progress()
	assert.Equal(t, "offline entry", p.Days[1].Gratitude[0])
	assert.Equal(t, 0, repo.rowCount())

	// The next explicit sync drains the dirty state.
	require.NoError(t, svc.ForceSyncWithServer(context.Background()))
	row := repo.row("u1")
	require.NotNil(t, row)
	assert.Equal(t, "offline entry", row.Days[1].Gratitude[0])
}

func TestUpdateDayWritesThroughCacheImmediately(t *testing.T) {
	repo := newFakeRepo()
	store := cache.NewMemoryStore()
	svc := startService(t, repo, store, nil, "u1")

	// Remote down: the write-through must succeed regardless.
	repo.mu.Lock()
	repo.failUpserts = 100
	repo.mu.Unlock()

	require.NoError(t, svc.UpdateDayProgress(context.Background(), 1, textPatch(0, "morning run"), false))

	cached, err := store.Load("u1")
	require.NoError(t, err)
	assert.Equal(t, "morning run", cached.Days[1].Goals[0].Text)
	assert.Equal(t, "morning run", svc.Progress().Days[1].Goals[0].Text)
}

func TestUpdateDayForceSyncPushesRemote(t *testing.T) {
	repo := newFakeRepo()
	svc := startService(t, repo, cache.NewMemoryStore(), nil, "u1")

	done := true
	patch := textPatch(0, "ship the release")
	patch.Completed = &done
	require.NoError(t, svc.UpdateDayProgress(context.Background(), 1, patch, true))

	row := repo.row("u1")
	require.NotNil(t, row)
	assert.Equal(t, "ship the release", row.Days[1].Goals[0].Text)
	assert.True(t, row.Days[1].Completed)
	assert.Equal(t, 1, row.CompletedDays)
}

func TestUpdateWeekReflection(t *testing.T) {
	repo := newFakeRepo()
	svc := startService(t, repo, cache.NewMemoryStore(), nil, "u1")

	self := "showed up every day"
	require.NoError(t, svc.UpdateWeekReflection(context.Background(), 1, domain.WeekPatch{GratitudeSelf: &self}, true))

	row := repo.row("u1")
	require.NotNil(t, row)
	assert.Equal(t, self, row.WeekReflections[1].GratitudeSelf)
}

func TestUpdateRejectsOutOfRange(t *testing.T) {
	svc := startService(t, newFakeRepo(), cache.NewMemoryStore(), nil, "u1")

	assert.ErrorIs(t, svc.UpdateDayProgress(context.Background(), 0, domain.DayPatch{}, false), ErrInvalidDay)
	assert.ErrorIs(t, svc.UpdateDayProgress(context.Background(), domain.TotalDays+1, domain.DayPatch{}, false), ErrInvalidDay)
	assert.ErrorIs(t, svc.UpdateWeekReflection(context.Background(), 6, domain.WeekPatch{}, false), ErrInvalidWeek)
}

func TestForceSyncFailureKeepsLocalStateAndRetries(t *testing.T) {
	repo := newFakeRepo()
	store := cache.NewMemoryStore()
	svc := startService(t, repo, store, nil, "u1")

	repo.mu.Lock()
	repo.failUpserts = 2
	repo.mu.Unlock()

	err := svc.UpdateDayProgress(context.Background(), 2, textPatch(1, "call the bank"), true)
	assert.ErrorIs(t, err, ErrSyncFailed)
	assert.Equal(t, StateError, svc.State())

	// The mutation survived locally despite the remote failure.
	cached, lerr := store.Load("u1")
	require.NoError(t, lerr)
	assert.Equal(t, "call the bank", cached.Days[2].Goals[1].Text)

	// Second attempt still failing, third succeeds; still exactly one row.
	assert.ErrorIs(t, svc.ForceSyncWithServer(context.Background()), ErrSyncFailed)
	require.NoError(t, svc.ForceSyncWithServer(context.Background()))

	assert.Equal(t, 1, repo.rowCount())
	row := repo.row("u1")
	assert.Equal(t, "call the bank", row.Days[2].Goals[1].Text)
	assert.Equal(t, StateIdle, svc.State())
	assert.Equal(t, domain.SyncSuccess, svc.Progress().SyncStatus)
}

func TestConcurrentGoalToggleMergesAsOr(t *testing.T) {
	repo := newFakeRepo()
	channel := newFakeChannel()

	s1 := startService(t, repo, cache.NewMemoryStore(), channel, "u1")
	s2 := startService(t, repo, cache.NewMemoryStore(), channel, "u1")

	// Both sessions agree on the task list first.
	require.NoError(t, s1.UpdateDayProgress(context.Background(), 3, textPatch(0, "meditate"), true))
	require.NoError(t, s1.UpdateDayProgress(context.Background(), 3, textPatch(1, "stretch"), true))
	require.NoError(t, s2.ForceSyncWithServer(context.Background()))

	// Then each completes a different goal.
	require.NoError(t, s1.UpdateDayProgress(context.Background(), 3, completedPatch(0), true))
	require.NoError(t, s2.UpdateDayProgress(context.Background(), 3, completedPatch(1), true))

	require.NoError(t, s1.ForceSyncWithServer(context.Background()))
	require.NoError(t, s2.ForceSyncWithServer(context.Background()))

	for name, svc := range map[string]ProgressService{"s1": s1, "s2": s2} {
		p := svc.Progress()
		assert.True(t, p.Days[3].Goals[0].Completed, "%s slot 0", name)
		assert.True(t, p.Days[3].Goals[1].Completed, "%s slot 1", name)
		assert.Equal(t, "meditate", p.Days[3].Goals[0].Text, name)
		assert.Equal(t, "stretch", p.Days[3].Goals[1].Text, name)
	}
}

func TestRealtimePartialMergesInline(t *testing.T) {
	repo := newFakeRepo()
	channel := newFakeChannel()

	s1 := startService(t, repo, cache.NewMemoryStore(), channel, "u1")
	s2 := startService(t, repo, cache.NewMemoryStore(), channel, "u1")

	// A forced mutation on s1 publishes an inline snapshot; s2 merges it
	// without a fetch.
	repo.mu.Lock()
	fetchesBefore := repo.fetchCalls
	repo.mu.Unlock()

	require.NoError(t, s1.UpdateDayProgress(context.Background(), 5, textPatch(0, "write three pages"), true))

	assert.Equal(t, "write three pages", s2.Progress().Days[5].Goals[0].Text)

	repo.mu.Lock()
	fetchesAfter := repo.fetchCalls
	repo.mu.Unlock()
	// Only s1's own cycle fetched; s2 applied the payload directly.
	assert.Equal(t, fetchesBefore+1, fetchesAfter)
}

func TestAnonymousSessionStaysLocal(t *testing.T) {
	repo := newFakeRepo()
	store := cache.NewMemoryStore()
	svc := startService(t, repo, store, nil, "")

	require.NoError(t, svc.UpdateDayProgress(context.Background(), 1, textPatch(0, "private note"), true))
	require.NoError(t, svc.ForceSyncWithServer(context.Background()))

	repo.mu.Lock()
	upserts := repo.upsertCalls
	fetches := repo.fetchCalls
	repo.mu.Unlock()
	assert.Zero(t, upserts)
	assert.Zero(t, fetches)

	cached, err := store.Load("")
	require.NoError(t, err)
	assert.Equal(t, "private note", cached.Days[1].Goals[0].Text)
}

func TestStopFlushesDirtyState(t *testing.T) {
	repo := newFakeRepo()
	svc := startService(t, repo, cache.NewMemoryStore(), nil, "u1")

	// Background path leaves the record dirty, Stop flushes it.
	require.NoError(t, svc.UpdateDayProgress(context.Background(), 4, textPatch(2, "pack for the trip"), false))
	require.NoError(t, svc.Stop())

	row := repo.row("u1")
	require.NotNil(t, row)
	assert.Equal(t, "pack for the trip", row.Days[4].Goals[2].Text)
}

func TestReloadDiscardsInMemoryState(t *testing.T) {
	repo := newFakeRepo()
	svc := startService(t, repo, cache.NewMemoryStore(), nil, "u1")

	require.NoError(t, svc.UpdateDayProgress(context.Background(), 1, textPatch(0, "before reload"), true))

	// Another device rewrote the remote row.
	row := repo.row("u1")
	row.Days[9] = domain.DayProgress{Gratitude: [3]string{"from elsewhere", "", ""}}
	require.NoError(t, repo.Upsert(context.Background(), "u1", row))

	require.NoError(t, svc.ReloadProgress(context.Background()))
	p := svc.Progress()
	assert.Equal(t, "from elsewhere", p.Days[9].Gratitude[0])
	assert.Equal(t, "before reload", p.Days[1].Goals[0].Text)
}

func TestBackgroundSyncDrainsDirtyFlag(t *testing.T) {
	repo := newFakeRepo()
	channel := newFakeChannel()

	svc := NewProgressService(repo, cache.NewMemoryStore(), channel, auth.NewStaticProvider("u1"),
		clock.System(), Options{
			SyncInterval:         20 * time.Millisecond,
			FallbackPollInterval: time.Hour,
			ShutdownFlushTimeout: time.Second,
		})
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	require.NoError(t, svc.UpdateDayProgress(context.Background(), 6, textPatch(0, "water the plants"), false))

	assert.Eventually(t, func() bool {
		row := repo.row("u1")
		return row != nil && row.Days[6].Goals[0].Text == "water the plants"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFallbackPollPicksUpRemoteChanges(t *testing.T) {
	repo := newFakeRepo()
	channel := newFakeChannel()
	channel.connected = false

	svc := NewProgressService(repo, cache.NewMemoryStore(), channel, auth.NewStaticProvider("u1"),
		clock.System(), Options{
			SyncInterval:         time.Hour,
			FallbackPollInterval: 20 * time.Millisecond,
			ShutdownFlushTimeout: time.Second,
		})
	require.NoError(t, svc.Start(context.Background()))
	defer svc.Stop()

	row := repo.row("u1")
	require.NotNil(t, row)
	row.Days[8] = domain.DayProgress{Gratitude: [3]string{"polled in", "", ""}}
	require.NoError(t, repo.Upsert(context.Background(), "u1", row))

	assert.Eventually(t, func() bool {
		return svc.Progress().Days[8].Gratitude[0] == "polled in"
	}, 2*time.Second, 10*time.Millisecond)
}
