package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"quizrevenue/internal/app"
	"quizrevenue/internal/domain"
	"quizrevenue/internal/infra/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseScope(t *testing.T) {
	scope, region, err := app.ParseScope("", "ignored")
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeGlobal, scope)
	assert.Empty(t, region)

	scope, region, err = app.ParseScope("Country", "IN")
	require.NoError(t, err)
	assert.Equal(t, domain.ScopeCountry, scope)
	assert.Equal(t, "IN", region)

	_, _, err = app.ParseScope("state", "")
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))

	_, _, err = app.ParseScope("galaxy", "x")
	assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))

	assert.Equal(t, "global", app.BoardKey(domain.ScopeGlobal, "IN"))
	assert.Equal(t, "state:KA", app.BoardKey(domain.ScopeState, "KA"))
}

func seedRanked(t *testing.T, store *memory.Store, name string, points int, country string) domain.User {
	t.Helper()
	now := time.Now()
	u := domain.User{
		ID: uuid.New(), Email: name + "@b.com", FirstName: name, Role: domain.RoleUser,
		IsActive: true, IsEmailVerified: true, Country: country, Points: points,
		TotalEarnings: decimal.NewFromInt(int64(points) / 10), CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, store.CreateUser(context.Background(), &u))
	return u
}

func TestRefreshRanksUsersPerScope(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	alice := seedRanked(t, store, "alice", 300, "IN")
	bob := seedRanked(t, store, "bob", 500, "US")
	carol := seedRanked(t, store, "carol", 100, "IN")

	svc := app.NewLeaderboardService(memory.NewBoardStore(), store, zap.NewNop())
	rows, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rows, 5)

	global, err := svc.Snapshot(ctx, domain.ScopeGlobal, "")
	require.NoError(t, err)
	require.Len(t, global, 3)
	assert.Equal(t, []uuid.UUID{bob.ID, alice.ID, carol.ID}, []uuid.UUID{global[0].UserID, global[1].UserID, global[2].UserID})
	assert.Equal(t, 1, global[0].Rank)

	india, err := svc.Snapshot(ctx, domain.ScopeCountry, "IN")
	require.NoError(t, err)
	require.Len(t, india, 2)
	assert.Equal(t, alice.ID, india[0].UserID)
	assert.Equal(t, 1, india[0].Rank)
	assert.Equal(t, 2, india[1].Rank)
}

func TestSubscribeSeedsFromSnapshotAndCleansUp(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	alice := seedRanked(t, store, "alice", 300, "IN")
	boards := memory.NewBoardStore()
	svc := app.NewLeaderboardService(boards, store, zap.NewNop())
	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	updates, cancel, err := svc.Subscribe(ctx, domain.ScopeGlobal, "")
	require.NoError(t, err)

	initial := <-updates
	require.Len(t, initial.Entries, 1)
	assert.Equal(t, alice.ID, initial.Entries[0].UserID)

	newcomer := alice
	newcomer.ID = uuid.New()
	newcomer.FirstName = "dave"
	newcomer.Points = 900
	svc.Record(newcomer)

	lb := <-updates
	require.Len(t, lb.Entries, 2)
	assert.Equal(t, newcomer.ID, lb.Entries[0].UserID)
	assert.Equal(t, 1, lb.Entries[0].Rank)
	assert.Equal(t, 2, lb.Entries[1].Rank)

	cancel()
	_, ok := boards.Get(app.BoardKey(domain.ScopeGlobal, ""))
	assert.False(t, ok, "board is dropped once the last subscriber leaves")
	_, open := <-updates
	assert.False(t, open)
}

func TestRecordSkipsBoardsWithoutWatchers(t *testing.T) {
	store := memory.NewStore()
	boards := memory.NewBoardStore()
	svc := app.NewLeaderboardService(boards, store, zap.NewNop())

	svc.Record(domain.User{ID: uuid.New(), FirstName: "eve", Points: 10, Country: "IN", State: "KA"})

	for _, key := range []string{"global", "country:IN", "state:KA"} {
		_, ok := boards.Get(key)
		assert.False(t, ok, key)
	}
}

type hookedSnapshots struct {
	app.LeaderboardRepository
	onSnapshot func()
}

func (h *hookedSnapshots) Snapshot(ctx context.Context, scope domain.LeaderboardScope, region string, limit int) ([]domain.LeaderboardEntry, error) {
	if hook := h.onSnapshot; hook != nil {
		h.onSnapshot = nil
		hook()
	}
	return h.LeaderboardRepository.Snapshot(ctx, scope, region, limit)
}

func TestBoardSurvivesJoinAndLeaveDuringSeed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	alice := seedRanked(t, store, "alice", 300, "IN")
	boards := memory.NewBoardStore()
	snapshots := &hookedSnapshots{LeaderboardRepository: store}
	svc := app.NewLeaderboardService(boards, snapshots, zap.NewNop())
	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	// A second watcher joins and leaves while the first is still loading the snapshot.
	snapshots.onSnapshot = func() {
		visitor, leave, err := svc.Subscribe(ctx, domain.ScopeGlobal, "")
		require.NoError(t, err)
		<-visitor
		leave()
	}

	updates, cancel, err := svc.Subscribe(ctx, domain.ScopeGlobal, "")
	require.NoError(t, err)
	defer cancel()

	initial := <-updates
	require.Len(t, initial.Entries, 1)
	assert.Equal(t, alice.ID, initial.Entries[0].UserID)

	_, ok := boards.Get(app.BoardKey(domain.ScopeGlobal, ""))
	require.True(t, ok, "board stays registered while someone watches it")

	newcomer := alice
	newcomer.ID = uuid.New()
	newcomer.FirstName = "dave"
	newcomer.Points = 900
	svc.Record(newcomer)

	select {
	case lb := <-updates:
		require.Len(t, lb.Entries, 2)
		assert.Equal(t, newcomer.ID, lb.Entries[0].UserID)
	case <-time.After(time.Second):
		t.Fatal("no live update after a concurrent join and leave")
	}
}

func TestConcurrentSubscribersShareOneBoard(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedRanked(t, store, "alice", 300, "IN")
	boards := memory.NewBoardStore()
	svc := app.NewLeaderboardService(boards, store, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, leave, err := svc.Subscribe(ctx, domain.ScopeGlobal, "")
			if err != nil {
				t.Errorf("subscribe: %v", err)
				return
			}
			<-ch
			leave()
		}()
	}

	updates, cancel, err := svc.Subscribe(ctx, domain.ScopeGlobal, "")
	require.NoError(t, err)
	<-updates
	wg.Wait()

	board, ok := boards.Get(app.BoardKey(domain.ScopeGlobal, ""))
	require.True(t, ok)
	assert.True(t, board.HasSubscribers())

	cancel()
	_, ok = boards.Get(app.BoardKey(domain.ScopeGlobal, ""))
	assert.False(t, ok)
}
