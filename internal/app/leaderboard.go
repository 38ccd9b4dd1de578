package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"quizrevenue/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const leaderboardLimit = 100

// BoardKey identifies a live board by scope and region.
func BoardKey(scope domain.LeaderboardScope, region string) string {
	if scope == domain.ScopeGlobal {
		return string(scope)
	}
	return string(scope) + ":" + region
}

// ParseScope validates a requested scope/region pair.
func ParseScope(rawScope, region string) (domain.LeaderboardScope, string, error) {
	scope := domain.LeaderboardScope(strings.ToLower(rawScope))
	switch scope {
	case "", domain.ScopeGlobal:
		return domain.ScopeGlobal, "", nil
	case domain.ScopeCountry, domain.ScopeState:
		if region == "" {
			return "", "", domain.Validation("Invalid leaderboard", map[string]string{"region": "is required"})
		}
		return scope, region, nil
	}
	return "", "", domain.Validation("Invalid leaderboard", map[string]string{"scope": "must be one of global country state"})
}

// LeaderboardService serves ranking snapshots and the live boards fed by committed attempts.
type LeaderboardService struct {
	boards    BoardRepository
	snapshots LeaderboardRepository
	logger    *zap.Logger
	now       func() time.Time
}

func NewLeaderboardService(boards BoardRepository, snapshots LeaderboardRepository, logger *zap.Logger) *LeaderboardService {
	return &LeaderboardService{boards: boards, snapshots: snapshots, logger: logger, now: time.Now}
}

// Snapshot returns the stored ranking for a scope.
func (s *LeaderboardService) Snapshot(ctx context.Context, scope domain.LeaderboardScope, region string) ([]domain.LeaderboardEntry, error) {
	entries, err := s.snapshots.Snapshot(ctx, scope, region, leaderboardLimit)
	if err != nil {
		return nil, domain.Dependency("Failed to fetch leaderboard", err)
	}
	return entries, nil
}

// Refresh recomputes all stored rankings from user counters.
func (s *LeaderboardService) Refresh(ctx context.Context) (int, error) {
	n, err := s.snapshots.Rebuild(ctx, s.now())
	if err != nil {
		return 0, domain.Dependency("Failed to refresh leaderboard", err)
	}
	s.logger.Info("leaderboards rebuilt", zap.Int("rows", n))
	return n, nil
}

// Subscribe returns a channel that receives live updates for a board.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *LeaderboardService) Subscribe(ctx context.Context, scope domain.LeaderboardScope, region string) (<-chan domain.Leaderboard, func(), error) {
	key := BoardKey(scope, region)
	for {
		board, created := s.boards.GetOrCreate(key)
		// The creator joins before seeding so the board keeps a watcher while it loads.
		ch, cancel := board.subscribe(!created)
		if current, ok := s.boards.Get(key); !ok || current != board {
			// dropped by a departing subscriber between lookup and join
			cancel()
			continue
		}
		leave := func() {
			cancel()
			s.boards.DeleteIfEmpty(key)
		}
		if created {
			entries, err := s.snapshots.Snapshot(ctx, scope, region, leaderboardLimit)
			if err != nil {
				leave()
				return nil, nil, domain.Dependency("Failed to fetch leaderboard", err)
			}
			board.seed(entries)
		}
		return ch, leave, nil
	}
}

// Record pushes a user's new totals to every live board that ranks them.
func (s *LeaderboardService) Record(user domain.User) {
	keys := []struct {
		scope  domain.LeaderboardScope
		region string
	}{
		{domain.ScopeGlobal, ""},
		{domain.ScopeCountry, user.Country},
		{domain.ScopeState, user.State},
	}
	for _, k := range keys {
		if k.scope != domain.ScopeGlobal && k.region == "" {
			continue
		}
		if board, ok := s.boards.Get(BoardKey(k.scope, k.region)); ok {
			board.upsert(user)
		}
	}
}

// Board is an in-memory live ranking for one scope.
type Board struct {
	key         string
	scope       domain.LeaderboardScope
	region      string
	now         func() time.Time
	mu          sync.RWMutex
	entries     map[uuid.UUID]*domain.LeaderboardEntry
	subscribers map[chan domain.Leaderboard]struct{}
}

// NewBoard is exported for infrastructure layers that hold boards.
func NewBoard(key string) *Board {
	return newBoardWithClock(key, time.Now)
}

func newBoardWithClock(key string, now func() time.Time) *Board {
	scope, region, _ := strings.Cut(key, ":")
	return &Board{
		key:         key,
		scope:       domain.LeaderboardScope(scope),
		region:      region,
		now:         now,
		entries:     make(map[uuid.UUID]*domain.LeaderboardEntry),
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

// Key returns the board's scope key.
func (b *Board) Key() string { return b.key }

func (b *Board) seed(entries []domain.LeaderboardEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range entries {
		e := entries[i]
		if _, ok := b.entries[e.UserID]; ok {
			continue
		}
		b.entries[e.UserID] = &e
	}
	b.broadcastLocked()
}

func (b *Board) upsert(user domain.User) domain.Leaderboard {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.entries[user.ID]
	if !ok {
		entry = &domain.LeaderboardEntry{UserID: user.ID, Scope: b.scope, Region: b.region}
		b.entries[user.ID] = entry
	}
	entry.DisplayName = user.DisplayName()
	entry.Points = user.Points
	entry.Earnings = user.TotalEarnings
	entry.QuizzesCompleted = user.QuizzesCompleted
	entry.UpdatedAt = b.now()
	return b.broadcastLocked()
}

// HasSubscribers reports whether anyone is watching the board.
func (b *Board) HasSubscribers() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers) > 0
}

// subscribe registers a listener. With push set, the current ranking is queued first.
func (b *Board) subscribe(push bool) (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	if push {
		ch <- b.snapshotLocked()
	}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Board) broadcastLocked() domain.Leaderboard {
	lb := b.snapshotLocked()
	for ch := range b.subscribers {
		select {
		case ch <- lb:
		default:
			// slow subscriber: replace the stale update with the latest one
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
	return lb
}

func (b *Board) snapshotLocked() domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, 0, len(b.entries))
	for _, e := range b.entries {
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		if !entries[i].Earnings.Equal(entries[j].Earnings) {
			return entries[i].Earnings.GreaterThan(entries[j].Earnings)
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	if len(entries) > leaderboardLimit {
		entries = entries[:leaderboardLimit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return domain.Leaderboard{
		Scope:     b.scope,
		Region:    b.region,
		Entries:   entries,
		UpdatedAt: b.now(),
	}
}
