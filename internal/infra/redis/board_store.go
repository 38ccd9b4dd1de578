package redis

import (
	"context"
	"sync"
	"time"

	"quizrevenue/internal/app"

	"github.com/redis/go-redis/v9"
)

// BoardStore is a Redis-aware implementation of app.BoardRepository.
// Boards and their subscribers stay in process; Redis only carries a
// liveness marker per watched board so operators can see which boards are
// being streamed across instances.
type BoardStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	boards map[string]*app.Board
}

func NewBoardStore(client *redis.Client, ttl time.Duration) *BoardStore {
	return &BoardStore{
		client: client,
		ttl:    ttl,
		boards: make(map[string]*app.Board),
	}
}

func (s *BoardStore) GetOrCreate(key string) (*app.Board, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if board, ok := s.boards[key]; ok {
		return board, false
	}
	board := app.NewBoard(key)
	s.boards[key] = board
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(key), "1", s.ttl).Err()
	return board, true
}

func (s *BoardStore) Get(key string) (*app.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	board, ok := s.boards[key]
	return board, ok
}

func (s *BoardStore) DeleteIfEmpty(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, ok := s.boards[key]
	if !ok {
		return
	}
	if !board.HasSubscribers() {
		delete(s.boards, key)
		_ = s.client.Del(context.Background(), s.key(key)).Err()
	}
}

func (s *BoardStore) key(boardKey string) string {
	return "leaderboard:live:" + boardKey
}
