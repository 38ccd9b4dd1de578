package memory

import (
	"sync"

	"quizrevenue/internal/app"
)

// BoardStore is an in-memory implementation of app.BoardRepository.
type BoardStore struct {
	mu     sync.RWMutex
	boards map[string]*app.Board
}

func NewBoardStore() *BoardStore {
	return &BoardStore{
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
	return board, true
}

func (s *BoardStore) Get(key string) (*app.Board, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	board, ok := s.boards[key]
	return board, ok
}

// DeleteIfEmpty drops a board nobody is watching.
func (s *BoardStore) DeleteIfEmpty(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	board, ok := s.boards[key]
	if !ok {
		return
	}
	if !board.HasSubscribers() {
		delete(s.boards, key)
	}
}
