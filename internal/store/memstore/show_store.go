package memstore

import (
	"context"
	"sync"

	"github.com/rezamoradi/show-seat-booking/internal/model"
	"github.com/rezamoradi/show-seat-booking/internal/store"
)

// ShowStore keeps show records in a map.
type ShowStore struct {
	mu    sync.RWMutex
	shows map[string]model.Show
}

// NewShowStore returns an empty in-memory show store.
func NewShowStore() *ShowStore {
	return &ShowStore{shows: make(map[string]model.Show)}
}

func (s *ShowStore) Create(ctx context.Context, show model.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shows[show.ShowID]; ok {
		return store.ErrAlreadyExists
	}
	s.shows[show.ShowID] = show
	return nil
}

func (s *ShowStore) Get(ctx context.Context, showID string) (model.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	show, ok := s.shows[showID]
	if !ok {
		return model.Show{}, store.ErrNotFound
	}
	return show, nil
}

func (s *ShowStore) Delete(ctx context.Context, showID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.shows, showID)
	return nil
}
