package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"shoplist/internal/shopping"
)

// MemoryStore keeps the list in process. It is the ownership boundary for a
// shopping.List shared by concurrent HTTP handlers.
type MemoryStore struct {
	mu   sync.Mutex
	list *shopping.List

	gen    Generation
	hasGen bool
}

func NewMemory() *MemoryStore {
	return &MemoryStore{list: shopping.NewList()}
}

func (s *MemoryStore) Add(_ context.Context, item shopping.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.Add(item)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.Remove(id)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, id int64, patch shopping.Patch) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.list.Update(id, patch)
	if n == 0 {
		return 0, ErrItemNotFound
	}
	return n, nil
}

func (s *MemoryStore) List(_ context.Context) ([]shopping.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list.Items(), nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.Clear()
	return nil
}

func (s *MemoryStore) Replace(_ context.Context, items []shopping.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list.Replace(items)
	return nil
}

func (s *MemoryStore) BeginGeneration(_ context.Context, taskID uuid.UUID, event string) (Generation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen = Generation{Seq: s.gen.Seq + 1, TaskID: taskID, Event: event, State: GenerationSending}
	s.hasGen = true
	return s.gen, nil
}

func (s *MemoryStore) CommitGeneration(_ context.Context, seq int64, items []shopping.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkCommit(s.gen, seq); err != nil {
		return err
	}
	s.list.Replace(items)
	s.gen.State = GenerationSucceeded
	return nil
}

func (s *MemoryStore) FinishGeneration(_ context.Context, seq int64, state, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if checkCommit(s.gen, seq) == nil {
		s.gen.State, s.gen.Error = state, message
	}
	return nil
}

func (s *MemoryStore) CancelGeneration(_ context.Context) (Generation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasGen || s.gen.State != GenerationSending {
		return s.gen, false, nil
	}
	s.gen.State = GenerationCanceled
	return s.gen, true, nil
}

func (s *MemoryStore) CurrentGeneration(_ context.Context) (Generation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen, s.hasGen, nil
}
