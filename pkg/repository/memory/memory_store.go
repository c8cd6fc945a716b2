package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

type memoryStore struct {
	mu      sync.RWMutex
	entries map[types.MemoryID]*model.Memory
	nextID  types.MemoryID
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		entries: make(map[types.MemoryID]*model.Memory),
	}
}

func copyMemory(m *model.Memory) *model.Memory {
	copied := *m
	return &copied
}

func (s *memoryStore) Create(ctx context.Context, mem *model.Memory) (*model.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now().UTC()

	created := copyMemory(mem)
	created.ID = s.nextID
	created.Importance = model.ClampImportance(mem.Importance)
	created.CreatedAt = now
	created.LastAccessed = now

	s.entries[created.ID] = created
	return copyMemory(created), nil
}

func (s *memoryStore) Get(ctx context.Context, id types.MemoryID) (*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mem, exists := s.entries[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "memory not found", goerr.V("id", id))
	}
	return copyMemory(mem), nil
}

func (s *memoryStore) GetByContent(ctx context.Context, content string) (*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, mem := range s.entries {
		if mem.Content == content {
			return copyMemory(mem), nil
		}
	}
	return nil, goerr.Wrap(ErrNotFound, "memory not found by content")
}

func (s *memoryStore) Update(ctx context.Context, id types.MemoryID, upd interfaces.MemoryUpdate) (*model.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mem, exists := s.entries[id]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "memory not found", goerr.V("id", id))
	}

	if upd.Content != nil {
		mem.Content = *upd.Content
	}
	if upd.Importance != nil {
		mem.Importance = model.ClampImportance(*upd.Importance)
	}
	return copyMemory(mem), nil
}

func (s *memoryStore) Delete(ctx context.Context, id types.MemoryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; !exists {
		return goerr.Wrap(ErrNotFound, "memory not found", goerr.V("id", id))
	}
	delete(s.entries, id)
	return nil
}

func (s *memoryStore) DeleteBatch(ctx context.Context, ids []types.MemoryID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		if _, exists := s.entries[id]; exists {
			delete(s.entries, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *memoryStore) ListRecent(ctx context.Context, limit int) ([]*model.Memory, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *memoryStore) ListAll(ctx context.Context) ([]*model.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Memory, 0, len(s.entries))
	for _, mem := range s.entries {
		result = append(result, copyMemory(mem))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (s *memoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *memoryStore) TouchAccessed(ctx context.Context, ids []types.MemoryID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if mem, exists := s.entries[id]; exists {
			mem.LastAccessed = at
		}
	}
	return nil
}
