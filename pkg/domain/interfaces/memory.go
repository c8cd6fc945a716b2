package interfaces

import (
	"context"
	"time"

	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

// MemoryUpdate holds the mutable fields of a Memory. Nil fields are left
// unchanged.
type MemoryUpdate struct {
	Content    *string
	Importance *int
}

// MemoryRepository defines the persistence contract for Memory records.
// It is the only component permitted to mutate Memory rows.
type MemoryRepository interface {
	// Create persists a new memory, assigning a monotonically increasing ID
	// and the creation/access timestamps.
	Create(ctx context.Context, mem *model.Memory) (*model.Memory, error)

	// Get retrieves a memory by ID. Returns a NotFound error when absent.
	Get(ctx context.Context, id types.MemoryID) (*model.Memory, error)

	// GetByContent retrieves a memory whose content exactly matches.
	// Returns a NotFound error when absent.
	GetByContent(ctx context.Context, content string) (*model.Memory, error)

	// Update applies the non-nil fields of upd to the memory.
	Update(ctx context.Context, id types.MemoryID, upd MemoryUpdate) (*model.Memory, error)

	// Delete removes a memory by ID.
	Delete(ctx context.Context, id types.MemoryID) error

	// DeleteBatch removes a set of memories. IDs that do not exist are
	// ignored; the returned count is the number actually deleted.
	DeleteBatch(ctx context.Context, ids []types.MemoryID) (int, error)

	// ListRecent returns up to limit memories ordered by CreatedAt descending.
	ListRecent(ctx context.Context, limit int) ([]*model.Memory, error)

	// ListAll returns every memory, ordered by CreatedAt descending.
	ListAll(ctx context.Context) ([]*model.Memory, error)

	// Count returns the total number of stored memories.
	Count(ctx context.Context) (int, error)

	// TouchAccessed stamps LastAccessed on the given memories. Missing IDs
	// are ignored.
	TouchAccessed(ctx context.Context, ids []types.MemoryID, at time.Time) error
}
