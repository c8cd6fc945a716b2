// Package memory provides an in-memory Repository implementation for
// development and tests.
package memory

import (
	"errors"

	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// Repository is the in-memory implementation of interfaces.Repository
type Repository struct {
	memories *memoryStore
	turns    *turnStore
}

var _ interfaces.Repository = &Repository{}

// New creates an empty in-memory repository
func New() *Repository {
	return &Repository{
		memories: newMemoryStore(),
		turns:    newTurnStore(),
	}
}

func (r *Repository) Memory() interfaces.MemoryRepository {
	return r.memories
}

func (r *Repository) Turn() interfaces.TurnRepository {
	return r.turns
}

func (r *Repository) Close() error {
	return nil
}
