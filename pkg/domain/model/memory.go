package model

import (
	"time"

	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

const (
	// DefaultImportance is assigned when the caller or the extraction model
	// does not provide a usable importance value.
	DefaultImportance = 5

	MinImportance = 1
	MaxImportance = 10
)

// Memory represents a durable fact about the user, stored independently of
// any single conversation. Content is opaque to the engine except for
// keyword tokenization at search time.
type Memory struct {
	ID            types.MemoryID
	Content       string
	Importance    int // [1,10], higher is more relevant
	SourceSession types.SessionID
	CreatedAt     time.Time
	LastAccessed  time.Time
}

// ClampImportance coerces v into the valid [1,10] range. Zero (unset)
// becomes the default.
func ClampImportance(v int) int {
	if v == 0 {
		return DefaultImportance
	}
	if v < MinImportance {
		return MinImportance
	}
	if v > MaxImportance {
		return MaxImportance
	}
	return v
}

// SearchResult is a Memory with its computed relevance for one query.
// It is ephemeral and never persisted.
type SearchResult struct {
	Memory   *Memory
	Score    float64
	HitCount int // distinct query tokens found in the content
}

// MemoryRecord is the portable import/export representation of a Memory.
// IDs and access stamps are deliberately excluded so a record set can be
// replayed into any store.
type MemoryRecord struct {
	Content       string    `json:"content"`
	Importance    int       `json:"importance"`
	SourceSession string    `json:"source_session"`
	CreatedAt     time.Time `json:"created_at"`
}

// Record converts a Memory into its export representation
func (m *Memory) Record() MemoryRecord {
	return MemoryRecord{
		Content:       m.Content,
		Importance:    m.Importance,
		SourceSession: m.SourceSession.String(),
		CreatedAt:     m.CreatedAt,
	}
}
