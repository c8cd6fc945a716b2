package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

type turnStore struct {
	mu    sync.RWMutex
	items []*model.ConversationTurn
}

func newTurnStore() *turnStore {
	return &turnStore{}
}

func copyTurn(t *model.ConversationTurn) *model.ConversationTurn {
	copied := *t
	return &copied
}

func (s *turnStore) Append(ctx context.Context, turn *model.ConversationTurn) error {
	if err := turn.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyTurn(turn)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.items = append(s.items, stored)
	return nil
}

func (s *turnStore) ListBySession(ctx context.Context, sessionID types.SessionID, limit int) ([]*model.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*model.ConversationTurn
	for _, turn := range s.items {
		if turn.SessionID == sessionID {
			matched = append(matched, copyTurn(turn))
		}
	}

	// Most recent limit entries, returned oldest to newest.
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}
