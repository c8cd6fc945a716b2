package interfaces

import (
	"context"

	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

// TurnRepository defines the persistence contract for conversation turn
// entries. Turns are append-only.
type TurnRepository interface {
	// Append persists a turn entry, stamping CreatedAt.
	Append(ctx context.Context, turn *model.ConversationTurn) error

	// ListBySession returns the most recent limit entries of a session,
	// ordered oldest to newest.
	ListBySession(ctx context.Context, sessionID types.SessionID, limit int) ([]*model.ConversationTurn, error)
}
