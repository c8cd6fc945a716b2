package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
)

// ConversationTurn is an immutable log entry for one message of a completed
// exchange. The curation pipeline appends two of these per turn (user and
// assistant); the ranking path never reads them back.
type ConversationTurn struct {
	SessionID types.SessionID
	Role      types.Role
	Content   string
	Model     string
	CreatedAt time.Time
}

// Validate checks required fields of the turn entry
func (t *ConversationTurn) Validate() error {
	if t.SessionID == "" {
		return goerr.New("session ID is required")
	}
	if err := t.Role.Validate(); err != nil {
		return err
	}
	if t.Content == "" {
		return goerr.New("turn content is required", goerr.V("sessionID", t.SessionID))
	}
	return nil
}
