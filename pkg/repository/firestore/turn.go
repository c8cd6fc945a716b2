package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type turnDoc struct {
	SessionID string    `firestore:"SessionID"`
	Role      string    `firestore:"Role"`
	Content   string    `firestore:"Content"`
	Model     string    `firestore:"Model"`
	CreatedAt time.Time `firestore:"CreatedAt"`
}

func toTurnDoc(t *model.ConversationTurn) *turnDoc {
	return &turnDoc{
		SessionID: string(t.SessionID),
		Role:      string(t.Role),
		Content:   t.Content,
		Model:     t.Model,
		CreatedAt: t.CreatedAt,
	}
}

func fromTurnDoc(d *turnDoc) *model.ConversationTurn {
	return &model.ConversationTurn{
		SessionID: types.SessionID(d.SessionID),
		Role:      types.Role(d.Role),
		Content:   d.Content,
		Model:     d.Model,
		CreatedAt: d.CreatedAt,
	}
}

type turnRepository struct {
	client *firestore.Client
}

func newTurnRepository(client *firestore.Client) *turnRepository {
	return &turnRepository{client: client}
}

func (r *turnRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionTurns)
}

func (r *turnRepository) Append(ctx context.Context, turn *model.ConversationTurn) error {
	if err := turn.Validate(); err != nil {
		return err
	}

	stored := *turn
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	docID := uuid.Must(uuid.NewV7()).String()
	if _, err := r.collection().Doc(docID).Set(ctx, toTurnDoc(&stored)); err != nil {
		return goerr.Wrap(err, "failed to append conversation turn",
			goerr.V("session_id", turn.SessionID))
	}
	return nil
}

// ListBySession returns up to limit most recent turns for the session,
// ordered oldest to newest.
func (r *turnRepository) ListBySession(ctx context.Context, sessionID types.SessionID, limit int) ([]*model.ConversationTurn, error) {
	query := r.collection().
		Where("SessionID", "==", string(sessionID)).
		OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	turns := make([]*model.ConversationTurn, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate conversation turns",
				goerr.V("session_id", sessionID))
		}

		var d turnDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal conversation turn")
		}
		turns = append(turns, fromTurnDoc(&d))
	}

	// reverse to oldest-first
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
