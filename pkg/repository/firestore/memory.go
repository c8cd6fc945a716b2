package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// memoryDoc is the Firestore document representation of model.Memory
type memoryDoc struct {
	ID            int64     `firestore:"ID"`
	Content       string    `firestore:"Content"`
	Importance    int       `firestore:"Importance"`
	SourceSession string    `firestore:"SourceSession"`
	CreatedAt     time.Time `firestore:"CreatedAt"`
	LastAccessed  time.Time `firestore:"LastAccessed"`
}

// counterDoc holds the last assigned memory ID
type counterDoc struct {
	Value int64 `firestore:"Value"`
}

func toMemoryDoc(m *model.Memory) *memoryDoc {
	return &memoryDoc{
		ID:            int64(m.ID),
		Content:       m.Content,
		Importance:    m.Importance,
		SourceSession: m.SourceSession.String(),
		CreatedAt:     m.CreatedAt,
		LastAccessed:  m.LastAccessed,
	}
}

func fromMemoryDoc(d *memoryDoc) *model.Memory {
	return &model.Memory{
		ID:            types.MemoryID(d.ID),
		Content:       d.Content,
		Importance:    d.Importance,
		SourceSession: types.SessionID(d.SourceSession),
		CreatedAt:     d.CreatedAt,
		LastAccessed:  d.LastAccessed,
	}
}

type memoryRepository struct {
	client *firestore.Client
}

func newMemoryRepository(client *firestore.Client) *memoryRepository {
	return &memoryRepository{client: client}
}

func (r *memoryRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionMemories)
}

func (r *memoryRepository) counterRef() *firestore.DocumentRef {
	return r.client.Collection(collectionCounters).Doc(collectionMemories)
}

// Create allocates the next ID from the counter document and writes the
// memory in one transaction, keeping IDs strictly increasing.
func (r *memoryRepository) Create(ctx context.Context, mem *model.Memory) (*model.Memory, error) {
	now := time.Now().UTC()

	created := *mem
	created.Importance = model.ClampImportance(mem.Importance)
	created.CreatedAt = now
	created.LastAccessed = now

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var counter counterDoc
		snap, err := tx.Get(r.counterRef())
		switch {
		case err == nil:
			if err := snap.DataTo(&counter); err != nil {
				return goerr.Wrap(err, "failed to unmarshal memory counter")
			}
		case status.Code(err) == codes.NotFound:
			counter.Value = 0
		default:
			return goerr.Wrap(err, "failed to read memory counter")
		}

		counter.Value++
		created.ID = types.MemoryID(counter.Value)

		if err := tx.Set(r.counterRef(), &counter); err != nil {
			return goerr.Wrap(err, "failed to update memory counter")
		}
		if err := tx.Set(r.collection().Doc(created.ID.String()), toMemoryDoc(&created)); err != nil {
			return goerr.Wrap(err, "failed to write memory")
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create memory")
	}

	return &created, nil
}

func (r *memoryRepository) Get(ctx context.Context, id types.MemoryID) (*model.Memory, error) {
	snap, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "memory not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get memory", goerr.V("id", id))
	}

	var d memoryDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal memory", goerr.V("id", id))
	}
	return fromMemoryDoc(&d), nil
}

func (r *memoryRepository) GetByContent(ctx context.Context, content string) (*model.Memory, error) {
	iter := r.collection().Where("Content", "==", content).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(ErrNotFound, "memory not found by content")
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query memory by content")
	}

	var d memoryDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal memory")
	}
	return fromMemoryDoc(&d), nil
}

func (r *memoryRepository) Update(ctx context.Context, id types.MemoryID, upd interfaces.MemoryUpdate) (*model.Memory, error) {
	var updated *model.Memory

	docRef := r.collection().Doc(id.String())
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "memory not found", goerr.V("id", id))
			}
			return goerr.Wrap(err, "failed to get memory", goerr.V("id", id))
		}

		var d memoryDoc
		if err := snap.DataTo(&d); err != nil {
			return goerr.Wrap(err, "failed to unmarshal memory", goerr.V("id", id))
		}

		if upd.Content != nil {
			d.Content = *upd.Content
		}
		if upd.Importance != nil {
			d.Importance = model.ClampImportance(*upd.Importance)
		}

		if err := tx.Set(docRef, &d); err != nil {
			return goerr.Wrap(err, "failed to write memory", goerr.V("id", id))
		}
		updated = fromMemoryDoc(&d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *memoryRepository) Delete(ctx context.Context, id types.MemoryID) error {
	docRef := r.collection().Doc(id.String())

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "memory not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to get memory", goerr.V("id", id))
	}

	if _, err := docRef.Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete memory", goerr.V("id", id))
	}
	return nil
}

func (r *memoryRepository) DeleteBatch(ctx context.Context, ids []types.MemoryID) (int, error) {
	deleted := 0
	for _, id := range ids {
		err := r.Delete(ctx, id)
		if err == nil {
			deleted++
			continue
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return deleted, err
	}
	return deleted, nil
}

func (r *memoryRepository) ListRecent(ctx context.Context, limit int) ([]*model.Memory, error) {
	query := r.collection().OrderBy("CreatedAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	return r.queryMemories(ctx, query)
}

func (r *memoryRepository) ListAll(ctx context.Context) ([]*model.Memory, error) {
	return r.queryMemories(ctx, r.collection().OrderBy("CreatedAt", firestore.Desc))
}

func (r *memoryRepository) queryMemories(ctx context.Context, query firestore.Query) ([]*model.Memory, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	memories := make([]*model.Memory, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memories")
		}

		var d memoryDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal memory")
		}
		memories = append(memories, fromMemoryDoc(&d))
	}
	return memories, nil
}

func (r *memoryRepository) Count(ctx context.Context) (int, error) {
	iter := r.collection().Select().Documents(ctx)
	defer iter.Stop()

	count := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, goerr.Wrap(err, "failed to count memories")
		}
		count++
	}
	return count, nil
}

func (r *memoryRepository) TouchAccessed(ctx context.Context, ids []types.MemoryID, at time.Time) error {
	for _, id := range ids {
		_, err := r.collection().Doc(id.String()).Update(ctx, []firestore.Update{
			{Path: "LastAccessed", Value: at},
		})
		if err != nil && status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to touch memory", goerr.V("id", id))
		}
	}
	return nil
}
