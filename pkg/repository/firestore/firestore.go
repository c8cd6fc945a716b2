// Package firestore provides the Firestore-backed Repository used in
// production deployments.
package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

const (
	collectionMemories = "memories"
	collectionTurns    = "turns"
	collectionCounters = "counters"
)

// Firestore is the Firestore implementation of interfaces.Repository
type Firestore struct {
	client   *firestore.Client
	memories *memoryRepository
	turns    *turnRepository
}

var _ interfaces.Repository = &Firestore{}

// New creates a Firestore repository. databaseID may be empty for the
// default database. The caller is responsible for calling Close().
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID),
		)
	}

	return &Firestore{
		client:   client,
		memories: newMemoryRepository(client),
		turns:    newTurnRepository(client),
	}, nil
}

func (f *Firestore) Memory() interfaces.MemoryRepository {
	return f.memories
}

func (f *Firestore) Turn() interfaces.TurnRepository {
	return f.turns
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
