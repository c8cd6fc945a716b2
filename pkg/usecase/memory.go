package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	fsrepo "github.com/mnemo-lab/mnemo/pkg/repository/firestore"
	memrepo "github.com/mnemo-lab/mnemo/pkg/repository/memory"
	"github.com/mnemo-lab/mnemo/pkg/service/keyword"
	"github.com/mnemo-lab/mnemo/pkg/utils/async"
)

// MemoryUseCase covers retrieval and administration of the memory store.
type MemoryUseCase struct {
	uc *UseCases
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Search tokenizes the query, scores every stored memory and returns the top
// results. A query with no extractable tokens yields an empty result without
// touching the store. Matched memories get their LastAccessed stamp refreshed
// in the background; that refresh never affects the returned results.
func (u *MemoryUseCase) Search(ctx context.Context, query string, limit int) ([]*model.SearchResult, error) {
	tokens := keyword.Extract(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	memories, err := u.uc.repo.Memory().ListAll(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memories for search")
	}

	results := u.uc.weights.Rank(memories, tokens, time.Now().UTC(), limit)
	if len(results) == 0 {
		return results, nil
	}

	ids := make([]types.MemoryID, len(results))
	for i, r := range results {
		ids[i] = r.Memory.ID
	}
	at := time.Now().UTC()
	async.Dispatch(ctx, func(ctx context.Context) error {
		return u.uc.repo.Memory().TouchAccessed(ctx, ids, at)
	})

	return results, nil
}

func (u *MemoryUseCase) Create(ctx context.Context, content string, importance int, source types.SessionID) (*model.Memory, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, goerr.New("memory content must not be empty")
	}

	return u.uc.repo.Memory().Create(ctx, &model.Memory{
		Content:       content,
		Importance:    importance,
		SourceSession: source,
	})
}

func (u *MemoryUseCase) Get(ctx context.Context, id types.MemoryID) (*model.Memory, error) {
	return u.uc.repo.Memory().Get(ctx, id)
}

func (u *MemoryUseCase) Update(ctx context.Context, id types.MemoryID, upd interfaces.MemoryUpdate) (*model.Memory, error) {
	if upd.Content == nil && upd.Importance == nil {
		return nil, goerr.New("update requires content or importance", goerr.V("id", id))
	}
	if upd.Content != nil {
		trimmed := strings.TrimSpace(*upd.Content)
		if trimmed == "" {
			return nil, goerr.New("memory content must not be empty", goerr.V("id", id))
		}
		upd.Content = &trimmed
	}

	return u.uc.repo.Memory().Update(ctx, id, upd)
}

func (u *MemoryUseCase) Delete(ctx context.Context, id types.MemoryID) error {
	return u.uc.repo.Memory().Delete(ctx, id)
}

func (u *MemoryUseCase) DeleteBatch(ctx context.Context, ids []types.MemoryID) (int, error) {
	return u.uc.repo.Memory().DeleteBatch(ctx, ids)
}

// UpdateBatchImportance sets the same importance on every given memory.
// Missing IDs are skipped; the count covers the memories actually updated.
func (u *MemoryUseCase) UpdateBatchImportance(ctx context.Context, ids []types.MemoryID, importance int) (int, error) {
	updated := 0
	for _, id := range ids {
		v := importance
		_, err := u.uc.repo.Memory().Update(ctx, id, interfaces.MemoryUpdate{Importance: &v})
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func (u *MemoryUseCase) List(ctx context.Context, limit int) ([]*model.Memory, error) {
	return u.uc.repo.Memory().ListRecent(ctx, limit)
}

func (u *MemoryUseCase) Count(ctx context.Context) (int, error) {
	return u.uc.repo.Memory().Count(ctx)
}

// Export returns every memory as a portable record set, newest first.
func (u *MemoryUseCase) Export(ctx context.Context) ([]model.MemoryRecord, error) {
	memories, err := u.uc.repo.Memory().ListAll(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memories for export")
	}

	records := make([]model.MemoryRecord, 0, len(memories))
	for _, m := range memories {
		records = append(records, m.Record())
	}
	return records, nil
}

// ImportRecords replays an exported record set. Records whose exact content
// already exists are skipped. A record without a source session is attributed
// to fallback.
func (u *MemoryUseCase) ImportRecords(ctx context.Context, records []model.MemoryRecord, fallback types.SessionID) (*ImportResult, error) {
	result := &ImportResult{}
	for _, rec := range records {
		content := strings.TrimSpace(rec.Content)
		if content == "" {
			result.Skipped++
			continue
		}

		exists, err := u.contentExists(ctx, content)
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped++
			continue
		}

		source := types.SessionID(rec.SourceSession)
		if source == "" {
			source = fallback
		}
		_, err = u.uc.repo.Memory().Create(ctx, &model.Memory{
			Content:       content,
			Importance:    rec.Importance,
			SourceSession: source,
		})
		if err != nil {
			return result, goerr.Wrap(err, "failed to import memory record")
		}
		result.Imported++
	}
	return result, nil
}

// ImportText inserts raw text lines as memories. When score is set and an
// extraction client is configured, each line is scored by the LLM; otherwise
// every line gets the default importance.
func (u *MemoryUseCase) ImportText(ctx context.Context, lines []string, score bool) (*ImportResult, error) {
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}

	candidates := make([]model.Candidate, 0, len(cleaned))
	if score && u.uc.extractor != nil {
		candidates = u.uc.extractor.Score(ctx, cleaned)
	} else {
		for _, line := range cleaned {
			candidates = append(candidates, model.Candidate{
				Content:    line,
				Importance: model.DefaultImportance,
			})
		}
	}

	records := make([]model.MemoryRecord, 0, len(candidates))
	for _, c := range candidates {
		records = append(records, model.MemoryRecord{
			Content:    c.Content,
			Importance: c.Importance,
		})
	}
	return u.ImportRecords(ctx, records, types.SourceTextImport)
}

// ImportSeeds loads bootstrap memories, skipping any whose content already
// exists.
func (u *MemoryUseCase) ImportSeeds(ctx context.Context, seeds []model.MemoryRecord) (*ImportResult, error) {
	return u.ImportRecords(ctx, seeds, types.SourceSeedImport)
}

func (u *MemoryUseCase) contentExists(ctx context.Context, content string) (bool, error) {
	_, err := u.uc.repo.Memory().GetByContent(ctx, content)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, goerr.Wrap(err, "failed to check existing memory content")
}

func (u *MemoryUseCase) Turns(ctx context.Context, sessionID types.SessionID, limit int) ([]*model.ConversationTurn, error) {
	return u.uc.repo.Turn().ListBySession(ctx, sessionID, limit)
}

func isNotFound(err error) bool {
	return errors.Is(err, memrepo.ErrNotFound) || errors.Is(err, fsrepo.ErrNotFound)
}
