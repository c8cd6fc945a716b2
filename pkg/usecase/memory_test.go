package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/repository/memory"
	"github.com/mnemo-lab/mnemo/pkg/usecase"
)

type mockExtractor struct {
	extractResult []model.Candidate
	scoreResult   []model.Candidate
	extractCalls  int
	scoreCalls    int
	lastExisting  []string
}

func (m *mockExtractor) Extract(ctx context.Context, turn model.TurnText, existing []string) []model.Candidate {
	m.extractCalls++
	m.lastExisting = existing
	return m.extractResult
}

func (m *mockExtractor) Score(ctx context.Context, lines []string) []model.Candidate {
	m.scoreCalls++
	return m.scoreResult
}

func seedMemories(t *testing.T, repo interfaces.Repository, contents ...string) []*model.Memory {
	t.Helper()
	ctx := context.Background()

	var created []*model.Memory
	for _, content := range contents {
		mem, err := repo.Memory().Create(ctx, &model.Memory{Content: content})
		gt.NoError(t, err).Required()
		created = append(created, mem)
	}
	return created
}

func TestSearch(t *testing.T) {
	t.Run("returns matching memories ranked", func(t *testing.T) {
		repo := memory.New()
		seedMemories(t, repo,
			"春节准备去妈妈家吃团年饭",
			"今天天气很好",
			"user works at Garan Inc")
		uc := usecase.New(repo)

		results, err := uc.Memory.Search(context.Background(), "春节干了什么", 10)
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(1)
		gt.Value(t, results[0].Memory.Content).Equal("春节准备去妈妈家吃团年饭")
		gt.Bool(t, results[0].Score > 0).True()
	})

	t.Run("query without tokens returns empty without error", func(t *testing.T) {
		repo := memory.New()
		seedMemories(t, repo, "anything at all")
		uc := usecase.New(repo)

		results, err := uc.Memory.Search(context.Background(), "。、！", 10)
		gt.NoError(t, err)
		gt.Array(t, results).Length(0)
	})

	t.Run("touches LastAccessed on matched memories", func(t *testing.T) {
		repo := memory.New()
		created := seedMemories(t, repo, "user lives in Osaka")
		uc := usecase.New(repo)

		before := created[0].LastAccessed

		_, err := uc.Memory.Search(context.Background(), "Osaka", 10)
		gt.NoError(t, err).Required()

		deadline := time.Now().Add(2 * time.Second)
		for {
			got, err := repo.Memory().Get(context.Background(), created[0].ID)
			gt.NoError(t, err).Required()
			if got.LastAccessed.After(before) {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("LastAccessed was not refreshed")
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	t.Run("respects limit", func(t *testing.T) {
		repo := memory.New()
		seedMemories(t, repo,
			"Osaka trip in spring",
			"Osaka office address",
			"Osaka ramen preference")
		uc := usecase.New(repo)

		results, err := uc.Memory.Search(context.Background(), "Osaka", 2)
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(2)
	})
}

func TestMemoryCRUD(t *testing.T) {
	t.Run("Create rejects empty content", func(t *testing.T) {
		uc := usecase.New(memory.New())

		_, err := uc.Memory.Create(context.Background(), "   ", 5, types.SourceAdmin)
		gt.Value(t, err).NotNil()
	})

	t.Run("Update requires at least one field", func(t *testing.T) {
		repo := memory.New()
		created := seedMemories(t, repo, "fact")
		uc := usecase.New(repo)

		_, err := uc.Memory.Update(context.Background(), created[0].ID, interfaces.MemoryUpdate{})
		gt.Value(t, err).NotNil()
	})

	t.Run("Update rejects blank content", func(t *testing.T) {
		repo := memory.New()
		created := seedMemories(t, repo, "fact")
		uc := usecase.New(repo)

		blank := "  "
		_, err := uc.Memory.Update(context.Background(), created[0].ID, interfaces.MemoryUpdate{Content: &blank})
		gt.Value(t, err).NotNil()
	})

	t.Run("UpdateBatchImportance skips missing IDs", func(t *testing.T) {
		repo := memory.New()
		created := seedMemories(t, repo, "fact a", "fact b")
		uc := usecase.New(repo)

		ids := []types.MemoryID{created[0].ID, 99999, created[1].ID}
		updated, err := uc.Memory.UpdateBatchImportance(context.Background(), ids, 9)
		gt.NoError(t, err).Required()
		gt.Value(t, updated).Equal(2)

		got, err := repo.Memory().Get(context.Background(), created[0].ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Importance).Equal(9)
	})
}

func TestImport(t *testing.T) {
	t.Run("ImportRecords skips existing content", func(t *testing.T) {
		repo := memory.New()
		seedMemories(t, repo, "already known fact")
		uc := usecase.New(repo)

		records := []model.MemoryRecord{
			{Content: "already known fact", Importance: 3},
			{Content: "brand new fact", Importance: 7, SourceSession: "orig-sess"},
			{Content: "  "},
		}
		result, err := uc.Memory.ImportRecords(context.Background(), records, types.SourceJSONImport)
		gt.NoError(t, err).Required()
		gt.Value(t, result.Imported).Equal(1)
		gt.Value(t, result.Skipped).Equal(2)

		got, err := repo.Memory().GetByContent(context.Background(), "brand new fact")
		gt.NoError(t, err).Required()
		gt.Value(t, got.Importance).Equal(7)
		gt.Value(t, got.SourceSession).Equal(types.SessionID("orig-sess"))
	})

	t.Run("ImportText without scoring uses default importance", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)

		result, err := uc.Memory.ImportText(context.Background(), []string{"likes green tea", "", "  "}, false)
		gt.NoError(t, err).Required()
		gt.Value(t, result.Imported).Equal(1)

		got, err := repo.Memory().GetByContent(context.Background(), "likes green tea")
		gt.NoError(t, err).Required()
		gt.Value(t, got.Importance).Equal(model.DefaultImportance)
		gt.Value(t, got.SourceSession).Equal(types.SourceTextImport)
	})

	t.Run("ImportText with scoring uses extractor", func(t *testing.T) {
		repo := memory.New()
		ext := &mockExtractor{
			scoreResult: []model.Candidate{
				{Content: "allergic to peanuts", Importance: 9},
			},
		}
		uc := usecase.New(repo, usecase.WithExtractor(ext))

		result, err := uc.Memory.ImportText(context.Background(), []string{"allergic to peanuts"}, true)
		gt.NoError(t, err).Required()
		gt.Value(t, result.Imported).Equal(1)
		gt.Value(t, ext.scoreCalls).Equal(1)

		got, err := repo.Memory().GetByContent(context.Background(), "allergic to peanuts")
		gt.NoError(t, err).Required()
		gt.Value(t, got.Importance).Equal(9)
	})

	t.Run("ImportSeeds attributes seed source", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)

		result, err := uc.Memory.ImportSeeds(context.Background(), []model.MemoryRecord{
			{Content: "seeded fact", Importance: 6},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, result.Imported).Equal(1)

		got, err := repo.Memory().GetByContent(context.Background(), "seeded fact")
		gt.NoError(t, err).Required()
		gt.Value(t, got.SourceSession).Equal(types.SourceSeedImport)
	})
}

func TestExport(t *testing.T) {
	repo := memory.New()
	seedMemories(t, repo, "fact one", "fact two")
	uc := usecase.New(repo)

	records, err := uc.Memory.Export(context.Background())
	gt.NoError(t, err).Required()
	gt.Array(t, records).Length(2)
	for _, rec := range records {
		gt.Bool(t, rec.Content != "").True()
		gt.Bool(t, rec.CreatedAt.IsZero()).False()
	}
}
