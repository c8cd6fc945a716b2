package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
)

// CurationUseCase turns completed conversation exchanges into stored
// memories. It runs inside the worker pool, detached from any request.
type CurationUseCase struct {
	uc *UseCases
}

// ProcessTurn persists the exchange and commits whatever the extractor
// proposes, minus filtered and duplicate candidates. The returned count is
// the number of memories committed. Failures inside a stage end the job;
// nothing is retried.
func (u *CurationUseCase) ProcessTurn(ctx context.Context, sessionID types.SessionID, userText, assistantText, llmModel string) (int, error) {
	logger := logging.From(ctx)
	now := time.Now().UTC()

	if err := u.appendTurns(ctx, sessionID, userText, assistantText, llmModel, now); err != nil {
		return 0, err
	}

	if u.uc.extractor == nil {
		return 0, nil
	}

	existing, err := u.dedupContext(ctx)
	if err != nil {
		return 0, err
	}

	turn := model.TurnText{UserText: userText, AssistantText: assistantText}
	candidates := u.uc.extractor.Extract(ctx, turn, existing)

	committed := 0
	for _, cand := range candidates {
		if u.uc.reject != nil && u.uc.reject(cand.Content) {
			logger.Info("memory candidate rejected by policy",
				"content", cand.Content,
				"session_id", sessionID)
			continue
		}

		if u.uc.dedup {
			exists, err := u.uc.Memory.contentExists(ctx, cand.Content)
			if err != nil {
				return committed, err
			}
			if exists {
				logger.Debug("memory candidate already stored",
					"content", cand.Content)
				continue
			}
		}

		_, err := u.uc.repo.Memory().Create(ctx, &model.Memory{
			Content:       cand.Content,
			Importance:    cand.Importance,
			SourceSession: sessionID,
		})
		if err != nil {
			return committed, goerr.Wrap(err, "failed to commit extracted memory",
				goerr.V("session_id", sessionID))
		}
		committed++
	}

	if committed > 0 {
		logger.Info("curation committed memories",
			"session_id", sessionID,
			"count", committed)
	}
	return committed, nil
}

func (u *CurationUseCase) appendTurns(ctx context.Context, sessionID types.SessionID, userText, assistantText, llmModel string, at time.Time) error {
	turns := []*model.ConversationTurn{
		{
			SessionID: sessionID,
			Role:      types.RoleUser,
			Content:   userText,
			Model:     llmModel,
			CreatedAt: at,
		},
		{
			SessionID: sessionID,
			Role:      types.RoleAssistant,
			Content:   assistantText,
			Model:     llmModel,
			CreatedAt: at.Add(time.Millisecond),
		},
	}

	for _, turn := range turns {
		if turn.Content == "" {
			continue
		}
		if err := u.uc.repo.Turn().Append(ctx, turn); err != nil {
			return goerr.Wrap(err, "failed to persist conversation turn",
				goerr.V("session_id", sessionID),
				goerr.V("role", turn.Role))
		}
	}
	return nil
}

func (u *CurationUseCase) dedupContext(ctx context.Context) ([]string, error) {
	recent, err := u.uc.repo.Memory().ListRecent(ctx, u.uc.contextSize)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load dedup context")
	}

	existing := make([]string, 0, len(recent))
	for _, mem := range recent {
		existing = append(existing, mem.Content)
	}
	return existing, nil
}
