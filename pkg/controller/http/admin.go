package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mnemo-lab/mnemo/pkg/domain/interfaces"
	"github.com/mnemo-lab/mnemo/pkg/domain/model"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	fsrepo "github.com/mnemo-lab/mnemo/pkg/repository/firestore"
	memrepo "github.com/mnemo-lab/mnemo/pkg/repository/memory"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
	"github.com/mnemo-lab/mnemo/pkg/utils/safe"
)

const defaultListLimit = 50

type memoryResponse struct {
	ID            int64     `json:"id"`
	Content       string    `json:"content"`
	Importance    int       `json:"importance"`
	SourceSession string    `json:"source_session"`
	CreatedAt     time.Time `json:"created_at"`
	LastAccessed  time.Time `json:"last_accessed"`
	Score         *float64  `json:"score,omitempty"`
	HitCount      *int      `json:"hit_count,omitempty"`
}

func toMemoryResponse(m *model.Memory) memoryResponse {
	return memoryResponse{
		ID:            int64(m.ID),
		Content:       m.Content,
		Importance:    m.Importance,
		SourceSession: m.SourceSession.String(),
		CreatedAt:     m.CreatedAt,
		LastAccessed:  m.LastAccessed,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Default().Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func pathMemoryID(r *http.Request) (types.MemoryID, error) {
	return types.ParseMemoryID(chi.URLParam(r, "id"))
}

func isNotFound(err error) bool {
	return errors.Is(err, memrepo.ErrNotFound) || errors.Is(err, fsrepo.ErrNotFound)
}

// handleListMemories serves the admin listing. With a q parameter it runs a
// relevance search instead and annotates each row with its score.
func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, defaultListLimit)

	if query := r.URL.Query().Get("q"); query != "" {
		results, err := s.uc.Memory.Search(r.Context(), query, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "search failed")
			return
		}

		out := make([]memoryResponse, 0, len(results))
		for _, res := range results {
			item := toMemoryResponse(res.Memory)
			score := res.Score
			hits := res.HitCount
			item.Score = &score
			item.HitCount = &hits
			out = append(out, item)
		}
		writeJSON(w, http.StatusOK, map[string]any{"memories": out})
		return
	}

	memories, err := s.uc.Memory.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list memories")
		return
	}

	out := make([]memoryResponse, 0, len(memories))
	for _, m := range memories {
		out = append(out, toMemoryResponse(m))
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": out})
}

func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content    string `json:"content"`
		Importance int    `json:"importance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.uc.Memory.Create(r.Context(), req.Content, req.Importance, types.SourceAdmin)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toMemoryResponse(created))
}

func (s *Server) handleUpdateMemory(w http.ResponseWriter, r *http.Request) {
	id, err := pathMemoryID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory ID")
		return
	}

	var req struct {
		Content    *string `json:"content"`
		Importance *int    `json:"importance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.uc.Memory.Update(r.Context(), id, interfaces.MemoryUpdate{
		Content:    req.Content,
		Importance: req.Importance,
	})
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "memory not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toMemoryResponse(updated))
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	id, err := pathMemoryID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory ID")
		return
	}

	if err := s.uc.Memory.Delete(r.Context(), id); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "memory not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete memory")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBatchDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ids := make([]types.MemoryID, len(req.IDs))
	for i, id := range req.IDs {
		ids[i] = types.MemoryID(id)
	}

	deleted, err := s.uc.Memory.DeleteBatch(r.Context(), ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete memories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

func (s *Server) handleBatchUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs        []int64 `json:"ids"`
		Importance int     `json:"importance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Importance < model.MinImportance || req.Importance > model.MaxImportance {
		writeError(w, http.StatusBadRequest, "importance out of range")
		return
	}

	ids := make([]types.MemoryID, len(req.IDs))
	for i, id := range req.IDs {
		ids[i] = types.MemoryID(id)
	}

	updated, err := s.uc.Memory.UpdateBatchImportance(r.Context(), ids, req.Importance)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update memories")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	records, err := s.uc.Memory.Export(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export memories")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="memories.json"`)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode export")
		return
	}
	safe.Write(r.Context(), w, data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var records []model.MemoryRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.uc.Memory.ImportRecords(r.Context(), records, types.SourceJSONImport)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lines []string `json:"lines"`
		Score bool     `json:"score"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Lines) == 0 {
		writeError(w, http.StatusBadRequest, "lines must not be empty")
		return
	}

	result, err := s.uc.Memory.ImportText(r.Context(), req.Lines, req.Score)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "import failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSessionTurns(w http.ResponseWriter, r *http.Request) {
	sessionID := types.SessionID(chi.URLParam(r, "id"))
	limit := queryLimit(r, defaultListLimit)

	turns, err := s.uc.Memory.Turns(r.Context(), sessionID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list turns")
		return
	}

	type turnResponse struct {
		SessionID string    `json:"session_id"`
		Role      string    `json:"role"`
		Content   string    `json:"content"`
		Model     string    `json:"model"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]turnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, turnResponse{
			SessionID: string(t.SessionID),
			Role:      string(t.Role),
			Content:   t.Content,
			Model:     t.Model,
			CreatedAt: t.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": out})
}
