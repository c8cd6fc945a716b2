package http

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/service/worker"
	"github.com/mnemo-lab/mnemo/pkg/utils/errutil"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
	"github.com/mnemo-lab/mnemo/pkg/utils/safe"
)

const memoryBlockHeader = "【从过往对话中检索到的相关记忆】\n" +
	"以下是与当前话题可能相关的历史信息，自然地融入对话中，不要刻意提起\"我记得\"：\n"

// handleChatCompletions forwards an OpenAI-compatible completion request to
// the upstream, injecting relevant memories into the system message first.
// The completed exchange is handed to the curation pool afterwards.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if s.upstreamURL == "" {
		http.Error(w, "upstream is not configured", http.StatusInternalServerError)
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	userMessage := latestUserMessage(body)
	s.injectMemories(r, body, userMessage)

	model, _ := body["model"].(string)
	if model == "" && s.defaultModel != "" {
		model = s.defaultModel
	}
	if model != "" {
		body["model"] = model
	}

	sessionID := types.NewSessionID()

	payload, err := json.Marshal(body)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to encode upstream request"), http.StatusInternalServerError)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.upstreamURL, bytes.NewReader(payload))
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to build upstream request"), http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.upstreamAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.upstreamAPIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "upstream request failed"), http.StatusBadGateway)
		return
	}
	defer safe.Close(ctx, resp.Body)

	stream, _ := body["stream"].(bool)
	if stream && resp.StatusCode == http.StatusOK {
		s.relayStream(w, r, resp, sessionID, userMessage, model)
		return
	}

	s.relayResponse(w, r, resp, sessionID, userMessage, model)
}

// injectMemories rewrites the messages array so the system message starts
// with the persona and the retrieved memory block. Retrieval failure leaves
// the request untouched.
func (s *Server) injectMemories(r *http.Request, body map[string]any, userMessage string) {
	enhanced := s.persona

	if s.memoryEnabled && userMessage != "" {
		results, err := s.uc.Memory.Search(r.Context(), userMessage, s.injectLimit)
		if err != nil {
			logging.From(r.Context()).Warn("memory search failed, forwarding without injection",
				"error", err)
		} else if len(results) > 0 {
			var sb strings.Builder
			if enhanced != "" {
				sb.WriteString(enhanced)
				sb.WriteString("\n\n")
			}
			sb.WriteString(memoryBlockHeader)
			for _, res := range results {
				sb.WriteString("- ")
				sb.WriteString(res.Memory.Content)
				sb.WriteString("\n")
			}
			enhanced = strings.TrimRight(sb.String(), "\n")
			logging.From(r.Context()).Info("injected memories",
				"count", len(results))
		}
	}

	if enhanced == "" {
		return
	}

	messages, _ := body["messages"].([]any)
	for _, raw := range messages {
		msg, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if msg["role"] == "system" {
			if existing, ok := msg["content"].(string); ok {
				msg["content"] = enhanced + "\n\n" + existing
			} else {
				msg["content"] = enhanced
			}
			return
		}
	}

	body["messages"] = append([]any{
		map[string]any{"role": "system", "content": enhanced},
	}, messages...)
}

// relayResponse forwards a non-streaming upstream response verbatim and,
// when the reply parsed cleanly, submits the exchange for curation.
func (s *Server) relayResponse(w http.ResponseWriter, r *http.Request, resp *http.Response, sessionID types.SessionID, userMessage, model string) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to read upstream response"), http.StatusBadGateway)
		return
	}

	if resp.StatusCode == http.StatusOK {
		if assistant := assistantMessage(raw); assistant != "" {
			s.submitCuration(r, sessionID, userMessage, assistant, model)
		}
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	safe.Write(r.Context(), w, raw)
}

// relayStream copies SSE lines to the client as they arrive while
// accumulating the delta contents, then submits the full reply for curation.
func (s *Server) relayStream(w http.ResponseWriter, r *http.Request, resp *http.Response, sessionID types.SessionID, userMessage, model string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	var reply strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		safe.Write(r.Context(), w, []byte(line+"\n"))
		if flusher != nil {
			flusher.Flush()
		}

		if data, ok := strings.CutPrefix(line, "data: "); ok && data != "[DONE]" {
			reply.WriteString(streamDelta([]byte(data)))
		}
	}
	if err := scanner.Err(); err != nil {
		logging.From(r.Context()).Warn("upstream stream ended abnormally", "error", err)
	}

	if reply.Len() > 0 {
		s.submitCuration(r, sessionID, userMessage, reply.String(), model)
	}
}

func (s *Server) submitCuration(r *http.Request, sessionID types.SessionID, userMessage, assistant, model string) {
	if !s.memoryEnabled || s.pool == nil || userMessage == "" || assistant == "" {
		return
	}

	ok := s.pool.Submit(r.Context(), worker.Job{
		SessionID:     sessionID,
		UserText:      userMessage,
		AssistantText: assistant,
		Model:         model,
	})
	if !ok {
		logging.From(r.Context()).Warn("curation queue full, exchange dropped",
			"session_id", sessionID)
	}
}

// latestUserMessage finds the newest user message. Content may be a plain
// string or an array of typed parts; text parts are joined with spaces.
func latestUserMessage(body map[string]any) string {
	messages, _ := body["messages"].([]any)
	for i := len(messages) - 1; i >= 0; i-- {
		msg, ok := messages[i].(map[string]any)
		if !ok || msg["role"] != "user" {
			continue
		}

		switch content := msg["content"].(type) {
		case string:
			return content
		case []any:
			var parts []string
			for _, raw := range content {
				part, ok := raw.(map[string]any)
				if !ok || part["type"] != "text" {
					continue
				}
				if text, ok := part["text"].(string); ok && text != "" {
					parts = append(parts, text)
				}
			}
			return strings.Join(parts, " ")
		}
		return ""
	}
	return ""
}

// assistantMessage pulls choices[0].message.content out of a completion
// response. Returns empty on any shape mismatch.
func assistantMessage(raw []byte) string {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}

// streamDelta pulls choices[0].delta.content out of one SSE data payload.
func streamDelta(raw []byte) string {
	var chunk struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &chunk); err != nil || len(chunk.Choices) == 0 {
		return ""
	}
	return chunk.Choices[0].Delta.Content
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	model := s.defaultModel
	if model == "" {
		model = "mnemo-gateway"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"data": []map[string]any{
			{
				"id":       model,
				"object":   "model",
				"created":  1700000000,
				"owned_by": "mnemo-gateway",
			},
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	count := 0
	if s.memoryEnabled {
		if c, err := s.uc.Memory.Count(r.Context()); err == nil {
			count = c
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "running",
		"memory_enabled": s.memoryEnabled,
		"memory_count":   count,
	})
}
