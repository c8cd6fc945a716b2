package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mnemo-lab/mnemo/pkg/service/worker"
	"github.com/mnemo-lab/mnemo/pkg/usecase"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
	pool   *worker.CurationPool

	upstreamURL    string
	upstreamAPIKey string
	defaultModel   string
	persona        string
	injectLimit    int
	memoryEnabled  bool
	httpClient     *http.Client
}

type Options func(*Server)

// WithUpstream points the gateway at an OpenAI-compatible endpoint.
func WithUpstream(baseURL, apiKey string) Options {
	return func(s *Server) {
		s.upstreamURL = baseURL
		s.upstreamAPIKey = apiKey
	}
}

// WithDefaultModel substitutes the model field of forwarded requests when
// set.
func WithDefaultModel(model string) Options {
	return func(s *Server) {
		s.defaultModel = model
	}
}

// WithPersona prepends a system persona to the injected memory block.
func WithPersona(persona string) Options {
	return func(s *Server) {
		s.persona = persona
	}
}

// WithInjectLimit caps how many memories are injected per request.
func WithInjectLimit(limit int) Options {
	return func(s *Server) {
		s.injectLimit = limit
	}
}

// WithMemoryEnabled toggles memory injection and curation. Disabled, the
// gateway is a pure passthrough.
func WithMemoryEnabled(enabled bool) Options {
	return func(s *Server) {
		s.memoryEnabled = enabled
	}
}

// WithCurationPool attaches the background pipeline that turns completed
// exchanges into memories.
func WithCurationPool(pool *worker.CurationPool) Options {
	return func(s *Server) {
		s.pool = pool
	}
}

func WithHTTPClient(client *http.Client) Options {
	return func(s *Server) {
		s.httpClient = client
	}
}

const defaultInjectLimit = 15

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:        r,
		uc:            uc,
		injectLimit:   defaultInjectLimit,
		memoryEnabled: true,
		httpClient:    &http.Client{},
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Post("/v1/chat/completions", s.handleChatCompletions)
	r.Get("/v1/models", s.handleModels)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/memories", func(r chi.Router) {
			r.Get("/", s.handleListMemories)
			r.Post("/", s.handleCreateMemory)
			r.Put("/{id}", s.handleUpdateMemory)
			r.Delete("/{id}", s.handleDeleteMemory)
			r.Post("/batch/delete", s.handleBatchDelete)
			r.Post("/batch/update", s.handleBatchUpdate)
			r.Get("/export", s.handleExport)
			r.Post("/import", s.handleImport)
			r.Post("/import/text", s.handleImportText)
		})

		r.Get("/sessions/{id}/turns", s.handleSessionTurns)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
