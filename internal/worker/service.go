// Package worker serves the reasoning ledger over HTTP.
package worker

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/reasonledger/internal/analysis/consistency"
	"github.com/thebtf/reasonledger/internal/analysis/drift"
	"github.com/thebtf/reasonledger/internal/config"
	"github.com/thebtf/reasonledger/internal/ledger"
	"github.com/thebtf/reasonledger/internal/worker/sse"
	"github.com/thebtf/reasonledger/pkg/models"
)

// Service is the ledger worker: a store, the analyzers and the HTTP
// surface in front of them.
type Service struct {
	startTime      time.Time
	ctx            context.Context
	config         *config.Config
	store          *ledger.Store
	sseBroadcaster *sse.Broadcaster
	router         chi.Router
	server         *http.Server
	listener       net.Listener
	cancel         context.CancelFunc
	checker        atomic.Pointer[consistency.Checker]
	version        string
	driftConfig    drift.Config
	wg             sync.WaitGroup
	mu             sync.Mutex
	ready          atomic.Bool
}

// NewService wires a service around store. A nil checker uses the default
// vocabulary.
func NewService(version string, cfg *config.Config, store *ledger.Store, checker *consistency.Checker) *Service {
	if cfg == nil {
		cfg = config.Default()
	}
	if checker == nil {
		checker = consistency.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc := &Service{
		version:        version,
		config:         cfg,
		store:          store,
		sseBroadcaster: sse.NewBroadcaster(),
		router:         chi.NewRouter(),
		driftConfig:    drift.DefaultConfig(),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
	}
	svc.checker.Store(checker)

	store.SetOnThoughtAdded(svc.publishThought)
	store.SetOnSessionRemoved(svc.publishRemoval)

	svc.setupRoutes()
	return svc
}

func (s *Service) setupRoutes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Get("/api/events", s.sseBroadcaster.HandleSSE)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/", s.handleListSessions)
		r.Delete("/", s.handleClearAll)

		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.handleClearSession)
			r.Post("/thoughts", s.handleAddThought)
			r.Get("/thoughts", s.handleGetThoughts)
			r.Get("/steps/{step}", s.handleGetStep)
			r.Get("/steps/{step}/path", s.handleGetPath)
			r.Get("/steps/{step}/revisions", s.handleGetRevisions)
			r.Get("/steps/{step}/depth", s.handleGetDepth)
			r.Get("/stats", s.handleStats)
			r.Get("/summary", s.handleSummary)
			r.Get("/compressed", s.handleCompressed)
			r.Get("/review", s.handleReview)
		})
	})
}

// Handler returns the HTTP handler.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Checker returns the consistency checker in use.
func (s *Service) Checker() *consistency.Checker {
	return s.checker.Load()
}

// ReloadVocabulary rebuilds the consistency checker from path. The old
// checker stays in place when the file is invalid.
func (s *Service) ReloadVocabulary(path string) error {
	vocab, err := consistency.LoadVocabulary(path)
	if err != nil {
		return err
	}
	checker, err := consistency.NewChecker(vocab)
	if err != nil {
		return err
	}
	s.checker.Store(checker)
	log.Info().Str("path", path).Int("pairs", len(vocab.Pairs)).Msg("Contradiction vocabulary reloaded")
	return nil
}

// Start listens on the configured address and serves in the background.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return errors.New("worker already started")
	}

	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return err
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	s.ready.Store(true)
	log.Info().
		Str("addr", ln.Addr().String()).
		Str("version", s.version).
		Msg("Ledger worker listening")
	return nil
}

// Addr returns the bound address once started.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops accepting requests, disconnects event subscribers and
// waits for in-flight requests until ctx expires.
func (s *Service) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	s.sseBroadcaster.Close()
	s.cancel()

	s.mu.Lock()
	server := s.server
	s.mu.Unlock()

	var err error
	if server != nil {
		err = server.Shutdown(ctx)
	}
	s.wg.Wait()
	return err
}

func (s *Service) publishThought(sessionID string, rec *models.ThoughtRecord) {
	s.sseBroadcaster.Publish(sse.Event{
		Type:    sse.EventThoughtAdded,
		Session: sessionID,
		Data: map[string]any{
			"id":     rec.ID,
			"step":   rec.StepNumber,
			"branch": rec.BranchID,
		},
	})
}

func (s *Service) publishRemoval(sessionID string, reason ledger.RemovalReason) {
	s.sseBroadcaster.Publish(sse.Event{
		Type:    sse.EventSessionRemoved,
		Session: sessionID,
		Data:    map[string]string{"reason": string(reason)},
	})
}
