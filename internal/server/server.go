package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ShussainML/schoolmealapp/internal/config"
	"github.com/ShussainML/schoolmealapp/internal/gallery"
	"github.com/ShussainML/schoolmealapp/internal/generator"
	i18npkg "github.com/ShussainML/schoolmealapp/internal/i18n"
	"github.com/ShussainML/schoolmealapp/internal/prompt"
)

// purgeInterval is how often idle sessions are swept.
const purgeInterval = 10 * time.Minute

// Server is the presentation boundary: it accepts generation requests from
// the UI, drives the pipeline, and exposes the session's results.
type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	sessions *gallery.Manager
	orch     *generator.Orchestrator
	styles   map[string]string
	i18n     *i18npkg.Manager
	hub      *progressHub
	router   chi.Router
}

// New wires the server around a generation client. Styles come from the
// config when present, otherwise the compiled-in presets.
func New(cfg *config.Config, client generator.ImageClient, i18nMgr *i18npkg.Manager, logger *zap.Logger) *Server {
	styles := cfg.StyleMap()
	if styles == nil {
		styles = prompt.DefaultStyles()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.Named("server"),
		sessions: gallery.NewManager(
			cfg.Gallery.MaxRecords,
			cfg.Gallery.MaxDebugEntries,
			cfg.Gallery.SessionTTL(),
			logger,
		),
		orch:   generator.NewOrchestrator(client, cfg.Generation.ImageWidth, cfg.Generation.ImageHeight, logger),
		styles: styles,
		i18n:   i18nMgr,
		hub:    newProgressHub(logger),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/meals", s.handleMeals)
		r.Get("/styles", s.handleStyles)
		r.Get("/prompt/preview", s.handlePromptPreview)
		r.Post("/generate", s.handleGenerate)
		r.Post("/clear", s.handleClear)
		r.Get("/session", s.handleSession)
		r.Get("/debug", s.handleDebug)
		r.Get("/images/{recordID}", s.handleDownload)
		r.Get("/progress", s.handleProgress)
	})

	s.router = r
}

// Handler exposes the routed handler for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully. A janitor
// goroutine sweeps idle sessions while the server runs.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.sessions.PurgeIdle(now)
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
