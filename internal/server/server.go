package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"schemadoctor/internal/probe"
)

// Prober runs one schema probe per call.
type Prober interface {
	Run(ctx context.Context, record any) probe.Report
}

// Pinger checks data API reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

type requestLogger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type Server struct {
	addr          string
	logger        requestLogger
	prober        Prober
	pinger        Pinger
	migrationsDir string
}

func New(addr string, logger requestLogger, prober Prober, pinger Pinger, migrationsDir string) *Server {
	return &Server{
		addr:          addr,
		logger:        logger,
		prober:        prober,
		pinger:        pinger,
		migrationsDir: migrationsDir,
	}
}

func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(RequestLogger(s.logger))

	r.Route("/api/v1", func(api chi.Router) {
		api.Get("/health", s.handleHealth)
		api.Post("/probe", s.handleProbe)
		api.Get("/migrations", s.handleMigrations)
	})

	return r
}
