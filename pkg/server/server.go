// Package server exposes one viewer over HTTP: JSON state and input
// endpoints, the rendered surface as PNG, and a websocket carrying toolbar
// requests in and render events out.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/AOShei/pdf-viewer/pkg/observability"
	"github.com/AOShei/pdf-viewer/pkg/viewer"
)

// Config holds server configuration.
type Config struct {
	Addr     string
	AllowAll bool // allow all CORS origins (dev mode)
}

type Server struct {
	cfg        Config
	viewer     *viewer.Viewer
	canvas     *viewer.Canvas
	toolbar    *viewer.Toolbar
	log        observability.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server for v. canvas must be the surface v renders to.
func New(cfg Config, v *viewer.Viewer, canvas *viewer.Canvas, logger observability.Logger) *Server {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	s := &Server{
		cfg:     cfg,
		viewer:  v,
		canvas:  canvas,
		toolbar: viewer.NewToolbar(v.Bus()),
		log:     logger,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleGetState)
		r.Patch("/state", s.handlePatchState)
		r.Post("/resize", s.handleResize)
		r.Post("/page/next", s.handleNextPage)
		r.Post("/page/prev", s.handlePrevPage)
		r.Post("/wheel", s.handleWheel)
		r.Get("/presets", s.handlePresets)
		r.Post("/presets/{label}", s.handlePressPreset)
		r.Get("/surface.png", s.handleSurface)
	})
	r.Get("/ws/events", s.handleEvents)
	return r
}

// requestLogger logs each request at debug level once it completes.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			observability.String("method", r.Method),
			observability.String("path", r.URL.Path),
			observability.Int("status", ww.Status()),
			observability.String("request_id", middleware.GetReqID(r.Context())),
			observability.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.log.Info("pdf viewer listening", observability.String("addr", s.cfg.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
