// Package server provides the HTTP server and routing for papertrader.
package server

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/papertrader/internal/config"
	"github.com/aristath/papertrader/internal/di"
	accounthandlers "github.com/aristath/papertrader/internal/modules/accounts/handlers"
	portfoliohandlers "github.com/aristath/papertrader/internal/modules/portfolio/handlers"
	quotehandlers "github.com/aristath/papertrader/internal/modules/quotes/handlers"
	tradinghandlers "github.com/aristath/papertrader/internal/modules/trading/handlers"
	"github.com/aristath/papertrader/pkg/embedded"
)

const (
	requestTimeout        = 60 * time.Second
	statusMonitorInterval = 60 * time.Second
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container // DI container with all services
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	port           int
	container      *di.Container
	systemHandlers *SystemHandlers
	statusMonitor  *StatusMonitor
	stopMonitor    context.CancelFunc
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	// Register common MIME types to ensure correct Content-Type headers
	_ = mime.AddExtensionType(".js", "application/javascript")
	_ = mime.AddExtensionType(".css", "text/css")

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		port:      cfg.Port,
		container: cfg.Container,
	}

	s.systemHandlers = NewSystemHandlers(cfg.Container, cfg.Config.DataDir, cfg.Log)
	s.statusMonitor = NewStatusMonitor(cfg.Container.PingStore, cfg.Container.EventManager, cfg.Log)

	s.setupMiddleware(cfg.DevMode, cfg.Config.AllowedOrigins)
	s.setupRoutes()

	// No WriteTimeout: websocket connections outlive any request deadline.
	// Ordinary requests are bounded by the Timeout middleware instead.
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool, origins []string) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}

	// Session user, when present, for every route
	s.router.Use(s.container.Sessions.LoadUser)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	c := s.container
	sessions := c.Sessions

	accountHandlers := accounthandlers.NewAccountHandlers(c.AccountService, sessions, c.Renderer, s.log)
	portfolioHandlers := portfoliohandlers.NewHandler(c.PortfolioService, c.Renderer, s.log)
	quoteHandlers := quotehandlers.NewQuoteHandlers(c.Quotes, s.log)
	tradingHandlers := tradinghandlers.NewTradingHandlers(c.Engine, c.PortfolioService, c.Quotes, s.cfg.TradeTimeout, c.Renderer, s.log)

	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/static/*", http.StripPrefix("/static/", s.assetsHandler(http.FileServer(http.FS(embedded.Static())))))

	// Websocket push; kept outside the request timeout
	s.router.With(sessions.RequireUser).Get("/api/notifications/ws", c.Hub.ServeHTTP)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		// Public pages
		r.Get("/", s.handleRoot)
		accountHandlers.RegisterRoutes(r)

		// Pages behind login
		r.Group(func(r chi.Router) {
			r.Use(sessions.RequireUser)
			portfolioHandlers.RegisterRoutes(r)
			tradingHandlers.RegisterRoutes(r)
		})

		r.Route("/api", func(r chi.Router) {
			// Market data is public
			quoteHandlers.RegisterRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(sessions.RequireUser)
				tradingHandlers.RegisterAPIRoutes(r)

				r.Route("/system", func(r chi.Router) {
					r.Get("/status", s.systemHandlers.HandleSystemStatus)
					r.Get("/database/stats", s.systemHandlers.HandleDatabaseStats)
					r.Get("/backups", s.systemHandlers.HandleBackups)
				})
			})
		})
	})
}

// Start starts the status monitor and serves until Shutdown
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopMonitor = cancel
	s.statusMonitor.Start(ctx, statusMonitorInterval)
	s.log.Info().Msg("Status monitor started")

	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	if s.stopMonitor != nil {
		s.stopMonitor()
	}
	return s.server.Shutdown(ctx)
}

// assetsHandler wraps the file server to set correct MIME types
func (s *Server) assetsHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType := mime.TypeByExtension(filepath.Ext(r.URL.Path)); contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
