package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/petalmail/apiserver/config"
	"github.com/petalmail/apiserver/internal/auth"
	"github.com/petalmail/apiserver/internal/db"
	"github.com/petalmail/apiserver/internal/events"
	"github.com/petalmail/apiserver/internal/handlers"
	"github.com/petalmail/apiserver/internal/mq"
	"github.com/petalmail/apiserver/internal/services"
	"github.com/petalmail/apiserver/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP surface is built from. Nothing in the
// router reaches for process-wide state; everything arrives here.
type Deps struct {
	Pool    db.Pool
	Session []db.SessionSetting
	Tokens  *auth.TokenService
	Hasher  handlers.PasswordHasher
	Events  events.Emitter
	Logger  *zap.Logger
}

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	bus        *events.Bus
	events     mq.Backend
	logger     *zap.Logger
}

// New opens the pool and events backend and wires the router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	backend, err := mq.Open(ctx, cfg.Events, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open events backend: %w", err)
	}

	bus := events.NewBus(backend, cfg.Events.Channel, logger)
	router := NewRouter(Deps{
		Pool:    dbConn,
		Session: db.SessionSettings(cfg.Database),
		Tokens:  auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL),
		Hasher:  auth.NewHasher(auth.DefaultHashCost),
		Events:  bus,
		Logger:  logger,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		bus:        bus,
		events:     backend,
		logger:     logger,
	}, nil
}

// NewRouter builds the request pipeline: request id, access log and panic
// recovery for everything; then, for the API, the connection scope, the
// public auth routes, the bearer gate and the mailbox routes, in that order.
func NewRouter(deps Deps) *chi.Mux {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	userService := services.NewUserService(store.NewUserRepository())
	emailService := services.NewEmailService(store.NewEmailRepository())

	authHandler := handlers.NewAuthHandler(userService, deps.Hasher, deps.Tokens, deps.Events, logger)
	emailHandler := handlers.NewEmailHandler(emailService, deps.Events, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		accessLog(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)

	router.Get("/healthz", handlers.Healthz)
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(handlers.ConnectionScope(deps.Pool, deps.Session, logger))
		handlers.AuthRouter(r, authHandler)

		r.Group(func(r chi.Router) {
			r.Use(handlers.RequireAuth(deps.Tokens, deps.Events, logger))
			handlers.EmailRouter(r, emailHandler)
		})
	})

	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("petalmail-api listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, flushes queued events, then releases
// the events backend and the pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.bus != nil {
		if closeErr := s.bus.Close(ctx); closeErr != nil {
			s.logger.Warn("flush events", zap.Error(closeErr))
		}
	}
	if s.events != nil {
		if closeErr := s.events.Close(); closeErr != nil {
			s.logger.Warn("close events backend", zap.Error(closeErr))
		}
	}
	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil {
			s.logger.Warn("close database pool", zap.Error(closeErr))
		}
	}
	return err
}
