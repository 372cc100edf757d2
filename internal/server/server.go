package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/quizmind/apiserver/config"
	"github.com/quizmind/apiserver/internal/auth"
	"github.com/quizmind/apiserver/internal/db"
	"github.com/quizmind/apiserver/internal/handlers"
	"github.com/quizmind/apiserver/internal/llm"
	"github.com/quizmind/apiserver/internal/mq"
	"github.com/quizmind/apiserver/internal/services"
	"github.com/quizmind/apiserver/internal/storage"
	"github.com/quizmind/apiserver/internal/store"
)

// Server wraps the HTTP server and the connections it owns.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	broker     *mq.MQ
	archive    *storage.Storage
	logger     *slog.Logger
}

// Services groups what the router serves.
type Services struct {
	Users       *services.UserService
	Preferences *services.PreferenceService
	Quizzes     *services.QuizService
	Tokens      handlers.TokenVerifier
}

// New connects every backing service named in cfg and builds the router.
// The message broker and object storage are optional.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	tokens, err := auth.NewTokenService([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return nil, err
	}

	generator, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("init llm: %w", err)
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var (
		broker       *mq.MQ
		archiveStore *storage.Storage
		events       services.EventPublisher
		archive      services.Archiver
	)
	if cfg.MQ.Backend != "" {
		broker, err = mq.Open(ctx, cfg.MQ)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		events = broker
		logger.Info("event publishing enabled", "backend", cfg.MQ.Backend)
	}
	if cfg.Storage.Backend != "" {
		archiveStore, err = storage.Open(ctx, cfg.Storage)
		if err != nil {
			_ = dbConn.Close()
			if broker != nil {
				_ = broker.Close()
			}
			return nil, err
		}
		archive = archiveStore
		logger.Info("response archive enabled", "backend", cfg.Storage.Backend, "bucket", archiveStore.Bucket())
	}

	userRepo := store.NewUserRepository(dbConn)
	topicRepo := store.NewTopicRepository(dbConn)
	prefRepo := store.NewPreferenceRepository(dbConn)

	svcs := Services{
		Users:       services.NewUserService(userRepo, tokens, cfg.Auth.AccessTokenTTL),
		Preferences: services.NewPreferenceService(prefRepo, topicRepo, events, logger),
		Quizzes: services.NewQuizService(prefRepo, generator, services.QuizOptions{
			QuestionCount: cfg.Quiz.QuestionCount,
			Timeout:       cfg.LLM.Timeout,
			Archive:       archive,
			Events:        events,
		}, logger),
		Tokens: tokens,
	}
	router := NewRouter(cfg, svcs, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	return &Server{
		httpServer: httpServer,
		db:         dbConn,
		broker:     broker,
		archive:    archiveStore,
		logger:     logger,
	}, nil
}

// NewRouter builds the chi router with the middleware stack and all routes.
func NewRouter(cfg config.Config, svcs Services, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.RequestLogger(&middleware.DefaultLogFormatter{
			Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelInfo),
			NoColor: true,
		}),
		middleware.Timeout(cfg.LLM.Timeout+10*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	)

	requireUser := handlers.RequireUser(svcs.Users, svcs.Tokens, logger)

	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, svcs.Users, svcs.Tokens, logger)
	handlers.PreferenceRouter(router, svcs.Preferences, requireUser, logger)
	handlers.QuizRouter(router, svcs.Quizzes, requireUser, logger)

	return router
}

// Start runs the HTTP server. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the broker, the archive
// and the database.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.broker != nil {
		if closeErr := s.broker.Close(); closeErr != nil {
			s.logger.Warn("close broker", "error", closeErr)
		}
	}
	if s.archive != nil {
		if closeErr := s.archive.Close(); closeErr != nil {
			s.logger.Warn("close archive", "error", closeErr)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
