package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/docflow/apiserver/config"
	"github.com/docflow/apiserver/internal/auth"
	"github.com/docflow/apiserver/internal/db"
	"github.com/docflow/apiserver/internal/delivery"
	"github.com/docflow/apiserver/internal/handlers"
	"github.com/docflow/apiserver/internal/logging"
	"github.com/docflow/apiserver/internal/metrics"
	"github.com/docflow/apiserver/internal/mq"
	"github.com/docflow/apiserver/internal/services"
	"github.com/docflow/apiserver/internal/storage"
	"github.com/docflow/apiserver/internal/store"
	"github.com/docflow/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server wraps the HTTP server, router and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *db.DB
	queue      *mq.MQ
	logger     *zap.Logger
}

// New opens the database and the optional archive and broker, then wires
// repositories, services and routes. The schema must already be migrated.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	policy, err := policyFromConfig(cfg.Documents)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET: %w", err)
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	archive, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	documentRepo := store.NewDocumentRepository(dbConn)

	opts := []services.DocumentOption{services.WithLogger(logger)}

	var (
		archiveWriter delivery.Archive
		archiveReader handlers.ArchiveReader
		publisher     delivery.Publisher
	)
	if archive != nil {
		archiveWriter = archive
		archiveReader = archive
	}
	if queue != nil {
		publisher = queue
	}
	dispatcher := delivery.NewDispatcher(archiveWriter, publisher, cfg.MQ.Channel, logger)
	if dispatcher.Enabled() {
		opts = append(opts, services.WithDeliverer(dispatcher))
	}

	var appMetrics *metrics.Metrics
	if cfg.Metrics.Enabled {
		appMetrics = metrics.New()
		opts = append(opts, services.WithRecorder(appMetrics))
	}

	authService := services.NewAuthService(userRepo, tokens)
	documentService := services.NewDocumentService(documentRepo, policy, opts...)

	authMiddleware := handlers.RequireAuth(tokens, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	if appMetrics != nil {
		router.Use(appMetrics.Middleware)
		router.Method(http.MethodGet, "/metrics", appMetrics.Handler())
	}
	router.Get("/", handlers.Root)
	router.Get("/healthz", handlers.Healthz)
	handlers.AuthRouter(router, authService, tokens, logger)
	router.Route("/documents", func(r chi.Router) {
		handlers.DocumentRouter(r, documentService, archiveReader, authMiddleware, logger)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server configured",
		zap.String("db_driver", string(dbConn.Dialect)),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("mq_backend", cfg.MQ.Backend),
		zap.String("update_role", string(policy.UpdateRole)),
		zap.String("send_role", string(policy.SendRole)),
		zap.Bool("cyrillic_only", policy.CyrillicOnly),
	)

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start blocks serving HTTP. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires and releases the
// database and broker connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.queue != nil {
		err = errors.Join(err, s.queue.Close())
	}
	if s.db != nil {
		err = errors.Join(err, s.db.Close())
	}
	return err
}

func policyFromConfig(cfg config.DocumentsConfig) (services.Policy, error) {
	policy := services.Policy{
		UpdateRole:   types.Role(cfg.UpdateRequiredRole),
		SendRole:     types.Role(cfg.SendRequiredRole),
		CyrillicOnly: cfg.CyrillicOnly,
	}
	if policy.UpdateRole != "" && !policy.UpdateRole.Valid() {
		return services.Policy{}, fmt.Errorf("UPDATE_REQUIRED_ROLE: unknown role %q", policy.UpdateRole)
	}
	if policy.SendRole != "" && !policy.SendRole.Valid() {
		return services.Policy{}, fmt.Errorf("SEND_REQUIRED_ROLE: unknown role %q", policy.SendRole)
	}
	return policy, nil
}
