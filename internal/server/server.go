package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/activation"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/api"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/catalog"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/config"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/defra"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/home"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/jobs"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/prompts"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/providers"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/schema"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/server/endpoints"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/signing"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/store"
	"github.com/playandogamer150-commits/vectra-ai-sub000/internal/svcctx"
)

// Server is the main Vectra HTTP server.
// When storage.backend is defra and no defra.url is configured it also
// manages the DefraDB container, starting it on server start and stopping
// it on shutdown.
type Server struct {
	httpServer   *http.Server
	handler      http.Handler
	cfg          *config.Config
	configMgr    *config.Manager
	home         *home.Dir
	defraManager *defra.DockerManager
	backend      store.Backend
	logger       *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services
	closers  []io.Closer

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	watchCancel context.CancelFunc
	watchDone   chan struct{}

	// initMu serializes Init and Close; mu guards services and running.
	initMu  sync.Mutex
	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// AppConfig is the application configuration. When nil it is taken
	// from ConfigManager, or DefaultConfig if neither is set.
	AppConfig *config.Config
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home is the data directory. Required for the sqlite backend without
	// an explicit storage.sqlite_path and for the managed DefraDB container.
	Home *home.Dir
	// Backend overrides the store backend selected by storage.backend.
	Backend store.Backend
	// DefraLabels are added to the managed DefraDB container.
	DefraLabels map[string]string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	appCfg := cfg.AppConfig
	if appCfg == nil && cfg.ConfigManager != nil {
		appCfg = cfg.ConfigManager.Get()
	}
	if appCfg == nil {
		appCfg = config.DefaultConfig()
	}
	if err := appCfg.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       appCfg,
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		backend:   cfg.Backend,
		logger:    cfg.Logger,
	}

	if s.backend == nil && appCfg.Storage.Backend == config.BackendDefra && appCfg.Defra.URL == "" {
		dockerCfg := defra.DockerConfig{
			ContainerName: appCfg.Defra.ContainerName,
			Image:         appCfg.Defra.Image,
			HostPort:      appCfg.Defra.Port,
			Labels:        cfg.DefraLabels,
		}
		if cfg.Home != nil {
			dockerCfg.DataPath = cfg.Home.DataPath()
		}
		mgr, err := defra.NewDockerManager(dockerCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create defra manager: %w", err)
		}
		s.defraManager = mgr
	}

	s.endpointRegistry = api.NewRegistry(endpoints.All(endpoints.Config{DefraManager: s.defraManager})...)
	s.logger.Debug("routes registered", "count", len(s.endpointRegistry.Patterns()))

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)
	s.handler = s.withServices(mux)

	s.httpServer = &http.Server{
		Addr:         appCfg.Addr(),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if cfg.ConfigManager != nil {
		cfg.ConfigManager.OnChange(s.onConfigChange)
	}

	return s, nil
}

// Handler returns the routed handler with service context enrichment.
// Routes that need services answer 503 until Init succeeds.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Init opens the store and builds the services. On failure everything
// opened so far is released.
func (s *Server) Init(ctx context.Context) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	if s.Services() != nil {
		return nil
	}
	if err := s.init(ctx); err != nil {
		s.release()
		return err
	}
	return nil
}

func (s *Server) init(ctx context.Context) error {
	cfg := s.cfg

	backend, defraClient, err := s.openBackend(ctx)
	if err != nil {
		return err
	}
	st := store.New(backend)
	s.closers = append(s.closers, st)

	cat, err := catalog.New(cfg.Catalog.Dir, s.logger)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	signer, err := signing.New(cfg.SigningSecret(), signing.WithWindow(cfg.Signing.Window))
	if err != nil {
		return fmt.Errorf("signing: %w", err)
	}

	opts := []jobs.Option{jobs.WithLogger(s.logger)}

	if cfg.Worker.URL != "" {
		trainer, err := providers.NewHTTPTrainer(providers.HTTPTrainerConfig{
			URL:               cfg.Worker.URL,
			Timeout:           cfg.Worker.Timeout,
			Signer:            signer,
			RequestsPerMinute: cfg.Worker.RequestsPerMinute,
			Logger:            s.logger,
		})
		if err != nil {
			return fmt.Errorf("worker: %w", err)
		}
		opts = append(opts, jobs.WithTrainer(trainer))
	} else {
		s.logger.Warn("worker.url not set, training jobs run in mock mode")
	}

	if cfg.ObjectStore.PresignURL != "" {
		presigner, err := providers.NewHTTPPresigner(cfg.ObjectStore.PresignURL, cfg.ObjectStore.Timeout)
		if err != nil {
			return fmt.Errorf("objectstore: %w", err)
		}
		opts = append(opts, jobs.WithPresigner(presigner))
	} else {
		opts = append(opts, jobs.WithPresigner(providers.StaticPresigner{BaseURL: cfg.ObjectStore.PublicBaseURL}))
	}

	if cfg.Replay.RedisAddr != "" {
		guard, err := signing.NewRedisReplayGuard(ctx, cfg.Replay.RedisAddr, cfg.Replay.RedisPassword, cfg.Replay.RedisDB)
		if err != nil {
			return fmt.Errorf("replay guard: %w", err)
		}
		s.closers = append(s.closers, guard)
		opts = append(opts, jobs.WithReplayGuard(guard))
	}

	jobManager, err := jobs.NewManager(st, signer, jobs.Config{
		MinImages:     cfg.Dataset.MinImages,
		SoftMaxImages: cfg.Dataset.SoftMaxImages,
		CallbackURL:   cfg.CallbackURL(),
	}, opts...)
	if err != nil {
		return err
	}

	act := activation.NewService(st, s.logger)

	services := &svcctx.Services{
		Store:       st,
		Catalog:     cat,
		Prompts:     prompts.NewService(cat, st, act, s.logger),
		JobManager:  jobManager,
		Activation:  act,
		DefraClient: defraClient,
		Logger:      s.logger,
	}
	s.mu.Lock()
	s.services = services
	s.mu.Unlock()

	if cfg.Catalog.Watch && cfg.Catalog.Dir != "" {
		watchCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		s.watchCancel = cancel
		s.watchDone = done
		go func() {
			defer close(done)
			if err := cat.Watch(watchCtx); err != nil {
				s.logger.Error("catalog watcher stopped", "error", err)
			}
		}()
	}

	s.logger.Info("services initialized",
		"backend", cfg.Storage.Backend,
		"catalog", cat.Snapshot().Version,
		"mock_worker", jobManager.MockMode())
	return nil
}

// openBackend selects the document store from storage.backend.
func (s *Server) openBackend(ctx context.Context) (store.Backend, *defra.Client, error) {
	if s.backend != nil {
		return s.backend, nil, nil
	}

	switch s.cfg.Storage.Backend {
	case config.BackendMemory:
		return store.NewMemory(), nil, nil

	case config.BackendSQLite:
		path := s.cfg.Storage.SQLitePath
		if path == "" {
			if s.home == nil {
				return nil, nil, errors.New("storage.sqlite_path is empty and no home directory is set")
			}
			if err := s.home.EnsureExists(); err != nil {
				return nil, nil, err
			}
			path = s.home.DatabasePath()
		}
		db, err := store.OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		s.logger.Info("sqlite store opened", "path", path)
		return db, nil, nil

	case config.BackendDefra:
		url := s.cfg.Defra.URL
		if s.defraManager != nil {
			s.logger.Info("starting DefraDB", "container", s.defraManager.ContainerName())
			if err := s.defraManager.Start(ctx); err != nil {
				return nil, nil, fmt.Errorf("failed to start DefraDB: %w", err)
			}
			url = s.defraManager.URL()
		}

		client := defra.NewClient(url)
		if err := client.HealthCheck(ctx); err != nil {
			return nil, nil, fmt.Errorf("DefraDB health check failed: %w", err)
		}
		s.logger.Info("DefraDB is ready", "url", url)

		rep, err := schema.Initialize(ctx, client, s.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("schema initialization failed: %w", err)
		}
		s.logger.Info("schemas ready", "added", len(rep.Added), "existing", len(rep.Existing))
		return store.NewDefra(client), client, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", s.cfg.Storage.Backend)
}

// Start initializes services and serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.Init(ctx); err != nil {
		s.setNotRunning()
		return err
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		_ = s.shutdown()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and services.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.Close()

	if s.defraManager != nil {
		s.logger.Info("stopping DefraDB")
		if err := s.defraManager.Stop(shutdownCtx); err != nil {
			s.logger.Error("DefraDB stop error", "error", err)
		}
		if err := s.defraManager.Close(); err != nil {
			s.logger.Error("DefraDB manager close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

// Close releases the services built by Init. The managed DefraDB
// container is left running; Start stops it on shutdown.
func (s *Server) Close() {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	s.release()
}

func (s *Server) release() {
	s.mu.Lock()
	s.services = nil
	s.mu.Unlock()

	if s.watchCancel != nil {
		s.watchCancel()
		<-s.watchDone
		s.watchCancel = nil
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Error("close error", "error", err)
		}
	}
	s.closers = nil
}

// onConfigChange applies the hot-reloadable parts of a new configuration.
// Listener, storage and signing settings need a restart.
func (s *Server) onConfigChange(c *config.Config) {
	s.mu.RLock()
	services := s.services
	s.mu.RUnlock()

	s.logger.Info("configuration reloaded", "file", s.configMgr.File())
	if services == nil {
		return
	}
	// An empty dir means "unchanged": serve may have filled it from home.
	if c.Catalog.Dir != "" && c.Catalog.Dir != s.cfg.Catalog.Dir {
		s.logger.Warn("catalog.dir changed, restart to apply", "old", s.cfg.Catalog.Dir, "new", c.Catalog.Dir)
		return
	}
	if _, err := services.Catalog.Refresh(); err != nil {
		s.logger.Error("catalog refresh after config change failed", "error", err)
	}
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Services returns the initialized services, or nil before Init.
func (s *Server) Services() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if services := s.Services(); services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the store or services aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svcctx.ServicesFrom(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
