// Package server orchestrates all components: host main loop, bridge, entity registry,
// operation handlers, NATS and HTTP transports, event publishing and the journal.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/semaphore"

	"github.com/morezero/cad-bridge/internal/config"
	"github.com/morezero/cad-bridge/pkg/bootstrap"
	"github.com/morezero/cad-bridge/pkg/bridge"
	"github.com/morezero/cad-bridge/pkg/commsutil"
	"github.com/morezero/cad-bridge/pkg/db"
	"github.com/morezero/cad-bridge/pkg/design"
	"github.com/morezero/cad-bridge/pkg/entity"
	"github.com/morezero/cad-bridge/pkg/events"
	"github.com/morezero/cad-bridge/pkg/host"
	"github.com/morezero/cad-bridge/pkg/ops"
)

const logPrefix = "server:server"

// Journal is the subset of db.Journal the server uses.
type Journal interface {
	Record(ctx context.Context, params db.RecordParams) error
	Recent(ctx context.Context, params db.RecentParams) ([]db.OperationRecord, error)
	Ping(ctx context.Context) error
}

// NewServerParams holds parameters for NewServer.
type NewServerParams struct {
	Config *config.Config
	Root   *design.Component
	// Journal is optional; nil disables journaling.
	Journal Journal
	// Publisher is optional; nil publishes nothing.
	Publisher events.EventPublisher
}

// Server is the cad-bridge orchestrator.
type Server struct {
	cfg       *config.Config
	loop      *host.MainLoop
	bridge    *bridge.Bridge
	entities  *entity.Registry
	journal   Journal
	publisher events.EventPublisher
	metrics   *prometheus.Registry
	sem       *semaphore.Weighted
	inflight  sync.WaitGroup

	mu         sync.Mutex
	subs       []*comms.Subscription
	httpServer *http.Server
	loopCancel context.CancelFunc
	stopOnce   sync.Once
}

// NewServer wires the host main loop, the bridge and the operation handlers.
// Nothing runs until Start.
func NewServer(params NewServerParams) (*Server, error) {
	cfg := params.Config
	if cfg == nil {
		return nil, fmt.Errorf("%s - config is required", logPrefix)
	}
	if params.Root == nil {
		return nil, fmt.Errorf("%s - design root is required", logPrefix)
	}

	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	loop := host.NewMainLoop()
	b := bridge.NewBridge(bridge.NewBridgeParams{
		Host: loop,
		Config: bridge.Config{
			WakeInterval:   cfg.WakeInterval,
			DefaultTimeout: cfg.RequestTimeout,
		},
		Metrics: bridge.NewMetrics(metrics),
	})

	entities := entity.NewRegistry()
	if _, err := ops.Register(b, ops.Deps{Registry: entities, Root: params.Root}); err != nil {
		return nil, fmt.Errorf("%s - failed to register operations: %w", logPrefix, err)
	}

	publisher := params.Publisher
	if publisher == nil {
		publisher = &events.NoOpPublisher{}
	}

	limit := cfg.MaxConcurrentRequests
	if limit <= 0 {
		limit = 1
	}

	return &Server{
		cfg:       cfg,
		loop:      loop,
		bridge:    b,
		entities:  entities,
		journal:   params.Journal,
		publisher: publisher,
		metrics:   metrics,
		sem:       semaphore.NewWeighted(limit),
	}, nil
}

// Start runs the host main loop, starts the bridge and registers the design's
// entities with an initial refresh_entities round trip.
func (s *Server) Start(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.loopCancel = cancel
	s.mu.Unlock()

	go func() {
		if err := s.loop.Run(loopCtx); err != nil {
			slog.Error(fmt.Sprintf("%s - host main loop: %v", logPrefix, err))
		}
	}()

	if err := s.bridge.Start(); err != nil {
		s.Shutdown(ctx)
		return fmt.Errorf("%s - failed to start bridge: %w", logPrefix, err)
	}

	refresh := s.bridge.IssueAndWait(ctx, ops.OpRefreshEntities, nil, s.cfg.RequestTimeout)
	if !refresh.Success {
		s.Shutdown(ctx)
		return fmt.Errorf("%s - initial entity refresh failed: %s", logPrefix, refresh.Error)
	}
	if stats, ok := refresh.Result.(entity.RefreshStats); ok {
		slog.Info(fmt.Sprintf("%s - Registered design entities: %d components, %d bodies, %d sketches, %d features",
			logPrefix, stats.Components, stats.Bodies, stats.Sketches, stats.Features))
	}
	return nil
}

// Subscribe serves operation requests arriving on subject.
func (s *Server) Subscribe(nc *comms.Conn, subject string) error {
	sub, err := nc.Subscribe(subject, func(msg *comms.Msg) {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.handleMessage(msg)
		}()
	})
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, subject, err)
	}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, subject))
	return nil
}

// StartHTTP serves the HTTP endpoints on addr in the background.
func (s *Server) StartHTTP(addr string) {
	srv := &http.Server{Addr: addr, Handler: s.routes()}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, addr))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()
}

// Shutdown stops accepting requests, waits for in-flight requesters, then
// stops the bridge and the host main loop. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		subs := s.subs
		srv := s.httpServer
		cancel := s.loopCancel
		s.mu.Unlock()

		for _, sub := range subs {
			if err := sub.Unsubscribe(); err != nil {
				slog.Warn(fmt.Sprintf("%s - unsubscribe %s: %v", logPrefix, sub.Subject, err))
			}
		}
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				slog.Warn(fmt.Sprintf("%s - HTTP shutdown: %v", logPrefix, err))
			}
		}
		s.inflight.Wait()

		s.bridge.Stop()
		s.loop.Shutdown()
		if cancel != nil {
			cancel()
		}
		slog.Info(fmt.Sprintf("%s - Bridge stopped", logPrefix))
	})
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	setupLogging(cfg.LogLevel)
	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting cad-bridge", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Load the design the host starts with
	seed, err := bootstrap.LoadDesignSeed(cfg.DesignFile)
	if err != nil {
		return fmt.Errorf("%s - failed to load design seed: %w", logPrefix, err)
	}
	root, err := bootstrap.BuildDesign(seed)
	if err != nil {
		return fmt.Errorf("%s - failed to build design: %w", logPrefix, err)
	}

	// Step 2: Connect to NATS
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
	}
	defer nc.Drain()
	slog.Info(fmt.Sprintf("%s - Connected to NATS at %s", logPrefix, cfg.COMMSURL))

	// Step 3: Optional operation journal
	var journal Journal
	if cfg.JournalEnabled() {
		pool, err := openJournalPool(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		journal = db.NewJournal(pool)
	} else {
		slog.Info(fmt.Sprintf("%s - DATABASE_URL not set, operation journal disabled", logPrefix))
	}

	// Step 4: Event publisher
	var publisher events.EventPublisher = &events.NoOpPublisher{}
	if cfg.PublishEvents {
		publisher = events.NewCommsPublisher(nc, &events.CommsPublisherOpts{EventSubject: cfg.EventSubject})
	}

	// Step 5: Bridge, host loop and handlers
	s, err := NewServer(NewServerParams{
		Config:    cfg,
		Root:      root,
		Journal:   journal,
		Publisher: publisher,
	})
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Shutdown(ctx)

	// Step 6: Transports
	subject := cfg.OperationSubject
	if subject == "" {
		subject = commsutil.SubjectOperations
	}
	if err := s.Subscribe(nc, subject); err != nil {
		return err
	}
	s.StartHTTP(cfg.HTTPListenAddr())

	slog.Info(fmt.Sprintf("%s - cad-bridge is ready", logPrefix))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))
	return nil
}

func openJournalPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	if cfg.RunMigrations {
		files, err := db.LoadMigrationFiles(cfg.MigrationPath)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(ctx, pool, files); err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
	}
	return pool, nil
}

func setupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}
