// Package app wires the vault runtime: storage, the bank and monitor, the
// location registry, the health endpoint, and the background tickers.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/starvault/internal/vault/audit"
	"github.com/louisbranch/starvault/internal/vault/locations"
	"github.com/louisbranch/starvault/internal/vault/service"
	vaultsqlite "github.com/louisbranch/starvault/internal/vault/storage/sqlite"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// RuntimeConfig controls vault startup and background loop cadence.
type RuntimeConfig struct {
	Port             int
	DBPath           string
	Bank             service.Config
	DrainInterval    time.Duration
	EvaluateInterval time.Duration
	RateLimitWindow  time.Duration
}

// Deps are the world-engine collaborators. Holdings and Positions come from
// whatever hosts the bank; a runtime without them still serves the ledger,
// monitor, and admin surface, but cannot move physical assets, so the
// coordinators and the queue drain stay disabled.
type Deps struct {
	Holdings  service.HoldingsProvider
	Positions locations.PositionProvider
	Notifier  service.Notifier
}

const (
	defaultVaultPort = 8090
	defaultVaultDB   = "data/starvault.db"

	defaultDrainInterval    = time.Minute
	defaultEvaluateInterval = 5 * time.Minute
	defaultRateLimitWindow  = time.Hour
)

// Runtime is a wired vault instance. The bank and monitor are exposed so the
// hosting process can serve agent commands in-process.
type Runtime struct {
	cfg      RuntimeConfig
	store    *vaultsqlite.Store
	registry *locations.Registry
	bank     *service.Bank
	monitor  *service.Monitor
}

// New opens storage and wires a runtime. Callers own Close.
func New(ctx context.Context, cfg RuntimeConfig, deps Deps) (*Runtime, error) {
	if cfg.Port <= 0 {
		cfg.Port = defaultVaultPort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultVaultDB
	}
	if cfg.Bank.UnitsPerCurrency == 0 && cfg.Bank.Denominations == nil {
		cfg.Bank = service.DefaultConfig()
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = defaultDrainInterval
	}
	if cfg.EvaluateInterval <= 0 {
		cfg.EvaluateInterval = defaultEvaluateInterval
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = defaultRateLimitWindow
	}
	if err := cfg.Bank.Validate(); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create vault storage dir: %w", err)
		}
	}
	store, err := vaultsqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open vault sqlite store: %w", err)
	}

	registry := locations.NewRegistry(store)
	if err := registry.Load(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load vault locations: %w", err)
	}

	runtime := &Runtime{
		cfg:      cfg,
		store:    store,
		registry: registry,
		monitor:  service.NewMonitor(store, store, cfg.Bank, deps.Notifier),
	}

	if deps.Holdings != nil && deps.Positions != nil {
		bank, err := service.NewBank(cfg.Bank, service.BankDeps{
			Ledger:    store,
			Reserve:   store,
			Queue:     store,
			Holdings:  deps.Holdings,
			Locations: &locations.AgentQualifier{Registry: registry, Positions: deps.Positions},
			Audit:     audit.NewEmitter(store),
			Notifier:  deps.Notifier,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		runtime.bank = bank
	} else {
		log.Printf("vault runtime started without a holdings provider; deposits, withdrawals, and the queue drain are disabled")
	}

	return runtime, nil
}

// Bank returns the wired bank, or nil when the runtime has no holdings
// provider.
func (r *Runtime) Bank() *service.Bank {
	return r.bank
}

// Monitor returns the reserve ratio monitor.
func (r *Runtime) Monitor() *service.Monitor {
	return r.monitor
}

// Locations returns the vault location registry.
func (r *Runtime) Locations() *locations.Registry {
	return r.registry
}

// Store returns the vault store for audit reads and admin tooling.
func (r *Runtime) Store() *vaultsqlite.Store {
	return r.store
}

// Close releases the runtime's storage.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	return r.store.Close()
}

// Run serves the health endpoint and drives the background schedule until
// ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on vault port %d: %w", r.cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("starvault.bank", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("vault server listening at %v", listener.Addr())
	return r.loop(ctx)
}

// loop runs the periodic schedule: queue drain, ratio evaluation, and the
// rate-limit window reset. Ticks are at-least-once; the drain drops
// overlapping passes itself and evaluation is idempotent.
func (r *Runtime) loop(ctx context.Context) error {
	drain := time.NewTicker(r.cfg.DrainInterval)
	defer drain.Stop()
	evaluate := time.NewTicker(r.cfg.EvaluateInterval)
	defer evaluate.Stop()
	reset := time.NewTicker(r.cfg.RateLimitWindow)
	defer reset.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-drain.C:
			if r.bank == nil {
				continue
			}
			if err := r.bank.DrainQueue(ctx); err != nil {
				log.Printf("drain withdrawal queue: %v", err)
			}
		case <-evaluate.C:
			if err := r.monitor.Evaluate(ctx); err != nil {
				log.Printf("evaluate reserve ratio: %v", err)
			}
		case <-reset.C:
			if r.bank == nil {
				continue
			}
			r.bank.ResetRateLimits()
		}
	}
}

// Run wires a runtime and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg RuntimeConfig, deps Deps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runtime, err := New(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := runtime.Close(); closeErr != nil {
			log.Printf("close vault store: %v", closeErr)
		}
	}()
	return runtime.Run(ctx)
}
