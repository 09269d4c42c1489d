package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"preflight/internal/config"
	"preflight/internal/custody"
	"preflight/internal/database"
	"preflight/internal/database/migration"
	"preflight/internal/gate"
	handlers "preflight/internal/http/handler"
	"preflight/internal/http/middleware"
	"preflight/internal/metrics"
	"preflight/internal/model"
	"preflight/internal/otel"
	"preflight/internal/repository"
	"preflight/internal/repository/memory"
	"preflight/internal/repository/postgres"
	"preflight/internal/service"
	"preflight/internal/storage"
)

// @title Preflight API
// @version 1.0
// @description Preflight gate evaluation and idempotent action ledger.
// @BasePath /
func main() {
	cfg := config.Load()
	loc := cfg.Location()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	store, db, err := openStore(ctx, cfg, loc)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	if db != nil {
		defer db.Close()
	}

	policy := custody.DefaultPolicy()
	if cfg.Preflight.PolicyFile != "" {
		if policy, err = custody.LoadPolicyFile(cfg.Preflight.PolicyFile); err != nil {
			log.Fatalf("failed to load custody policy: %v", err)
		}
	}
	disabled, err := parseActions(cfg.Preflight.DisabledActions)
	if err != nil {
		log.Fatalf("invalid PREFLIGHT_DISABLED_ACTIONS: %v", err)
	}

	var objects storage.Storage
	if cfg.MinIO.Enabled() {
		if objects, err = storage.NewMinIO(ctx, cfg.MinIO); err != nil {
			log.Fatalf("failed to initialize object storage: %v", err)
		}
	}

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}

	authz := custody.NewAuthorizer(policy)
	evaluator := gate.NewEvaluator(authz.LegalFor, cfg.Preflight.OCRCodePrefix)
	batchSvc := service.NewBatchService(store, evaluator, m, cfg.Preflight.BatchEvalConcurrency)
	preflightSvc := service.NewPreflightService(store, authz, evaluator, objects, service.Options{
		DisabledActions: disabled,
		Invalidator:     batchSvc,
		Metrics:         m,
		Location:        loc,
		ExportExpiry:    cfg.Preflight.ExportPresignExpiry,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(loc))
	app.Use(otelfiber.Middleware())
	app.Use(promMiddleware.Handler())

	app.Get(middleware.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	handlers.RegisterRoutes(app, db, preflightSvc, batchSvc)

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(sctx); err != nil {
			log.Printf("graceful shutdown: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}

// openStore returns the configured ledger store. db is nil for the memory driver.
func openStore(ctx context.Context, cfg *config.AppConfig, loc *time.Location) (repository.Store, *sql.DB, error) {
	switch cfg.Preflight.StoreDriver {
	case "memory":
		return memory.New().Repositories(), nil, nil
	case "postgres":
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return repository.Store{}, nil, err
		}
		if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
			_ = db.Close()
			return repository.Store{}, nil, err
		}
		return postgres.NewStore(db), db, nil
	default:
		return repository.Store{}, nil, errors.New("PREFLIGHT_STORE must be postgres or memory")
	}
}

func parseActions(names []string) ([]model.ActionType, error) {
	out := make([]model.ActionType, 0, len(names))
	for _, n := range names {
		a, err := model.ParseActionType(n)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
