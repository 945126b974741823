// Command server runs the secureann privacy-preserving search service:
// HTTP transport in front of the Search Orchestrator, backed by an
// optional Postgres durable mirror.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/S-Corkum/secureann/internal/config"
	"github.com/S-Corkum/secureann/internal/observability"
	"github.com/S-Corkum/secureann/internal/persistence"
	"github.com/S-Corkum/secureann/internal/search"
	"github.com/S-Corkum/secureann/internal/tenant"
	transporthttp "github.com/S-Corkum/secureann/internal/transport/http"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewLogger("secureann")
	metricsClient := observability.NewPrometheusMetrics("secureann")

	registry, err := tenant.NewRegistry(cfg.Search.HEContextCapacity, logger, metricsClient)
	if err != nil {
		logger.Error("failed to create tenant registry", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	var persister search.Persister
	db, err := sqlx.Connect("postgres", cfg.Database.DSN)
	if err != nil {
		logger.Warn("durable mirror unavailable, running in-memory only", map[string]interface{}{"error": err.Error()})
	} else {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
		defer db.Close()

		store := persistence.New(db, logger)
		persister = store
		recoverTenants(ctx, store, registry, logger)
	}

	orch := search.New(registry, persister, cfg.Search.MaxWorkers, logger, metricsClient)
	handler := transporthttp.NewHandler(orch, cfg.Server.RequestDeadline, logger)

	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handler.Register(router)

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("listening", map[string]interface{}{"address": cfg.Server.ListenAddress})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server exited", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down", nil)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
	}
}

// recoverTenants rebuilds every tenant's in-memory state from the durable
// mirror at startup, after a restart or crash.
func recoverTenants(ctx context.Context, store *persistence.Store, registry *tenant.Registry, logger observability.Logger) {
	ids, err := store.RecoverAll(ctx)
	if err != nil {
		logger.Error("failed to list tenants for recovery", map[string]interface{}{"error": err.Error()})
		return
	}

	for _, id := range ids {
		recovered, err := store.Recover(ctx, id)
		if err != nil {
			logger.Error("failed to recover tenant", map[string]interface{}{"tenant_id": id, "error": err.Error()})
			continue
		}
		st := tenant.NewState(recovered.Tenant, recovered.Planes, recovered.Store, recovered.Index)
		registry.Restore(st)
		logger.Info("recovered tenant", map[string]interface{}{
			"tenant_id": id, "live_embeddings": recovered.Store.LiveCount(),
			"orphan_entries": recovered.OrphanEntries, "corrupt_records": recovered.CorruptRecords,
		})
	}
}
