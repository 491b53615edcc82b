package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"model-serving-service/internal/adapters/primary/http/handlers"
	"model-serving-service/internal/adapters/primary/http/middleware"
	"model-serving-service/internal/adapters/secondary/filesystem"
	"model-serving-service/internal/adapters/secondary/kubernetes"
	"model-serving-service/internal/adapters/secondary/postgres"
	"model-serving-service/internal/adapters/secondary/telemetry"
	"model-serving-service/internal/config"
	"model-serving-service/internal/core/estimator"
	ports "model-serving-service/internal/core/ports/output"
	"model-serving-service/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Telemetry (Optional - based on config)
	reg := prometheus.NewRegistry()
	var metrics ports.PredictionMetrics
	if cfg.Metrics.Enabled {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := telemetry.NewPredictionMetrics(reg)
		if err != nil {
			log.Warnf("metrics init failed (continuing without metrics): %v", err)
		} else {
			metrics = m
			log.Info("prediction metrics initialized")
		}
	} else {
		log.Info("metrics disabled")
	}

	// Secondary Adapter (Output Port - Artifact Store)
	store, closeStore := openArtifactStore(cfg)

	// Core Services (Application Layer)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.Artifacts.LoadTimeout)
	registry := services.LoadModelRegistry(loadCtx, store, estimator.DecodeBundle, slotSpecs(cfg), metrics)
	cancelLoad()
	// Artifacts are read once; the store is not needed after startup.
	closeStore()

	engine := services.NewPredictionEngine(registry, cfg.Model.DecisionThreshold, metrics)

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(engine, registry)

	// Setup router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logging(), gin.Recovery())

	api := router.Group("/api/v1/ml")
	h.RegisterRoutes(api)
	h.RegisterHealth(router)

	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

// openArtifactStore builds the configured store and its release func. On
// failure it returns a nil store, which leaves every slot Unavailable.
func openArtifactStore(cfg *config.Config) (ports.ArtifactStore, func()) {
	noop := func() {}

	switch cfg.Artifacts.Store {
	case config.StorePostgres:
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
		if err != nil {
			log.Warnf("parse db config failed (continuing without models): %v", err)
			return nil, noop
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Artifacts.LoadTimeout)
		defer cancel()

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			log.Warnf("create db pool failed (continuing without models): %v", err)
			return nil, noop
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			log.Warnf("ping db failed (continuing without models): %v", err)
			return nil, noop
		}
		store, err := postgres.NewArtifactRepository(pool, cfg.Database.Table)
		if err != nil {
			pool.Close()
			log.Warnf("artifact repository init failed (continuing without models): %v", err)
			return nil, noop
		}
		log.Info("database connection established")
		return store, pool.Close

	case config.StoreConfigMap:
		store, err := kubernetes.NewConfigMapStore(&cfg.Kubernetes)
		if err != nil {
			log.Warnf("ConfigMap store init failed (continuing without models): %v", err)
			return nil, noop
		}
		log.Info("ConfigMap artifact store initialized")
		return store, noop

	default:
		log.WithField("dir", cfg.Artifacts.Dir).Info("filesystem artifact store initialized")
		return filesystem.NewArtifactStore(cfg.Artifacts.Dir), noop
	}
}

func slotSpecs(cfg *config.Config) []services.SlotSpec {
	specs := services.DefaultSlotSpecs()
	names := []string{cfg.Artifacts.SLAName, cfg.Artifacts.FailureName, cfg.Artifacts.AnomalyName}
	for i := range specs {
		specs[i].Artifact = names[i]
	}
	return specs
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
