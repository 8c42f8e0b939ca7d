package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/medrx-safety-engine/internal/api"
	"github.com/medrx-safety-engine/internal/cache"
	"github.com/medrx-safety-engine/internal/conditions"
	"github.com/medrx-safety-engine/internal/config"
	"github.com/medrx-safety-engine/internal/database"
	"github.com/medrx-safety-engine/internal/domain"
	"github.com/medrx-safety-engine/internal/drugbank"
	"github.com/medrx-safety-engine/internal/engine"
	"github.com/medrx-safety-engine/internal/logging"
	"github.com/medrx-safety-engine/internal/registry"
	"github.com/medrx-safety-engine/internal/repository"
	"github.com/medrx-safety-engine/internal/rules"
	"github.com/medrx-safety-engine/internal/unknowns"
	"github.com/medrx-safety-engine/internal/vocab"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := logging.New(cfg.Logging)
	logger.WithField("environment", cfg.Environment).Info("Starting medication safety engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Unknown-drug log.
	unknownStore, err := unknowns.NewSQLiteStore(cfg.Unknowns.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open unknown-drug log")
	}
	defer unknownStore.Close()
	recorder := unknowns.NewRecorder(unknownStore, logger)

	// Knowledge base and condition classifier.
	reporter := vocab.NewReporter(logger)
	drugs, err := drugbank.New(drugbank.DefaultTable(), logger, recorder, reporter)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load drug knowledge base")
	}
	classifier, err := conditions.NewClassifier(conditions.DefaultGroupers(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build condition classifier")
	}

	// Evaluation engine with the full module set.
	eng, err := engine.New(logger, registry.Default(),
		rules.NewRenalDosingModule(drugs, logger),
		rules.NewDrugConditionModule(drugs, classifier, logger),
		rules.NewDrugDrugModule(drugs, logger),
		rules.NewACBBurdenModule(drugs, logger),
		rules.NewCNSPolypharmacyModule(drugs, logger),
		rules.NewToxidromeModule(drugs, logger),
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build evaluation engine")
	}

	opts := api.Options{Unknowns: unknownStore}

	// Optional Postgres audit trail.
	var auditSink domain.AuditSink
	if cfg.Database.Enabled {
		runner, err := database.NewMigrationRunner(cfg.Database.URL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create migration runner")
		}
		if err := runner.Up(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}
		runner.Close()

		db, err := database.NewConnection(ctx, database.Config{
			Host:        cfg.Database.Host,
			Port:        cfg.Database.Port,
			Database:    cfg.Database.Database,
			Username:    cfg.Database.Username,
			Password:    cfg.Database.Password,
			SSLMode:     cfg.Database.SSLMode,
			MaxOpen:     cfg.Database.MaxOpenConns,
			MaxIdle:     cfg.Database.MaxIdleConns,
			MaxConnLife: cfg.Database.ConnMaxLife,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to audit database")
		}
		defer db.Close()
		auditSink = repository.NewAuditRepository(db.SQL, logger)
		opts.Audit = auditSink
	}

	// Optional Redis result cache.
	if cfg.Cache.Enabled {
		resultCache, err := cache.NewResultCache(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to result cache")
		}
		defer resultCache.Close()
		opts.Cache = resultCache
	}

	server := api.NewServer(cfg, logger, eng, opts)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}
