package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"proxy-config-guard/internal/config"
	"proxy-config-guard/internal/database"
	"proxy-config-guard/internal/engine"
	"proxy-config-guard/internal/metrics"
	"proxy-config-guard/internal/ratelimit"
	"proxy-config-guard/internal/repository"
	"proxy-config-guard/internal/service"
)

// app holds the wired services shared by every command
type app struct {
	cfg       *config.Config
	db        *database.DB
	auditRepo *repository.AuditLogRepository
	metrics   *metrics.Metrics
	store     *repository.ConfigStore
	backups   *service.BackupService
	audit     *service.AuditService
	config    *service.ConfigService
}

func newApp(cfg *config.Config) (*app, error) {
	if err := os.MkdirAll(cfg.DynamicDir, config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create dynamic directory: %w", err)
	}

	a := &app{cfg: cfg, metrics: metrics.New()}

	// Audit sink: Postgres when configured, otherwise an append-only JSON lines file
	var sink service.AuditSink
	if cfg.DatabaseURL != "" {
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.RunMigrations(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Println("Connected to database")
		a.db = db
		a.auditRepo = repository.NewAuditLogRepository(db.DB)
		sink = a.auditRepo
	} else {
		log.Printf("DATABASE_URL not set, writing audit records to %s", cfg.AuditLogPath)
		sink = repository.NewAuditFileRepository(cfg.AuditLogPath)
	}
	a.audit = service.NewAuditService(sink)

	a.store = repository.NewConfigStore(cfg.DynamicDir, repository.EntrypointNames{
		Plain:  cfg.EntrypointPlain,
		Secure: cfg.EntrypointSecure,
	})
	a.backups = service.NewBackupService(cfg.ConfigRoot, cfg.BackupDir, cfg.BackupRetentionCount, cfg.BackupRetentionAge)
	certs := service.NewCertificateService(
		cfg.CertStorePath,
		repository.NewCertLedger(cfg.CertLedgerPath),
		cfg.DefaultResolver,
		cfg.CertPendingTimeout,
	)
	reload := service.NewReloadService(
		engine.NewManager(cfg.DynamicDir, cfg.EngineHealthURL, cfg.EngineReloadURL),
		cfg.EngineSettleDelay,
		a.metrics,
	)

	svc, err := service.NewConfigService(service.ConfigServiceDeps{
		Store:           a.store,
		Backups:         a.backups,
		Certificates:    certs,
		Audit:           a.audit,
		Reload:          reload,
		Limiter:         ratelimit.NewSlidingWindow(cfg.ChangeRateLimit, cfg.ChangeRateWindow),
		Metrics:         a.metrics,
		RoutesFile:      cfg.RoutesFile,
		MiddlewaresFile: cfg.MiddlewaresFile,
		DefaultResolver: cfg.DefaultResolver,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	a.config = svc
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) sqlDB() *sql.DB {
	if a.db == nil {
		return nil
	}
	return a.db.DB
}
