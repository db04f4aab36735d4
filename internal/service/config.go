package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"proxy-config-guard/internal/metrics"
	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/ratelimit"
	"proxy-config-guard/internal/repository"
	"proxy-config-guard/internal/validator"
)

// MutationResult accompanies every successful change
type MutationResult struct {
	BackupID string
	Warnings []string
	Quota    ratelimit.Quota
}

// ConfigServiceDeps wires the collaborators of ConfigService
type ConfigServiceDeps struct {
	Store           *repository.ConfigStore
	Backups         *BackupService
	Certificates    *CertificateService
	Audit           *AuditService
	Reload          *ReloadService
	Limiter         *ratelimit.SlidingWindow
	Metrics         *metrics.Metrics
	RoutesFile      string
	MiddlewaresFile string
	DefaultResolver string
}

// ConfigService serializes every change to the configuration tree behind one lock.
// Reads are served from the last loaded state without locking.
type ConfigService struct {
	store           *repository.ConfigStore
	backups         *BackupService
	certs           *CertificateService
	audit           *AuditService
	reload          *ReloadService
	limiter         *ratelimit.SlidingWindow
	metrics         *metrics.Metrics
	routesFile      string
	middlewaresFile string
	defaultResolver string

	mu    sync.Mutex
	state atomic.Pointer[model.ConfigState]
}

// NewConfigService loads the current configuration. Malformed files are skipped;
// only an unreadable directory is an error.
func NewConfigService(deps ConfigServiceDeps) (*ConfigService, error) {
	s := &ConfigService{
		store:           deps.Store,
		backups:         deps.Backups,
		certs:           deps.Certificates,
		audit:           deps.Audit,
		reload:          deps.Reload,
		limiter:         deps.Limiter,
		metrics:         deps.Metrics,
		routesFile:      deps.RoutesFile,
		middlewaresFile: deps.MiddlewaresFile,
		defaultResolver: deps.DefaultResolver,
	}
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// State returns the last loaded state
func (s *ConfigService) State() *model.ConfigState {
	return s.state.Load()
}

// Refresh reloads the state from disk, used when files change outside the API
func (s *ConfigService) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.refreshLocked()
	return err
}

func (s *ConfigService) refreshLocked() (*model.ConfigState, error) {
	state, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	s.state.Store(state)
	s.metrics.SetState(state)
	return state, nil
}

// Quota reports the actor's change budget without consuming it
func (s *ConfigService) Quota(actor model.Actor) ratelimit.Quota {
	return s.limiter.Peek(actor.ID)
}

// plan is a validated change waiting for its backup
type plan struct {
	warnings []string
	detail   string
	write    func() error
}

type mutation struct {
	actor      model.Actor
	operation  string
	entityType string
	entityName string
	prepare    func(state *model.ConfigState) (*plan, error)
}

// mutate runs the change pipeline: lock, validate, throttle, back up, write, audit.
// Any failure after the backup re-applies it before the lock is released.
func (s *ConfigService) mutate(ctx context.Context, m mutation) (*MutationResult, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	outcome := model.AuditOutcomeFailure
	defer func() {
		s.metrics.ObserveMutation(m.entityType, m.operation, outcome, time.Since(start))
	}()

	state, err := s.refreshLocked()
	if err != nil {
		return nil, err
	}

	p, err := m.prepare(state)
	if err != nil {
		s.recordFailure(ctx, m, "", err)
		return nil, err
	}

	quota := s.limiter.Allow(m.actor.ID)
	if !quota.Allowed {
		s.metrics.Throttled()
		err := &model.RateLimitError{Limit: quota.Limit, RetryAfter: quota.RetryAfter}
		s.recordFailure(ctx, m, "", err)
		return nil, err
	}

	backup, err := s.backups.Create(ctx, model.BackupKindPreMutation, fmt.Sprintf("%s %s %s", m.operation, m.entityType, m.entityName))
	s.metrics.BackupTaken(model.BackupKindPreMutation, err)
	if err != nil {
		log.Printf("[ConfigService] Backup before %s %s '%s' failed: %v", m.operation, m.entityType, m.entityName, err)
		berr := &model.BackupError{Err: err}
		s.recordFailure(ctx, m, "", berr)
		return nil, berr
	}

	if err := p.write(); err != nil {
		log.Printf("[ConfigService] Write for %s %s '%s' failed: %v", m.operation, m.entityType, m.entityName, err)
		s.rollbackLocked(backup.ID)
		s.recordFailure(ctx, m, backup.ID, err)
		return nil, err
	}

	_, err = s.audit.Record(ctx, AuditEntry{
		Actor:      m.actor,
		Operation:  m.operation,
		EntityType: m.entityType,
		EntityName: m.entityName,
		BackupID:   backup.ID,
		Outcome:    model.AuditOutcomeSuccess,
		Detail:     p.detail,
	})
	if err != nil {
		log.Printf("[ConfigService] Audit for %s %s '%s' failed, rolling back: %v", m.operation, m.entityType, m.entityName, err)
		s.rollbackLocked(backup.ID)
		return nil, fmt.Errorf("failed to record audit entry: %w", err)
	}

	if _, err := s.refreshLocked(); err != nil {
		log.Printf("[ConfigService] Reload after %s %s '%s' failed: %v", m.operation, m.entityType, m.entityName, err)
	}
	outcome = model.AuditOutcomeSuccess
	log.Printf("[ConfigService] %s %s '%s' by %s (backup %s)", m.operation, m.entityType, m.entityName, m.actor.ID, backup.ID)
	return &MutationResult{BackupID: backup.ID, Warnings: p.warnings, Quota: quota}, nil
}

func (s *ConfigService) rollbackLocked(backupID string) {
	s.metrics.RolledBack()
	if _, err := s.backups.Apply(backupID); err != nil {
		log.Printf("[ERROR] Rollback to backup %s failed: %v", backupID, err)
		return
	}
	log.Printf("[ConfigService] Rolled back to backup %s", backupID)
	if _, err := s.refreshLocked(); err != nil {
		log.Printf("[ConfigService] Reload after rollback failed: %v", err)
	}
}

func (s *ConfigService) recordFailure(ctx context.Context, m mutation, backupID string, cause error) {
	_, err := s.audit.Record(ctx, AuditEntry{
		Actor:      m.actor,
		Operation:  m.operation,
		EntityType: m.entityType,
		EntityName: m.entityName,
		BackupID:   backupID,
		Outcome:    model.AuditOutcomeFailure,
		Detail:     failureDetail(cause),
	})
	if err != nil {
		log.Printf("[ConfigService] Failed to audit rejected %s %s '%s': %v", m.operation, m.entityType, m.entityName, err)
	}
}

// failureDetail keeps audit details free of filesystem paths
func failureDetail(err error) string {
	var (
		validationErr *model.ValidationError
		notFoundErr   *model.NotFoundError
		conflictErr   *model.ConflictError
		rateErr       *model.RateLimitError
		backupErr     *model.BackupError
	)
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Error()
	case errors.As(err, &notFoundErr):
		return notFoundErr.Error()
	case errors.As(err, &conflictErr):
		return conflictErr.Error()
	case errors.As(err, &rateErr):
		return "rate limited"
	case errors.As(err, &backupErr):
		return "backup failed"
	}
	return "internal error"
}

// loadDocument reads a document for editing; an unparseable file cannot be edited
func (s *ConfigService) loadDocument(file string) (*repository.Document, error) {
	doc, err := s.store.ReadDocument(file)
	if err != nil {
		log.Printf("[ConfigService] Cannot edit %s: %v", file, err)
		return nil, &model.ValidationError{Errors: []model.FieldError{
			{Field: "source_file", Message: fmt.Sprintf("%s cannot be parsed and must be fixed before it can be edited", file)},
		}}
	}
	return doc, nil
}

// Routes

func (s *ConfigService) ListRoutes() []model.Route {
	return s.State().RouteList()
}

func (s *ConfigService) GetRoute(name string) (*model.Route, error) {
	route, ok := s.State().Routes[name]
	if !ok {
		return nil, &model.NotFoundError{Kind: "Route", Name: name}
	}
	return &route, nil
}

func (s *ConfigService) CreateRoute(ctx context.Context, actor model.Actor, req model.CreateRouteRequest) (*model.Route, *MutationResult, error) {
	route := req.ToRoute(s.defaultResolver)
	route.SourceFile = s.routesFile

	res, err := s.mutate(ctx, mutation{
		actor:      actor,
		operation:  model.AuditOpCreate,
		entityType: model.EntityRoute,
		entityName: route.Name,
		prepare: func(state *model.ConfigState) (*plan, error) {
			warnings, err := validator.ValidateRouteCreate(route, state)
			if err != nil {
				return nil, err
			}
			doc, err := s.loadDocument(route.SourceFile)
			if err != nil {
				return nil, err
			}
			s.store.PutRoute(doc, route)
			return &plan{
				warnings: warnings,
				detail:   "rule " + route.Rule,
				write:    func() error { return s.store.WriteDocument(route.SourceFile, doc) },
			}, nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return s.storedRoute(route), res, nil
}

func (s *ConfigService) UpdateRoute(ctx context.Context, actor model.Actor, name string, req model.UpdateRouteRequest) (*model.Route, *MutationResult, error) {
	var updated model.Route
	res, err := s.mutate(ctx, mutation{
		actor:      actor,
		operation:  model.AuditOpUpdate,
		entityType: model.EntityRoute,
		entityName: name,
		prepare: func(state *model.ConfigState) (*plan, error) {
			existing, ok := state.Routes[name]
			if !ok {
				return nil, &model.NotFoundError{Kind: "Route", Name: name}
			}
			updated = req.Apply(existing)
			if updated.TLSEnabled && updated.CertResolver == "" {
				updated.CertResolver = s.defaultResolver
			}
			warnings, err := validator.ValidateRouteUpdate(name, updated, state)
			if err != nil {
				return nil, err
			}
			doc, err := s.loadDocument(existing.SourceFile)
			if err != nil {
				return nil, err
			}
			s.store.PutRoute(doc, updated)
			return &plan{
				warnings: warnings,
				write:    func() error { return s.store.WriteDocument(existing.SourceFile, doc) },
			}, nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return s.storedRoute(updated), res, nil
}

func (s *ConfigService) DeleteRoute(ctx context.Context, actor model.Actor, name string) (*MutationResult, error) {
	return s.mutate(ctx, mutation{
		actor:      actor,
		operation:  model.AuditOpDelete,
		entityType: model.EntityRoute,
		entityName: name,
		prepare: func(state *model.ConfigState) (*plan, error) {
			if err := validator.ValidateRouteDelete(name, state); err != nil {
				return nil, err
			}
			file := state.Routes[name].SourceFile
			doc, err := s.loadDocument(file)
			if err != nil {
				return nil, err
			}
			s.store.DeleteRoute(doc, name)
			return &plan{write: func() error { return s.store.WriteDocument(file, doc) }}, nil
		},
	})
}

// storedRoute returns the route as reloaded from disk, falling back to the written value
func (s *ConfigService) storedRoute(route model.Route) *model.Route {
	if stored, ok := s.State().Routes[route.Name]; ok {
		return &stored
	}
	return &route
}

// Middleware

func (s *ConfigService) ListMiddlewares() []model.Middleware {
	return s.State().MiddlewareList()
}

func (s *ConfigService) GetMiddleware(name string) (*model.Middleware, error) {
	m, ok := s.State().Middlewares[name]
	if !ok {
		return nil, &model.NotFoundError{Kind: "Middleware", Name: name}
	}
	return &m, nil
}

func (s *ConfigService) CreateMiddleware(ctx context.Context, actor model.Actor, req model.CreateMiddlewareRequest) (*model.Middleware, *MutationResult, error) {
	var created model.Middleware
	res, err := s.mutate(ctx, mutation{
		actor:      actor,
		operation:  model.AuditOpCreate,
		entityType: model.EntityMiddleware,
		entityName: req.Name,
		prepare: func(state *model.ConfigState) (*plan, error) {
			m, err := validator.ValidateMiddlewareCreate(req, state)
			if err != nil {
				return nil, err
			}
			m.SourceFile = s.middlewaresFile
			doc, err := s.loadDocument(m.SourceFile)
			if err != nil {
				return nil, err
			}
			if err := s.store.PutMiddleware(doc, m); err != nil {
				return nil, err
			}
			created = m
			return &plan{
				detail: "type " + string(m.Type),
				write:  func() error { return s.store.WriteDocument(m.SourceFile, doc) },
			}, nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return s.storedMiddleware(created), res, nil
}

func (s *ConfigService) UpdateMiddleware(ctx context.Context, actor model.Actor, name string, req model.UpdateMiddlewareRequest) (*model.Middleware, *MutationResult, error) {
	var updated model.Middleware
	res, err := s.mutate(ctx, mutation{
		actor:      actor,
		operation:  model.AuditOpUpdate,
		entityType: model.EntityMiddleware,
		entityName: name,
		prepare: func(state *model.ConfigState) (*plan, error) {
			m, err := validator.ValidateMiddlewareUpdate(name, req, state)
			if err != nil {
				return nil, err
			}
			doc, err := s.loadDocument(m.SourceFile)
			if err != nil {
				return nil, err
			}
			if err := s.store.PutMiddleware(doc, m); err != nil {
				return nil, err
			}
			updated = m
			return &plan{
				detail: "type " + string(m.Type),
				write:  func() error { return s.store.WriteDocument(m.SourceFile, doc) },
			}, nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return s.storedMiddleware(updated), res, nil
}

func (s *ConfigService) DeleteMiddleware(ctx context.Context, actor model.Actor, name string) (*MutationResult, error) {
	return s.mutate(ctx, mutation{
		actor:      actor,
		operation:  model.AuditOpDelete,
		entityType: model.EntityMiddleware,
		entityName: name,
		prepare: func(state *model.ConfigState) (*plan, error) {
			warnings, err := validator.ValidateMiddlewareDelete(name, state)
			if err != nil {
				return nil, err
			}
			file := state.Middlewares[name].SourceFile
			doc, err := s.loadDocument(file)
			if err != nil {
				return nil, err
			}
			s.store.DeleteMiddleware(doc, name)
			return &plan{
				warnings: warnings,
				write:    func() error { return s.store.WriteDocument(file, doc) },
			}, nil
		},
	})
}

func (s *ConfigService) storedMiddleware(m model.Middleware) *model.Middleware {
	if stored, ok := s.State().Middlewares[m.Name]; ok {
		return &stored
	}
	return &m
}

// Services

func (s *ConfigService) ListServices() []model.Service {
	return s.State().ServiceList()
}

// Certificates

func (s *ConfigService) ListCertificates() (*model.CertificateListResponse, error) {
	return s.certs.List()
}

func (s *ConfigService) RequestCertificate(ctx context.Context, actor model.Actor, req model.CreateCertificateRequest) (*model.Certificate, *MutationResult, error) {
	var cert *model.Certificate
	res, err := s.mutate(ctx, mutation{
		actor:      actor,
		operation:  model.AuditOpRequest,
		entityType: model.EntityCertificate,
		entityName: canonicalDomain(req.Domain),
		prepare: func(state *model.ConfigState) (*plan, error) {
			entry, err := s.certs.PrepareRequest(req, actor.ID)
			if err != nil {
				return nil, err
			}
			return &plan{
				detail: "resolver " + entry.Resolver,
				write: func() error {
					var err error
					cert, err = s.certs.Record(entry)
					return err
				},
			}, nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return cert, res, nil
}

func (s *ConfigService) RevokeCertificate(ctx context.Context, actor model.Actor, domain string) (*MutationResult, error) {
	return s.mutate(ctx, mutation{
		actor:      actor,
		operation:  model.AuditOpRevoke,
		entityType: model.EntityCertificate,
		entityName: canonicalDomain(domain),
		prepare: func(state *model.ConfigState) (*plan, error) {
			if err := s.certs.CheckRevoke(domain); err != nil {
				return nil, err
			}
			return &plan{write: func() error { return s.certs.Revoke(domain) }}, nil
		},
	})
}

// Whole configuration

// GetConfig returns the raw documents together with the parsed entities
// GetConfig serves the documents captured by the last load, so it agrees with the
// entity lists even while a file is being rewritten
func (s *ConfigService) GetConfig() (*model.ConfigView, error) {
	state := s.State()
	files := make(map[string]string, len(state.Raw))
	for name, text := range state.Raw {
		files[name] = text
	}
	return &model.ConfigView{
		Files:        files,
		Routes:       state.RouteList(),
		Middlewares:  state.MiddlewareList(),
		Services:     state.ServiceList(),
		SkippedFiles: state.SkippedFiles,
	}, nil
}

// ValidateConfig dry-runs a complete set of documents
func (s *ConfigService) ValidateConfig(doc model.ConfigDocument) model.ValidationReport {
	report := model.ValidationReport{Errors: []model.FieldError{}, Warnings: []string{}}
	if len(doc.Files) == 0 {
		report.Errors = append(report.Errors, model.FieldError{Field: "files", Message: "must contain at least one document"})
		return report
	}
	state, parseErrs := s.store.StateFromFiles(doc.Files)
	report.Errors = append(report.Errors, parseErrs...)
	res := validator.ValidateState(state)
	report.Errors = append(report.Errors, res.Errors...)
	report.Warnings = append(report.Warnings, res.Warnings...)
	report.Valid = len(report.Errors) == 0
	return report
}

// ReplaceConfig swaps the whole dynamic directory for doc. Files not in doc are removed.
func (s *ConfigService) ReplaceConfig(ctx context.Context, actor model.Actor, doc model.ConfigDocument) (*MutationResult, error) {
	names := make([]string, 0, len(doc.Files))
	for name := range doc.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	return s.mutate(ctx, mutation{
		actor:      actor,
		operation:  model.AuditOpReplace,
		entityType: model.EntityConfig,
		entityName: "dynamic",
		prepare: func(state *model.ConfigState) (*plan, error) {
			report := s.ValidateConfig(doc)
			if !report.Valid {
				return nil, &model.ValidationError{Errors: report.Errors, Warnings: report.Warnings}
			}
			existing, err := s.store.Files()
			if err != nil {
				return nil, err
			}
			return &plan{
				warnings: report.Warnings,
				detail:   fmt.Sprintf("%d files", len(names)),
				write: func() error {
					for _, name := range names {
						if err := s.store.WriteFile(name, []byte(doc.Files[name])); err != nil {
							return err
						}
					}
					for _, name := range existing {
						if _, keep := doc.Files[name]; keep {
							continue
						}
						if err := s.store.RemoveFile(name); err != nil {
							return err
						}
					}
					return nil
				},
			}, nil
		},
	})
}

// Summary reports counts across the configuration, certificates and backups
func (s *ConfigService) Summary() *model.ConfigSummary {
	state := s.State()
	summary := &model.ConfigSummary{
		Routes:            len(state.Routes),
		Middlewares:       len(state.Middlewares),
		MiddlewaresByType: map[string]int{},
		Services:          len(state.Services),
		Files:             len(state.Files),
		SkippedFiles:      state.SkippedFiles,
		Certificates:      map[string]int{},
		Backups:           s.backups.Stats(),
		LoadedAt:          state.LoadedAt,
	}
	for _, r := range state.Routes {
		if r.TLSEnabled {
			summary.TLSRoutes++
		}
	}
	for _, m := range state.Middlewares {
		summary.MiddlewaresByType[string(m.Type)]++
	}
	if certs, err := s.certs.List(); err != nil {
		log.Printf("[ConfigService] Failed to list certificates for summary: %v", err)
	} else {
		summary.Certificates = certs.Counts
		summary.CertificatesExpiringSoon = s.certs.ExpiringSoon(certs, ExpiringSoonWindow)
	}
	return summary
}

// Backups

// CreateBackup takes a manual snapshot under the write lock so it never observes a
// half-applied change
func (s *ConfigService) CreateBackup(ctx context.Context, actor model.Actor, description string) (*model.Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup, err := s.backups.Create(ctx, model.BackupKindManual, description)
	s.metrics.BackupTaken(model.BackupKindManual, err)
	if err != nil {
		log.Printf("[ConfigService] Manual backup failed: %v", err)
		return nil, &model.BackupError{Err: err}
	}
	if _, err := s.audit.Record(ctx, AuditEntry{
		Actor:      actor,
		Operation:  model.AuditOpBackup,
		EntityType: model.EntityBackup,
		EntityName: backup.ID,
		BackupID:   backup.ID,
		Detail:     description,
	}); err != nil {
		log.Printf("[ConfigService] Failed to audit backup %s: %v", backup.ID, err)
	}
	return backup, nil
}

// ScheduledBackup takes an unattended snapshot
func (s *ConfigService) ScheduledBackup(ctx context.Context) (*model.Backup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup, err := s.backups.Create(ctx, model.BackupKindScheduled, "scheduled")
	s.metrics.BackupTaken(model.BackupKindScheduled, err)
	return backup, err
}

func (s *ConfigService) ListBackups() ([]model.Backup, error) {
	return s.backups.List()
}

// PruneBackups applies the retention policy under the write lock
func (s *ConfigService) PruneBackups(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backups.Prune(ctx)
}

// Restore replaces the configuration tree with a backup. It shares the write lock
// and the change budget with every other mutation, and takes a safety backup first.
func (s *ConfigService) Restore(ctx context.Context, actor model.Actor, id string) (*model.RestoreResult, *MutationResult, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	m := mutation{actor: actor, operation: model.AuditOpRestore, entityType: model.EntityBackup, entityName: id}
	outcome := model.AuditOutcomeFailure
	defer func() {
		s.metrics.ObserveMutation(m.entityType, m.operation, outcome, time.Since(start))
	}()

	if _, err := s.backups.Get(id); err != nil {
		s.recordFailure(ctx, m, "", err)
		return nil, nil, err
	}

	quota := s.limiter.Allow(actor.ID)
	if !quota.Allowed {
		s.metrics.Throttled()
		err := &model.RateLimitError{Limit: quota.Limit, RetryAfter: quota.RetryAfter}
		s.recordFailure(ctx, m, "", err)
		return nil, nil, err
	}

	result, err := s.backups.Restore(ctx, id)
	if err != nil {
		var berr *model.BackupError
		if errors.As(err, &berr) {
			s.metrics.BackupTaken(model.BackupKindSafety, err)
		}
		if _, rerr := s.refreshLocked(); rerr != nil {
			log.Printf("[ConfigService] Reload after failed restore: %v", rerr)
		}
		s.recordFailure(ctx, m, "", err)
		return nil, nil, err
	}
	s.metrics.BackupTaken(model.BackupKindSafety, nil)

	if _, err := s.audit.Record(ctx, AuditEntry{
		Actor:      actor,
		Operation:  model.AuditOpRestore,
		EntityType: model.EntityBackup,
		EntityName: id,
		BackupID:   result.SafetyBackupID,
		Detail:     fmt.Sprintf("%d files restored, %d removed", result.FilesRestored, result.FilesRemoved),
	}); err != nil {
		log.Printf("[ConfigService] Audit for restore of %s failed, rolling back: %v", id, err)
		s.rollbackLocked(result.SafetyBackupID)
		return nil, nil, fmt.Errorf("failed to record audit entry: %w", err)
	}

	if _, err := s.refreshLocked(); err != nil {
		log.Printf("[ConfigService] Reload after restore failed: %v", err)
	}
	if s.reload != nil {
		s.reload.Notify()
	}
	outcome = model.AuditOutcomeSuccess
	return result, &MutationResult{BackupID: result.SafetyBackupID, Quota: quota}, nil
}

// Reload asks the engine to pick up the current files and reports its health
func (s *ConfigService) Reload(ctx context.Context) *model.ReloadResult {
	return s.reload.ForceReload(ctx, s.State().SkippedFiles)
}
