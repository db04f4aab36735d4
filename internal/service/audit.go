package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/repository"
)

// AuditSink is the append-only destination for audit records
type AuditSink interface {
	Append(ctx context.Context, rec model.AuditRecord) error
	List(ctx context.Context, filter repository.AuditLogFilter) ([]model.AuditRecord, int, error)
}

// AuditEntry describes one audited operation
type AuditEntry struct {
	Actor      model.Actor
	Operation  string
	EntityType string
	EntityName string
	BackupID   string
	Outcome    string
	Detail     string
}

// AuditService stamps and forwards audit records to the configured sink
type AuditService struct {
	sink AuditSink
}

func NewAuditService(sink AuditSink) *AuditService {
	return &AuditService{sink: sink}
}

// Record writes one audit record and returns it
func (s *AuditService) Record(ctx context.Context, e AuditEntry) (model.AuditRecord, error) {
	rec := model.AuditRecord{
		ID:         uuid.NewString(),
		Actor:      e.Actor.ID,
		Role:       e.Actor.Role,
		Operation:  e.Operation,
		EntityType: e.EntityType,
		EntityName: e.EntityName,
		Timestamp:  time.Now().UTC(),
		BackupID:   e.BackupID,
		Outcome:    e.Outcome,
		Detail:     e.Detail,
		IPAddress:  e.Actor.IP,
	}
	if rec.Outcome == "" {
		rec.Outcome = model.AuditOutcomeSuccess
	}
	if s == nil || s.sink == nil {
		return rec, nil
	}
	return rec, s.sink.Append(ctx, rec)
}

// List returns audit records newest first
func (s *AuditService) List(ctx context.Context, filter repository.AuditLogFilter) ([]model.AuditRecord, int, error) {
	if s == nil || s.sink == nil {
		return []model.AuditRecord{}, 0, nil
	}
	return s.sink.List(ctx, filter)
}
