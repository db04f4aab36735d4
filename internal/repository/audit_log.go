package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"proxy-config-guard/internal/model"
)

// AuditLogFilter narrows an audit listing
type AuditLogFilter struct {
	Actor      string
	Operation  string
	EntityType string
	Limit      int
	Offset     int
}

// AuditLogRepository stores audit records in the audit_logs table
type AuditLogRepository struct {
	db *sql.DB
}

func NewAuditLogRepository(db *sql.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Append(ctx context.Context, rec model.AuditRecord) error {
	query := `
		INSERT INTO audit_logs (id, actor, role, operation, entity_type, entity_name,
		                        backup_id, outcome, detail, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Actor, rec.Role, rec.Operation, rec.EntityType, rec.EntityName,
		rec.BackupID, rec.Outcome, rec.Detail, rec.IPAddress, rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

func (r *AuditLogRepository) List(ctx context.Context, filter AuditLogFilter) ([]model.AuditRecord, int, error) {
	var where []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Actor != "" {
		add("actor = $%d", filter.Actor)
	}
	if filter.Operation != "" {
		add("operation = $%d", filter.Operation)
	}
	if filter.EntityType != "" {
		add("entity_type = $%d", filter.EntityType)
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs "+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit records: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT id, actor, role, operation, entity_type, entity_name,
		       backup_id, outcome, detail, ip_address, created_at
		FROM audit_logs
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, clause, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer rows.Close()

	records := []model.AuditRecord{}
	for rows.Next() {
		var rec model.AuditRecord
		if err := rows.Scan(
			&rec.ID, &rec.Actor, &rec.Role, &rec.Operation, &rec.EntityType, &rec.EntityName,
			&rec.BackupID, &rec.Outcome, &rec.Detail, &rec.IPAddress, &rec.Timestamp,
		); err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// Cleanup deletes records older than retentionDays in batches to avoid long-running
// transactions. A non-positive retention keeps everything.
func (r *AuditLogRepository) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	const batchSize = 10000
	var total int64
	for {
		result, err := r.db.ExecContext(ctx, `
			DELETE FROM audit_logs
			WHERE id IN (
				SELECT id FROM audit_logs
				WHERE created_at < NOW() - ($1 || ' days')::INTERVAL
				LIMIT $2
			)
		`, retentionDays, batchSize)
		if err != nil {
			return total, fmt.Errorf("failed to delete old audit records: %w", err)
		}
		deleted, _ := result.RowsAffected()
		total += deleted
		if deleted < batchSize {
			return total, nil
		}
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}
