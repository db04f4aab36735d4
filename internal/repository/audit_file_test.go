package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-config-guard/internal/model"
)

func TestAuditFileRepositoryAppendAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditFileRepository(filepath.Join(t.TempDir(), "audit", "audit.jsonl"))

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		actor := "alice"
		if i%2 == 1 {
			actor = "bob"
		}
		require.NoError(t, repo.Append(ctx, model.AuditRecord{
			ID:         fmt.Sprintf("rec-%d", i),
			Actor:      actor,
			Role:       model.RoleAdmin,
			Operation:  model.AuditOpCreate,
			EntityType: model.EntityRoute,
			EntityName: fmt.Sprintf("route-%d", i),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			Outcome:    model.AuditOutcomeSuccess,
		}))
	}

	records, total, err := repo.List(ctx, AuditLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, records, 5)
	assert.Equal(t, "rec-4", records[0].ID)
	assert.Equal(t, "rec-0", records[4].ID)

	records, total, err = repo.List(ctx, AuditLogFilter{Actor: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "rec-4", records[0].ID)

	records, total, err = repo.List(ctx, AuditLogFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, records, 2)
	assert.Equal(t, "rec-3", records[0].ID)
	assert.Equal(t, "rec-2", records[1].ID)
}

func TestAuditFileRepositorySkipsCorruptLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	repo := NewAuditFileRepository(path)
	require.NoError(t, repo.Append(ctx, model.AuditRecord{ID: "ok", Operation: model.AuditOpDelete}))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, total, err := repo.List(ctx, AuditLogFilter{Operation: model.AuditOpDelete})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "ok", records[0].ID)
}

func TestAuditFileRepositoryMissingFile(t *testing.T) {
	repo := NewAuditFileRepository(filepath.Join(t.TempDir(), "absent.jsonl"))
	records, total, err := repo.List(context.Background(), AuditLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, records)
}

func TestCertLedgerRoundTrip(t *testing.T) {
	ledger := NewCertLedger(filepath.Join(t.TempDir(), "acme", "requests.json"))

	entries, err := ledger.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	entries["b.example.com"] = model.CertificateRequest{Domain: "b.example.com", Resolver: "le"}
	entries["a.example.com"] = model.CertificateRequest{Domain: "a.example.com", Resolver: "le"}
	require.NoError(t, ledger.Save(entries))

	loaded, err := ledger.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, "le", loaded["a.example.com"].Resolver)
}
