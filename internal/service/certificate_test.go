package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/testutil"
	"proxy-config-guard/pkg/acme"
)

func seedCertificates(t *testing.T, env *testEnv, now time.Time) {
	t.Helper()
	active := testutil.SelfSignedEntry(t, []string{"active.example.com", "www.active.example.com"}, now.Add(-24*time.Hour), now.Add(10*24*time.Hour))
	expired := testutil.SelfSignedEntry(t, []string{"expired.example.com"}, now.Add(-90*24*time.Hour), now.Add(-time.Hour))
	broken := &acme.CertEntry{Domain: acme.Domain{Main: "broken.example.com"}, Certificate: "bm90IGEgY2VydA=="}

	store := acme.Store{"le": &acme.ResolverStore{Certificates: []*acme.CertEntry{active, expired, broken}}}
	data, err := store.Marshal()
	require.NoError(t, err)
	path := filepath.Join(env.root, "acme", "acme.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0600))

	ledger := env.certs.ledger
	require.NoError(t, ledger.Save(map[string]model.CertificateRequest{
		"new.example.com": {Domain: "new.example.com", Resolver: "le", RequestedAt: now.Add(-10 * time.Minute), RequestedBy: "alice"},
		"old.example.com": {Domain: "old.example.com", Resolver: "le", RequestedAt: now.Add(-2 * time.Hour), RequestedBy: "bob"},
	}))

	env.certs.now = func() time.Time { return now }
}

func TestCertificateStatuses(t *testing.T) {
	env := newTestEnv(t, "")
	now := time.Now().UTC()
	seedCertificates(t, env, now)

	list, err := env.certs.List()
	require.NoError(t, err)
	require.Equal(t, 5, list.Total)

	statuses := map[string]string{}
	for _, c := range list.Data {
		statuses[c.Domain] = c.Status
	}
	assert.Equal(t, map[string]string{
		"active.example.com":  model.CertStatusActive,
		"broken.example.com":  model.CertStatusFailed,
		"expired.example.com": model.CertStatusExpired,
		"new.example.com":     model.CertStatusPending,
		"old.example.com":     model.CertStatusFailed,
	}, statuses)
	assert.Equal(t, map[string]int{
		model.CertStatusActive:  1,
		model.CertStatusPending: 1,
		model.CertStatusExpired: 1,
		model.CertStatusFailed:  2,
	}, list.Counts)

	active := list.Data[0]
	assert.Equal(t, "active.example.com", active.Domain)
	assert.Equal(t, []string{"www.active.example.com"}, active.SANs)
	assert.True(t, active.PrivateKeyPresent)
	require.NotNil(t, active.NotAfter)

	assert.Equal(t, 1, env.certs.ExpiringSoon(list, ExpiringSoonWindow))
	assert.Equal(t, 0, env.certs.ExpiringSoon(list, 24*time.Hour))
}

func TestCertificateStatusesEmptyStore(t *testing.T) {
	env := newTestEnv(t, "")
	list, err := env.certs.List()
	require.NoError(t, err)
	assert.Equal(t, 0, list.Total)
	assert.Empty(t, list.Data)
}

func TestPrepareCertificateRequest(t *testing.T) {
	env := newTestEnv(t, "")
	seedCertificates(t, env, time.Now().UTC())

	tests := []struct {
		name   string
		req    model.CreateCertificateRequest
		fields []string
		err    string
	}{
		{
			name: "active certificate conflicts",
			req:  model.CreateCertificateRequest{Domain: "active.example.com", Email: "ops@example.com"},
			err:  "Certificate 'active.example.com' already exists",
		},
		{
			name: "pending request conflicts",
			req:  model.CreateCertificateRequest{Domain: "New.Example.com", Email: "ops@example.com"},
			err:  "Certificate 'new.example.com' already exists",
		},
		{
			name: "trailing root label is the same host",
			req:  model.CreateCertificateRequest{Domain: "Active.Example.com.", Email: "ops@example.com"},
			err:  "Certificate 'active.example.com' already exists",
		},
		{
			name: "pending request with root label conflicts",
			req:  model.CreateCertificateRequest{Domain: "new.example.com.", Email: "ops@example.com"},
			err:  "Certificate 'new.example.com' already exists",
		},
		{
			name:   "invalid fields",
			req:    model.CreateCertificateRequest{Domain: "localhost", Email: "Ops <ops@example.com>", SANs: []string{"bad_label.example.com"}, Resolver: "le/2"},
			fields: []string{"domain", "email", "sans[0]", "resolver"},
		},
		{
			name:   "email required",
			req:    model.CreateCertificateRequest{Domain: "fresh.example.com"},
			fields: []string{"email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.certs.PrepareRequest(tt.req, "alice")
			require.Error(t, err)
			if tt.err != "" {
				assert.EqualError(t, err, tt.err)
				return
			}
			var verr *model.ValidationError
			require.True(t, errors.As(err, &verr))
			var fields []string
			for _, fe := range verr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Equal(t, tt.fields, fields)
		})
	}

	// Expired and failed certificates may be requested again
	entry, err := env.certs.PrepareRequest(model.CreateCertificateRequest{
		Domain: "expired.example.com",
		Email:  "ops@example.com",
		SANs:   []string{"expired.example.com.", "WWW.expired.example.com", "www.expired.example.com."},
	}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "le", entry.Resolver)
	assert.Equal(t, []string{"www.expired.example.com"}, entry.SANs)

	_, err = env.certs.PrepareRequest(model.CreateCertificateRequest{Domain: "old.example.com", Email: "ops@example.com"}, "alice")
	assert.NoError(t, err)
}

func TestRequestAndRevokeCertificate(t *testing.T) {
	env := newTestEnv(t, "")
	seedCertificates(t, env, time.Now().UTC())
	ctx := context.Background()

	cert, res, err := env.svc.RequestCertificate(ctx, admin, model.CreateCertificateRequest{
		Domain: "shop.example.com",
		Email:  "ops@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, model.CertStatusPending, cert.Status)
	assert.Equal(t, "alice", cert.RequestedBy)
	assert.NotEmpty(t, res.BackupID)
	assert.Equal(t, model.AuditOpRequest, env.sink.last().Operation)

	ledger, err := env.certs.ledger.Load()
	require.NoError(t, err)
	assert.Contains(t, ledger, "shop.example.com")

	_, _, err = env.svc.RequestCertificate(ctx, admin, model.CreateCertificateRequest{
		Domain: "shop.example.com.",
		Email:  "ops@example.com",
	})
	var conflict *model.ConflictError
	require.True(t, errors.As(err, &conflict))
	ledger, err = env.certs.ledger.Load()
	require.NoError(t, err)
	assert.NotContains(t, ledger, "shop.example.com.")

	_, err = env.svc.RevokeCertificate(ctx, admin, "active.example.com")
	require.NoError(t, err)
	store, err := acme.ReadStore(filepath.Join(env.root, "acme", "acme.json"))
	require.NoError(t, err)
	_, entry := store.Find("active.example.com")
	assert.Nil(t, entry)
	_, entry = store.Find("expired.example.com")
	assert.NotNil(t, entry)

	_, err = env.svc.RevokeCertificate(ctx, admin, "Shop.example.com.")
	require.NoError(t, err)
	ledger, err = env.certs.ledger.Load()
	require.NoError(t, err)
	assert.NotContains(t, ledger, "shop.example.com")

	_, err = env.svc.RevokeCertificate(ctx, admin, "unknown.example.com")
	assert.True(t, errors.Is(err, model.ErrNotFound))
}
