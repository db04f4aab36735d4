package acme_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-config-guard/internal/testutil"
	"proxy-config-guard/pkg/acme"
)

func TestValidateHostname(t *testing.T) {
	tests := []struct {
		name  string
		host  string
		valid bool
	}{
		{"simple", "example.com", true},
		{"subdomain", "api.example.com", true},
		{"wildcard", "*.example.com", true},
		{"trailing dot", "example.com.", true},
		{"empty", "", false},
		{"single label", "localhost", false},
		{"underscore", "my_host.example.com", false},
		{"leading dash", "-bad.example.com", false},
		{"ip address", "10.0.0.1", false},
		{"nested wildcard", "a.*.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := acme.ValidateHostname(tt.host)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStoreRoundTrip(t *testing.T) {
	now := time.Now()
	cert := testutil.SelfSignedEntry(t, []string{"example.com", "www.example.com"}, now.Add(-time.Hour), now.Add(time.Hour))

	store := acme.Store{"le": &acme.ResolverStore{Certificates: []*acme.CertEntry{cert}}}
	data, err := store.Marshal()
	require.NoError(t, err)

	parsed, err := acme.ParseStore(data)
	require.NoError(t, err)
	resolver, entry := parsed.Find("EXAMPLE.com")
	require.NotNil(t, entry)
	assert.Equal(t, "le", resolver)
	assert.Equal(t, []string{"www.example.com"}, entry.Domain.SANs)
	assert.True(t, entry.HasKey())

	leaf, err := entry.ParseLeaf()
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com", "www.example.com"}, leaf.DNSNames)

	assert.Equal(t, 1, parsed.Remove("example.com"))
	_, entry = parsed.Find("example.com")
	assert.Nil(t, entry)
}

func TestParseStoreEmptyAndInvalid(t *testing.T) {
	store, err := acme.ParseStore([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, store)

	store, err = acme.ParseStore([]byte(`{"le": null}`))
	require.NoError(t, err)
	assert.NotNil(t, store["le"])

	_, err = acme.ParseStore([]byte("{"))
	assert.Error(t, err)

	entry := &acme.CertEntry{Certificate: "!!"}
	_, err = entry.ParseLeaf()
	assert.Error(t, err)
	assert.False(t, entry.HasKey())
}
