package repository

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-config-guard/internal/model"
)

var testEntrypoints = EntrypointNames{Plain: "web", Secure: "websecure"}

const routesYAML = `http:
  routers:
    api:
      rule: Host(` + "`api.example.com`" + `)
      service: api
      entryPoints:
        - websecure
      middlewares:
        - rl1
      tls:
        certResolver: le
        options: modern
      observability:
        accessLogs: false
  services:
    api:
      loadBalancer:
        servers:
          - url: http://10.0.0.1:8080
        passHostHeader: true
tcp:
  routers:
    db:
      rule: HostSNI(` + "`*`" + `)
      service: db
`

const middlewaresYAML = `http:
  middlewares:
    rl1:
      rateLimit:
        average: 100
        period: 1m
    chain1:
      chain:
        middlewares:
          - rl1
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestValidFileName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"routes.yml", true},
		{"api-routes.yaml", true},
		{"10_base.yml", true},
		{".hidden.yml", false},
		{"routes.json", false},
		{"../routes.yml", false},
		{"sub/routes.yml", false},
		{"a..b.yml", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidFileName(tt.name))
		})
	}
}

func TestConfigStoreLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "routes.yml", routesYAML)
	writeFile(t, dir, "middlewares.yml", middlewaresYAML)
	writeFile(t, dir, "broken.yml", "http:\n  routers: [unclosed\n")
	writeFile(t, dir, "notes.txt", "ignored")

	store := NewConfigStore(dir, testEntrypoints)
	state, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"middlewares.yml", "routes.yml"}, state.Files)
	require.Len(t, state.SkippedFiles, 1)
	assert.Equal(t, "broken.yml", state.SkippedFiles[0].File)

	route, ok := state.Routes["api"]
	require.True(t, ok)
	assert.Equal(t, []string{model.EntrypointSecure}, route.Entrypoints)
	assert.Equal(t, []string{"rl1"}, route.Middlewares)
	assert.True(t, route.TLSEnabled)
	assert.Equal(t, "le", route.CertResolver)
	assert.Equal(t, "routes.yml", route.SourceFile)

	svc := state.Services["api"]
	assert.Equal(t, []string{"http://10.0.0.1:8080"}, svc.Servers)

	rl := state.Middlewares["rl1"]
	assert.Equal(t, model.MiddlewareRateLimit, rl.Type)
	cfg, ok := rl.Config.(model.RateLimitConfig)
	require.True(t, ok)
	assert.Equal(t, int64(100), *cfg.Average)

	chain := state.Middlewares["chain1"]
	assert.Equal(t, model.MiddlewareCustom, chain.Type)
	assert.Equal(t, "chain", chain.Config.(model.CustomConfig).Kind)
}

func TestConfigStoreLoadMissingDir(t *testing.T) {
	store := NewConfigStore(filepath.Join(t.TempDir(), "absent"), testEntrypoints)
	state, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Routes)
	assert.Empty(t, state.Files)
}

func TestConfigStoreDuplicatesKeepFirst(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yml", "http:\n  routers:\n    api:\n      rule: Host(`a.example.com`)\n      service: a\n")
	writeFile(t, dir, "b.yml", "http:\n  routers:\n    api:\n      rule: Host(`b.example.com`)\n      service: b\n")

	state, err := NewConfigStore(dir, testEntrypoints).Load()
	require.NoError(t, err)
	assert.Equal(t, "a", state.Routes["api"].Service)
	assert.Equal(t, "a.yml", state.Routes["api"].SourceFile)
}

func TestConfigStoreStateFromFiles(t *testing.T) {
	store := NewConfigStore(t.TempDir(), testEntrypoints)
	state, errs := store.StateFromFiles(map[string]string{
		"routes.yml":  routesYAML,
		"dup.yml":     "http:\n  services:\n    api:\n      loadBalancer:\n        servers:\n          - url: http://x\n",
		"bad.yml":     "http: [",
		"../evil.yml": "",
	})

	fields := map[string]string{}
	for _, fe := range errs {
		fields[fe.Field] = fe.Message
	}
	assert.Contains(t, fields["files.bad.yml"], "is not valid YAML")
	assert.Contains(t, fields["files.../evil.yml"], "is not a valid file name")
	assert.Contains(t, fields["files.routes.yml"], "service 'api' is already defined in dup.yml")
	assert.Contains(t, state.Routes, "api")
}

func TestConfigStoreRoundTripPreservesUnmanagedKeys(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "routes.yml", routesYAML)
	store := NewConfigStore(dir, testEntrypoints)

	doc, err := store.ReadDocument("routes.yml")
	require.NoError(t, err)
	store.PutRoute(doc, model.Route{
		Name:         "api",
		Rule:         "Host(`api.example.com`) && PathPrefix(`/v2`)",
		Service:      "api",
		Entrypoints:  []string{model.EntrypointPlain, model.EntrypointSecure},
		Middlewares:  []string{},
		TLSEnabled:   true,
		CertResolver: "le",
	})
	require.NoError(t, store.WriteDocument("routes.yml", doc))

	data, err := os.ReadFile(filepath.Join(dir, "routes.yml"))
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "tcp:")
	assert.Contains(t, text, "HostSNI")
	assert.Contains(t, text, "options: modern")
	assert.Contains(t, text, "accessLogs: false")
	assert.Contains(t, text, "passHostHeader: true")

	state, err := store.Load()
	require.NoError(t, err)
	route := state.Routes["api"]
	assert.Equal(t, []string{model.EntrypointPlain, model.EntrypointSecure}, route.Entrypoints)
	assert.Contains(t, route.Rule, "/v2")
}

func TestConfigStorePutRouteWithoutTLS(t *testing.T) {
	store := NewConfigStore(t.TempDir(), testEntrypoints)
	doc := &Document{}
	store.PutRoute(doc, model.Route{
		Name:        "plain",
		Rule:        "Host(`plain.example.com`)",
		Service:     "api",
		Entrypoints: []string{model.EntrypointPlain},
	})
	spec := doc.HTTP.Routers["plain"]
	require.NotNil(t, spec)
	assert.Nil(t, spec.TLS)
	assert.Equal(t, []string{"web"}, spec.EntryPoints)
}

func TestConfigStorePutMiddleware(t *testing.T) {
	dir := t.TempDir()
	store := NewConfigStore(dir, testEntrypoints)
	avg := int64(10)
	doc := &Document{}
	require.NoError(t, store.PutMiddleware(doc, model.Middleware{
		Name:   "rl2",
		Type:   model.MiddlewareRateLimit,
		Config: model.RateLimitConfig{Average: &avg, Period: "1s"},
	}))
	require.NoError(t, store.WriteDocument("middlewares.yml", doc))

	data, err := os.ReadFile(filepath.Join(dir, "middlewares.yml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "rateLimit:")

	store.DeleteMiddleware(doc, "rl2")
	assert.Empty(t, doc.HTTP.Middlewares)
}

func TestConfigStoreReadDocumentMissingFile(t *testing.T) {
	store := NewConfigStore(t.TempDir(), testEntrypoints)
	doc, err := store.ReadDocument("absent.yml")
	require.NoError(t, err)
	assert.Nil(t, doc.HTTP)

	_, err = store.ReadDocument("../escape.yml")
	assert.Error(t, err)
}

func TestConfigStoreRemoveFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "old.yml", "http: {}\n")
	store := NewConfigStore(dir, testEntrypoints)

	require.NoError(t, store.RemoveFile("old.yml"))
	require.NoError(t, store.RemoveFile("old.yml"))
	_, err := os.Stat(filepath.Join(dir, "old.yml"))
	assert.True(t, os.IsNotExist(err))
}

func TestAtomicWriteFileLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "routes.yml")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	require.NoError(t, AtomicWriteFile(path, []byte("new"), 0640))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "leftover temp file %s", e.Name())
	}
	assert.Len(t, entries, 1)
}

func TestAtomicWriteFileMissingDir(t *testing.T) {
	err := AtomicWriteFile(filepath.Join(t.TempDir(), "absent", "routes.yml"), []byte("x"), 0644)
	assert.Error(t, err)
}
