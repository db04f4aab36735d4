package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-config-guard/internal/config"
	"proxy-config-guard/internal/engine"
	"proxy-config-guard/internal/metrics"
	"proxy-config-guard/internal/model"
)

func TestEngineStatus(t *testing.T) {
	skipped := []model.SkippedFile{{File: "broken.yml", Error: "yaml: line 1"}}

	tests := []struct {
		name    string
		probe   engine.ProbeResult
		skipped []model.SkippedFile
		want    string
	}{
		{"not probed", engine.ProbeResult{}, nil, config.StatusOperational},
		{"not probed with skipped files", engine.ProbeResult{}, skipped, config.StatusDegraded},
		{"healthy", engine.ProbeResult{Probed: true, Reachable: true, StatusCode: 200}, nil, config.StatusOperational},
		{"healthy with skipped files", engine.ProbeResult{Probed: true, Reachable: true, StatusCode: 200}, skipped, config.StatusDegraded},
		{"unreachable", engine.ProbeResult{Probed: true}, nil, config.StatusDown},
		{"server error", engine.ProbeResult{Probed: true, Reachable: true, StatusCode: 503}, nil, config.StatusDown},
		{"client error", engine.ProbeResult{Probed: true, Reachable: true, StatusCode: 404}, nil, config.StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engineStatus(tt.probe, tt.skipped))
		})
	}
}

func TestForceReloadProbesEngine(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	var reloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.WriteHeader(int(status.Load()))
		case "/reload":
			reloads.Add(1)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "routes.yml"), []byte("http: {}\n"), 0644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "routes.yml"), past, past))

	svc := NewReloadService(engine.NewManager(dir, srv.URL+"/ping", srv.URL+"/reload"), 0, metrics.New())

	result := svc.ForceReload(context.Background(), nil)
	assert.True(t, result.Committed)
	assert.True(t, result.Probed)
	assert.Equal(t, http.StatusOK, result.HTTPStatus)
	assert.Equal(t, config.StatusOperational, result.EngineStatus)

	if os.Getenv("ENGINE_SKIP_SIGNAL") != "true" {
		assert.Equal(t, int32(1), reloads.Load())
		assert.Equal(t, 1, result.FilesTouched)
		info, err := os.Stat(filepath.Join(dir, "routes.yml"))
		require.NoError(t, err)
		assert.True(t, info.ModTime().After(past))
	}

	status.Store(http.StatusServiceUnavailable)
	result = svc.ForceReload(context.Background(), nil)
	assert.Equal(t, config.StatusDown, result.EngineStatus)
	assert.Equal(t, http.StatusServiceUnavailable, result.HTTPStatus)
}

func TestForceReloadWithoutHealthURL(t *testing.T) {
	svc := NewReloadService(engine.NewManager(t.TempDir(), "", ""), time.Hour, nil)

	result := svc.ForceReload(context.Background(), nil)
	assert.True(t, result.Committed)
	assert.False(t, result.Probed)
	assert.Equal(t, config.StatusOperational, result.EngineStatus)
	assert.Equal(t, "engine health endpoint not configured", result.Detail)
}
