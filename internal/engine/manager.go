package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"proxy-config-guard/internal/config"
)

// ProbeResult is the outcome of one engine health check
type ProbeResult struct {
	Probed     bool
	Reachable  bool
	StatusCode int
	Error      string
}

// Manager signals the external proxy engine. The engine watches the dynamic
// directory itself; this only nudges it and observes its health endpoint.
type Manager struct {
	dynamicDir string
	healthURL  string
	reloadURL  string
	client     *http.Client
	skipSignal bool // ENGINE_SKIP_SIGNAL, for development without an engine
}

func NewManager(dynamicDir, healthURL, reloadURL string) *Manager {
	return &Manager{
		dynamicDir: dynamicDir,
		healthURL:  healthURL,
		reloadURL:  reloadURL,
		client:     &http.Client{Timeout: config.EngineProbeTimeout},
		skipSignal: os.Getenv("ENGINE_SKIP_SIGNAL") == "true",
	}
}

func (m *Manager) HealthURL() string {
	return m.healthURL
}

// Touch bumps the modification time of every dynamic document so a file-watching
// engine re-reads them. It returns the number of files touched.
func (m *Manager) Touch() (int, error) {
	if m.skipSignal {
		return 0, nil
	}
	entries, err := os.ReadDir(m.dynamicDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list dynamic dir: %w", err)
	}
	now := time.Now()
	touched := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml")) {
			continue
		}
		if err := os.Chtimes(filepath.Join(m.dynamicDir, name), now, now); err != nil {
			log.Printf("[Engine] Failed to touch %s: %v", name, err)
			continue
		}
		touched++
	}
	return touched, nil
}

// TriggerReload posts to the engine's reload endpoint when one is configured
func (m *Manager) TriggerReload(ctx context.Context) error {
	if m.skipSignal || m.reloadURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.reloadURL, nil)
	if err != nil {
		return fmt.Errorf("invalid reload URL: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine reload request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode >= 300 {
		return fmt.Errorf("engine reload returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Probe calls the engine's health endpoint once
func (m *Manager) Probe(ctx context.Context) ProbeResult {
	if m.healthURL == "" {
		return ProbeResult{}
	}
	result := ProbeResult{Probed: true}

	ctx, cancel := context.WithTimeout(ctx, config.EngineProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.healthURL, nil)
	if err != nil {
		result.Error = "invalid health URL"
		return result
	}
	resp, err := m.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			result.Error = "health check timed out"
		} else {
			result.Error = "engine unreachable"
		}
		log.Printf("[Engine] Health probe failed: %v", err)
		return result
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	result.Reachable = true
	result.StatusCode = resp.StatusCode
	return result
}
