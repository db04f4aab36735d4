package service

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"proxy-config-guard/internal/config"
	"proxy-config-guard/internal/engine"
	"proxy-config-guard/internal/metrics"
	"proxy-config-guard/internal/model"
)

// ReloadService nudges the engine and reports its resulting health. Writes are
// already visible to a file-watching engine; this adds nothing they depend on.
type ReloadService struct {
	engine      *engine.Manager
	settleDelay time.Duration
	metrics     *metrics.Metrics
	group       singleflight.Group
}

func NewReloadService(mgr *engine.Manager, settleDelay time.Duration, m *metrics.Metrics) *ReloadService {
	return &ReloadService{engine: mgr, settleDelay: settleDelay, metrics: m}
}

// Notify touches the dynamic files; failures are only logged
func (s *ReloadService) Notify() {
	if n, err := s.engine.Touch(); err != nil {
		log.Printf("[Reload] Failed to signal engine: %v", err)
	} else if n > 0 {
		log.Printf("[Reload] Touched %d dynamic files", n)
	}
}

// ForceReload signals the engine, waits for it to settle and probes its health.
// Concurrent callers share one in-flight reload.
func (s *ReloadService) ForceReload(ctx context.Context, skipped []model.SkippedFile) *model.ReloadResult {
	v, _, _ := s.group.Do("reload", func() (interface{}, error) {
		return s.reload(ctx, skipped), nil
	})
	return v.(*model.ReloadResult)
}

func (s *ReloadService) reload(ctx context.Context, skipped []model.SkippedFile) *model.ReloadResult {
	result := &model.ReloadResult{Committed: true, SkippedFiles: skipped}

	touched, err := s.engine.Touch()
	if err != nil {
		log.Printf("[Reload] Failed to touch dynamic files: %v", err)
	}
	result.FilesTouched = touched

	if err := s.engine.TriggerReload(ctx); err != nil {
		log.Printf("[Reload] %v", err)
		result.Detail = "engine reload request failed"
	}

	if s.settleDelay > 0 && s.engine.HealthURL() != "" {
		select {
		case <-time.After(s.settleDelay):
		case <-ctx.Done():
		}
	}

	probe := s.engine.Probe(ctx)
	result.Probed = probe.Probed
	result.HTTPStatus = probe.StatusCode
	result.EngineStatus = engineStatus(probe, skipped)
	if probe.Error != "" {
		result.Detail = probe.Error
	} else if !probe.Probed && result.Detail == "" {
		result.Detail = "engine health endpoint not configured"
	}
	result.CheckedAt = time.Now().UTC()

	s.metrics.SetEngineStatus(result.EngineStatus)
	log.Printf("[Reload] Engine status %s (probed=%t, http=%d, skipped files=%d)",
		result.EngineStatus, result.Probed, result.HTTPStatus, len(skipped))
	return result
}

// engineStatus maps a probe to operational/degraded/down. Unparseable local files
// degrade an otherwise healthy engine since it is running without them.
func engineStatus(probe engine.ProbeResult, skipped []model.SkippedFile) string {
	switch {
	case probe.Probed && !probe.Reachable:
		return config.StatusDown
	case probe.Probed && probe.StatusCode >= 500:
		return config.StatusDown
	case probe.Probed && (probe.StatusCode < 200 || probe.StatusCode >= 300):
		return config.StatusDegraded
	case len(skipped) > 0:
		return config.StatusDegraded
	}
	return config.StatusOperational
}
