package scheduler

import (
	"context"
	"log"
	"time"
)

// AuditCleaner deletes audit records older than the retention period
type AuditCleaner interface {
	Cleanup(ctx context.Context, retentionDays int) (int64, error)
}

// AuditRetentionScheduler trims the audit_logs table once a day
type AuditRetentionScheduler struct {
	repo          AuditCleaner
	retentionDays int
	interval      time.Duration
	stopCh        chan struct{}
}

func NewAuditRetentionScheduler(repo AuditCleaner, retentionDays int) *AuditRetentionScheduler {
	return &AuditRetentionScheduler{
		repo:          repo,
		retentionDays: retentionDays,
		interval:      24 * time.Hour, // Check daily
		stopCh:        make(chan struct{}),
	}
}

func (s *AuditRetentionScheduler) Start() {
	log.Printf("[AuditRetention] Started (retention %d days, checked daily)", s.retentionDays)

	// Initial check on startup
	s.run()

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.run()
			case <-s.stopCh:
				log.Println("[AuditRetention] Stopped")
				return
			}
		}
	}()
}

func (s *AuditRetentionScheduler) Stop() {
	close(s.stopCh)
}

func (s *AuditRetentionScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	deleted, err := s.repo.Cleanup(ctx, s.retentionDays)
	if err != nil {
		log.Printf("[AuditRetention] Failed to clean up audit logs: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("[AuditRetention] Cleaned up %d audit records older than %d days", deleted, s.retentionDays)
	}
}
