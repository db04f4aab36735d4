package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"proxy-config-guard/internal/config"
	"proxy-config-guard/internal/model"
)

// BackupJobs is the slice of the configuration service the scheduler drives.
// Both calls take the configuration write lock.
type BackupJobs interface {
	PruneBackups(ctx context.Context) ([]string, error)
	ScheduledBackup(ctx context.Context) (*model.Backup, error)
}

// BackupScheduler runs retention pruning and optional periodic snapshots
type BackupScheduler struct {
	jobs          BackupJobs
	pruneSchedule string
	autoSchedule  string
	cronScheduler *cron.Cron
	running       bool
}

// NewBackupScheduler creates a scheduler. An empty schedule disables that job.
func NewBackupScheduler(jobs BackupJobs, pruneSchedule, autoSchedule string) *BackupScheduler {
	return &BackupScheduler{
		jobs:          jobs,
		pruneSchedule: pruneSchedule,
		autoSchedule:  autoSchedule,
		cronScheduler: cron.New(),
	}
}

// Start registers the jobs and starts cron. An invalid schedule is an error.
func (s *BackupScheduler) Start() error {
	if s.running {
		return nil
	}
	if s.pruneSchedule != "" {
		if _, err := s.cronScheduler.AddFunc(s.pruneSchedule, s.runPrune); err != nil {
			return fmt.Errorf("invalid backup prune schedule %q: %w", s.pruneSchedule, err)
		}
	}
	if s.autoSchedule != "" {
		if _, err := s.cronScheduler.AddFunc(s.autoSchedule, s.runBackup); err != nil {
			return fmt.Errorf("invalid auto backup schedule %q: %w", s.autoSchedule, err)
		}
	}
	s.cronScheduler.Start()
	s.running = true
	log.Printf("[BackupScheduler] Started (prune %q, auto backup %q)", s.pruneSchedule, s.autoSchedule)
	return nil
}

// Stop waits for running jobs to finish
func (s *BackupScheduler) Stop() {
	if !s.running {
		return
	}
	<-s.cronScheduler.Stop().Done()
	s.running = false
	log.Println("[BackupScheduler] Stopped")
}

func (s *BackupScheduler) runPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), config.ContextTimeout)
	defer cancel()

	removed, err := s.jobs.PruneBackups(ctx)
	if err != nil {
		log.Printf("[BackupScheduler] Prune failed: %v", err)
		return
	}
	if len(removed) > 0 {
		log.Printf("[BackupScheduler] Pruned %d backups", len(removed))
	}
}

func (s *BackupScheduler) runBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), config.ContextTimeout)
	defer cancel()

	backup, err := s.jobs.ScheduledBackup(ctx)
	if err != nil {
		log.Printf("[BackupScheduler] Scheduled backup failed: %v", err)
		return
	}
	log.Printf("[BackupScheduler] Scheduled backup %s created", backup.ID)
}
