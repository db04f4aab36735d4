package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-config-guard/internal/model"
)

type fakeJobs struct {
	prunes  atomic.Int32
	backups atomic.Int32
	fail    bool
}

func (f *fakeJobs) PruneBackups(ctx context.Context) ([]string, error) {
	f.prunes.Add(1)
	if f.fail {
		return nil, errors.New("disk full")
	}
	return []string{"20240101T000000.000000000Z"}, nil
}

func (f *fakeJobs) ScheduledBackup(ctx context.Context) (*model.Backup, error) {
	f.backups.Add(1)
	if f.fail {
		return nil, errors.New("disk full")
	}
	return &model.Backup{ID: "20240101T000000.000000000Z", Kind: model.BackupKindScheduled}, nil
}

func TestBackupSchedulerRejectsInvalidSchedule(t *testing.T) {
	s := NewBackupScheduler(&fakeJobs{}, "not a schedule", "")
	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid backup prune schedule")

	s = NewBackupScheduler(&fakeJobs{}, "", "@every nope")
	assert.Error(t, s.Start())
}

func TestBackupSchedulerRunsJobs(t *testing.T) {
	jobs := &fakeJobs{}
	s := NewBackupScheduler(jobs, "@every 1s", "@every 1s")
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return jobs.prunes.Load() > 0 && jobs.backups.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)
}

func TestBackupSchedulerJobsTolerateErrors(t *testing.T) {
	jobs := &fakeJobs{fail: true}
	s := NewBackupScheduler(jobs, "", "")
	s.runPrune()
	s.runBackup()
	assert.Equal(t, int32(1), jobs.prunes.Load())
	assert.Equal(t, int32(1), jobs.backups.Load())

	// Stop without Start is a no-op
	s.Stop()
}

type fakeCleaner struct {
	mu    sync.Mutex
	calls []int
}

func (f *fakeCleaner) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, retentionDays)
	return 3, nil
}

func TestAuditRetentionRunsOnStart(t *testing.T) {
	cleaner := &fakeCleaner{}
	s := NewAuditRetentionScheduler(cleaner, 90)
	s.Start()
	s.Stop()

	cleaner.mu.Lock()
	defer cleaner.mu.Unlock()
	assert.Equal(t, []int{90}, cleaner.calls)
}
