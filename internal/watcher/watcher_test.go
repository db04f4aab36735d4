package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelevant(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"yaml write", fsnotify.Event{Name: "/etc/dyn/routes.yml", Op: fsnotify.Write}, true},
		{"yaml create", fsnotify.Event{Name: "/etc/dyn/routes.YAML", Op: fsnotify.Create}, true},
		{"yaml remove", fsnotify.Event{Name: "/etc/dyn/routes.yml", Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: "/etc/dyn/routes.yml", Op: fsnotify.Chmod}, false},
		{"atomic write temp", fsnotify.Event{Name: "/etc/dyn/.routes.yml.tmp-123", Op: fsnotify.Create}, false},
		{"hidden yaml", fsnotify.Event{Name: "/etc/dyn/.hidden.yml", Op: fsnotify.Write}, false},
		{"not yaml", fsnotify.Event{Name: "/etc/dyn/notes.txt", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.event))
		})
	}
}

func TestWatcherDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	var calls atomic.Int32
	w, err := New(dir, 200*time.Millisecond, func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "routes.yml"), []byte("http: {}\n"), 0644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	assert.NoError(t, <-done)
}

func TestNewRejectsMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"), time.Second, func() error { return nil })
	assert.Error(t, err)
}
