package service

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"proxy-config-guard/internal/config"
	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/repository"
)

// BackupIDFormat is the UTC timestamp layout used for snapshot directory names
const BackupIDFormat = "20060102T150405.000000000Z"

var backupIDRegex = regexp.MustCompile(`^\d{8}T\d{6}\.\d{9}Z(-\d+)?$`)

// ValidBackupID reports whether id has the snapshot name shape. It also rules out
// path traversal since only digits, T, Z, dot and dash are accepted.
func ValidBackupID(id string) bool {
	return backupIDRegex.MatchString(id)
}

// BackupService snapshots the configuration tree into timestamped directories
type BackupService struct {
	root           string
	dir            string
	retentionCount int
	retentionAge   time.Duration
	now            func() time.Time
}

func NewBackupService(root, dir string, retentionCount int, retentionAge time.Duration) *BackupService {
	return &BackupService{
		root:           filepath.Clean(root),
		dir:            filepath.Clean(dir),
		retentionCount: retentionCount,
		retentionAge:   retentionAge,
		now:            time.Now,
	}
}

func (s *BackupService) Dir() string {
	return s.dir
}

// RetentionEnabled reports whether any pruning policy is configured
func (s *BackupService) RetentionEnabled() bool {
	return s.retentionCount > 0 || s.retentionAge > 0
}

// Create copies every file under the configuration root into a new snapshot.
// The snapshot is assembled in a hidden staging directory and renamed into place,
// so a listed backup is always complete.
func (s *BackupService) Create(ctx context.Context, kind, reason string) (*model.Backup, error) {
	if err := os.MkdirAll(s.dir, config.DefaultDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	createdAt := s.now().UTC()
	id, err := s.nextID(createdAt)
	if err != nil {
		return nil, err
	}

	staging, err := os.MkdirTemp(s.dir, "."+id+".partial-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(staging)
		}
	}()

	files, err := s.liveFiles()
	if err != nil {
		return nil, err
	}

	backup := &model.Backup{
		ID:        id,
		Kind:      kind,
		Reason:    reason,
		Files:     []string{},
		CreatedAt: createdAt,
		Checksums: map[string]string{},
	}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dst := filepath.Join(staging, config.BackupFilesDir, filepath.FromSlash(rel))
		size, sum, err := copyFile(filepath.Join(s.root, filepath.FromSlash(rel)), dst)
		if err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", rel, err)
		}
		backup.Files = append(backup.Files, rel)
		backup.Checksums[rel] = sum
		backup.SizeBytes += size
	}

	manifest, err := json.MarshalIndent(backup, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := repository.AtomicWriteFile(filepath.Join(staging, config.BackupManifestName), manifest, config.DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(staging, filepath.Join(s.dir, id)); err != nil {
		return nil, fmt.Errorf("failed to finalize backup: %w", err)
	}
	committed = true

	log.Printf("[Backup] Created %s backup %s (%d files, %d bytes)", kind, id, len(backup.Files), backup.SizeBytes)
	return backup, nil
}

// nextID derives a unique snapshot id from t, adding a numeric suffix on collision
func (s *BackupService) nextID(t time.Time) (string, error) {
	base := t.Format(BackupIDFormat)
	id := base
	for i := 1; i < 1000; i++ {
		if _, err := os.Stat(filepath.Join(s.dir, id)); errors.Is(err, os.ErrNotExist) {
			return id, nil
		} else if err != nil {
			return "", fmt.Errorf("failed to check backup id: %w", err)
		}
		id = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("too many backups created at %s", base)
}

// List returns every complete snapshot, newest first
func (s *BackupService) List() ([]model.Backup, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Backup{}, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := []model.Backup{}
	for _, e := range entries {
		if !e.IsDir() || !ValidBackupID(e.Name()) {
			continue
		}
		b, err := s.readManifest(e.Name())
		if err != nil {
			log.Printf("[Backup] Ignoring unreadable backup %s: %v", e.Name(), err)
			continue
		}
		backups = append(backups, *b)
	}
	sort.Slice(backups, func(i, j int) bool {
		if backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].ID > backups[j].ID
		}
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Get returns one snapshot's manifest
func (s *BackupService) Get(id string) (*model.Backup, error) {
	if !ValidBackupID(id) {
		return nil, &model.NotFoundError{Kind: "Backup", Name: id}
	}
	b, err := s.readManifest(id)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &model.NotFoundError{Kind: "Backup", Name: id}
		}
		return nil, err
	}
	return b, nil
}

func (s *BackupService) readManifest(id string) (*model.Backup, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, id, config.BackupManifestName))
	if err != nil {
		return nil, err
	}
	var b model.Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if b.ID != id {
		return nil, fmt.Errorf("manifest id %q does not match directory %q", b.ID, id)
	}
	return &b, nil
}

// Verify checks every snapshot file against the manifest checksums
func (s *BackupService) Verify(b *model.Backup) error {
	for _, rel := range b.Files {
		if !safeRelPath(rel) {
			return fmt.Errorf("backup %s lists unsafe path %q", b.ID, rel)
		}
		want, ok := b.Checksums[rel]
		if !ok {
			continue
		}
		got, err := fileChecksum(filepath.Join(s.dir, b.ID, config.BackupFilesDir, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("backup %s is missing %s: %w", b.ID, rel, err)
		}
		if got != want {
			return fmt.Errorf("backup %s has a corrupted copy of %s", b.ID, rel)
		}
	}
	return nil
}

// Apply makes the live tree byte-identical to the snapshot: every snapshot file is
// rewritten atomically and live files absent from the snapshot are removed.
// Callers hold the configuration write lock.
func (s *BackupService) Apply(id string) (*model.RestoreResult, error) {
	b, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.Verify(b); err != nil {
		return nil, err
	}

	result := &model.RestoreResult{RestoredID: id}
	keep := make(map[string]bool, len(b.Files))
	for _, rel := range b.Files {
		keep[rel] = true
		src := filepath.Join(s.dir, id, config.BackupFilesDir, filepath.FromSlash(rel))
		data, err := os.ReadFile(src)
		if err != nil {
			return result, fmt.Errorf("failed to read %s from backup: %w", rel, err)
		}
		info, err := os.Stat(src)
		if err != nil {
			return result, err
		}
		dst := filepath.Join(s.root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), config.DefaultDirPermissions); err != nil {
			return result, fmt.Errorf("failed to create %s: %w", filepath.Dir(rel), err)
		}
		if err := repository.AtomicWriteFile(dst, data, info.Mode().Perm()); err != nil {
			return result, err
		}
		result.FilesRestored++
	}

	live, err := s.liveFiles()
	if err != nil {
		return result, err
	}
	for _, rel := range live {
		if keep[rel] {
			continue
		}
		if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel))); err != nil && !errors.Is(err, os.ErrNotExist) {
			return result, fmt.Errorf("failed to remove %s: %w", rel, err)
		}
		result.FilesRemoved++
	}
	return result, nil
}

// Restore takes a safety snapshot of the current tree and then applies id.
// If applying fails the safety snapshot is re-applied. Callers hold the write lock.
func (s *BackupService) Restore(ctx context.Context, id string) (*model.RestoreResult, error) {
	target, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.Verify(target); err != nil {
		return nil, &model.BackupError{Err: err}
	}

	safety, err := s.Create(ctx, model.BackupKindSafety, "before restore of "+id)
	if err != nil {
		return nil, &model.BackupError{Err: err}
	}

	result, err := s.Apply(id)
	if err != nil {
		log.Printf("[Backup] Restore of %s failed, re-applying safety backup %s: %v", id, safety.ID, err)
		if _, rbErr := s.Apply(safety.ID); rbErr != nil {
			log.Printf("[ERROR] Failed to re-apply safety backup %s: %v", safety.ID, rbErr)
		}
		return nil, err
	}
	result.SafetyBackupID = safety.ID
	log.Printf("[Backup] Restored %s (%d written, %d removed), safety backup %s", id, result.FilesRestored, result.FilesRemoved, safety.ID)
	return result, nil
}

// Prune removes snapshots beyond the retention count or older than the retention
// age. The newest snapshot is always kept. Callers hold the write lock.
func (s *BackupService) Prune(ctx context.Context) ([]string, error) {
	if !s.RetentionEnabled() {
		return nil, nil
	}
	backups, err := s.List()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var removed []string
	for i, b := range backups {
		if i == 0 {
			continue
		}
		expired := s.retentionAge > 0 && now.Sub(b.CreatedAt) > s.retentionAge
		overCount := s.retentionCount > 0 && i >= s.retentionCount
		if !expired && !overCount {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.RemoveAll(filepath.Join(s.dir, b.ID)); err != nil {
			log.Printf("[Backup] Failed to delete backup %s: %v", b.ID, err)
			continue
		}
		removed = append(removed, b.ID)
		log.Printf("[Backup] Pruned backup %s", b.ID)
	}
	return removed, nil
}

// Stats summarises the snapshot volume
func (s *BackupService) Stats() model.BackupStats {
	stats := model.BackupStats{
		RetentionCount: s.retentionCount,
	}
	if s.retentionAge > 0 {
		stats.RetentionAge = s.retentionAge.String()
	}
	backups, err := s.List()
	if err != nil {
		log.Printf("[Backup] Failed to list backups for stats: %v", err)
	}
	stats.TotalBackups = len(backups)
	for _, b := range backups {
		stats.TotalSize += b.SizeBytes
	}
	if len(backups) > 0 {
		last := backups[0].CreatedAt
		stats.LastBackup = &last
		stats.LastBackupID = backups[0].ID
	}
	if usage, err := disk.Usage(s.usagePath()); err == nil {
		stats.DiskUsedPct = usage.UsedPercent
		stats.DiskFreeBytes = usage.Free
	}
	return stats
}

// usagePath returns the closest existing ancestor of the backup directory
func (s *BackupService) usagePath() string {
	p := s.dir
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}

// Export streams a snapshot as a tar.gz archive
func (s *BackupService) Export(id string, w io.Writer) error {
	b, err := s.Get(id)
	if err != nil {
		return err
	}
	gzWriter := gzip.NewWriter(w)
	tarWriter := tar.NewWriter(gzWriter)

	if err := addFileToTar(tarWriter, filepath.Join(s.dir, id, config.BackupManifestName), config.BackupManifestName); err != nil {
		return err
	}
	for _, rel := range b.Files {
		src := filepath.Join(s.dir, id, config.BackupFilesDir, filepath.FromSlash(rel))
		if err := addFileToTar(tarWriter, src, config.BackupFilesDir+"/"+rel); err != nil {
			return err
		}
	}
	if err := tarWriter.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return gzWriter.Close()
}

func addFileToTar(tw *tar.Writer, src, name string) error {
	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = name
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header: %w", err)
	}
	if _, err := io.Copy(tw, file); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// liveFiles lists regular files under the root as slash-separated relative paths.
// The backup directory and atomic-write temp files are skipped.
func (s *BackupService) liveFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && path == s.root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path == s.dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.Contains(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk config tree: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func copyFile(src, dst string) (int64, string, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, "", err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), config.DefaultDirPermissions); err != nil {
		return 0, "", err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, "", err
	}

	hasher := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, hasher), in)
	if err != nil {
		out.Close()
		return 0, "", err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return 0, "", err
	}
	if err := out.Close(); err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(hasher.Sum(nil)), nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func safeRelPath(rel string) bool {
	if rel == "" || strings.HasPrefix(rel, "/") {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if part == ".." || part == "" {
			return false
		}
	}
	return true
}
