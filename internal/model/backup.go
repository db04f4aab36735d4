package model

import "time"

// Backup kinds
const (
	BackupKindManual      = "manual"
	BackupKindPreMutation = "pre-mutation"
	BackupKindSafety      = "safety"
	BackupKindScheduled   = "scheduled"
)

// Backup is an immutable snapshot of the configuration tree
type Backup struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason,omitempty"`
	Files     []string  `json:"files"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`

	// Checksums maps each file to its sha256, verified before the snapshot is applied
	Checksums map[string]string `json:"checksums,omitempty"`
}

// CreateBackupRequest is the POST /config/backup payload
type CreateBackupRequest struct {
	Description string `json:"description,omitempty"`
}

// BackupListResponse lists backups newest first
type BackupListResponse struct {
	Data  []Backup `json:"data"`
	Total int      `json:"total"`
}

// RestoreResult reports a completed restore
type RestoreResult struct {
	RestoredID     string `json:"restored_id"`
	SafetyBackupID string `json:"safety_backup_id"`
	FilesRestored  int    `json:"files_restored"`
	FilesRemoved   int    `json:"files_removed"`
}

// BackupStats summarises the backup volume
type BackupStats struct {
	TotalBackups   int        `json:"total_backups"`
	TotalSize      int64      `json:"total_size"`
	LastBackup     *time.Time `json:"last_backup,omitempty"`
	LastBackupID   string     `json:"last_backup_id,omitempty"`
	DiskUsedPct    float64    `json:"disk_used_percent"`
	DiskFreeBytes  uint64     `json:"disk_free_bytes"`
	RetentionCount int        `json:"retention_count"`
	RetentionAge   string     `json:"retention_age,omitempty"`
}
