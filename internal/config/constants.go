package config

import "time"

// Application version
const AppVersion = "0.4.0"

// Health status constants
const (
	StatusOK          = "ok"
	StatusError       = "error"
	StatusHealthy     = "healthy"
	StatusUnhealthy   = "unhealthy"
	StatusDisabled    = "disabled"
	StatusConnecting  = "connecting"
	StatusOperational = "operational"
	StatusDegraded    = "degraded"
	StatusDown        = "down"
)

// File permission constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
	SecretFilePermissions  = 0600
)

// Change throttling defaults
const (
	DefaultChangeRateLimit  = 5
	DefaultChangeRateWindow = 60 * time.Second
)

// Request throttling defaults
const (
	DefaultRequestRPS   = 100
	DefaultAPIRateLimit = 600
)

// Certificate constants
const (
	DefaultCertPendingTimeout = time.Hour
)

// Backup constants
const (
	DefaultPruneSchedule = "@hourly"
	BackupManifestName   = "manifest.json"
	BackupFilesDir       = "files"
)

// Engine signalling
const (
	DefaultEngineSettleDelay = 2 * time.Second
	EngineProbeTimeout       = 5 * time.Second
	WatcherDebounce          = 250 * time.Millisecond
)

// Security constants
const (
	HSTSMaxAge = 31536000 // 1 year in seconds
)

// Service-specific timeouts
const (
	ContextTimeout  = 30 * time.Second
	ShutdownTimeout = 10 * time.Second
)
