package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// APIToken maps a bearer token to an externally provisioned actor
type APIToken struct {
	Token string
	Actor string
	Role  string
}

// Config holds process configuration resolved from the environment
type Config struct {
	Port string

	// Configuration tree watched by the engine
	ConfigRoot       string
	DynamicDir       string
	CertStorePath    string
	CertLedgerPath   string
	RoutesFile       string
	MiddlewaresFile  string
	EntrypointPlain  string
	EntrypointSecure string
	DefaultResolver  string

	// Backups
	BackupDir            string
	BackupRetentionCount int
	BackupRetentionAge   time.Duration
	BackupPruneSchedule  string
	BackupAutoSchedule   string

	// Change throttling
	ChangeRateLimit  int
	ChangeRateWindow time.Duration

	CertPendingTimeout time.Duration

	// Engine signalling
	EngineHealthURL   string
	EngineReloadURL   string
	EngineSettleDelay time.Duration

	// Collaborators
	DatabaseURL        string
	RedisURL           string
	AuditLogPath       string
	AuditRetentionDays int
	APITokens          []APIToken
	TrustHeaders       bool
	RequestRPS         float64
	APIRateLimit       int64
	CORSOrigins        []string
	WatchConfig        bool
}

// Load reads .env (when present) and the process environment
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[Config] Warning: failed to read .env: %v", err)
	}

	root := getEnv("CONFIG_ROOT", "/etc/proxy")
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		ConfigRoot:       root,
		DynamicDir:       getEnv("DYNAMIC_DIR", filepath.Join(root, "dynamic")),
		CertStorePath:    getEnv("CERT_STORE_PATH", filepath.Join(root, "acme.json")),
		CertLedgerPath:   getEnv("CERT_LEDGER_PATH", filepath.Join(root, "cert-requests.json")),
		RoutesFile:       getEnv("ROUTES_FILE", "routers.yml"),
		MiddlewaresFile:  getEnv("MIDDLEWARES_FILE", "middlewares.yml"),
		EntrypointPlain:  getEnv("ENTRYPOINT_PLAIN", "web"),
		EntrypointSecure: getEnv("ENTRYPOINT_SECURE", "websecure"),
		DefaultResolver:  getEnv("DEFAULT_CERT_RESOLVER", "letsencrypt"),

		BackupDir:            getEnv("BACKUP_DIR", "/var/lib/proxy-config-guard/backups"),
		BackupRetentionCount: getEnvInt("BACKUP_RETENTION_COUNT", 0),
		BackupRetentionAge:   getEnvDuration("BACKUP_RETENTION_AGE", 0),
		BackupPruneSchedule:  getEnv("BACKUP_PRUNE_SCHEDULE", DefaultPruneSchedule),
		BackupAutoSchedule:   getEnv("BACKUP_AUTO_SCHEDULE", ""),

		ChangeRateLimit:  getEnvInt("CHANGE_RATE_LIMIT", DefaultChangeRateLimit),
		ChangeRateWindow: getEnvDuration("CHANGE_RATE_WINDOW", DefaultChangeRateWindow),

		CertPendingTimeout: getEnvDuration("CERT_PENDING_TIMEOUT", DefaultCertPendingTimeout),

		EngineHealthURL:   getEnv("ENGINE_HEALTH_URL", ""),
		EngineReloadURL:   getEnv("ENGINE_RELOAD_URL", ""),
		EngineSettleDelay: getEnvDuration("ENGINE_SETTLE_DELAY", DefaultEngineSettleDelay),

		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		AuditLogPath:       getEnv("AUDIT_LOG_PATH", "/var/lib/proxy-config-guard/audit.log"),
		AuditRetentionDays: getEnvInt("AUDIT_RETENTION_DAYS", 0),
		APITokens:          parseAPITokens(os.Getenv("API_TOKENS")),
		TrustHeaders:       getEnvBool("TRUST_AUTH_HEADERS", false),
		RequestRPS:         getEnvFloat("RATE_LIMIT_RPS", DefaultRequestRPS),
		APIRateLimit:       int64(getEnvInt("API_RATE_LIMIT", DefaultAPIRateLimit)),
		CORSOrigins:        splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		WatchConfig:        getEnvBool("WATCH_CONFIG", true),
	}
	return cfg
}

// parseAPITokens parses "token:actor:role,token:actor:role"
func parseAPITokens(raw string) []APIToken {
	var tokens []APIToken
	for _, entry := range splitList(raw) {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			log.Printf("[Config] Warning: ignoring malformed API_TOKENS entry")
			continue
		}
		tokens = append(tokens, APIToken{Token: parts[0], Actor: parts[1], Role: parts[2]})
	}
	return tokens
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("[Config] Warning: invalid integer for %s, using default", key)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("[Config] Warning: invalid duration for %s, using default", key)
	}
	return fallback
}
