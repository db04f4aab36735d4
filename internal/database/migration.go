package database

import (
	"embed"
	"fmt"
	"log"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// RunMigrations executes schema migrations
// 001_init.sql runs only once; upgrade statements run on every start
func (db *DB) RunMigrations() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var exists bool
	err = db.QueryRow(`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = '001_init')`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}

	if !exists {
		content, err := migrationFS.ReadFile("migrations/001_init.sql")
		if err != nil {
			return fmt.Errorf("failed to read 001_init.sql: %w", err)
		}

		log.Println("[Database] Running initial schema migration (001_init.sql)...")
		if _, err = db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to apply schema migration: %w", err)
		}

		if _, err = db.Exec(`INSERT INTO schema_migrations (version) VALUES ('001_init')`); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}
		log.Println("[Database] Initial schema migration completed")
	} else {
		log.Println("[Database] Schema already initialized, running upgrades only...")
	}

	upgradeSQL := `
		ALTER TABLE audit_logs ADD COLUMN IF NOT EXISTS ip_address character varying(64) DEFAULT '' NOT NULL;
	`
	if _, err = db.Exec(upgradeSQL); err != nil {
		log.Printf("[Database] Warning: upgrade statements had errors (may be already applied): %v", err)
	}
	return nil
}
