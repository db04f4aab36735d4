package model

import "time"

// Audit outcomes
const (
	AuditOutcomeSuccess = "success"
	AuditOutcomeFailure = "failure"
)

// Audit operations
const (
	AuditOpCreate  = "create"
	AuditOpUpdate  = "update"
	AuditOpDelete  = "delete"
	AuditOpReplace = "replace"
	AuditOpBackup  = "backup"
	AuditOpRestore = "restore"
	AuditOpRequest = "request"
	AuditOpRevoke  = "revoke"
)

// Entity types used in audit records
const (
	EntityRoute       = "route"
	EntityMiddleware  = "middleware"
	EntityCertificate = "certificate"
	EntityConfig      = "config"
	EntityBackup      = "backup"
)

// AuditRecord is one append-only entry for the audit collaborator
type AuditRecord struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Role       string    `json:"role"`
	Operation  string    `json:"operation"`
	EntityType string    `json:"entity_type"`
	EntityName string    `json:"entity_name"`
	Timestamp  time.Time `json:"timestamp"`
	BackupID   string    `json:"backup_id,omitempty"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
}

// Roles resolved by the external identity layer
const (
	RoleAdmin = "admin"
	RoleRead  = "read"
)

// Actor is the externally verified caller of an operation
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	IP   string `json:"ip,omitempty"`
}

// CanWrite reports whether the actor may mutate configuration
func (a Actor) CanWrite() bool {
	return a.Role == RoleAdmin
}

// CanRead reports whether the actor may read configuration
func (a Actor) CanRead() bool {
	return a.Role == RoleAdmin || a.Role == RoleRead
}
