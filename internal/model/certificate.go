package model

import "time"

// Certificate status values
const (
	CertStatusActive  = "active"
	CertStatusPending = "pending"
	CertStatusExpired = "expired"
	CertStatusFailed  = "failed"
)

// Certificate is a derived view over the certificate store and the local request ledger.
// Key material is never exposed, only whether it is present.
type Certificate struct {
	Domain            string     `json:"domain"`
	SANs              []string   `json:"sans"`
	Resolver          string     `json:"resolver"`
	Status            string     `json:"status"`
	NotAfter          *time.Time `json:"not_after,omitempty"`
	PrivateKeyPresent bool       `json:"private_key_present"`
	RequestedAt       *time.Time `json:"requested_at,omitempty"`
	RequestedBy       string     `json:"requested_by,omitempty"`
	Error             string     `json:"error,omitempty"`
}

// CertificateRequest is a pending-request ledger entry
type CertificateRequest struct {
	Domain      string    `json:"domain"`
	SANs        []string  `json:"sans,omitempty"`
	Email       string    `json:"email"`
	Resolver    string    `json:"resolver"`
	RequestedAt time.Time `json:"requested_at"`
	RequestedBy string    `json:"requested_by"`
}

// CreateCertificateRequest is the POST /certificates payload
type CreateCertificateRequest struct {
	Domain   string   `json:"domain"`
	Email    string   `json:"email"`
	SANs     []string `json:"sans,omitempty"`
	Resolver string   `json:"resolver,omitempty"`
}

// CertificateListResponse groups certificates with per-status counts
type CertificateListResponse struct {
	Data   []Certificate  `json:"data"`
	Total  int            `json:"total"`
	Counts map[string]int `json:"counts"`
}
