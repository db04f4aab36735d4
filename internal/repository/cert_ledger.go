package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"proxy-config-guard/internal/model"
)

// CertLedger persists pending certificate requests next to the certificate store
// so that backups and restores carry them along.
type CertLedger struct {
	path string
}

func NewCertLedger(path string) *CertLedger {
	return &CertLedger{path: path}
}

func (l *CertLedger) Path() string {
	return l.path
}

// Load returns the ledger keyed by domain; a missing file is an empty ledger
func (l *CertLedger) Load() (map[string]model.CertificateRequest, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]model.CertificateRequest{}, nil
		}
		return nil, fmt.Errorf("failed to read certificate ledger: %w", err)
	}
	var entries []model.CertificateRequest
	if len(data) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("failed to parse certificate ledger: %w", err)
		}
	}
	out := make(map[string]model.CertificateRequest, len(entries))
	for _, e := range entries {
		out[e.Domain] = e
	}
	return out, nil
}

// Save rewrites the ledger atomically, ordered by domain
func (l *CertLedger) Save(entries map[string]model.CertificateRequest) error {
	list := make([]model.CertificateRequest, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Domain < list[j].Domain })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode certificate ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger dir: %w", err)
	}
	return AtomicWriteFile(l.path, append(data, '\n'), 0644)
}
