package acme

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-acme/lego/v4/certcrypto"
)

// Domain is the main name and alternative names of a stored certificate
type Domain struct {
	Main string   `json:"main"`
	SANs []string `json:"sans,omitempty"`
}

// CertEntry is one certificate inside a resolver's section of the store.
// Certificate and Key hold base64-encoded PEM.
type CertEntry struct {
	Domain      Domain `json:"domain"`
	Certificate string `json:"certificate"`
	Key         string `json:"key"`
	Store       string `json:"Store,omitempty"`
}

// ResolverStore is the per-resolver section of the store. The account is kept opaque.
type ResolverStore struct {
	Account      json.RawMessage `json:"Account,omitempty"`
	Certificates []*CertEntry    `json:"Certificates"`
}

// Store is the engine's certificate store keyed by resolver name
type Store map[string]*ResolverStore

// ReadStore loads the store; a missing or empty file is an empty store
func ReadStore(path string) (Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Store{}, nil
		}
		return nil, fmt.Errorf("failed to read certificate store: %w", err)
	}
	return ParseStore(data)
}

// ParseStore decodes raw store content
func ParseStore(data []byte) (Store, error) {
	store := Store{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("failed to parse certificate store: %w", err)
	}
	for name, rs := range store {
		if rs == nil {
			store[name] = &ResolverStore{}
		}
	}
	return store, nil
}

// Marshal encodes the store the way the engine writes it
func (s Store) Marshal() ([]byte, error) {
	for _, rs := range s {
		if rs.Certificates == nil {
			rs.Certificates = []*CertEntry{}
		}
	}
	return json.MarshalIndent(s, "", "  ")
}

// Find returns the resolver and entry whose main domain matches
func (s Store) Find(domain string) (string, *CertEntry) {
	for name, rs := range s {
		for _, entry := range rs.Certificates {
			if entry != nil && strings.EqualFold(entry.Domain.Main, domain) {
				return name, entry
			}
		}
	}
	return "", nil
}

// Remove deletes every entry whose main domain matches and reports how many were removed
func (s Store) Remove(domain string) int {
	removed := 0
	for _, rs := range s {
		kept := rs.Certificates[:0]
		for _, entry := range rs.Certificates {
			if entry != nil && strings.EqualFold(entry.Domain.Main, domain) {
				removed++
				continue
			}
			kept = append(kept, entry)
		}
		rs.Certificates = kept
	}
	return removed
}

// ParseLeaf decodes the entry's chain and returns the leaf certificate
func (e *CertEntry) ParseLeaf() (*x509.Certificate, error) {
	if e.Certificate == "" {
		return nil, fmt.Errorf("certificate is empty")
	}
	pemBytes, err := base64.StdEncoding.DecodeString(e.Certificate)
	if err != nil {
		return nil, fmt.Errorf("certificate is not valid base64: %w", err)
	}
	leaf, err := certcrypto.ParsePEMCertificate(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return leaf, nil
}

// HasKey reports whether a decodable private key accompanies the entry
func (e *CertEntry) HasKey() bool {
	if e.Key == "" {
		return false
	}
	keyPEM, err := base64.StdEncoding.DecodeString(e.Key)
	if err != nil {
		return false
	}
	_, err = certcrypto.ParsePEMPrivateKey(keyPEM)
	return err == nil
}

var hostnameLabel = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// ValidateHostname checks an RFC 1123 host name. A single leading "*." label is allowed.
func ValidateHostname(name string) error {
	if name == "" {
		return fmt.Errorf("hostname cannot be empty")
	}
	host := strings.TrimSuffix(name, ".")
	host = strings.TrimPrefix(host, "*.")
	if len(host) > 253 {
		return fmt.Errorf("hostname is too long")
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return fmt.Errorf("hostname must contain at least two labels")
	}
	for _, label := range labels {
		if !hostnameLabel.MatchString(label) {
			return fmt.Errorf("invalid hostname label %q", label)
		}
	}
	last := labels[len(labels)-1]
	if strings.Trim(last, "0123456789") == "" {
		return fmt.Errorf("hostname cannot be an IP address")
	}
	return nil
}
