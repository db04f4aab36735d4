package service

import (
	"fmt"
	"log"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"time"

	"proxy-config-guard/internal/config"
	"proxy-config-guard/internal/model"
	"proxy-config-guard/internal/repository"
	"proxy-config-guard/pkg/acme"
)

// ExpiringSoonWindow is how close to expiry an active certificate is flagged
const ExpiringSoonWindow = 30 * 24 * time.Hour

var resolverNameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// CertificateService projects the engine's certificate store and the local request
// ledger into certificate records. It never contacts a certificate authority.
type CertificateService struct {
	storePath       string
	ledger          *repository.CertLedger
	defaultResolver string
	pendingTimeout  time.Duration
	now             func() time.Time
}

func NewCertificateService(storePath string, ledger *repository.CertLedger, defaultResolver string, pendingTimeout time.Duration) *CertificateService {
	if pendingTimeout <= 0 {
		pendingTimeout = config.DefaultCertPendingTimeout
	}
	return &CertificateService{
		storePath:       storePath,
		ledger:          ledger,
		defaultResolver: defaultResolver,
		pendingTimeout:  pendingTimeout,
		now:             time.Now,
	}
}

// List derives every certificate's status. Store entries that cannot be decoded are
// reported as failed rather than failing the listing.
func (s *CertificateService) List() (*model.CertificateListResponse, error) {
	store, err := acme.ReadStore(s.storePath)
	if err != nil {
		return nil, err
	}
	ledger, err := s.ledger.Load()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	seen := map[string]bool{}
	certs := []model.Certificate{}

	resolvers := make([]string, 0, len(store))
	for name := range store {
		resolvers = append(resolvers, name)
	}
	sort.Strings(resolvers)

	for _, resolver := range resolvers {
		for _, entry := range store[resolver].Certificates {
			if entry == nil || entry.Domain.Main == "" {
				continue
			}
			domain := canonicalDomain(entry.Domain.Main)
			cert := model.Certificate{
				Domain:            domain,
				SANs:              append([]string{}, entry.Domain.SANs...),
				Resolver:          resolver,
				PrivateKeyPresent: entry.HasKey(),
			}
			leaf, err := entry.ParseLeaf()
			if err != nil {
				cert.Status = model.CertStatusFailed
				cert.Error = "certificate could not be decoded"
				log.Printf("[Certificate] Store entry %s (%s) is unreadable: %v", domain, resolver, err)
			} else {
				notAfter := leaf.NotAfter.UTC()
				cert.NotAfter = &notAfter
				cert.Status = model.CertStatusActive
				if now.After(notAfter) {
					cert.Status = model.CertStatusExpired
				}
				if len(cert.SANs) == 0 {
					for _, name := range leaf.DNSNames {
						if !strings.EqualFold(name, domain) {
							cert.SANs = append(cert.SANs, name)
						}
					}
				}
			}
			if req, ok := ledger[domain]; ok {
				requestedAt := req.RequestedAt
				cert.RequestedAt = &requestedAt
				cert.RequestedBy = req.RequestedBy
			}
			seen[domain] = true
			certs = append(certs, cert)
		}
	}

	for domain, req := range ledger {
		if seen[domain] {
			continue
		}
		requestedAt := req.RequestedAt
		cert := model.Certificate{
			Domain:      domain,
			SANs:        append([]string{}, req.SANs...),
			Resolver:    req.Resolver,
			Status:      model.CertStatusPending,
			RequestedAt: &requestedAt,
			RequestedBy: req.RequestedBy,
		}
		if now.Sub(req.RequestedAt) > s.pendingTimeout {
			cert.Status = model.CertStatusFailed
			cert.Error = fmt.Sprintf("no certificate issued within %s", s.pendingTimeout)
		}
		certs = append(certs, cert)
	}

	sort.Slice(certs, func(i, j int) bool {
		if certs[i].Domain == certs[j].Domain {
			return certs[i].Resolver < certs[j].Resolver
		}
		return certs[i].Domain < certs[j].Domain
	})

	counts := map[string]int{
		model.CertStatusActive:  0,
		model.CertStatusPending: 0,
		model.CertStatusExpired: 0,
		model.CertStatusFailed:  0,
	}
	for _, c := range certs {
		counts[c.Status]++
	}
	return &model.CertificateListResponse{Data: certs, Total: len(certs), Counts: counts}, nil
}

// ExpiringSoon counts active certificates that expire within the window
func (s *CertificateService) ExpiringSoon(list *model.CertificateListResponse, window time.Duration) int {
	deadline := s.now().UTC().Add(window)
	n := 0
	for _, c := range list.Data {
		if c.Status == model.CertStatusActive && c.NotAfter != nil && c.NotAfter.Before(deadline) {
			n++
		}
	}
	return n
}

// canonicalDomain lowercases a host name and drops the root label, so "a.example.com."
// and "A.example.com" are the same certificate.
func canonicalDomain(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

// PrepareRequest validates a certificate request and returns the ledger entry to record.
// Active or pending certificates for the domain are a conflict; expired or failed ones
// may be requested again.
func (s *CertificateService) PrepareRequest(req model.CreateCertificateRequest, actor string) (model.CertificateRequest, error) {
	var errs []model.FieldError
	domain := canonicalDomain(req.Domain)
	if err := acme.ValidateHostname(domain); err != nil {
		errs = append(errs, model.FieldError{Field: "domain", Message: err.Error()})
	}

	email := strings.TrimSpace(req.Email)
	if email == "" {
		errs = append(errs, model.FieldError{Field: "email", Message: "is required"})
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs = append(errs, model.FieldError{Field: "email", Message: "must be a valid email address"})
	}

	var sans []string
	dedup := map[string]bool{domain: true}
	for i, san := range req.SANs {
		san = canonicalDomain(san)
		if err := acme.ValidateHostname(san); err != nil {
			errs = append(errs, model.FieldError{Field: fmt.Sprintf("sans[%d]", i), Message: err.Error()})
			continue
		}
		if dedup[san] {
			continue
		}
		dedup[san] = true
		sans = append(sans, san)
	}

	resolver := strings.TrimSpace(req.Resolver)
	if resolver == "" {
		resolver = s.defaultResolver
	}
	if !resolverNameRegex.MatchString(resolver) {
		errs = append(errs, model.FieldError{Field: "resolver", Message: "must be alphanumeric with - or _"})
	}
	if len(errs) > 0 {
		return model.CertificateRequest{}, &model.ValidationError{Errors: errs}
	}

	list, err := s.List()
	if err != nil {
		return model.CertificateRequest{}, err
	}
	for _, c := range list.Data {
		if c.Domain == domain && (c.Status == model.CertStatusActive || c.Status == model.CertStatusPending) {
			return model.CertificateRequest{}, &model.ConflictError{Kind: "Certificate", Name: domain}
		}
	}

	return model.CertificateRequest{
		Domain:      domain,
		SANs:        sans,
		Email:       email,
		Resolver:    resolver,
		RequestedAt: s.now().UTC(),
		RequestedBy: actor,
	}, nil
}

// Record stores a prepared request in the ledger. Callers hold the write lock.
func (s *CertificateService) Record(entry model.CertificateRequest) (*model.Certificate, error) {
	ledger, err := s.ledger.Load()
	if err != nil {
		return nil, err
	}
	ledger[entry.Domain] = entry
	if err := s.ledger.Save(ledger); err != nil {
		return nil, err
	}
	requestedAt := entry.RequestedAt
	return &model.Certificate{
		Domain:      entry.Domain,
		SANs:        append([]string{}, entry.SANs...),
		Resolver:    entry.Resolver,
		Status:      model.CertStatusPending,
		RequestedAt: &requestedAt,
		RequestedBy: entry.RequestedBy,
	}, nil
}

// CheckRevoke returns NotFoundError when neither the store nor the ledger knows domain
func (s *CertificateService) CheckRevoke(domain string) error {
	domain = canonicalDomain(domain)
	store, err := acme.ReadStore(s.storePath)
	if err != nil {
		return err
	}
	if _, entry := store.Find(domain); entry != nil {
		return nil
	}
	ledger, err := s.ledger.Load()
	if err != nil {
		return err
	}
	if _, ok := ledger[domain]; ok {
		return nil
	}
	return &model.NotFoundError{Kind: "Certificate", Name: domain}
}

// Revoke drops the domain from the store and the ledger. The engine requests a new
// certificate the next time a route needs one. Callers hold the write lock.
func (s *CertificateService) Revoke(domain string) error {
	domain = canonicalDomain(domain)
	store, err := acme.ReadStore(s.storePath)
	if err != nil {
		return err
	}
	if store.Remove(domain) > 0 {
		data, err := store.Marshal()
		if err != nil {
			return fmt.Errorf("failed to encode certificate store: %w", err)
		}
		if err := repository.AtomicWriteFile(s.storePath, data, config.SecretFilePermissions); err != nil {
			return err
		}
	}

	ledger, err := s.ledger.Load()
	if err != nil {
		return err
	}
	if _, ok := ledger[domain]; ok {
		delete(ledger, domain)
		if err := s.ledger.Save(ledger); err != nil {
			return err
		}
	}
	log.Printf("[Certificate] Revoked %s", domain)
	return nil
}
