// Package testutil holds fixtures shared by package tests
package testutil

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"testing"
	"time"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/stretchr/testify/require"

	"proxy-config-guard/pkg/acme"
)

// SelfSignedEntry creates a self-signed EC certificate for domains, encoded the way
// the engine stores it. The first domain is the main name.
func SelfSignedEntry(t testing.TB, domains []string, notBefore, notAfter time.Time) *acme.CertEntry {
	t.Helper()
	require.NotEmpty(t, domains)

	privateKey, err := certcrypto.GeneratePrivateKey(certcrypto.EC256)
	require.NoError(t, err)
	signer, ok := privateKey.(crypto.Signer)
	require.True(t, ok)

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber:          serialNumber,
		Subject:               pkix.Name{CommonName: domains[0]},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              domains,
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, signer.Public(), signer)
	require.NoError(t, err)

	certPEM := certcrypto.PEMEncode(certcrypto.DERCertificateBytes(certDER))
	keyPEM := certcrypto.PEMEncode(privateKey)

	return &acme.CertEntry{
		Domain:      acme.Domain{Main: domains[0], SANs: domains[1:]},
		Certificate: base64.StdEncoding.EncodeToString(certPEM),
		Key:         base64.StdEncoding.EncodeToString(keyPEM),
		Store:       "default",
	}
}
