// Package tls builds the server TLS configuration for the HTTP presenter,
// from PEM files or a generated self-signed certificate.
package tls

import (
	"crypto/tls"
	"time"
)

// Config holds TLS configuration options
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// AutoGenerate creates a self-signed certificate when no files are set
	AutoGenerate bool          `yaml:"auto_generate"`
	Hosts        []string      `yaml:"hosts"`
	Organization string        `yaml:"organization"`
	ValidFor     time.Duration `yaml:"valid_for" validate:"gte=0"`
}

// DefaultConfig returns TLS disabled, with self-signed generation for
// localhost ready if it is switched on
func DefaultConfig() Config {
	return Config{
		AutoGenerate: true,
		Hosts:        []string{"localhost", "127.0.0.1"},
		Organization: "chainviz",
		ValidFor:     365 * 24 * time.Hour,
	}
}

// CertificateInfo holds certificate metadata
type CertificateInfo struct {
	Subject     string
	NotBefore   time.Time
	NotAfter    time.Time
	DNSNames    []string
	IPAddresses []string
}

// ExpiresIn returns the time until certificate expiration
func (ci *CertificateInfo) ExpiresIn() time.Duration {
	return time.Until(ci.NotAfter)
}

// SecureCipherSuites returns the TLS 1.2 suites the server accepts. TLS 1.3
// suites are not configurable.
func SecureCipherSuites() []uint16 {
	return []uint16{
		tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
		tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
	}
}
