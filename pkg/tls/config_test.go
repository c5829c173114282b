package tls

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestServerConfig_Disabled(t *testing.T) {
	cfg, err := ServerConfig(DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Error("disabled TLS should return a nil config")
	}
}

func TestServerConfig_AutoGenerate(t *testing.T) {
	c := DefaultConfig()
	c.Enabled = true

	cfg, err := ServerConfig(c)
	if err != nil {
		t.Fatalf("ServerConfig: %v", err)
	}
	if len(cfg.Certificates) != 1 {
		t.Fatalf("expected one certificate, got %d", len(cfg.Certificates))
	}
	if cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("MinVersion = %x, want TLS 1.2", cfg.MinVersion)
	}

	leaf, err := x509.ParseCertificate(cfg.Certificates[0].Certificate[0])
	if err != nil {
		t.Fatalf("parse leaf: %v", err)
	}
	if err := leaf.VerifyHostname("localhost"); err != nil {
		t.Errorf("localhost: %v", err)
	}
	if err := leaf.VerifyHostname("127.0.0.1"); err != nil {
		t.Errorf("127.0.0.1 should be an IP SAN: %v", err)
	}
}

func TestServerConfig_NoCertificate(t *testing.T) {
	c := Config{Enabled: true}
	_, err := ServerConfig(c)
	if !errors.Is(err, ErrNoCertificate) {
		t.Errorf("expected ErrNoCertificate, got %v", err)
	}
}

func TestServerConfig_FromFiles(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "certs", "server.crt")
	keyFile := filepath.Join(dir, "keys", "server.key")

	gen := DefaultConfig()
	gen.Hosts = []string{"chainviz.test"}
	gen.ValidFor = time.Hour
	if err := GenerateAndSave(gen, certFile, keyFile); err != nil {
		t.Fatalf("GenerateAndSave: %v", err)
	}

	st, err := os.Stat(keyFile)
	if err != nil {
		t.Fatalf("stat key: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Errorf("key file mode = %v, want 0600", st.Mode().Perm())
	}

	// files win over generation
	cfg, err := ServerConfig(Config{Enabled: true, CertFile: certFile, KeyFile: keyFile, AutoGenerate: true})
	if err != nil {
		t.Fatalf("ServerConfig: %v", err)
	}
	leaf, err := x509.ParseCertificate(cfg.Certificates[0].Certificate[0])
	if err != nil {
		t.Fatalf("parse leaf: %v", err)
	}
	if err := leaf.VerifyHostname("chainviz.test"); err != nil {
		t.Errorf("loaded certificate should be the saved one: %v", err)
	}

	info, err := GetCertificateInfo(certFile)
	if err != nil {
		t.Fatalf("GetCertificateInfo: %v", err)
	}
	if len(info.DNSNames) != 1 || info.DNSNames[0] != "chainviz.test" {
		t.Errorf("DNSNames = %v", info.DNSNames)
	}
	if d := info.ExpiresIn(); d <= 0 || d > 2*time.Hour {
		t.Errorf("ExpiresIn = %v, want about an hour", d)
	}
}

func TestServerConfig_BadFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := ServerConfig(Config{
		Enabled:  true,
		CertFile: filepath.Join(dir, "missing.crt"),
		KeyFile:  filepath.Join(dir, "missing.key"),
	})
	if err == nil {
		t.Fatal("expected an error for missing files")
	}
}

func TestGetCertificateInfo_NotACertificate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: []byte{1, 2, 3}})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := GetCertificateInfo(path); err == nil {
		t.Error("expected an error for a non-certificate block")
	}
}
