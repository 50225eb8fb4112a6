package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"time"

	"formpilot/internal/config"
)

// certExpiryWarning is how close to NotAfter a certificate may get before
// startup warns about it.
const certExpiryWarning = 30 * 24 * time.Hour

// configureTLS attaches the server certificate to httpServer. An expired
// certificate stops startup.
func (s *Server) configureTLS(httpServer *http.Server) error {
	tlsConfig, err := serverTLSConfig(s.TLSConfig)
	if err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	if tlsConfig == nil {
		fmt.Printf("Starting server on http://%s (TLS disabled)\n", httpServer.Addr)
		return nil
	}

	leaf := tlsConfig.Certificates[0].Leaf
	left := time.Until(leaf.NotAfter)
	if left <= 0 {
		return fmt.Errorf("server certificate for %q expired on %s", leaf.Subject.CommonName, leaf.NotAfter.Format(time.DateOnly))
	}
	if left < certExpiryWarning {
		s.Logger.Warn("Server certificate expires soon",
			"subject", leaf.Subject.CommonName,
			"not_after", leaf.NotAfter.Format(time.RFC3339))
	}

	httpServer.TLSConfig = tlsConfig
	fmt.Printf("Starting server on https://%s (%s, certificate valid until %s)\n",
		httpServer.Addr, tls.VersionName(tlsConfig.MinVersion)+"+", leaf.NotAfter.Format(time.DateOnly))
	return nil
}

// serverTLSConfig builds the listener TLS settings. It returns nil when TLS
// is disabled. Vault-provided content wins over files.
func serverTLSConfig(cfg config.TLSConfig) (*tls.Config, error) {
	switch cfg.Mode {
	case "", "disabled":
		return nil, nil
	case "server":
	default:
		return nil, fmt.Errorf("invalid TLS mode: %s (must be 'disabled' or 'server')", cfg.Mode)
	}

	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case cfg.CertContent != "" && cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	default:
		return nil, fmt.Errorf("TLS mode 'server' needs a certificate and key, as files or Vault content")
	}
	if err != nil {
		return nil, fmt.Errorf("load server certificate: %w", err)
	}
	if cert.Leaf == nil {
		if cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return nil, fmt.Errorf("parse server certificate: %w", err)
		}
	}

	minVersion := uint16(tls.VersionTLS12)
	if cfg.MinVersion == "1.3" {
		minVersion = tls.VersionTLS13
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: minVersion}, nil
}
