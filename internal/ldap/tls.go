package ldap

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// BuildTLSConfig returns the TLS configuration for the connection. An explicit
// TLSConfig is cloned and extended with the configured CA material.
func (c *ConnectionConfig) BuildTLSConfig() (*tls.Config, error) {
	var tlsConfig *tls.Config
	if c.TLSConfig != nil {
		tlsConfig = c.TLSConfig.Clone()
	} else {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if host := c.Host(); host != "" && tlsConfig.ServerName == "" {
		tlsConfig.ServerName = host
	}

	if c.SkipTLSVerify {
		tlsConfig.InsecureSkipVerify = true // #nosec G402 -- opt-in via skip_tls_verify
	}

	if c.TLSCACertFile == "" && c.TLSCACert == "" {
		return tlsConfig, nil
	}

	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}

	if c.TLSCACertFile != "" {
		pem, err := os.ReadFile(c.TLSCACertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate file %s: %w", c.TLSCACertFile, err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA certificate file %s", c.TLSCACertFile)
		}
	}

	if c.TLSCACert != "" {
		if !pool.AppendCertsFromPEM([]byte(c.TLSCACert)) {
			return nil, fmt.Errorf("no certificates found in CA certificate content")
		}
	}

	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}
