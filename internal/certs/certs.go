// Package certs issues a self-signed certificate so the API can be served
// over HTTPS on a local network.
package certs

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	certName = "server.crt"
	keyName  = "server.key"

	// Validity is how long an issued certificate lasts.
	Validity = 365 * 24 * time.Hour
	// renewBefore renews certificates this close to expiry.
	renewBefore = 7 * 24 * time.Hour
)

// Store keeps one certificate pair in a directory, reissuing it when it is
// missing, unreadable, near expiry or issued for other hosts.
type Store struct {
	now    func() time.Time
	logger *slog.Logger
	dir    string
	hosts  []string
}

// NewStore creates a store in dir for the given host names and IPs. With no
// hosts it covers localhost and the loopback addresses.
func NewStore(dir string, hosts []string, logger *slog.Logger) *Store {
	if len(hosts) == 0 {
		hosts = []string{"localhost", "127.0.0.1", "::1"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, hosts: hosts, logger: logger, now: time.Now}
}

// CertFile is the PEM certificate path.
func (s *Store) CertFile() string { return filepath.Join(s.dir, certName) }

// KeyFile is the PEM key path.
func (s *Store) KeyFile() string { return filepath.Join(s.dir, keyName) }

// Certificate returns a usable certificate, issuing a new one if needed.
func (s *Store) Certificate() (tls.Certificate, error) {
	cert, err := tls.LoadX509KeyPair(s.CertFile(), s.KeyFile())
	if err == nil {
		if err = s.check(cert); err == nil {
			return cert, nil
		}
		s.logger.Info("reissuing server certificate", "reason", err)
	} else if !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("unreadable server certificate, reissuing", "error", err)
	}

	return s.issue()
}

// TLSConfig returns a server TLS configuration using the stored
// certificate.
func (s *Store) TLSConfig() (*tls.Config, error) {
	cert, err := s.Certificate()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func (s *Store) check(cert tls.Certificate) error {
	if len(cert.Certificate) == 0 {
		return errors.New("empty certificate chain")
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	now := s.now()
	if now.Before(leaf.NotBefore) {
		return errors.New("certificate not yet valid")
	}
	if now.Add(renewBefore).After(leaf.NotAfter) {
		return errors.New("certificate expires soon")
	}
	for _, host := range s.hosts {
		if err := leaf.VerifyHostname(host); err != nil {
			return fmt.Errorf("certificate does not cover %s", host)
		}
	}
	return nil
}

func (s *Store) issue() (tls.Certificate, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate directory: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate serial: %w", err)
	}

	now := s.now()
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{Organization: []string{"fines"}, CommonName: s.hosts[0]},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(Validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, host := range s.hosts {
		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
		} else {
			template.DNSNames = append(template.DNSNames, host)
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to encode key: %w", err)
	}

	if err := writePEM(s.CertFile(), "CERTIFICATE", der); err != nil {
		return tls.Certificate{}, err
	}
	if err := writePEM(s.KeyFile(), "EC PRIVATE KEY", keyDER); err != nil {
		return tls.Certificate{}, err
	}

	s.logger.Info("issued server certificate", "hosts", s.hosts, "expires", template.NotAfter.Format(time.DateOnly))
	return tls.LoadX509KeyPair(s.CertFile(), s.KeyFile())
}

func writePEM(path, blockType string, der []byte) error {
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
