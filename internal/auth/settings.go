// Package auth derives per-request authentication and TLS parameters for
// talking to a batch manager.
package auth

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
)

var (
	// ErrIncompleteKeyPair indicates only one of certificate/key was configured
	ErrIncompleteKeyPair = errors.New("client certificate and key must be configured together")

	// ErrEmptyUsername indicates settings were built without a username
	ErrEmptyUsername = errors.New("username cannot be empty")
)

// Credentials are the HTTP basic-auth pair for one session.
type Credentials struct {
	Username string
	Password string
}

// TLSFiles names optional PEM files used for mutual TLS and server
// verification. Empty strings mean "not configured".
type TLSFiles struct {
	Certificate   string
	Key           string
	CACertificate string
}

// Settings holds credentials and TLS material for a session.
// Clear is the only mutation and may run while requests are being built.
type Settings struct {
	files TLSFiles

	mu    sync.RWMutex
	creds Credentials
}

// New validates and builds Settings.
func New(creds Credentials, files TLSFiles) (*Settings, error) {
	if creds.Username == "" {
		return nil, ErrEmptyUsername
	}
	if (files.Certificate == "") != (files.Key == "") {
		return nil, ErrIncompleteKeyPair
	}
	return &Settings{creds: creds, files: files}, nil
}

// Username returns the configured login name.
func (s *Settings) Username() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.Username
}

// ApplyBasicAuth sets the Authorization header on req.
func (s *Settings) ApplyBasicAuth(req *http.Request) {
	s.mu.RLock()
	creds := s.creds
	s.mu.RUnlock()
	req.SetBasicAuth(creds.Username, creds.Password)
}

// MutualTLS reports whether a client certificate will be presented.
func (s *Settings) MutualTLS() bool {
	return s.files.Certificate != ""
}

// VerifiesServer reports whether the manager certificate is checked
// against a configured CA. Without a CA, verification is disabled.
func (s *Settings) VerifiesServer() bool {
	return s.files.CACertificate != ""
}

// TLSConfig loads the client key pair and CA pool from disk.
// When no CA is configured, InsecureSkipVerify is set explicitly.
func (s *Settings) TLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if s.files.CACertificate != "" {
		caCert, err := os.ReadFile(s.files.CACertificate)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}

		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in %s", s.files.CACertificate)
		}
		tlsConfig.RootCAs = certPool
	} else {
		tlsConfig.InsecureSkipVerify = true
	}

	if s.MutualTLS() {
		cert, err := tls.LoadX509KeyPair(s.files.Certificate, s.files.Key)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Transport returns an http.Transport carrying TLSConfig.
func (s *Settings) Transport() (*http.Transport, error) {
	tlsConfig, err := s.TLSConfig()
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return transport, nil
}

// Clear drops the password from memory.
func (s *Settings) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.Password = ""
}
