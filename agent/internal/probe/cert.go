package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// TLSProber dials a host over TLS and reads the leaf certificate.
type TLSProber struct {
	timeout time.Duration

	// Port overrides HTTPSPort. Tests point it at a local listener.
	Port string
}

// NewCertProber returns a TLSProber bounded by timeout.
func NewCertProber(timeout time.Duration) *TLSProber {
	return &TLSProber{timeout: timeout, Port: HTTPSPort}
}

// Probe opens a TLS session to host using host as SNI and reports the
// negotiated leaf certificate.
//
// Verification is disabled: an expired or mis-issued certificate is still
// a successful TLS session, and its expiry is exactly what we want to read.
func (p *TLSProber) Probe(ctx context.Context, host string) CertResult {
	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config: &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: true, //nolint:gosec // inspection only, no data exchanged
		},
	}

	port := p.Port
	if port == "" {
		port = HTTPSPort
	}
	netConn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		slog.Debug("probe: tls dial failed", "host", host, "err", err)
		return CertResult{}
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	return certResult(conn.ConnectionState().PeerCertificates)
}

// certResult extracts expiry, issuer and serial from a connected peer chain.
func certResult(chain []*x509.Certificate) CertResult {
	res := CertResult{OK: true}
	if len(chain) == 0 {
		return res
	}

	leaf := chain[0]
	if !leaf.NotAfter.IsZero() {
		at := leaf.NotAfter.UTC()
		res.ExpiresAt = &at
	}
	res.Issuer = issuerOf(chain)
	if leaf.SerialNumber != nil {
		serial := fmt.Sprintf("%X", leaf.SerialNumber.Bytes())
		res.Serial = &serial
	}
	return res
}

// issuerOf returns the first non-empty of: leaf issuer O, leaf issuer CN,
// then the next chain element's subject O and CN.
func issuerOf(chain []*x509.Certificate) *string {
	leaf := chain[0]
	candidates := []string{firstOf(leaf.Issuer.Organization), leaf.Issuer.CommonName}
	if len(chain) > 1 {
		candidates = append(candidates, firstOf(chain[1].Subject.Organization), chain[1].Subject.CommonName)
	}
	for _, c := range candidates {
		if c != "" {
			v := c
			return &v
		}
	}
	return nil
}

func firstOf(vals []string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
