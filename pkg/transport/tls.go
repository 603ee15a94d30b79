package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"

	"golang.org/x/net/idna"
)

// TLSErrorKind is the type of TLSError that occurred.
type TLSErrorKind int

const (
	// TLSErrorNoDomain means the gateway URL has no domain part.
	TLSErrorNoDomain TLSErrorKind = iota
	// TLSErrorSystemCerts means the system root certificates could not be loaded.
	TLSErrorSystemCerts
)

func (k TLSErrorKind) String() string {
	switch k {
	case TLSErrorNoDomain:
		return "gateway URL has no domain part"
	case TLSErrorSystemCerts:
		return "could not load system certificates"
	default:
		return fmt.Sprintf("TLSErrorKind(%d)", int(k))
	}
}

// TLSError is returned when the TLS configuration can't be built.
type TLSError struct {
	Kind TLSErrorKind
	Err  error
}

func (e *TLSError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *TLSError) Unwrap() error {
	return e.Err
}

// TLSContainer holds the root certificates shared by every shard so that
// the pool is loaded once per process.
type TLSContainer struct {
	roots *x509.CertPool
}

// NewTLSContainer loads the system root certificates.
func NewTLSContainer() (*TLSContainer, error) {
	roots, err := x509.SystemCertPool()
	if err != nil {
		return nil, &TLSError{Kind: TLSErrorSystemCerts, Err: err}
	}
	return &TLSContainer{roots: roots}, nil
}

// NewTLSContainerWithRoots uses the given pool instead of the system roots.
func NewTLSContainerWithRoots(roots *x509.CertPool) *TLSContainer {
	return &TLSContainer{roots: roots}
}

// Domain returns the "domain:443" address of a gateway URL. IP hosts have
// no domain to verify a certificate against and are rejected.
func (c *TLSContainer) Domain(u *url.URL) (string, error) {
	host, err := c.serverName(u)
	if err != nil {
		return "", err
	}
	return net.JoinHostPort(host, "443"), nil
}

// ClientConfig returns a TLS configuration for connecting to u.
func (c *TLSContainer) ClientConfig(u *url.URL) (*tls.Config, error) {
	host, err := c.serverName(u)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		RootCAs:    c.roots,
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}, nil
}

func (c *TLSContainer) serverName(u *url.URL) (string, error) {
	host := u.Hostname()
	if host == "" || net.ParseIP(host) != nil {
		return "", &TLSError{Kind: TLSErrorNoDomain}
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", &TLSError{Kind: TLSErrorNoDomain, Err: err}
	}
	return ascii, nil
}
