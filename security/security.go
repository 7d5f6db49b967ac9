// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package security builds isolated trust stores from pinned certificates.
//
// Pinning restricts the certificates accepted when delivering crash
// reports to a single known CA instead of the host's full system
// trust set. It is an optional hardening feature, not a correctness
// requirement: every failure while constructing a trust store
// degrades to "use default system trust" rather than aborting report
// delivery.
package security

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io"
	"log/slog"

	"github.com/z5labs/crashkit/internal/noop"
	"github.com/z5labs/crashkit/internal/try"

	"go.opentelemetry.io/otel"
)

// CertificateSource supplies a byte stream containing one PEM or DER
// encoded certificate. It is implemented by the host, for example by
// reading from bundled resources, device storage or a remote fetch.
//
// Returning (nil, nil) signals that no pinning is configured. It is
// not an error.
type CertificateSource interface {
	Open(context.Context) (io.ReadCloser, error)
}

// CertificateSourceFunc is a functional implementation of the
// CertificateSource interface.
type CertificateSourceFunc func(context.Context) (io.ReadCloser, error)

// Open implements the CertificateSource interface.
func (f CertificateSourceFunc) Open(ctx context.Context) (io.ReadCloser, error) {
	return f(ctx)
}

// AnchorAlias is the fixed alias every trust anchor is stored under.
const AnchorAlias = "ca"

// TrustStore holds exactly one certificate as a trust anchor, keyed
// by [AnchorAlias]. It is immutable once constructed.
type TrustStore struct {
	cert *x509.Certificate
}

// Alias returns the alias the anchor is stored under.
func (ts *TrustStore) Alias() string {
	return AnchorAlias
}

// Anchor returns the trust anchor certificate.
func (ts *TrustStore) Anchor() *x509.Certificate {
	return ts.cert
}

// Fingerprint returns the SHA-256 digest of the anchor's raw DER encoding.
func (ts *TrustStore) Fingerprint() [sha256.Size]byte {
	return sha256.Sum256(ts.cert.Raw)
}

// CertPool returns a fresh x509.CertPool containing only the anchor,
// suitable for tls.Config.RootCAs. A new pool is allocated on every
// call so callers can not interfere with each other.
func (ts *TrustStore) CertPool() *x509.CertPool {
	pool := x509.NewCertPool()
	pool.AddCert(ts.cert)
	return pool
}

type options struct {
	logHandler slog.Handler
}

// Option configures optional trust store construction behaviour.
type Option func(*options)

// LogHandler configures the slog.Handler construction diagnostics
// are written to. By default they are discarded.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

var (
	errNoCertificate        = errors.New("stream contains no certificate")
	errNotCertificatePEM    = errors.New("first pem block is not a certificate")
	errMalformedCertificate = errors.New("malformed certificate")
)

// NewTrustStore constructs a TrustStore holding the single
// certificate supplied by src as its trust anchor.
//
// A nil return value signals absence, in one of two ways:
//
//   - src is nil or produced no stream: pinning is simply not
//     configured and nothing is read.
//   - the stream could not be read or did not contain exactly one
//     parseable certificate: the failure is logged and swallowed.
//
// Callers must treat nil as "fall back to default system trust".
// Construction never fails loudly because pinning is best effort.
//
// NewTrustStore is safe to call concurrently and repeatedly. Each
// call reopens the source and allocates an independent store.
func NewTrustStore(ctx context.Context, src CertificateSource, opts ...Option) *TrustStore {
	o := &options{
		logHandler: noop.LogHandler{},
	}
	for _, opt := range opts {
		opt(o)
	}
	log := slog.New(o.logHandler)

	spanCtx, span := otel.Tracer("security").Start(ctx, "NewTrustStore")
	defer span.End()

	if src == nil {
		return nil
	}

	rc, err := src.Open(spanCtx)
	if err != nil {
		log.ErrorContext(spanCtx, "failed to open certificate source", slog.Any("error", err))
		return nil
	}
	if rc == nil {
		return nil
	}

	cert, err := readCertificate(rc)
	if err != nil {
		log.ErrorContext(spanCtx, "failed to read certificate", slog.Any("error", err))
		return nil
	}
	return &TrustStore{cert: cert}
}

// readCertificate parses exactly one PEM or DER encoded certificate
// from rc. rc is closed on every exit path.
func readCertificate(rc io.ReadCloser) (_ *x509.Certificate, err error) {
	defer try.Close(&err, rc)

	b, err := io.ReadAll(bufio.NewReader(rc))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, errNoCertificate
	}

	if bytes.HasPrefix(bytes.TrimSpace(b), []byte("-----BEGIN")) {
		block, _ := pem.Decode(b)
		if block == nil {
			return nil, errNoCertificate
		}
		if block.Type != "CERTIFICATE" {
			return nil, errNotCertificatePEM
		}
		b = block.Bytes
	}

	cert, err := x509.ParseCertificate(b)
	if err != nil {
		return nil, errors.Join(errMalformedCertificate, err)
	}
	return cert, nil
}
