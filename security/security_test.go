// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package security

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func generateCert(t *testing.T) (der []byte, pemBytes []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "crashkit test ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	der, err = x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	pemBytes = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return
}

type trackingReadCloser struct {
	io.Reader
	closed bool
}

func (rc *trackingReadCloser) Close() error {
	rc.closed = true
	return nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("i/o failure")
}

func TestNewTrustStore(t *testing.T) {
	t.Run("will return a trust store", func(t *testing.T) {
		t.Run("if the source supplies a PEM encoded certificate", func(t *testing.T) {
			der, pemBytes := generateCert(t)

			store := NewTrustStore(context.Background(), BytesSource(pemBytes))
			require.NotNil(t, store)

			require.Equal(t, AnchorAlias, store.Alias())
			require.Equal(t, sha256.Sum256(der), store.Fingerprint())
		})

		t.Run("if the source supplies a DER encoded certificate", func(t *testing.T) {
			der, _ := generateCert(t)

			store := NewTrustStore(context.Background(), BytesSource(der))
			require.NotNil(t, store)
			require.Equal(t, sha256.Sum256(der), store.Fingerprint())
		})
	})

	t.Run("will signal absence", func(t *testing.T) {
		t.Run("if the source is nil", func(t *testing.T) {
			store := NewTrustStore(context.Background(), nil)
			require.Nil(t, store)
		})

		t.Run("if the source produces no stream", func(t *testing.T) {
			src := CertificateSourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
				return nil, nil
			})

			store := NewTrustStore(context.Background(), src)
			require.Nil(t, store)
		})

		t.Run("if the source fails to open", func(t *testing.T) {
			src := CertificateSourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
				return nil, errors.New("open failure")
			})

			store := NewTrustStore(context.Background(), src)
			require.Nil(t, store)
		})

		t.Run("if the certificate is malformed", func(t *testing.T) {
			store := NewTrustStore(context.Background(), BytesSource([]byte("definitely not a certificate")))
			require.Nil(t, store)
		})

		t.Run("if the first pem block is not a certificate", func(t *testing.T) {
			block := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{0x01}})

			store := NewTrustStore(context.Background(), BytesSource(block))
			require.Nil(t, store)
		})

		t.Run("if reading the stream fails", func(t *testing.T) {
			rc := &trackingReadCloser{Reader: failingReader{}}
			src := CertificateSourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
				return rc, nil
			})

			store := NewTrustStore(context.Background(), src)
			require.Nil(t, store)
			require.True(t, rc.closed)
		})
	})

	t.Run("will release the stream", func(t *testing.T) {
		t.Run("if the certificate parses successfully", func(t *testing.T) {
			_, pemBytes := generateCert(t)
			rc := &trackingReadCloser{Reader: bytes.NewReader(pemBytes)}
			src := CertificateSourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
				return rc, nil
			})

			store := NewTrustStore(context.Background(), src)
			require.NotNil(t, store)
			require.True(t, rc.closed)
		})

		t.Run("if the certificate is malformed", func(t *testing.T) {
			rc := &trackingReadCloser{Reader: bytes.NewReader([]byte("garbage"))}
			src := CertificateSourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
				return rc, nil
			})

			store := NewTrustStore(context.Background(), src)
			require.Nil(t, store)
			require.True(t, rc.closed)
		})
	})

	t.Run("will allocate an independent store per call", func(t *testing.T) {
		t.Run("if called concurrently with the same source", func(t *testing.T) {
			der, pemBytes := generateCert(t)
			src := BytesSource(pemBytes)

			stores := make([]*TrustStore, 10)
			var eg errgroup.Group
			for i := range stores {
				i := i
				eg.Go(func() error {
					stores[i] = NewTrustStore(context.Background(), src)
					if stores[i] == nil {
						return errors.New("expected a trust store")
					}
					return nil
				})
			}
			require.NoError(t, eg.Wait())

			for i, store := range stores {
				require.Equal(t, sha256.Sum256(der), store.Fingerprint())
				for j := i + 1; j < len(stores); j++ {
					require.NotSame(t, store, stores[j])
				}
			}
		})
	})
}

func TestTrustStore_CertPool(t *testing.T) {
	t.Run("will return a fresh pool", func(t *testing.T) {
		t.Run("if called multiple times", func(t *testing.T) {
			_, pemBytes := generateCert(t)

			store := NewTrustStore(context.Background(), BytesSource(pemBytes))
			require.NotNil(t, store)

			a := store.CertPool()
			b := store.CertPool()
			require.NotSame(t, a, b)
			require.True(t, a.Equal(b))
		})
	})
}
