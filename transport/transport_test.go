// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package transport

import (
	"context"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/z5labs/crashkit/config"
	"github.com/z5labs/crashkit/security"

	"github.com/stretchr/testify/require"
)

func TestTimeout(t *testing.T) {
	t.Run("will timeout", func(t *testing.T) {
		t.Run("if the server is slower than the configured timeout", func(t *testing.T) {
			timeout := 500 * time.Millisecond
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * timeout):
				}
			}))
			defer srv.Close()

			client := New(Timeout(timeout))
			_, err := client.Get(srv.URL)

			var nerr net.Error
			require.ErrorAs(t, err, &nerr)
			require.True(t, nerr.Timeout())
		})
	})
}

func TestRetry(t *testing.T) {
	t.Run("will retry the request", func(t *testing.T) {
		t.Run("if the server responds with a 5xx status code", func(t *testing.T) {
			var requests atomic.Int64
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if requests.Add(1) < 3 {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			client := New(
				RetryRequests(),
				MaxAttempts(2),
				MinWaitDuration(time.Millisecond),
				MaxWaitDuration(5*time.Millisecond),
			)

			resp, err := client.Get(srv.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Equal(t, int64(3), requests.Load())
		})
	})
}

func TestCircuitBreaker(t *testing.T) {
	t.Run("will open the circuit", func(t *testing.T) {
		t.Run("if enough consecutive requests fail on their status code", func(t *testing.T) {
			var requests atomic.Int64
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				requests.Add(1)
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			client := New(
				TripAfter(2),
				OpenStateTimeout(time.Minute),
			)

			for i := 0; i < 2; i++ {
				_, err := client.Get(srv.URL)
				require.Error(t, err)
			}

			_, err := client.Get(srv.URL)
			require.Error(t, err)
			require.Contains(t, err.Error(), "circuit breaker is open")
			require.Equal(t, int64(2), requests.Load())
		})
	})

	t.Run("will release the response body", func(t *testing.T) {
		t.Run("if the status code is counted as a failure", func(t *testing.T) {
			body := &closeTrackingBody{Reader: strings.NewReader("internal server error")}
			rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusInternalServerError,
					Header:     make(http.Header),
					Body:       body,
				}, nil
			})

			client := New(
				RoundTripper(rt),
				TripAfter(100),
			)

			_, err := client.Get("http://example.com")
			require.Error(t, err)
			require.True(t, body.closed.Load())
		})
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

type closeTrackingBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *closeTrackingBody) Close() error {
	b.closed.Store(true)
	return nil
}

func TestTrustStore(t *testing.T) {
	t.Run("will validate the peer against the pinned anchor", func(t *testing.T) {
		t.Run("if the server presents the pinned certificate", func(t *testing.T) {
			srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			store := security.NewTrustStore(
				context.Background(),
				security.BytesSource(srv.Certificate().Raw),
			)
			require.NotNil(t, store)

			client := New(TrustStore(store))
			resp, err := client.Get(srv.URL)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusOK, resp.StatusCode)
		})
	})

	t.Run("will reject the peer", func(t *testing.T) {
		t.Run("if no trust store is given and the certificate is self signed", func(t *testing.T) {
			srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer srv.Close()

			client := New()
			_, err := client.Get(srv.URL)
			require.Error(t, err)

			var uerr x509.UnknownAuthorityError
			require.ErrorAs(t, err, &uerr)
		})
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Run("will map resolved settings onto the channel", func(t *testing.T) {
		t.Run("if a resolved config is given", func(t *testing.T) {
			cfg := config.NewBuilder(config.Manifest{}).
				SetSocketTimeout(10 * time.Second).
				SetConnectionTimeout(time.Second).
				Resolve()

			client := NewFromConfig(cfg, nil)
			require.NotNil(t, client)
			require.Equal(t, 10*time.Second, client.Timeout)
		})

		t.Run("while still applying extra options afterwards", func(t *testing.T) {
			cfg := config.NewBuilder(config.Manifest{}).Resolve()

			client := NewFromConfig(cfg, nil, Timeout(time.Minute))
			require.Equal(t, time.Minute, client.Timeout)
		})
	})
}
