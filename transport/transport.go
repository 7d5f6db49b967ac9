// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package transport constructs the secure channel crash reports are
// delivered over.
//
// It builds a production ready http.Client whose certificate
// validation can be restricted to the anchors of a
// [security.TrustStore]. When no trust store is supplied the client
// falls back to the platform's default trust set. The actual report
// transfer is performed by sender components which consume the
// returned client as an opaque input.
package transport

import (
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/z5labs/crashkit/config"
	"github.com/z5labs/crashkit/internal/noop"
	"github.com/z5labs/crashkit/security"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type circuitOptions struct {
	maxRequests uint32
	interval    time.Duration
	timeout     time.Duration
	tripCount   uint32
	statusCodes []int
}

func withCircuitOption(f func(*circuitOptions)) Option {
	return func(o *options) {
		if o.co == nil {
			o.co = new(circuitOptions)
		}
		f(o.co)
	}
}

// HalfOpenRequests is the maximum number of requests allowed through
// while the circuit is half-open.
func HalfOpenRequests(n uint32) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.maxRequests = n
	})
}

// OpenStateTimeout is the period of the open state, after which the
// circuit becomes half-open.
func OpenStateTimeout(d time.Duration) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.timeout = d
	})
}

// CountResetInterval is the cyclic period of the closed state during
// which the circuit clears its internal counts.
func CountResetInterval(d time.Duration) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.interval = d
	})
}

// TripAfter determines the number of consecutive failures required
// to trip the circuit.
func TripAfter(n uint32) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.tripCount = n
	})
}

// FailOnStatusCode registers an HTTP response status code which
// should be counted as a failure by the circuit breaker.
//
// Default: 400, 401, 403, 500
func FailOnStatusCode(n int) Option {
	return withCircuitOption(func(co *circuitOptions) {
		co.statusCodes = append(co.statusCodes, n)
	})
}

type retryOptions struct {
	maxRetries int
	waitMin    time.Duration
	waitMax    time.Duration
}

func withRetryOption(f func(*retryOptions)) Option {
	return func(o *options) {
		if o.ro == nil {
			o.ro = &retryOptions{
				maxRetries: 2,
				waitMin:    100 * time.Millisecond,
				waitMax:    5 * time.Second,
			}
		}
		f(o.ro)
	}
}

// RetryRequests enables request retries with sane defaults.
func RetryRequests() Option {
	return withRetryOption(func(ro *retryOptions) {})
}

// MaxAttempts sets the maximum number of retries per request.
func MaxAttempts(n int) Option {
	return withRetryOption(func(ro *retryOptions) {
		ro.maxRetries = n
	})
}

// MinWaitDuration sets the minimum wait between retries.
func MinWaitDuration(min time.Duration) Option {
	return withRetryOption(func(ro *retryOptions) {
		ro.waitMin = min
	})
}

// MaxWaitDuration sets the maximum wait between retries.
func MaxWaitDuration(max time.Duration) Option {
	return withRetryOption(func(ro *retryOptions) {
		ro.waitMax = max
	})
}

type options struct {
	timeout     time.Duration
	dialTimeout time.Duration
	rt          http.RoundTripper
	store       *security.TrustStore

	name       string
	logHandler slog.Handler

	co *circuitOptions
	ro *retryOptions
}

// Option configures the constructed http.Client.
type Option func(*options)

// Name names the channel. It is attached to every log record the
// client emits.
func Name(s string) Option {
	return func(o *options) {
		o.name = s
	}
}

// RoundTripper overrides the base http.RoundTripper. It takes
// precedence over [TrustStore] and [DialTimeout], which only shape
// the default base transport.
func RoundTripper(rt http.RoundTripper) Option {
	return func(o *options) {
		o.rt = rt
	}
}

// Timeout provides a global timeout value for the http.Client.
func Timeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// DialTimeout bounds connection establishment.
func DialTimeout(d time.Duration) Option {
	return func(o *options) {
		o.dialTimeout = d
	}
}

// LogHandler configures the slog.Handler request/response diagnostics
// are written to. By default they are discarded.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// TrustStore restricts certificate validation to the anchors of the
// given store. A nil store leaves the platform's default trust set
// in place.
func TrustStore(store *security.TrustStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// New returns an http.Client for delivering crash reports.
//
// The client's base transport is instrumented with OTel. Retries and
// circuit breaking are layered on top when the respective options
// are given.
func New(opts ...Option) *http.Client {
	o := &options{
		logHandler: noop.LogHandler{},
	}
	for _, opt := range opts {
		opt(o)
	}

	logger := slog.New(o.logHandler)
	if o.name != "" {
		logger = logger.With(slog.String("http_client", o.name))
	}

	base := o.rt
	if base == nil {
		base = baseTransport(o)
	}

	var rt http.RoundTripper = &logRoundTripper{
		base: otelhttp.NewTransport(base),
		log:  logger,
	}

	if o.co != nil {
		co := o.co
		if len(co.statusCodes) == 0 {
			co.statusCodes = append(
				co.statusCodes,
				http.StatusBadRequest,          // 400
				http.StatusUnauthorized,        // 401
				http.StatusForbidden,           // 403
				http.StatusInternalServerError, // 500
			)
		}

		codes := map[int]struct{}{}
		for _, code := range co.statusCodes {
			codes[code] = struct{}{}
		}

		rt = &circuitRoundTripper{
			base: rt,
			cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        o.name,
				MaxRequests: co.maxRequests,
				Interval:    co.interval,
				Timeout:     co.timeout,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= co.tripCount
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					switch to {
					case gobreaker.StateOpen:
						logger.Error("circuit has been opened")
					case gobreaker.StateHalfOpen:
						logger.Warn(
							"circuit is now half open and letting some requests through",
							slog.Uint64("max_requests_allowed_through", uint64(co.maxRequests)),
						)
					case gobreaker.StateClosed:
						logger.Info("circuit has been closed")
					}
				},
			}),
			onStatusCode: func(n int) error {
				_, ok := codes[n]
				if !ok {
					return nil
				}
				return errors.New("status code error")
			},
		}
	}
	if o.ro == nil {
		return &http.Client{
			Timeout:   o.timeout,
			Transport: rt,
		}
	}

	ro := o.ro
	rc := retryablehttp.Client{
		HTTPClient: &http.Client{
			Timeout:   o.timeout,
			Transport: rt,
		},
		RetryWaitMin: ro.waitMin,
		RetryWaitMax: ro.waitMax,
		RetryMax:     ro.maxRetries,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	return rc.StandardClient()
}

// NewFromConfig maps resolved settings onto the channel: the socket
// timeout bounds the whole exchange, the connection timeout bounds
// dialing and the trust store, when non-nil, pins certificate
// validation. Extra options are applied afterwards.
func NewFromConfig(cfg config.Config, store *security.TrustStore, opts ...Option) *http.Client {
	base := []Option{
		Timeout(cfg.SocketTimeout()),
		DialTimeout(cfg.ConnectionTimeout()),
		TrustStore(store),
	}
	return New(append(base, opts...)...)
}

func baseTransport(o *options) *http.Transport {
	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if o.dialTimeout > 0 {
		d := &net.Dialer{
			Timeout: o.dialTimeout,
		}
		t.DialContext = d.DialContext
	}
	if o.store != nil {
		t.TLSClientConfig = &tls.Config{
			RootCAs: o.store.CertPool(),
		}
	}
	return t
}

type logRoundTripper struct {
	base http.RoundTripper
	log  *slog.Logger
}

func (rt *logRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	start := time.Now()
	rt.log.InfoContext(
		ctx,
		"request sent",
		slog.String("url", req.URL.String()),
	)
	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	rt.log.InfoContext(
		ctx,
		"response received",
		slog.String("url", req.URL.String()),
		slog.Duration("latency", time.Since(start)),
	)
	return resp, err
}

type circuitRoundTripper struct {
	base         http.RoundTripper
	cb           *gobreaker.CircuitBreaker
	onStatusCode func(int) error
}

func (rt *circuitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	v, err := rt.cb.Execute(func() (any, error) {
		resp, err := rt.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		err = rt.onStatusCode(resp.StatusCode)
		if err != nil {
			// the response is discarded, so the body must be
			// drained and closed here.
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}
