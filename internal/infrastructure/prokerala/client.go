package prokerala

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/astroask/backend/internal/core/domain/astrology"
	"github.com/astroask/backend/internal/core/ports"
	"github.com/cenkalti/backoff/v4"
	gojson "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	maxBodyBytes   = 8 << 20
	maxLoggedBytes = 64 << 10
)

// Config describes the data endpoints and the resilience policy around them.
type Config struct {
	BaseURL    string
	ChartPath  string
	DashaPath  string
	YearlyPath string
	Ayanamsa   int
	// Timeout bounds a single HTTP attempt.
	Timeout            time.Duration
	MaxRetries         int
	RetryInitialWait   time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
}

// Client implements ports.AstrologyGateway.
type Client struct {
	cfg     Config
	http    *http.Client
	tokens  ports.TokenBroker
	breaker *gobreaker.CircuitBreaker[json.RawMessage]
	calls   *prometheus.CounterVec
	state   *prometheus.GaugeVec
	logger  *logrus.Logger
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithMetrics records upstream call outcomes (labels: upstream, kind, result)
// and the breaker state (label: breaker; 0 closed, 1 half-open, 2 open).
func WithMetrics(calls *prometheus.CounterVec, state *prometheus.GaugeVec) Option {
	return func(c *Client) {
		c.calls = calls
		c.state = state
	}
}

func NewClient(cfg Config, tokens ports.TokenBroker, logger *logrus.Logger, opts ...Option) *Client {
	if cfg.Ayanamsa <= 0 {
		cfg.Ayanamsa = astrology.AyanamsaLahiri
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryInitialWait <= 0 {
		cfg.RetryInitialWait = 250 * time.Millisecond
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = 30 * time.Second
	}
	c := &Client{cfg: cfg, http: http.DefaultClient, tokens: tokens, logger: logger}
	for _, opt := range opts {
		opt(c)
	}

	settings := gobreaker.Settings{
		Name:        "prokerala",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		// Only outages trip the breaker; auth and payload problems do not.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, astrology.ErrUpstreamUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if c.state != nil {
				c.state.WithLabelValues(name).Set(float64(to))
			}
			if c.logger != nil {
				c.logger.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
			}
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker[json.RawMessage](settings)
	return c
}

func (c *Client) FetchChart(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error) {
	return c.fetch(ctx, astrology.KindChart, c.cfg.ChartPath, req, "")
}

func (c *Client) FetchDasha(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error) {
	return c.fetch(ctx, astrology.KindDasha, c.cfg.DashaPath, req, "")
}

func (c *Client) FetchYearly(ctx context.Context, req *astrology.AstrologyRequest, lang astrology.Language) (json.RawMessage, error) {
	return c.fetch(ctx, astrology.KindYearly, c.cfg.YearlyPath, req, lang)
}

func (c *Client) endpoint(path string, req *astrology.AstrologyRequest, lang astrology.Language) string {
	q := url.Values{}
	q.Set("datetime", req.Datetime())
	q.Set("coordinates", req.Coordinates())
	q.Set("ayanamsa", strconv.Itoa(c.cfg.Ayanamsa))
	if lang != "" {
		q.Set("la", string(lang))
	}
	return strings.TrimRight(c.cfg.BaseURL, "/") + path + "?" + q.Encode()
}

func (c *Client) fetch(ctx context.Context, kind astrology.OperationKind, path string, req *astrology.AstrologyRequest, lang astrology.Language) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	endpoint := c.endpoint(path, req, lang)
	body, err := c.breaker.Execute(func() (json.RawMessage, error) {
		return c.getWithRetry(ctx, kind, endpoint)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", astrology.ErrUpstreamUnavailable, err)
	}
	c.record(kind, err)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// getWithRetry retries outages (network errors, 5xx, 429) with exponential
// backoff. Everything else is returned immediately.
func (c *Client) getWithRetry(ctx context.Context, kind astrology.OperationKind, endpoint string) (json.RawMessage, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryInitialWait
	b.MaxElapsedTime = 0
	retries := c.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)

	op := func() (json.RawMessage, error) {
		body, err := c.getAuthorized(ctx, kind, endpoint)
		if err == nil {
			return body, nil
		}
		var oe *outageError
		if errors.As(err, &oe) && ctx.Err() == nil {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{"kind": kind, "wait": wait}).WithError(err).Warn("prokerala call failed; retrying")
		}
	}
	return backoff.RetryNotifyWithData(op, policy, notify)
}

// getAuthorized performs one GET. A 401 invalidates the cached token and the
// request is repeated once with a fresh one.
func (c *Client) getAuthorized(ctx context.Context, kind astrology.OperationKind, endpoint string) (json.RawMessage, error) {
	for attempt := 0; ; attempt++ {
		tok, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		status, body, err := c.get(ctx, endpoint, tok.Value)
		if err != nil {
			return nil, &outageError{err: fmt.Errorf("%w: %v", astrology.ErrUpstreamUnavailable, err)}
		}
		switch {
		case status == http.StatusUnauthorized && attempt == 0:
			c.tokens.Invalidate()
			continue
		case status == http.StatusUnauthorized:
			return nil, fmt.Errorf("%w: provider rejected a fresh token", astrology.ErrUpstreamAuth)
		case status == http.StatusTooManyRequests || status >= 500:
			return nil, &outageError{err: fmt.Errorf("%w: %s returned %d", astrology.ErrUpstreamUnavailable, kind, status)}
		case status < 200 || status > 299:
			c.logBody(kind, status, body)
			return nil, fmt.Errorf("%w: %s returned %d", astrology.ErrUpstreamRejected, kind, status)
		}
		var buf bytes.Buffer
		if !gojson.Valid(body) || gojson.Compact(&buf, body) != nil {
			c.logBody(kind, status, body)
			return nil, fmt.Errorf("%w: %s body is not JSON", astrology.ErrUpstreamMalformed, kind)
		}
		return json.RawMessage(buf.Bytes()), nil
	}
}

func (c *Client) get(ctx context.Context, endpoint, token string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) logBody(kind astrology.OperationKind, status int, body []byte) {
	if c.logger == nil {
		return
	}
	if len(body) > maxLoggedBytes {
		body = body[:maxLoggedBytes]
	}
	c.logger.WithFields(logrus.Fields{"kind": kind, "status": status, "body": string(body)}).Error("unexpected prokerala response")
}

func (c *Client) record(kind astrology.OperationKind, err error) {
	if c.calls == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, astrology.ErrUpstreamAuth):
		result = "auth_error"
	case errors.Is(err, astrology.ErrUpstreamMalformed):
		result = "malformed"
	case errors.Is(err, astrology.ErrUpstreamRejected):
		result = "rejected"
	default:
		result = "unavailable"
	}
	c.calls.WithLabelValues("prokerala", string(kind), result).Inc()
}

// outageError marks failures worth retrying.
type outageError struct{ err error }

func (e *outageError) Error() string { return e.err.Error() }
func (e *outageError) Unwrap() error { return e.err }

var _ ports.AstrologyGateway = (*Client)(nil)
