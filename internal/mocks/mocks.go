package mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/astroask/backend/internal/core/domain/astrology"
	"github.com/astroask/backend/internal/core/ports"
)

// TokenBrokerMock is a lightweight mock for TokenBroker
type TokenBrokerMock struct {
	AccessTokenFn func(ctx context.Context) (astrology.AccessToken, error)
	InvalidateFn  func()
}

func (m *TokenBrokerMock) AccessToken(ctx context.Context) (astrology.AccessToken, error) {
	if m.AccessTokenFn != nil {
		return m.AccessTokenFn(ctx)
	}
	return astrology.AccessToken{Value: "test-token", ObtainedAt: time.Now(), Expiry: time.Now().Add(time.Hour)}, nil
}
func (m *TokenBrokerMock) Invalidate() {
	if m.InvalidateFn != nil {
		m.InvalidateFn()
	}
}

// TokenStoreMock is an in-memory ports.TokenStore with optional failure hooks.
type TokenStoreMock struct {
	mu    sync.Mutex
	Token *astrology.AccessToken

	LoadErr error
	Saves   int
	Deletes int
}

func (m *TokenStoreMock) LoadToken(ctx context.Context) (astrology.AccessToken, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LoadErr != nil {
		return astrology.AccessToken{}, false, m.LoadErr
	}
	if m.Token == nil {
		return astrology.AccessToken{}, false, nil
	}
	return *m.Token, true, nil
}
func (m *TokenStoreMock) SaveToken(ctx context.Context, tok astrology.AccessToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	m.Token = &tok
	return nil
}
func (m *TokenStoreMock) DeleteToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	m.Token = nil
	return nil
}

// AstrologyGatewayMock is a lightweight mock for AstrologyGateway
type AstrologyGatewayMock struct {
	FetchChartFn  func(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error)
	FetchDashaFn  func(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error)
	FetchYearlyFn func(ctx context.Context, req *astrology.AstrologyRequest, lang astrology.Language) (json.RawMessage, error)
}

func (m *AstrologyGatewayMock) FetchChart(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error) {
	if m.FetchChartFn != nil {
		return m.FetchChartFn(ctx, req)
	}
	return nil, fmt.Errorf("%w: no chart stub", astrology.ErrUpstreamUnavailable)
}
func (m *AstrologyGatewayMock) FetchDasha(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error) {
	if m.FetchDashaFn != nil {
		return m.FetchDashaFn(ctx, req)
	}
	return nil, fmt.Errorf("%w: no dasha stub", astrology.ErrUpstreamUnavailable)
}
func (m *AstrologyGatewayMock) FetchYearly(ctx context.Context, req *astrology.AstrologyRequest, lang astrology.Language) (json.RawMessage, error) {
	if m.FetchYearlyFn != nil {
		return m.FetchYearlyFn(ctx, req, lang)
	}
	return nil, fmt.Errorf("%w: no yearly stub", astrology.ErrUpstreamUnavailable)
}

// ExplanationGatewayMock is a lightweight mock for ExplanationGateway
type ExplanationGatewayMock struct {
	ExplainFn func(ctx context.Context, kind astrology.OperationKind, data json.RawMessage, lang astrology.Language) (*astrology.Explanation, error)
}

func (m *ExplanationGatewayMock) Explain(ctx context.Context, kind astrology.OperationKind, data json.RawMessage, lang astrology.Language) (*astrology.Explanation, error) {
	if m.ExplainFn != nil {
		return m.ExplainFn(ctx, kind, data, lang)
	}
	return nil, fmt.Errorf("%w: no explain stub", astrology.ErrUpstreamUnavailable)
}

// ReadingServiceMock is a lightweight mock for ReadingService
type ReadingServiceMock struct {
	ChartFn   func(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error)
	DashaFn   func(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error)
	YearlyFn  func(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error)
	ExplainFn func(ctx context.Context, req *astrology.ExplanationRequest) (*astrology.Explanation, error)
}

func (m *ReadingServiceMock) Chart(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error) {
	if m.ChartFn != nil {
		return m.ChartFn(ctx, req)
	}
	return json.RawMessage(`{}`), nil
}
func (m *ReadingServiceMock) Dasha(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error) {
	if m.DashaFn != nil {
		return m.DashaFn(ctx, req)
	}
	return json.RawMessage(`{}`), nil
}
func (m *ReadingServiceMock) Yearly(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error) {
	if m.YearlyFn != nil {
		return m.YearlyFn(ctx, req)
	}
	return json.RawMessage(`{}`), nil
}
func (m *ReadingServiceMock) Explain(ctx context.Context, req *astrology.ExplanationRequest) (*astrology.Explanation, error) {
	if m.ExplainFn != nil {
		return m.ExplainFn(ctx, req)
	}
	return &astrology.Explanation{Text: "stub"}, nil
}

// RateLimiterServiceMock mocks ports.RateLimiterService
type RateLimiterServiceMock struct {
	AllowFn func(ctx context.Context, clientKey string) (bool, int, int, time.Time, error)
}

// Allow implements ports.RateLimiterService.
func (m *RateLimiterServiceMock) Allow(ctx context.Context, clientKey string) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, clientKey)
	}
	return true, 100, 100, time.Now().Add(time.Minute), nil
}

// HealthCheckerMock mocks ports.HealthChecker
type HealthCheckerMock struct {
	NameValue string
	CheckFn   func(ctx context.Context) error
}

func (m *HealthCheckerMock) Name() string { return m.NameValue }
func (m *HealthCheckerMock) Check(ctx context.Context) error {
	if m.CheckFn != nil {
		return m.CheckFn(ctx)
	}
	return nil
}

// MemoryCache is an in-memory ports.Cache. The Fn hooks, when set, replace the
// default behavior so tests can inject failures.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte

	GetFn    func(ctx context.Context, key string) ([]byte, bool, error)
	SetFn    func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFn func(ctx context.Context, key string) error
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFn != nil {
		return m.SetFn(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Put stores raw bytes directly, bypassing hooks.
func (m *MemoryCache) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = value
}

// Keys returns the stored keys.
func (m *MemoryCache) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of stored entries.
func (m *MemoryCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

var (
	_ ports.TokenBroker        = (*TokenBrokerMock)(nil)
	_ ports.TokenStore         = (*TokenStoreMock)(nil)
	_ ports.AstrologyGateway   = (*AstrologyGatewayMock)(nil)
	_ ports.ExplanationGateway = (*ExplanationGatewayMock)(nil)
	_ ports.ReadingService     = (*ReadingServiceMock)(nil)
	_ ports.RateLimiterService = (*RateLimiterServiceMock)(nil)
	_ ports.HealthChecker      = (*HealthCheckerMock)(nil)
	_ ports.Cache              = (*MemoryCache)(nil)
)
