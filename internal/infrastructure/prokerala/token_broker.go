// Package prokerala talks to the Prokerala astrology API: an OAuth2
// client-credentials token endpoint and one GET endpoint per data kind.
package prokerala

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/astroask/backend/internal/core/domain/astrology"
	"github.com/astroask/backend/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenBrokerConfig configures credential exchange.
type TokenBrokerConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	// CacheToken keeps a token until Expiry-ExpiryMargin instead of exchanging
	// credentials for every call.
	CacheToken   bool
	ExpiryMargin time.Duration
}

// TokenBroker exchanges client credentials for bearer tokens.
type TokenBroker struct {
	cc         *clientcredentials.Config
	httpClient *http.Client
	cache      bool
	margin     time.Duration
	now        func() time.Time
	shared     ports.TokenStore
	logger     *logrus.Logger

	mu      sync.Mutex
	current astrology.AccessToken
}

// BrokerOption customizes a TokenBroker.
type BrokerOption func(*TokenBroker)

// WithTokenStore shares cached tokens through store. It only applies when
// token caching is enabled; store failures fall back to a local exchange.
func WithTokenStore(store ports.TokenStore) BrokerOption {
	return func(b *TokenBroker) { b.shared = store }
}

func NewTokenBroker(cfg TokenBrokerConfig, httpClient *http.Client, logger *logrus.Logger, opts ...BrokerOption) *TokenBroker {
	b := &TokenBroker{
		cc: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: httpClient,
		cache:      cfg.CacheToken,
		margin:     cfg.ExpiryMargin,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AccessToken implements ports.TokenBroker.
func (b *TokenBroker) AccessToken(ctx context.Context) (astrology.AccessToken, error) {
	if !b.cache {
		return b.exchange(ctx)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current.FreshAt(b.now(), b.margin) {
		return b.current, nil
	}
	if tok, ok := b.loadShared(ctx); ok {
		b.current = tok
		return tok, nil
	}
	tok, err := b.exchange(ctx)
	if err != nil {
		return astrology.AccessToken{}, err
	}
	b.current = tok
	b.saveShared(ctx, tok)
	return tok, nil
}

// Invalidate implements ports.TokenBroker.
func (b *TokenBroker) Invalidate() {
	b.mu.Lock()
	b.current = astrology.AccessToken{}
	b.mu.Unlock()
	if b.shared == nil || !b.cache {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.shared.DeleteToken(ctx); err != nil && b.logger != nil {
		b.logger.WithError(err).Warn("failed to drop shared prokerala token")
	}
}

func (b *TokenBroker) loadShared(ctx context.Context) (astrology.AccessToken, bool) {
	if b.shared == nil {
		return astrology.AccessToken{}, false
	}
	tok, ok, err := b.shared.LoadToken(ctx)
	if err != nil {
		if b.logger != nil {
			b.logger.WithError(err).Warn("shared token store unavailable")
		}
		return astrology.AccessToken{}, false
	}
	return tok, ok && tok.FreshAt(b.now(), b.margin)
}

func (b *TokenBroker) saveShared(ctx context.Context, tok astrology.AccessToken) {
	if b.shared == nil {
		return
	}
	if err := b.shared.SaveToken(ctx, tok); err != nil && b.logger != nil {
		b.logger.WithError(err).Warn("failed to share prokerala token")
	}
}

func (b *TokenBroker) exchange(ctx context.Context) (astrology.AccessToken, error) {
	if b.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	}
	t, err := b.cc.Token(ctx)
	if err != nil {
		if b.logger != nil {
			b.logger.WithField("token_url", b.cc.TokenURL).WithError(err).Warn("prokerala token exchange failed")
		}
		return astrology.AccessToken{}, fmt.Errorf("%w: %v", astrology.ErrUpstreamAuth, err)
	}
	if t.AccessToken == "" {
		return astrology.AccessToken{}, fmt.Errorf("%w: response missing access_token", astrology.ErrUpstreamAuth)
	}
	return astrology.AccessToken{Value: t.AccessToken, ObtainedAt: b.now(), Expiry: t.Expiry}, nil
}

var _ ports.TokenBroker = (*TokenBroker)(nil)
