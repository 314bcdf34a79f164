package ports

import (
	"context"
	"encoding/json"

	"github.com/astroask/backend/internal/core/domain/astrology"
)

// TokenBroker hands out bearer credentials for the astrology provider.
// Implementations MUST be safe for concurrent use.
type TokenBroker interface {
	// AccessToken returns a usable token or an error matching astrology.ErrUpstreamAuth.
	AccessToken(ctx context.Context) (astrology.AccessToken, error)
	// Invalidate drops any cached token so the next call exchanges credentials again.
	Invalidate()
}

// AstrologyGateway fetches raw chart, dasha and yearly data from the provider.
// Results are the provider's JSON bodies; no caching happens here.
type AstrologyGateway interface {
	FetchChart(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error)
	FetchDasha(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error)
	FetchYearly(ctx context.Context, req *astrology.AstrologyRequest, lang astrology.Language) (json.RawMessage, error)
}

// ExplanationGateway turns astrology data into prose via a language model.
type ExplanationGateway interface {
	// Explain returns a Degraded placeholder (not an error) when the model answers
	// without text; transport failures match astrology.ErrUpstreamUnavailable.
	Explain(ctx context.Context, kind astrology.OperationKind, data json.RawMessage, lang astrology.Language) (*astrology.Explanation, error)
}

// ReadingService is the cache-fronted entry point used by HTTP handlers.
type ReadingService interface {
	Chart(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error)
	Dasha(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error)
	Yearly(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error)
	Explain(ctx context.Context, req *astrology.ExplanationRequest) (*astrology.Explanation, error)
}

// TokenStore shares a provider token between replicas.
type TokenStore interface {
	// LoadToken returns ok=false when no token is stored.
	LoadToken(ctx context.Context) (tok astrology.AccessToken, ok bool, err error)
	SaveToken(ctx context.Context, tok astrology.AccessToken) error
	DeleteToken(ctx context.Context) error
}
