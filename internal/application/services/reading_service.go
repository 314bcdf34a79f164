package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/astroask/backend/internal/core/domain/astrology"
	"github.com/astroask/backend/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ReadingService fronts the astrology and explanation gateways with a
// fingerprint-keyed cache. A hit never contacts an upstream; a miss calls the
// gateway once and stores only successful results.
type ReadingService struct {
	astro     ports.AstrologyGateway
	explainer ports.ExplanationGateway
	cache     ports.Cache
	ttl       time.Duration
	timeout   time.Duration
	coalesce  bool
	ayanamsa  int
	lookups   *prometheus.CounterVec
	sf        singleflight.Group
	logger    *logrus.Logger
}

// ReadingServiceConfig groups configuration parameters for the reading service.
type ReadingServiceConfig struct {
	// TTL is the freshness window handed to the cache on write.
	TTL time.Duration
	// UpstreamTimeout bounds a single miss, including retries inside the gateway.
	UpstreamTimeout time.Duration
	// Ayanamsa is the reference frame the gateway requests; it is part of every data key.
	Ayanamsa int
	// Coalesce shares one upstream call between concurrent misses on the same key.
	Coalesce bool
	// Lookups counts cache lookups by operation and result; optional.
	Lookups *prometheus.CounterVec
}

func NewReadingService(astro ports.AstrologyGateway, explainer ports.ExplanationGateway, cache ports.Cache, cfg *ReadingServiceConfig, logger *logrus.Logger) *ReadingService {
	// Apply defaults
	ttl := 24 * time.Hour
	timeout := 30 * time.Second
	s := &ReadingService{astro: astro, explainer: explainer, cache: cache, ayanamsa: astrology.AyanamsaLahiri, logger: logger}
	if cfg != nil {
		if cfg.TTL > 0 {
			ttl = cfg.TTL
		}
		if cfg.UpstreamTimeout > 0 {
			timeout = cfg.UpstreamTimeout
		}
		if cfg.Ayanamsa > 0 {
			s.ayanamsa = cfg.Ayanamsa
		}
		s.coalesce = cfg.Coalesce
		s.lookups = cfg.Lookups
	}
	s.ttl = ttl
	s.timeout = timeout
	return s
}

func (s *ReadingService) Chart(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error) {
	return s.readData(ctx, astrology.DataTag(astrology.KindChart), req, "", func(ctx context.Context) (json.RawMessage, error) {
		return s.astro.FetchChart(ctx, req)
	})
}

func (s *ReadingService) Dasha(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error) {
	return s.readData(ctx, astrology.DataTag(astrology.KindDasha), req, "", func(ctx context.Context) (json.RawMessage, error) {
		return s.astro.FetchDasha(ctx, req)
	})
}

func (s *ReadingService) Yearly(ctx context.Context, req *astrology.AstrologyRequest) (json.RawMessage, error) {
	if req == nil {
		return nil, astrology.ErrMissingBirthDetails
	}
	lang := astrology.ParseLanguage(string(req.Language))
	return s.readData(ctx, astrology.DataTag(astrology.KindYearly), req, lang, func(ctx context.Context) (json.RawMessage, error) {
		return s.astro.FetchYearly(ctx, req, lang)
	})
}

func (s *ReadingService) readData(ctx context.Context, tag astrology.OperationTag, req *astrology.AstrologyRequest, lang astrology.Language, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key, err := astrologyFingerprint(tag, req, s.ayanamsa, lang)
	if err != nil {
		return nil, err
	}
	data, err := cachedCall(ctx, s, tag, key, func(ctx context.Context) (json.RawMessage, bool, error) {
		data, err := fetch(ctx)
		return data, err == nil, err
	})
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"operation": tag, "key": key}).WithError(err).Error("astrology lookup failed")
		}
		return nil, err
	}
	return data, nil
}

// Explain returns the generated explanation for req. A placeholder produced
// because the model returned no text is passed through but not cached.
func (s *ReadingService) Explain(ctx context.Context, req *astrology.ExplanationRequest) (*astrology.Explanation, error) {
	if req == nil {
		return nil, astrology.ErrMissingExplanationData
	}
	req.Language = astrology.ParseLanguage(string(req.Language))
	if err := req.Validate(); err != nil {
		return nil, err
	}
	tag := astrology.ExplainTag(req.Kind)
	key, err := explanationFingerprint(req)
	if err != nil {
		return nil, err
	}
	exp, err := cachedCall(ctx, s, tag, key, func(ctx context.Context) (*astrology.Explanation, bool, error) {
		exp, err := s.explainer.Explain(ctx, req.Kind, req.Data, req.Language)
		if err != nil {
			return nil, false, err
		}
		return exp, !exp.Degraded, nil
	})
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"operation": tag, "key": key}).WithError(err).Error("explanation failed")
		}
		return nil, err
	}
	return exp, nil
}

var _ ports.ReadingService = (*ReadingService)(nil)
