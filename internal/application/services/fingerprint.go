package services

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/astroask/backend/internal/core/domain/astrology"
	"github.com/goccy/go-json"
)

type fingerprintInput struct {
	Op     astrology.OperationTag `json:"op"`
	Params any                    `json:"params"`
}

// Fingerprint derives the cache key for an operation and its parameters.
//
// Params are canonicalized first: encoded, decoded into generic values with
// numbers kept verbatim, and encoded again so object keys are sorted. Two
// requests that differ only in key order therefore share a key. The result is
// "<tag>-<sha256 hex>", which is constant-size and safe as a file name.
func Fingerprint(tag astrology.OperationTag, params any) (string, error) {
	canonical, err := canonicalJSON(params)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", tag, err)
	}
	b, err := json.Marshal(fingerprintInput{Op: tag, Params: canonical})
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", tag, err)
	}
	sum := sha256.Sum256(b)
	return string(tag) + "-" + hex.EncodeToString(sum[:]), nil
}

func canonicalJSON(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// astrologyParams is the normalized parameter set for data lookups.
type astrologyParams struct {
	Datetime    string `json:"datetime"`
	Coordinates string `json:"coordinates"`
	Ayanamsa    int    `json:"ayanamsa"`
	Language    string `json:"language,omitempty"`
}

func astrologyFingerprint(tag astrology.OperationTag, req *astrology.AstrologyRequest, ayanamsa int, lang astrology.Language) (string, error) {
	return Fingerprint(tag, astrologyParams{
		Datetime:    req.Datetime(),
		Coordinates: req.Coordinates(),
		Ayanamsa:    ayanamsa,
		Language:    string(lang),
	})
}

type explanationParams struct {
	Data     any    `json:"data"`
	Language string `json:"language"`
}

func explanationFingerprint(req *astrology.ExplanationRequest) (string, error) {
	return Fingerprint(astrology.ExplainTag(req.Kind), explanationParams{
		Data:     req.Data,
		Language: string(req.Language),
	})
}
