package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/astroask/backend/internal/core/domain/astrology"
	"github.com/astroask/backend/internal/core/ports"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	tokenPrefix = "astro_tokens"
)

// TokenRedisRepository keeps the provider access token in Redis so every
// replica reuses the same one until it expires.
type TokenRedisRepository struct {
	client redis.Cmdable
	key    string
	now    func() time.Time
	logger *logrus.Logger
}

// NewTokenRedisRepository creates a token store scoped to one provider client id.
func NewTokenRedisRepository(client redis.Cmdable, clientID string, logger *logrus.Logger) *TokenRedisRepository {
	return &TokenRedisRepository{
		client: client,
		key:    fmt.Sprintf("%s:prokerala:%s", tokenPrefix, clientID),
		now:    time.Now,
		logger: logger,
	}
}

type storedToken struct {
	Value      string    `json:"value"`
	ObtainedAt time.Time `json:"obtained_at"`
	Expiry     time.Time `json:"expiry"`
}

// SaveToken stores tok until its expiry. Tokens without an expiry are not shared.
func (r *TokenRedisRepository) SaveToken(ctx context.Context, tok astrology.AccessToken) error {
	if tok.Expiry.IsZero() {
		return nil
	}
	ttl := tok.Expiry.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("token already expired")
	}
	data, err := json.Marshal(storedToken{Value: tok.Value, ObtainedAt: tok.ObtainedAt, Expiry: tok.Expiry})
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err = r.client.Set(ctx, r.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token in Redis: %w", err)
	}
	return nil
}

// LoadToken returns the shared token, if any. Unreadable entries are dropped.
func (r *TokenRedisRepository) LoadToken(ctx context.Context) (astrology.AccessToken, bool, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return astrology.AccessToken{}, false, nil
		}
		return astrology.AccessToken{}, false, fmt.Errorf("failed to get token from Redis: %w", err)
	}
	var st storedToken
	if err = json.Unmarshal(data, &st); err != nil || st.Value == "" {
		if r.logger != nil {
			r.logger.WithField("key", r.key).Warn("discarding unreadable shared token")
		}
		_ = r.client.Del(ctx, r.key).Err()
		return astrology.AccessToken{}, false, nil
	}
	return astrology.AccessToken{Value: st.Value, ObtainedAt: st.ObtainedAt, Expiry: st.Expiry}, true, nil
}

// DeleteToken removes the shared token.
func (r *TokenRedisRepository) DeleteToken(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

var _ ports.TokenStore = (*TokenRedisRepository)(nil)
