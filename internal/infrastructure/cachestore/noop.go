package cachestore

import (
	"context"
	"time"

	"github.com/astroask/backend/internal/core/ports"
)

// NoopStore never stores anything; every lookup misses.
type NoopStore struct{}

func (NoopStore) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NoopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NoopStore) Delete(context.Context, string) error                     { return nil }

var _ ports.Cache = NoopStore{}
