package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nikhilbhutani/speakify/internal/converter"
	"github.com/nikhilbhutani/speakify/internal/models"
)

const voicesKey = "voices"

type store interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CatalogTransport caches the voice catalog in front of another transport.
// Cache failures fall through to the wrapped transport.
type CatalogTransport struct {
	converter.Transport
	store store
	ttl   time.Duration
}

func NewCatalogTransport(next converter.Transport, s store, ttl time.Duration) *CatalogTransport {
	return &CatalogTransport{Transport: next, store: s, ttl: ttl}
}

func (t *CatalogTransport) FetchVoices(ctx context.Context) ([]models.Voice, error) {
	var cached []models.Voice
	err := t.store.Get(ctx, voicesKey, &cached)
	if err == nil && len(cached) > 0 {
		return cached, nil
	}
	if err != nil && !errors.Is(err, ErrMiss) {
		slog.Warn("voice cache read failed", "error", err)
	}

	voices, err := t.Transport.FetchVoices(ctx)
	if err != nil {
		return nil, err
	}
	if len(voices) > 0 {
		if err := t.store.Set(ctx, voicesKey, voices, t.ttl); err != nil {
			slog.Warn("voice cache write failed", "error", err)
		}
	}
	return voices, nil
}

// Invalidate drops the cached catalog so the next fetch hits the transport.
func (t *CatalogTransport) Invalidate(ctx context.Context) error {
	return t.store.Delete(ctx, voicesKey)
}
