// Package content computes the payload pushed to a widget over its live
// channel. The payload is opaque to clients; each widget kind has its own
// Source.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gosuda/widgetboard/internal/domain"
	"github.com/gosuda/widgetboard/internal/store/redis"
)

// ErrNoSource is returned when no Source is registered for a widget's kind.
var ErrNoSource = errors.New("content: no source for widget kind")

// Request is what a Source renders from.
type Request struct {
	Dashboard *domain.Dashboard
	Widget    *domain.Widget
	Options   domain.RequestOptions
}

type Source interface {
	Render(ctx context.Context, req Request) (any, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, req Request) (any, error)

func (f SourceFunc) Render(ctx context.Context, req Request) (any, error) { return f(ctx, req) }

// Cache stores rendered payloads. redis.Store satisfies it.
type Cache interface {
	GetContent(ctx context.Context, key string) ([]byte, bool, error)
	SetContent(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

type Renderer struct {
	cache Cache
	ttl   time.Duration
	log   zerolog.Logger

	mu      sync.RWMutex
	sources map[domain.WidgetKind]Source
}

// NewRenderer returns a renderer with no sources. A nil cache or a zero ttl
// disables caching.
func NewRenderer(cache Cache, ttl time.Duration, logger zerolog.Logger) *Renderer {
	return &Renderer{
		cache:   cache,
		ttl:     ttl,
		log:     logger,
		sources: make(map[domain.WidgetKind]Source),
	}
}

// Register installs src for kind, replacing any previous source.
func (r *Renderer) Register(kind domain.WidgetKind, src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[kind] = src
}

// Render returns the widget's content under the dashboard's current request
// options, served from cache when possible.
func (r *Renderer) Render(ctx context.Context, d *domain.Dashboard, w *domain.Widget) (json.RawMessage, error) {
	key, err := r.key(d, w)
	if err != nil {
		return nil, fmt.Errorf("content.Render: %w", err)
	}

	if r.cacheEnabled() {
		cached, ok, err := r.cache.GetContent(ctx, key)
		if err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("content: cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	return r.render(ctx, d, w, key)
}

// Refresh recomputes the content, bypassing and then replacing the cached copy.
func (r *Renderer) Refresh(ctx context.Context, d *domain.Dashboard, w *domain.Widget) (json.RawMessage, error) {
	key, err := r.key(d, w)
	if err != nil {
		return nil, fmt.Errorf("content.Refresh: %w", err)
	}
	return r.render(ctx, d, w, key)
}

func (r *Renderer) render(ctx context.Context, d *domain.Dashboard, w *domain.Widget, key string) (json.RawMessage, error) {
	r.mu.RLock()
	src, ok := r.sources[w.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("content.render %q: %w", w.Kind, ErrNoSource)
	}

	v, err := src.Render(ctx, Request{Dashboard: d, Widget: w, Options: d.RequestOptions})
	if err != nil {
		return nil, fmt.Errorf("content.render %s: %w", w.ID, err)
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("content.render %s: encode: %w", w.ID, err)
	}

	if r.cacheEnabled() {
		if err := r.cache.SetContent(ctx, key, payload, r.ttl); err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("content: cache write failed")
		}
	}

	return payload, nil
}

func (r *Renderer) cacheEnabled() bool {
	return r.cache != nil && r.ttl > 0
}

func (r *Renderer) key(d *domain.Dashboard, w *domain.Widget) (string, error) {
	h, err := OptionsHash(d.RequestOptions)
	if err != nil {
		return "", err
	}
	return redis.ContentKey(w.ID, h), nil
}

// OptionsHash fingerprints a set of request options. Map keys are encoded in
// sorted order, so equal options always hash the same.
func OptionsHash(opts domain.RequestOptions) (string, error) {
	if opts == nil {
		opts = domain.RequestOptions{}
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("hash request options: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8]), nil
}
