package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store wraps one redis client used both as the widget content broker and as
// the rendered-content cache.
type Store struct {
	client *redis.Client
}

func New(ctx context.Context, addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis.New: ping: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("redis.Store.Close: %w", err)
	}
	return nil
}

// Ping reports whether redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis.Store.Ping: %w", err)
	}
	return nil
}

func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis.Store.Publish: %w", err)
	}
	return nil
}

// Subscribe delivers every message published on channel until ctx is done or
// cleanup is called.
func (s *Store) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	sub := s.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis.Store.Subscribe: receive confirmation: %w", err)
	}

	out := make(chan []byte, 16)
	redisCh := sub.Channel()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	cleanup := func() {
		_ = sub.Close()
	}

	return out, cleanup, nil
}

// GetContent returns cached content. A miss is (nil, false, nil).
func (s *Store) GetContent(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis.Store.GetContent: %w", err)
	}
	return b, true, nil
}

// SetContent caches content for ttl. A zero ttl disables caching.
func (s *Store) SetContent(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis.Store.SetContent: %w", err)
	}
	return nil
}

// WidgetChannel returns the broker topic a widget's content is pushed on.
func WidgetChannel(widgetID uuid.UUID) string {
	return "widget:" + widgetID.String()
}

// ContentKey returns the cache key of a widget's content rendered with the
// options identified by optionsHash.
func ContentKey(widgetID uuid.UUID, optionsHash string) string {
	return "widget-content:" + widgetID.String() + ":" + optionsHash
}
