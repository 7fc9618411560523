package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/botlisten/botcast/internal/common/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore implements Store on Redis, one JSON document per stream
// id. Operations are read-modify-write cycles serialized by a store
// mutex; the process owns its contexts exclusively, Redis is a shared
// backend, not a coordination layer.
type RedisStore struct {
	logger     *zap.Logger
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	maxHistory int
	mu         sync.Mutex
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis-based stream context store.
func NewRedisStore(logger *zap.Logger, cfg config.StreamRedisConfig, maxHistory int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "stream:"
	} else if !strings.HasSuffix(prefix, ":") {
		prefix = prefix + ":"
	}
	if maxHistory <= 0 {
		maxHistory = 10
	}

	return &RedisStore{
		logger:     logger.Named("stream.store.redis"),
		client:     client,
		prefix:     prefix,
		ttl:        cfg.TTL,
		maxHistory: maxHistory,
	}, nil
}

// Close releases the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(streamID string) string {
	return s.prefix + streamID
}

// load must be called with the lock held. An unknown id yields a fresh
// context, which is persisted so creation stays idempotent.
func (s *RedisStore) load(ctx context.Context, streamID string) (*StreamContext, error) {
	data, err := s.client.Get(ctx, s.key(streamID)).Bytes()
	if errors.Is(err, redis.Nil) {
		c := newContext()
		if err := s.save(ctx, streamID, c); err != nil {
			return nil, err
		}
		s.logger.Debug("created stream context", zap.String("stream_id", streamID))
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stream context: %w", err)
	}

	var c StreamContext
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stream context: %w", err)
	}
	return &c, nil
}

// save must be called with the lock held.
func (s *RedisStore) save(ctx context.Context, streamID string, c *StreamContext) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal stream context: %w", err)
	}
	if err := s.client.Set(ctx, s.key(streamID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save stream context: %w", err)
	}
	return nil
}

// update runs a read-modify-write cycle for one stream id.
func (s *RedisStore) update(ctx context.Context, streamID string, fn func(*StreamContext)) (*StreamContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx, streamID)
	if err != nil {
		return nil, err
	}
	fn(c)
	if err := s.save(ctx, streamID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetContext implements Store.GetContext
func (s *RedisStore) GetContext(ctx context.Context, streamID string) (*StreamContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.load(ctx, streamID)
	if err != nil {
		return nil, err
	}
	return c.snapshot(), nil
}

// UpdateTitle implements Store.UpdateTitle
func (s *RedisStore) UpdateTitle(ctx context.Context, streamID, title string) error {
	_, err := s.update(ctx, streamID, func(c *StreamContext) {
		c.Title = title
		c.Topics = extractTopics(title, c.Topics)
	})
	return err
}

// AddMessage implements Store.AddMessage
func (s *RedisStore) AddMessage(ctx context.Context, streamID, text string) error {
	_, err := s.update(ctx, streamID, func(c *StreamContext) {
		c.MessageCount++
		c.History = append(c.History, text)
		if n := len(c.History); n > s.maxHistory {
			c.History = c.History[n-s.maxHistory:]
		}
	})
	return err
}

// UpdateViewers implements Store.UpdateViewers
func (s *RedisStore) UpdateViewers(ctx context.Context, streamID string, count int) error {
	_, err := s.update(ctx, streamID, func(c *StreamContext) {
		c.Viewers = count
	})
	return err
}

// ResetContext implements Store.ResetContext
func (s *RedisStore) ResetContext(ctx context.Context, streamID string) (*StreamContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := newContext()
	if err := s.save(ctx, streamID, c); err != nil {
		return nil, err
	}
	s.logger.Info("reset stream context", zap.String("stream_id", streamID))
	return c.snapshot(), nil
}

// AnalyzeMood implements Store.AnalyzeMood
func (s *RedisStore) AnalyzeMood(ctx context.Context, streamID, content string) (Mood, error) {
	c, err := s.update(ctx, streamID, func(c *StreamContext) {
		c.Mood = analyzeContent(content, c.Mood, c.MessageCount)
	})
	if err != nil {
		return "", err
	}
	return c.Mood, nil
}
