package stream

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/botlisten/botcast/internal/common/config"
)

// Type represents the type of stream context store
type Type string

const (
	// TypeMemory represents the in-memory context store
	TypeMemory Type = "memory"
	// TypeRedis represents the Redis-backed context store
	TypeRedis Type = "redis"
)

// NewStore creates a new stream context store based on configuration
func NewStore(logger *zap.Logger, cfg *config.StreamConfig) (Store, error) {
	logger.Info("Initializing stream context store", zap.String("type", cfg.Store.Type))
	switch Type(cfg.Store.Type) {
	case TypeMemory:
		return NewMemoryStore(logger, cfg.MaxHistory), nil
	case TypeRedis:
		return NewRedisStore(logger, cfg.Store.Redis, cfg.MaxHistory)
	default:
		return nil, fmt.Errorf("unsupported stream store type: %s", cfg.Store.Type)
	}
}
