package stream

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Store owns one mutable session per stream id. Creation is idempotent:
// any operation on an unknown id starts from a fresh context. Contexts
// are never removed, only reset.
type Store interface {
	// GetContext returns a snapshot of the context, creating it on
	// first access. Duration is recomputed before returning.
	GetContext(ctx context.Context, streamID string) (*StreamContext, error)

	// UpdateTitle sets the title and accretes topics extracted from it.
	UpdateTitle(ctx context.Context, streamID, title string) error

	// AddMessage increments the message counter and appends to the
	// bounded history, evicting the oldest entries beyond capacity.
	AddMessage(ctx context.Context, streamID, text string) error

	// UpdateViewers sets the current viewer count.
	UpdateViewers(ctx context.Context, streamID string, count int) error

	// ResetContext reinitializes every field to defaults, including a
	// fresh start time. The id stays in the store.
	ResetContext(ctx context.Context, streamID string) (*StreamContext, error)

	// AnalyzeMood applies the sentiment heuristic to content and
	// records the resulting mood.
	AnalyzeMood(ctx context.Context, streamID, content string) (Mood, error)
}

// MemoryStore implements Store with an in-process map.
type MemoryStore struct {
	logger     *zap.Logger
	maxHistory int
	mu         sync.Mutex
	contexts   map[string]*StreamContext
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory stream context store.
// maxHistory bounds the per-stream message history.
func NewMemoryStore(logger *zap.Logger, maxHistory int) *MemoryStore {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &MemoryStore{
		logger:     logger.Named("stream.store.memory"),
		maxHistory: maxHistory,
		contexts:   make(map[string]*StreamContext),
	}
}

// getOrCreate must be called with the lock held.
func (s *MemoryStore) getOrCreate(streamID string) *StreamContext {
	c, ok := s.contexts[streamID]
	if !ok {
		c = newContext()
		s.contexts[streamID] = c
		s.logger.Debug("created stream context", zap.String("stream_id", streamID))
	}
	return c
}

// GetContext implements Store.GetContext
func (s *MemoryStore) GetContext(_ context.Context, streamID string) (*StreamContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreate(streamID).snapshot(), nil
}

// UpdateTitle implements Store.UpdateTitle
func (s *MemoryStore) UpdateTitle(_ context.Context, streamID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.getOrCreate(streamID)
	c.Title = title
	c.Topics = extractTopics(title, c.Topics)
	return nil
}

// AddMessage implements Store.AddMessage
func (s *MemoryStore) AddMessage(_ context.Context, streamID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.getOrCreate(streamID)
	c.MessageCount++
	c.History = append(c.History, text)
	if n := len(c.History); n > s.maxHistory {
		c.History = c.History[n-s.maxHistory:]
	}
	return nil
}

// UpdateViewers implements Store.UpdateViewers
func (s *MemoryStore) UpdateViewers(_ context.Context, streamID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getOrCreate(streamID).Viewers = count
	return nil
}

// ResetContext implements Store.ResetContext
func (s *MemoryStore) ResetContext(_ context.Context, streamID string) (*StreamContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := newContext()
	s.contexts[streamID] = c
	s.logger.Info("reset stream context", zap.String("stream_id", streamID))
	return c.snapshot(), nil
}

// AnalyzeMood implements Store.AnalyzeMood
func (s *MemoryStore) AnalyzeMood(_ context.Context, streamID, content string) (Mood, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.getOrCreate(streamID)
	c.Mood = analyzeContent(content, c.Mood, c.MessageCount)
	return c.Mood, nil
}
