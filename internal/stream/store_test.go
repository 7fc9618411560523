package stream

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStore_GetOrCreate(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 10)
	ctx := context.Background()

	c, err := s.GetContext(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, c.Title)
	assert.Equal(t, MoodNeutral, c.Mood)
	assert.Empty(t, c.History)
	assert.Zero(t, c.Viewers)
	assert.Zero(t, c.MessageCount)

	// second access returns the same context, not a fresh one
	require.NoError(t, s.AddMessage(ctx, "default", "hello"))
	c2, err := s.GetContext(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, 1, c2.MessageCount)
}

func TestMemoryStore_DurationRecomputedOnRead(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 10)
	ctx := context.Background()

	first, err := s.GetContext(ctx, "default")
	require.NoError(t, err)
	time.Sleep(15 * time.Millisecond)
	second, err := s.GetContext(ctx, "default")
	require.NoError(t, err)
	assert.Greater(t, second.Duration, first.Duration)
}

func TestMemoryStore_HistoryBound(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 10)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		require.NoError(t, s.AddMessage(ctx, "default", fmt.Sprintf("msg-%d", i)))
	}

	c, err := s.GetContext(ctx, "default")
	require.NoError(t, err)
	assert.Len(t, c.History, 10)
	// last ten inserted values, oldest first
	assert.Equal(t, "msg-2", c.History[0])
	assert.Equal(t, "msg-11", c.History[9])
	// the counter is monotonic and unaffected by eviction
	assert.Equal(t, 12, c.MessageCount)
}

func TestMemoryStore_HistoryCapacityConfigurable(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddMessage(ctx, "default", fmt.Sprintf("m%d", i)))
	}
	c, err := s.GetContext(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m3", "m4"}, c.History)
}

func TestMemoryStore_TopicAccretion(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 10)
	ctx := context.Background()

	require.NoError(t, s.UpdateTitle(ctx, "default", "Hello World Stream"))
	require.NoError(t, s.UpdateTitle(ctx, "default", "New Episode"))

	c, err := s.GetContext(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "New Episode", c.Title)
	assert.Subset(t, c.Topics, []string{"hello", "world", "stream", "new", "episode"})
}

func TestMemoryStore_TopicFilterShortWords(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 10)
	ctx := context.Background()

	require.NoError(t, s.UpdateTitle(ctx, "default", "Go is so fun"))
	c, err := s.GetContext(ctx, "default")
	require.NoError(t, err)
	// "go", "is", "so" are filtered by the length > 2 rule
	assert.Equal(t, []string{"fun"}, c.Topics)
}

func TestMemoryStore_MoodDeterminism(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 10)
	ctx := context.Background()

	mood, err := s.AnalyzeMood(ctx, "default", "this is amazing")
	require.NoError(t, err)
	assert.Equal(t, MoodExcited, mood)

	mood, err = s.AnalyzeMood(ctx, "default", "it was sad and hard")
	require.NoError(t, err)
	assert.Equal(t, MoodNegative, mood)

	mood, err = s.AnalyzeMood(ctx, "default", "what a great and happy day")
	require.NoError(t, err)
	assert.Equal(t, MoodPositive, mood)

	// excited wins even when negative words are present
	mood, err = s.AnalyzeMood(ctx, "default", "sad but amazing")
	require.NoError(t, err)
	assert.Equal(t, MoodExcited, mood)
}

func TestMemoryStore_MoodJapaneseLexicon(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 10)
	ctx := context.Background()

	mood, err := s.AnalyzeMood(ctx, "default", "今日は楽しい配信です")
	require.NoError(t, err)
	assert.Equal(t, MoodPositive, mood)

	mood, err = s.AnalyzeMood(ctx, "default", "わくわくしてきた")
	require.NoError(t, err)
	assert.Equal(t, MoodExcited, mood)
}

func TestMemoryStore_MoodHysteresis(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 10)
	ctx := context.Background()

	// establish a non-neutral mood
	_, err := s.AnalyzeMood(ctx, "default", "this is great")
	require.NoError(t, err)

	// messageCount == 1: tie input keeps the prior mood
	require.NoError(t, s.AddMessage(ctx, "default", "one"))
	mood, err := s.AnalyzeMood(ctx, "default", "nothing to report here")
	require.NoError(t, err)
	assert.Equal(t, MoodPositive, mood)

	// advance to messageCount == 5: tie input decays to neutral
	for _, m := range []string{"two", "three", "four", "five"} {
		require.NoError(t, s.AddMessage(ctx, "default", m))
	}
	mood, err = s.AnalyzeMood(ctx, "default", "nothing to report here")
	require.NoError(t, err)
	assert.Equal(t, MoodNeutral, mood)
}

func TestMemoryStore_ResetContext(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 10)
	ctx := context.Background()

	require.NoError(t, s.UpdateTitle(ctx, "default", "Something Long Running"))
	require.NoError(t, s.AddMessage(ctx, "default", "hello"))
	require.NoError(t, s.UpdateViewers(ctx, "default", 7))
	_, err := s.AnalyzeMood(ctx, "default", "this is amazing")
	require.NoError(t, err)

	c, err := s.ResetContext(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, c.Title)
	assert.Empty(t, c.Topics)
	assert.Empty(t, c.History)
	assert.Equal(t, MoodNeutral, c.Mood)
	assert.Zero(t, c.Viewers)
	assert.Zero(t, c.MessageCount)

	// reset twice in a row yields identical contexts modulo start time
	c2, err := s.ResetContext(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, c.Title, c2.Title)
	assert.Equal(t, c.Topics, c2.Topics)
	assert.Equal(t, c.History, c2.History)
	assert.Equal(t, c.Mood, c2.Mood)
	assert.Equal(t, c.Viewers, c2.Viewers)
	assert.Equal(t, c.MessageCount, c2.MessageCount)
}

func TestMemoryStore_IsolatedStreamIDs(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 10)
	ctx := context.Background()

	require.NoError(t, s.AddMessage(ctx, "a", "hello"))
	c, err := s.GetContext(ctx, "b")
	require.NoError(t, err)
	assert.Zero(t, c.MessageCount)
}

func TestMemoryStore_SnapshotIsCopy(t *testing.T) {
	s := NewMemoryStore(zap.NewNop(), 10)
	ctx := context.Background()

	require.NoError(t, s.AddMessage(ctx, "default", "hello"))
	c, err := s.GetContext(ctx, "default")
	require.NoError(t, err)
	c.History[0] = "tampered"
	c.Viewers = 99

	c2, err := s.GetContext(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, "hello", c2.History[0])
	assert.Zero(t, c2.Viewers)
}

func TestAnalyzeContent_PureFunction(t *testing.T) {
	// same inputs, same output, independent of any store state
	for i := 0; i < 3; i++ {
		assert.Equal(t, MoodExcited, analyzeContent("totally amazing", MoodNegative, 3))
		assert.Equal(t, MoodNegative, analyzeContent("sad and hard", MoodPositive, 3))
		assert.Equal(t, MoodPositive, analyzeContent("tie on prior", MoodPositive, 3))
		assert.Equal(t, MoodNeutral, analyzeContent("tie on prior", MoodPositive, 5))
		assert.Equal(t, MoodNeutral, analyzeContent("tie on prior", MoodPositive, 0))
	}
}
