package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeConn records sent messages and can be made to fail.
type fakeConn struct {
	id string

	mu     sync.Mutex
	sent   []any
	failed bool
	closed bool
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return errors.New("send failed")
	}
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeConn) Close(string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func TestSingleBroadcasterInvariant(t *testing.T) {
	r := New(zap.NewNop(), nil)
	b1 := &fakeConn{id: "b1"}
	b2 := &fakeConn{id: "b2"}

	assert.True(t, r.ConnectBroadcaster(b1))
	// second attempt is rejected with no observable side effect
	assert.False(t, r.ConnectBroadcaster(b2))
	assert.True(t, r.HasBroadcaster())

	r.SendToBroadcaster("ping")
	assert.Equal(t, 1, b1.sentCount())
	assert.Zero(t, b2.sentCount())

	r.DisconnectBroadcaster()
	assert.False(t, r.HasBroadcaster())
	// idempotent
	r.DisconnectBroadcaster()

	// slot is free again
	assert.True(t, r.ConnectBroadcaster(b2))
}

func TestConcurrentBroadcasterAcquire(t *testing.T) {
	r := New(zap.NewNop(), nil)

	const attempts = 32
	accepted := make(chan bool, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			accepted <- r.ConnectBroadcaster(&fakeConn{id: string(rune('a' + i))})
		}(i)
	}
	wg.Wait()
	close(accepted)

	wins := 0
	for ok := range accepted {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestBroadcastFanOut(t *testing.T) {
	r := New(zap.NewNop(), nil)
	v1 := &fakeConn{id: "v1"}
	v2 := &fakeConn{id: "v2"}
	r.ConnectViewer(v1)
	r.ConnectViewer(v2)

	r.BroadcastToViewers("hello")
	assert.Equal(t, 1, v1.sentCount())
	assert.Equal(t, 1, v2.sentCount())
}

func TestBroadcastFailureIsolation(t *testing.T) {
	r := New(zap.NewNop(), nil)
	good := &fakeConn{id: "good"}
	bad := &fakeConn{id: "bad", failed: true}
	other := &fakeConn{id: "other"}
	r.ConnectViewer(good)
	r.ConnectViewer(bad)
	r.ConnectViewer(other)

	r.BroadcastToViewers("hello")

	// healthy viewers still got the message
	assert.Equal(t, 1, good.sentCount())
	assert.Equal(t, 1, other.sentCount())
	// the failing viewer was evicted and closed by the end of the call
	assert.Equal(t, 2, r.ViewerCount())
	assert.True(t, bad.closed)

	// a later broadcast no longer reaches it
	r.BroadcastToViewers("again")
	assert.Equal(t, 2, good.sentCount())
}

func TestBroadcastNoViewersIsNoop(t *testing.T) {
	r := New(zap.NewNop(), nil)
	// must not panic or error
	r.BroadcastToViewers("hello")
}

func TestSendToBroadcasterFailureEvicts(t *testing.T) {
	r := New(zap.NewNop(), nil)
	b := &fakeConn{id: "b", failed: true}
	assert.True(t, r.ConnectBroadcaster(b))

	r.SendToBroadcaster("ping")
	assert.False(t, r.HasBroadcaster())
	assert.True(t, b.closed)

	// no-op when the slot is empty
	r.SendToBroadcaster("ping")
}

func TestViewerLifecycle(t *testing.T) {
	r := New(zap.NewNop(), nil)
	v := &fakeConn{id: "v"}
	r.ConnectViewer(v)
	assert.Equal(t, 1, r.ViewerCount())

	r.DisconnectViewer("v")
	assert.Zero(t, r.ViewerCount())
	// idempotent for absent connections
	r.DisconnectViewer("v")
	r.DisconnectViewer("never-connected")
}

func TestViewerProfileMerge(t *testing.T) {
	r := New(zap.NewNop(), nil)
	v := &fakeConn{id: "v"}
	r.ConnectViewer(v)

	r.UpdateViewerProfile("v", map[string]any{"personality_type": "curious", "emoji_usage": "low"})
	r.UpdateViewerProfile("v", map[string]any{"emoji_usage": "high"})

	profile := r.ViewerProfile("v")
	assert.Equal(t, "curious", profile["personality_type"])
	assert.Equal(t, "high", profile["emoji_usage"])

	// unknown ids are ignored
	r.UpdateViewerProfile("ghost", map[string]any{"x": 1})
	assert.Nil(t, r.ViewerProfile("ghost"))

	// returned profile is a copy
	profile["personality_type"] = "tampered"
	assert.Equal(t, "curious", r.ViewerProfile("v")["personality_type"])
}
