package registry

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/botlisten/botcast/pkg/metrics"
	"github.com/botlisten/botcast/pkg/utils"
)

// Conn is the transport surface the registry needs from a connection.
// Connections are keyed by an opaque id generated at connect time, not
// by the socket object itself. Send must be safe for concurrent use.
type Conn interface {
	ID() string
	Send(v any) error
	Close(reason string) error
}

type viewer struct {
	conn        Conn
	profile     map[string]any
	connectedAt time.Time
}

// Registry owns the single broadcaster slot and the set of viewer
// connections. Delivery failures never propagate to callers: a failing
// peer is logged and evicted, and fan-out continues for the rest.
type Registry struct {
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu          sync.RWMutex
	broadcaster Conn
	viewers     map[string]*viewer
}

// New creates an empty connection registry. metrics may be nil.
func New(logger *zap.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		logger:  logger.Named("registry"),
		metrics: m,
		viewers: make(map[string]*viewer),
	}
}

// ConnectBroadcaster claims the exclusive broadcaster slot. It reports
// false without touching any state when the slot is taken; closing the
// rejected connection is the caller's job.
func (r *Registry) ConnectBroadcaster(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.broadcaster != nil {
		r.logger.Warn("broadcaster slot already taken",
			zap.String("connection_id", conn.ID()))
		return false
	}

	r.broadcaster = conn
	r.metrics.BroadcasterConnected(true)
	r.logger.Info("broadcaster connected", zap.String("connection_id", conn.ID()))
	return true
}

// DisconnectBroadcaster clears the slot. Idempotent.
func (r *Registry) DisconnectBroadcaster() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.broadcaster == nil {
		return
	}
	r.broadcaster = nil
	r.metrics.BroadcasterConnected(false)
	r.logger.Info("broadcaster disconnected")
}

// ConnectViewer adds a viewer with an empty profile. Always accepted;
// any capacity policy lives with the caller.
func (r *Registry) ConnectViewer(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.viewers[conn.ID()] = &viewer{
		conn:        conn,
		profile:     make(map[string]any),
		connectedAt: time.Now(),
	}
	r.metrics.ViewerConnected()
	r.logger.Info("viewer connected",
		zap.String("connection_id", conn.ID()),
		zap.Int("viewers", len(r.viewers)))
}

// DisconnectViewer removes a viewer and its profile. Idempotent.
func (r *Registry) DisconnectViewer(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeViewerLocked(id)
}

func (r *Registry) removeViewerLocked(id string) {
	if _, ok := r.viewers[id]; !ok {
		return
	}
	delete(r.viewers, id)
	r.metrics.ViewerDisconnected()
	r.logger.Info("viewer disconnected",
		zap.String("connection_id", id),
		zap.Int("viewers", len(r.viewers)))
}

// BroadcastToViewers delivers msg to every current viewer concurrently.
// A failing viewer is evicted and does not abort delivery to the rest.
// The call returns after every delivery attempt has finished, so
// successive broadcasts from one producer keep their order per viewer.
func (r *Registry) BroadcastToViewers(msg any) {
	r.mu.RLock()
	targets := make([]Conn, 0, len(r.viewers))
	for _, v := range r.viewers {
		targets = append(targets, v.conn)
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		r.logger.Debug("no viewers connected, broadcast skipped")
		return
	}

	var (
		wg       sync.WaitGroup
		failedMu sync.Mutex
		failed   []Conn
	)
	for _, conn := range targets {
		wg.Add(1)
		go func(conn Conn) {
			defer wg.Done()
			if err := conn.Send(msg); err != nil {
				r.logger.Error("failed to send to viewer",
					zap.String("connection_id", conn.ID()),
					zap.Error(err))
				r.metrics.SendFailure("viewer")
				failedMu.Lock()
				failed = append(failed, conn)
				failedMu.Unlock()
			}
		}(conn)
	}
	wg.Wait()

	for _, conn := range failed {
		r.DisconnectViewer(conn.ID())
		_ = conn.Close("")
	}
	r.metrics.BroadcastDone()
}

// SendToBroadcaster delivers msg to the broadcaster if one is
// connected. A missing broadcaster is reported, not an error; a send
// failure evicts the broadcaster.
func (r *Registry) SendToBroadcaster(msg any) {
	r.mu.RLock()
	conn := r.broadcaster
	r.mu.RUnlock()

	if conn == nil {
		r.logger.Debug("no broadcaster connected, message dropped")
		return
	}

	if err := conn.Send(msg); err != nil {
		r.logger.Error("failed to send to broadcaster", zap.Error(err))
		r.metrics.SendFailure("broadcaster")
		r.DisconnectBroadcaster()
		_ = conn.Close("")
	}
}

// HasBroadcaster reports whether the slot is taken.
func (r *Registry) HasBroadcaster() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.broadcaster != nil
}

// UpdateViewerProfile merges info into the viewer's profile map.
// Unknown connection ids are ignored.
func (r *Registry) UpdateViewerProfile(id string, info map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.viewers[id]
	if !ok {
		return
	}
	utils.MergeInto(v.profile, info)
}

// ViewerProfile returns a copy of the viewer's profile map.
func (r *Registry) ViewerProfile(id string) map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.viewers[id]
	if !ok {
		return nil
	}
	profile := make(map[string]any, len(v.profile))
	utils.MergeInto(profile, v.profile)
	return profile
}

// ViewerCount returns the current viewer set size.
func (r *Registry) ViewerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.viewers)
}
