package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/botlisten/botcast/internal/common/cnst"
	"github.com/botlisten/botcast/internal/common/config"
	"github.com/botlisten/botcast/internal/message"
	"github.com/botlisten/botcast/internal/reaction"
	"github.com/botlisten/botcast/internal/registry"
	"github.com/botlisten/botcast/internal/stream"
	"github.com/botlisten/botcast/pkg/metrics"
)

// Router wires the websocket endpoints, health and index routes onto a
// gin engine. One Router serves one stream session.
type Router struct {
	logger    *zap.Logger
	cfg       *config.Config
	store     stream.Store
	registry  *registry.Registry
	generator reaction.Generator
	metrics   *metrics.Metrics
	streamID  string
	upgrader  websocket.Upgrader
}

// New creates a Router serving the configured default stream.
func New(logger *zap.Logger, cfg *config.Config, store stream.Store, reg *registry.Registry, gen reaction.Generator, m *metrics.Metrics) *Router {
	return &Router{
		logger:    logger.Named("router"),
		cfg:       cfg,
		store:     store,
		registry:  reg,
		generator: gen,
		metrics:   m,
		streamID:  cfg.Stream.DefaultID,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// RegisterRoutes mounts all endpoints on the engine.
func (r *Router) RegisterRoutes(e *gin.Engine) {
	e.GET("/broadcaster", r.handleBroadcaster)
	e.GET("/bot-viewer", r.handleViewer)
	e.GET("/health", r.handleHealth)
	e.GET("/", r.handleRoot)
	if r.metrics != nil {
		e.GET("/metrics", gin.WrapH(r.metrics.Handler()))
	}
}

func (r *Router) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"timestamp":      message.Now(),
		"stream_active":  r.registry.HasBroadcaster(),
		"connected_bots": r.registry.ViewerCount(),
	})
}

func (r *Router) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "botcast relay API",
		"endpoints": gin.H{
			"broadcaster": "/broadcaster",
			"bot_viewer":  "/bot-viewer",
			"health":      "/health",
		},
	})
}

// handleBroadcaster owns the single broadcaster slot. A second
// broadcaster is closed immediately with an explanatory close frame.
func (r *Router) handleBroadcaster(c *gin.Context) {
	ws, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		r.logger.Error("failed to upgrade broadcaster connection", zap.Error(err))
		return
	}

	conn := newWSConn(ws)
	if !r.registry.ConnectBroadcaster(conn) {
		r.logger.Warn("rejected broadcaster, slot already taken",
			zap.String("conn_id", conn.ID()))
		_ = conn.Close(cnst.CloseReasonBroadcasterTaken)
		return
	}

	defer func() {
		r.registry.DisconnectBroadcaster()
		_ = conn.Close("")
		r.logger.Info("broadcaster disconnected", zap.String("conn_id", conn.ID()))
	}()

	ctx := c.Request.Context()

	// A new broadcaster starts a new session.
	if _, err := r.store.ResetContext(ctx, r.streamID); err != nil {
		r.logger.Error("failed to reset stream context", zap.Error(err))
	}

	r.logger.Info("broadcaster connected", zap.String("conn_id", conn.ID()))
	if err := conn.Send(message.NewSystemInfo(fmt.Sprintf("現在の視聴ボット数: %d", r.registry.ViewerCount()))); err != nil {
		r.logger.Error("failed to send initial system info", zap.Error(err))
		return
	}

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				r.logger.Error("broadcaster connection error", zap.Error(err))
			}
			return
		}
		r.processBroadcast(ctx, conn, raw)
	}
}

// processBroadcast handles one inbound broadcaster payload: either a
// command, or stream content fanned out to every viewer.
func (r *Router) processBroadcast(ctx context.Context, conn *wsConn, raw []byte) {
	in := message.DecodeBroadcast(raw)

	if in.Command != "" {
		if in.Command == cnst.CommandGetViewers {
			if err := conn.Send(message.NewSystemInfo(fmt.Sprintf("現在の視聴ボット数: %d", r.registry.ViewerCount()))); err != nil {
				r.logger.Error("failed to answer command", zap.Error(err))
			}
		} else {
			r.logger.Debug("ignoring unknown command", zap.String("command", in.Command))
		}
		return
	}

	if in.Title != "" {
		if err := r.store.UpdateTitle(ctx, r.streamID, in.Title); err != nil {
			r.logger.Error("failed to update stream title", zap.Error(err))
		}
	}
	if err := r.store.AddMessage(ctx, r.streamID, in.Content); err != nil {
		r.logger.Error("failed to record stream message", zap.Error(err))
	}
	if _, err := r.store.AnalyzeMood(ctx, r.streamID, in.Content); err != nil {
		r.logger.Error("failed to analyze mood", zap.Error(err))
	}

	viewers := r.registry.ViewerCount()
	if err := r.store.UpdateViewers(ctx, r.streamID, viewers); err != nil {
		r.logger.Error("failed to update viewer count", zap.Error(err))
	}

	info := message.StreamInfo{Viewers: viewers}
	if sc, err := r.store.GetContext(ctx, r.streamID); err != nil {
		r.logger.Error("failed to load stream context", zap.Error(err))
	} else {
		info.Title = sc.Title
		info.Duration = sc.Duration
		info.Mood = sc.Mood.String()
	}

	r.registry.BroadcastToViewers(message.NewStreamContent(in.Content, info))
	r.logger.Info("broadcasted stream content",
		zap.String("content", truncate(in.Content, 50)),
		zap.Int("viewers", viewers))
}

// handleViewer serves one bot viewer connection for its lifetime.
func (r *Router) handleViewer(c *gin.Context) {
	if max := r.cfg.Viewer.MaxViewers; max > 0 && r.registry.ViewerCount() >= max {
		r.logger.Warn("rejected viewer, capacity reached", zap.Int("max_viewers", max))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "viewer capacity reached"})
		return
	}

	ws, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		r.logger.Error("failed to upgrade viewer connection", zap.Error(err))
		return
	}

	conn := newWSConn(ws)
	ctx := c.Request.Context()

	r.registry.ConnectViewer(conn)
	count := r.registry.ViewerCount()
	if err := r.store.UpdateViewers(ctx, r.streamID, count); err != nil {
		r.logger.Error("failed to update viewer count", zap.Error(err))
	}
	r.logger.Info("viewer connected", zap.String("conn_id", conn.ID()), zap.Int("viewers", count))

	if sc, err := r.store.GetContext(ctx, r.streamID); err != nil {
		r.logger.Error("failed to load stream context", zap.Error(err))
	} else if err := conn.Send(message.NewStreamInfo(message.StreamInfo{
		Title:    sc.Title,
		Duration: sc.Duration,
		Viewers:  count,
		Mood:     sc.Mood.String(),
	})); err != nil {
		r.logger.Error("failed to send stream info", zap.Error(err))
	}
	r.registry.SendToBroadcaster(message.NewViewerUpdate(count, cnst.EventJoin))

	defer func() {
		r.registry.DisconnectViewer(conn.ID())
		_ = conn.Close("")

		remaining := r.registry.ViewerCount()
		if err := r.store.UpdateViewers(context.Background(), r.streamID, remaining); err != nil {
			r.logger.Error("failed to update viewer count", zap.Error(err))
		}
		r.registry.SendToBroadcaster(message.NewViewerUpdate(remaining, cnst.EventLeave))
		r.logger.Info("viewer disconnected", zap.String("conn_id", conn.ID()), zap.Int("viewers", remaining))
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				r.logger.Error("viewer connection error", zap.Error(err))
			}
			return
		}
		r.processViewer(ctx, conn, message.DecodeViewer(raw))
	}
}

func (r *Router) processViewer(ctx context.Context, conn *wsConn, in message.ViewerInput) {
	switch in.Type {
	case cnst.TypeHeartbeat:
		if len(in.BotInfo) > 0 {
			r.registry.UpdateViewerProfile(conn.ID(), in.BotInfo)
		}

	case cnst.TypeReaction:
		r.registry.SendToBroadcaster(message.NewBotReaction(in.Content, in.BotInfo, false))
		r.logger.Info("forwarded viewer reaction",
			zap.String("conn_id", conn.ID()),
			zap.String("content", truncate(in.Content, 50)))

	case cnst.TypeReceiveStreamContent:
		r.reactToContent(ctx, conn, in)

	default:
		r.logger.Debug("ignoring viewer message",
			zap.String("conn_id", conn.ID()),
			zap.String("type", string(in.Type)))
	}
}

// reactToContent generates an automatic reaction for content the viewer
// received. Generation failures degrade to a canned response.
func (r *Router) reactToContent(ctx context.Context, conn *wsConn, in message.ViewerInput) {
	profile := in.BotInfo
	if len(profile) == 0 {
		profile = r.registry.ViewerProfile(conn.ID())
	}

	sc, err := r.store.GetContext(ctx, r.streamID)
	if err != nil {
		r.logger.Error("failed to load stream context", zap.Error(err))
	}

	start := time.Now()
	fellBack := false
	text, err := r.generator.Generate(ctx, in.Content, profile, sc)
	if err != nil {
		r.logger.Warn("reaction generation failed, using fallback", zap.Error(err))
		text = reaction.Fallback()
		fellBack = true
		r.metrics.ReactionDone(start, "fallback")
	} else {
		r.metrics.ReactionDone(start, "ok")
	}

	if err := conn.Send(message.NewReaction(text, profile)); err != nil {
		r.logger.Warn("failed to deliver reaction",
			zap.String("conn_id", conn.ID()), zap.Error(err))
	}
	// Automatic reactions are tagged ai_generated on both legs, even
	// when the text came from the canned list.
	r.registry.SendToBroadcaster(message.NewBotReaction(text, profile, true))
	r.logger.Info("generated reaction",
		zap.String("conn_id", conn.ID()),
		zap.Bool("fallback", fellBack),
		zap.String("content", truncate(text, 50)))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
