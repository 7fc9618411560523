package message

import (
	"encoding/json"
	"time"

	"github.com/botlisten/botcast/internal/common/cnst"

	"github.com/tidwall/gjson"
)

// Now returns the current wall clock as float UNIX seconds, the
// timestamp representation used on the wire.
func Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// StreamInfo is the context snapshot attached to fan-out messages.
type StreamInfo struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	Viewers  int     `json:"viewers"`
	Mood     string  `json:"mood"`
}

// StreamContent is delivered to viewers for every broadcast message.
type StreamContent struct {
	Type       cnst.MessageType `json:"type"`
	Content    string           `json:"content"`
	Timestamp  float64          `json:"timestamp"`
	StreamInfo StreamInfo       `json:"stream_info"`
}

// SystemMessage carries informational text to the broadcaster.
type SystemMessage struct {
	Type      cnst.MessageType `json:"type"`
	Message   string           `json:"message"`
	Timestamp float64          `json:"timestamp"`
}

// BotReaction mirrors a viewer reaction back to a peer.
type BotReaction struct {
	Type        cnst.MessageType `json:"type"`
	Content     string           `json:"content"`
	BotInfo     map[string]any   `json:"bot_info"`
	Timestamp   float64          `json:"timestamp"`
	AIGenerated bool             `json:"ai_generated,omitempty"`
}

// ViewerUpdate notifies the broadcaster about join/leave events.
type ViewerUpdate struct {
	Type      cnst.MessageType `json:"type"`
	Count     int              `json:"count"`
	Event     string           `json:"event"`
	Timestamp float64          `json:"timestamp"`
}

// NewStreamContent builds an enriched stream_content message.
func NewStreamContent(content string, info StreamInfo) StreamContent {
	return StreamContent{
		Type:       cnst.TypeStreamContent,
		Content:    content,
		Timestamp:  Now(),
		StreamInfo: info,
	}
}

// NewStreamInfo builds the snapshot sent to a freshly connected viewer.
func NewStreamInfo(info StreamInfo) StreamContent {
	return StreamContent{
		Type:       cnst.TypeStreamInfo,
		Timestamp:  Now(),
		StreamInfo: info,
	}
}

// NewSystemInfo builds a system_info message for the broadcaster.
func NewSystemInfo(text string) SystemMessage {
	return SystemMessage{
		Type:      cnst.TypeSystemInfo,
		Message:   text,
		Timestamp: Now(),
	}
}

// NewBotReaction builds a bot_reaction message for the broadcaster.
func NewBotReaction(content string, botInfo map[string]any, aiGenerated bool) BotReaction {
	return BotReaction{
		Type:        cnst.TypeBotReaction,
		Content:     content,
		BotInfo:     botInfo,
		Timestamp:   Now(),
		AIGenerated: aiGenerated,
	}
}

// NewReaction builds the reaction echoed to the requesting viewer.
func NewReaction(content string, botInfo map[string]any) BotReaction {
	return BotReaction{
		Type:        cnst.TypeReaction,
		Content:     content,
		BotInfo:     botInfo,
		Timestamp:   Now(),
		AIGenerated: true,
	}
}

// NewViewerUpdate builds a viewer_update message for the broadcaster.
func NewViewerUpdate(count int, event string) ViewerUpdate {
	return ViewerUpdate{
		Type:      cnst.TypeViewerUpdate,
		Count:     count,
		Event:     event,
		Timestamp: Now(),
	}
}

// BroadcastInput is a decoded broadcaster payload.
type BroadcastInput struct {
	Content string
	Command string
	Title   string // metadata.stream_title, empty when absent
}

// DecodeBroadcast decodes an inbound broadcaster payload. Anything that
// is not a JSON object is treated as plain stream content carrying the
// raw text; a JSON object without a content field falls back to the raw
// text as well. Broadcaster input is never discarded.
func DecodeBroadcast(raw []byte) BroadcastInput {
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return BroadcastInput{Content: string(raw)}
	}

	in := BroadcastInput{
		Command: gjson.GetBytes(raw, "command").String(),
		Title:   gjson.GetBytes(raw, "metadata.stream_title").String(),
	}
	if c := gjson.GetBytes(raw, "content"); c.Exists() {
		in.Content = c.String()
	} else {
		in.Content = string(raw)
	}
	return in
}

// ViewerInput is a decoded viewer payload.
type ViewerInput struct {
	Type    cnst.MessageType
	Content string
	BotInfo map[string]any
}

// DecodeViewer decodes an inbound viewer payload. Malformed viewer
// traffic degrades to a no-op heartbeat.
func DecodeViewer(raw []byte) ViewerInput {
	var m struct {
		Type    string         `json:"type"`
		Content string         `json:"content"`
		BotInfo map[string]any `json:"bot_info"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return ViewerInput{Type: cnst.TypeHeartbeat}
	}
	return ViewerInput{
		Type:    cnst.MessageType(m.Type),
		Content: m.Content,
		BotInfo: m.BotInfo,
	}
}
