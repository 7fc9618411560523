package cnst

// MessageType identifies a payload on the wire.
type MessageType string

const (
	// Server -> viewer
	TypeStreamContent MessageType = "stream_content"
	TypeStreamInfo    MessageType = "stream_info"

	// Server -> broadcaster
	TypeSystemInfo   MessageType = "system_info"
	TypeViewerUpdate MessageType = "viewer_update"
	TypeBotReaction  MessageType = "bot_reaction"

	// Viewer -> server
	TypeHeartbeat            MessageType = "heartbeat"
	TypeReaction             MessageType = "reaction"
	TypeReceiveStreamContent MessageType = "receive_stream_content"
)

func (t MessageType) String() string {
	return string(t)
}

// Broadcaster commands.
const (
	CommandGetViewers = "get_viewers"
)

// Viewer update events.
const (
	EventJoin  = "join"
	EventLeave = "leave"
)

// CloseReasonBroadcasterTaken is sent when a second broadcaster tries to
// take the slot while one is already connected.
const CloseReasonBroadcasterTaken = "another broadcaster is already connected"
