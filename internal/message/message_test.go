package message

import (
	"encoding/json"
	"testing"

	"github.com/botlisten/botcast/internal/common/cnst"

	"github.com/stretchr/testify/assert"
)

func TestDecodeBroadcast_JSON(t *testing.T) {
	raw := []byte(`{"content":"hello","metadata":{"stream_title":"Game Night"},"command":""}`)
	in := DecodeBroadcast(raw)
	assert.Equal(t, "hello", in.Content)
	assert.Equal(t, "Game Night", in.Title)
	assert.Empty(t, in.Command)
}

func TestDecodeBroadcast_Command(t *testing.T) {
	in := DecodeBroadcast([]byte(`{"content":"","command":"get_viewers"}`))
	assert.Equal(t, cnst.CommandGetViewers, in.Command)
}

func TestDecodeBroadcast_PlainText(t *testing.T) {
	// not JSON at all: the raw text becomes the content verbatim
	in := DecodeBroadcast([]byte("hello everyone"))
	assert.Equal(t, "hello everyone", in.Content)
	assert.Empty(t, in.Title)
	assert.Empty(t, in.Command)
}

func TestDecodeBroadcast_NonObjectJSON(t *testing.T) {
	in := DecodeBroadcast([]byte(`"quoted"`))
	assert.Equal(t, `"quoted"`, in.Content)
}

func TestDecodeBroadcast_ObjectWithoutContent(t *testing.T) {
	raw := `{"metadata":{"stream_title":"Cooking"}}`
	in := DecodeBroadcast([]byte(raw))
	// no content field: the whole raw payload is relayed
	assert.Equal(t, raw, in.Content)
	assert.Equal(t, "Cooking", in.Title)
}

func TestDecodeViewer(t *testing.T) {
	raw := []byte(`{"type":"reaction","content":"nice!","bot_info":{"personality_type":"funny"}}`)
	in := DecodeViewer(raw)
	assert.Equal(t, cnst.TypeReaction, in.Type)
	assert.Equal(t, "nice!", in.Content)
	assert.Equal(t, "funny", in.BotInfo["personality_type"])
}

func TestDecodeViewer_MalformedIsHeartbeat(t *testing.T) {
	in := DecodeViewer([]byte("not json"))
	assert.Equal(t, cnst.TypeHeartbeat, in.Type)
	assert.Empty(t, in.Content)
	assert.Nil(t, in.BotInfo)
}

func TestStreamContentWire(t *testing.T) {
	sc := NewStreamContent("hi", StreamInfo{Title: "t", Duration: 1.5, Viewers: 2, Mood: "neutral"})
	data, err := json.Marshal(sc)
	assert.NoError(t, err)

	var m map[string]any
	assert.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "stream_content", m["type"])
	assert.Equal(t, "hi", m["content"])
	assert.NotZero(t, m["timestamp"])
	info := m["stream_info"].(map[string]any)
	assert.Equal(t, "t", info["title"])
	assert.Equal(t, float64(2), info["viewers"])
}

func TestBotReactionOmitsFlagWhenNotGenerated(t *testing.T) {
	data, err := json.Marshal(NewBotReaction("ok", nil, false))
	assert.NoError(t, err)
	assert.NotContains(t, string(data), "ai_generated")

	data, err = json.Marshal(NewBotReaction("ok", nil, true))
	assert.NoError(t, err)
	assert.Contains(t, string(data), `"ai_generated":true`)
}

func TestNewViewerUpdate(t *testing.T) {
	vu := NewViewerUpdate(3, cnst.EventLeave)
	assert.Equal(t, cnst.TypeViewerUpdate, vu.Type)
	assert.Equal(t, 3, vu.Count)
	assert.Equal(t, "leave", vu.Event)
}
