package instagram

import (
	"encoding/json"
	"time"
)

// Media describes an attachment carried by a realtime event.
type Media struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	DurationMS   int    `json:"duration_ms,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
}

// ThreadInfo is the inline conversation context some realtime events
// carry. When present it saves a blocking profile lookup.
type ThreadInfo struct {
	ThreadID string `json:"thread_id"`
	Users    []User `json:"users"`
}

// RealtimeEvent is one raw direct-message event off the MQTT-over-WebSocket
// transport. The transport delivers duplicates; deduplication is the
// consumer's responsibility. Raw retains the undecoded payload for
// item types the bridge has no specific handler for.
type RealtimeEvent struct {
	ItemID    string          `json:"item_id"`
	ThreadID  string          `json:"thread_id"`
	SenderID  string          `json:"user_id"`
	Text      string          `json:"text,omitempty"`
	ItemType  string          `json:"item_type"`
	Timestamp time.Time       `json:"timestamp"`
	Media     *Media          `json:"media,omitempty"`
	Thread    *ThreadInfo     `json:"thread,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

// FollowerEvent signals a new inbound follow.
type FollowerEvent struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// RequestEvent signals a new pending message/follow request.
type RequestEvent struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
