// Package bridge is the core of the Instagram↔Telegram relay: realtime
// event normalization, thread↔topic mapping, bidirectional message
// relay and the rate-limited follow automation queue.
package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hoangnv-dev/igbridge/internal/instagram"
)

// Kind is the canonical media classification of a normalized message.
type Kind string

const (
	KindText     Kind = "text"
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindVoice    Kind = "voice"
	KindAnimated Kind = "animated"
	KindStory    Kind = "story"
	KindReaction Kind = "reaction"
	KindOther    Kind = "other"
)

// kindByItemType is the fixed source item-type classification table.
// "media" is photo by default and promoted to video when the attachment
// carries a duration. Unlisted types classify as KindOther.
var kindByItemType = map[string]Kind{
	"text":           KindText,
	"link":           KindText,
	"media":          KindPhoto,
	"voice_media":    KindVoice,
	"animated_media": KindAnimated,
	"story_share":    KindStory,
	"reel_share":     KindStory,
	"like":           KindReaction,
	"reaction":       KindReaction,
}

// Message is a canonical direct message. Immutable once constructed.
type Message struct {
	ID       string
	ThreadID string
	Sender   *instagram.User // resolved identity, never nil
	Text     string
	Kind     Kind
	ItemType string // raw source item type, kept for the fallback tag
	Media    *instagram.Media
	Time     time.Time
	Raw      json.RawMessage
}

// AttachmentKind classifies a destination (Telegram) message for the
// outbound relay direction.
type AttachmentKind string

const (
	AttachText        AttachmentKind = "text"
	AttachPhoto       AttachmentKind = "photo"
	AttachVideo       AttachmentKind = "video"
	AttachVoice       AttachmentKind = "voice"
	AttachDocument    AttachmentKind = "document"
	AttachSticker     AttachmentKind = "sticker"
	AttachAnimation   AttachmentKind = "animation"
	AttachUnsupported AttachmentKind = "unsupported"
)

// TopicMessage is a destination-side message addressed to a forum topic,
// already reduced to the fields the relay needs.
type TopicMessage struct {
	TopicID     int
	MessageID   int
	Text        string
	Kind        AttachmentKind
	FileID      string
	FileName    string
	DurationSec int
}

// AckStatus is the inline delivery feedback attached to the triggering
// destination message.
type AckStatus string

const (
	AckOK          AckStatus = "ok"
	AckFailed      AckStatus = "failed"
	AckUnsupported AckStatus = "unsupported"
	AckUnknownChat AckStatus = "unknown_chat"
)

// Destination is the forum-side command surface the bridge core sends
// through. Implemented by the Telegram sender; faked in tests.
type Destination interface {
	// CreateTopic allocates a new forum topic and returns its id.
	CreateTopic(ctx context.Context, name string) (int, error)
	// TopicExists probes a topic. (false, nil) is authoritative absence;
	// a non-nil error is transient and the caller decides how to treat it.
	TopicExists(ctx context.Context, topicID int) (bool, error)

	SendText(ctx context.Context, topicID int, text string) error
	SendPhoto(ctx context.Context, topicID int, url, caption string) error
	SendVideo(ctx context.Context, topicID int, url, thumbURL string, durationSec int) error
	SendVoice(ctx context.Context, topicID int, url string, durationSec int) error
	SendAnimation(ctx context.Context, topicID int, url, caption string) error

	// React attaches a status reaction to a destination message.
	React(ctx context.Context, messageID int, status AckStatus) error
	// DownloadFile fetches a destination attachment for resubmission.
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// Command is one operator command exposed over the destination chat.
type Command struct {
	Name string
	Help string
	// Run executes the command and returns the reply text.
	Run func(ctx context.Context, args []string) string
}

// Module is anything that contributes operator commands. A module with
// nothing to offer returns an empty slice, never nil-panics.
type Module interface {
	Name() string
	Commands() []Command
}
