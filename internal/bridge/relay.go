package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Relay moves canonical messages into forum topics and forum replies
// back into the source thread.
type Relay struct {
	mapper *Mapper
	filter *Filter
	dest   Destination
	source SourceSender
}

// SourceSender is the slice of the Instagram client the outbound
// direction needs.
type SourceSender interface {
	SendText(ctx context.Context, threadID, text string) error
	SendPhoto(ctx context.Context, threadID string, jpeg []byte) error
	SendVideo(ctx context.Context, threadID string, mp4 []byte) error
	SendVoice(ctx context.Context, threadID string, audio []byte) error
}

// NewRelay wires the relay to its collaborators.
func NewRelay(mapper *Mapper, filter *Filter, dest Destination, source SourceSender) *Relay {
	return &Relay{mapper: mapper, filter: filter, dest: dest, source: source}
}

// Relay delivers one canonical message into its forum topic. Filtered
// messages short-circuit with no side effects. A topic that turns out to
// be gone invalidates the mapping and drops this message; the next one
// recreates the topic lazily.
func (r *Relay) Relay(ctx context.Context, msg Message) error {
	if r.filter.Blocked(msg.Text) {
		slog.Debug("message suppressed by filter", "item_id", msg.ID, "thread_id", msg.ThreadID)
		return nil
	}

	topicID, err := r.mapper.GetOrCreateTopic(ctx, msg.ThreadID, msg.Sender)
	if err != nil {
		return fmt.Errorf("resolve topic: %w", err)
	}

	if !r.mapper.VerifyTopic(ctx, topicID) {
		slog.Warn("topic gone, invalidating mapping", "thread_id", msg.ThreadID, "topic_id", topicID)
		r.mapper.Invalidate(ctx, msg.ThreadID)
		return nil
	}

	if err := r.dispatch(ctx, topicID, msg); err != nil {
		if isTopicMissingErr(err) {
			slog.Warn("send hit missing topic, invalidating", "thread_id", msg.ThreadID, "topic_id", topicID)
			r.mapper.Invalidate(ctx, msg.ThreadID)
			return nil
		}
		return fmt.Errorf("relay %s message: %w", msg.Kind, err)
	}

	r.mapper.Touch(ctx, msg.ThreadID)
	return nil
}

// dispatch routes by canonical kind. Kinds without a media payload, and
// kinds the bridge has no specific handler for, degrade to a tagged text
// message so nothing is silently dropped.
func (r *Relay) dispatch(ctx context.Context, topicID int, msg Message) error {
	switch msg.Kind {
	case KindText:
		return r.dest.SendText(ctx, topicID, msg.Text)

	case KindPhoto:
		if msg.Media == nil {
			return r.fallback(ctx, topicID, msg)
		}
		return r.dest.SendPhoto(ctx, topicID, msg.Media.URL, msg.Text)

	case KindVideo:
		if msg.Media == nil {
			return r.fallback(ctx, topicID, msg)
		}
		return r.dest.SendVideo(ctx, topicID, msg.Media.URL, msg.Media.ThumbnailURL, msg.Media.DurationMS/1000)

	case KindVoice:
		if msg.Media == nil {
			return r.fallback(ctx, topicID, msg)
		}
		return r.dest.SendVoice(ctx, topicID, msg.Media.URL, msg.Media.DurationMS/1000)

	case KindAnimated:
		if msg.Media == nil {
			return r.fallback(ctx, topicID, msg)
		}
		return r.dest.SendAnimation(ctx, topicID, msg.Media.URL, msg.Text)

	case KindStory:
		caption := "shared a story"
		if msg.Text != "" {
			caption = fmt.Sprintf("shared a story: %s", msg.Text)
		}
		if msg.Media != nil && msg.Media.URL != "" {
			if msg.Media.DurationMS > 0 {
				return r.dest.SendVideo(ctx, topicID, msg.Media.URL, msg.Media.ThumbnailURL, msg.Media.DurationMS/1000)
			}
			return r.dest.SendPhoto(ctx, topicID, msg.Media.URL, caption)
		}
		return r.dest.SendText(ctx, topicID, caption)

	case KindReaction:
		text := msg.Text
		if text == "" {
			text = "❤️"
		}
		return r.dest.SendText(ctx, topicID, fmt.Sprintf("reacted %s", text))

	default:
		return r.fallback(ctx, topicID, msg)
	}
}

// fallback renders any message as a bracketed type tag plus whatever
// text it carried.
func (r *Relay) fallback(ctx context.Context, topicID int, msg Message) error {
	tag := fmt.Sprintf("[%s]", msg.ItemType)
	if msg.Text != "" {
		tag = fmt.Sprintf("[%s] %s", msg.ItemType, msg.Text)
	}
	return r.dest.SendText(ctx, topicID, tag)
}

// isTopicMissingErr matches the authoritative Telegram responses for a
// deleted topic or a chat the bot was removed from.
func isTopicMissingErr(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "thread not found") ||
		strings.Contains(s, "topic_deleted") ||
		strings.Contains(s, "chat not found") ||
		strings.Contains(s, "chat was deactivated") ||
		strings.Contains(s, "bot was kicked")
}
