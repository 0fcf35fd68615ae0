package bridge

import (
	"context"
	"fmt"
	"log/slog"
)

// RelayBack delivers a forum-topic message back into its source direct
// thread and acknowledges the outcome with a reaction on the triggering
// message, so the operator gets inline delivery feedback.
func (r *Relay) RelayBack(ctx context.Context, tm TopicMessage) {
	threadID, ok := r.mapper.ThreadForTopic(tm.TopicID)
	if !ok {
		slog.Warn("no thread for topic", "topic_id", tm.TopicID)
		r.ack(ctx, tm.MessageID, AckUnknownChat)
		return
	}

	if r.filter.Blocked(tm.Text) {
		slog.Debug("outbound message suppressed by filter", "topic_id", tm.TopicID)
		return
	}

	status := r.dispatchBack(ctx, threadID, tm)
	r.ack(ctx, tm.MessageID, status)
	if status == AckOK {
		r.mapper.Touch(ctx, threadID)
	}
}

func (r *Relay) dispatchBack(ctx context.Context, threadID string, tm TopicMessage) AckStatus {
	switch tm.Kind {
	case AttachText:
		if tm.Text == "" {
			return AckUnsupported
		}
		return r.ackFor(r.source.SendText(ctx, threadID, tm.Text))

	case AttachPhoto, AttachSticker:
		// Stickers go out as still images; the source has no sticker type.
		data, err := r.dest.DownloadFile(ctx, tm.FileID)
		if err != nil {
			slog.Warn("attachment download failed", "file_id", tm.FileID, "error", err)
			return AckFailed
		}
		return r.ackFor(r.source.SendPhoto(ctx, threadID, data))

	case AttachVideo, AttachAnimation:
		data, err := r.dest.DownloadFile(ctx, tm.FileID)
		if err != nil {
			slog.Warn("attachment download failed", "file_id", tm.FileID, "error", err)
			return AckFailed
		}
		return r.ackFor(r.source.SendVideo(ctx, threadID, data))

	case AttachVoice:
		data, err := r.dest.DownloadFile(ctx, tm.FileID)
		if err != nil {
			slog.Warn("attachment download failed", "file_id", tm.FileID, "error", err)
			return AckFailed
		}
		return r.ackFor(r.source.SendVoice(ctx, threadID, data))

	case AttachDocument:
		// Documents cannot be resubmitted; summarize instead of dropping.
		summary := fmt.Sprintf("[Document: %s]", tm.FileName)
		if tm.Text != "" {
			summary = fmt.Sprintf("%s %s", summary, tm.Text)
		}
		return r.ackFor(r.source.SendText(ctx, threadID, summary))

	default:
		return AckUnsupported
	}
}

func (r *Relay) ackFor(err error) AckStatus {
	if err != nil {
		slog.Warn("outbound send failed", "error", err)
		return AckFailed
	}
	return AckOK
}

func (r *Relay) ack(ctx context.Context, messageID int, status AckStatus) {
	if err := r.dest.React(ctx, messageID, status); err != nil {
		slog.Debug("ack reaction failed", "message_id", messageID, "error", err)
	}
}
