package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/hoangnv-dev/igbridge/internal/bridge"
)

// Channel long-polls the bot for forum-group updates and routes each
// message either to the operator command registry or to the outbound
// relay handler.
type Channel struct {
	sender   *Sender
	groupID  int64
	registry *Registry

	// OnTopicMessage receives non-command group messages for relayBack.
	OnTopicMessage func(ctx context.Context, tm bridge.TopicMessage)

	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// NewChannel creates the polling channel over an existing sender.
func NewChannel(sender *Sender, registry *Registry) *Channel {
	return &Channel{
		sender:   sender,
		groupID:  sender.groupID,
		registry: registry,
	}
}

// Start begins long polling for updates.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting telegram polling")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.sender.Bot().UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	slog.Info("telegram connected", "username", c.sender.Bot().Username())

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed")
					return
				}
				if update.Message != nil {
					c.handleMessage(pollCtx, update.Message)
				}
			}
		}
	}()

	return nil
}

// Stop cancels polling and waits for the goroutine to exit so Telegram
// releases the getUpdates lock before a new instance starts.
func (c *Channel) Stop() {
	if c.pollCancel != nil {
		c.pollCancel()
	}
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
		case <-time.After(10 * time.Second):
			slog.Warn("telegram polling goroutine did not exit within timeout")
		}
	}
}

func (c *Channel) handleMessage(ctx context.Context, message *telego.Message) {
	if message.Chat.ID != c.groupID {
		slog.Debug("message outside bridge group skipped", "chat_id", message.Chat.ID)
		return
	}
	if message.From == nil || message.From.IsBot {
		return
	}

	// Commands are only accepted in General: inside a conversation topic
	// a reply that happens to start with a command word ("follow up
	// tomorrow") must reach the thread, not the command registry.
	if isGeneralTopic(message.MessageThreadID) {
		if reply, handled := c.registry.Dispatch(ctx, message.Text); handled {
			msg := tu.Message(tu.ID(c.groupID), reply)
			if _, err := c.sender.Bot().SendMessage(ctx, msg); err != nil {
				slog.Warn("command reply failed", "error", err)
			}
			return
		}
	}

	if c.OnTopicMessage == nil {
		return
	}
	c.OnTopicMessage(ctx, toTopicMessage(message))
}

// isGeneralTopic reports whether a message lives outside any
// conversation topic.
func isGeneralTopic(threadID int) bool {
	return threadID == 0 || threadID == generalTopicID
}

// toTopicMessage reduces a Telegram message to the fields the relay
// dispatches on. Messages without a thread id belong to General (1).
func toTopicMessage(message *telego.Message) bridge.TopicMessage {
	tm := bridge.TopicMessage{
		TopicID:   message.MessageThreadID,
		MessageID: message.MessageID,
		Text:      message.Text,
	}
	if tm.TopicID == 0 {
		tm.TopicID = generalTopicID
	}

	switch {
	case len(message.Photo) > 0:
		// highest resolution is last
		photo := message.Photo[len(message.Photo)-1]
		tm.Kind = bridge.AttachPhoto
		tm.FileID = photo.FileID
		tm.Text = message.Caption
	case message.Video != nil:
		tm.Kind = bridge.AttachVideo
		tm.FileID = message.Video.FileID
		tm.DurationSec = message.Video.Duration
		tm.Text = message.Caption
	case message.Voice != nil:
		tm.Kind = bridge.AttachVoice
		tm.FileID = message.Voice.FileID
		tm.DurationSec = message.Voice.Duration
	case message.Animation != nil:
		tm.Kind = bridge.AttachAnimation
		tm.FileID = message.Animation.FileID
		tm.Text = message.Caption
	case message.Sticker != nil:
		tm.Kind = bridge.AttachSticker
		tm.FileID = message.Sticker.FileID
	case message.Document != nil:
		tm.Kind = bridge.AttachDocument
		tm.FileID = message.Document.FileID
		tm.FileName = message.Document.FileName
		tm.Text = message.Caption
	case message.Text != "":
		tm.Kind = bridge.AttachText
	default:
		tm.Kind = bridge.AttachUnsupported
	}
	return tm
}
