// Package telegram implements the forum-group side of the bridge on the
// Telegram Bot API: topic management, per-kind sends, reaction acks and
// the operator command surface.
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"golang.org/x/time/rate"

	"github.com/hoangnv-dev/igbridge/internal/bridge"
	"github.com/hoangnv-dev/igbridge/internal/config"
)

// generalTopicID is the fixed id of the "General" topic in forum
// supergroups. Telegram rejects it as a message_thread_id on sends.
const generalTopicID = 1

// Sender is the bridge's Destination on one forum supergroup. All Bot
// API calls go through a shared rate limiter.
type Sender struct {
	bot     *telego.Bot
	token   string
	groupID int64
	limiter *rate.Limiter
	maxDL   int64
}

// NewSender creates a rate-limited sender for the configured group.
func NewSender(cfg config.TelegramConfig, sendRPM int, maxDownload int64) (*Sender, error) {
	var opts []telego.BotOption
	if cfg.Proxy != "" {
		proxyURL, parseErr := url.Parse(cfg.Proxy)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", cfg.Proxy, parseErr)
		}
		opts = append(opts, telego.WithHTTPClient(&http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}))
	}

	bot, err := telego.NewBot(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	if sendRPM <= 0 {
		sendRPM = 20
	}

	return &Sender{
		bot:     bot,
		token:   cfg.Token,
		groupID: cfg.GroupID,
		limiter: rate.NewLimiter(rate.Limit(sendRPM)/60, 3),
		maxDL:   maxDownload,
	}, nil
}

// Bot exposes the underlying bot for the polling channel.
func (s *Sender) Bot() *telego.Bot { return s.bot }

func (s *Sender) wait(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// resolveThreadID maps a topic id to the message_thread_id parameter.
// The General topic must be omitted or Telegram rejects the send.
func resolveThreadID(topicID int) int {
	if topicID == generalTopicID {
		return 0
	}
	return topicID
}

// CreateTopic allocates a forum topic in the group.
func (s *Sender) CreateTopic(ctx context.Context, name string) (int, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	topic, err := s.bot.CreateForumTopic(ctx, &telego.CreateForumTopicParams{
		ChatID: tu.ID(s.groupID),
		Name:   name,
	})
	if err != nil {
		return 0, fmt.Errorf("create forum topic %q: %w", name, err)
	}
	return topic.MessageThreadID, nil
}

// TopicExists probes a topic with a typing action. A response naming a
// missing thread or dead chat is authoritative absence; any other error
// is returned for the caller to treat as transient.
func (s *Sender) TopicExists(ctx context.Context, topicID int) (bool, error) {
	if err := s.wait(ctx); err != nil {
		return false, err
	}
	params := &telego.SendChatActionParams{
		ChatID: tu.ID(s.groupID),
		Action: telego.ChatActionTyping,
	}
	if id := resolveThreadID(topicID); id > 0 {
		params.MessageThreadID = id
	}
	err := s.bot.SendChatAction(ctx, params)
	if err == nil {
		return true, nil
	}
	if isMissingResponse(err) {
		return false, nil
	}
	return false, fmt.Errorf("probe topic %d: %w", topicID, err)
}

func (s *Sender) SendText(ctx context.Context, topicID int, text string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	msg := tu.Message(tu.ID(s.groupID), text)
	if id := resolveThreadID(topicID); id > 0 {
		msg.MessageThreadID = id
	}
	_, err := s.bot.SendMessage(ctx, msg)
	return err
}

func (s *Sender) SendPhoto(ctx context.Context, topicID int, mediaURL, caption string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	params := &telego.SendPhotoParams{
		ChatID:  tu.ID(s.groupID),
		Photo:   tu.FileFromURL(mediaURL),
		Caption: caption,
	}
	if id := resolveThreadID(topicID); id > 0 {
		params.MessageThreadID = id
	}
	_, err := s.bot.SendPhoto(ctx, params)
	return err
}

func (s *Sender) SendVideo(ctx context.Context, topicID int, mediaURL, thumbURL string, durationSec int) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	params := &telego.SendVideoParams{
		ChatID:   tu.ID(s.groupID),
		Video:    tu.FileFromURL(mediaURL),
		Duration: durationSec,
	}
	if thumbURL != "" {
		thumb := tu.FileFromURL(thumbURL)
		params.Thumbnail = &thumb
	}
	if id := resolveThreadID(topicID); id > 0 {
		params.MessageThreadID = id
	}
	_, err := s.bot.SendVideo(ctx, params)
	return err
}

func (s *Sender) SendVoice(ctx context.Context, topicID int, mediaURL string, durationSec int) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	params := &telego.SendVoiceParams{
		ChatID:   tu.ID(s.groupID),
		Voice:    tu.FileFromURL(mediaURL),
		Duration: durationSec,
	}
	if id := resolveThreadID(topicID); id > 0 {
		params.MessageThreadID = id
	}
	_, err := s.bot.SendVoice(ctx, params)
	return err
}

func (s *Sender) SendAnimation(ctx context.Context, topicID int, mediaURL, caption string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	params := &telego.SendAnimationParams{
		ChatID:    tu.ID(s.groupID),
		Animation: tu.FileFromURL(mediaURL),
		Caption:   caption,
	}
	if id := resolveThreadID(topicID); id > 0 {
		params.MessageThreadID = id
	}
	_, err := s.bot.SendAnimation(ctx, params)
	return err
}

// ackEmoji maps relay ack statuses onto allowed reaction emoji.
var ackEmoji = map[bridge.AckStatus]string{
	bridge.AckOK:          "👍",
	bridge.AckFailed:      "👎",
	bridge.AckUnsupported: "🤷‍♂",
	bridge.AckUnknownChat: "🤔",
}

// React sets a status reaction on a group message.
func (s *Sender) React(ctx context.Context, messageID int, status bridge.AckStatus) error {
	emoji, ok := ackEmoji[status]
	if !ok {
		emoji = "🤔"
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.bot.SetMessageReaction(ctx, &telego.SetMessageReactionParams{
		ChatID:    tu.ID(s.groupID),
		MessageID: messageID,
		Reaction: []telego.ReactionType{
			&telego.ReactionTypeEmoji{Type: telego.ReactionEmoji, Emoji: emoji},
		},
	})
}

// DownloadFile fetches an attachment by file_id for resubmission to the
// source platform.
func (s *Sender) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	file, err := s.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file info: %w", err)
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("empty file path for file_id %s", fileID)
	}
	if s.maxDL > 0 && int64(file.FileSize) > s.maxDL {
		return nil, fmt.Errorf("file too large: %d bytes (max %d)", file.FileSize, s.maxDL)
	}

	downloadURL := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", s.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	limit := s.maxDL
	if limit <= 0 {
		limit = 20 * 1024 * 1024
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file exceeds max size during download: %d bytes", len(data))
	}
	return data, nil
}

// isMissingResponse matches Bot API errors that mean the topic or chat
// is gone for good, as opposed to a transient failure.
func isMissingResponse(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "thread not found") ||
		strings.Contains(s, "topic_deleted") ||
		strings.Contains(s, "chat not found") ||
		strings.Contains(s, "chat was deactivated") ||
		strings.Contains(s, "bot was kicked")
}

var _ bridge.Destination = (*Sender)(nil)
