package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"

	"github.com/hoangnv-dev/igbridge/internal/bridge"
)

func TestToTopicMessage(t *testing.T) {
	t.Run("text in topic", func(t *testing.T) {
		tm := toTopicMessage(&telego.Message{MessageID: 5, MessageThreadID: 42, Text: "hi"})
		if tm.Kind != bridge.AttachText || tm.TopicID != 42 || tm.Text != "hi" {
			t.Errorf("tm = %+v", tm)
		}
	})

	t.Run("no thread id maps to general", func(t *testing.T) {
		tm := toTopicMessage(&telego.Message{MessageID: 5, Text: "hi"})
		if tm.TopicID != generalTopicID {
			t.Errorf("topic = %d, want general (%d)", tm.TopicID, generalTopicID)
		}
	})

	t.Run("photo takes highest resolution and caption", func(t *testing.T) {
		tm := toTopicMessage(&telego.Message{
			MessageID:       5,
			MessageThreadID: 42,
			Caption:         "look",
			Photo: []telego.PhotoSize{
				{FileID: "small", Width: 90},
				{FileID: "big", Width: 1280},
			},
		})
		if tm.Kind != bridge.AttachPhoto || tm.FileID != "big" || tm.Text != "look" {
			t.Errorf("tm = %+v", tm)
		}
	})

	t.Run("voice carries duration", func(t *testing.T) {
		tm := toTopicMessage(&telego.Message{
			MessageID:       5,
			MessageThreadID: 42,
			Voice:           &telego.Voice{FileID: "v1", Duration: 7},
		})
		if tm.Kind != bridge.AttachVoice || tm.DurationSec != 7 {
			t.Errorf("tm = %+v", tm)
		}
	})

	t.Run("document keeps filename", func(t *testing.T) {
		tm := toTopicMessage(&telego.Message{
			MessageID:       5,
			MessageThreadID: 42,
			Document:        &telego.Document{FileID: "d1", FileName: "invoice.pdf"},
		})
		if tm.Kind != bridge.AttachDocument || tm.FileName != "invoice.pdf" {
			t.Errorf("tm = %+v", tm)
		}
	})

	t.Run("sticker", func(t *testing.T) {
		tm := toTopicMessage(&telego.Message{
			MessageID:       5,
			MessageThreadID: 42,
			Sticker:         &telego.Sticker{FileID: "s1"},
		})
		if tm.Kind != bridge.AttachSticker {
			t.Errorf("tm = %+v", tm)
		}
	})

	t.Run("bare service message is unsupported", func(t *testing.T) {
		tm := toTopicMessage(&telego.Message{MessageID: 5, MessageThreadID: 42})
		if tm.Kind != bridge.AttachUnsupported {
			t.Errorf("tm = %+v", tm)
		}
	})
}

func TestHandleMessageCommandScope(t *testing.T) {
	const groupID = int64(-100500)
	registry := NewRegistry(&stubModule{name: "a", cmds: []bridge.Command{echoCommand("follow")}})

	newTestChannel := func() (*Channel, *[]bridge.TopicMessage) {
		var got []bridge.TopicMessage
		c := &Channel{groupID: groupID, registry: registry}
		c.OnTopicMessage = func(ctx context.Context, tm bridge.TopicMessage) {
			got = append(got, tm)
		}
		return c, &got
	}

	operator := &telego.User{ID: 7}

	t.Run("command word inside a topic is relayed, not dispatched", func(t *testing.T) {
		c, got := newTestChannel()
		c.handleMessage(context.Background(), &telego.Message{
			MessageID:       5,
			MessageThreadID: 42,
			Chat:            telego.Chat{ID: groupID},
			From:            operator,
			Text:            "follow up tomorrow",
		})
		if len(*got) != 1 {
			t.Fatalf("relayed %d messages, want 1", len(*got))
		}
		if tm := (*got)[0]; tm.Text != "follow up tomorrow" || tm.TopicID != 42 {
			t.Errorf("tm = %+v", tm)
		}
	})

	t.Run("non-command in general is relayed", func(t *testing.T) {
		c, got := newTestChannel()
		c.handleMessage(context.Background(), &telego.Message{
			MessageID: 5,
			Chat:      telego.Chat{ID: groupID},
			From:      operator,
			Text:      "hello there",
		})
		if len(*got) != 1 {
			t.Fatalf("relayed %d messages, want 1", len(*got))
		}
	})

	t.Run("messages from other chats are skipped", func(t *testing.T) {
		c, got := newTestChannel()
		c.handleMessage(context.Background(), &telego.Message{
			MessageID: 5,
			Chat:      telego.Chat{ID: 12345},
			From:      operator,
			Text:      "hello",
		})
		if len(*got) != 0 {
			t.Error("message outside the bridge group must be ignored")
		}
	})

	t.Run("bot messages are skipped", func(t *testing.T) {
		c, got := newTestChannel()
		c.handleMessage(context.Background(), &telego.Message{
			MessageID: 5,
			Chat:      telego.Chat{ID: groupID},
			From:      &telego.User{ID: 8, IsBot: true},
			Text:      "hello",
		})
		if len(*got) != 0 {
			t.Error("bot message must be ignored")
		}
	})
}

func TestIsGeneralTopic(t *testing.T) {
	if !isGeneralTopic(0) || !isGeneralTopic(generalTopicID) {
		t.Error("general topic forms not recognized")
	}
	if isGeneralTopic(42) {
		t.Error("conversation topic misread as general")
	}
}

func TestResolveThreadID(t *testing.T) {
	if got := resolveThreadID(generalTopicID); got != 0 {
		t.Errorf("general topic must send without a thread id, got %d", got)
	}
	if got := resolveThreadID(42); got != 42 {
		t.Errorf("resolveThreadID(42) = %d", got)
	}
	if got := resolveThreadID(0); got != 0 {
		t.Errorf("resolveThreadID(0) = %d", got)
	}
}

func TestIsMissingResponse(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("telego: sendMessage: api: 400 Bad Request: message thread not found"), true},
		{errors.New("api: 400 Bad Request: TOPIC_DELETED"), true},
		{errors.New("api: 403 Forbidden: bot was kicked from the supergroup chat"), true},
		{errors.New("api: 429 Too Many Requests: retry after 5"), false},
		{errors.New("dial tcp: i/o timeout"), false},
	}
	for _, tc := range cases {
		if got := isMissingResponse(tc.err); got != tc.want {
			t.Errorf("isMissingResponse(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
