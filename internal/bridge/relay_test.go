package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hoangnv-dev/igbridge/internal/instagram"
)

func textMessage(id, threadID, text string) Message {
	return Message{
		ID:       id,
		ThreadID: threadID,
		Sender:   testUser("7", "alice"),
		Text:     text,
		Kind:     KindText,
		ItemType: "text",
		Time:     time.Now(),
	}
}

func newTestRelay(dest *fakeDest, client *fakeClient, filterWords []string) (*Relay, *Mapper) {
	m := newTestMapper(dest)
	return NewRelay(m, NewFilter(filterWords), dest, client), m
}

func TestRelayText(t *testing.T) {
	dest := newFakeDest()
	r, m := newTestRelay(dest, newFakeClient(), nil)
	ctx := context.Background()

	if err := r.Relay(ctx, textMessage("i1", "t1", "hello")); err != nil {
		t.Fatalf("Relay: %v", err)
	}

	if len(dest.created) != 1 {
		t.Fatalf("topics created = %d, want 1", len(dest.created))
	}
	last := dest.texts[len(dest.texts)-1]
	if last.text != "hello" {
		t.Errorf("relayed text = %q", last.text)
	}
	if m.Size() != 1 {
		t.Errorf("mapper size = %d, want 1", m.Size())
	}
}

func TestRelayFiltered(t *testing.T) {
	dest := newFakeDest()
	r, m := newTestRelay(dest, newFakeClient(), []string{"spam"})
	ctx := context.Background()

	if err := r.Relay(ctx, textMessage("i1", "t1", "Spam offer")); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if dest.sendCount() != 0 || len(dest.created) != 0 {
		t.Error("filtered message must have no side effects")
	}
	if m.Size() != 0 {
		t.Error("filtered message must not create a mapping")
	}
}

func TestRelayMediaKinds(t *testing.T) {
	ctx := context.Background()
	media := &instagram.Media{URL: "https://cdn/m", ThumbnailURL: "https://cdn/t", DurationMS: 5000}

	cases := []struct {
		name  string
		kind  Kind
		media *instagram.Media
		check func(t *testing.T, dest *fakeDest)
	}{
		{"photo", KindPhoto, media, func(t *testing.T, d *fakeDest) {
			if len(d.photos) != 1 {
				t.Errorf("photos = %d", len(d.photos))
			}
		}},
		{"video", KindVideo, media, func(t *testing.T, d *fakeDest) {
			if len(d.videos) != 1 {
				t.Errorf("videos = %d", len(d.videos))
			}
		}},
		{"voice", KindVoice, media, func(t *testing.T, d *fakeDest) {
			if len(d.voices) != 1 {
				t.Errorf("voices = %d", len(d.voices))
			}
		}},
		{"animated", KindAnimated, media, func(t *testing.T, d *fakeDest) {
			if len(d.animations) != 1 {
				t.Errorf("animations = %d", len(d.animations))
			}
		}},
		{"photo without payload degrades to tag", KindPhoto, nil, func(t *testing.T, d *fakeDest) {
			if len(d.texts) == 0 || d.texts[len(d.texts)-1].text != "[media] caption" {
				t.Errorf("texts = %+v", d.texts)
			}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dest := newFakeDest()
			r, _ := newTestRelay(dest, newFakeClient(), nil)

			msg := textMessage("i1", "t1", "caption")
			msg.Kind = tc.kind
			msg.ItemType = "media"
			msg.Media = tc.media
			if err := r.Relay(ctx, msg); err != nil {
				t.Fatalf("Relay: %v", err)
			}
			tc.check(t, dest)
		})
	}
}

func TestRelayStory(t *testing.T) {
	ctx := context.Background()

	t.Run("story with photo media", func(t *testing.T) {
		dest := newFakeDest()
		r, _ := newTestRelay(dest, newFakeClient(), nil)

		msg := textMessage("i1", "t1", "")
		msg.Kind = KindStory
		msg.Media = &instagram.Media{URL: "https://cdn/s"}
		if err := r.Relay(ctx, msg); err != nil {
			t.Fatalf("Relay: %v", err)
		}
		if len(dest.photos) != 1 || dest.photos[0].caption != "shared a story" {
			t.Errorf("photos = %+v", dest.photos)
		}
	})

	t.Run("story without media degrades to text", func(t *testing.T) {
		dest := newFakeDest()
		r, _ := newTestRelay(dest, newFakeClient(), nil)

		msg := textMessage("i1", "t1", "look")
		msg.Kind = KindStory
		if err := r.Relay(ctx, msg); err != nil {
			t.Fatalf("Relay: %v", err)
		}
		if got := dest.texts[len(dest.texts)-1].text; got != "shared a story: look" {
			t.Errorf("text = %q", got)
		}
	})
}

func TestRelayReaction(t *testing.T) {
	dest := newFakeDest()
	r, _ := newTestRelay(dest, newFakeClient(), nil)

	msg := textMessage("i1", "t1", "😂")
	msg.Kind = KindReaction
	if err := r.Relay(context.Background(), msg); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if got := dest.texts[len(dest.texts)-1].text; got != "reacted 😂" {
		t.Errorf("text = %q", got)
	}
}

func TestRelayUnknownKindFallback(t *testing.T) {
	dest := newFakeDest()
	r, _ := newTestRelay(dest, newFakeClient(), nil)

	msg := textMessage("i1", "t1", "went live")
	msg.Kind = KindOther
	msg.ItemType = "live_video_event"
	if err := r.Relay(context.Background(), msg); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if got := dest.texts[len(dest.texts)-1].text; got != "[live_video_event] went live" {
		t.Errorf("fallback text = %q", got)
	}
}

func TestRelayStaleTopic(t *testing.T) {
	ctx := context.Background()

	t.Run("negative probe invalidates and drops", func(t *testing.T) {
		dest := newFakeDest()
		r, m := newTestRelay(dest, newFakeClient(), nil)

		if err := r.Relay(ctx, textMessage("i1", "t1", "first")); err != nil {
			t.Fatalf("first relay: %v", err)
		}
		firstTopic, _ := m.GetOrCreateTopic(ctx, "t1", nil)

		// Operator deletes the topic out from under us.
		dest.mu.Lock()
		delete(dest.exists, firstTopic)
		dest.mu.Unlock()
		m.verify.Delete(firstTopic)

		if err := r.Relay(ctx, textMessage("i2", "t1", "dropped")); err != nil {
			t.Fatalf("stale relay: %v", err)
		}
		if m.Size() != 0 {
			t.Error("stale mapping not invalidated")
		}
		for _, s := range dest.texts {
			if s.text == "dropped" {
				t.Error("message was delivered to a dead topic")
			}
		}

		// Self-heal: next message opens a fresh topic.
		if err := r.Relay(ctx, textMessage("i3", "t1", "healed")); err != nil {
			t.Fatalf("heal relay: %v", err)
		}
		second, _ := m.GetOrCreateTopic(ctx, "t1", nil)
		if second == firstTopic {
			t.Errorf("healed mapping reused dead topic %d", firstTopic)
		}
		if got := dest.texts[len(dest.texts)-1].text; got != "healed" {
			t.Errorf("healed text = %q", got)
		}
	})

	t.Run("missing-topic send error invalidates", func(t *testing.T) {
		dest := newFakeDest()
		r, m := newTestRelay(dest, newFakeClient(), nil)

		if err := r.Relay(ctx, textMessage("i1", "t1", "first")); err != nil {
			t.Fatalf("first relay: %v", err)
		}

		dest.mu.Lock()
		dest.sendErr = errors.New("telegram: 400 message thread not found")
		dest.mu.Unlock()

		if err := r.Relay(ctx, textMessage("i2", "t1", "second")); err != nil {
			t.Fatalf("missing-topic send must not surface an error: %v", err)
		}
		if m.Size() != 0 {
			t.Error("mapping should be invalidated after thread-not-found send")
		}
	})

	t.Run("other send errors propagate", func(t *testing.T) {
		dest := newFakeDest()
		r, m := newTestRelay(dest, newFakeClient(), nil)

		if err := r.Relay(ctx, textMessage("i1", "t1", "first")); err != nil {
			t.Fatalf("first relay: %v", err)
		}

		dest.mu.Lock()
		dest.sendErr = errors.New("telegram: 429 too many requests")
		dest.mu.Unlock()

		if err := r.Relay(ctx, textMessage("i2", "t1", "second")); err == nil {
			t.Fatal("transient send error must propagate")
		}
		if m.Size() != 1 {
			t.Error("transient send error must not invalidate the mapping")
		}
	})
}

func TestIsTopicMissingErr(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("400 message thread not found"), true},
		{errors.New("TOPIC_DELETED"), true},
		{errors.New("Bad Request: chat not found"), true},
		{errors.New("Forbidden: bot was kicked from the supergroup chat"), true},
		{errors.New("429 too many requests"), false},
		{errors.New("context deadline exceeded"), false},
	}
	for _, tc := range cases {
		if got := isTopicMissingErr(tc.err); got != tc.want {
			t.Errorf("isTopicMissingErr(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
