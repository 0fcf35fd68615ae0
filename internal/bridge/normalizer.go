package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hoangnv-dev/igbridge/internal/bound"
	"github.com/hoangnv-dev/igbridge/internal/bus"
	"github.com/hoangnv-dev/igbridge/internal/instagram"
)

const identityCacheSize = 512

// Normalizer turns raw realtime events into canonical Messages. It owns
// the dedup window: the realtime transport redelivers, so the item-id
// check here is the single at-most-once guard in the pipeline.
type Normalizer struct {
	client     instagram.Client
	window     *bound.Set
	identities *bound.Map[string, instagram.User]

	// Normalized fires once per unique message, in delivery order.
	Normalized bus.Signal[Message]
}

// NewNormalizer creates a normalizer with the given dedup window capacity.
func NewNormalizer(client instagram.Client, windowSize int) *Normalizer {
	return &Normalizer{
		client:     client,
		window:     bound.NewSet(windowSize),
		identities: bound.NewMap[string, instagram.User](identityCacheSize, 0),
	}
}

// HandleEvent normalizes one raw event and emits the result. Duplicates
// are suppressed silently.
func (n *Normalizer) HandleEvent(ctx context.Context, ev instagram.RealtimeEvent) {
	msg, ok := n.Normalize(ctx, ev)
	if !ok {
		return
	}
	n.Normalized.Emit(*msg)
}

// Normalize converts a raw event to a canonical Message. The second
// return is false when the event was suppressed as a duplicate.
func (n *Normalizer) Normalize(ctx context.Context, ev instagram.RealtimeEvent) (*Message, bool) {
	if seen := n.window.Add(ev.ItemID); seen {
		slog.Debug("duplicate realtime delivery suppressed", "item_id", ev.ItemID)
		return nil, false
	}

	sender := n.resolveSender(ctx, ev)

	kind := classifyKind(ev.ItemType, ev.Media)

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return &Message{
		ID:       ev.ItemID,
		ThreadID: ev.ThreadID,
		Sender:   sender,
		Text:     ev.Text,
		Kind:     kind,
		ItemType: ev.ItemType,
		Media:    ev.Media,
		Time:     ts,
		Raw:      ev.Raw,
	}, true
}

// resolveSender prefers inline thread context, then the identity cache,
// then a blocking profile lookup. Lookup failure never drops the
// message — the sender falls back to a synthesized display name.
func (n *Normalizer) resolveSender(ctx context.Context, ev instagram.RealtimeEvent) *instagram.User {
	if ev.Thread != nil {
		for i := range ev.Thread.Users {
			u := ev.Thread.Users[i]
			if u.ID == ev.SenderID {
				n.identities.Put(u.ID, u)
				return &u
			}
		}
	}

	if u, ok := n.identities.Get(ev.SenderID); ok {
		return &u
	}

	u, err := n.client.UserInfo(ctx, ev.SenderID)
	if err != nil {
		slog.Warn("identity lookup failed, synthesizing", "user_id", ev.SenderID, "error", err)
		return &instagram.User{
			ID:       ev.SenderID,
			Username: fmt.Sprintf("user_%s", ev.SenderID),
			FullName: fmt.Sprintf("user_%s", ev.SenderID),
		}
	}
	n.identities.Put(u.ID, *u)
	return u
}

// IdentityCacheLen reports the identity cache size (status command).
func (n *Normalizer) IdentityCacheLen() int { return n.identities.Len() }

// WindowLen reports the dedup window fill (status command).
func (n *Normalizer) WindowLen() int { return n.window.Len() }

func classifyKind(itemType string, media *instagram.Media) Kind {
	kind, ok := kindByItemType[itemType]
	if !ok {
		return KindOther
	}
	if kind == KindPhoto && media != nil && media.DurationMS > 0 {
		return KindVideo
	}
	return kind
}
