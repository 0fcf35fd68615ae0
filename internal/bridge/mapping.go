package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hoangnv-dev/igbridge/internal/bound"
	"github.com/hoangnv-dev/igbridge/internal/instagram"
	"github.com/hoangnv-dev/igbridge/internal/store"
)

const verifyCacheSize = 256

// Mapper owns the thread↔topic bijection. It is the only writer to the
// persistent mapping store; the in-memory tables are rebuilt from the
// store at startup and are authoritative between restarts.
type Mapper struct {
	store store.Store
	dest  Destination

	mu       sync.RWMutex
	byThread map[string]store.ChatRecord
	byTopic  map[int]string

	// verify caches recent topic-existence probes so the relay does not
	// round-trip to Telegram before every send.
	verify *bound.Map[int, bool]

	// flight collapses concurrent first-contact events for one thread
	// into a single topic creation; joiners share the leader's result.
	flight singleflight.Group

	now func() time.Time
}

// NewMapper creates a mapper. verifyTTL bounds how long a positive or
// negative topic probe is trusted.
func NewMapper(st store.Store, dest Destination, verifyTTL time.Duration) *Mapper {
	return &Mapper{
		store:    st,
		dest:     dest,
		byThread: make(map[string]store.ChatRecord),
		byTopic:  make(map[int]string),
		verify:   bound.NewMap[int, bool](verifyCacheSize, verifyTTL),
		now:      time.Now,
	}
}

// Load rebuilds the in-memory tables from the store.
func (m *Mapper) Load(ctx context.Context) error {
	chats, err := m.store.ListChats(ctx)
	if err != nil {
		return fmt.Errorf("load mappings: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range chats {
		m.byThread[rec.ThreadID] = rec
		m.byTopic[rec.TopicID] = rec.ThreadID
	}
	slog.Info("mappings loaded", "count", len(chats))
	return nil
}

// GetOrCreateTopic returns the topic for a thread, creating it on first
// contact. Concurrent callers for the same new thread all receive the
// same topic id; exactly one creation runs.
func (m *Mapper) GetOrCreateTopic(ctx context.Context, threadID string, sender *instagram.User) (int, error) {
	if rec, ok := m.lookup(threadID); ok {
		return rec.TopicID, nil
	}

	v, err, _ := m.flight.Do(threadID, func() (interface{}, error) {
		// A joiner may have been queued behind a completed creation.
		if rec, ok := m.lookup(threadID); ok {
			return rec.TopicID, nil
		}
		return m.createTopic(ctx, threadID, sender)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (m *Mapper) createTopic(ctx context.Context, threadID string, sender *instagram.User) (int, error) {
	topicID, err := m.dest.CreateTopic(ctx, topicName(threadID, sender))
	if err != nil {
		return 0, fmt.Errorf("create topic for thread %s: %w", threadID, err)
	}

	now := m.now()
	rec := store.ChatRecord{
		ThreadID:     threadID,
		TopicID:      topicID,
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if sender != nil {
		rec.AvatarURL = sender.AvatarURL
	}

	// A failed persist leaves the mapping usable in memory; it will be
	// recreated from scratch after a restart.
	if err := m.store.UpsertChat(ctx, rec); err != nil {
		slog.Warn("persist mapping failed", "thread_id", threadID, "error", err)
	}

	m.mu.Lock()
	m.byThread[threadID] = rec
	m.byTopic[topicID] = threadID
	m.mu.Unlock()

	m.postWelcome(ctx, topicID, threadID, sender)

	slog.Info("topic created", "thread_id", threadID, "topic_id", topicID)
	return topicID, nil
}

// postWelcome drops a one-time profile summary into a fresh topic.
// Failure is logged and ignored; the mapping is already committed.
func (m *Mapper) postWelcome(ctx context.Context, topicID int, threadID string, sender *instagram.User) {
	if sender == nil {
		return
	}

	if err := m.store.UpsertUser(ctx, store.UserRecord{
		UserID:    sender.ID,
		Username:  sender.Username,
		FullName:  sender.FullName,
		AvatarURL: sender.AvatarURL,
		FirstSeen: m.now(),
		LastSeen:  m.now(),
	}); err != nil {
		slog.Warn("persist user failed", "user_id", sender.ID, "error", err)
	}

	summary := profileSummary(sender)
	if sender.AvatarURL != "" {
		if err := m.dest.SendPhoto(ctx, topicID, sender.AvatarURL, summary); err != nil {
			slog.Warn("welcome photo failed", "topic_id", topicID, "error", err)
			// fall back to text so the topic still opens with context
			if err := m.dest.SendText(ctx, topicID, summary); err != nil {
				slog.Warn("welcome text failed", "topic_id", topicID, "error", err)
			}
		}
		return
	}
	if err := m.dest.SendText(ctx, topicID, summary); err != nil {
		slog.Warn("welcome text failed", "topic_id", topicID, "error", err)
	}
}

// VerifyTopic reports whether a topic is believed to exist. Authoritative
// "not found" responses are cached negative; transient probe errors fail
// open without caching so the next send re-probes.
func (m *Mapper) VerifyTopic(ctx context.Context, topicID int) bool {
	if v, ok := m.verify.Get(topicID); ok {
		return v
	}

	exists, err := m.dest.TopicExists(ctx, topicID)
	if err != nil {
		slog.Debug("topic probe failed, assuming present", "topic_id", topicID, "error", err)
		return true
	}

	m.verify.Put(topicID, exists)
	return exists
}

// Invalidate removes a stale mapping everywhere: memory, verify cache,
// and the persistent store. The next inbound message for the thread
// recreates lazily.
func (m *Mapper) Invalidate(ctx context.Context, threadID string) {
	m.mu.Lock()
	rec, ok := m.byThread[threadID]
	if ok {
		delete(m.byThread, threadID)
		delete(m.byTopic, rec.TopicID)
	}
	m.mu.Unlock()

	if ok {
		m.verify.Delete(rec.TopicID)
	}

	if err := m.store.DeleteChat(ctx, threadID); err != nil {
		slog.Warn("delete mapping failed", "thread_id", threadID, "error", err)
	}
	if ok {
		slog.Info("mapping invalidated", "thread_id", threadID, "topic_id", rec.TopicID)
	}
}

// ThreadForTopic is the reverse lookup for the outbound direction.
func (m *Mapper) ThreadForTopic(topicID int) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	threadID, ok := m.byTopic[topicID]
	return threadID, ok
}

// Touch bumps a mapping's last-activity timestamp after a relayed send.
func (m *Mapper) Touch(ctx context.Context, threadID string) {
	now := m.now()

	m.mu.Lock()
	if rec, ok := m.byThread[threadID]; ok {
		rec.LastActiveAt = now
		m.byThread[threadID] = rec
	}
	m.mu.Unlock()

	if err := m.store.TouchChat(ctx, threadID, now); err != nil {
		slog.Debug("touch mapping failed", "thread_id", threadID, "error", err)
	}
}

// Size reports the number of live mappings (status command).
func (m *Mapper) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byThread)
}

func (m *Mapper) lookup(threadID string) (store.ChatRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byThread[threadID]
	return rec, ok
}

// topicName labels a topic after the sender, falling back to the thread id.
func topicName(threadID string, sender *instagram.User) string {
	if sender != nil {
		if name := sender.DisplayName(); name != "" {
			return name
		}
	}
	return fmt.Sprintf("thread %s", threadID)
}

func profileSummary(u *instagram.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "@%s", u.Username)
	if u.FullName != "" && u.FullName != u.Username {
		fmt.Fprintf(&b, " — %s", u.FullName)
	}
	var marks []string
	if u.IsVerified {
		marks = append(marks, "verified")
	}
	if u.IsPrivate {
		marks = append(marks, "private")
	}
	if u.IsBusiness {
		marks = append(marks, "business")
	}
	if len(marks) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(marks, ", "))
	}
	fmt.Fprintf(&b, "\n%d followers · %d following · %d posts",
		u.FollowerCount, u.FollowingCount, u.MediaCount)
	if u.Biography != "" {
		fmt.Fprintf(&b, "\n%s", u.Biography)
	}
	return b.String()
}
