package bridge

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/hoangnv-dev/igbridge/internal/config"
	"github.com/hoangnv-dev/igbridge/internal/instagram"
)

// QueueItem is one pending follow-back action.
type QueueItem struct {
	UserID     string
	Username   string
	EnqueuedAt time.Time
}

// AutoFollow is the hourly-rate-limited follow-back worker. New-follower
// events enqueue unconditionally; a periodic tick dispatches at most one
// follow per tick within the hourly quota, with a randomized pause after
// each action to avoid burst behavior. A tick that finds the quota
// exhausted drops the dequeued item rather than requeuing it.
type AutoFollow struct {
	client instagram.Client
	rt     *config.Runtime

	mu          sync.Mutex
	queue       []QueueItem
	draining    bool
	windowStart time.Time
	windowCount int

	tick         time.Duration
	requestDelay time.Duration

	// test hooks
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
	rnd   *rand.Rand
}

// NewAutoFollow creates the worker. tick and requestDelay come from the
// static config; the quota and delay bounds are read from rt on every tick.
func NewAutoFollow(client instagram.Client, rt *config.Runtime, tick, requestDelay time.Duration) *AutoFollow {
	return &AutoFollow{
		client:       client,
		rt:           rt,
		tick:         tick,
		requestDelay: requestDelay,
		now:          time.Now,
		sleep:        sleepCtx,
		rnd:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Enqueue appends a follow-back action. Never blocks, never rejects;
// growth is bounded by the hourly quota, not queue capacity.
func (q *AutoFollow) Enqueue(userID, username string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queue = append(q.queue, QueueItem{UserID: userID, Username: username, EnqueuedAt: q.now()})
	slog.Debug("follow-back queued", "user_id", userID, "username", username, "depth", len(q.queue))
}

// QueueLen reports the current queue depth (status command).
func (q *AutoFollow) QueueLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Run ticks the queue until the context is cancelled.
func (q *AutoFollow) Run(ctx context.Context) {
	ticker := time.NewTicker(q.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.tickOnce(ctx)
		}
	}
}

// tickOnce processes at most one queued item. The draining guard keeps a
// slow follow call plus its randomized pause from overlapping the next tick.
func (q *AutoFollow) tickOnce(ctx context.Context) {
	q.mu.Lock()
	if q.draining || len(q.queue) == 0 || !q.rt.AutoFollow() {
		q.mu.Unlock()
		return
	}
	q.draining = true
	item := q.queue[0]
	q.queue = q.queue[1:]

	now := q.now()
	if q.windowStart.IsZero() || now.Sub(q.windowStart) >= time.Hour {
		q.windowStart = now
		q.windowCount = 0
	}
	if q.windowCount >= q.rt.MaxPerHour() {
		q.draining = false
		q.mu.Unlock()
		// Quota exhausted: the item is already dequeued and is dropped,
		// not requeued for the next window.
		slog.Info("hourly follow quota exhausted, dropping",
			"user_id", item.UserID, "username", item.Username, "count", q.windowCount)
		return
	}
	q.mu.Unlock()

	if err := q.client.Follow(ctx, item.UserID); err != nil {
		slog.Warn("follow failed", "user_id", item.UserID, "username", item.Username, "error", err)
	} else {
		q.mu.Lock()
		q.windowCount++
		count := q.windowCount
		q.mu.Unlock()
		slog.Info("followed back", "user_id", item.UserID, "username", item.Username, "hour_count", count)
	}

	q.sleep(ctx, q.randomDelay())

	q.mu.Lock()
	q.draining = false
	q.mu.Unlock()
}

func (q *AutoFollow) randomDelay() time.Duration {
	min, max := q.rt.DelayBounds()
	if max <= min {
		return min
	}
	return min + time.Duration(q.rnd.Int63n(int64(max-min)))
}

// ApproveAllPending sweeps every currently pending inbound request with
// a fixed inter-item delay. Independent of the hourly follow quota.
// Returns how many requests were approved.
func (q *AutoFollow) ApproveAllPending(ctx context.Context) (int, error) {
	pending, err := q.client.PendingRequests(ctx)
	if err != nil {
		return 0, err
	}

	approved := 0
	for i, u := range pending {
		if err := q.client.ApproveRequest(ctx, u.ID); err != nil {
			slog.Warn("approve request failed", "user_id", u.ID, "username", u.Username, "error", err)
			continue
		}
		approved++
		slog.Info("request approved", "user_id", u.ID, "username", u.Username)
		if i < len(pending)-1 {
			q.sleep(ctx, q.requestDelay)
		}
	}
	return approved, nil
}

// HandleFollower enqueues a follow-back when the toggle is on.
func (q *AutoFollow) HandleFollower(ev instagram.FollowerEvent) {
	if !q.rt.AutoFollow() {
		return
	}
	q.Enqueue(ev.UserID, ev.Username)
}

// HandleRequest sweeps pending requests when the toggle is on.
func (q *AutoFollow) HandleRequest(ctx context.Context, ev instagram.RequestEvent) {
	if !q.rt.AutoRequests() {
		return
	}
	if _, err := q.ApproveAllPending(ctx); err != nil {
		slog.Warn("request sweep failed", "trigger_user", ev.Username, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
