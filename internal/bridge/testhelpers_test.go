package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hoangnv-dev/igbridge/internal/config"
	"github.com/hoangnv-dev/igbridge/internal/instagram"
	"github.com/hoangnv-dev/igbridge/internal/store"
)

// fakeDest records every Destination call and can be programmed to fail.
type fakeDest struct {
	mu sync.Mutex

	nextTopicID int
	createErr   error
	createDelay time.Duration
	created     []string

	exists    map[int]bool
	existsErr error
	probes    int

	texts      []sentText
	photos     []sentMedia
	videos     []sentMedia
	voices     []sentMedia
	animations []sentMedia
	sendErr    error

	reactions []reaction

	files       map[string][]byte
	downloadErr error
}

type sentText struct {
	topicID int
	text    string
}

type sentMedia struct {
	topicID int
	url     string
	caption string
}

type reaction struct {
	messageID int
	status    AckStatus
}

func newFakeDest() *fakeDest {
	return &fakeDest{
		nextTopicID: 100,
		exists:      make(map[int]bool),
		files:       make(map[string][]byte),
	}
}

func (d *fakeDest) CreateTopic(ctx context.Context, name string) (int, error) {
	if d.createDelay > 0 {
		time.Sleep(d.createDelay)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return 0, d.createErr
	}
	d.nextTopicID++
	d.created = append(d.created, name)
	d.exists[d.nextTopicID] = true
	return d.nextTopicID, nil
}

func (d *fakeDest) TopicExists(ctx context.Context, topicID int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.probes++
	if d.existsErr != nil {
		return false, d.existsErr
	}
	return d.exists[topicID], nil
}

func (d *fakeDest) SendText(ctx context.Context, topicID int, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return d.sendErr
	}
	d.texts = append(d.texts, sentText{topicID, text})
	return nil
}

func (d *fakeDest) SendPhoto(ctx context.Context, topicID int, url, caption string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return d.sendErr
	}
	d.photos = append(d.photos, sentMedia{topicID, url, caption})
	return nil
}

func (d *fakeDest) SendVideo(ctx context.Context, topicID int, url, thumbURL string, durationSec int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return d.sendErr
	}
	d.videos = append(d.videos, sentMedia{topicID, url, ""})
	return nil
}

func (d *fakeDest) SendVoice(ctx context.Context, topicID int, url string, durationSec int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return d.sendErr
	}
	d.voices = append(d.voices, sentMedia{topicID, url, ""})
	return nil
}

func (d *fakeDest) SendAnimation(ctx context.Context, topicID int, url, caption string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		return d.sendErr
	}
	d.animations = append(d.animations, sentMedia{topicID, url, caption})
	return nil
}

func (d *fakeDest) React(ctx context.Context, messageID int, status AckStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reactions = append(d.reactions, reaction{messageID, status})
	return nil
}

func (d *fakeDest) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.downloadErr != nil {
		return nil, d.downloadErr
	}
	data, ok := d.files[fileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (d *fakeDest) sendCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.texts) + len(d.photos) + len(d.videos) + len(d.voices) + len(d.animations)
}

func (d *fakeDest) lastReaction() (reaction, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.reactions) == 0 {
		return reaction{}, false
	}
	return d.reactions[len(d.reactions)-1], true
}

// fakeClient is a programmable instagram.Client.
type fakeClient struct {
	mu sync.Mutex

	users       map[string]*instagram.User
	userInfoErr error
	lookups     int

	sentTexts  []string
	sentPhotos int
	sentVideos int
	sentVoices int
	sendErr    error

	followed  []string
	followErr error

	pending     []instagram.User
	approved    []string
	approveErr  error
	followerCnt int
}

func newFakeClient() *fakeClient {
	return &fakeClient{users: make(map[string]*instagram.User)}
}

func (c *fakeClient) UserInfo(ctx context.Context, userID string) (*instagram.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lookups++
	if c.userInfoErr != nil {
		return nil, c.userInfoErr
	}
	if u, ok := c.users[userID]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func (c *fakeClient) UserByName(ctx context.Context, username string) (*instagram.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (c *fakeClient) SendText(ctx context.Context, threadID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sentTexts = append(c.sentTexts, text)
	return nil
}

func (c *fakeClient) SendPhoto(ctx context.Context, threadID string, jpeg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sentPhotos++
	return nil
}

func (c *fakeClient) SendVideo(ctx context.Context, threadID string, mp4 []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sentVideos++
	return nil
}

func (c *fakeClient) SendVoice(ctx context.Context, threadID string, audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sentVoices++
	return nil
}

func (c *fakeClient) Follow(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.followErr != nil {
		return c.followErr
	}
	c.followed = append(c.followed, userID)
	return nil
}

func (c *fakeClient) Unfollow(ctx context.Context, userID string) error { return nil }

func (c *fakeClient) ApproveRequest(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.approveErr != nil {
		return c.approveErr
	}
	c.approved = append(c.approved, userID)
	return nil
}

func (c *fakeClient) PendingRequests(ctx context.Context) ([]instagram.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, nil
}

func (c *fakeClient) FollowerCount(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.followerCnt, nil
}

func (c *fakeClient) followCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.followed)
}

// newTestMapper builds a mapper over a memory store and a fake destination.
func newTestMapper(dest *fakeDest) *Mapper {
	return NewMapper(store.NewMemory(), dest, time.Minute)
}

// newTestQueue builds an AutoFollow with instant sleep and a movable clock.
func newTestQueue(client *fakeClient, rt *config.Runtime) (*AutoFollow, *time.Time) {
	q := NewAutoFollow(client, rt, 30*time.Second, time.Millisecond)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return clock }
	q.sleep = func(ctx context.Context, d time.Duration) {}
	return q, &clock
}

func testUser(id, username string) *instagram.User {
	return &instagram.User{ID: id, Username: username, FullName: username}
}
