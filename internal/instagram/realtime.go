package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	eventBufferSize = 64
	pingInterval    = 25 * time.Second
	readDeadline    = 3 * time.Minute
)

// Session carries the authenticated realtime connection parameters.
// Produced by the login layer; opaque to the bridge core.
type Session struct {
	WSURL     string
	UserAgent string
	CookieJar http.CookieJar
}

// Listener connects to the realtime WebSocket and dispatches decoded
// direct-message, follower and request events on typed channels. The
// transport does not deduplicate deliveries.
type Listener struct {
	mu   sync.RWMutex
	sess *Session

	client      *wsClient
	connectedAt time.Time

	messageCh  chan RealtimeEvent
	followerCh chan FollowerEvent
	requestCh  chan RequestEvent
	closedCh   chan CloseInfo
	errorCh    chan error

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewListener creates a listener from an authenticated session.
func NewListener(sess *Session) (*Listener, error) {
	if sess == nil || sess.WSURL == "" {
		return nil, fmt.Errorf("instagram: no realtime URL in session")
	}
	return &Listener{
		sess:       sess,
		messageCh:  make(chan RealtimeEvent, eventBufferSize),
		followerCh: make(chan FollowerEvent, 16),
		requestCh:  make(chan RequestEvent, 16),
		closedCh:   make(chan CloseInfo, 1),
		errorCh:    make(chan error, 16),
	}, nil
}

// Channel accessors.
func (ln *Listener) Messages() <-chan RealtimeEvent { return ln.messageCh }
func (ln *Listener) Followers() <-chan FollowerEvent { return ln.followerCh }
func (ln *Listener) Requests() <-chan RequestEvent { return ln.requestCh }
func (ln *Listener) Closed() <-chan CloseInfo { return ln.closedCh }
func (ln *Listener) Errors() <-chan error { return ln.errorCh }

// Start connects the WebSocket and begins reading events.
func (ln *Listener) Start(ctx context.Context) error {
	ln.mu.Lock()
	defer ln.mu.Unlock()

	if ln.client != nil {
		return fmt.Errorf("instagram: listener already started")
	}

	lctx, cancel := context.WithCancel(ctx)
	ln.cancel = cancel

	u, err := url.Parse(ln.sess.WSURL)
	if err != nil {
		cancel()
		return fmt.Errorf("instagram: realtime url: %w", err)
	}
	h := http.Header{}
	h.Set("Host", u.Host)
	h.Set("Origin", "https://www.instagram.com")
	h.Set("User-Agent", ln.sess.UserAgent)

	client, err := dialWS(lctx, ln.sess.WSURL, h, ln.sess.CookieJar)
	if err != nil {
		cancel()
		return err
	}

	slog.Debug("instagram realtime connected", "url", u.Host)

	ln.client = client
	ln.connectedAt = time.Now()
	ln.wg.Add(2)
	go ln.run(lctx)
	go ln.pingLoop(lctx)
	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (ln *Listener) Stop() {
	ln.mu.Lock()
	client := ln.client
	cancel := ln.cancel
	ln.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if client != nil {
		client.Close(1000, "")
	}
	ln.wg.Wait()
}

func (ln *Listener) run(ctx context.Context) {
	defer ln.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		readCtx, rcancel := context.WithTimeout(ctx, readDeadline)
		data, err := ln.client.ReadMessage(readCtx)
		rcancel()

		if err != nil {
			ci := parseWSCloseInfo(err)
			select {
			case ln.closedCh <- ci:
			default:
			}
			return
		}
		ln.handleFrame(data)
	}
}

func (ln *Listener) pingLoop(ctx context.Context) {
	defer ln.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ln.client.WriteMessage(ctx, []byte(`{"op":"ping"}`)); err != nil {
				emit(ln.errorCh, fmt.Errorf("instagram: ping: %w", err))
				return
			}
		}
	}
}

// frameEnvelope is the decoded wire frame: an op name plus an opaque payload.
type frameEnvelope struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

func (ln *Listener) handleFrame(data []byte) {
	var env frameEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		emit(ln.errorCh, fmt.Errorf("instagram: parse frame: %w", err))
		return
	}

	switch env.Op {
	case "message":
		var ev RealtimeEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			emit(ln.errorCh, fmt.Errorf("instagram: parse message event: %w", err))
			return
		}
		ev.Raw = env.Data
		select {
		case ln.messageCh <- ev:
		default:
			slog.Warn("instagram event buffer full, dropping", "item_id", ev.ItemID)
		}
	case "follower":
		var ev FollowerEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			emit(ln.errorCh, fmt.Errorf("instagram: parse follower event: %w", err))
			return
		}
		select {
		case ln.followerCh <- ev:
		default:
		}
	case "request":
		var ev RequestEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			emit(ln.errorCh, fmt.Errorf("instagram: parse request event: %w", err))
			return
		}
		select {
		case ln.requestCh <- ev:
		default:
		}
	case "pong":
		// keepalive reply, nothing to do
	default:
		slog.Debug("instagram frame skipped", "op", env.Op)
	}
}

// emit drops the error when nobody is draining the channel.
func emit(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}
