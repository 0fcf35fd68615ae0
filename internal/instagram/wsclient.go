package instagram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// wsClient wraps coder/websocket with a thread-safe write method.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// dialWS connects to the realtime endpoint. Compression is not
// negotiated; the edge servers reject RSV1 frames.
func dialWS(ctx context.Context, wsURL string, headers http.Header, jar http.CookieJar) (*wsClient, error) {
	opts := &websocket.DialOptions{
		HTTPHeader: headers,
		HTTPClient: &http.Client{Jar: jar},
	}

	conn, _, err := websocket.Dial(ctx, wsURL, opts)
	if err != nil {
		return nil, fmt.Errorf("instagram: ws dial: %w", err)
	}
	conn.SetReadLimit(1 << 20) // 1MB
	return &wsClient{conn: conn}, nil
}

// ReadMessage reads the next WebSocket message. Blocks until a message
// arrives, the context is cancelled, or the connection is closed.
func (c *wsClient) ReadMessage(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

// WriteMessage sends a binary WebSocket message. Thread-safe.
func (c *wsClient) WriteMessage(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageBinary, data)
}

// Close sends a close frame and shuts down the connection.
func (c *wsClient) Close(code int, reason string) {
	c.conn.Close(websocket.StatusCode(code), reason)
}

// CloseInfo carries the WebSocket close code and reason.
type CloseInfo struct {
	Code   int
	Reason string
}

func parseWSCloseInfo(err error) CloseInfo {
	var ce websocket.CloseError
	if errors.As(err, &ce) {
		return CloseInfo{Code: int(ce.Code), Reason: ce.Reason}
	}
	return CloseInfo{Code: 1006, Reason: err.Error()}
}
