package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// ErrNotConnected is returned by Publish while the relay connection is down.
// Callers treat it as a dropped best-effort notification, not a sync failure.
var ErrNotConnected = ChannelError("realtime channel not connected")

// ChannelError helps distinguish channel errors.
type ChannelError string

func (e ChannelError) Error() string {
	return string(e)
}

const (
	dialTimeout      = 10 * time.Second
	writeTimeout     = 5 * time.Second
	maxReconnectWait = 30 * time.Second
)

// wsChannel implements Channel over a WebSocket connection to the relay
// server. It reconnects with exponential backoff; while disconnected,
// publishes fail fast and Connected reports false so the orchestrator falls
// back to polling.
type wsChannel struct {
	url    string
	token  string
	logger *log.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSChannel creates a channel client for the relay at url, authenticating
// with the given bearer token. If logger is nil a stderr logger is used.
func NewWSChannel(url, token string, logger *log.Logger) Channel {
	if logger == nil {
		logger = log.New(os.Stderr, "[realtime] ", log.LstdFlags)
	}
	return &wsChannel{
		url:    url,
		token:  token,
		logger: logger,
	}
}

// Subscribe starts the connection manager for ownerID's room and dispatches
// incoming messages to onMessage until the context is cancelled or the
// subscription is released.
func (c *wsChannel) Subscribe(ctx context.Context, ownerID string, onMessage func(Message)) (Subscription, error) {
	runCtx, cancel := context.WithCancel(ctx)
	go c.run(runCtx, ownerID, onMessage)
	return &wsSubscription{cancel: cancel}, nil
}

// Publish sends a message to the owner's room. Best-effort: if the connection
// is down the message is simply not delivered.
func (c *wsChannel) Publish(ctx context.Context, ownerID string, msg Message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	msg.OwnerID = ownerID
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// Connected reports whether the relay connection is currently up.
func (c *wsChannel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *wsChannel) run(ctx context.Context, ownerID string, onMessage func(Message)) {
	backoff := time.Second

	for ctx.Err() == nil {
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Printf("relay dial failed, retrying in %s: %v", backoff, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxReconnectWait {
				backoff = maxReconnectWait
			}
			continue
		}

		backoff = time.Second
		c.setConn(conn)
		c.logger.Printf("relay connected for owner %s", ownerID)

		c.readLoop(ctx, conn, ownerID, onMessage)

		c.setConn(nil)
		_ = conn.Close(websocket.StatusNormalClosure, "")
		c.logger.Printf("relay connection lost for owner %s", ownerID)
	}
}

func (c *wsChannel) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{
		HTTPHeader: header,
	})
	return conn, err
}

func (c *wsChannel) readLoop(ctx context.Context, conn *websocket.Conn, ownerID string, onMessage func(Message)) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Printf("WARNING: discarding malformed realtime frame: %v", err)
			continue
		}
		if msg.OwnerID != "" && msg.OwnerID != ownerID {
			continue
		}
		onMessage(msg)
	}
}

func (c *wsChannel) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

type wsSubscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (s *wsSubscription) Unsubscribe() {
	s.once.Do(s.cancel)
}
