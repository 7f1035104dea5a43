package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/reptin/rcs/internal/engine"
	"github.com/reptin/rcs/internal/logger"
)

// Connected reports the outcome of a handshake.
type Connected struct {
	OK         bool
	ExtVersion string
}

// Client is the page side of the bridge: it is what the catalog website
// uses to probe for the extension, read the current collection and propose
// changes. Every request carries a fresh request id; replies are matched
// back through the pending map and unanswered requests resolve to a
// timeout failure.
type Client struct {
	origin  string
	conn    *websocket.Conn
	pending *pendingMap

	writeMu sync.Mutex

	handshakeTimeout time.Duration
	requestTimeout   time.Duration

	ackCh chan AckMessage

	updateMu sync.Mutex
	onUpdate func([]engine.Engine)

	closeOnce sync.Once
	done      chan struct{}
}

// ClientOption tweaks client behavior.
type ClientOption func(*Client)

// WithTimeouts overrides the handshake and request timeouts.
func WithTimeouts(handshake, request time.Duration) ClientOption {
	return func(c *Client) {
		c.handshakeTimeout = handshake
		c.requestTimeout = request
	}
}

// Dial connects to a relay bridge endpoint, identifying as origin.
func Dial(ctx context.Context, url, origin string, opts ...ClientOption) (*Client, error) {
	header := http.Header{}
	header.Set("Origin", origin)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("failed to reach bridge: %w", err)
	}

	c := &Client{
		origin:           origin,
		conn:             conn,
		pending:          newPendingMap(),
		handshakeTimeout: DefaultHandshakeTimeout,
		requestTimeout:   DefaultRequestTimeout,
		ackCh:            make(chan AckMessage, 1),
		done:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()
	return c, nil
}

// Close tears down the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	})
}

// OnEnginesUpdate registers a callback for unsolicited collection syncs.
func (c *Client) OnEnginesUpdate(fn func([]engine.Engine)) {
	c.updateMu.Lock()
	c.onUpdate = fn
	c.updateMu.Unlock()
}

// Handshake probes for the extension. A missing ack within the handshake
// timeout resolves as not connected rather than an error.
func (c *Client) Handshake() Connected {
	// Drain a stale ack from an earlier probe.
	select {
	case <-c.ackCh:
	default:
	}

	err := c.writeJSON(HandshakeMessage{
		Type:    TypeHandshake,
		Origin:  c.origin,
		Version: ProtocolVersion,
	})
	if err != nil {
		logger.Debug("[Bridge] Handshake write failed: %v", err)
		return Connected{OK: false}
	}

	timer := time.NewTimer(c.handshakeTimeout)
	defer timer.Stop()
	select {
	case ack := <-c.ackCh:
		return Connected{OK: true, ExtVersion: ack.ExtVersion}
	case <-timer.C:
		return Connected{OK: false}
	case <-c.done:
		return Connected{OK: false}
	}
}

// GetEngines fetches the current collection.
func (c *Client) GetEngines() ([]engine.Engine, error) {
	res, err := c.request(func(requestID string) any {
		return GetEnginesRequest{Type: TypeGetEngines, RequestID: requestID}
	})
	if err != nil {
		return nil, err
	}
	if !res.OK {
		return nil, fmt.Errorf("get engines failed: %s", res.Message)
	}
	return res.Engines, nil
}

// AddEngines proposes a bulk add. Timeouts resolve to an ok:false result,
// not an error.
func (c *Client) AddEngines(engines []EngineInput) (Result, error) {
	return c.request(func(requestID string) any {
		return AddEnginesRequest{Type: TypeAddEngines, Engines: engines, RequestID: requestID}
	})
}

// RemoveEngine proposes a removal by url template.
func (c *Client) RemoveEngine(url string) (Result, error) {
	return c.request(func(requestID string) any {
		return RemoveEngineRequest{Type: TypeRemoveEngine, URL: url, RequestID: requestID}
	})
}

// request sends one correlated request and awaits its reply or timeout.
func (c *Client) request(build func(requestID string) any) (Result, error) {
	requestID := uuid.NewString()
	ch := c.pending.add(requestID)

	if err := c.writeJSON(build(requestID)); err != nil {
		c.pending.drop(requestID)
		return Result{}, fmt.Errorf("failed to send bridge request: %w", err)
	}

	return c.pending.await(requestID, ch, c.requestTimeout), nil
}

func (c *Client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *Client) readLoop() {
	defer c.Close()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				logger.Debug("[Bridge] Client read loop ended: %v", err)
			}
			return
		}
		c.route(data)
	}
}

// route delivers one relay frame: acks feed the handshake, correlated
// results and engine lists resolve their pending request, and engine
// updates without a matching request are surfaced as unsolicited syncs.
func (c *Client) route(data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		logger.Debug("[Bridge] Dropping malformed relay frame: %v", err)
		return
	}

	switch env.Type {
	case TypeAck:
		var msg AckMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		select {
		case c.ackCh <- msg:
		default:
		}

	case TypeResult:
		var msg ResultMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		if !c.pending.resolve(msg.RequestID, Result{OK: msg.OK, Message: msg.Message}) {
			logger.Debug("[Bridge] Ignoring late result for request %s", msg.RequestID)
		}

	case TypeEnginesUpdate:
		var msg EnginesUpdateMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		if msg.RequestID != "" &&
			c.pending.resolve(msg.RequestID, Result{OK: true, Engines: msg.Engines}) {
			return
		}
		c.updateMu.Lock()
		fn := c.onUpdate
		c.updateMu.Unlock()
		if fn != nil {
			fn(msg.Engines)
		}

	default:
		logger.Debug("[Bridge] Dropping unrecognized relay frame %q", env.Type)
	}
}
