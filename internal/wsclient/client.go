// Package wsclient is a reconnecting websocket client for the arena
// gateway, used by probes and bots that play over the wire.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-arena/pkg/chessdto"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

type EventCallback func(env chessdto.Envelope)

type StateCallback func(state State)

// HeaderProvider supplies handshake headers such as X-Player-Id.
type HeaderProvider func() map[string]string

var ErrNotConnected = errors.New("websocket not connected")

type Client struct {
	url string

	connM sync.RWMutex
	conn  *websocket.Conn
	state State

	cbM      sync.RWMutex
	eventCbs []EventCallback
	stateCbs []StateCallback

	maxReconnect   int
	reconnectDelay time.Duration
	pingInterval   time.Duration
	headers        HeaderProvider

	writeM sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

func New(url string, maxReconnect int, reconnectDelay time.Duration) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		url:            url,
		state:          StateDisconnected,
		maxReconnect:   maxReconnect,
		reconnectDelay: reconnectDelay,
		pingInterval:   30 * time.Second,
		stopCh:         make(chan struct{}),
		rootCtx:        ctx,
		rootCancel:     cancel,
	}
}

func (c *Client) SetHeaderProvider(h HeaderProvider) { c.headers = h }

func (c *Client) OnEvent(cb EventCallback) {
	c.cbM.Lock()
	c.eventCbs = append(c.eventCbs, cb)
	c.cbM.Unlock()
}

func (c *Client) OnStateChange(cb StateCallback) {
	c.cbM.Lock()
	c.stateCbs = append(c.stateCbs, cb)
	c.cbM.Unlock()
}

func (c *Client) State() State {
	c.connM.RLock()
	defer c.connM.RUnlock()
	return c.state
}

func (c *Client) Connect(ctx context.Context) error {
	c.connM.RLock()
	st := c.state
	c.connM.RUnlock()
	if st == StateConnected || st == StateConnecting {
		return nil
	}
	c.setState(StateConnecting)
	if err := c.dial(ctx); err != nil {
		c.setState(StateFailed)
		c.scheduleReconnect()
		return err
	}
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dctx, c.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      c.buildHeaders(),
	})
	if err != nil {
		return err
	}
	c.connM.Lock()
	c.conn = conn
	c.connM.Unlock()
	c.setState(StateConnected)

	c.wg.Add(2)
	go c.listen(conn)
	go c.pingLoop(conn)
	return nil
}

// Send writes one command frame.
func (c *Client) Send(ctx context.Context, typ, gameID string, payload any) error {
	c.connM.RLock()
	conn, st := c.conn, c.state
	c.connM.RUnlock()
	if conn == nil || st != StateConnected {
		return ErrNotConnected
	}
	env := chessdto.Envelope{Type: typ, GameID: gameID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		env.Payload = raw
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	c.writeM.Lock()
	defer c.writeM.Unlock()
	return wsjson.Write(ctx, conn, env)
}

func (c *Client) listen(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		var env chessdto.Envelope
		if err := wsjson.Read(c.rootCtx, conn, &env); err != nil {
			if c.stopping() {
				return
			}
			c.drop(conn, "read failure")
			return
		}
		c.cbM.RLock()
		cbs := append([]EventCallback(nil), c.eventCbs...)
		c.cbM.RUnlock()
		for _, cb := range cbs {
			cb(env)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	defer c.wg.Done()
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.rootCtx.Done():
			return
		case <-t.C:
			c.connM.RLock()
			current := c.conn
			c.connM.RUnlock()
			if current != conn {
				return
			}
			ctx, cancel := context.WithTimeout(c.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				c.drop(conn, "ping failure")
				return
			}
		}
	}
}

// drop closes conn if it is still current and starts reconnecting.
func (c *Client) drop(conn *websocket.Conn, reason string) {
	c.connM.Lock()
	if c.conn != conn {
		c.connM.Unlock()
		return
	}
	c.conn = nil
	c.connM.Unlock()
	_ = conn.Close(websocket.StatusGoingAway, reason)
	c.setState(StateDisconnected)
	c.scheduleReconnect()
}

func (c *Client) scheduleReconnect() {
	if c.maxReconnect <= 0 || c.stopping() {
		return
	}
	c.setState(StateReconnecting)
	go func() {
		for attempt := 1; attempt <= c.maxReconnect; attempt++ {
			select {
			case <-c.stopCh:
				return
			case <-time.After(c.backoff(attempt)):
			}
			if err := c.dial(c.rootCtx); err == nil {
				return
			}
		}
		c.setState(StateFailed)
	}()
}

func (c *Client) backoff(attempt int) time.Duration {
	if attempt > 6 {
		attempt = 6
	}
	base := c.reconnectDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	return time.Duration(1<<uint(attempt-1)) * base
}

func (c *Client) setState(s State) {
	c.connM.Lock()
	c.state = s
	c.connM.Unlock()

	c.cbM.RLock()
	cbs := append([]StateCallback(nil), c.stateCbs...)
	c.cbM.RUnlock()
	for _, cb := range cbs {
		cb(s)
	}
}

func (c *Client) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.connM.Lock()
	conn := c.conn
	c.conn = nil
	c.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	c.rootCancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		c.setState(StateDisconnected)
		return nil
	}
}

func (c *Client) stopping() bool {
	select {
	case <-c.stopCh:
		return true
	default:
		return false
	}
}

func (c *Client) buildHeaders() http.Header {
	hdr := http.Header{}
	if c.headers == nil {
		return hdr
	}
	for k, v := range c.headers() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
