package wsclient

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/questline/sessionsync/internal/protocol"
)

// Status describes the connection lifecycle. Disconnected is terminal: the
// reconnect budget is spent. Closed means the conn was released on purpose.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusClosed       Status = "closed"
)

// Frame is one raw inbound message with its position in the arrival log.
type Frame struct {
	Index int
	Data  []byte
}

// Logger interface for logging abstraction
type Logger interface {
	Printf(format string, v ...interface{})
}

// Sink receives connection notifications. Callbacks run on the connection's
// read goroutine and must not block.
type Sink interface {
	FramesAppended()
	StatusChanged(Status)
}

// Options configures dialing and reconnect behavior for a session connection.
type Options struct {
	// URL builds the WebSocket endpoint for a session id.
	URL func(sessionID string) string

	DialTimeout       time.Duration
	ReconnectBase     time.Duration
	ReconnectAttempts int
	Logger            Logger
}

func (o Options) withDefaults() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.ReconnectBase <= 0 {
		o.ReconnectBase = time.Second
	}
	if o.ReconnectAttempts <= 0 {
		o.ReconnectAttempts = 5
	}
	if o.Logger == nil {
		o.Logger = nopLogger{}
	}
	return o
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...interface{}) {}

// Conn is the single shared connection for one game session. It keeps an
// append-only log of inbound frames so subscribers holding a read cursor can
// attach, detach, and re-attach without skipping or reprocessing a frame.
type Conn struct {
	sessionID string
	identity  protocol.Identity
	opts      Options

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	ws       *websocket.Conn
	status   Status
	frames   []Frame
	sinks    map[int]Sink
	nextSink int
	closed   bool
}

func newConn(sessionID string, identity protocol.Identity, opts Options) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &Conn{
		sessionID: sessionID,
		identity:  identity,
		opts:      opts.withDefaults(),
		ctx:       ctx,
		cancel:    cancel,
		status:    StatusConnecting,
		sinks:     make(map[int]Sink),
	}
}

// SessionID returns the session this connection serves.
func (c *Conn) SessionID() string { return c.sessionID }

// Identity returns the local participant announced on join.
func (c *Conn) Identity() protocol.Identity { return c.identity }

// Status returns the current lifecycle state.
func (c *Conn) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Frames returns a copy of the inbound log starting at index from.
func (c *Conn) Frames(from int) []Frame {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if from < 0 {
		from = 0
	}
	if from >= len(c.frames) {
		return nil
	}
	out := make([]Frame, len(c.frames)-from)
	copy(out, c.frames[from:])
	return out
}

// Subscribe registers a sink and returns a function that removes it.
func (c *Conn) Subscribe(sink Sink) func() {
	c.mu.Lock()
	id := c.nextSink
	c.nextSink++
	c.sinks[id] = sink
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.sinks, id)
		c.mu.Unlock()
	}
}

// run dials and reads until the conn is closed deliberately or the reconnect
// budget is exhausted. Every successful open re-sends the join announcement;
// the server treats repeated joins idempotently.
func (c *Conn) run() {
	attempts := 0
	for {
		ws, err := c.dial()
		if err == nil {
			attempts = 0
			c.setWS(ws)
			c.setStatus(StatusConnected)
			if err := c.sendJoin(ws); err != nil {
				c.opts.Logger.Printf("session %s: join announce failed: %v", c.sessionID, err)
			}
			c.readLoop(ws)
		}

		if c.isClosed() {
			return
		}

		attempts++
		if attempts > c.opts.ReconnectAttempts {
			c.opts.Logger.Printf("session %s: reconnect budget exhausted after %d attempts", c.sessionID, c.opts.ReconnectAttempts)
			c.setStatus(StatusDisconnected)
			return
		}

		delay := c.opts.ReconnectBase << (attempts - 1)
		c.setStatus(StatusConnecting)
		c.opts.Logger.Printf("session %s: connection lost, retry %d/%d in %s", c.sessionID, attempts, c.opts.ReconnectAttempts, delay)

		select {
		case <-time.After(delay):
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Conn) dial() (*websocket.Conn, error) {
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.DialTimeout)
	defer cancel()

	ws, _, err := websocket.Dial(ctx, c.opts.URL(c.sessionID), nil)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func (c *Conn) sendJoin(ws *websocket.Conn) error {
	data, err := json.Marshal(protocol.NewJoin(c.sessionID, c.identity))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.ctx, 3*time.Second)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, data, err := ws.Read(c.ctx)
		if err != nil {
			_ = ws.Close(websocket.StatusNormalClosure, "")
			return
		}
		c.append(data)
	}
}

func (c *Conn) append(data []byte) {
	c.mu.Lock()
	c.frames = append(c.frames, Frame{Index: len(c.frames), Data: data})
	sinks := c.snapshotSinksLocked()
	c.mu.Unlock()

	for _, s := range sinks {
		s.FramesAppended()
	}
}

func (c *Conn) setStatus(s Status) {
	c.mu.Lock()
	if c.closed && s != StatusClosed {
		c.mu.Unlock()
		return
	}
	if c.status == s {
		c.mu.Unlock()
		return
	}
	c.status = s
	sinks := c.snapshotSinksLocked()
	c.mu.Unlock()

	for _, sink := range sinks {
		sink.StatusChanged(s)
	}
}

func (c *Conn) snapshotSinksLocked() []Sink {
	out := make([]Sink, 0, len(c.sinks))
	for _, s := range c.sinks {
		out = append(out, s)
	}
	return out
}

func (c *Conn) setWS(ws *websocket.Conn) {
	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
}

func (c *Conn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// close tears the connection down on purpose: a best-effort leave frame, then
// the socket. All pending and future reconnects are disabled.
func (c *Conn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	ws := c.ws
	c.mu.Unlock()

	if ws != nil {
		data, err := json.Marshal(protocol.NewLeave(c.sessionID, c.identity.ID))
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			_ = ws.Write(ctx, websocket.MessageText, data)
			cancel()
		}
	}

	c.cancel()
	if ws != nil {
		_ = ws.Close(websocket.StatusNormalClosure, "")
	}
	c.setStatus(StatusClosed)
}
