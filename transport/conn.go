// Package transport maintains the persistent websocket connection to
// the automation backend: dial, read pump, fixed-delay reconnect, and
// outbound sends.
package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/renvins/webpilot/logger"
)

// ErrNotConnected is returned by Send while no connection is open.
// There is no internal queue; callers gate sends on connectivity.
var ErrNotConnected = errors.New("transport: not connected")

// NoticeKind tags connection lifecycle notifications.
type NoticeKind int

const (
	// NoticeOpen signals a successfully established connection.
	NoticeOpen NoticeKind = iota
	// NoticeClosed signals a lost or failed connection. Dial failures
	// surface as NoticeClosed too; only the close is observable
	// downstream, mirroring the browser WebSocket model.
	NoticeClosed
	// NoticeFrame carries one raw inbound frame in Data.
	NoticeFrame
)

// Notice is one serialized transport notification. All notices are
// delivered in order on a single channel so the consumer loop stays
// the sole writer of session state.
type Notice struct {
	Kind NoticeKind
	Data []byte
}

// Config holds the fixed connection settings.
type Config struct {
	URL        string
	RetryDelay time.Duration // fixed reconnect delay, no backoff
	ReadLimit  int64         // max inbound frame size, 0 = 1 MiB
	Clock      clockwork.Clock
}

const defaultReadLimit = 1 << 20

// Conn maintains exactly one logical connection, re-established after
// any termination on an unconditional fixed-delay retry. The retry wait
// lives inside the single run loop, so at most one is ever pending.
type Conn struct {
	cfg   Config
	clock clockwork.Clock

	notices chan Notice

	mu sync.Mutex
	ws *websocket.Conn

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an unstarted connection.
func New(cfg Config) *Conn {
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = defaultReadLimit
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Conn{
		cfg:     cfg,
		clock:   clock,
		notices: make(chan Notice, 16),
		done:    make(chan struct{}),
	}
}

// Notices returns the lifecycle and frame stream. A single consumer
// loop must drain it for the connection to make progress.
func (c *Conn) Notices() <-chan Notice { return c.notices }

// Start launches the connect loop. Call once.
func (c *Conn) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

// run dials, pumps frames until the connection dies, then waits the
// fixed delay and dials again, forever.
func (c *Conn) run(ctx context.Context) {
	defer close(c.done)

	for {
		attempt := uuid.NewString()[:8]
		ws, _, err := websocket.Dial(ctx, c.cfg.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("dial failed", "conn", attempt, "url", c.cfg.URL, "err", err)
			if !c.emit(ctx, Notice{Kind: NoticeClosed}) {
				return
			}
			if !c.waitRetry(ctx) {
				return
			}
			continue
		}

		ws.SetReadLimit(c.cfg.ReadLimit)
		c.setWS(ws)
		logger.Info("connected", "conn", attempt, "url", c.cfg.URL)
		if !c.emit(ctx, Notice{Kind: NoticeOpen}) {
			c.setWS(nil)
			_ = ws.CloseNow()
			return
		}

		c.readPump(ctx, ws, attempt)

		c.setWS(nil)
		_ = ws.CloseNow()
		if ctx.Err() != nil {
			return
		}
		if !c.emit(ctx, Notice{Kind: NoticeClosed}) {
			return
		}
		if !c.waitRetry(ctx) {
			return
		}
	}
}

// readPump forwards inbound frames until the connection errors out.
func (c *Conn) readPump(ctx context.Context, ws *websocket.Conn, attempt string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.Info("connection lost", "conn", attempt, "err", err)
			}
			return
		}
		if !c.emit(ctx, Notice{Kind: NoticeFrame, Data: data}) {
			return
		}
	}
}

// waitRetry blocks for the fixed reconnect delay. Returns false when
// the connection was torn down while waiting.
func (c *Conn) waitRetry(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(c.cfg.RetryDelay):
		return true
	}
}

func (c *Conn) emit(ctx context.Context, n Notice) bool {
	select {
	case c.notices <- n:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Conn) setWS(ws *websocket.Conn) {
	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()
}

// Send transmits one text frame. Valid only while the connection is
// open; messages sent while disconnected are rejected, not queued.
func (c *Conn) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()

	if ws == nil {
		return ErrNotConnected
	}
	return ws.Write(ctx, websocket.MessageText, payload)
}

// Teardown cancels any pending reconnect wait, closes the active
// connection, and blocks until the run loop exits. Safe to call more
// than once.
func (c *Conn) Teardown() {
	if c.cancel == nil {
		return
	}
	c.cancel()

	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()
	if ws != nil {
		_ = ws.CloseNow()
	}
	<-c.done
}
