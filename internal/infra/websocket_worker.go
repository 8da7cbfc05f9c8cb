package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned by Write when no live connection exists.
var ErrNotConnected = errors.New("channel not connected")

// ConnState is the lifecycle state of a managed connection.
type ConnState int32

const (
	ConnIdle ConnState = iota
	ConnConnecting
	ConnConnected
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnIdle:
		return "idle"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ChannelHandler defines venue-specific logic for the BaseWSWorker.
type ChannelHandler interface {
	URL() string
	ID() string
	// OnConnect runs after the dial succeeds, before any reads. It is
	// where the registration handshake is sent.
	OnConnect(ctx context.Context, conn *websocket.Conn) error
	OnMessage(ctx context.Context, msg []byte)
	// OnDisconnect runs every time a live connection is lost, whether
	// by transport error or explicit shutdown.
	OnDisconnect(ctx context.Context)
}

// BaseWSWorker manages the lifecycle of one WebSocket connection:
// dial, handshake, reads, serialized writes, and reconnection with
// capped exponential backoff. An explicit Stop is terminal and never
// triggers a reconnect; only unexpected closes do.
type BaseWSWorker struct {
	handler ChannelHandler
	mu      sync.RWMutex
	conn    *websocket.Conn
	state   ConnState
	writeMu sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stop    sync.Once

	// ReadTimeout bounds each read; zero means no deadline, which
	// suits venues that may be silent for long stretches.
	ReadTimeout      time.Duration
	HandshakeTimeout time.Duration
}

// NewBaseWSWorker creates a worker for the given handler.
func NewBaseWSWorker(handler ChannelHandler) *BaseWSWorker {
	return &BaseWSWorker{
		handler:          handler,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Start launches the connect/read loop.
func (w *BaseWSWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.runLoop(ctx)
}

// Stop tears the worker down. Idempotent; pending dials are cancelled
// and no reconnect is attempted.
func (w *BaseWSWorker) Stop() {
	w.stop.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		// Mark closed before tearing the connection down so the
		// handler's OnDisconnect can tell a shutdown from a drop.
		w.setState(ConnClosed)
		w.close(context.Background())
		w.wg.Wait()
		w.setState(ConnClosed)
	})
}

// State returns the connection lifecycle state.
func (w *BaseWSWorker) State() ConnState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Connected reports whether a live connection exists.
func (w *BaseWSWorker) Connected() bool {
	return w.State() == ConnConnected
}

func (w *BaseWSWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()
	retry := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("channel connect failed",
				"id", w.handler.ID(), "err", err, "retry", retry)
			delay := CalculateBackoff(retry)
			retry++

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		w.process(ctx)
	}
}

func (w *BaseWSWorker) connect(ctx context.Context) error {
	w.setState(ConnConnecting)

	dialer := websocket.Dialer{HandshakeTimeout: w.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, w.handler.URL(), nil)
	if err != nil {
		w.setState(ConnIdle)
		return err
	}

	w.mu.Lock()
	w.conn = conn
	w.state = ConnConnected
	w.mu.Unlock()

	if err := w.handler.OnConnect(ctx, conn); err != nil {
		w.close(ctx)
		return fmt.Errorf("OnConnect failed: %w", err)
	}

	slog.Info("channel connected", "id", w.handler.ID())
	return nil
}

func (w *BaseWSWorker) process(ctx context.Context) {
	for {
		w.mu.RLock()
		c := w.conn
		w.mu.RUnlock()
		if c == nil {
			return
		}

		if w.ReadTimeout > 0 {
			c.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		}
		_, msg, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				slog.Warn("channel read error", "id", w.handler.ID(), "err", err)
			}
			w.close(ctx)
			return
		}

		w.handler.OnMessage(ctx, msg)
	}
}

// Write sends one frame. Safe for concurrent use; writes are
// serialized.
func (w *BaseWSWorker) Write(msgType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.RLock()
	c := w.conn
	w.mu.RUnlock()

	if c == nil {
		return ErrNotConnected
	}

	return c.WriteMessage(msgType, data)
}

func (w *BaseWSWorker) close(ctx context.Context) {
	w.mu.Lock()
	hadConn := w.conn != nil
	if hadConn {
		w.conn.Close()
		w.conn = nil
	}
	if w.state == ConnConnected {
		w.state = ConnIdle
	}
	w.mu.Unlock()

	if hadConn {
		w.handler.OnDisconnect(ctx)
	}
}

func (w *BaseWSWorker) setState(s ConnState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}
