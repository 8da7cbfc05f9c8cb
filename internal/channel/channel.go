// Package channel owns the per-asset WebSocket connections: one
// channel per tradeable asset, each registering on connect and feeding
// decoded events into the shared sequencer inbox.
package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/tradersatmichigan/zingers-redux/internal/codec"
	"github.com/tradersatmichigan/zingers-redux/internal/domain"
	"github.com/tradersatmichigan/zingers-redux/internal/event"
	"github.com/tradersatmichigan/zingers-redux/internal/infra"
	"github.com/tradersatmichigan/zingers-redux/internal/metrics"
)

// ChannelError wraps a transport failure on one asset channel.
type ChannelError struct {
	Asset domain.Asset
	Err   error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Asset, e.Err)
}

func (e *ChannelError) Unwrap() error { return e.Err }

// Channel is one asset's venue connection. It implements
// infra.ChannelHandler; the embedded worker handles dial, reads and
// reconnects, while the channel translates frames into events.
type Channel struct {
	asset  domain.Asset
	urlTpl string
	self   domain.Participant

	inbox chan<- event.Event
	seq   *uint64

	worker     *infra.BaseWSWorker
	registered atomic.Bool

	// onReady fires once per successful REGISTER ack.
	onReady func(domain.Asset)
}

func newChannel(asset domain.Asset, urlTpl string, self domain.Participant,
	inbox chan<- event.Event, seq *uint64, onReady func(domain.Asset)) *Channel {

	c := &Channel{
		asset:   asset,
		urlTpl:  urlTpl,
		self:    self,
		inbox:   inbox,
		seq:     seq,
		onReady: onReady,
	}
	c.worker = infra.NewBaseWSWorker(c)
	return c
}

// URL builds the venue endpoint for this asset.
func (c *Channel) URL() string {
	return fmt.Sprintf(c.urlTpl, c.asset.String())
}

// ID identifies the channel in logs.
func (c *Channel) ID() string {
	return "channel/" + c.asset.String()
}

// OnConnect announces the local participant. The venue replies with a
// REGISTER ack once it has bound the connection to the user.
func (c *Channel) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	metrics.ConnectedChannels.Inc()

	data, err := codec.EncodeRegister(c.self)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

// OnMessage decodes one frame and dispatches it. Malformed frames are
// counted and dropped; they never take the connection down.
func (c *Channel) OnMessage(ctx context.Context, msg []byte) {
	in, err := codec.Decode(msg)
	if err != nil {
		metrics.ProtocolErrors.WithLabelValues(c.asset.String()).Inc()
		slog.Warn("dropping malformed frame",
			"asset", c.asset, "err", err)
		return
	}

	switch *in.Type {
	case codec.MsgRegister:
		if c.registered.CompareAndSwap(false, true) {
			slog.Info("channel registered", "asset", c.asset)
		}
		if c.onReady != nil {
			c.onReady(c.asset)
		}

	case codec.MsgOrder:
		ev := event.AcquireOrderEvent()
		ev.Seq = event.NextSeq(c.seq)
		ev.Asset = c.asset
		ev.Trades = append(ev.Trades, in.Trades...)
		ev.Unmatched = in.Unmatched
		c.deliver(ctx, ev)

	case codec.MsgCancel:
		c.deliver(ctx, &event.CancelEvent{
			BaseEvent: event.BaseEvent{Seq: event.NextSeq(c.seq), Asset: c.asset},
			OrderID:   *in.OrderID,
		})

	case codec.MsgError:
		c.deliver(ctx, &event.ErrorEvent{
			BaseEvent: event.BaseEvent{Seq: event.NextSeq(c.seq), Asset: c.asset},
			Message:   in.ErrMessage,
		})
	}
}

// OnDisconnect resets the registration flag; the next connect performs
// a fresh handshake. Only an unexpected drop counts as a reconnect; an
// explicit Stop leaves the worker closed and is not one.
func (c *Channel) OnDisconnect(ctx context.Context) {
	c.registered.Store(false)
	metrics.ConnectedChannels.Dec()
	if c.worker.State() != infra.ConnClosed {
		metrics.Reconnects.WithLabelValues(c.asset.String()).Inc()
	}
}

// deliver hands an event to the sequencer. The send blocks when the
// inbox is full: every ledger event must reach the sequencer in
// delivery order, so a slow sequencer stalls the read loop and lets
// TCP backpressure the venue instead of losing a fill or cancel.
func (c *Channel) deliver(ctx context.Context, ev event.Event) {
	select {
	case c.inbox <- ev:
	case <-ctx.Done():
		// Shutdown; the event is abandoned, not lost mid-session.
		if oe, ok := ev.(*event.OrderEvent); ok {
			event.ReleaseOrderEvent(oe)
		}
	}
}

// Registered reports whether the venue has acked our handshake on the
// current connection.
func (c *Channel) Registered() bool {
	return c.registered.Load() && c.worker.Connected()
}

// write sends one frame on the live connection.
func (c *Channel) write(data []byte) error {
	if err := c.worker.Write(websocket.TextMessage, data); err != nil {
		return &ChannelError{Asset: c.asset, Err: err}
	}
	return nil
}
