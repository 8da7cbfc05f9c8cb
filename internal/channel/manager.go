package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tradersatmichigan/zingers-redux/internal/codec"
	"github.com/tradersatmichigan/zingers-redux/internal/domain"
	"github.com/tradersatmichigan/zingers-redux/internal/event"
	"github.com/tradersatmichigan/zingers-redux/internal/infra"
	"github.com/tradersatmichigan/zingers-redux/internal/metrics"
)

var (
	// ErrNotRegistered is returned when an order targets a channel
	// whose handshake has not been acked yet.
	ErrNotRegistered = errors.New("channel not registered with venue")

	// ErrRateLimited is returned when the outbound order budget is
	// exhausted.
	ErrRateLimited = errors.New("order rate limit exceeded")
)

// Manager runs one channel per asset and is the only way the rest of
// the client talks to the venues: order placement, cancellation, and
// the all-channels-registered readiness gate.
type Manager struct {
	cfg      *infra.Config
	self     domain.Participant
	channels map[domain.Asset]*Channel
	limiter  *infra.RateLimiter

	readyMu   sync.Mutex
	ready     map[domain.Asset]bool
	readyCh   chan struct{}
	readyOnce sync.Once
}

// NewManager builds channels for every asset. Nothing connects until
// Start.
func NewManager(cfg *infra.Config, self domain.Participant,
	inbox chan<- event.Event, seq *uint64) *Manager {

	m := &Manager{
		cfg:      cfg,
		self:     self,
		channels: make(map[domain.Asset]*Channel, domain.NumAssets),
		limiter:  infra.NewRateLimiter(cfg.Limits.OrderBurst, cfg.Limits.OrdersPerSec),
		ready:    make(map[domain.Asset]bool, domain.NumAssets),
		readyCh:  make(chan struct{}),
	}

	for _, asset := range domain.Assets() {
		m.channels[asset] = newChannel(
			asset, cfg.Server.WSURL, self, inbox, seq, m.markReady)
	}
	return m
}

// Start connects every channel.
func (m *Manager) Start(ctx context.Context) {
	for asset, ch := range m.channels {
		slog.Info("starting channel", "asset", asset, "url", ch.URL())
		ch.worker.Start(ctx)
	}
}

// Stop disconnects every channel. Idempotent.
func (m *Manager) Stop() {
	for _, ch := range m.channels {
		ch.worker.Stop()
	}
}

// markReady records one REGISTER ack. Once every asset has acked at
// least once, the readiness gate opens and stays open; a later
// reconnect re-registers transparently without closing it.
func (m *Manager) markReady(asset domain.Asset) {
	m.readyMu.Lock()
	m.ready[asset] = true
	allReady := len(m.ready) == domain.NumAssets
	m.readyMu.Unlock()

	if allReady {
		m.readyOnce.Do(func() {
			slog.Info("all channels registered")
			close(m.readyCh)
		})
	}
}

// Ready reports whether every channel has completed its first
// handshake.
func (m *Manager) Ready() bool {
	select {
	case <-m.readyCh:
		return true
	default:
		return false
	}
}

// Registration reports the per-asset handshake status.
func (m *Manager) Registration() map[domain.Asset]bool {
	out := make(map[domain.Asset]bool, domain.NumAssets)
	for asset, ch := range m.channels {
		out[asset] = ch.Registered()
	}
	return out
}

// WaitReady blocks until every channel has registered or the context
// ends.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.readyCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PlaceOrder submits a limit order on the asset's channel. The venue
// reports the outcome asynchronously as ORDER or ERROR frames.
func (m *Manager) PlaceOrder(asset domain.Asset, side domain.Side, price, volume int64) error {
	if !asset.Valid() {
		return fmt.Errorf("unknown asset %d", asset)
	}
	if !side.Valid() {
		return fmt.Errorf("unknown side %d", side)
	}
	if price < m.cfg.Limits.MinPrice || price > m.cfg.Limits.MaxPrice {
		return fmt.Errorf("price %d outside [%d, %d]",
			price, m.cfg.Limits.MinPrice, m.cfg.Limits.MaxPrice)
	}
	if volume <= 0 {
		return fmt.Errorf("volume must be positive, got %d", volume)
	}

	ch := m.channels[asset]
	if !ch.Registered() {
		return ErrNotRegistered
	}
	if !m.limiter.TryAcquire() {
		return ErrRateLimited
	}

	data, err := codec.EncodeOrder(asset, side, price, volume)
	if err != nil {
		return err
	}
	if err := ch.write(data); err != nil {
		return err
	}

	metrics.OrdersPlaced.WithLabelValues(side.String()).Inc()
	slog.Debug("order sent",
		"asset", asset, "side", side, "price", price, "volume", volume)
	return nil
}

// CancelOrder requests removal of a resting order. The venue confirms
// with a CANCEL frame; local state changes only then.
func (m *Manager) CancelOrder(asset domain.Asset, orderID domain.OrderID) error {
	if !asset.Valid() {
		return fmt.Errorf("unknown asset %d", asset)
	}

	ch := m.channels[asset]
	if !ch.Registered() {
		return ErrNotRegistered
	}

	data, err := codec.EncodeCancel(orderID)
	if err != nil {
		return err
	}
	if err := ch.write(data); err != nil {
		return err
	}

	metrics.CancelsSent.Inc()
	slog.Debug("cancel sent", "asset", asset, "order_id", orderID)
	return nil
}
