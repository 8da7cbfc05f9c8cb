package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tradersatmichigan/zingers-redux/internal/domain"
	"github.com/tradersatmichigan/zingers-redux/internal/event"
	"github.com/tradersatmichigan/zingers-redux/internal/infra"
	"github.com/tradersatmichigan/zingers-redux/internal/metrics"
)

// mockVenue upgrades connections, acks registration, and lets the test
// push frames and inspect received requests.
type mockVenue struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	conns    map[string]*websocket.Conn // keyed by asset path segment
	received []map[string]any
}

func newMockVenue(t *testing.T) *mockVenue {
	v := &mockVenue{t: t, conns: make(map[string]*websocket.Conn)}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	v.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		asset := strings.TrimPrefix(r.URL.Path, "/asset/")
		v.mu.Lock()
		v.conns[asset] = conn
		v.mu.Unlock()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame map[string]any
			if err := json.Unmarshal(msg, &frame); err != nil {
				continue
			}
			v.mu.Lock()
			v.received = append(v.received, frame)
			v.mu.Unlock()

			// Ack registrations like the real venue.
			if frame["type"] == float64(0) {
				conn.WriteMessage(websocket.TextMessage, []byte(`{"type": 0}`))
			}
		}
	}))
	t.Cleanup(v.server.Close)
	return v
}

func (v *mockVenue) wsURL() string {
	return strings.Replace(v.server.URL, "http://", "ws://", 1) + "/asset/%s"
}

func (v *mockVenue) push(asset domain.Asset, frame string) {
	v.mu.Lock()
	conn := v.conns[asset.String()]
	v.mu.Unlock()
	if conn == nil {
		v.t.Fatalf("no connection for %s", asset)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		v.t.Fatalf("push failed: %v", err)
	}
}

func (v *mockVenue) dropConn(asset domain.Asset) {
	v.mu.Lock()
	conn := v.conns[asset.String()]
	v.mu.Unlock()
	if conn == nil {
		v.t.Fatalf("no connection for %s", asset)
	}
	conn.Close()
}

func (v *mockVenue) lastReceived() map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.received) == 0 {
		return nil
	}
	return v.received[len(v.received)-1]
}

func testConfig(wsURL string) *infra.Config {
	cfg := &infra.Config{}
	cfg.Server.BaseURL = "http://venue.test"
	cfg.Server.WSURL = wsURL
	cfg.Session.InboxSize = 64
	cfg.Limits.MinPrice = 1
	cfg.Limits.MaxPrice = 200
	cfg.Limits.OrdersPerSec = 100
	cfg.Limits.OrderBurst = 50
	return cfg
}

func startManager(t *testing.T, venue *mockVenue) (*Manager, chan event.Event) {
	t.Helper()

	inbox := make(chan event.Event, 64)
	nextSeq := uint64(0)
	self := domain.Participant{UserID: 7, Username: "reuben"}
	m := NewManager(testConfig(venue.wsURL()), self, inbox, &nextSeq)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.Start(ctx)
	t.Cleanup(m.Stop)

	waitCtx, waitCancel := context.WithTimeout(ctx, 3*time.Second)
	defer waitCancel()
	if err := m.WaitReady(waitCtx); err != nil {
		t.Fatalf("channels never registered: %v", err)
	}
	return m, inbox
}

func TestManager_RegistersEveryChannel(t *testing.T) {
	venue := newMockVenue(t)
	m, _ := startManager(t, venue)

	if !m.Ready() {
		t.Error("Ready should report true after WaitReady")
	}

	venue.mu.Lock()
	conns := len(venue.conns)
	venue.mu.Unlock()
	if conns != domain.NumAssets {
		t.Errorf("Expected %d connections, got %d", domain.NumAssets, conns)
	}
}

func TestChannel_DispatchesOrderEvents(t *testing.T) {
	venue := newMockVenue(t)
	_, inbox := startManager(t, venue)

	venue.push(domain.Rye, `{
		"type": 1,
		"trades": [{"buyer_id": 7, "seller_id": 9, "price": 18, "volume": 2, "order_id": 4}]
	}`)

	select {
	case ev := <-inbox:
		oe, ok := ev.(*event.OrderEvent)
		if !ok {
			t.Fatalf("Expected OrderEvent, got %T", ev)
		}
		if oe.GetAsset() != domain.Rye {
			t.Errorf("Asset tag mismatch: %v", oe.GetAsset())
		}
		if len(oe.Trades) != 1 || oe.Trades[0].Price != 18 {
			t.Errorf("Trades mismatch: %+v", oe.Trades)
		}
		if oe.GetSeq() == 0 {
			t.Error("Event was not assigned a sequence number")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Event never reached the inbox")
	}
}

func TestChannel_DropsMalformedFrames(t *testing.T) {
	venue := newMockVenue(t)
	_, inbox := startManager(t, venue)

	venue.push(domain.Swiss, `{{{not json`)
	venue.push(domain.Swiss, `{"type": 2, "order_id": 5}`)

	// Only the valid cancel comes through; the junk frame is dropped
	// without killing the connection.
	select {
	case ev := <-inbox:
		ce, ok := ev.(*event.CancelEvent)
		if !ok {
			t.Fatalf("Expected CancelEvent, got %T", ev)
		}
		if ce.OrderID != 5 {
			t.Errorf("OrderID mismatch: %d", ce.OrderID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Channel died on a malformed frame")
	}
}

func TestChannel_BackpressureDeliversEveryEvent(t *testing.T) {
	venue := newMockVenue(t)

	// A one-slot inbox that nobody drains while the venue is pushing.
	// The dispatcher must stall the read loop rather than lose a
	// single ledger event.
	inbox := make(chan event.Event, 1)
	nextSeq := uint64(0)
	self := domain.Participant{UserID: 7, Username: "reuben"}
	m := NewManager(testConfig(venue.wsURL()), self, inbox, &nextSeq)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	waitCtx, waitCancel := context.WithTimeout(ctx, 3*time.Second)
	defer waitCancel()
	if err := m.WaitReady(waitCtx); err != nil {
		t.Fatalf("channels never registered: %v", err)
	}

	const n = 5
	for i := 1; i <= n; i++ {
		venue.push(domain.Rye, fmt.Sprintf(`{"type": 2, "order_id": %d}`, i))
	}

	var lastSeq uint64
	for i := 1; i <= n; i++ {
		select {
		case ev := <-inbox:
			ce, ok := ev.(*event.CancelEvent)
			if !ok {
				t.Fatalf("Expected CancelEvent, got %T", ev)
			}
			if ce.OrderID != domain.OrderID(i) {
				t.Errorf("Event %d arrived out of order: order_id %d", i, ce.OrderID)
			}
			if ce.GetSeq() <= lastSeq {
				t.Errorf("Sequence went backwards: %d after %d", ce.GetSeq(), lastSeq)
			}
			lastSeq = ce.GetSeq()
		case <-time.After(3 * time.Second):
			t.Fatalf("Only %d of %d events arrived", i-1, n)
		}
		// Drain slower than the venue pushed so the inbox stays full.
		time.Sleep(20 * time.Millisecond)
	}
}

func TestChannel_CleanStopIsNotAReconnect(t *testing.T) {
	venue := newMockVenue(t)

	inbox := make(chan event.Event, 64)
	nextSeq := uint64(0)
	self := domain.Participant{UserID: 7, Username: "reuben"}
	m := NewManager(testConfig(venue.wsURL()), self, inbox, &nextSeq)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	waitCtx, waitCancel := context.WithTimeout(ctx, 3*time.Second)
	defer waitCancel()
	if err := m.WaitReady(waitCtx); err != nil {
		t.Fatalf("channels never registered: %v", err)
	}

	rye := metrics.Reconnects.WithLabelValues(domain.Rye.String())

	// A server-side drop is a reconnect.
	before := testutil.ToFloat64(rye)
	venue.dropConn(domain.Rye)
	deadline := time.Now().Add(3 * time.Second)
	for testutil.ToFloat64(rye) == before {
		if time.Now().After(deadline) {
			t.Fatal("Server drop was never counted as a reconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// An explicit Stop is not. OnDisconnect runs synchronously inside
	// Stop, so the counter is settled when it returns.
	before = testutil.ToFloat64(rye)
	m.Stop()
	if got := testutil.ToFloat64(rye); got != before {
		t.Errorf("Clean stop counted as a reconnect: %v -> %v", before, got)
	}
}

func TestManager_PlaceOrder(t *testing.T) {
	venue := newMockVenue(t)
	m, _ := startManager(t, venue)

	if err := m.PlaceOrder(domain.Pastrami, domain.Buy, 35, 2); err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if frame := venue.lastReceived(); frame != nil && frame["type"] == float64(1) {
			if frame["asset"] != float64(domain.Pastrami) ||
				frame["price"] != float64(35) || frame["volume"] != float64(2) {
				t.Errorf("Order frame mismatch: %v", frame)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Venue never received the order")
}

func TestManager_PlaceOrder_Validation(t *testing.T) {
	venue := newMockVenue(t)
	m, _ := startManager(t, venue)

	cases := []struct {
		name   string
		asset  domain.Asset
		side   domain.Side
		price  int64
		volume int64
	}{
		{"bad asset", 9, domain.Buy, 10, 1},
		{"bad side", domain.Rye, 5, 10, 1},
		{"price below min", domain.Rye, domain.Buy, 0, 1},
		{"price above max", domain.Rye, domain.Buy, 500, 1},
		{"zero volume", domain.Rye, domain.Buy, 10, 0},
		{"negative volume", domain.Rye, domain.Buy, 10, -2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := m.PlaceOrder(tc.asset, tc.side, tc.price, tc.volume); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestManager_RateLimit(t *testing.T) {
	venue := newMockVenue(t)

	inbox := make(chan event.Event, 64)
	nextSeq := uint64(0)
	cfg := testConfig(venue.wsURL())
	cfg.Limits.OrderBurst = 2
	cfg.Limits.OrdersPerSec = 0.5
	self := domain.Participant{UserID: 7, Username: "reuben"}
	m := NewManager(cfg, self, inbox, &nextSeq)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	waitCtx, waitCancel := context.WithTimeout(ctx, 3*time.Second)
	defer waitCancel()
	if err := m.WaitReady(waitCtx); err != nil {
		t.Fatalf("channels never registered: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := m.PlaceOrder(domain.Rye, domain.Buy, 10, 1); err != nil {
			t.Fatalf("Order %d rejected: %v", i, err)
		}
	}
	if err := m.PlaceOrder(domain.Rye, domain.Buy, 10, 1); err != ErrRateLimited {
		t.Errorf("Expected ErrRateLimited, got %v", err)
	}
}
