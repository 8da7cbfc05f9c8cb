package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tradersatmichigan/zingers-redux/internal/domain"
	"github.com/tradersatmichigan/zingers-redux/internal/infra"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &infra.Config{}
	cfg.Server.BaseURL = srv.URL
	return NewClient(cfg)
}

func TestClient_GetUserInfo(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/get_user_info/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"user_id": 7, "username": "reuben"}`))
	}))

	p, err := c.GetUserInfo(context.Background())
	if err != nil {
		t.Fatalf("GetUserInfo failed: %v", err)
	}
	if p.UserID != 7 || p.Username != "reuben" {
		t.Errorf("Unexpected participant: %+v", p)
	}
}

func TestClient_GetState(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Id") != "7" {
			http.Error(w, "missing user", http.StatusForbidden)
			return
		}
		w.Write([]byte(`{
			"error": "",
			"cash": 950,
			"buying_power": 900,
			"assets_held": [5, 0, 1, 0],
			"selling_power": [5, 0, 1, 0],
			"orders": {
				"42": {"asset": 1, "side": 0, "user_id": 9, "price": 18, "volume": 3}
			}
		}`))
	}))

	acct, err := c.GetState(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetState failed: %v", err)
	}
	if acct.Cash != 950 || acct.BuyingPower != 900 {
		t.Errorf("Balances mismatch: cash=%d bp=%d", acct.Cash, acct.BuyingPower)
	}
	if acct.AssetsHeld[domain.Dressing] != 5 || acct.AssetsHeld[domain.Swiss] != 1 {
		t.Errorf("Holdings mismatch: %v", acct.AssetsHeld)
	}
	order, ok := acct.Orders[42]
	if !ok {
		t.Fatal("Order 42 missing")
	}
	if order.ID != 42 || order.Asset != domain.Rye || order.Price != 18 {
		t.Errorf("Order mismatch: %+v", order)
	}
}

func TestClient_GetState_VenueError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "game not started"}`))
	}))

	_, err := c.GetState(context.Background(), 7)
	var sfe *SnapshotFetchError
	if !errors.As(err, &sfe) {
		t.Fatalf("Expected SnapshotFetchError, got %v", err)
	}
	if sfe.Reason != "game not started" {
		t.Errorf("Unexpected reason: %q", sfe.Reason)
	}
}

func TestClient_GetState_HTTPError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.GetState(context.Background(), 7)
	var sfe *SnapshotFetchError
	if !errors.As(err, &sfe) {
		t.Fatalf("Expected SnapshotFetchError, got %v", err)
	}
}
