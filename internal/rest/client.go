// Package rest talks to the venue's HTTP side: identity lookup, the
// authoritative account snapshot, and the leaderboard.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tradersatmichigan/zingers-redux/internal/domain"
	"github.com/tradersatmichigan/zingers-redux/internal/infra"
)

// SnapshotFetchError reports a failed or rejected account snapshot
// fetch. The local view keeps running on events; the caller decides
// whether to retry.
type SnapshotFetchError struct {
	Status int
	Reason string
}

func (e *SnapshotFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("snapshot fetch failed (HTTP %d): %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("snapshot fetch failed: %s", e.Reason)
}

// Client is the venue REST client. All calls go through a circuit
// breaker so a flapping backend is not hammered.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *infra.CircuitBreaker
}

// NewClient creates a REST client for the configured venue.
func NewClient(cfg *infra.Config) *Client {
	return &Client{
		baseURL: cfg.Server.BaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: infra.NewCircuitBreaker("venue-rest"),
	}
}

// get performs one GET with breaker accounting and returns the body on
// HTTP 200.
func (c *Client) get(ctx context.Context, path string, headers map[string]string) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, fmt.Errorf("venue REST circuit open")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
	}

	c.breaker.RecordSuccess()
	return body, nil
}

// GetUserInfo resolves the local participant's identity from the
// venue's session.
func (c *Client) GetUserInfo(ctx context.Context) (domain.Participant, error) {
	body, err := c.get(ctx, "/api/get_user_info/", nil)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("get user info: %w", err)
	}

	var p domain.Participant
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.Participant{}, fmt.Errorf("decode user info: %w", err)
	}
	if p.Username == "" {
		return domain.Participant{}, fmt.Errorf("user info response missing username")
	}
	return p, nil
}

// stateResponse is the venue's account snapshot wire shape. Orders are
// keyed by their order id rendered as a string.
type stateResponse struct {
	Error        string                  `json:"error"`
	Orders       map[string]domain.Order `json:"orders"`
	Cash         int64                   `json:"cash"`
	BuyingPower  int64                   `json:"buying_power"`
	AssetsHeld   []int64                 `json:"assets_held"`
	SellingPower []int64                 `json:"selling_power"`
}

// GetState fetches the authoritative account snapshot. Only valid once
// every channel has registered; the venue gates it on the User-Id
// header.
func (c *Client) GetState(ctx context.Context, userID domain.UserID) (*domain.AccountState, error) {
	body, err := c.get(ctx, "/api/game/get_state", map[string]string{
		"User-Id": strconv.FormatUint(uint64(userID), 10),
	})
	if err != nil {
		return nil, &SnapshotFetchError{Reason: err.Error()}
	}

	var resp stateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &SnapshotFetchError{Reason: "decode: " + err.Error()}
	}
	if resp.Error != "" {
		return nil, &SnapshotFetchError{Reason: resp.Error}
	}

	acct := domain.NewAccountState()
	acct.Cash = resp.Cash
	acct.BuyingPower = resp.BuyingPower
	for i := 0; i < domain.NumAssets && i < len(resp.AssetsHeld); i++ {
		acct.AssetsHeld[i] = resp.AssetsHeld[i]
	}
	for i := 0; i < domain.NumAssets && i < len(resp.SellingPower); i++ {
		acct.SellingPower[i] = resp.SellingPower[i]
	}
	for key, order := range resp.Orders {
		id, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, &SnapshotFetchError{Reason: "bad order id " + key}
		}
		order.ID = domain.OrderID(id)
		acct.Orders[order.ID] = order
	}
	return acct, nil
}
