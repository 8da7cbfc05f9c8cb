package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// LeaderboardEntry is one participant's standing.
type LeaderboardEntry struct {
	Rank     int
	Username string
	Value    decimal.Decimal
}

// LeaderboardPoller periodically fetches the venue leaderboard and
// keeps the latest ranking available to the renderer.
type LeaderboardPoller struct {
	client       *Client
	pollInterval time.Duration

	mu      sync.RWMutex
	entries []LeaderboardEntry

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewLeaderboardPoller creates a poller with the given interval in
// seconds.
func NewLeaderboardPoller(client *Client, pollIntervalSec int) *LeaderboardPoller {
	if pollIntervalSec <= 0 {
		pollIntervalSec = 10
	}
	return &LeaderboardPoller{
		client:       client,
		pollInterval: time.Duration(pollIntervalSec) * time.Second,
	}
}

// Start begins polling. The first fetch happens immediately; failures
// are logged and retried on the next tick.
func (p *LeaderboardPoller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	if err := p.fetch(ctx); err != nil {
		slog.Warn("initial leaderboard fetch failed", slog.Any("error", err))
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("leaderboard polling stopped")
				return
			case <-ticker.C:
				if err := p.fetch(ctx); err != nil {
					slog.Warn("leaderboard fetch failed", slog.Any("error", err))
				}
			}
		}
	}()
}

// Stop halts polling and waits for the worker to exit.
func (p *LeaderboardPoller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// Standings returns the latest ranking, best first.
func (p *LeaderboardPoller) Standings() []LeaderboardEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]LeaderboardEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

// fetch pulls the leaderboard with up to 3 attempts.
func (p *LeaderboardPoller) fetch(ctx context.Context) error {
	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			delay := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := p.fetchOnce(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("leaderboard fetch exhausted retries: %w", lastErr)
}

func (p *LeaderboardPoller) fetchOnce(ctx context.Context) error {
	body, err := p.client.get(ctx, "/api/game/get_leaderboard", nil)
	if err != nil {
		return err
	}

	// The wire shape is a flat map of username to portfolio value.
	var raw map[string]json.Number
	if err := json.Unmarshal(body, &raw); err != nil {
		return fmt.Errorf("decode leaderboard: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(raw))
	for username, value := range raw {
		d, err := decimal.NewFromString(value.String())
		if err != nil {
			return fmt.Errorf("bad leaderboard value for %s: %w", username, err)
		}
		entries = append(entries, LeaderboardEntry{Username: username, Value: d})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Value.Equal(entries[j].Value) {
			return entries[i].Value.GreaterThan(entries[j].Value)
		}
		return entries[i].Username < entries[j].Username
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	p.mu.Lock()
	p.entries = entries
	p.mu.Unlock()
	return nil
}
