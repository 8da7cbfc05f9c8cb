// Package engine runs the single-threaded event loop that owns the
// account state. Every venue event funnels through one inbox, gets
// journaled, then applied through the ledger; readers only ever see
// whole published snapshots.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/tradersatmichigan/zingers-redux/internal/domain"
	"github.com/tradersatmichigan/zingers-redux/internal/event"
	"github.com/tradersatmichigan/zingers-redux/internal/ledger"
	"github.com/tradersatmichigan/zingers-redux/internal/metrics"
	"github.com/tradersatmichigan/zingers-redux/internal/storage"
)

// Sequencer is the core single-threaded event processor.
type Sequencer struct {
	inbox   chan event.Event
	ledger  *ledger.Ledger
	journal *storage.Journal // nil disables persistence
	notices *domain.NoticeLog

	state      atomic.Pointer[domain.AccountState]
	appliedSeq atomic.Uint64

	// Boundary: notifies the renderer of state changes.
	onStateUpdate func(*domain.AccountState)
}

// NewSequencer creates a sequencer. The initial state is empty until
// Seed is called.
func NewSequencer(inboxSize int, ledg *ledger.Ledger, journal *storage.Journal,
	notices *domain.NoticeLog, onUpdate func(*domain.AccountState)) *Sequencer {

	s := &Sequencer{
		inbox:         make(chan event.Event, inboxSize),
		ledger:        ledg,
		journal:       journal,
		notices:       notices,
		onStateUpdate: onUpdate,
	}
	s.state.Store(domain.NewAccountState())
	return s
}

// Inbox returns the event channel. Channel workers send events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// State returns the latest published snapshot. The snapshot is
// immutable; callers may read it without synchronization.
func (s *Sequencer) State() *domain.AccountState {
	return s.state.Load()
}

// AppliedSeq returns the sequence number of the last applied event.
func (s *Sequencer) AppliedSeq() uint64 {
	return s.appliedSeq.Load()
}

// Seed replaces the account state wholesale with a venue-provided
// snapshot. Used once at session start, and again if the view ever
// needs a resync. The sequencer takes ownership of the state.
func (s *Sequencer) Seed(acct *domain.AccountState) {
	s.state.Store(acct)
	if s.onStateUpdate != nil {
		s.onStateUpdate(acct)
	}
	slog.Info("account state seeded",
		slog.Int64("cash", acct.Cash),
		slog.Int64("buying_power", acct.BuyingPower),
		slog.Int("open_orders", len(acct.Orders)))
}

// Run starts the main event loop. This MUST be run in a single
// goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("sequencer started")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("sequencer panic", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sequencer stopping")
			return
		case ev := <-s.inbox:
			s.processEvent(ctx, ev)
		}
	}
}

func (s *Sequencer) processEvent(ctx context.Context, ev event.Event) {
	// Journal-first: the replay log must never miss an event that
	// changed state. A write failure leaves a hole in the log but the
	// session stays live.
	if s.journal != nil {
		if err := s.journal.SaveEvent(ctx, ev); err != nil {
			slog.Error("journal write failed",
				slog.Uint64("seq", ev.GetSeq()), slog.Any("error", err))
		}
	}

	s.apply(ev)
	metrics.EventsApplied.WithLabelValues(ev.GetType().String()).Inc()
}

// ReplayEvent applies an event without journaling. Used exclusively by
// the replayer, which walks an existing journal.
func (s *Sequencer) ReplayEvent(ev event.Event) {
	s.apply(ev)
}

func (s *Sequencer) apply(ev event.Event) {
	if e, ok := ev.(*event.ErrorEvent); ok {
		// Venue rejections carry no state change; surface them.
		if s.notices != nil {
			s.notices.Add(e.Asset, e.Message)
		}
		slog.Warn("venue error", "asset", e.Asset, "message", e.Message)
		s.appliedSeq.Store(ev.GetSeq())
		return
	}

	prev := s.state.Load()
	next, err := s.ledger.Apply(prev, ev)
	if err != nil {
		var stale *ledger.StaleReferenceError
		if errors.As(err, &stale) {
			metrics.StaleReferences.Inc()
			slog.Debug("stale reference ignored",
				"seq", ev.GetSeq(), "order_id", stale.OrderID)
		}
	}

	if next != prev {
		s.state.Store(next)
		if s.onStateUpdate != nil {
			s.onStateUpdate(next)
		}
	}
	s.appliedSeq.Store(ev.GetSeq())

	if oe, ok := ev.(*event.OrderEvent); ok {
		event.ReleaseOrderEvent(oe)
	}
}

// DumpState writes the current snapshot to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("dumping account state", slog.String("file", filename))

	data := struct {
		AppliedSeq uint64               `json:"applied_seq"`
		Account    *domain.AccountState `json:"account"`
	}{
		AppliedSeq: s.appliedSeq.Load(),
		Account:    s.state.Load(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("failed to write state dump", slog.Any("error", err))
	}
}
