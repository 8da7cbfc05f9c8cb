// Package replay reconstructs a past session's account state by
// walking its journal through the same ledger code the live loop uses.
package replay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tradersatmichigan/zingers-redux/internal/domain"
	"github.com/tradersatmichigan/zingers-redux/internal/engine"
	"github.com/tradersatmichigan/zingers-redux/internal/storage"
)

// Replayer reads one session's events from a journal and feeds them
// into a sequencer.
type Replayer struct {
	journal *storage.Journal
	session string
}

// NewReplayer opens the journal at dbPath for the given session.
func NewReplayer(dbPath, session string) (*Replayer, error) {
	journal, err := storage.NewJournal(dbPath, session)
	if err != nil {
		return nil, err
	}
	return &Replayer{journal: journal, session: session}, nil
}

// Sessions lists every session recorded in the journal.
func (r *Replayer) Sessions(ctx context.Context) ([]string, error) {
	return r.journal.Sessions(ctx)
}

// Run seeds the sequencer and replays every event of the session in
// order, synchronously for determinism. Returns the final state.
func (r *Replayer) Run(ctx context.Context, seq *engine.Sequencer, seed *domain.AccountState) (*domain.AccountState, error) {
	if seed != nil {
		seq.Seed(seed)
	}

	events, err := r.journal.LoadEvents(ctx, r.session, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", r.session, err)
	}

	slog.Info("replaying session",
		slog.String("session", r.session),
		slog.Int("events", len(events)))

	for _, ev := range events {
		seq.ReplayEvent(ev)
	}

	return seq.State(), nil
}

// Close releases the journal handle.
func (r *Replayer) Close() error {
	return r.journal.Close()
}
