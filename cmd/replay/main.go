// Command replay reconstructs a recorded session's final account state
// from its journal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tradersatmichigan/zingers-redux/internal/domain"
	"github.com/tradersatmichigan/zingers-redux/internal/engine"
	"github.com/tradersatmichigan/zingers-redux/internal/ledger"
	"github.com/tradersatmichigan/zingers-redux/internal/replay"
	"github.com/tradersatmichigan/zingers-redux/internal/view"
)

func main() {
	dbPath := flag.String("db", "_workspace/data/journal.db", "journal database path")
	session := flag.String("session", "", "session id to replay (empty lists sessions)")
	userID := flag.Uint("user", 0, "local participant user id")
	cash := flag.Int64("cash", 0, "seed cash")
	buyingPower := flag.Int64("bp", 0, "seed buying power")
	flag.Parse()

	r, err := replay.NewReplayer(*dbPath, *session)
	if err != nil {
		slog.Error("failed to open journal", slog.Any("error", err))
		os.Exit(1)
	}
	defer r.Close()

	ctx := context.Background()

	if *session == "" {
		sessions, err := r.Sessions(ctx)
		if err != nil {
			slog.Error("failed to list sessions", slog.Any("error", err))
			os.Exit(1)
		}
		if len(sessions) == 0 {
			fmt.Println("journal is empty")
			return
		}
		fmt.Println("recorded sessions:")
		for _, s := range sessions {
			fmt.Println(" ", s)
		}
		return
	}

	seed := domain.NewAccountState()
	seed.Cash = *cash
	seed.BuyingPower = *buyingPower

	seq := engine.NewSequencer(1, ledger.New(domain.UserID(*userID)), nil, nil, nil)
	final, err := r.Run(ctx, seq, seed)
	if err != nil {
		slog.Error("replay failed", slog.Any("error", err))
		os.Exit(1)
	}

	self := domain.Participant{UserID: domain.UserID(*userID), Username: "replay"}
	renderer := view.NewRenderer(os.Stdout, self)
	renderer.RenderAccount(final)
	renderer.RenderOrders(final)
}
