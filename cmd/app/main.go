package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/tradersatmichigan/zingers-redux/internal/app"
	"github.com/tradersatmichigan/zingers-redux/internal/channel"
	"github.com/tradersatmichigan/zingers-redux/internal/domain"
	"github.com/tradersatmichigan/zingers-redux/internal/engine"
	"github.com/tradersatmichigan/zingers-redux/internal/ledger"
	"github.com/tradersatmichigan/zingers-redux/internal/metrics"
	"github.com/tradersatmichigan/zingers-redux/internal/rest"
	"github.com/tradersatmichigan/zingers-redux/internal/storage"
	"github.com/tradersatmichigan/zingers-redux/internal/view"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// Pprof server (localhost only for security).
	go func() {
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("pprof server failed", slog.Any("error", err))
		}
	}()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()
	cfg := bootstrap.Config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			slog.Info("metrics server started", "addr", cfg.Metrics.Addr)
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
	}

	// Identity first; everything downstream is keyed by user id.
	restClient := rest.NewClient(cfg)
	self, err := restClient.GetUserInfo(ctx)
	if err != nil {
		slog.Error("❌ Identity lookup failed", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("✅ Logged in", "user_id", self.UserID, "username", self.Username)

	if bootstrap.Journal != nil {
		bootstrap.Journal.UpsertMetadata(ctx,
			"user_id", strconv.FormatUint(uint64(self.UserID), 10))
		bootstrap.Journal.UpsertMetadata(ctx, "username", self.Username)
	}

	notices := domain.NewNoticeLog(cfg.Session.NoticeLimit)
	seq := engine.NewSequencer(cfg.Session.InboxSize,
		ledger.New(self.UserID), bootstrap.Journal, notices, nil)
	go seq.Run(ctx)
	slog.Info("✅ Sequencer started")

	// One channel per asset, all feeding the sequencer inbox.
	nextSeq := uint64(0)
	manager := channel.NewManager(cfg, self, seq.Inbox(), &nextSeq)
	manager.Start(ctx)
	defer manager.Stop()

	// The snapshot endpoint is gated on every channel being
	// registered, so the seed has to wait for the handshake fan-in.
	if err := manager.WaitReady(ctx); err != nil {
		slog.Error("shutdown before channels registered", slog.Any("error", err))
		return
	}
	seeded, err := restClient.GetState(ctx, self.UserID)
	if err != nil {
		slog.Error("❌ Account snapshot fetch failed", slog.Any("error", err))
		os.Exit(1)
	}
	seq.Seed(seeded)

	leaderboard := rest.NewLeaderboardPoller(restClient, cfg.Display.LeaderboardPollSec)
	leaderboard.Start(ctx)
	defer leaderboard.Stop()

	slog.Info("✨ Session live. Type 'help' for commands, Ctrl+C to exit.")

	renderer := view.NewRenderer(os.Stdout, self)
	renderer.RenderAccount(seq.State())
	go commandLoop(ctx, stop, manager, seq, renderer, notices, leaderboard)

	<-ctx.Done()

	// Preserve the final state for post-session analysis.
	snap := storage.CreateSnapshot(bootstrap.Session, seq.AppliedSeq(), seq.State())
	if err := bootstrap.Snapshots.Save(snap); err != nil {
		slog.Warn("final snapshot save failed", slog.Any("error", err))
	}

	slog.Info("👋 Shutting down gracefully...")
}

// commandLoop reads order-entry commands from stdin until EOF or
// shutdown.
func commandLoop(ctx context.Context, stop context.CancelFunc,
	manager *channel.Manager, seq *engine.Sequencer,
	renderer *view.Renderer, notices *domain.NoticeLog,
	leaderboard *rest.LeaderboardPoller) {

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(strings.ToLower(line))
		switch fields[0] {
		case "help":
			printHelp()

		case "buy", "sell":
			side := domain.Buy
			if fields[0] == "sell" {
				side = domain.Sell
			}
			asset, price, volume, err := parseOrderArgs(fields[1:])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			if err := manager.PlaceOrder(asset, side, price, volume); err != nil {
				fmt.Println("error:", err)
			}

		case "cancel":
			if len(fields) != 3 {
				fmt.Println("usage: cancel <asset> <order_id>")
				continue
			}
			asset, err := parseAsset(fields[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			id, err := strconv.ParseUint(fields[2], 10, 32)
			if err != nil {
				fmt.Println("error: bad order id:", fields[2])
				continue
			}
			if err := manager.CancelOrder(asset, domain.OrderID(id)); err != nil {
				fmt.Println("error:", err)
			}

		case "book":
			if len(fields) != 2 {
				fmt.Println("usage: book <asset>")
				continue
			}
			asset, err := parseAsset(fields[1])
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			renderer.RenderBook(seq.State(), asset)

		case "account":
			renderer.RenderAccount(seq.State())

		case "orders":
			renderer.RenderOrders(seq.State())

		case "top":
			renderer.RenderLeaderboard(leaderboard.Standings())

		case "notices":
			renderer.RenderNotices(notices.Recent(10))

		case "quit", "exit":
			stop()
			return

		default:
			fmt.Println("unknown command:", fields[0])
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  buy <asset> <price> <volume>    place a buy order
  sell <asset> <price> <volume>   place a sell order
  cancel <asset> <order_id>       cancel a resting order
  book <asset>                    show the aggregated book
  account                         show balances and holdings
  orders                          show your open orders
  top                             show the leaderboard
  notices                         show recent venue notices
  quit                            exit`)
}

func parseOrderArgs(args []string) (domain.Asset, int64, int64, error) {
	if len(args) != 3 {
		return 0, 0, 0, fmt.Errorf("usage: buy|sell <asset> <price> <volume>")
	}
	asset, err := parseAsset(args[0])
	if err != nil {
		return 0, 0, 0, err
	}
	price, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad price: %s", args[1])
	}
	volume, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad volume: %s", args[2])
	}
	return asset, price, volume, nil
}

func parseAsset(name string) (domain.Asset, error) {
	for _, asset := range domain.Assets() {
		if asset.String() == name || strings.EqualFold(asset.Abbrev(), name) {
			return asset, nil
		}
	}
	return 0, fmt.Errorf("unknown asset: %s", name)
}
