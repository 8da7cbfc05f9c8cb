package view

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/tradersatmichigan/zingers-redux/internal/domain"
	"github.com/tradersatmichigan/zingers-redux/internal/rest"
)

// Renderer writes terminal tables for one participant's session.
type Renderer struct {
	out  io.Writer
	self domain.Participant
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(out io.Writer, self domain.Participant) *Renderer {
	return &Renderer{out: out, self: self}
}

// RenderAccount prints balances, holdings, and portfolio value.
func (r *Renderer) RenderAccount(state *domain.AccountState) {
	fmt.Fprintf(r.out, "\n== %s ==\n", r.self.Username)
	fmt.Fprintf(r.out, "cash: %d   buying power: %d   portfolio: %d\n",
		state.Cash, state.BuyingPower, PortfolioValue(state))

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ASSET\tVALUE\tHELD\tSELLING POWER")
	for _, asset := range domain.Assets() {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n",
			asset.Proper(), asset.Value(),
			state.AssetsHeld[asset], state.SellingPower[asset])
	}
	w.Flush()
}

// RenderBook prints the aggregated depth for one asset, asks on top.
func (r *Renderer) RenderBook(state *domain.AccountState, asset domain.Asset) {
	bids, asks := Depth(state, asset)

	fmt.Fprintf(r.out, "\n-- %s book --\n", asset.Proper())
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIDE\tPRICE\tVOLUME")
	for i := len(asks) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "SELL\t%d\t%d\n", asks[i].Price, asks[i].Volume)
	}
	for _, lvl := range bids {
		fmt.Fprintf(w, "BUY\t%d\t%d\n", lvl.Price, lvl.Volume)
	}
	w.Flush()
}

// RenderOrders prints the participant's own resting orders.
func (r *Renderer) RenderOrders(state *domain.AccountState) {
	orders := OwnOrders(state, r.self.UserID)
	if len(orders) == 0 {
		fmt.Fprintln(r.out, "no open orders")
		return
	}

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tASSET\tSIDE\tPRICE\tVOLUME")
	for _, o := range orders {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\n",
			o.ID, o.Asset.Abbrev(), o.Side, o.Price, o.Volume)
	}
	w.Flush()
}

// RenderLeaderboard prints the latest standings.
func (r *Renderer) RenderLeaderboard(entries []rest.LeaderboardEntry) {
	if len(entries) == 0 {
		return
	}

	fmt.Fprintln(r.out, "\n-- leaderboard --")
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tUSER\tVALUE")
	for _, e := range entries {
		marker := ""
		if e.Username == r.self.Username {
			marker = " *"
		}
		fmt.Fprintf(w, "%d\t%s%s\t%s\n", e.Rank, e.Username, marker, e.Value.String())
	}
	w.Flush()
}

// RenderNotices prints recent venue notices, oldest first.
func (r *Renderer) RenderNotices(notices []domain.Notice) {
	for _, n := range notices {
		at := time.UnixMicro(n.AtUnixM).Format("15:04:05")
		fmt.Fprintf(r.out, "[%s] %s: %s\n", at, n.Asset, n.Message)
	}
}
