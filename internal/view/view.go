// Package view derives read-only projections from a published account
// snapshot: book depth, own open orders, and portfolio valuation.
// Everything here is pure; snapshots are never mutated.
package view

import (
	"sort"

	"github.com/tradersatmichigan/zingers-redux/internal/domain"
	"github.com/tradersatmichigan/zingers-redux/pkg/safe"
)

// PriceLevel aggregates resting volume at one price.
type PriceLevel struct {
	Price  int64
	Volume int64
}

// Depth builds the aggregated book for one asset. Bids are best-first
// (descending price), asks best-first (ascending price).
func Depth(state *domain.AccountState, asset domain.Asset) (bids, asks []PriceLevel) {
	bidVol := make(map[int64]int64)
	askVol := make(map[int64]int64)

	for _, order := range state.Orders {
		if order.Asset != asset {
			continue
		}
		switch order.Side {
		case domain.Buy:
			bidVol[order.Price] = safe.SafeAdd(bidVol[order.Price], order.Volume)
		case domain.Sell:
			askVol[order.Price] = safe.SafeAdd(askVol[order.Price], order.Volume)
		}
	}

	bids = levels(bidVol)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	asks = levels(askVol)
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })
	return bids, asks
}

func levels(byPrice map[int64]int64) []PriceLevel {
	out := make([]PriceLevel, 0, len(byPrice))
	for price, vol := range byPrice {
		out = append(out, PriceLevel{Price: price, Volume: vol})
	}
	return out
}

// OwnOrders returns the participant's resting orders, oldest id first.
func OwnOrders(state *domain.AccountState, self domain.UserID) []domain.Order {
	var out []domain.Order
	for _, order := range state.Orders {
		if order.UserID == self {
			out = append(out, order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OwnOrdersBySide splits the participant's resting orders by side,
// each group oldest id first.
func OwnOrdersBySide(state *domain.AccountState, self domain.UserID) (buys, sells []domain.Order) {
	for _, order := range OwnOrders(state, self) {
		if order.Side == domain.Buy {
			buys = append(buys, order)
		} else {
			sells = append(sells, order)
		}
	}
	return buys, sells
}

// PortfolioValue computes cash plus marked holdings plus the complete
// set bonus: one full sandwich per minimum holding across all assets.
func PortfolioValue(state *domain.AccountState) int64 {
	total := state.Cash
	minHeld := state.AssetsHeld[0]

	for _, asset := range domain.Assets() {
		held := state.AssetsHeld[asset]
		total = safe.SafeAdd(total, safe.SafeMul(held, asset.Value()))
		if held < minHeld {
			minHeld = held
		}
	}

	return safe.SafeAdd(total, safe.SafeMul(minHeld, domain.ReubenBonus))
}
