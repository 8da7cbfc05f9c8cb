// Package ledger is the reconciliation core: a pure transformation
// from (account state, venue event) to the next account state. It
// never mutates its input, so previously published snapshots can be
// read concurrently while the next one is being built.
package ledger

import (
	"fmt"

	"github.com/tradersatmichigan/zingers-redux/internal/domain"
	"github.com/tradersatmichigan/zingers-redux/internal/event"
	"github.com/tradersatmichigan/zingers-redux/pkg/safe"
)

// StaleReferenceError reports an event that referenced an order no
// longer present. Expected under cancel/fill races; never fatal.
type StaleReferenceError struct {
	OrderID domain.OrderID
}

func (e *StaleReferenceError) Error() string {
	return fmt.Sprintf("stale reference: order %d not found", e.OrderID)
}

// Ledger applies venue events on behalf of one participant. The
// participant's own orders carry reservations; everyone else's orders
// only populate the book.
type Ledger struct {
	self domain.UserID
}

// New creates a ledger for the given local participant.
func New(self domain.UserID) *Ledger {
	return &Ledger{self: self}
}

// Apply produces the next account state from one event. The returned
// error is always non-fatal: a *StaleReferenceError for a cancel that
// referenced a removed order. prev is never modified.
func (l *Ledger) Apply(prev *domain.AccountState, ev event.Event) (*domain.AccountState, error) {
	switch e := ev.(type) {
	case *event.OrderEvent:
		next := prev.Clone()
		l.settleTrades(next, e.Trades)
		if e.Unmatched != nil {
			l.applyUnmatched(next, *e.Unmatched)
		}
		return next, nil

	case *event.CancelEvent:
		order, ok := prev.Orders[e.OrderID]
		if !ok {
			// Already filled or cancelled; the ack is late.
			return prev, &StaleReferenceError{OrderID: e.OrderID}
		}
		next := prev.Clone()
		if order.UserID == l.self {
			l.release(next, order)
		}
		delete(next.Orders, order.ID)
		return next, nil

	default:
		// REGISTER and ERROR never touch the ledger.
		return prev, nil
	}
}

// applyUnmatched inserts a new resting order. If the local participant
// owns it, the matching power is reserved exactly once, here.
func (l *Ledger) applyUnmatched(next *domain.AccountState, order domain.Order) {
	next.Orders[order.ID] = order
	if order.UserID != l.self {
		return
	}
	switch order.Side {
	case domain.Buy:
		next.BuyingPower = safe.SafeSub(next.BuyingPower, order.Notional())
	case domain.Sell:
		next.SellingPower[order.Asset] = safe.SafeSub(next.SellingPower[order.Asset], order.Volume)
	}
}

// settleTrades applies fills in delivery order. Later trades in the
// same message see the volume already decremented by earlier ones.
func (l *Ledger) settleTrades(next *domain.AccountState, trades []domain.Trade) {
	for _, t := range trades {
		order, ok := next.Orders[t.OrderID]
		if !ok {
			// Resting order already gone; duplicate or late fill.
			continue
		}

		notional := safe.SafeMul(t.Price, t.Volume)
		asset := order.Asset

		switch {
		case t.SelfMatch(l.self):
			// Wash: no cash, no inventory. Release the resting
			// side's reservation for the matched volume.
			switch order.Side {
			case domain.Buy:
				next.BuyingPower = safe.SafeAdd(next.BuyingPower, safe.SafeMul(order.Price, t.Volume))
			case domain.Sell:
				next.SellingPower[asset] = safe.SafeAdd(next.SellingPower[asset], t.Volume)
			}

		case t.BuyerID == l.self:
			next.AssetsHeld[asset] = safe.SafeAdd(next.AssetsHeld[asset], t.Volume)
			next.SellingPower[asset] = safe.SafeAdd(next.SellingPower[asset], t.Volume)
			next.Cash = safe.SafeSub(next.Cash, notional)
			if order.UserID != l.self {
				// Taker buy was never reserved; deduct now.
				next.BuyingPower = safe.SafeSub(next.BuyingPower, notional)
			}

		case t.SellerID == l.self:
			next.AssetsHeld[asset] = safe.SafeSub(next.AssetsHeld[asset], t.Volume)
			if order.UserID != l.self {
				// Taker sell was never reserved; deduct now.
				next.SellingPower[asset] = safe.SafeSub(next.SellingPower[asset], t.Volume)
			}
			next.Cash = safe.SafeAdd(next.Cash, notional)
			next.BuyingPower = safe.SafeAdd(next.BuyingPower, notional)
		}

		if order.Volume == t.Volume {
			delete(next.Orders, order.ID)
		} else {
			order.Volume = safe.SafeSub(order.Volume, t.Volume)
			next.Orders[order.ID] = order
		}
	}
}

// release returns the full remaining reservation of an own order, used
// on cancellation.
func (l *Ledger) release(next *domain.AccountState, order domain.Order) {
	switch order.Side {
	case domain.Buy:
		next.BuyingPower = safe.SafeAdd(next.BuyingPower, order.Notional())
	case domain.Sell:
		next.SellingPower[order.Asset] = safe.SafeAdd(next.SellingPower[order.Asset], order.Volume)
	}
}
