package domain

import (
	"github.com/tradersatmichigan/zingers-redux/pkg/safe"
)

// UserID identifies a participant across every venue.
type UserID uint32

// OrderID is assigned by a venue and is unique across all assets.
type OrderID uint32

// Order is a resting order in a venue's book. Only Volume changes
// after placement (partial fills); a fully filled or cancelled order
// is removed outright.
type Order struct {
	Asset  Asset   `json:"asset"`
	Side   Side    `json:"side"`
	UserID UserID  `json:"user_id"`
	Price  int64   `json:"price"`
	Volume int64   `json:"volume"`
	ID     OrderID `json:"order_id"`
}

// Notional returns price*volume, the cash reserved by a resting BUY.
func (o Order) Notional() int64 {
	return safe.SafeMul(o.Price, o.Volume)
}

// Trade is an immutable fill event against a resting order. It is
// applied to the ledger and never stored.
type Trade struct {
	BuyerID  UserID  `json:"buyer_id"`
	SellerID UserID  `json:"seller_id"`
	Price    int64   `json:"price"`
	Volume   int64   `json:"volume"`
	OrderID  OrderID `json:"order_id"`
}

// SelfMatch reports whether the trade is a wash for the given user,
// i.e. the user is on both sides.
func (t Trade) SelfMatch(user UserID) bool {
	return t.BuyerID == t.SellerID && t.BuyerID == user
}

// Participant is the local trading identity, fetched once at session
// start from the login collaborator.
type Participant struct {
	UserID   UserID `json:"user_id"`
	Username string `json:"username"`
}
