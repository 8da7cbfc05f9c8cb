package domain

// AccountState is the participant's local view of their account: cash,
// reserved buying/selling power, holdings, and every resting order
// visible across the venues. It is owned by exactly one writer (the
// reconciliation engine); everyone else reads immutable snapshots.
//
// Invariants maintained by the ledger:
//   - BuyingPower tracks cash minus the notional reserved by own
//     resting BUY orders.
//   - SellingPower[a] tracks AssetsHeld[a] minus the volume reserved
//     by own resting SELL orders on asset a.
//   - Orders holds every resting order the venues have announced,
//     regardless of owner; the book views are derived from it.
type AccountState struct {
	Cash         int64             `json:"cash"`
	BuyingPower  int64             `json:"buying_power"`
	AssetsHeld   [NumAssets]int64  `json:"assets_held"`
	SellingPower [NumAssets]int64  `json:"selling_power"`
	Orders       map[OrderID]Order `json:"orders"`
}

// NewAccountState returns an empty state with an allocated order map.
func NewAccountState() *AccountState {
	return &AccountState{Orders: make(map[OrderID]Order)}
}

// Clone returns a deep copy. The ledger clones before every mutation
// so that previously published snapshots stay immutable.
func (s *AccountState) Clone() *AccountState {
	next := &AccountState{
		Cash:         s.Cash,
		BuyingPower:  s.BuyingPower,
		AssetsHeld:   s.AssetsHeld,
		SellingPower: s.SellingPower,
		Orders:       make(map[OrderID]Order, len(s.Orders)),
	}
	for id, o := range s.Orders {
		next.Orders[id] = o
	}
	return next
}
