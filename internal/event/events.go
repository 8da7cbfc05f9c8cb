package event

import (
	"github.com/tradersatmichigan/zingers-redux/internal/domain"
)

// Type defines the type of event.
type Type uint16

const (
	EvRegister Type = iota + 1
	EvOrder
	EvCancel
	EvError
)

func (t Type) String() string {
	switch t {
	case EvRegister:
		return "REGISTER"
	case EvOrder:
		return "ORDER"
	case EvCancel:
		return "CANCEL"
	case EvError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the interface for everything delivered to the sequencer.
// Every event is tagged with the asset channel it arrived on.
type Event interface {
	GetSeq() uint64
	GetAsset() domain.Asset
	GetType() Type
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq   uint64       `json:"seq"`
	Asset domain.Asset `json:"asset"`
}

func (e BaseEvent) GetSeq() uint64         { return e.Seq }
func (e BaseEvent) GetAsset() domain.Asset { return e.Asset }

// RegisterEvent is a venue's handshake ack. It feeds the readiness
// tracker, never the ledger.
type RegisterEvent struct {
	BaseEvent
}

func (e RegisterEvent) GetType() Type { return EvRegister }

// OrderEvent carries zero or more trades plus an optional new resting
// order, exactly as the venue framed them. Trade order matters: later
// trades act on volume already decremented by earlier ones.
type OrderEvent struct {
	BaseEvent
	Trades    []domain.Trade `json:"trades,omitempty"`
	Unmatched *domain.Order  `json:"unmatched_order,omitempty"`
}

func (e OrderEvent) GetType() Type { return EvOrder }

// CancelEvent announces the removal of a resting order.
type CancelEvent struct {
	BaseEvent
	OrderID domain.OrderID `json:"order_id"`
}

func (e CancelEvent) GetType() Type { return EvCancel }

// ErrorEvent is an explicit venue-side error, surfaced to the user as
// a notice. No state change.
type ErrorEvent struct {
	BaseEvent
	Message string `json:"message"`
}

func (e ErrorEvent) GetType() Type { return EvError }
