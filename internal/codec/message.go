// Package codec defines the wire vocabulary shared with the deli
// venues and converts between JSON frames and typed messages.
package codec

import (
	"encoding/json"
	"fmt"

	"github.com/tradersatmichigan/zingers-redux/internal/domain"
)

// MessageType discriminates every frame on an asset channel.
type MessageType uint8

const (
	MsgRegister MessageType = 0
	MsgOrder    MessageType = 1
	MsgCancel   MessageType = 2
	MsgError    MessageType = 3
)

func (t MessageType) String() string {
	switch t {
	case MsgRegister:
		return "REGISTER"
	case MsgOrder:
		return "ORDER"
	case MsgCancel:
		return "CANCEL"
	case MsgError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ProtocolError marks an inbound payload the codec could not make
// sense of. The channel logs it and drops the frame; it must never
// take the connection down.
type ProtocolError struct {
	Reason string
	Raw    []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

// Incoming is an event frame from a venue. Which fields are populated
// depends on Type:
//
//	REGISTER  (ack, no payload)
//	ORDER     Trades and/or Unmatched
//	CANCEL    OrderID
//	ERROR     ErrMessage
type Incoming struct {
	Type       *MessageType    `json:"type"`
	ErrMessage string          `json:"error,omitempty"`
	UserID     *domain.UserID  `json:"user_id,omitempty"`
	Username   string          `json:"username,omitempty"`
	Trades     []domain.Trade  `json:"trades,omitempty"`
	Unmatched  *domain.Order   `json:"unmatched_order,omitempty"`
	OrderID    *domain.OrderID `json:"order_id,omitempty"`
}

// Outgoing is a request frame to a venue.
type Outgoing struct {
	Type     MessageType     `json:"type"`
	UserID   *domain.UserID  `json:"user_id,omitempty"`
	Username string          `json:"username,omitempty"`
	Asset    *domain.Asset   `json:"asset,omitempty"`
	Side     *domain.Side    `json:"side,omitempty"`
	Price    *int64          `json:"price,omitempty"`
	Volume   *int64          `json:"volume,omitempty"`
	OrderID  *domain.OrderID `json:"order_id,omitempty"`
}

// Decode parses and validates one inbound frame. Any shape the
// protocol does not define yields a *ProtocolError.
func Decode(data []byte) (*Incoming, error) {
	var msg Incoming
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, &ProtocolError{Reason: err.Error(), Raw: data}
	}
	if msg.Type == nil {
		return nil, &ProtocolError{Reason: "missing type field", Raw: data}
	}

	switch *msg.Type {
	case MsgRegister:
		// Ack carries no payload we rely on.
	case MsgOrder:
		if len(msg.Trades) == 0 && msg.Unmatched == nil {
			return nil, &ProtocolError{Reason: "ORDER frame with no trades and no unmatched order", Raw: data}
		}
		if msg.Unmatched != nil && !msg.Unmatched.Asset.Valid() {
			return nil, &ProtocolError{Reason: "unmatched order with unknown asset", Raw: data}
		}
		if msg.Unmatched != nil && !msg.Unmatched.Side.Valid() {
			return nil, &ProtocolError{Reason: "unmatched order with unknown side", Raw: data}
		}
	case MsgCancel:
		if msg.OrderID == nil {
			return nil, &ProtocolError{Reason: "CANCEL frame without order_id", Raw: data}
		}
	case MsgError:
		if msg.ErrMessage == "" {
			return nil, &ProtocolError{Reason: "ERROR frame without message", Raw: data}
		}
	default:
		return nil, &ProtocolError{Reason: fmt.Sprintf("unknown message type %d", *msg.Type), Raw: data}
	}

	return &msg, nil
}

// EncodeRegister builds the identity announcement sent right after a
// channel connects.
func EncodeRegister(p domain.Participant) ([]byte, error) {
	uid := p.UserID
	return json.Marshal(Outgoing{
		Type:     MsgRegister,
		UserID:   &uid,
		Username: p.Username,
	})
}

// EncodeOrder builds an order placement request.
func EncodeOrder(asset domain.Asset, side domain.Side, price, volume int64) ([]byte, error) {
	return json.Marshal(Outgoing{
		Type:   MsgOrder,
		Asset:  &asset,
		Side:   &side,
		Price:  &price,
		Volume: &volume,
	})
}

// EncodeCancel builds a cancellation request for a resting order.
func EncodeCancel(orderID domain.OrderID) ([]byte, error) {
	id := orderID
	return json.Marshal(Outgoing{
		Type:    MsgCancel,
		OrderID: &id,
	})
}
