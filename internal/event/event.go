package event

import (
	"time"

	"empire_bot/internal/domain"
)

// Type enumerates everything a session can receive from its transport.
type Type int

const (
	TypeConnected Type = iota + 1
	TypeAuthenticated
	TypeDisconnected
	TypePriceUpdate
	TypeTradeStatus
)

func (t Type) String() string {
	switch t {
	case TypeConnected:
		return "connected"
	case TypeAuthenticated:
		return "authenticated"
	case TypeDisconnected:
		return "disconnected"
	case TypePriceUpdate:
		return "price_update"
	case TypeTradeStatus:
		return "trade_status"
	default:
		return "unknown"
	}
}

// Event is a decoded message from the live feed.
type Event interface {
	GetType() Type
	GetTs() time.Time
}

// BaseEvent carries the local receive time.
type BaseEvent struct {
	Ts time.Time
}

func (b BaseEvent) GetTs() time.Time { return b.Ts }

// Connected is emitted every time the socket (re)opens its namespace.
type Connected struct {
	BaseEvent
}

func (*Connected) GetType() Type { return TypeConnected }

// Authenticated is emitted when the server acknowledges the identify handshake.
type Authenticated struct {
	BaseEvent
	UserID int64
}

func (*Authenticated) GetType() Type { return TypeAuthenticated }

// Disconnected is emitted when the socket drops. The transport reconnects on its own.
type Disconnected struct {
	BaseEvent
	Err error
}

func (*Disconnected) GetType() Type { return TypeDisconnected }

// PriceUpdate reports a new market value for an item listed as a deposit.
// MarketValue is in cents.
type PriceUpdate struct {
	BaseEvent
	DepositID   domain.DepositID
	MarketName  string
	MarketValue int64
}

func (*PriceUpdate) GetType() Type { return TypePriceUpdate }

// TradeStatus reports a trade lifecycle change.
type TradeStatus struct {
	BaseEvent
	DepositID  domain.DepositID
	TradeType  string // "deposit", "withdrawal"
	StatusText string
	Items      []domain.Item
	TradeURL   string
}

func (*TradeStatus) GetType() Type { return TypeTradeStatus }

// ItemName returns the market name of the first item, or "" if none.
func (e *TradeStatus) ItemName() string {
	if len(e.Items) == 0 {
		return ""
	}
	return e.Items[0].MarketName
}

// Observed returns the value of the first item, which is what the
// marketplace quotes for single-item deposits.
func (e *TradeStatus) Observed() (int64, bool) {
	if len(e.Items) == 0 {
		return 0, false
	}
	return e.Items[0].MarketValue, true
}

// AssetIDs lists the Steam asset ids of all items in the trade.
func (e *TradeStatus) AssetIDs() []int64 {
	ids := make([]int64, 0, len(e.Items))
	for _, it := range e.Items {
		ids = append(ids, it.AssetID)
	}
	return ids
}
