package matching

import (
	"github.com/shopspring/decimal"

	"matchbook/domain/types"
)

// Trade is one match between an incoming (taker) and a resting (maker)
// order. Price is always the resting order's price.
//
// The optional fields are set only for a side that closes in this trade:
// the ask reports its remaining quantity and fee, the bid its cost and fee.
type Trade struct {
	IncomingOrderID types.OrderID
	RestingOrderID  types.OrderID
	IncomingUserID  types.UserID
	RestingUserID   types.UserID
	IncomingIsBuy   bool
	Price           types.Price
	Quantity        types.Quantity

	AskRemainingQuantity *types.Quantity
	AskFee               *types.Amount
	BidCost              *types.Amount
	BidFee               *types.Amount
}

// Cancellation reports an accepted order leaving the book unfilled.
// RemainingQuantity includes the hidden reserve of an iceberg.
type Cancellation struct {
	OrderID           types.OrderID
	UserID            types.UserID
	RemainingQuantity types.Quantity
	Cost              types.Amount
	Fee               types.Amount
	Reason            CancelReason
}

// Listener receives engine events synchronously, in causal order.
// Implementations must not call back into the engine.
type Listener interface {
	OnAccept(orderID types.OrderID, userID types.UserID)
	OnTrade(trade Trade)
	OnCancel(c Cancellation)
	OnOrderTriggered(orderID types.OrderID, userID types.UserID)
}

// FeeProvider resolves maker and taker rates for a fee schedule id.
type FeeProvider interface {
	GetFee(id types.FeeID) (maker, taker decimal.Decimal)
}

type Clock interface {
	SecondsFromEpoch() int64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() int64

func (f ClockFunc) SecondsFromEpoch() int64 { return f() }

// NopListener discards every event.
type NopListener struct{}

func (NopListener) OnAccept(types.OrderID, types.UserID)         {}
func (NopListener) OnTrade(Trade)                                {}
func (NopListener) OnCancel(Cancellation)                        {}
func (NopListener) OnOrderTriggered(types.OrderID, types.UserID) {}

// ZeroFees charges nothing.
type ZeroFees struct{}

func (ZeroFees) GetFee(types.FeeID) (decimal.Decimal, decimal.Decimal) {
	return decimal.Zero, decimal.Zero
}
