package orderbook

import (
	"matchbook/domain/types"
)

type OrderCondition uint8

const (
	ConditionNone OrderCondition = iota
	ImmediateOrCancel
	BookOrCancel
	FillOrKill
)

func (c OrderCondition) String() string {
	switch c {
	case ConditionNone:
		return "NONE"
	case ImmediateOrCancel:
		return "IOC"
	case BookOrCancel:
		return "BOC"
	case FillOrKill:
		return "FOK"
	default:
		return "UNKNOWN"
	}
}

// Order is the mutable unit of trading intent. It is filled in place
// while it rests; the book owns it from insertion until it is filled,
// cancelled or expired.
type Order struct {
	IsBuy    bool
	OrderID  types.OrderID
	UserID   types.UserID
	Sequence uint64 // arrival sequence, assigned by the book

	Price        types.Price // zero means market
	OpenQuantity types.Quantity
	StopPrice    types.Price  // zero means not a stop
	OrderAmount  types.Amount // market buy sized by notional

	// Iceberg: TotalQuantity is the hidden reserve on the parent and
	// TipQuantity the size of each visible slice.
	TotalQuantity types.Quantity
	TipQuantity   types.Quantity
	IsTip         bool

	CancelOn  int64 // seconds from epoch, 0 = good till cancel
	Condition OrderCondition

	Cost  types.Amount
	Fee   types.Amount
	FeeID types.FeeID

	level *PriceLevel
	next  *Order
	prev  *Order
}

// IsFilled reports whether nothing is left to trade. An order sized by
// amount is done once both its amount and open quantity are exhausted.
func (o *Order) IsFilled() bool {
	return o.OpenQuantity.IsZero() && o.OrderAmount.IsZero()
}

func (o *Order) IsStop() bool { return !o.StopPrice.IsZero() }

func (o *Order) IsMarket() bool { return o.Price.IsZero() }

// IsIceberg is true for a submitted iceberg, before it is split into a
// parent and its first tip.
func (o *Order) IsIceberg() bool { return o.TotalQuantity.IsPositive() && !o.IsTip }

// ByAmount reports a market buy sized by spend rather than quantity.
func (o *Order) ByAmount() bool { return o.OrderAmount.IsPositive() && o.OpenQuantity.IsZero() }

// Resting reports whether the order currently sits in a price level.
func (o *Order) Resting() bool { return o.level != nil }

// Next walks the FIFO of the level the order rests in.
func (o *Order) Next() *Order { return o.next }
