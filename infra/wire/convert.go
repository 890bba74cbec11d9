package wire

import (
	"matchbook/domain/matching"
	"matchbook/domain/orderbook"
	"matchbook/domain/types"
)

// ToOrder builds the engine order for a request.
func (r *NewOrderRequest) ToOrder() *orderbook.Order {
	return &orderbook.Order{
		IsBuy:         r.IsBuy,
		OrderID:       r.OrderID,
		UserID:        r.UserID,
		Price:         r.Price,
		OpenQuantity:  r.Quantity,
		StopPrice:     r.StopPrice,
		OrderAmount:   r.OrderAmount,
		TotalQuantity: r.TotalQuantity,
		CancelOn:      r.CancelOn,
		Condition:     orderbook.OrderCondition(r.Condition),
		FeeID:         r.FeeID,
	}
}

func FromTrade(t matching.Trade, ts int64) *Fill {
	return &Fill{
		MakerOrderID:         t.RestingOrderID,
		TakerOrderID:         t.IncomingOrderID,
		MakerUserID:          t.RestingUserID,
		TakerUserID:          t.IncomingUserID,
		IncomingIsBuy:        t.IncomingIsBuy,
		MatchPrice:           t.Price,
		MatchQuantity:        t.Quantity,
		AskRemainingQuantity: t.AskRemainingQuantity,
		AskFee:               t.AskFee,
		BidCost:              t.BidCost,
		BidFee:               t.BidFee,
		Timestamp:            ts,
	}
}

func FromCancellation(c matching.Cancellation, ts int64) *Cancel {
	return &Cancel{
		OrderID:           c.OrderID,
		UserID:            c.UserID,
		RemainingQuantity: c.RemainingQuantity,
		Cost:              c.Cost,
		Fee:               c.Fee,
		Reason:            uint8(c.Reason),
		Timestamp:         ts,
	}
}

// FromBook snapshots up to levels price levels per side.
func FromBook(b *orderbook.Book, lastTraded types.Price, levels int, ts int64) *Book {
	bids, asks := b.Depth(levels)
	conv := func(in []orderbook.LevelView) []BookLevel {
		if len(in) == 0 {
			return nil
		}
		out := make([]BookLevel, len(in))
		for i, lv := range in {
			out[i] = BookLevel{Price: lv.Price, Quantity: lv.Quantity}
		}
		return out
	}
	return &Book{Timestamp: ts, LastTradedPrice: lastTraded, Bids: conv(bids), Asks: conv(asks)}
}
