package orderbook

import (
	"matchbook/domain/types"
)

// Book is single-writer and deterministic. It owns four independent
// sides: live bids and asks, and the dormant stop orders waiting for
// the market to rise (stop bids) or fall (stop asks) through them.
type Book struct {
	bids     *Side // highest first
	asks     *Side // lowest first
	stopBids *Side // lowest trigger first: fires as price rises
	stopAsks *Side // highest trigger first: fires as price falls

	stopPrices map[types.OrderID]types.Price
	sequence   uint64
	orders     int
}

func NewBook() *Book {
	return &Book{
		bids:       NewSide(Descending),
		asks:       NewSide(Ascending),
		stopBids:   NewSide(Ascending),
		stopAsks:   NewSide(Descending),
		stopPrices: make(map[types.OrderID]types.Price),
	}
}

func (b *Book) Bids() *Side     { return b.bids }
func (b *Book) Asks() *Side     { return b.asks }
func (b *Book) StopBids() *Side { return b.stopBids }
func (b *Book) StopAsks() *Side { return b.stopAsks }

// Len is the number of orders resting in the book, dormant stops included.
func (b *Book) Len() int { return b.orders }

func (b *Book) BestBid() *PriceLevel     { return b.bids.Best() }
func (b *Book) BestAsk() *PriceLevel     { return b.asks.Best() }
func (b *Book) BestStopBid() *PriceLevel { return b.stopBids.Best() }
func (b *Book) BestStopAsk() *PriceLevel { return b.stopAsks.Best() }

// StopPrice returns the trigger price of a dormant stop order.
func (b *Book) StopPrice(id types.OrderID) (types.Price, bool) {
	p, ok := b.stopPrices[id]
	return p, ok
}

func (b *Book) nextSequence() uint64 {
	b.sequence++
	return b.sequence
}

// AddOrderOpenBook rests o at its limit price on its own side.
func (b *Book) AddOrderOpenBook(o *Order) {
	o.Sequence = b.nextSequence()
	if o.IsBuy {
		b.bids.AddOrder(o, o.Price)
	} else {
		b.asks.AddOrder(o, o.Price)
	}
	b.orders++
}

// AddStopOrder parks o as dormant at its stop price.
func (b *Book) AddStopOrder(o *Order) {
	o.Sequence = b.nextSequence()
	if o.IsBuy {
		b.stopBids.AddOrder(o, o.StopPrice)
	} else {
		b.stopAsks.AddOrder(o, o.StopPrice)
	}
	b.stopPrices[o.OrderID] = o.StopPrice
	b.orders++
}

// RemoveOrder takes o out of whichever side holds it.
func (b *Book) RemoveOrder(o *Order) bool {
	for _, s := range [...]*Side{b.sideOf(o.IsBuy), b.stopSideOf(o.IsBuy)} {
		if s.RemoveOrder(o) {
			delete(b.stopPrices, o.OrderID)
			b.orders--
			return true
		}
	}
	return false
}

// BestOrderToMatch returns the earliest order at the best opposing
// price for an incoming order on the given side.
func (b *Book) BestOrderToMatch(isBuy bool) *Order {
	lvl := b.sideOf(!isBuy).Best()
	if lvl == nil {
		return nil
	}
	return lvl.First()
}

// FillOrder fills a resting order and reports whether it was exhausted.
func (b *Book) FillOrder(o *Order, quantity types.Quantity) bool {
	filled := b.sideOf(o.IsBuy).Fill(o, quantity)
	if filled {
		b.orders--
	}
	return filled
}

// CheckCanFillOrder reports whether the opposing side holds at least
// quantity within limit. A zero limit accepts every level.
func (b *Book) CheckCanFillOrder(isBuy bool, quantity types.Quantity, limit types.Price) bool {
	var available types.Quantity
	b.sideOf(!isBuy).ForEach(func(lvl *PriceLevel) bool {
		if !limit.IsZero() && !Crosses(isBuy, limit, lvl.price) {
			return false
		}
		available = available.Add(lvl.quantity)
		return available.LessThan(quantity)
	})
	return available.GreaterOrEqual(quantity)
}

// CheckCanFillMarketOrderAmount reports whether amount can be spent down
// to zero. It walks the opposing orders in match order and buys from each
// the whole steps the remaining budget affords, as matching does.
func (b *Book) CheckCanFillMarketOrderAmount(isBuy bool, amount types.Amount, step types.Quantity) bool {
	remaining := amount
	b.sideOf(!isBuy).ForEach(func(lvl *PriceLevel) bool {
		for o := lvl.head; o != nil && remaining.IsPositive(); o = o.next {
			q := types.MinQuantity(types.AffordableQuantity(remaining, lvl.price, step), o.OpenQuantity)
			if q.IsZero() {
				return false
			}
			remaining = remaining.Sub(types.Notional(lvl.price, q))
		}
		return remaining.IsPositive()
	})
	return remaining.IsZero()
}

// RemoveStopBids extracts every dormant buy stop whose trigger price is
// at or below price, in trigger order.
func (b *Book) RemoveStopBids(price types.Price) []*Order {
	return b.extractStops(b.stopBids, func(trigger types.Price) bool {
		return trigger.LessThanOrEqual(price)
	})
}

// RemoveStopAsks extracts every dormant sell stop whose trigger price is
// at or above price, in trigger order.
func (b *Book) RemoveStopAsks(price types.Price) []*Order {
	return b.extractStops(b.stopAsks, func(trigger types.Price) bool {
		return trigger.GreaterOrEqual(price)
	})
}

func (b *Book) extractStops(s *Side, crossed func(types.Price) bool) []*Order {
	var out []*Order
	for _, lvl := range s.PopWhile(crossed) {
		for _, o := range lvl.drain() {
			delete(b.stopPrices, o.OrderID)
			b.orders--
			out = append(out, o)
		}
	}
	return out
}

// LevelView is an aggregated, read-only view of one price level.
type LevelView struct {
	Price    types.Price
	Quantity types.Quantity
	Orders   int
}

// Depth returns up to n levels per live side, best first. n <= 0 means all.
func (b *Book) Depth(n int) (bids, asks []LevelView) {
	collect := func(s *Side) []LevelView {
		var out []LevelView
		s.ForEach(func(lvl *PriceLevel) bool {
			out = append(out, LevelView{Price: lvl.price, Quantity: lvl.quantity, Orders: lvl.count})
			return n <= 0 || len(out) < n
		})
		return out
	}
	return collect(b.bids), collect(b.asks)
}

func (b *Book) sideOf(isBuy bool) *Side {
	if isBuy {
		return b.bids
	}
	return b.asks
}

func (b *Book) stopSideOf(isBuy bool) *Side {
	if isBuy {
		return b.stopBids
	}
	return b.stopAsks
}

// Crosses reports whether a resting price is acceptable to an incoming
// limit on the given side.
func Crosses(isBuy bool, limit, resting types.Price) bool {
	if isBuy {
		return resting.LessThanOrEqual(limit)
	}
	return resting.GreaterOrEqual(limit)
}
