package matching

import (
	"matchbook/domain/orderbook"
	"matchbook/domain/types"
)

type taskKind uint8

const (
	taskMatch taskKind = iota
	taskSweep
	taskTrigger
)

// task is one step of an AddOrder call. Tasks run from a LIFO work list,
// so a replenished tip or a triggered stop is carried through its whole
// cascade before the work queued ahead of it resumes.
type task struct {
	kind   taskKind
	order  *orderbook.Order
	before types.Price // market price before the match that queued a sweep
}

func (e *Engine) push(t task) { e.work = append(e.work, t) }

func (e *Engine) drain() {
	for len(e.work) > 0 {
		t := e.work[len(e.work)-1]
		e.work = e.work[:len(e.work)-1]

		switch t.kind {
		case taskMatch:
			e.matchAndAdd(t.order)
		case taskSweep:
			e.sweepStops(t.before)
		case taskTrigger:
			t.order.StopPrice = types.Price{}
			e.listener.OnOrderTriggered(t.order.OrderID, t.order.UserID)
			e.matchAndAdd(t.order)
		}
	}
}

// matchAndAdd matches x against the book and settles what is left of it:
// rest, peg, cancel or, for a filled tip, queue the next tip.
func (e *Engine) matchAndAdd(x *orderbook.Order) {
	before := e.marketPrice
	traded := e.matchWithOpenOrders(x)

	var next *orderbook.Order
	switch {
	case x.IsFilled():
		if next = e.replenish(x); next == nil {
			e.forget(x)
		}
	case x.Condition == orderbook.ImmediateOrCancel:
		e.cancel(x, ImmediateOrCancel)
	case x.Condition == orderbook.FillOrKill:
		e.cancel(x, FillOrKill)
	case x.ByAmount():
		if traded {
			e.cancel(x, LessThanStepSize)
		} else {
			e.cancel(x, MarketOrderNoLiquidity)
		}
	case x.IsMarket():
		if !traded {
			e.cancel(x, MarketOrderNoLiquidity)
			break
		}
		x.Price = e.marketPrice
		e.book.AddOrderOpenBook(x)
	default:
		e.book.AddOrderOpenBook(x)
	}

	e.push(task{kind: taskSweep, before: before})
	if next != nil {
		e.push(task{kind: taskMatch, order: next})
	}
}

// matchWithOpenOrders trades x against the best opposing orders while
// their price satisfies x's limit. It reports whether anything traded.
func (e *Engine) matchWithOpenOrders(x *orderbook.Order) bool {
	traded := false
	for !x.IsFilled() {
		resting := e.book.BestOrderToMatch(x.IsBuy)
		if resting == nil {
			break
		}
		if !x.IsMarket() && !orderbook.Crosses(x.IsBuy, x.Price, resting.Price) {
			break
		}

		byAmount := x.ByAmount()
		var qty types.Quantity
		if byAmount {
			qty = types.MinQuantity(
				types.AffordableQuantity(x.OrderAmount, resting.Price, e.cfg.StepSize),
				resting.OpenQuantity)
			if qty.IsZero() {
				break
			}
		} else {
			qty = types.MinQuantity(x.OpenQuantity, resting.OpenQuantity)
		}

		price := resting.Price
		cost := types.Notional(price, qty)
		maker, _ := e.fees.GetFee(resting.FeeID)
		_, taker := e.fees.GetFee(x.FeeID)

		// FillOrder asserts qty against the resting order before anything
		// else in this step is touched.
		restingFilled := e.book.FillOrder(resting, qty)

		if byAmount {
			x.OrderAmount = x.OrderAmount.Sub(cost)
		} else {
			x.OpenQuantity = x.OpenQuantity.Sub(qty)
		}
		x.Cost = x.Cost.Add(cost)
		x.Fee = x.Fee.Add(cost.Mul(taker))
		resting.Cost = resting.Cost.Add(cost)
		resting.Fee = resting.Fee.Add(cost.Mul(maker))

		restingClosed := e.closes(resting)
		incomingClosed := e.closes(x)
		if restingFilled {
			if tip := e.replenish(resting); tip != nil {
				e.book.AddOrderOpenBook(tip)
			} else {
				e.forget(resting)
			}
		}

		e.marketPrice = price
		traded = true
		e.listener.OnTrade(newTrade(x, resting, price, qty, incomingClosed, restingClosed))
	}
	return traded
}

func newTrade(x, resting *orderbook.Order, price types.Price, qty types.Quantity, incomingClosed, restingClosed bool) Trade {
	t := Trade{
		IncomingOrderID: x.OrderID,
		RestingOrderID:  resting.OrderID,
		IncomingUserID:  x.UserID,
		RestingUserID:   resting.UserID,
		IncomingIsBuy:   x.IsBuy,
		Price:           price,
		Quantity:        qty,
	}
	ask, askClosed, bid, bidClosed := resting, restingClosed, x, incomingClosed
	if !x.IsBuy {
		ask, askClosed, bid, bidClosed = x, incomingClosed, resting, restingClosed
	}
	if askClosed {
		remaining, fee := ask.OpenQuantity, ask.Fee
		t.AskRemainingQuantity = &remaining
		t.AskFee = &fee
	}
	if bidClosed {
		cost, fee := bid.Cost, bid.Fee
		t.BidCost = &cost
		t.BidFee = &fee
	}
	return t
}

// sweepStops triggers the dormant stops crossed by the move from before
// to the current market price. The first trade of the book moves the
// price away from zero, so it checks both directions.
func (e *Engine) sweepStops(before types.Price) {
	after := e.marketPrice
	var triggered []*orderbook.Order
	if after.GreaterThan(before) {
		triggered = append(triggered, e.book.RemoveStopBids(after)...)
	}
	if !after.IsZero() && (before.IsZero() || after.LessThan(before)) {
		triggered = append(triggered, e.book.RemoveStopAsks(after)...)
	}
	for i := len(triggered) - 1; i >= 0; i-- {
		e.push(task{kind: taskTrigger, order: triggered[i]})
	}
}
