// Package matching implements the price-time priority matching engine
// for one instrument. An Engine is single-writer: callers serialize
// AddOrder, CancelOrder and CancelExpiredOrders.
package matching

import (
	"github.com/cockroachdb/errors"

	"matchbook/domain/orderbook"
	"matchbook/domain/types"
)

var ErrInvalidStepSize = errors.New("step size must be positive")

type Config struct {
	StepSize  types.Quantity
	SelfMatch SelfMatchAction
}

type Engine struct {
	cfg      Config
	book     *orderbook.Book
	listener Listener
	fees     FeeProvider
	clock    Clock

	reg         *registry
	gtd         *gtdIndex
	marketPrice types.Price

	work []task
}

func NewEngine(cfg Config, listener Listener, fees FeeProvider, clock Clock) (*Engine, error) {
	if !cfg.StepSize.IsPositive() {
		return nil, ErrInvalidStepSize
	}
	if cfg.SelfMatch != SelfMatchMatch {
		return nil, errors.Newf("self-match action %s is not supported", cfg.SelfMatch)
	}
	if listener == nil {
		listener = NopListener{}
	}
	if fees == nil {
		fees = ZeroFees{}
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	return &Engine{
		cfg:      cfg,
		book:     orderbook.NewBook(),
		listener: listener,
		fees:     fees,
		clock:    clock,
		reg:      newRegistry(),
		gtd:      newGTDIndex(),
	}, nil
}

// Book exposes the book for read-only queries.
func (e *Engine) Book() *orderbook.Book { return e.book }

// MarketPrice is the price of the last trade, zero before the first.
func (e *Engine) MarketPrice() types.Price { return e.marketPrice }

// Order returns the live order for id: the dormant stop, the resting
// order, or the current tip of an iceberg.
func (e *Engine) Order(id types.OrderID) *orderbook.Order { return e.reg.get(id) }

// Iceberg returns the parent of an iceberg; its TotalQuantity is the
// reserve not yet shown as a tip.
func (e *Engine) Iceberg(id types.OrderID) *orderbook.Order { return e.reg.parent(id) }

// NextExpiry is the earliest cancel-on second among live GTD orders.
func (e *Engine) NextExpiry() (int64, bool) { return e.gtd.earliest() }

// AddOrder validates o and, once accepted, runs it through matching,
// including any stop orders it triggers. The engine takes ownership of o.
func (e *Engine) AddOrder(o *orderbook.Order) OrderMatchingResult {
	if res := e.validate(o); res != OrderAccepted {
		return res
	}
	e.reg.accept(o.OrderID)
	e.listener.OnAccept(o.OrderID, o.UserID)

	now := e.clock.SecondsFromEpoch()
	e.cancelExpired(now)

	switch {
	case o.Condition == orderbook.BookOrCancel && e.wouldCross(o):
		e.cancel(o, BookOrCancel)
		return OrderAccepted
	case o.Condition == orderbook.FillOrKill && !e.canFill(o):
		e.cancel(o, FillOrKill)
		return OrderAccepted
	case o.CancelOn > 0 && o.CancelOn <= now:
		e.cancel(o, ValidityExpired)
		return OrderAccepted
	}

	working := o
	if o.TotalQuantity.IsPositive() {
		working = e.split(o)
	}
	if working.CancelOn > 0 {
		e.gtd.add(working.CancelOn, working.OrderID)
	}
	e.reg.put(working)

	if working.IsStop() && e.armed(working) {
		e.book.AddStopOrder(working)
		return OrderAccepted
	}
	working.StopPrice = types.Price{}
	e.work = e.work[:0]
	e.push(task{kind: taskMatch, order: working})
	e.drain()
	return OrderAccepted
}

func (e *Engine) validate(o *orderbook.Order) OrderMatchingResult {
	if o.Price.IsNegative() || o.StopPrice.IsNegative() || o.OpenQuantity.IsNegative() ||
		o.OrderAmount.IsNegative() || o.TotalQuantity.IsNegative() ||
		(o.OpenQuantity.IsZero() && o.OrderAmount.IsZero()) ||
		o.Condition > orderbook.FillOrKill {
		return InvalidPriceQuantityStopPriceOrderAmount
	}
	if o.OrderAmount.IsPositive() &&
		(!o.IsBuy || !o.IsMarket() || o.OpenQuantity.IsPositive() || o.TotalQuantity.IsPositive()) {
		return InvalidMarketOrderAmount
	}
	switch o.Condition {
	case orderbook.BookOrCancel:
		if o.IsMarket() || o.IsStop() {
			return BookOrCancelCannotBeMarketOrStopOrder
		}
	case orderbook.ImmediateOrCancel:
		if o.IsStop() {
			return ImmediateOrCancelCannotBeStopOrder
		}
	case orderbook.FillOrKill:
		if o.IsStop() {
			return FillOrKillCannotBeStopOrder
		}
	}
	if o.CancelOn < 0 {
		return InvalidCancelOnForGTD
	}
	immediate := o.Condition == orderbook.FillOrKill || o.Condition == orderbook.ImmediateOrCancel
	if o.CancelOn > 0 && immediate {
		return GoodTillDateCannotBeIOCorFOK
	}
	if o.TotalQuantity.IsPositive() {
		if immediate {
			return IcebergOrderCannotBeFOKorIOC
		}
		if o.IsStop() || o.IsMarket() {
			return IcebergOrderCannotBeStopOrMarketOrder
		}
		if !o.TotalQuantity.GreaterThan(o.OpenQuantity) {
			return InvalidIcebergOrderTotalQuantity
		}
	}
	if e.reg.seen(o.OrderID) {
		return DuplicateOrder
	}
	return OrderAccepted
}

func (e *Engine) wouldCross(o *orderbook.Order) bool {
	best := e.book.BestOrderToMatch(o.IsBuy)
	return best != nil && orderbook.Crosses(o.IsBuy, o.Price, best.Price)
}

func (e *Engine) canFill(o *orderbook.Order) bool {
	if o.ByAmount() {
		return e.book.CheckCanFillMarketOrderAmount(o.IsBuy, o.OrderAmount, e.cfg.StepSize)
	}
	return e.book.CheckCanFillOrder(o.IsBuy, o.OpenQuantity, o.Price)
}

// armed reports whether a stop must wait. A stop whose trigger the market
// has already reached matches straight away.
func (e *Engine) armed(o *orderbook.Order) bool {
	if o.IsBuy {
		return o.StopPrice.GreaterThan(e.marketPrice)
	}
	return e.marketPrice.IsZero() || o.StopPrice.LessThan(e.marketPrice)
}

// split turns a submitted iceberg into its parent, registered as such,
// and returns the first tip.
func (e *Engine) split(o *orderbook.Order) *orderbook.Order {
	o.IsTip = false
	o.TipQuantity = o.OpenQuantity
	o.TotalQuantity = o.TotalQuantity.Sub(o.OpenQuantity)
	o.OpenQuantity = types.Quantity{}
	e.reg.icebergs[o.OrderID] = o
	return newTip(o, o.TipQuantity)
}

func newTip(parent *orderbook.Order, q types.Quantity) *orderbook.Order {
	return &orderbook.Order{
		IsBuy:        parent.IsBuy,
		OrderID:      parent.OrderID,
		UserID:       parent.UserID,
		Price:        parent.Price,
		OpenQuantity: q,
		TipQuantity:  parent.TipQuantity,
		IsTip:        true,
		CancelOn:     parent.CancelOn,
		Condition:    parent.Condition,
		FeeID:        parent.FeeID,
	}
}

// replenish manufactures the next tip after prev filled, or returns nil
// when the reserve is exhausted. The new tip carries prev's cost and fee.
func (e *Engine) replenish(prev *orderbook.Order) *orderbook.Order {
	parent := e.reg.parent(prev.OrderID)
	if !prev.IsTip || parent == nil || !parent.TotalQuantity.IsPositive() {
		return nil
	}
	q := types.MinQuantity(parent.TipQuantity, parent.TotalQuantity)
	parent.TotalQuantity = parent.TotalQuantity.Sub(q)
	tip := newTip(parent, q)
	tip.Cost = prev.Cost
	tip.Fee = prev.Fee
	e.reg.put(tip)
	return tip
}

// closes reports whether a filled order leaves the book for good, which
// for a tip means no reserve is left behind it.
func (e *Engine) closes(o *orderbook.Order) bool {
	return o.IsFilled() && e.reg.reserve(o).IsZero()
}

func (e *Engine) forget(o *orderbook.Order) {
	e.reg.drop(o.OrderID)
	if o.CancelOn > 0 {
		e.gtd.remove(o.CancelOn, o.OrderID)
	}
}

// cancel reports o as cancelled and removes it from every index.
func (e *Engine) cancel(o *orderbook.Order, reason CancelReason) {
	if o.Resting() {
		e.book.RemoveOrder(o)
	}
	remaining := o.OpenQuantity.Add(e.reg.reserve(o))
	if o.IsIceberg() {
		// not yet split: the total still includes the first tip
		remaining = o.TotalQuantity
	}
	e.forget(o)
	e.listener.OnCancel(Cancellation{
		OrderID:           o.OrderID,
		UserID:            o.UserID,
		RemainingQuantity: remaining,
		Cost:              o.Cost,
		Fee:               o.Fee,
		Reason:            reason,
	})
}

// CancelOrder withdraws a resting or dormant order at the user's request.
func (e *Engine) CancelOrder(id types.OrderID) CancelOrderResult {
	o := e.reg.get(id)
	if o == nil {
		return OrderDoesNotExist
	}
	e.cancel(o, UserRequested)
	return CancelAccepted
}

// CancelExpiredOrders cancels every good-till-date order whose cancel-on
// second has been reached by the clock.
func (e *Engine) CancelExpiredOrders() {
	e.cancelExpired(e.clock.SecondsFromEpoch())
}

func (e *Engine) cancelExpired(now int64) {
	if at, ok := e.gtd.earliest(); !ok || at > now {
		return
	}
	for _, id := range e.gtd.popExpired(now) {
		if o := e.reg.get(id); o != nil {
			e.cancel(o, ValidityExpired)
		}
	}
}
