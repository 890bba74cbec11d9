package orderbook

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"matchbook/domain/types"
)

// PriceLevel is a FIFO queue of orders at a single price. Orders are
// appended in arrival-sequence order, so the head is always the
// earliest order and matches first.
type PriceLevel struct {
	price types.Price
	side  *Side

	head *Order
	tail *Order

	quantity types.Quantity
	count    int
}

func newPriceLevel(price types.Price, side *Side) *PriceLevel {
	return &PriceLevel{price: price, side: side}
}

func (p *PriceLevel) Price() types.Price { return p.price }

// Quantity is the sum of open quantities of all orders in the level.
func (p *PriceLevel) Quantity() types.Quantity { return p.quantity }

func (p *PriceLevel) Len() int { return p.count }

func (p *PriceLevel) Empty() bool { return p.head == nil }

// First is the earliest order at this price.
func (p *PriceLevel) First() *Order { return p.head }

// AddOrder appends o. The caller assigns o.Sequence beforehand.
func (p *PriceLevel) AddOrder(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	o.level = p
	p.quantity = p.quantity.Add(o.OpenQuantity)
	p.count++
}

// RemoveOrder unlinks o. It returns false when o does not rest here.
func (p *PriceLevel) RemoveOrder(o *Order) bool {
	if o == nil || o.level != p {
		return false
	}
	p.unlink(o)
	p.quantity = p.quantity.Sub(o.OpenQuantity)
	return true
}

// Fill takes quantity off o. It reports true when o became filled, in
// which case o has already been unlinked from the level.
func (p *PriceLevel) Fill(o *Order, quantity types.Quantity) bool {
	if o.level != p {
		panic(errors.AssertionFailedf("order %s does not rest at %s", o.OrderID, p.price))
	}
	if quantity.GreaterThan(o.OpenQuantity) {
		panic(errors.AssertionFailedf("fill %s exceeds open quantity %s of order %s",
			quantity, o.OpenQuantity, o.OrderID))
	}
	if quantity.GreaterThan(p.quantity) {
		panic(errors.AssertionFailedf("fill %s exceeds level quantity %s at %s", quantity, p.quantity, p.price))
	}
	o.OpenQuantity = o.OpenQuantity.Sub(quantity)
	p.quantity = p.quantity.Sub(quantity)
	if o.IsFilled() {
		p.unlink(o)
		return true
	}
	return false
}

// Orders returns the resting orders in priority order.
func (p *PriceLevel) Orders() []*Order {
	out := make([]*Order, 0, p.count)
	for n := p.head; n != nil; n = n.next {
		out = append(out, n)
	}
	return out
}

// drain unlinks every order and returns them in priority order.
func (p *PriceLevel) drain() []*Order {
	out := make([]*Order, 0, p.count)
	for p.head != nil {
		o := p.head
		p.unlink(o)
		out = append(out, o)
	}
	p.quantity = types.Quantity{}
	return out
}

func (p *PriceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next, o.prev, o.level = nil, nil, nil
	p.count--
}

// String formats this price level for debugging/logging.
func (p *PriceLevel) String() string {
	return fmt.Sprintf("PriceLevel{Price=%s, Orders=%d, Quantity=%s}", p.price, p.count, p.quantity)
}
