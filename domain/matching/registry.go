package matching

import (
	"matchbook/domain/orderbook"
	"matchbook/domain/types"
)

// registry is the engine's id index. It holds references to orders the
// book owns: the live order per id (the current tip for an iceberg), the
// iceberg parents, and every id ever accepted.
type registry struct {
	orders   map[types.OrderID]*orderbook.Order
	icebergs map[types.OrderID]*orderbook.Order
	accepted map[types.OrderID]struct{}
}

func newRegistry() *registry {
	return &registry{
		orders:   make(map[types.OrderID]*orderbook.Order),
		icebergs: make(map[types.OrderID]*orderbook.Order),
		accepted: make(map[types.OrderID]struct{}),
	}
}

func (r *registry) seen(id types.OrderID) bool {
	_, ok := r.accepted[id]
	return ok
}

func (r *registry) accept(id types.OrderID) { r.accepted[id] = struct{}{} }

func (r *registry) put(o *orderbook.Order) { r.orders[o.OrderID] = o }

func (r *registry) get(id types.OrderID) *orderbook.Order { return r.orders[id] }

func (r *registry) parent(id types.OrderID) *orderbook.Order { return r.icebergs[id] }

// reserve is the hidden quantity still behind a tip.
func (r *registry) reserve(o *orderbook.Order) types.Quantity {
	if !o.IsTip {
		return types.Quantity{}
	}
	if p := r.icebergs[o.OrderID]; p != nil {
		return p.TotalQuantity
	}
	return types.Quantity{}
}

func (r *registry) drop(id types.OrderID) {
	delete(r.orders, id)
	delete(r.icebergs, id)
}
