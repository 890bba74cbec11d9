package orderbook

import "matchbook/domain/types"

// Side is one ordered collection of price levels. It caches the best
// level so the matching loop never walks the tree for it; the cache is
// relinked to the new front whenever the cached level is dropped.
// A level is present iff it holds at least one order.
type Side struct {
	tree *RBTree
	best *PriceLevel
}

func NewSide(order Ordering) *Side {
	return &Side{tree: NewRBTree(order)}
}

func (s *Side) Best() *PriceLevel { return s.best }

// Levels is the number of distinct prices.
func (s *Side) Levels() int { return s.tree.Size() }

func (s *Side) Find(price types.Price) *PriceLevel { return s.tree.Find(price) }

// AddOrder appends o to the level at price, creating it when absent.
func (s *Side) AddOrder(o *Order, price types.Price) *PriceLevel {
	lvl := s.tree.Find(price)
	if lvl == nil {
		lvl = newPriceLevel(price, s)
		s.tree.Insert(lvl)
		if s.best == nil || s.tree.order(price, s.best.price) < 0 {
			s.best = lvl
		}
	}
	lvl.AddOrder(o)
	return lvl
}

// RemoveOrder unlinks o when it rests on this side.
func (s *Side) RemoveOrder(o *Order) bool {
	lvl := o.level
	if lvl == nil || lvl.side != s {
		return false
	}
	lvl.RemoveOrder(o)
	if lvl.Empty() {
		s.dropLevel(lvl)
	}
	return true
}

// Fill delegates to the order's level and drops the level once empty.
func (s *Side) Fill(o *Order, quantity types.Quantity) bool {
	lvl := o.level
	filled := lvl.Fill(o, quantity)
	if lvl.Empty() {
		s.dropLevel(lvl)
	}
	return filled
}

// ForEach visits levels from best to worst until fn returns false.
func (s *Side) ForEach(fn func(*PriceLevel) bool) {
	s.tree.ForEach(fn)
}

// PopWhile detaches leading levels while crossed reports true for
// their price and returns them in priority order.
func (s *Side) PopWhile(crossed func(types.Price) bool) []*PriceLevel {
	var out []*PriceLevel
	for s.best != nil && crossed(s.best.price) {
		lvl := s.best
		s.dropLevel(lvl)
		out = append(out, lvl)
	}
	return out
}

func (s *Side) dropLevel(lvl *PriceLevel) {
	s.tree.Delete(lvl.price)
	if s.best == lvl {
		s.best = s.tree.First()
	}
}
