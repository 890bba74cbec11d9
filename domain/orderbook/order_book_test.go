package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"matchbook/domain/types"
)

func limit(id uint64, isBuy bool, price, qty int64) *Order {
	return &Order{
		OrderID:      types.OrderID(id),
		IsBuy:        isBuy,
		Price:        types.PriceFromInt(price),
		OpenQuantity: types.QuantityFromInt(qty),
	}
}

func stop(id uint64, isBuy bool, stopPrice, qty int64) *Order {
	o := limit(id, isBuy, 0, qty)
	o.StopPrice = types.PriceFromInt(stopPrice)
	return o
}

func TestPriceLevelFIFOAndAggregate(t *testing.T) {
	s := NewSide(Ascending)
	a := limit(1, false, 100, 5)
	b := limit(2, false, 100, 7)
	lvl := s.AddOrder(a, a.Price)
	s.AddOrder(b, b.Price)

	require.Equal(t, 2, lvl.Len())
	require.True(t, lvl.Quantity().Equal(types.QuantityFromInt(12)))
	require.Same(t, a, lvl.First())

	filled := lvl.Fill(a, types.QuantityFromInt(2))
	assert.False(t, filled)
	assert.True(t, lvl.Quantity().Equal(types.QuantityFromInt(10)))
	assert.True(t, a.OpenQuantity.Equal(types.QuantityFromInt(3)))

	filled = lvl.Fill(a, types.QuantityFromInt(3))
	assert.True(t, filled)
	assert.Same(t, b, lvl.First())
	assert.False(t, a.Resting())
	assert.Equal(t, 1, lvl.Len())
}

func TestPriceLevelRemoveOrderNotPresent(t *testing.T) {
	s := NewSide(Ascending)
	a := limit(1, false, 100, 5)
	lvl := s.AddOrder(a, a.Price)

	assert.False(t, lvl.RemoveOrder(limit(9, false, 100, 5)))
	assert.True(t, lvl.RemoveOrder(a))
	assert.False(t, lvl.RemoveOrder(a))
	assert.True(t, lvl.Quantity().IsZero())
}

func TestPriceLevelOverfillPanicsWithoutMutation(t *testing.T) {
	s := NewSide(Ascending)
	a := limit(1, false, 100, 5)
	lvl := s.AddOrder(a, a.Price)

	require.Panics(t, func() { lvl.Fill(a, types.QuantityFromInt(6)) })
	assert.True(t, a.OpenQuantity.Equal(types.QuantityFromInt(5)))
	assert.True(t, lvl.Quantity().Equal(types.QuantityFromInt(5)))
}

func TestBookBestPriceCacheRelinks(t *testing.T) {
	b := NewBook()
	b.AddOrderOpenBook(limit(1, true, 99, 1))
	hi := limit(2, true, 101, 1)
	b.AddOrderOpenBook(hi)
	b.AddOrderOpenBook(limit(3, true, 100, 1))

	require.True(t, b.BestBid().Price().Equal(types.PriceFromInt(101)))

	require.True(t, b.RemoveOrder(hi))
	require.True(t, b.BestBid().Price().Equal(types.PriceFromInt(100)))
	require.Nil(t, b.Bids().Find(types.PriceFromInt(101)))
	require.Equal(t, 2, b.Len())
}

func TestBookSequenceAndBestOrderToMatch(t *testing.T) {
	b := NewBook()
	first := limit(1, false, 100, 1)
	second := limit(2, false, 100, 1)
	b.AddOrderOpenBook(first)
	b.AddOrderOpenBook(second)

	assert.Less(t, first.Sequence, second.Sequence)
	assert.Same(t, first, b.BestOrderToMatch(true))
	assert.Nil(t, b.BestOrderToMatch(false))
}

func TestBookFillOrderDropsEmptyLevel(t *testing.T) {
	b := NewBook()
	a := limit(1, false, 100, 4)
	b.AddOrderOpenBook(a)
	b.AddOrderOpenBook(limit(2, false, 105, 4))

	require.True(t, b.FillOrder(a, types.QuantityFromInt(4)))
	require.True(t, b.BestAsk().Price().Equal(types.PriceFromInt(105)))
	require.Equal(t, 1, b.Asks().Levels())
}

func TestCheckCanFillOrder(t *testing.T) {
	b := NewBook()
	b.AddOrderOpenBook(limit(1, false, 100, 5))
	b.AddOrderOpenBook(limit(2, false, 101, 5))
	b.AddOrderOpenBook(limit(3, false, 105, 5))

	tests := []struct {
		name  string
		qty   int64
		limit int64
		want  bool
	}{
		{"within first level", 5, 100, true},
		{"needs second level", 8, 101, true},
		{"limit stops the walk", 11, 101, false},
		{"market takes all levels", 15, 0, true},
		{"more than the book", 16, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := b.CheckCanFillOrder(true, types.QuantityFromInt(tt.qty), types.PriceFromInt(tt.limit))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckCanFillMarketOrderAmount(t *testing.T) {
	one := types.MustQuantity("1")
	b := NewBook()
	b.AddOrderOpenBook(limit(1, false, 10, 5)) // 50
	b.AddOrderOpenBook(limit(2, false, 20, 5)) // 100

	assert.True(t, b.CheckCanFillMarketOrderAmount(true, types.AmountFromInt(150), one))
	assert.True(t, b.CheckCanFillMarketOrderAmount(true, types.AmountFromInt(90), one))
	assert.False(t, b.CheckCanFillMarketOrderAmount(true, types.AmountFromInt(151), one))
	// 55 buys five at 10, then 5 cannot buy a whole step at 20
	assert.False(t, b.CheckCanFillMarketOrderAmount(true, types.AmountFromInt(55), one))
}

func TestCheckCanFillMarketOrderAmountRoundsToStep(t *testing.T) {
	b := NewBook()
	b.AddOrderOpenBook(limit(1, false, 100, 10))

	// enough notional on the book, but 150 is not a whole number of steps
	assert.False(t, b.CheckCanFillMarketOrderAmount(true, types.AmountFromInt(150), types.MustQuantity("1")))
	assert.True(t, b.CheckCanFillMarketOrderAmount(true, types.AmountFromInt(150), types.MustQuantity("0.5")))
	assert.True(t, b.CheckCanFillMarketOrderAmount(true, types.AmountFromInt(300), types.MustQuantity("1")))
}

func TestStopExtraction(t *testing.T) {
	b := NewBook()
	b.AddStopOrder(stop(1, true, 105, 1))
	b.AddStopOrder(stop(2, true, 103, 1))
	b.AddStopOrder(stop(3, true, 110, 1))
	b.AddStopOrder(stop(4, false, 95, 1))
	b.AddStopOrder(stop(5, false, 97, 1))

	require.True(t, b.BestStopBid().Price().Equal(types.PriceFromInt(103)))
	require.True(t, b.BestStopAsk().Price().Equal(types.PriceFromInt(97)))

	got := b.RemoveStopBids(types.PriceFromInt(105))
	require.Len(t, got, 2)
	assert.Equal(t, types.OrderID(2), got[0].OrderID)
	assert.Equal(t, types.OrderID(1), got[1].OrderID)
	assert.False(t, got[0].Resting())
	_, ok := b.StopPrice(2)
	assert.False(t, ok)
	assert.True(t, b.BestStopBid().Price().Equal(types.PriceFromInt(110)))

	got = b.RemoveStopAsks(types.PriceFromInt(96))
	require.Len(t, got, 1)
	assert.Equal(t, types.OrderID(5), got[0].OrderID)
	assert.Equal(t, 2, b.Len())

	assert.Empty(t, b.RemoveStopAsks(types.PriceFromInt(96)))
}

func TestRemoveOrderFallsBackToStops(t *testing.T) {
	b := NewBook()
	s := stop(1, false, 90, 1)
	b.AddStopOrder(s)

	p, ok := b.StopPrice(1)
	require.True(t, ok)
	require.True(t, p.Equal(types.PriceFromInt(90)))

	require.True(t, b.RemoveOrder(s))
	require.Nil(t, b.BestStopAsk())
	require.False(t, b.RemoveOrder(s))
}

func TestDepth(t *testing.T) {
	b := NewBook()
	b.AddOrderOpenBook(limit(1, true, 99, 2))
	b.AddOrderOpenBook(limit(2, true, 99, 3))
	b.AddOrderOpenBook(limit(3, true, 98, 1))
	b.AddOrderOpenBook(limit(4, false, 101, 4))

	bids, asks := b.Depth(1)
	require.Len(t, bids, 1)
	assert.True(t, bids[0].Quantity.Equal(types.QuantityFromInt(5)))
	assert.Equal(t, 2, bids[0].Orders)
	require.Len(t, asks, 1)

	bids, _ = b.Depth(0)
	assert.Len(t, bids, 2)
}

// Among orders at one price the earliest arrival is always matched first.
func TestBookPriceTimePriority(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := NewBook()
		n := rapid.IntRange(1, 40).Draw(t, "orders")
		var lastSeq = map[int64]uint64{}
		for i := 0; i < n; i++ {
			price := rapid.Int64Range(95, 100).Draw(t, "price")
			b.AddOrderOpenBook(limit(uint64(i+1), false, price, 1))
		}
		var prevPrice types.Price
		for o := b.BestOrderToMatch(true); o != nil; o = b.BestOrderToMatch(true) {
			p := o.Price
			if !prevPrice.IsZero() && p.LessThan(prevPrice) {
				t.Fatalf("price %s matched after %s", p, prevPrice)
			}
			key := p.Decimal().IntPart()
			if o.Sequence <= lastSeq[key] {
				t.Fatalf("sequence %d matched after %d at %s", o.Sequence, lastSeq[key], p)
			}
			lastSeq[key] = o.Sequence
			prevPrice = p
			b.FillOrder(o, o.OpenQuantity)
		}
		if b.Len() != 0 {
			t.Fatalf("book not drained: %d left", b.Len())
		}
	})
}
