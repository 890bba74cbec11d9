package matching

import (
	"testing"

	"pgregory.net/rapid"

	"matchbook/domain/orderbook"
	"matchbook/domain/types"
)

// At any point a single tip rests for the iceberg, and filled tips plus
// the open tip plus the reserve add up to the submitted total.
func TestIcebergConservesQuantity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := newHarness(t)
		tip := rapid.Int64Range(1, 5).Draw(t, "tip")
		total := rapid.Int64Range(tip+1, 30).Draw(t, "total")

		ice := sell(1, 100, tip)
		ice.TotalQuantity = qty(total)
		if res := h.AddOrder(ice); res != OrderAccepted {
			t.Fatalf("iceberg rejected: %s", res)
		}

		buys := rapid.SliceOfN(rapid.Int64Range(1, 6), 1, 12).Draw(t, "buys")
		for i, q := range buys {
			h.AddOrder(buy(uint64(i+2), 100, q))

			var filled types.Quantity
			for _, tr := range h.rec.trades() {
				if tr.RestingOrderID == 1 {
					filled = filled.Add(tr.Quantity)
				}
			}
			sum := filled
			if o := h.Order(1); o != nil {
				sum = sum.Add(o.OpenQuantity)
			}
			if p := h.Iceberg(1); p != nil {
				sum = sum.Add(p.TotalQuantity)
			}
			if !sum.Equal(qty(total)) {
				t.Fatalf("after buy %d: accounted %s, want %d", i, sum, total)
			}

			tips := 0
			if lvl := h.Book().Asks().Find(types.PriceFromInt(100)); lvl != nil {
				for _, o := range lvl.Orders() {
					if o.OrderID == 1 {
						tips++
					}
				}
			}
			if tips > 1 {
				t.Fatalf("%d tips resting", tips)
			}
		}
	})
}

// A fill-or-kill order either fills completely in one call or leaves
// without a single trade.
func TestFillOrKillAllOrNothing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := newHarness(t)
		n := rapid.IntRange(0, 8).Draw(t, "asks")
		available := map[int64]int64{}
		for i := 0; i < n; i++ {
			p := rapid.Int64Range(100, 105).Draw(t, "price")
			q := rapid.Int64Range(1, 5).Draw(t, "qty")
			h.AddOrder(sell(uint64(i+1), p, q))
			available[p] += q
		}

		limit := rapid.Int64Range(99, 106).Draw(t, "limit")
		if rapid.Bool().Draw(t, "market") {
			limit = 0
		}
		want := rapid.Int64Range(1, 30).Draw(t, "want")
		var reachable int64
		for p, q := range available {
			if limit == 0 || p <= limit {
				reachable += q
			}
		}

		h.rec.reset()
		fok := buy(1000, limit, want)
		fok.Condition = orderbook.FillOrKill
		if res := h.AddOrder(fok); res != OrderAccepted {
			t.Fatalf("fok rejected: %s", res)
		}

		var traded types.Quantity
		for _, tr := range h.rec.trades() {
			traded = traded.Add(tr.Quantity)
		}
		cancels := h.rec.cancels()
		if reachable >= want {
			if !traded.Equal(qty(want)) || len(cancels) != 0 {
				t.Fatalf("expected full fill of %d, traded %s with %d cancels", want, traded, len(cancels))
			}
			return
		}
		if !traded.IsZero() {
			t.Fatalf("partial fill %s recorded for killed order", traded)
		}
		if len(cancels) != 1 || cancels[0].Reason != FillOrKill {
			t.Fatalf("expected one FillOrKill cancel, got %+v", cancels)
		}
	})
}

// The same holds for a market buy sized by amount: either the budget is
// spent to zero in one call or nothing trades.
func TestFillOrKillByAmountAllOrNothing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := newHarness(t)
		n := rapid.IntRange(0, 6).Draw(t, "asks")
		for i := 0; i < n; i++ {
			p := rapid.Int64Range(1, 20).Draw(t, "price")
			q := rapid.Int64Range(1, 5).Draw(t, "qty")
			h.AddOrder(sell(uint64(i+1), p, q))
		}

		h.rec.reset()
		budget := rapid.Int64Range(1, 300).Draw(t, "amount")
		fok := buy(1000, 0, 0)
		fok.OrderAmount = types.AmountFromInt(budget)
		fok.Condition = orderbook.FillOrKill
		if res := h.AddOrder(fok); res != OrderAccepted {
			t.Fatalf("fok rejected: %s", res)
		}

		var spent types.Amount
		for _, tr := range h.rec.trades() {
			spent = spent.Add(types.Notional(tr.Price, tr.Quantity))
		}
		cancels := h.rec.cancels()
		if len(cancels) == 0 {
			if !spent.Equal(types.AmountFromInt(budget)) {
				t.Fatalf("filled without cancel but spent %s of %d", spent, budget)
			}
			return
		}
		if !spent.IsZero() {
			t.Fatalf("spent %s before the order was killed", spent)
		}
		if len(cancels) != 1 || cancels[0].Reason != FillOrKill {
			t.Fatalf("expected one FillOrKill cancel, got %+v", cancels)
		}
	})
}
