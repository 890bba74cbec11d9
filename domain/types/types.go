// Package types holds the numeric vocabulary of the matching engine.
//
// Price, Quantity and Amount are distinct wrappers over a fixed-point
// decimal so that a quantity can never be passed where a price is
// expected. Conversions are always explicit.
package types

import (
	"strconv"

	"github.com/shopspring/decimal"
)

type OrderID uint64

type UserID uint64

// FeeID selects a fee schedule from the FeeProvider.
type FeeID int16

func (id OrderID) String() string { return strconv.FormatUint(uint64(id), 10) }

func (id UserID) String() string { return strconv.FormatUint(uint64(id), 10) }

// Price is a limit, stop or trade price. Zero means market.
type Price struct {
	d decimal.Decimal
}

func NewPrice(d decimal.Decimal) Price { return Price{d: d} }

func PriceFromInt(v int64) Price { return Price{d: decimal.NewFromInt(v)} }

// MustPrice parses s and panics on malformed input. Intended for
// constants and tests.
func MustPrice(s string) Price { return Price{d: decimal.RequireFromString(s)} }

func (p Price) Decimal() decimal.Decimal     { return p.d }
func (p Price) Cmp(o Price) int              { return p.d.Cmp(o.d) }
func (p Price) Equal(o Price) bool           { return p.d.Equal(o.d) }
func (p Price) LessThan(o Price) bool        { return p.d.LessThan(o.d) }
func (p Price) GreaterThan(o Price) bool     { return p.d.GreaterThan(o.d) }
func (p Price) LessThanOrEqual(o Price) bool { return p.d.LessThanOrEqual(o.d) }
func (p Price) GreaterOrEqual(o Price) bool  { return p.d.GreaterThanOrEqual(o.d) }
func (p Price) IsZero() bool                 { return p.d.IsZero() }
func (p Price) IsNegative() bool             { return p.d.IsNegative() }
func (p Price) String() string               { return p.d.String() }

// Quantity is an order or trade size.
type Quantity struct {
	d decimal.Decimal
}

func NewQuantity(d decimal.Decimal) Quantity { return Quantity{d: d} }

func QuantityFromInt(v int64) Quantity { return Quantity{d: decimal.NewFromInt(v)} }

func MustQuantity(s string) Quantity { return Quantity{d: decimal.RequireFromString(s)} }

func (q Quantity) Decimal() decimal.Decimal       { return q.d }
func (q Quantity) Cmp(o Quantity) int             { return q.d.Cmp(o.d) }
func (q Quantity) Equal(o Quantity) bool          { return q.d.Equal(o.d) }
func (q Quantity) LessThan(o Quantity) bool       { return q.d.LessThan(o.d) }
func (q Quantity) GreaterThan(o Quantity) bool    { return q.d.GreaterThan(o.d) }
func (q Quantity) GreaterOrEqual(o Quantity) bool { return q.d.GreaterThanOrEqual(o.d) }
func (q Quantity) IsZero() bool                   { return q.d.IsZero() }
func (q Quantity) IsNegative() bool               { return q.d.IsNegative() }
func (q Quantity) IsPositive() bool               { return q.d.IsPositive() }
func (q Quantity) String() string                 { return q.d.String() }

func (q Quantity) Add(o Quantity) Quantity { return Quantity{d: q.d.Add(o.d)} }
func (q Quantity) Sub(o Quantity) Quantity { return Quantity{d: q.d.Sub(o.d)} }

// MinQuantity returns the smaller of a and b.
func MinQuantity(a, b Quantity) Quantity {
	if a.d.LessThanOrEqual(b.d) {
		return a
	}
	return b
}

// Amount is a notional value: cost, fee or the spend of a market order
// sized by amount.
type Amount struct {
	d decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount { return Amount{d: d} }

func AmountFromInt(v int64) Amount { return Amount{d: decimal.NewFromInt(v)} }

func MustAmount(s string) Amount { return Amount{d: decimal.RequireFromString(s)} }

func (a Amount) Decimal() decimal.Decimal     { return a.d }
func (a Amount) Cmp(o Amount) int             { return a.d.Cmp(o.d) }
func (a Amount) Equal(o Amount) bool          { return a.d.Equal(o.d) }
func (a Amount) GreaterOrEqual(o Amount) bool { return a.d.GreaterThanOrEqual(o.d) }
func (a Amount) IsZero() bool                 { return a.d.IsZero() }
func (a Amount) IsNegative() bool             { return a.d.IsNegative() }
func (a Amount) IsPositive() bool             { return a.d.IsPositive() }
func (a Amount) String() string               { return a.d.String() }

func (a Amount) Add(o Amount) Amount { return Amount{d: a.d.Add(o.d)} }
func (a Amount) Sub(o Amount) Amount { return Amount{d: a.d.Sub(o.d)} }

// Mul scales the amount by a rate, e.g. a fee percentage.
func (a Amount) Mul(rate decimal.Decimal) Amount { return Amount{d: a.d.Mul(rate)} }

// Notional is price × quantity.
func Notional(p Price, q Quantity) Amount {
	return Amount{d: p.d.Mul(q.d)}
}

// AffordableQuantity is the largest multiple of step that amount can buy
// at price. It is zero when price or step is not positive.
func AffordableQuantity(amount Amount, price Price, step Quantity) Quantity {
	if !price.d.IsPositive() || !step.d.IsPositive() || !amount.d.IsPositive() {
		return Quantity{}
	}
	units := amount.d.Div(price.d).Div(step.d).Floor()
	// Div rounds to DivisionPrecision; guard against rounding up past the budget.
	q := units.Mul(step.d)
	for q.IsPositive() && q.Mul(price.d).GreaterThan(amount.d) {
		q = q.Sub(step.d)
	}
	return Quantity{d: q}
}
