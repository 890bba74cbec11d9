// Package wire implements the fixed little-endian binary messages
// exchanged with the matching service.
//
// Every frame starts with a 7 byte header: total length (uint32), message
// type (uint8) and format version (uint16). Decimals are 16 bytes.
package wire

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"matchbook/domain/types"
)

const (
	Version    uint16 = 1
	HeaderSize        = 7

	// MaxFrameSize bounds what ReadFrame accepts.
	MaxFrameSize = 1 << 20
)

var (
	ErrShortBuffer     = errors.New("wire: short buffer")
	ErrLengthMismatch  = errors.New("wire: declared length does not match buffer")
	ErrTypeMismatch    = errors.New("wire: unexpected message type")
	ErrVersionMismatch = errors.New("wire: unsupported version")
	ErrDecimalOverflow = errors.New("wire: decimal out of range")
)

type fieldKind uint8

const (
	kBool fieldKind = iota
	kUint8
	kInt16
	kInt32
	kInt64
	kDecimal
	kOptDecimal
)

var kindWidth = [...]int{
	kBool:       1,
	kUint8:      1,
	kInt16:      2,
	kInt32:      4,
	kInt64:      8,
	kDecimal:    decimalSize,
	kOptDecimal: 1 + decimalSize,
}

// layout is the fixed part of one message type. Book appends its levels
// after the fixed part.
type layout struct {
	fields []fieldKind
	size   int
}

func newLayout(fields ...fieldKind) layout {
	l := layout{fields: fields, size: HeaderSize}
	for _, f := range fields {
		l.size += kindWidth[f]
	}
	return l
}

// Codec encodes and decodes frames. Build it once with NewCodec and share
// it; it holds no mutable state.
type Codec struct {
	layouts map[MessageType]layout
}

func NewCodec() *Codec {
	return &Codec{layouts: map[MessageType]layout{
		TypeNewOrderRequest: newLayout(kInt64, kInt64, kBool, kDecimal, kDecimal, kDecimal, kDecimal, kDecimal, kInt64, kUint8, kInt16),
		TypeCancelRequest:   newLayout(kInt64),
		TypeBookRequest:     newLayout(kInt32),
		TypeFill: newLayout(kInt64, kInt64, kInt64, kInt64, kBool, kDecimal, kDecimal,
			kOptDecimal, kOptDecimal, kOptDecimal, kOptDecimal, kInt64),
		TypeCancel:       newLayout(kInt64, kInt64, kDecimal, kDecimal, kDecimal, kUint8, kInt64),
		TypeBook:         newLayout(kInt64, kDecimal, kInt32, kInt32),
		TypeOrderTrigger: newLayout(kInt64, kInt64, kInt64),
		TypeOrderAccept:  newLayout(kInt64, kInt64, kInt64),
	}}
}

// Size is the encoded length of m.
func (c *Codec) Size(m Message) int {
	n := c.layouts[m.Type()].size
	if b, ok := m.(*Book); ok {
		n += (len(b.Bids) + len(b.Asks)) * 2 * decimalSize
	}
	return n
}

func (c *Codec) Encode(m Message) ([]byte, error) {
	l, ok := c.layouts[m.Type()]
	if !ok {
		return nil, errors.Wrapf(ErrTypeMismatch, "encode %T", m)
	}
	w := writer{buf: make([]byte, c.Size(m))}
	w.header(m.Type(), len(w.buf))

	switch v := m.(type) {
	case *NewOrderRequest:
		w.i64(int64(v.OrderID))
		w.i64(int64(v.UserID))
		w.bool(v.IsBuy)
		w.dec(v.Price.Decimal())
		w.dec(v.Quantity.Decimal())
		w.dec(v.StopPrice.Decimal())
		w.dec(v.OrderAmount.Decimal())
		w.dec(v.TotalQuantity.Decimal())
		w.i64(v.CancelOn)
		w.u8(v.Condition)
		w.i16(int16(v.FeeID))
	case *CancelRequest:
		w.i64(int64(v.OrderID))
	case *BookRequest:
		w.i32(v.LevelCount)
	case *Fill:
		w.i64(int64(v.MakerOrderID))
		w.i64(int64(v.TakerOrderID))
		w.i64(int64(v.MakerUserID))
		w.i64(int64(v.TakerUserID))
		w.bool(v.IncomingIsBuy)
		w.dec(v.MatchPrice.Decimal())
		w.dec(v.MatchQuantity.Decimal())
		w.optQuantity(v.AskRemainingQuantity)
		w.optAmount(v.AskFee)
		w.optAmount(v.BidCost)
		w.optAmount(v.BidFee)
		w.i64(v.Timestamp)
	case *Cancel:
		w.i64(int64(v.OrderID))
		w.i64(int64(v.UserID))
		w.dec(v.RemainingQuantity.Decimal())
		w.dec(v.Cost.Decimal())
		w.dec(v.Fee.Decimal())
		w.u8(v.Reason)
		w.i64(v.Timestamp)
	case *Book:
		w.i64(v.Timestamp)
		w.dec(v.LastTradedPrice.Decimal())
		w.i32(int32(len(v.Bids)))
		w.i32(int32(len(v.Asks)))
		for _, lv := range append(v.Bids[:len(v.Bids):len(v.Bids)], v.Asks...) {
			w.dec(lv.Price.Decimal())
			w.dec(lv.Quantity.Decimal())
		}
	case *OrderTrigger:
		w.i64(int64(v.OrderID))
		w.i64(int64(v.UserID))
		w.i64(v.Timestamp)
	case *OrderAccept:
		w.i64(int64(v.OrderID))
		w.i64(int64(v.UserID))
		w.i64(v.Timestamp)
	}
	if w.err != nil {
		return nil, errors.Wrapf(w.err, "encode %s", m.Type())
	}
	if w.pos != l.size && m.Type() != TypeBook {
		return nil, errors.AssertionFailedf("encode %s wrote %d bytes, layout is %d", m.Type(), w.pos, l.size)
	}
	return w.buf, nil
}

// PeekType validates the header of frame and returns its message type.
func (c *Codec) PeekType(frame []byte) (MessageType, error) {
	if len(frame) < HeaderSize {
		return 0, ErrShortBuffer
	}
	if n := binary.LittleEndian.Uint32(frame[0:4]); int(n) != len(frame) {
		return 0, errors.Wrapf(ErrLengthMismatch, "declared %d, got %d", n, len(frame))
	}
	if v := binary.LittleEndian.Uint16(frame[5:7]); v != Version {
		return 0, errors.Wrapf(ErrVersionMismatch, "version %d", v)
	}
	t := MessageType(frame[4])
	l, ok := c.layouts[t]
	if !ok {
		return 0, errors.Wrapf(ErrTypeMismatch, "tag %d", frame[4])
	}
	if len(frame) < l.size || (t != TypeBook && len(frame) != l.size) {
		return 0, errors.Wrapf(ErrLengthMismatch, "%s needs %d bytes, got %d", t, l.size, len(frame))
	}
	return t, nil
}

// Decode parses any frame.
func (c *Codec) Decode(frame []byte) (Message, error) {
	t, err := c.PeekType(frame)
	if err != nil {
		return nil, err
	}
	r := reader{buf: frame, pos: HeaderSize}

	var m Message
	switch t {
	case TypeNewOrderRequest:
		m = &NewOrderRequest{
			OrderID:       types.OrderID(r.i64()),
			UserID:        types.UserID(r.i64()),
			IsBuy:         r.bool(),
			Price:         types.NewPrice(r.dec()),
			Quantity:      types.NewQuantity(r.dec()),
			StopPrice:     types.NewPrice(r.dec()),
			OrderAmount:   types.NewAmount(r.dec()),
			TotalQuantity: types.NewQuantity(r.dec()),
			CancelOn:      r.i64(),
			Condition:     r.u8(),
			FeeID:         types.FeeID(r.i16()),
		}
	case TypeCancelRequest:
		m = &CancelRequest{OrderID: types.OrderID(r.i64())}
	case TypeBookRequest:
		m = &BookRequest{LevelCount: r.i32()}
	case TypeFill:
		m = &Fill{
			MakerOrderID:         types.OrderID(r.i64()),
			TakerOrderID:         types.OrderID(r.i64()),
			MakerUserID:          types.UserID(r.i64()),
			TakerUserID:          types.UserID(r.i64()),
			IncomingIsBuy:        r.bool(),
			MatchPrice:           types.NewPrice(r.dec()),
			MatchQuantity:        types.NewQuantity(r.dec()),
			AskRemainingQuantity: r.optQuantity(),
			AskFee:               r.optAmount(),
			BidCost:              r.optAmount(),
			BidFee:               r.optAmount(),
			Timestamp:            r.i64(),
		}
	case TypeCancel:
		m = &Cancel{
			OrderID:           types.OrderID(r.i64()),
			UserID:            types.UserID(r.i64()),
			RemainingQuantity: types.NewQuantity(r.dec()),
			Cost:              types.NewAmount(r.dec()),
			Fee:               types.NewAmount(r.dec()),
			Reason:            r.u8(),
			Timestamp:         r.i64(),
		}
	case TypeBook:
		m, err = c.decodeBook(&r)
		if err != nil {
			return nil, err
		}
	case TypeOrderTrigger:
		m = &OrderTrigger{OrderID: types.OrderID(r.i64()), UserID: types.UserID(r.i64()), Timestamp: r.i64()}
	case TypeOrderAccept:
		m = &OrderAccept{OrderID: types.OrderID(r.i64()), UserID: types.UserID(r.i64()), Timestamp: r.i64()}
	}
	if r.err != nil {
		return nil, errors.Wrapf(r.err, "decode %s", t)
	}
	return m, nil
}

func (c *Codec) decodeBook(r *reader) (*Book, error) {
	b := &Book{Timestamp: r.i64(), LastTradedPrice: types.NewPrice(r.dec())}
	bids, asks := r.i32(), r.i32()
	if bids < 0 || asks < 0 {
		return nil, errors.Wrapf(ErrLengthMismatch, "negative level count %d/%d", bids, asks)
	}
	n := int(bids) + int(asks)
	want := c.layouts[TypeBook].size + n*2*decimalSize
	if want != len(r.buf) {
		return nil, errors.Wrapf(ErrLengthMismatch, "book with %d levels needs %d bytes, got %d", n, want, len(r.buf))
	}
	levels := func(n int32) []BookLevel {
		if n == 0 {
			return nil
		}
		out := make([]BookLevel, n)
		for i := range out {
			out[i] = BookLevel{Price: types.NewPrice(r.dec()), Quantity: types.NewQuantity(r.dec())}
		}
		return out
	}
	b.Bids = levels(bids)
	b.Asks = levels(asks)
	return b, nil
}

// DecodeAs decodes frame and fails with ErrTypeMismatch unless it carries
// the wanted type.
func DecodeAs[M Message](c *Codec, frame []byte) (M, error) {
	var zero M
	m, err := c.Decode(frame)
	if err != nil {
		return zero, err
	}
	v, ok := m.(M)
	if !ok {
		return zero, errors.Wrapf(ErrTypeMismatch, "want %T, got %s", zero, m.Type())
	}
	return v, nil
}

type writer struct {
	buf []byte
	pos int
	err error
}

func (w *writer) header(t MessageType, n int) {
	binary.LittleEndian.PutUint32(w.buf[0:4], uint32(n))
	w.buf[4] = byte(t)
	binary.LittleEndian.PutUint16(w.buf[5:7], Version)
	w.pos = HeaderSize
}

func (w *writer) bool(v bool) {
	if v {
		w.buf[w.pos] = 1
	}
	w.pos++
}

func (w *writer) u8(v uint8) {
	w.buf[w.pos] = v
	w.pos++
}

func (w *writer) i16(v int16) {
	binary.LittleEndian.PutUint16(w.buf[w.pos:], uint16(v))
	w.pos += 2
}

func (w *writer) i32(v int32) {
	binary.LittleEndian.PutUint32(w.buf[w.pos:], uint32(v))
	w.pos += 4
}

func (w *writer) i64(v int64) {
	binary.LittleEndian.PutUint64(w.buf[w.pos:], uint64(v))
	w.pos += 8
}

func (w *writer) dec(d decimal.Decimal) {
	if err := putDecimal(w.buf[w.pos:w.pos+decimalSize], d); err != nil && w.err == nil {
		w.err = err
	}
	w.pos += decimalSize
}

func (w *writer) optQuantity(q *types.Quantity) {
	if q == nil {
		w.pos += 1 + decimalSize
		return
	}
	w.buf[w.pos] = 1
	w.pos++
	w.dec(q.Decimal())
}

func (w *writer) optAmount(a *types.Amount) {
	if a == nil {
		w.pos += 1 + decimalSize
		return
	}
	w.buf[w.pos] = 1
	w.pos++
	w.dec(a.Decimal())
}

// reader never reads past buf: PeekType and decodeBook check sizes first.
type reader struct {
	buf []byte
	pos int
	err error
}

func (r *reader) bool() bool { return r.u8() != 0 }

func (r *reader) u8() uint8 {
	v := r.buf[r.pos]
	r.pos++
	return v
}

func (r *reader) i16() int16 {
	v := int16(binary.LittleEndian.Uint16(r.buf[r.pos:]))
	r.pos += 2
	return v
}

func (r *reader) i32() int32 {
	v := int32(binary.LittleEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v
}

func (r *reader) i64() int64 {
	v := int64(binary.LittleEndian.Uint64(r.buf[r.pos:]))
	r.pos += 8
	return v
}

func (r *reader) dec() decimal.Decimal {
	d, err := readDecimal(r.buf[r.pos : r.pos+decimalSize])
	if err != nil && r.err == nil {
		r.err = err
	}
	r.pos += decimalSize
	return d
}

func (r *reader) optQuantity() *types.Quantity {
	present := r.bool()
	d := r.dec()
	if !present {
		return nil
	}
	q := types.NewQuantity(d)
	return &q
}

func (r *reader) optAmount() *types.Amount {
	present := r.bool()
	d := r.dec()
	if !present {
		return nil
	}
	a := types.NewAmount(d)
	return &a
}
