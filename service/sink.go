package service

import (
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"matchbook/domain/matching"
	"matchbook/domain/types"
	"matchbook/infra/outbox"
	"matchbook/infra/wire"
)

// Sink is the engine listener of one instrument. It turns every event
// into a wire message, stages it in the outbox batch of the command in
// flight and keeps the metrics. The owning Instrument calls begin before
// and flush after each command.
type Sink struct {
	symbol  string
	codec   *wire.Codec
	outbox  *outbox.Outbox
	metrics *Metrics
	log     *zap.Logger
	now     func() time.Time

	batch  *outbox.Batch
	events []wire.Message
	err    error
}

func NewSink(symbol string, ob *outbox.Outbox, m *Metrics, log *zap.Logger) *Sink {
	if m == nil {
		m = NewMetrics(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{
		symbol:  symbol,
		codec:   wire.NewCodec(),
		outbox:  ob,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func (s *Sink) begin() {
	s.events = nil
	s.err = nil
	if s.outbox != nil {
		s.batch = s.outbox.NewBatch()
	}
}

// flush commits the staged events and hands them back. Encoding
// failures do not stop the command; the first one is reported here
// after the rest of the events are made durable.
func (s *Sink) flush() ([]wire.Message, error) {
	events, err := s.events, s.err
	s.events, s.err = nil, nil
	if s.batch != nil {
		if cerr := s.batch.Commit(); cerr != nil {
			err = errors.CombineErrors(err, cerr)
		}
		s.batch = nil
	}
	return events, err
}

func (s *Sink) abort() {
	s.events, s.err = nil, nil
	if s.batch != nil {
		_ = s.batch.Discard()
		s.batch = nil
	}
}

func (s *Sink) emit(m wire.Message) {
	s.events = append(s.events, m)
	if s.batch == nil {
		return
	}
	payload, err := s.codec.Encode(m)
	if err == nil {
		_, err = s.batch.Add(s.symbol, uint8(m.Type()), payload)
	}
	if err != nil && s.err == nil {
		s.err = errors.Wrapf(err, "stage %s", m.Type())
	}
}

func (s *Sink) ts() int64 { return s.now().UnixNano() }

func (s *Sink) OnAccept(orderID types.OrderID, userID types.UserID) {
	s.metrics.accepted.WithLabelValues(s.symbol).Inc()
	s.emit(&wire.OrderAccept{OrderID: orderID, UserID: userID, Timestamp: s.ts()})
}

func (s *Sink) OnTrade(t matching.Trade) {
	s.metrics.trades.WithLabelValues(s.symbol).Inc()
	s.metrics.tradedQty.WithLabelValues(s.symbol).Add(t.Quantity.Decimal().InexactFloat64())
	s.log.Debug("trade",
		zap.Stringer("incoming", t.IncomingOrderID),
		zap.Stringer("resting", t.RestingOrderID),
		zap.Stringer("price", t.Price),
		zap.Stringer("quantity", t.Quantity))
	s.emit(wire.FromTrade(t, s.ts()))
}

func (s *Sink) OnCancel(c matching.Cancellation) {
	s.metrics.cancels.WithLabelValues(s.symbol, c.Reason.String()).Inc()
	s.log.Debug("cancel",
		zap.Stringer("order", c.OrderID),
		zap.Stringer("reason", c.Reason),
		zap.Stringer("remaining", c.RemainingQuantity))
	s.emit(wire.FromCancellation(c, s.ts()))
}

func (s *Sink) OnOrderTriggered(orderID types.OrderID, userID types.UserID) {
	s.metrics.triggers.WithLabelValues(s.symbol).Inc()
	s.emit(&wire.OrderTrigger{OrderID: orderID, UserID: userID, Timestamp: s.ts()})
}
