package service

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"matchbook/domain/matching"
	"matchbook/infra/wire"
)

var (
	ErrUnknownInstrument  = errors.New("unknown instrument")
	ErrUnsupportedMessage = errors.New("unsupported inbound message")
)

/*
OrderService is the ONLY write entry point into the system.

It routes inbound wire messages to the instrument they name. Each
instrument serialises its own commands; different instruments run in
parallel.
*/
type OrderService struct {
	instruments map[string]*Instrument
	codec       *wire.Codec
}

// Response is the outcome of one inbound message. Result is set for
// NewOrderRequest, Cancel for CancelRequest.
type Response struct {
	Result matching.OrderMatchingResult
	Cancel matching.CancelOrderResult
	Events []wire.Message
}

func NewOrderService(instruments ...*Instrument) (*OrderService, error) {
	s := &OrderService{
		instruments: make(map[string]*Instrument, len(instruments)),
		codec:       wire.NewCodec(),
	}
	for _, in := range instruments {
		if _, dup := s.instruments[in.Symbol()]; dup {
			return nil, errors.Newf("duplicate instrument %s", in.Symbol())
		}
		s.instruments[in.Symbol()] = in
	}
	return s, nil
}

func (s *OrderService) Instrument(symbol string) (*Instrument, bool) {
	in, ok := s.instruments[symbol]
	return in, ok
}

func (s *OrderService) Symbols() []string {
	out := make([]string, 0, len(s.instruments))
	for sym := range s.instruments {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Run drives every instrument until ctx is done.
func (s *OrderService) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, in := range s.instruments {
		in := in
		g.Go(func() error { return in.Run(ctx) })
	}
	return g.Wait()
}

//
// ──────────────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────────────
//

// Submit dispatches one inbound message to symbol's engine.
func (s *OrderService) Submit(ctx context.Context, symbol string, msg wire.Message) (Response, error) {
	in, ok := s.instruments[symbol]
	if !ok {
		return Response{}, errors.Wrapf(ErrUnknownInstrument, "%q", symbol)
	}

	switch m := msg.(type) {
	case *wire.NewOrderRequest:
		res, events, err := in.AddOrder(ctx, m.ToOrder())
		return Response{Result: res, Events: events}, err
	case *wire.CancelRequest:
		res, events, err := in.CancelOrder(ctx, m.OrderID)
		return Response{Cancel: res, Events: events}, err
	case *wire.BookRequest:
		book, err := in.Depth(ctx, int(m.LevelCount))
		if err != nil {
			return Response{}, err
		}
		return Response{Events: []wire.Message{book}}, nil
	default:
		return Response{}, errors.Wrapf(ErrUnsupportedMessage, "%s", msg.Type())
	}
}

// SubmitFrame decodes one length-framed message and submits it.
func (s *OrderService) SubmitFrame(ctx context.Context, symbol string, frame []byte) (Response, error) {
	msg, err := s.codec.Decode(frame)
	if err != nil {
		return Response{}, errors.Wrap(err, "decode frame")
	}
	return s.Submit(ctx, symbol, msg)
}
