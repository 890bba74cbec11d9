package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"matchbook/domain/matching"
	"matchbook/domain/orderbook"
	"matchbook/domain/types"
	"matchbook/infra/outbox"
	"matchbook/infra/wire"
)

var (
	// ErrInvariantViolation marks a command that panicked inside the
	// engine. The engine state after such a command is not trusted.
	ErrInvariantViolation = errors.New("engine invariant violation")
	ErrStopped            = errors.New("instrument stopped")
)

const defaultQueueSize = 1024

type InstrumentConfig struct {
	Symbol         string
	StepSize       types.Quantity
	SelfMatch      matching.SelfMatchAction
	ExpiryInterval time.Duration // 0 disables the periodic sweep
	QueueSize      int
}

type reply struct {
	events []wire.Message
	err    error
}

type command struct {
	name  string
	fn    func(e *matching.Engine)
	reply chan reply
}

// Instrument owns one engine. All access goes through the command queue
// and is executed by the Run goroutine, one command at a time.
type Instrument struct {
	cfg     InstrumentConfig
	engine  *matching.Engine
	sink    *Sink
	metrics *Metrics
	log     *zap.Logger

	cmds    chan command
	stopped chan struct{}
}

func NewInstrument(
	cfg InstrumentConfig,
	ob *outbox.Outbox,
	fees matching.FeeProvider,
	clock matching.Clock,
	m *Metrics,
	log *zap.Logger,
) (*Instrument, error) {
	if cfg.Symbol == "" {
		return nil, errors.New("instrument: empty symbol")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if m == nil {
		m = NewMetrics(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("instrument", cfg.Symbol))

	sink := NewSink(cfg.Symbol, ob, m, log)
	engine, err := matching.NewEngine(
		matching.Config{StepSize: cfg.StepSize, SelfMatch: cfg.SelfMatch},
		sink, fees, clock,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "instrument %s", cfg.Symbol)
	}

	return &Instrument{
		cfg:     cfg,
		engine:  engine,
		sink:    sink,
		metrics: m,
		log:     log,
		cmds:    make(chan command, cfg.QueueSize),
		stopped: make(chan struct{}),
	}, nil
}

func (in *Instrument) Symbol() string { return in.cfg.Symbol }

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run executes queued commands until ctx is done. Commands still queued
// at that point are answered with ErrStopped.
func (in *Instrument) Run(ctx context.Context) error {
	in.log.Info("instrument started", zap.Stringer("step_size", in.cfg.StepSize))

	var tick <-chan time.Time
	if in.cfg.ExpiryInterval > 0 {
		t := time.NewTicker(in.cfg.ExpiryInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			close(in.stopped)
			in.drainStopped()
			in.log.Info("instrument stopped")
			return nil
		case c := <-in.cmds:
			c.reply <- in.execute(c)
		case <-tick:
			r := in.execute(command{name: "expire", fn: func(e *matching.Engine) { e.CancelExpiredOrders() }})
			if r.err != nil {
				in.log.Error("expiry sweep failed", zap.Error(r.err))
			}
		}
	}
}

func (in *Instrument) drainStopped() {
	for {
		select {
		case c := <-in.cmds:
			c.reply <- reply{err: ErrStopped}
		default:
			return
		}
	}
}

func (in *Instrument) execute(c command) (r reply) {
	in.sink.begin()
	defer func() {
		if p := recover(); p != nil {
			in.sink.abort()
			in.metrics.commandErrors.WithLabelValues(in.cfg.Symbol).Inc()
			in.log.Error("command panicked", zap.String("command", c.name), zap.Any("panic", p))
			r = reply{err: errors.Wrapf(ErrInvariantViolation, "%s %s: %v", in.cfg.Symbol, c.name, p)}
		}
	}()

	c.fn(in.engine)

	events, err := in.sink.flush()
	if err != nil {
		in.metrics.commandErrors.WithLabelValues(in.cfg.Symbol).Inc()
		in.log.Error("outbox write failed", zap.String("command", c.name), zap.Error(err))
	}
	return reply{events: events, err: err}
}

// do queues fn and waits for it. A non-nil error means no reply came
// back: the queue was closed or ctx ended first, in which case a queued
// command may still run later. Otherwise the reply carries whatever the
// command itself produced, including a partial failure.
func (in *Instrument) do(ctx context.Context, name string, fn func(e *matching.Engine)) (reply, error) {
	c := command{name: name, fn: fn, reply: make(chan reply, 1)}
	select {
	case in.cmds <- c:
	case <-in.stopped:
		return reply{}, ErrStopped
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
	select {
	case r := <-c.reply:
		return r, nil
	case <-in.stopped:
		return reply{}, ErrStopped
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// ------------------------------------------------
// COMMANDS
// ------------------------------------------------

// AddOrder submits o and returns the validation result together with
// every event the order caused. If persisting the events fails, the
// result and events are still returned alongside the error: the engine
// has already acted on the order.
func (in *Instrument) AddOrder(ctx context.Context, o *orderbook.Order) (matching.OrderMatchingResult, []wire.Message, error) {
	var res matching.OrderMatchingResult
	r, err := in.do(ctx, "add", func(e *matching.Engine) {
		res = e.AddOrder(o)
	})
	if err != nil {
		return 0, nil, err
	}
	if res != 0 && res != matching.OrderAccepted {
		in.metrics.rejected.WithLabelValues(in.cfg.Symbol, res.String()).Inc()
		in.log.Debug("order rejected", zap.Stringer("order", o.OrderID), zap.Stringer("result", res))
	}
	return res, r.events, r.err
}

func (in *Instrument) CancelOrder(ctx context.Context, id types.OrderID) (matching.CancelOrderResult, []wire.Message, error) {
	var res matching.CancelOrderResult
	r, err := in.do(ctx, "cancel", func(e *matching.Engine) {
		res = e.CancelOrder(id)
	})
	if err != nil {
		return 0, nil, err
	}
	return res, r.events, r.err
}

// ExpireOrders cancels every good-till-date order whose time has come.
func (in *Instrument) ExpireOrders(ctx context.Context) ([]wire.Message, error) {
	r, err := in.do(ctx, "expire", func(e *matching.Engine) { e.CancelExpiredOrders() })
	if err != nil {
		return nil, err
	}
	return r.events, r.err
}

// Depth snapshots up to levels price levels per side; levels <= 0 means
// the whole book.
func (in *Instrument) Depth(ctx context.Context, levels int) (*wire.Book, error) {
	var book *wire.Book
	r, err := in.do(ctx, "depth", func(e *matching.Engine) {
		book = wire.FromBook(e.Book(), e.MarketPrice(), levels, time.Now().UnixNano())
	})
	if err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	return book, nil
}
