package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"matchbook/config"
	"matchbook/domain/matching"
	"matchbook/domain/types"
	"matchbook/infra/kafka"
	"matchbook/infra/logging"
	"matchbook/infra/outbox"
	"matchbook/infra/wire"
	"matchbook/jobs/broadcaster"
	"matchbook/service"
)

func main() {
	feed := flag.String("instrument", "", "feed length-framed wire messages from stdin into this instrument")
	flag.Parse()

	// ---------------- Config ----------------

	cfg := config.MustLoad()

	// ---------------- Logger ----------------

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *feed, logger); err != nil {
		logger.Fatal("matchbook exited", zap.Error(err))
	}
}

func run(cfg *config.Config, feed string, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------- Metrics ----------------

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(reg)

	// ---------------- Outbox ----------------

	ob, err := outbox.Open(cfg.Outbox.Dir)
	if err != nil {
		return err
	}
	defer ob.Close()

	// ---------------- Instruments ----------------

	fees := service.FeeSchedule{}
	for _, f := range cfg.Fees {
		maker, taker, err := f.Rates()
		if err != nil {
			return err
		}
		fees[types.FeeID(f.ID)] = service.Rate{Maker: maker, Taker: taker}
	}

	instruments := make([]*service.Instrument, 0, len(cfg.Instruments))
	for _, ic := range cfg.Instruments {
		step, err := ic.Step()
		if err != nil {
			return err
		}
		in, err := service.NewInstrument(service.InstrumentConfig{
			Symbol:         ic.Symbol,
			StepSize:       step,
			SelfMatch:      cfg.SelfMatchAction(),
			ExpiryInterval: cfg.Engine.ExpiryInterval,
			QueueSize:      cfg.Engine.QueueSize,
		}, ob, fees, service.SystemClock{}, metrics, logger)
		if err != nil {
			return err
		}
		instruments = append(instruments, in)
	}

	svc, err := service.NewOrderService(instruments...)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })

	// ---------------- Broadcaster ----------------

	if cfg.Kafka.Enabled {
		pub, err := kafka.New(kafka.Config{
			Driver:   cfg.Kafka.Driver,
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID,
		})
		if err != nil {
			return err
		}
		bc := broadcaster.New(ob, pub, cfg.Outbox.ScanInterval, logger)
		defer bc.Close()
		g.Go(func() error { return bc.Run(ctx) })
	} else {
		logger.Warn("kafka disabled; events stay in the outbox")
	}

	// ---------------- Admin HTTP ----------------

	admin := &http.Server{
		Addr:              cfg.Admin.Addr,
		Handler:           newAdminRouter(reg, svc.Symbols()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		if err := admin.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return admin.Shutdown(shutdownCtx)
	})

	// ---------------- Command feed ----------------

	// stdin reads cannot be interrupted, so the feed lives outside the
	// group and simply stops at EOF.
	if feed != "" {
		go feedStdin(ctx, svc, feed, logger)
	}

	logger.Info("matchbook running",
		zap.Strings("instruments", svc.Symbols()),
		zap.String("admin", cfg.Admin.Addr))

	return g.Wait()
}

// feedStdin submits every frame read from stdin and writes the resulting
// events to stdout, framed the same way.
func feedStdin(ctx context.Context, svc *service.OrderService, symbol string, logger *zap.Logger) {
	codec := wire.NewCodec()
	in := bufio.NewReader(os.Stdin)
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for {
		frame, err := wire.ReadFrame(in)
		if errors.Is(err, io.EOF) {
			logger.Info("command feed finished")
			return
		}
		if err != nil {
			logger.Error("command feed broken", zap.Error(err))
			return
		}

		resp, err := svc.SubmitFrame(ctx, symbol, frame)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("command failed", zap.Error(err))
		}
		if resp.Result != 0 && resp.Result != matching.OrderAccepted {
			logger.Info("order rejected", zap.Stringer("result", resp.Result))
		}
		for _, ev := range resp.Events {
			b, err := codec.Encode(ev)
			if err != nil {
				logger.Error("encode event", zap.Stringer("type", ev.Type()), zap.Error(err))
				continue
			}
			if _, err := out.Write(b); err != nil {
				logger.Error("write event", zap.Error(err))
				return
			}
		}
		if err := out.Flush(); err != nil {
			logger.Error("flush events", zap.Error(err))
			return
		}
	}
}
