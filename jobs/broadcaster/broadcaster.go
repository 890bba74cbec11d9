package broadcaster

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"matchbook/infra/kafka"
	"matchbook/infra/outbox"
	"matchbook/infra/wire"
)

const DefaultInterval = 250 * time.Millisecond

type Broadcaster struct {
	outbox    *outbox.Outbox
	publisher kafka.Publisher
	interval  time.Duration
	log       *zap.Logger
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(ob *outbox.Outbox, pub kafka.Publisher, interval time.Duration, log *zap.Logger) *Broadcaster {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{
		outbox:    ob,
		publisher: pub,
		interval:  interval,
		log:       log.Named("broadcaster"),
	}
}

// ------------------------------------------------
// LOOP
// ------------------------------------------------

// Run drains the outbox every interval until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) error {
	b.log.Info("started", zap.Duration("interval", b.interval))

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("stopped")
			return nil
		case <-ticker.C:
			if _, err := b.ReplayOnce(ctx); err != nil && ctx.Err() == nil {
				b.log.Warn("pass interrupted", zap.Error(err))
			}
		}
	}
}

// ------------------------------------------------
// REPLAY
// ------------------------------------------------

// ReplayOnce publishes NEW and FAILED records in sequence order. The pass
// stops at the first publish failure so a later event never overtakes an
// earlier one. It returns how many records were acked.
func (b *Broadcaster) ReplayOnce(ctx context.Context) (int, error) {
	sent := 0
	err := b.outbox.Scan(func(rec outbox.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.outbox.MarkSent(rec); err != nil {
			return err
		}

		err := b.publisher.Publish(ctx, kafka.Message{
			Key:   []byte(rec.Instrument),
			Value: rec.Payload,
			Headers: map[string]string{
				"event-id": rec.EventID.String(),
				"kind":     wire.MessageType(rec.Kind).String(),
				"seq":      strconv.FormatUint(rec.Seq, 10),
			},
		})
		if err != nil {
			if mErr := b.outbox.MarkFailed(rec); mErr != nil {
				return errors.CombineErrors(err, mErr)
			}
			b.log.Warn("publish failed",
				zap.Uint64("seq", rec.Seq),
				zap.Uint32("retries", rec.Retries+1),
				zap.Error(err))
			return errors.Wrapf(err, "publish %d", rec.Seq)
		}

		if err := b.outbox.Ack(rec.Seq); err != nil {
			return err
		}
		sent++
		return nil
	}, outbox.StateNew, outbox.StateFailed)

	if sent > 0 {
		b.log.Debug("published", zap.Int("count", sent))
	}
	return sent, err
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.publisher.Close()
}
