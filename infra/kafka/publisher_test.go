package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/cockroachdb/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	got    []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestProducerMapsMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}

	err := p.Publish(context.Background(), Message{
		Key:     []byte("BTC-USD"),
		Value:   []byte{1, 2, 3},
		Headers: map[string]string{"kind": "Fill", "event-id": "abc"},
	})
	require.NoError(t, err)
	require.Len(t, w.got, 1)

	m := w.got[0]
	assert.Equal(t, []byte("BTC-USD"), m.Key)
	assert.Equal(t, []byte{1, 2, 3}, m.Value)
	require.Len(t, m.Headers, 2)
	assert.Equal(t, "event-id", m.Headers[0].Key)
	assert.Equal(t, "kind", m.Headers[1].Key)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducerPropagatesError(t *testing.T) {
	boom := errors.New("leader not available")
	p := &Producer{writer: &fakeWriter{err: boom}}
	assert.ErrorIs(t, p.Publish(context.Background(), Message{}), boom)
}

func TestSaramaPublisher(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	sp := mocks.NewSyncProducer(t, cfg)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != "payload" {
			return errors.Newf("unexpected value %q", val)
		}
		return nil
	})
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewSaramaPublisherFromProducer(sp, "events")
	msg := Message{Key: []byte("k"), Value: []byte("payload"), Headers: map[string]string{"kind": "Cancel"}}

	require.NoError(t, p.Publish(context.Background(), msg))
	assert.ErrorIs(t, p.Publish(context.Background(), msg), sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestSaramaPublisherHonoursCancelledContext(t *testing.T) {
	sp := mocks.NewSyncProducer(t, mocks.NewTestConfig())
	p := NewSaramaPublisherFromProducer(sp, "events")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Publish(ctx, Message{}), context.Canceled)
	require.NoError(t, p.Close())
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{Topic: "t"})
	assert.Error(t, err)

	_, err = New(Config{Brokers: []string{"localhost:9092"}, Topic: "t", Driver: "zmq"})
	assert.Error(t, err)

	p, err := New(Config{Brokers: []string{"localhost:9092"}, Topic: "t"})
	require.NoError(t, err)
	assert.IsType(t, &Producer{}, p)
	require.NoError(t, p.Close())
}
