package outbox

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func open(t *testing.T, dir string) *Outbox {
	t.Helper()
	o, err := Open(dir)
	require.NoError(t, err)
	return o
}

func TestBatchCommitAndScanInOrder(t *testing.T) {
	o := open(t, t.TempDir())
	defer o.Close()

	b := o.NewBatch()
	for i := 0; i < 3; i++ {
		_, err := b.Add("BTC-USD", uint8(4+i), []byte{byte(i)})
		require.NoError(t, err)
	}
	require.Equal(t, 3, b.Len())
	require.NoError(t, b.Commit())

	var got []Record
	require.NoError(t, o.Scan(func(r Record) error {
		got = append(got, r)
		return nil
	}, StateNew))

	require.Len(t, got, 3)
	for i, r := range got {
		assert.Equal(t, uint64(i+1), r.Seq)
		assert.Equal(t, "BTC-USD", r.Instrument)
		assert.Equal(t, uint8(4+i), r.Kind)
		assert.Equal(t, []byte{byte(i)}, r.Payload)
		assert.NotEqual(t, uuid.Nil, r.EventID)
	}
}

func TestDiscardedBatchLeavesNothing(t *testing.T) {
	o := open(t, t.TempDir())
	defer o.Close()

	b := o.NewBatch()
	_, err := b.Add("X", 1, nil)
	require.NoError(t, err)
	require.NoError(t, b.Discard())

	n, err := o.Pending()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStateTransitions(t *testing.T) {
	o := open(t, t.TempDir())
	defer o.Close()

	b := o.NewBatch()
	rec, err := b.Add("X", 5, []byte("payload"))
	require.NoError(t, err)
	require.NoError(t, b.Commit())

	require.NoError(t, o.MarkSent(rec))
	got, err := o.Get(rec.Seq)
	require.NoError(t, err)
	assert.Equal(t, StateSent, got.State)
	assert.NotZero(t, got.LastAttempt)
	assert.Equal(t, rec.EventID, got.EventID)

	require.NoError(t, o.MarkFailed(got))
	got, err = o.Get(rec.Seq)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)
	assert.Equal(t, uint32(1), got.Retries)

	var failed int
	require.NoError(t, o.Scan(func(Record) error { failed++; return nil }, StateNew, StateFailed))
	assert.Equal(t, 1, failed)

	require.NoError(t, o.Ack(rec.Seq))
	_, err = o.Get(rec.Seq)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReopenResumesSequence(t *testing.T) {
	dir := t.TempDir()
	o := open(t, dir)
	b := o.NewBatch()
	for i := 0; i < 4; i++ {
		_, err := b.Add("X", 1, nil)
		require.NoError(t, err)
	}
	require.NoError(t, b.Commit())
	require.NoError(t, o.Close())

	o = open(t, dir)
	defer o.Close()
	assert.Equal(t, uint64(4), o.LastSeq())

	b = o.NewBatch()
	rec, err := b.Add("X", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), rec.Seq)
	require.NoError(t, b.Commit())
}

func TestScanStopsOnError(t *testing.T) {
	o := open(t, t.TempDir())
	defer o.Close()
	b := o.NewBatch()
	for i := 0; i < 3; i++ {
		_, err := b.Add("X", 1, nil)
		require.NoError(t, err)
	}
	require.NoError(t, b.Commit())

	stop := errors.New("stop")
	visited := 0
	err := o.Scan(func(Record) error {
		visited++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, visited)
}

func TestRecordSkipsUnknownFields(t *testing.T) {
	rec := Record{EventID: uuid.New(), Instrument: "ETH-USD", Kind: 7, Payload: []byte{1, 2}, Retries: 3, LastAttempt: -5}
	b := rec.marshal()
	b = protowire.AppendTag(b, 42, protowire.BytesType)
	b = protowire.AppendString(b, "future field")

	var got Record
	require.NoError(t, got.unmarshal(b))
	assert.Equal(t, rec, got)
}

func TestRecordRejectsTruncation(t *testing.T) {
	rec := Record{EventID: uuid.New(), Payload: []byte("abcdef")}
	b := rec.marshal()

	var got Record
	assert.Error(t, got.unmarshal(b[:len(b)-2]))
}
