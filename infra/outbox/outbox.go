// Package outbox is a durable queue of engine events awaiting
// publication. Events of one command are committed in a single synced
// pebble batch; the broadcaster drains them in key order.
package outbox

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"matchbook/infra/sequence"
)

var (
	keyPrefix = []byte("event/")
	keyUpper  = []byte("event/~")

	ErrNotFound = errors.New("outbox: record not found")
)

type Outbox struct {
	db  *pebble.DB
	seq *sequence.Sequencer
	now func() time.Time
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open outbox at %s", dir)
	}
	last, err := lastSeq(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Outbox{db: db, seq: sequence.New(last), now: time.Now}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// LastSeq is the highest sequence handed out so far.
func (o *Outbox) LastSeq() uint64 { return o.seq.Current() }

func lastSeq(db *pebble.DB) (uint64, error) {
	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: keyUpper})
	if err != nil {
		return 0, errors.Wrap(err, "outbox: iterator")
	}
	defer iter.Close()
	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}

// Batch collects the events of one command.
type Batch struct {
	o       *Outbox
	b       *pebble.Batch
	records []Record
}

func (o *Outbox) NewBatch() *Batch {
	return &Batch{o: o, b: o.db.NewBatch()}
}

// Add stages a NEW record and returns it with its sequence and event id.
func (b *Batch) Add(instrument string, kind uint8, payload []byte) (Record, error) {
	rec := Record{
		Seq:        b.o.seq.Next(),
		EventID:    uuid.New(),
		Instrument: instrument,
		Kind:       kind,
		Payload:    payload,
		State:      StateNew,
	}
	if err := b.b.Set(keyFor(rec.Seq), rec.marshal(), nil); err != nil {
		return Record{}, errors.Wrap(err, "outbox: stage record")
	}
	b.records = append(b.records, rec)
	return rec, nil
}

func (b *Batch) Len() int { return len(b.records) }

func (b *Batch) Records() []Record { return b.records }

// Commit makes the staged records durable. An empty batch is a no-op.
func (b *Batch) Commit() error {
	defer b.b.Close()
	if len(b.records) == 0 {
		return nil
	}
	return errors.Wrap(b.b.Commit(pebble.Sync), "outbox: commit")
}

// Discard drops the staged records.
func (b *Batch) Discard() error {
	b.records = nil
	return b.b.Close()
}

func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, errors.Wrapf(err, "outbox: get %d", seq)
	}
	defer closer.Close()

	rec := Record{Seq: seq}
	if err := rec.unmarshal(val); err != nil {
		return Record{}, errors.Wrapf(err, "outbox: decode %d", seq)
	}
	return rec, nil
}

func (o *Outbox) MarkSent(rec Record) error {
	rec.State = StateSent
	rec.LastAttempt = o.now().UnixNano()
	return o.put(rec)
}

// MarkFailed records a failed publish and bumps the retry count.
func (o *Outbox) MarkFailed(rec Record) error {
	rec.State = StateFailed
	rec.Retries++
	rec.LastAttempt = o.now().UnixNano()
	return o.put(rec)
}

// Ack removes a published record.
func (o *Outbox) Ack(seq uint64) error {
	return errors.Wrapf(o.db.Delete(keyFor(seq), pebble.Sync), "outbox: ack %d", seq)
}

func (o *Outbox) put(rec Record) error {
	return errors.Wrapf(o.db.Set(keyFor(rec.Seq), rec.marshal(), pebble.Sync), "outbox: update %d", rec.Seq)
}

// Scan visits records whose state is one of states, in sequence order,
// until fn returns an error. No states means every record.
func (o *Outbox) Scan(fn func(Record) error, states ...State) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: keyUpper})
	if err != nil {
		return errors.Wrap(err, "outbox: iterator")
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec := Record{Seq: seq}
		if err := rec.unmarshal(iter.Value()); err != nil {
			return errors.Wrapf(err, "outbox: decode %d", seq)
		}
		if !matches(rec.State, states) {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Pending counts records not yet acked.
func (o *Outbox) Pending() (int, error) {
	n := 0
	err := o.Scan(func(Record) error { n++; return nil })
	return n, err
}

func matches(s State, states []State) bool {
	if len(states) == 0 {
		return true
	}
	for _, want := range states {
		if s == want {
			return true
		}
	}
	return false
}

// keyFor zero-pads the sequence so byte order is sequence order.
func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("event/%020d", seq))
}

func parseKey(k []byte) (uint64, error) {
	seq, err := strconv.ParseUint(string(bytes.TrimPrefix(k, keyPrefix)), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(errCorruptRecord, "key %q", k)
	}
	return seq, nil
}
