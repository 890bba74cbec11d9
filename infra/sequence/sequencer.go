package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing ids. The outbox uses it to key
// events so that key order is publication order.
type Sequencer struct {
	last atomic.Uint64
}

// New starts after last: the first Next returns last+1. Pass the highest
// id already persisted when reopening a store.
func New(last uint64) *Sequencer {
	s := &Sequencer{}
	s.last.Store(last)
	return s
}

func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current is the last id handed out.
func (s *Sequencer) Current() uint64 {
	return s.last.Load()
}
