package matching

import (
	"slices"
	"sort"

	"matchbook/domain/types"
)

// gtdIndex groups good-till-date orders by expiry second. Expiries are
// kept sorted so the earliest is always expiries[0]; within a bucket ids
// keep their insertion order, which keeps expiry cancels deterministic.
type gtdIndex struct {
	buckets  map[int64][]types.OrderID
	expiries []int64
}

func newGTDIndex() *gtdIndex {
	return &gtdIndex{buckets: make(map[int64][]types.OrderID)}
}

func (g *gtdIndex) add(at int64, id types.OrderID) {
	bucket, ok := g.buckets[at]
	if !ok {
		i := sort.Search(len(g.expiries), func(i int) bool { return g.expiries[i] >= at })
		g.expiries = slices.Insert(g.expiries, i, at)
	}
	g.buckets[at] = append(bucket, id)
}

func (g *gtdIndex) remove(at int64, id types.OrderID) {
	bucket, ok := g.buckets[at]
	if !ok {
		return
	}
	i := slices.Index(bucket, id)
	if i < 0 {
		return
	}
	bucket = slices.Delete(bucket, i, i+1)
	if len(bucket) > 0 {
		g.buckets[at] = bucket
		return
	}
	delete(g.buckets, at)
	if j, found := slices.BinarySearch(g.expiries, at); found {
		g.expiries = slices.Delete(g.expiries, j, j+1)
	}
}

// earliest is the next expiry second, if any order is indexed.
func (g *gtdIndex) earliest() (int64, bool) {
	if len(g.expiries) == 0 {
		return 0, false
	}
	return g.expiries[0], true
}

// popExpired removes and returns every id whose expiry is at or before
// now, earliest expiry first.
func (g *gtdIndex) popExpired(now int64) []types.OrderID {
	n := sort.Search(len(g.expiries), func(i int) bool { return g.expiries[i] > now })
	if n == 0 {
		return nil
	}
	var out []types.OrderID
	for _, at := range g.expiries[:n] {
		out = append(out, g.buckets[at]...)
		delete(g.buckets, at)
	}
	g.expiries = slices.Delete(g.expiries, 0, n)
	return out
}

func (g *gtdIndex) len() int {
	n := 0
	for _, b := range g.buckets {
		n += len(b)
	}
	return n
}
