package orderbook

import (
	"testing"

	"pgregory.net/rapid"

	"matchbook/domain/types"
)

func level(price int64) *PriceLevel {
	return newPriceLevel(types.PriceFromInt(price), nil)
}

func TestRBTreeInsertFindDelete(t *testing.T) {
	tree := NewRBTree(Ascending)
	pl1 := level(100)
	tree.Insert(pl1)
	if pl2 := tree.Find(types.PriceFromInt(100)); pl2 != pl1 {
		t.Error("Find did not return same PriceLevel")
	}

	tree.Insert(level(200))
	if !tree.First().Price().Equal(types.PriceFromInt(100)) {
		t.Error("expected first=100")
	}

	if !tree.Delete(types.PriceFromInt(100)) {
		t.Error("Delete failed")
	}
	if tree.Find(types.PriceFromInt(100)) != nil {
		t.Error("expected level 100 to be gone")
	}
	if tree.Size() != 1 {
		t.Errorf("expected size 1, got %d", tree.Size())
	}
}

func TestRBTreeDescendingFirstIsHighest(t *testing.T) {
	tree := NewRBTree(Descending)
	for _, p := range []int64{5, 9, 1, 7} {
		tree.Insert(level(p))
	}
	if !tree.First().Price().Equal(types.PriceFromInt(9)) {
		t.Errorf("expected first=9, got %s", tree.First().Price())
	}

	var walked []string
	tree.ForEach(func(l *PriceLevel) bool {
		walked = append(walked, l.Price().String())
		return true
	})
	want := []string{"9", "7", "5", "1"}
	for i := range want {
		if walked[i] != want[i] {
			t.Fatalf("walk order %v, want %v", walked, want)
		}
	}
}

func TestRBTreeDecimalKeysCompareByValue(t *testing.T) {
	tree := NewRBTree(Ascending)
	tree.Insert(newPriceLevel(types.MustPrice("10.50"), nil))
	if tree.Find(types.MustPrice("10.5")) == nil {
		t.Error("10.5 and 10.50 must address the same level")
	}
}

// --- Edge Cases ---

func TestDeleteNonExistentLevel(t *testing.T) {
	tree := NewRBTree(Ascending)
	if tree.Delete(types.PriceFromInt(123)) {
		t.Error("expected false when deleting non-existent level")
	}
}

func TestEmptyTreeFirst(t *testing.T) {
	tree := NewRBTree(Ascending)
	if tree.First() != nil {
		t.Error("expected nil first on empty tree")
	}
}

func TestRBTreeStaysOrderedUnderChurn(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := NewRBTree(Ascending)
		present := map[int64]bool{}
		ops := rapid.SliceOfN(rapid.Int64Range(1, 64), 1, 200).Draw(t, "ops")
		for _, p := range ops {
			if present[p] {
				if !tree.Delete(types.PriceFromInt(p)) {
					t.Fatalf("delete %d failed", p)
				}
				delete(present, p)
			} else {
				tree.Insert(level(p))
				present[p] = true
			}
		}
		if tree.Size() != len(present) {
			t.Fatalf("size %d, want %d", tree.Size(), len(present))
		}
		var prev *types.Price
		count := 0
		tree.ForEach(func(l *PriceLevel) bool {
			p := l.Price()
			if prev != nil && !prev.LessThan(p) {
				t.Fatalf("walk out of order: %s then %s", prev, p)
			}
			prev = &p
			count++
			return true
		})
		if count != len(present) {
			t.Fatalf("walked %d levels, want %d", count, len(present))
		}
	})
}
