package keydir

import (
	"github.com/google/btree"
)

var _ Keydir = (*BTree)(nil)

const defaultDegree = 32

// BTree implement the keydir.
// It does no locking of its own; the owning service serializes access.
type BTree struct {
	tree *btree.BTree
}

// Item implement the btree.Item interface
type Item struct {
	id   int
	slot int64
}

func (i *Item) Less(than btree.Item) bool {
	return i.id < than.(*Item).id
}

func NewBTree(degree int) *BTree {
	if degree <= 0 {
		degree = defaultDegree
	}
	return &BTree{
		tree: btree.New(degree),
	}
}

// Put reports whether id was newly inserted.
func (bt *BTree) Put(id int, slot int64) bool {
	old := bt.tree.ReplaceOrInsert(&Item{id: id, slot: slot})
	return old == nil
}

func (bt *BTree) Get(id int) (int64, bool) {
	btItem := bt.tree.Get(&Item{id: id})
	if btItem == nil {
		return 0, false
	}
	return btItem.(*Item).slot, true
}

func (bt *BTree) Delete(id int) bool {
	return bt.tree.Delete(&Item{id: id}) != nil
}

func (bt *BTree) Size() int {
	return bt.tree.Len()
}

func (bt *BTree) Clear() {
	bt.tree.Clear(false)
}
