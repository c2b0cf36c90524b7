package keydir

// Keydir maps a live record id to the index of the slot holding it.
// you can use some other data structure once you implement this interface
type Keydir interface {
	Put(id int, slot int64) bool
	Get(id int) (int64, bool)
	Delete(id int) bool
	Size() int
	Clear()
}
