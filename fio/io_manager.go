package fio

// IOManager is the positional I/O surface the data file is built on.
// It can be custom in options.
type IOManager interface {
	ReadAt([]byte, int64) (int, error)
	WriteAt([]byte, int64) (int, error)
	Size() (int64, error)
	Truncate(int64) error
	Sync() error
	Close() error
}
