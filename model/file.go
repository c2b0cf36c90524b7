package model

import (
	"errors"
	"fmt"
	"io"

	"github.com/cqkv/filecabinet/fio"
)

const (
	DataFileSuffix = ".db"
	SeqFileSuffix  = ".seq"
)

var ErrPartialSlot = errors.New("file length is not a whole number of slots")

// DataFile addresses the underlying file by slot index rather than by byte.
// Every access is positional; there is no shared cursor to restore.
type DataFile struct {
	Path      string
	IoManager fio.IOManager
}

func OpenDataFile(path string, ioManager fio.IOManager) *DataFile {
	return &DataFile{
		Path:      path,
		IoManager: ioManager,
	}
}

// SlotOffset maps a slot index to its byte offset.
func SlotOffset(index int64) int64 {
	return index * SlotSize
}

// SlotCount returns the number of slots, tombstoned ones included.
func (df *DataFile) SlotCount() (int64, error) {
	size, err := df.IoManager.Size()
	if err != nil {
		return 0, err
	}
	if size%SlotSize != 0 {
		return 0, fmt.Errorf("%w: %d bytes", ErrPartialSlot, size)
	}
	return size / SlotSize, nil
}

// ReadSlot returns the raw bytes of the slot at index.
func (df *DataFile) ReadSlot(index int64) ([]byte, error) {
	return df.readNBytes(SlotOffset(index), SlotSize)
}

// ReadField returns size bytes starting at offset inside the slot at index.
func (df *DataFile) ReadField(index int64, offset, size int) ([]byte, error) {
	return df.readNBytes(SlotOffset(index)+int64(offset), size)
}

func (df *DataFile) WriteSlot(index int64, data []byte) error {
	if len(data) != SlotSize {
		return fmt.Errorf("slot image is %d bytes, want %d", len(data), SlotSize)
	}
	return df.writeAt(data, SlotOffset(index))
}

// WriteField overwrites bytes inside one slot, starting at offset.
func (df *DataFile) WriteField(index int64, offset int, data []byte) error {
	if offset+len(data) > SlotSize {
		return fmt.Errorf("field [%d,%d) overflows the slot", offset, offset+len(data))
	}
	return df.writeAt(data, SlotOffset(index)+int64(offset))
}

// Append writes a slot after the last one and returns its index.
func (df *DataFile) Append(data []byte) (int64, error) {
	index, err := df.SlotCount()
	if err != nil {
		return 0, err
	}
	if err = df.WriteSlot(index, data); err != nil {
		return 0, err
	}
	return index, nil
}

// Truncate cuts the file to exactly slots slots.
func (df *DataFile) Truncate(slots int64) error {
	return df.IoManager.Truncate(SlotOffset(slots))
}

func (df *DataFile) Sync() error {
	return df.IoManager.Sync()
}

func (df *DataFile) Close() error {
	return df.IoManager.Close()
}

func (df *DataFile) writeAt(data []byte, offset int64) error {
	n, err := df.IoManager.WriteAt(data, offset)
	if err != nil {
		return err
	}
	if n != len(data) {
		return io.ErrShortWrite
	}
	return nil
}

func (df *DataFile) readNBytes(offset int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := df.IoManager.ReadAt(buf, offset)
	if read == n {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}
