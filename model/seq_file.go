package model

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/cqkv/filecabinet/fio"
	"github.com/cqkv/filecabinet/utils"
)

// SeqFileSize is the id high-water mark (uint64) followed by its CRC-32.
const SeqFileSize = 8 + 4

var ErrInvalidSeqFile = errors.New("invalid id sequence file")

// SeqFile persists the largest id ever handed out for a data file, so ids
// freed by purge are not handed out again.
type SeqFile struct {
	IoManager fio.IOManager
}

func OpenSeqFile(ioManager fio.IOManager) *SeqFile {
	return &SeqFile{IoManager: ioManager}
}

// Load returns the stored mark, or 0 for an empty file.
func (sf *SeqFile) Load() (int, error) {
	size, err := sf.IoManager.Size()
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, nil
	}
	if size != SeqFileSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidSeqFile, size)
	}

	buf := make([]byte, SeqFileSize)
	if _, err = sf.IoManager.ReadAt(buf, 0); err != nil {
		return 0, err
	}
	if !utils.VerifyChecksum(binary.LittleEndian.Uint32(buf[8:]), buf[:8]) {
		return 0, fmt.Errorf("%w: checksum mismatch", ErrInvalidSeqFile)
	}
	mark := binary.LittleEndian.Uint64(buf[:8])
	if mark > math.MaxInt32 {
		return 0, fmt.Errorf("%w: mark %d", ErrInvalidSeqFile, mark)
	}
	return int(mark), nil
}

func (sf *SeqFile) Store(mark int) error {
	buf := make([]byte, SeqFileSize)
	binary.LittleEndian.PutUint64(buf[:8], uint64(mark))
	binary.LittleEndian.PutUint32(buf[8:], utils.Checksum(buf[:8]))
	n, err := sf.IoManager.WriteAt(buf, 0)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return fmt.Errorf("short write of id sequence file: %d bytes", n)
	}
	return nil
}

// Reset forgets the stored mark.
func (sf *SeqFile) Reset() error {
	return sf.IoManager.Truncate(0)
}

func (sf *SeqFile) Sync() error {
	return sf.IoManager.Sync()
}

func (sf *SeqFile) Close() error {
	return sf.IoManager.Close()
}
