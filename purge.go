package filecabinet

import (
	"github.com/cqkv/filecabinet/model"
	"go.uber.org/zap"
)

// Purge compacts the data file in place. Live slots keep their relative
// order; every live slot found after a hole moves into the oldest hole and
// leaves a new hole behind. The file is then cut to the live slots.
func (fs *FileService) Purge() (PurgeResult, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return PurgeResult{}, ErrClosed
	}

	count, err := fs.slotCount()
	if err != nil {
		return PurgeResult{}, err
	}
	result := PurgeResult{Total: int(count)}

	if fs.deleted == 0 {
		return result, nil
	}

	// indexes of free slots, oldest first
	free := make([]int64, 0, fs.deleted)
	var live int64
	for index := int64(0); index < count; index++ {
		data, err := fs.dataFile.ReadSlot(index)
		if err != nil {
			return PurgeResult{}, err
		}
		status, err := fs.options.codec.UnmarshalStatus(data[model.StatusOffset:model.IDOffset])
		if err != nil {
			return PurgeResult{}, fromCodec(err)
		}

		if status == model.StatusDeleted {
			free = append(free, index)
			result.Deleted++
			continue
		}

		live++
		if len(free) == 0 {
			continue
		}

		id, err := fs.options.codec.UnmarshalID(data[model.IDOffset:model.FirstNameOffset])
		if err != nil {
			return PurgeResult{}, fromCodec(err)
		}

		target := free[0]
		free = free[1:]

		// copy first, then tombstone the source
		if err = fs.dataFile.WriteSlot(target, data); err != nil {
			return PurgeResult{}, err
		}
		if err = fs.dataFile.WriteField(index, model.StatusOffset, statusBytes(model.StatusDeleted)); err != nil {
			return PurgeResult{}, err
		}
		free = append(free, index)
		fs.keydir.Put(id, target)
	}

	if err = fs.dataFile.Truncate(live); err != nil {
		return PurgeResult{}, err
	}
	fs.deleted = 0

	if err = fs.dataFile.Sync(); err != nil {
		return PurgeResult{}, err
	}

	fs.options.logger.Info("data file purged",
		zap.String("path", fs.dataFile.Path),
		zap.Int("deleted", result.Deleted),
		zap.Int("total", result.Total),
	)
	return result, nil
}
