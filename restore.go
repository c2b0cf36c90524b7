package filecabinet

import (
	"go.uber.org/zap"
)

// pendingWrite is a record that passed validation and is encoded, waiting to
// be written.
type pendingWrite struct {
	id   int
	data []byte
}

// Restore validates every record of the snapshot first, then writes the
// accepted ones: a live id is overwritten in its slot, anything else is
// appended. Rejected records are reported as id -> reason and skipped.
func (fs *FileService) Restore(snapshot *Snapshot) (map[int]string, error) {
	if snapshot == nil {
		return nil, ErrInvalidArgument
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil, ErrClosed
	}

	rejected := make(map[int]string)
	pendingWrites := make([]pendingWrite, 0, snapshot.Len())
	for _, record := range snapshot.Records() {
		if record.ID <= 0 {
			rejected[record.ID] = invalidID(record.ID).Error()
			continue
		}
		if err := fs.options.validator.Validate(record.Args()); err != nil {
			rejected[record.ID] = err.Error()
			continue
		}
		data, err := fs.marshal(record)
		if err != nil {
			rejected[record.ID] = err.Error()
			continue
		}
		pendingWrites = append(pendingWrites, pendingWrite{id: record.ID, data: data})
	}

	highest := 0
	for _, pw := range pendingWrites {
		if pw.id > highest {
			highest = pw.id
		}
	}
	if err := fs.saveHighWater(highest); err != nil {
		return nil, err
	}

	var appended, overwritten int
	for _, pw := range pendingWrites {
		if index, ok := fs.keydir.Get(pw.id); ok {
			if err := fs.dataFile.WriteSlot(index, pw.data); err != nil {
				return nil, err
			}
			overwritten++
		} else {
			index, err := fs.dataFile.Append(pw.data)
			if err != nil {
				return nil, err
			}
			fs.keydir.Put(pw.id, index)
			appended++
		}
	}

	if err := fs.dataFile.Sync(); err != nil {
		return nil, err
	}

	for id, reason := range rejected {
		fs.options.logger.Warn("record rejected on restore", zap.Int("id", id), zap.String("reason", reason))
	}
	fs.options.logger.Info("snapshot restored",
		zap.Int("appended", appended),
		zap.Int("overwritten", overwritten),
		zap.Int("rejected", len(rejected)),
	)
	return rejected, nil
}
