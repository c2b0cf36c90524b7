package filecabinet

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/cqkv/filecabinet/fio"
	"github.com/cqkv/filecabinet/keydir"
	"github.com/cqkv/filecabinet/model"
	"go.uber.org/zap"
)

// FileService stores records as fixed-size slots in one flat file.
// Removed records stay on disk as tombstones until Purge.
type FileService struct {
	mu sync.RWMutex

	dataFile *model.DataFile
	seqFile  *model.SeqFile
	locker   fio.FileLocker // nil when locking is disabled
	keydir   keydir.Keydir  // id -> slot index of live records
	deleted  int64          // tombstoned slots
	hwm      int            // largest id ever handed out
	closed   bool

	options options
}

// Open opens or creates the data file at path and rebuilds the keydir with
// one scan over all slots.
func Open(path string, opts ...Option) (*FileService, error) {
	o := newOptions(opts)

	var locker fio.FileLocker
	if o.lockFile {
		fl := fio.NewFlock(path)
		locked, err := fl.TryLock()
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, fmt.Errorf("%w: %s", ErrCabinetLocked, path)
		}
		locker = fl
	}

	fs := &FileService{
		locker:  locker,
		keydir:  keydir.NewBTree(o.keydirDegree),
		options: o,
	}

	ioManager, err := o.ioManagerCreator(path)
	if err != nil {
		_ = fs.release()
		return nil, err
	}
	fs.dataFile = model.OpenDataFile(path, ioManager)

	seqManager, err := o.ioManagerCreator(path + model.SeqFileSuffix)
	if err != nil {
		_ = fs.release()
		return nil, err
	}
	fs.seqFile = model.OpenSeqFile(seqManager)

	if err = fs.loadKeydir(); err != nil {
		_ = fs.release()
		return nil, err
	}
	if err = fs.loadHighWater(); err != nil {
		_ = fs.release()
		return nil, err
	}

	o.logger.Info("cabinet opened",
		zap.String("path", path),
		zap.Int("live", fs.keydir.Size()),
		zap.Int64("deleted", fs.deleted),
	)
	return fs, nil
}

func (fs *FileService) Create(args model.RecordArgs) (int, error) {
	if err := fs.options.validator.Validate(args); err != nil {
		return 0, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return 0, ErrClosed
	}

	id, err := fs.nextID()
	if err != nil {
		return 0, err
	}
	data, err := fs.marshal(model.NewRecord(id, args))
	if err != nil {
		return 0, err
	}

	// the mark goes first: a failed append only leaves a gap in the ids
	if err = fs.saveHighWater(id); err != nil {
		return 0, err
	}
	index, err := fs.dataFile.Append(data)
	if err != nil {
		return 0, err
	}
	fs.keydir.Put(id, index)

	if err = fs.syncIfNeeded(); err != nil {
		return 0, err
	}

	fs.options.logger.Debug("record created", zap.Int("id", id), zap.Int64("slot", index))
	return id, nil
}

func (fs *FileService) Edit(id int, args model.RecordArgs) error {
	if id <= 0 {
		return invalidID(id)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}

	index, ok := fs.keydir.Get(id)
	if !ok {
		return notFound(id)
	}
	if err := fs.options.validator.Validate(args); err != nil {
		return err
	}

	data, err := fs.marshal(model.NewRecord(id, args))
	if err != nil {
		return err
	}
	// status and id stay as they are
	if err = fs.dataFile.WriteField(index, model.FirstNameOffset, data[model.FirstNameOffset:]); err != nil {
		return err
	}
	if err = fs.syncIfNeeded(); err != nil {
		return err
	}

	fs.options.logger.Debug("record edited", zap.Int("id", id), zap.Int64("slot", index))
	return nil
}

func (fs *FileService) Remove(id int) error {
	if id <= 0 {
		return invalidID(id)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}

	index, ok := fs.keydir.Get(id)
	if !ok {
		return notFound(id)
	}
	if err := fs.dataFile.WriteField(index, model.StatusOffset, statusBytes(model.StatusDeleted)); err != nil {
		return err
	}
	fs.keydir.Delete(id)
	fs.deleted++

	if err := fs.syncIfNeeded(); err != nil {
		return err
	}

	fs.options.logger.Debug("record removed", zap.Int("id", id), zap.Int64("slot", index))
	return nil
}

func (fs *FileService) GetRecords() ([]model.Record, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return nil, ErrClosed
	}
	return fs.liveRecords()
}

func (fs *FileService) GetStat() (Stat, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return Stat{}, ErrClosed
	}

	count, err := fs.slotCount()
	if err != nil {
		return Stat{}, err
	}
	return Stat{Live: int(count - fs.deleted), Deleted: int(fs.deleted)}, nil
}

func (fs *FileService) FindByFirstName(firstName string) ([]model.Record, error) {
	return fs.findByName(model.FirstNameOffset, firstName)
}

func (fs *FileService) FindByLastName(lastName string) ([]model.Record, error) {
	return fs.findByName(model.LastNameOffset, lastName)
}

func (fs *FileService) FindByDateOfBirth(dateOfBirth model.Date) ([]model.Record, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return nil, ErrClosed
	}
	return fs.scanMatching(model.DateOfBirthOffset, model.DateSize, func(field []byte) (bool, error) {
		date, err := fs.options.codec.UnmarshalDate(field)
		if err != nil {
			return false, err
		}
		return date == dateOfBirth, nil
	})
}

func (fs *FileService) MakeSnapshot() (*Snapshot, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return nil, ErrClosed
	}

	records, err := fs.liveRecords()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return &Snapshot{records: records}, nil
}

// Clear drops every slot and the id high-water mark, leaving an empty
// cabinet that still holds the file lock.
func (fs *FileService) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}

	if err := fs.dataFile.Truncate(0); err != nil {
		return err
	}
	if err := fs.seqFile.Reset(); err != nil {
		return err
	}
	fs.keydir.Clear()
	fs.deleted = 0
	fs.hwm = 0

	if err := fs.dataFile.Sync(); err != nil {
		return err
	}
	fs.options.logger.Info("cabinet cleared", zap.String("path", fs.dataFile.Path))
	return nil
}

// Close syncs and releases the data file. Calling it twice is a no-op.
func (fs *FileService) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil
	}
	fs.closed = true

	var errs []error
	if err := fs.dataFile.Sync(); err != nil {
		errs = append(errs, err)
	}
	if err := fs.seqFile.Sync(); err != nil {
		errs = append(errs, err)
	}
	if err := fs.release(); err != nil {
		errs = append(errs, err)
	}
	fs.keydir.Clear()

	fs.options.logger.Info("cabinet closed", zap.String("path", fs.dataFile.Path))
	return errors.Join(errs...)
}

// release closes whatever Open managed to acquire.
func (fs *FileService) release() error {
	var errs []error
	if fs.dataFile != nil {
		errs = append(errs, fs.dataFile.Close())
	}
	if fs.seqFile != nil {
		errs = append(errs, fs.seqFile.Close())
	}
	if fs.locker != nil {
		errs = append(errs, fs.locker.Unlock())
	}
	return errors.Join(errs...)
}

func (fs *FileService) loadKeydir() error {
	count, err := fs.slotCount()
	if err != nil {
		return err
	}

	for index := int64(0); index < count; index++ {
		data, err := fs.dataFile.ReadField(index, model.StatusOffset, model.StatusSize+model.IDSize)
		if err != nil {
			return err
		}
		status, err := fs.options.codec.UnmarshalStatus(data[:model.StatusSize])
		if err != nil {
			return fromCodec(err)
		}
		id, err := fs.options.codec.UnmarshalID(data[model.StatusSize:])
		if err != nil {
			return fromCodec(err)
		}
		if id > fs.hwm {
			fs.hwm = id
		}

		if status == model.StatusDeleted {
			fs.deleted++
			continue
		}
		if id <= 0 {
			return fmt.Errorf("%w: live slot %d has id %d", ErrCorruptData, index, id)
		}

		// a purge interrupted between copy and tombstone leaves the same id
		// live twice; the earlier slot holds the finished copy
		if _, ok := fs.keydir.Get(id); ok {
			if err = fs.dataFile.WriteField(index, model.StatusOffset, statusBytes(model.StatusDeleted)); err != nil {
				return err
			}
			fs.deleted++
			fs.options.logger.Warn("duplicate live id tombstoned", zap.Int("id", id), zap.Int64("slot", index))
			continue
		}
		fs.keydir.Put(id, index)
	}
	return nil
}

func (fs *FileService) loadHighWater() error {
	mark, err := fs.seqFile.Load()
	if errors.Is(err, model.ErrInvalidSeqFile) {
		return fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	if err != nil {
		return err
	}
	if mark > fs.hwm {
		fs.hwm = mark
	}
	return nil
}

func (fs *FileService) saveHighWater(id int) error {
	if id <= fs.hwm {
		return nil
	}
	if err := fs.seqFile.Store(id); err != nil {
		return err
	}
	fs.hwm = id
	return nil
}

// nextID never hands out an id seen before in this file, purged ones included.
func (fs *FileService) nextID() (int, error) {
	count, err := fs.slotCount()
	if err != nil {
		return 0, err
	}
	next := int(count)
	if fs.hwm > next {
		next = fs.hwm
	}
	next++
	if next > math.MaxInt32 {
		return 0, fmt.Errorf("%w: id space is exhausted", ErrInvalidArgument)
	}
	return next, nil
}

func (fs *FileService) slotCount() (int64, error) {
	count, err := fs.dataFile.SlotCount()
	if errors.Is(err, model.ErrPartialSlot) {
		return 0, fmt.Errorf("%w: %w", ErrCorruptData, err)
	}
	return count, err
}

func (fs *FileService) syncIfNeeded() error {
	if !fs.options.syncWrites {
		return nil
	}
	return fs.dataFile.Sync()
}

func (fs *FileService) marshal(record model.Record) ([]byte, error) {
	data, err := fs.options.codec.MarshalSlot(&model.Slot{Status: model.StatusLive, Record: record})
	if err != nil {
		return nil, fromCodec(err)
	}
	return data, nil
}

// isLive reads only the status field of the slot at index.
func (fs *FileService) isLive(index int64) (bool, error) {
	data, err := fs.dataFile.ReadField(index, model.StatusOffset, model.StatusSize)
	if err != nil {
		return false, err
	}
	status, err := fs.options.codec.UnmarshalStatus(data)
	if err != nil {
		return false, fromCodec(err)
	}
	return status == model.StatusLive, nil
}

func (fs *FileService) readRecord(index int64) (model.Record, error) {
	data, err := fs.dataFile.ReadSlot(index)
	if err != nil {
		return model.Record{}, err
	}
	var slot model.Slot
	if err = fs.options.codec.UnmarshalSlot(data, &slot); err != nil {
		return model.Record{}, fromCodec(err)
	}
	return slot.Record, nil
}

// liveRecords decodes every live slot in file order.
func (fs *FileService) liveRecords() ([]model.Record, error) {
	return fs.scanMatching(model.StatusOffset, 0, func([]byte) (bool, error) {
		return true, nil
	})
}

func (fs *FileService) findByName(offset int, name string) ([]model.Record, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return nil, ErrClosed
	}

	key := model.FoldName(name)
	return fs.scanMatching(offset, model.NameSize, func(field []byte) (bool, error) {
		stored, err := fs.options.codec.UnmarshalName(field)
		if err != nil {
			return false, err
		}
		return model.FoldName(stored) == key, nil
	})
}

// scanMatching walks the file slot by slot: status first, then the size
// bytes at offset, and decodes the whole slot only when match accepts them.
func (fs *FileService) scanMatching(offset, size int, match func(field []byte) (bool, error)) ([]model.Record, error) {
	count, err := fs.slotCount()
	if err != nil {
		return nil, err
	}

	var records []model.Record
	for index := int64(0); index < count; index++ {
		live, err := fs.isLive(index)
		if err != nil {
			return nil, err
		}
		if !live {
			continue
		}

		var field []byte
		if size > 0 {
			if field, err = fs.dataFile.ReadField(index, offset, size); err != nil {
				return nil, err
			}
		}
		ok, err := match(field)
		if err != nil {
			return nil, fromCodec(err)
		}
		if !ok {
			continue
		}

		record, err := fs.readRecord(index)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func statusBytes(status model.Status) []byte {
	buf := make([]byte, model.StatusSize)
	binary.LittleEndian.PutUint16(buf, uint16(status))
	return buf
}
