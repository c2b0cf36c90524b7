package filecabinet

import (
	"github.com/cqkv/filecabinet/model"
	"go.uber.org/zap"
	"sync"
)

// MemoryService keeps records in insertion order with three secondary
// indexes. Index entries point at the same *model.Record as the list, so an
// entry is retracted by identity, never by value.
type MemoryService struct {
	mu sync.RWMutex

	seq     int
	list    []*model.Record
	byID    map[int]*model.Record
	byFirst map[string][]*model.Record
	byLast  map[string][]*model.Record
	byDate  map[model.Date][]*model.Record

	options options
}

func NewMemoryService(opts ...Option) *MemoryService {
	return &MemoryService{
		byID:    make(map[int]*model.Record),
		byFirst: make(map[string][]*model.Record),
		byLast:  make(map[string][]*model.Record),
		byDate:  make(map[model.Date][]*model.Record),
		options: newOptions(opts),
	}
}

func (ms *MemoryService) Create(args model.RecordArgs) (int, error) {
	if err := ms.options.validator.Validate(args); err != nil {
		return 0, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.seq++
	record := model.NewRecord(ms.seq, args)
	ms.insert(&record)

	ms.options.logger.Debug("record created", zap.Int("id", record.ID))
	return record.ID, nil
}

func (ms *MemoryService) Edit(id int, args model.RecordArgs) error {
	if id <= 0 {
		return invalidID(id)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	record, ok := ms.byID[id]
	if !ok {
		return notFound(id)
	}
	if err := ms.options.validator.Validate(args); err != nil {
		return err
	}

	ms.unindex(record)
	*record = model.NewRecord(id, args)
	ms.index(record)

	ms.options.logger.Debug("record edited", zap.Int("id", id))
	return nil
}

func (ms *MemoryService) Remove(id int) error {
	if id <= 0 {
		return invalidID(id)
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	record, ok := ms.byID[id]
	if !ok {
		return notFound(id)
	}

	ms.unindex(record)
	delete(ms.byID, id)
	for i, r := range ms.list {
		if r == record {
			ms.list = append(ms.list[:i], ms.list[i+1:]...)
			break
		}
	}

	ms.options.logger.Debug("record removed", zap.Int("id", id))
	return nil
}

// Purge has nothing to reclaim: Remove already drops records physically.
func (ms *MemoryService) Purge() (PurgeResult, error) {
	return PurgeResult{}, ErrNotSupported
}

func (ms *MemoryService) GetRecords() ([]model.Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return copyRecords(ms.list), nil
}

func (ms *MemoryService) GetStat() (Stat, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return Stat{Live: len(ms.list)}, nil
}

func (ms *MemoryService) FindByFirstName(firstName string) ([]model.Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return copyRecords(ms.byFirst[model.FoldName(firstName)]), nil
}

func (ms *MemoryService) FindByLastName(lastName string) ([]model.Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return copyRecords(ms.byLast[model.FoldName(lastName)]), nil
}

func (ms *MemoryService) FindByDateOfBirth(dateOfBirth model.Date) ([]model.Record, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return copyRecords(ms.byDate[dateOfBirth]), nil
}

func (ms *MemoryService) MakeSnapshot() (*Snapshot, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if len(ms.list) == 0 {
		return nil, ErrNoRecords
	}
	return &Snapshot{records: copyRecords(ms.list)}, nil
}

func (ms *MemoryService) Restore(snapshot *Snapshot) (map[int]string, error) {
	if snapshot == nil {
		return nil, ErrInvalidArgument
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	rejected := make(map[int]string)
	for _, incoming := range snapshot.Records() {
		if incoming.ID <= 0 {
			rejected[incoming.ID] = invalidID(incoming.ID).Error()
			continue
		}
		if err := ms.options.validator.Validate(incoming.Args()); err != nil {
			rejected[incoming.ID] = err.Error()
			continue
		}

		incoming = model.NewRecord(incoming.ID, incoming.Args())

		// the incoming version wins
		if record, ok := ms.byID[incoming.ID]; ok {
			ms.unindex(record)
			*record = incoming
			ms.index(record)
		} else {
			record := incoming
			ms.insert(&record)
		}
		if incoming.ID > ms.seq {
			ms.seq = incoming.ID
		}
	}

	for id, reason := range rejected {
		ms.options.logger.Warn("record rejected on restore", zap.Int("id", id), zap.String("reason", reason))
	}
	return rejected, nil
}

func (ms *MemoryService) Close() error {
	return nil
}

func (ms *MemoryService) insert(record *model.Record) {
	ms.list = append(ms.list, record)
	ms.byID[record.ID] = record
	ms.index(record)
}

func (ms *MemoryService) index(record *model.Record) {
	first, last := model.FoldName(record.FirstName), model.FoldName(record.LastName)
	ms.byFirst[first] = append(ms.byFirst[first], record)
	ms.byLast[last] = append(ms.byLast[last], record)
	ms.byDate[record.DateOfBirth] = append(ms.byDate[record.DateOfBirth], record)
}

func (ms *MemoryService) unindex(record *model.Record) {
	first, last := model.FoldName(record.FirstName), model.FoldName(record.LastName)
	retract(ms.byFirst, first, record)
	retract(ms.byLast, last, record)
	retract(ms.byDate, record.DateOfBirth, record)
}

func retract[K comparable](index map[K][]*model.Record, key K, record *model.Record) {
	bucket := index[key]
	for i, r := range bucket {
		if r == record {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(index, key)
		return
	}
	index[key] = bucket
}

func copyRecords(records []*model.Record) []model.Record {
	if len(records) == 0 {
		return nil
	}
	result := make([]model.Record, len(records))
	for i, r := range records {
		result[i] = *r
	}
	return result
}
