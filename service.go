package filecabinet

import (
	"github.com/cqkv/filecabinet/model"
)

var (
	_ Service = (*MemoryService)(nil)
	_ Service = (*FileService)(nil)
	_ Service = (*InstrumentedService)(nil)
)

// Stat counts live and tombstoned records.
type Stat struct {
	Live    int
	Deleted int
}

// PurgeResult reports how many of Total slots were reclaimed.
type PurgeResult struct {
	Deleted int
	Total   int
}

// Service is the record storage contract shared by both backings.
// Slices returned by it are copies owned by the caller.
type Service interface {
	Create(args model.RecordArgs) (int, error)
	Edit(id int, args model.RecordArgs) error
	Remove(id int) error
	Purge() (PurgeResult, error)

	GetRecords() ([]model.Record, error)
	GetStat() (Stat, error)

	FindByFirstName(firstName string) ([]model.Record, error)
	FindByLastName(lastName string) ([]model.Record, error)
	FindByDateOfBirth(dateOfBirth model.Date) ([]model.Record, error)

	MakeSnapshot() (*Snapshot, error)
	// Restore merges the snapshot and returns the rejected records as id -> reason.
	Restore(snapshot *Snapshot) (map[int]string, error)

	Close() error
}
