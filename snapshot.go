package filecabinet

import (
	"github.com/cqkv/filecabinet/model"
)

// Snapshot is an immutable copy of a record set.
type Snapshot struct {
	records []model.Record
}

func NewSnapshot(records []model.Record) *Snapshot {
	owned := make([]model.Record, len(records))
	copy(owned, records)
	return &Snapshot{records: owned}
}

// Records returns a fresh copy on every call.
func (s *Snapshot) Records() []model.Record {
	records := make([]model.Record, len(s.records))
	copy(records, s.records)
	return records
}

func (s *Snapshot) Len() int {
	return len(s.records)
}
