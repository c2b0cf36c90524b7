package filecabinet

import (
	"time"

	"github.com/cqkv/filecabinet/metrics"
	"github.com/cqkv/filecabinet/model"
)

// InstrumentedService records operation counts, latencies and record gauges
// for any Service.
type InstrumentedService struct {
	next    Service
	metrics *metrics.Metrics
}

func NewInstrumentedService(next Service, m *metrics.Metrics) *InstrumentedService {
	s := &InstrumentedService{next: next, metrics: m}
	s.refreshRecords()
	return s
}

func (s *InstrumentedService) Create(args model.RecordArgs) (int, error) {
	start := time.Now()
	id, err := s.next.Create(args)
	s.observe("create", start, err)
	return id, err
}

func (s *InstrumentedService) Edit(id int, args model.RecordArgs) error {
	start := time.Now()
	err := s.next.Edit(id, args)
	s.observe("edit", start, err)
	return err
}

func (s *InstrumentedService) Remove(id int) error {
	start := time.Now()
	err := s.next.Remove(id)
	s.observe("remove", start, err)
	return err
}

func (s *InstrumentedService) Purge() (PurgeResult, error) {
	start := time.Now()
	result, err := s.next.Purge()
	if err == nil {
		s.metrics.AddPurged(result.Deleted)
	}
	s.observe("purge", start, err)
	return result, err
}

func (s *InstrumentedService) GetRecords() ([]model.Record, error) {
	start := time.Now()
	records, err := s.next.GetRecords()
	s.metrics.RecordOperation("get_records", ErrorKind(err), time.Since(start))
	return records, err
}

func (s *InstrumentedService) GetStat() (Stat, error) {
	start := time.Now()
	stat, err := s.next.GetStat()
	s.metrics.RecordOperation("get_stat", ErrorKind(err), time.Since(start))
	if err == nil {
		s.metrics.SetRecords(stat.Live, stat.Deleted)
	}
	return stat, err
}

func (s *InstrumentedService) FindByFirstName(firstName string) ([]model.Record, error) {
	start := time.Now()
	records, err := s.next.FindByFirstName(firstName)
	s.metrics.RecordOperation("find_by_first_name", ErrorKind(err), time.Since(start))
	return records, err
}

func (s *InstrumentedService) FindByLastName(lastName string) ([]model.Record, error) {
	start := time.Now()
	records, err := s.next.FindByLastName(lastName)
	s.metrics.RecordOperation("find_by_last_name", ErrorKind(err), time.Since(start))
	return records, err
}

func (s *InstrumentedService) FindByDateOfBirth(dateOfBirth model.Date) ([]model.Record, error) {
	start := time.Now()
	records, err := s.next.FindByDateOfBirth(dateOfBirth)
	s.metrics.RecordOperation("find_by_date_of_birth", ErrorKind(err), time.Since(start))
	return records, err
}

func (s *InstrumentedService) MakeSnapshot() (*Snapshot, error) {
	start := time.Now()
	snapshot, err := s.next.MakeSnapshot()
	s.metrics.RecordOperation("make_snapshot", ErrorKind(err), time.Since(start))
	return snapshot, err
}

func (s *InstrumentedService) Restore(snapshot *Snapshot) (map[int]string, error) {
	start := time.Now()
	rejected, err := s.next.Restore(snapshot)
	if err == nil {
		s.metrics.AddRejected(len(rejected))
	}
	s.observe("restore", start, err)
	return rejected, err
}

func (s *InstrumentedService) Close() error {
	return s.next.Close()
}

// observe records a mutating operation and refreshes the record gauges.
func (s *InstrumentedService) observe(operation string, start time.Time, err error) {
	s.metrics.RecordOperation(operation, ErrorKind(err), time.Since(start))
	s.refreshRecords()
}

func (s *InstrumentedService) refreshRecords() {
	if stat, err := s.next.GetStat(); err == nil {
		s.metrics.SetRecords(stat.Live, stat.Deleted)
	}
}
