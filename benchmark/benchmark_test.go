package benchmark

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cqkv/filecabinet"
	"github.com/cqkv/filecabinet/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var names = []string{"Anna", "John", "Maria", "Peter", "Olga", "Ivan", "Kate", "Paul"}

func recordArgs(i int) model.RecordArgs {
	return model.RecordArgs{
		FirstName:   names[i%len(names)],
		LastName:    "Smith",
		DateOfBirth: model.NewDate(1960+i%40, time.Month(1+i%12), 1+i%28),
		Salary:      int16(100 + i%9000),
		WorkRate:    decimal.New(int64(25+i%100), -2),
		Gender:      'M',
	}
}

func openCabinet(b *testing.B, records int) *filecabinet.FileService {
	fs, err := filecabinet.Open(filepath.Join(b.TempDir(), "bench.db"))
	require.NoError(b, err)
	b.Cleanup(func() {
		_ = fs.Close()
	})
	for i := 0; i < records; i++ {
		_, err = fs.Create(recordArgs(i))
		require.NoError(b, err)
	}
	return fs
}

// Benchmark_Create .
func Benchmark_Create(b *testing.B) {
	fs := openCabinet(b, 0)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, err := fs.Create(recordArgs(i))
		assert.Nil(b, err)
	}
}

// Benchmark_Edit .
func Benchmark_Edit(b *testing.B) {
	fs := openCabinet(b, 1000)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		err := fs.Edit(1+i%1000, recordArgs(i))
		assert.Nil(b, err)
	}
}

// Benchmark_FindByFirstName scans the whole file per call.
func Benchmark_FindByFirstName(b *testing.B) {
	fs := openCabinet(b, 1000)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		records, err := fs.FindByFirstName(names[i%len(names)])
		if err != nil || len(records) == 0 {
			b.Fatal(err)
		}
	}
}

// Benchmark_Remove .
func Benchmark_Remove(b *testing.B) {
	fs := openCabinet(b, b.N)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		err := fs.Remove(i + 1)
		assert.Nil(b, err)
	}
}

// Benchmark_Purge removes every other record, then compacts.
func Benchmark_Purge(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		fs := openCabinet(b, 500)
		for id := 1; id <= 500; id += 2 {
			require.NoError(b, fs.Remove(id))
		}
		b.StartTimer()

		result, err := fs.Purge()
		assert.Nil(b, err)
		assert.Equal(b, 250, result.Deleted)
	}
}
