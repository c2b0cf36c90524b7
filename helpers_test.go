package filecabinet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cqkv/filecabinet/fio"
	"github.com/cqkv/filecabinet/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func recordArgs(firstName, lastName string, year int) model.RecordArgs {
	return model.RecordArgs{
		FirstName:   firstName,
		LastName:    lastName,
		DateOfBirth: model.NewDate(year, 3, 14),
		Salary:      1500,
		WorkRate:    decimal.RequireFromString("0.75"),
		Gender:      'F',
	}
}

func openTempCabinet(t *testing.T, opts ...Option) (*FileService, string) {
	path := filepath.Join(t.TempDir(), "cabinet"+model.DataFileSuffix)
	fs, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = fs.Close()
	})
	return fs, path
}

func openMemCabinet(t *testing.T, opts ...Option) *FileService {
	opts = append(opts,
		WithFileLock(false),
		WithIOManagerCreator(func(string) (fio.IOManager, error) {
			return fio.NewMemIO(), nil
		}),
	)
	fs, err := Open("mem", opts...)
	require.NoError(t, err)
	return fs
}

func fileSize(t *testing.T, path string) int64 {
	info, err := os.Stat(path)
	require.NoError(t, err)
	return info.Size()
}

func recordIDs(records []model.Record) []int {
	ids := make([]int, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}
