package filecabinet

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cqkv/filecabinet/codec"
	"github.com/cqkv/filecabinet/fio"
	"github.com/cqkv/filecabinet/model"
	"github.com/cqkv/filecabinet/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	fs, path := openTempCabinet(t)
	assert.NotNil(t, fs)

	assert.Equal(t, true, reflect.ValueOf(fs.options.ioManagerCreator).Pointer() == reflect.ValueOf(defaultIOManagerCreator).Pointer())
	assert.Equal(t, int64(0), fileSize(t, path))

	stat, err := fs.GetStat()
	assert.Nil(t, err)
	assert.Equal(t, Stat{}, stat)
}

func TestOpen_Locked(t *testing.T) {
	_, path := openTempCabinet(t)

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrCabinetLocked)
}

func TestOpen_PartialSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.db")
	require.NoError(t, os.WriteFile(path, make([]byte, model.SlotSize+10), 0644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrCorruptData)

	// the lock is released on a failed open
	require.NoError(t, os.Truncate(path, model.SlotSize*2))
	fs, err := Open(path)
	require.ErrorIs(t, err, ErrCorruptData) // zeroed slots are live with id 0
	assert.Nil(t, fs)
}

func TestOpen_BadStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.db")
	data := make([]byte, model.SlotSize)
	binary.LittleEndian.PutUint16(data[model.StatusOffset:], 7)
	binary.LittleEndian.PutUint32(data[model.IDOffset:], 1)
	require.NoError(t, os.WriteFile(path, data, 0644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrCorruptData)
}

func TestFileService_Create(t *testing.T) {
	fs, path := openTempCabinet(t)

	for i := 1; i <= 3; i++ {
		id, err := fs.Create(recordArgs("Anna", "Smith", 1990))
		assert.Nil(t, err)
		assert.Equal(t, i, id)
	}
	assert.Equal(t, int64(3*model.SlotSize), fileSize(t, path))

	records, err := fs.GetRecords()
	assert.Nil(t, err)
	assert.Equal(t, []int{1, 2, 3}, recordIDs(records))

	expected := model.NewRecord(2, recordArgs("Anna", "Smith", 1990))
	assert.True(t, expected.Equal(records[1]))
}

func TestFileService_Create_Invalid(t *testing.T) {
	fs, path := openTempCabinet(t)

	args := recordArgs("Anna", "Smith", 1990)
	args.Salary = 5
	_, err := fs.Create(args)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, int64(0), fileSize(t, path))

	// a name that passes validation but does not fit the slot
	fs2, path2 := openTempCabinet(t, WithValidator(validation.NewCompositeValidator()))
	_, err = fs2.Create(recordArgs(strings.Repeat("a", model.NameUnits+1), "Smith", 1990))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, int64(0), fileSize(t, path2))

	id, err := fs2.Create(recordArgs(strings.Repeat("a", model.NameUnits), "Smith", 1990))
	assert.Nil(t, err)
	assert.Equal(t, 1, id)
}

func TestFileService_Edit(t *testing.T) {
	fs, path := openTempCabinet(t)

	id, err := fs.Create(recordArgs("Anna", "Smith", 1990))
	require.NoError(t, err)
	_, err = fs.Create(recordArgs("John", "Doe", 1985))
	require.NoError(t, err)

	args := recordArgs("Maria", "Jones", 1991)
	args.WorkRate = decimal.RequireFromString("1.25")
	args.Gender = 'M'
	assert.Nil(t, fs.Edit(id, args))
	assert.Equal(t, int64(2*model.SlotSize), fileSize(t, path))

	records, err := fs.GetRecords()
	assert.Nil(t, err)
	assert.True(t, model.NewRecord(id, args).Equal(records[0]))
	assert.Equal(t, "John", records[1].FirstName)

	found, err := fs.FindByFirstName("anna")
	assert.Nil(t, err)
	assert.Nil(t, found)
}

func TestFileService_Edit_Errors(t *testing.T) {
	fs, _ := openTempCabinet(t)

	id, err := fs.Create(recordArgs("Anna", "Smith", 1990))
	require.NoError(t, err)

	bad := recordArgs("Anna", "Smith", 1990)
	bad.Gender = 'X'

	assert.ErrorIs(t, fs.Edit(0, bad), ErrInvalidArgument)
	assert.ErrorIs(t, fs.Edit(42, bad), ErrNotFound)
	assert.ErrorIs(t, fs.Edit(id, bad), ErrValidation)

	records, err := fs.GetRecords()
	assert.Nil(t, err)
	assert.Equal(t, 'F', records[0].Gender)
}

func TestFileService_Remove(t *testing.T) {
	fs, path := openTempCabinet(t)

	for i := 0; i < 3; i++ {
		_, err := fs.Create(recordArgs("Anna", "Smith", 1990))
		require.NoError(t, err)
	}

	assert.Nil(t, fs.Remove(2))
	assert.Equal(t, int64(3*model.SlotSize), fileSize(t, path))

	records, err := fs.GetRecords()
	assert.Nil(t, err)
	assert.Equal(t, []int{1, 3}, recordIDs(records))

	found, err := fs.FindByLastName("smith")
	assert.Nil(t, err)
	assert.Equal(t, []int{1, 3}, recordIDs(found))

	stat, err := fs.GetStat()
	assert.Nil(t, err)
	assert.Equal(t, Stat{Live: 2, Deleted: 1}, stat)

	assert.ErrorIs(t, fs.Remove(2), ErrNotFound)
	assert.ErrorIs(t, fs.Remove(-1), ErrInvalidArgument)
	assert.ErrorIs(t, fs.Edit(2, recordArgs("Anna", "Smith", 1990)), ErrNotFound)

	// ids are not reused
	id, err := fs.Create(recordArgs("Anna", "Smith", 1990))
	assert.Nil(t, err)
	assert.Equal(t, 4, id)
}

func TestFileService_Find(t *testing.T) {
	fs := openMemCabinet(t)

	_, err := fs.Create(recordArgs("Anna", "Smith", 1990))
	require.NoError(t, err)
	_, err = fs.Create(recordArgs("anna", "Doe", 1985))
	require.NoError(t, err)
	_, err = fs.Create(recordArgs("John", "SMITH", 1990))
	require.NoError(t, err)

	records, err := fs.FindByFirstName("ANNA")
	assert.Nil(t, err)
	assert.Equal(t, []int{1, 2}, recordIDs(records))

	records, err = fs.FindByLastName("Smith")
	assert.Nil(t, err)
	assert.Equal(t, []int{1, 3}, recordIDs(records))

	records, err = fs.FindByDateOfBirth(model.NewDate(1985, 3, 14))
	assert.Nil(t, err)
	assert.Equal(t, []int{2}, recordIDs(records))

	records, err = fs.FindByFirstName("Nobody")
	assert.Nil(t, err)
	assert.Nil(t, records)

	records, err = fs.FindByDateOfBirth(model.NewDate(2000, 1, 1))
	assert.Nil(t, err)
	assert.Nil(t, records)
}

func TestFileService_Reopen(t *testing.T) {
	fs, path := openTempCabinet(t)

	for i := 0; i < 4; i++ {
		_, err := fs.Create(recordArgs("Anna", "Smith", 1990+i))
		require.NoError(t, err)
	}
	require.NoError(t, fs.Remove(4))
	require.NoError(t, fs.Remove(1))
	require.NoError(t, fs.Close())

	fs, err := Open(path)
	require.NoError(t, err)
	defer fs.Close()

	stat, err := fs.GetStat()
	assert.Nil(t, err)
	assert.Equal(t, Stat{Live: 2, Deleted: 2}, stat)

	records, err := fs.GetRecords()
	assert.Nil(t, err)
	assert.Equal(t, []int{2, 3}, recordIDs(records))
	assert.Equal(t, model.NewDate(1991, 3, 14), records[0].DateOfBirth)

	assert.ErrorIs(t, fs.Remove(4), ErrNotFound)
	assert.Nil(t, fs.Edit(3, recordArgs("John", "Doe", 1980)))

	id, err := fs.Create(recordArgs("Anna", "Smith", 1990))
	assert.Nil(t, err)
	assert.Equal(t, 5, id)
}

func TestFileService_CorruptWorkRate(t *testing.T) {
	fs, path := openTempCabinet(t)

	_, err := fs.Create(recordArgs("Anna", "Smith", 1990))
	require.NoError(t, err)
	require.NoError(t, fs.Close())

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	require.NoError(t, err)
	// a reserved bit of the flags word
	_, err = f.WriteAt([]byte{0x01}, model.WorkRateOffset+12)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fs, err = Open(path)
	require.NoError(t, err)
	defer fs.Close()

	_, err = fs.GetRecords()
	assert.ErrorIs(t, err, ErrCorruptData)
	_, err = fs.FindByFirstName("Anna")
	assert.ErrorIs(t, err, ErrCorruptData)
}

func TestFileService_DuplicateLiveID(t *testing.T) {
	fs, path := openTempCabinet(t)

	_, err := fs.Create(recordArgs("Anna", "Smith", 1990))
	require.NoError(t, err)
	_, err = fs.Create(recordArgs("John", "Doe", 1985))
	require.NoError(t, err)
	require.NoError(t, fs.Close())

	// slot 1 becomes a second live copy of id 1
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	copy(data[model.SlotSize:], data[:model.SlotSize])
	require.NoError(t, os.WriteFile(path, data, 0644))

	fs, err = Open(path)
	require.NoError(t, err)
	defer fs.Close()

	stat, err := fs.GetStat()
	assert.Nil(t, err)
	assert.Equal(t, Stat{Live: 1, Deleted: 1}, stat)

	records, err := fs.GetRecords()
	assert.Nil(t, err)
	assert.Equal(t, []int{1}, recordIDs(records))
}

func TestFileService_Close(t *testing.T) {
	fs, _ := openTempCabinet(t)

	_, err := fs.Create(recordArgs("Anna", "Smith", 1990))
	require.NoError(t, err)

	assert.Nil(t, fs.Close())
	assert.Nil(t, fs.Close())

	_, err = fs.Create(recordArgs("Anna", "Smith", 1990))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = fs.GetRecords()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = fs.Purge()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFileService_CloseReleasesLock(t *testing.T) {
	fs, path := openTempCabinet(t)
	require.NoError(t, fs.Close())

	fs2, err := Open(path)
	require.NoError(t, err)
	assert.Nil(t, fs2.Close())
}

func TestFileService_SyncWrites(t *testing.T) {
	fs, path := openTempCabinet(t, WithSyncWrites(true), WithKeydirDegree(4))

	for i := 0; i < 50; i++ {
		_, err := fs.Create(recordArgs("Anna", "Smith", 1990))
		require.NoError(t, err)
	}
	for i := 1; i <= 50; i += 2 {
		require.NoError(t, fs.Remove(i))
	}
	assert.Equal(t, int64(50*model.SlotSize), fileSize(t, path))

	stat, err := fs.GetStat()
	assert.Nil(t, err)
	assert.Equal(t, Stat{Live: 25, Deleted: 25}, stat)
}

func TestFileService_MakeSnapshot(t *testing.T) {
	fs := openMemCabinet(t)

	_, err := fs.MakeSnapshot()
	assert.ErrorIs(t, err, ErrNoRecords)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = fs.Create(recordArgs("Anna", "Smith", 1990))
	require.NoError(t, err)
	snapshot, err := fs.MakeSnapshot()
	assert.Nil(t, err)
	assert.Equal(t, 1, snapshot.Len())

	require.NoError(t, fs.Edit(1, recordArgs("John", "Doe", 1985)))
	assert.Equal(t, "Anna", snapshot.Records()[0].FirstName)
}

type countingCodec struct {
	codec.Codec
	decoded int
}

func (cc *countingCodec) UnmarshalSlot(data []byte, slot *model.Slot) error {
	cc.decoded++
	return cc.Codec.UnmarshalSlot(data, slot)
}

func TestFileService_FindDecodesMatchesOnly(t *testing.T) {
	cc := &countingCodec{Codec: codec.NewSlotCodec()}
	fs := openMemCabinet(t, WithCodec(cc))

	for _, name := range []string{"Anna", "John", "Mary", "anna"} {
		_, err := fs.Create(recordArgs(name, "Smith", 1990))
		require.NoError(t, err)
	}
	require.NoError(t, fs.Remove(4))

	records, err := fs.FindByFirstName("ANNA")
	assert.Nil(t, err)
	assert.Equal(t, []int{1}, recordIDs(records))
	assert.Equal(t, 1, cc.decoded)
}

var errWriteRefused = errors.New("write refused")

type readOnlyIO struct {
	*fio.MemIO
}

func (readOnlyIO) WriteAt([]byte, int64) (int, error) {
	return 0, errWriteRefused
}

func TestFileService_CreateSeqWriteFails(t *testing.T) {
	fs, err := Open("mem",
		WithFileLock(false),
		WithIOManagerCreator(func(path string) (fio.IOManager, error) {
			if strings.HasSuffix(path, model.SeqFileSuffix) {
				return readOnlyIO{MemIO: fio.NewMemIO()}, nil
			}
			return fio.NewMemIO(), nil
		}),
	)
	require.NoError(t, err)
	defer fs.Close()

	_, err = fs.Create(recordArgs("Anna", "Smith", 1990))
	assert.ErrorIs(t, err, errWriteRefused)

	records, err := fs.GetRecords()
	assert.Nil(t, err)
	assert.Nil(t, records)
	stat, err := fs.GetStat()
	assert.Nil(t, err)
	assert.Equal(t, Stat{}, stat)
}

func TestFileService_BoundaryRoundTrip(t *testing.T) {
	permissive := WithValidator(validation.NewBuilder().Build())
	boundary := []model.RecordArgs{
		{
			FirstName:   strings.Repeat("a", model.NameUnits),
			LastName:    strings.Repeat("Z", model.NameUnits),
			DateOfBirth: model.NewDate(1950, 1, 1),
			Salary:      math.MinInt16,
			WorkRate:    decimal.RequireFromString("0.25"),
			Gender:      'M',
		},
		{
			FirstName:   "Ярослава",
			LastName:    "O'Neil-Smith Jr.",
			DateOfBirth: model.NewDate(2000, 2, 29),
			Salary:      math.MaxInt16,
			WorkRate:    decimal.RequireFromString("1.5"),
			Gender:      'F',
		},
	}

	fs, path := openTempCabinet(t, permissive)
	var expected []model.Record
	for _, args := range boundary {
		id, err := fs.Create(args)
		require.NoError(t, err)
		expected = append(expected, model.NewRecord(id, args))
	}
	require.NoError(t, fs.Close())

	reopened, err := Open(path, permissive)
	require.NoError(t, err)
	defer reopened.Close()
	records, err := reopened.GetRecords()
	require.NoError(t, err)
	require.Len(t, records, len(expected))
	for i := range expected {
		assert.True(t, expected[i].Equal(records[i]), "record #%d", expected[i].ID)
	}

	restored := openMemCabinet(t, permissive)
	rejected, err := restored.Restore(NewSnapshot(expected))
	require.NoError(t, err)
	assert.Empty(t, rejected)
	records, err = restored.GetRecords()
	require.NoError(t, err)
	require.Len(t, records, len(expected))
	for i := range expected {
		assert.True(t, expected[i].Equal(records[i]), "record #%d", expected[i].ID)
	}
}

func TestFileService_TrailingSpacesInNames(t *testing.T) {
	args := recordArgs("Anna ", "Smith", 1990)

	_, err := openMemCabinet(t).Create(args)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = NewMemoryService().Create(args)
	assert.ErrorIs(t, err, ErrValidation)

	permissive := WithValidator(validation.NewBuilder().Build())
	services := map[string]Service{
		"memory": NewMemoryService(permissive),
		"file":   openMemCabinet(t, permissive),
	}
	for name, svc := range services {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(args)
			require.NoError(t, err)

			records, err := svc.GetRecords()
			require.NoError(t, err)
			assert.Equal(t, "Anna", records[0].FirstName)

			for _, key := range []string{"Anna ", "anna"} {
				records, err = svc.FindByFirstName(key)
				require.NoError(t, err)
				assert.Equal(t, []int{1}, recordIDs(records), key)
			}
		})
	}
}

func TestFileService_Clear(t *testing.T) {
	fs, path := openTempCabinet(t)
	for _, first := range []string{"Anna", "John", "Mary"} {
		_, err := fs.Create(recordArgs(first, "Smith", 1990))
		require.NoError(t, err)
	}
	require.NoError(t, fs.Remove(2))

	require.NoError(t, fs.Clear())
	assert.Equal(t, int64(0), fileSize(t, path))
	assert.Equal(t, int64(0), fileSize(t, path+model.SeqFileSuffix))
	stat, err := fs.GetStat()
	assert.Nil(t, err)
	assert.Equal(t, Stat{}, stat)

	id, err := fs.Create(recordArgs("Lena", "Smith", 1990))
	assert.Nil(t, err)
	assert.Equal(t, 1, id)

	require.NoError(t, fs.Close())
	assert.ErrorIs(t, fs.Clear(), ErrClosed)
}
