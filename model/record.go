package model

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// RecordArgs carries the user-editable fields of a record.
type RecordArgs struct {
	FirstName   string
	LastName    string
	DateOfBirth Date
	Salary      int16
	WorkRate    decimal.Decimal
	Gender      rune
}

type Record struct {
	ID          int
	FirstName   string
	LastName    string
	DateOfBirth Date
	Salary      int16
	WorkRate    decimal.Decimal
	Gender      rune
}

func NewRecord(id int, args RecordArgs) Record {
	return Record{
		ID:          id,
		FirstName:   TrimName(args.FirstName),
		LastName:    TrimName(args.LastName),
		DateOfBirth: args.DateOfBirth,
		Salary:      args.Salary,
		WorkRate:    args.WorkRate,
		Gender:      args.Gender,
	}
}

// Args strips the id.
func (r Record) Args() RecordArgs {
	return RecordArgs{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DateOfBirth: r.DateOfBirth,
		Salary:      r.Salary,
		WorkRate:    r.WorkRate,
		Gender:      r.Gender,
	}
}

// Equal compares field values. WorkRate is compared numerically, so 0.5 and
// 0.50 are the same rate.
func (r Record) Equal(other Record) bool {
	return r.ID == other.ID &&
		r.FirstName == other.FirstName &&
		r.LastName == other.LastName &&
		r.DateOfBirth == other.DateOfBirth &&
		r.Salary == other.Salary &&
		r.WorkRate.Equal(other.WorkRate) &&
		r.Gender == other.Gender
}

// TrimName drops trailing spaces. A stored name is padded with spaces, so
// they never survive a round trip through the data file.
func TrimName(name string) string {
	return strings.TrimRight(name, " ")
}

// FoldName is the key names are indexed and compared under.
func FoldName(name string) string {
	return cases.Fold().String(TrimName(name))
}
