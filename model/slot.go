package model

/*
slot layout (little-endian, SlotSize bytes):
	status(2) | id(4) | firstName(120) | lastName(120) | year(4) | month(4) | day(4) |
	salary(2) | workRate(16) | gender(2)
*/
const (
	StatusSize   = 2
	IDSize       = 4
	NameSize     = 120
	DateSize     = 4 * 3
	SalarySize   = 2
	WorkRateSize = 16
	GenderSize   = 2

	// NameUnits is how many UTF-16 code units fit in a name field.
	NameUnits = NameSize / 2

	StatusOffset      = 0
	IDOffset          = StatusOffset + StatusSize
	FirstNameOffset   = IDOffset + IDSize
	LastNameOffset    = FirstNameOffset + NameSize
	DateOfBirthOffset = LastNameOffset + NameSize
	SalaryOffset      = DateOfBirthOffset + DateSize
	WorkRateOffset    = SalaryOffset + SalarySize
	GenderOffset      = WorkRateOffset + WorkRateSize

	SlotSize = GenderOffset + GenderSize // 278
)

// Status is the tombstone state of a slot.
type Status uint16

const (
	StatusLive    Status = 0
	StatusDeleted Status = 1
)

func (s Status) Valid() bool {
	return s == StatusLive || s == StatusDeleted
}

func (s Status) String() string {
	switch s {
	case StatusLive:
		return "live"
	case StatusDeleted:
		return "deleted"
	default:
		return "invalid"
	}
}

// Slot is one decoded fixed-size region of the data file.
type Slot struct {
	Status Status
	Record Record
}
