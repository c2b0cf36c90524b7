package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/cqkv/filecabinet/model"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
)

var _ Codec = (*SlotCodec)(nil)

const (
	maxDecimalScale = 28
	decimalSignBit  = 1 << 31
	decimalScaleBit = 16
	// bits of the flags word that must stay zero
	decimalReservedMask = 0x7F00FFFF

	namePadding = ' '
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

type SlotCodec struct{}

func NewSlotCodec() *SlotCodec {
	return &SlotCodec{}
}

/*
slot codec, little-endian throughout:
	- status: uint16, 0 live / 1 deleted
	- id: int32
	- names: UTF-16LE, model.NameUnits code units, right-padded with spaces
	- date of birth: year, month, day as int32
	- salary: int16
	- work rate: lo32 | mid32 | hi32 | flags32, a 96-bit unsigned coefficient with
	  the scale in flags bits 16..23 and the sign in bit 31
	- gender: one UTF-16 code unit
*/

// MarshalSlot return the slot image
func (sc *SlotCodec) MarshalSlot(slot *model.Slot) ([]byte, error) {
	if !slot.Status.Valid() {
		return nil, fmt.Errorf("%w: status %d", ErrUnencodable, slot.Status)
	}
	record := &slot.Record
	if record.ID <= 0 || record.ID > math.MaxInt32 {
		return nil, fmt.Errorf("%w: id %d", ErrUnencodable, record.ID)
	}

	data := make([]byte, model.SlotSize)
	binary.LittleEndian.PutUint16(data[model.StatusOffset:], uint16(slot.Status))
	binary.LittleEndian.PutUint32(data[model.IDOffset:], uint32(int32(record.ID)))

	if err := putName(data[model.FirstNameOffset:model.LastNameOffset], record.FirstName); err != nil {
		return nil, err
	}
	if err := putName(data[model.LastNameOffset:model.DateOfBirthOffset], record.LastName); err != nil {
		return nil, err
	}
	if err := putDate(data[model.DateOfBirthOffset:model.SalaryOffset], record.DateOfBirth); err != nil {
		return nil, err
	}

	binary.LittleEndian.PutUint16(data[model.SalaryOffset:], uint16(record.Salary))

	workRate, err := MarshalDecimal(record.WorkRate)
	if err != nil {
		return nil, err
	}
	copy(data[model.WorkRateOffset:model.GenderOffset], workRate)

	if err = putGender(data[model.GenderOffset:], record.Gender); err != nil {
		return nil, err
	}

	return data, nil
}

func (sc *SlotCodec) UnmarshalSlot(data []byte, slot *model.Slot) error {
	if len(data) != model.SlotSize {
		return fmt.Errorf("%w: slot is %d bytes, want %d", ErrCorruptData, len(data), model.SlotSize)
	}

	status, err := sc.UnmarshalStatus(data[model.StatusOffset:model.IDOffset])
	if err != nil {
		return err
	}
	id, err := sc.UnmarshalID(data[model.IDOffset:model.FirstNameOffset])
	if err != nil {
		return err
	}
	firstName, err := sc.UnmarshalName(data[model.FirstNameOffset:model.LastNameOffset])
	if err != nil {
		return err
	}
	lastName, err := sc.UnmarshalName(data[model.LastNameOffset:model.DateOfBirthOffset])
	if err != nil {
		return err
	}
	dateOfBirth, err := sc.UnmarshalDate(data[model.DateOfBirthOffset:model.SalaryOffset])
	if err != nil {
		return err
	}
	workRate, err := UnmarshalDecimal(data[model.WorkRateOffset:model.GenderOffset])
	if err != nil {
		return err
	}

	slot.Status = status
	slot.Record = model.Record{
		ID:          id,
		FirstName:   firstName,
		LastName:    lastName,
		DateOfBirth: dateOfBirth,
		Salary:      int16(binary.LittleEndian.Uint16(data[model.SalaryOffset:])),
		WorkRate:    workRate,
		Gender:      rune(binary.LittleEndian.Uint16(data[model.GenderOffset:])),
	}
	return nil
}

func (sc *SlotCodec) UnmarshalStatus(data []byte) (model.Status, error) {
	if len(data) != model.StatusSize {
		return 0, fmt.Errorf("%w: status is %d bytes", ErrCorruptData, len(data))
	}
	status := model.Status(binary.LittleEndian.Uint16(data))
	if !status.Valid() {
		return 0, fmt.Errorf("%w: status %d", ErrCorruptData, status)
	}
	return status, nil
}

func (sc *SlotCodec) UnmarshalID(data []byte) (int, error) {
	if len(data) != model.IDSize {
		return 0, fmt.Errorf("%w: id is %d bytes", ErrCorruptData, len(data))
	}
	return int(int32(binary.LittleEndian.Uint32(data))), nil
}

func (sc *SlotCodec) UnmarshalName(data []byte) (string, error) {
	if len(data) != model.NameSize {
		return "", fmt.Errorf("%w: name is %d bytes", ErrCorruptData, len(data))
	}
	decoded, err := utf16le.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return strings.TrimRight(string(decoded), " \x00"), nil
}

func (sc *SlotCodec) UnmarshalDate(data []byte) (model.Date, error) {
	if len(data) != model.DateSize {
		return model.Date{}, fmt.Errorf("%w: date is %d bytes", ErrCorruptData, len(data))
	}
	date := model.Date{
		Year:  int(int32(binary.LittleEndian.Uint32(data[0:]))),
		Month: time.Month(int32(binary.LittleEndian.Uint32(data[4:]))),
		Day:   int(int32(binary.LittleEndian.Uint32(data[8:]))),
	}
	if !date.IsValid() {
		return model.Date{}, fmt.Errorf("%w: date %s", ErrCorruptData, date)
	}
	return date, nil
}

// MarshalDecimal encodes d into the 16-byte work rate field.
func MarshalDecimal(d decimal.Decimal) ([]byte, error) {
	coefficient := d.Coefficient()
	exp := d.Exponent()
	if exp > 0 {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
		coefficient.Mul(coefficient, scale)
		exp = 0
	}
	scale := -int64(exp)
	if scale > maxDecimalScale {
		return nil, fmt.Errorf("%w: %s has more than %d fraction digits", ErrUnencodable, d, maxDecimalScale)
	}

	negative := coefficient.Sign() < 0
	coefficient.Abs(coefficient)
	if coefficient.BitLen() > 96 {
		return nil, fmt.Errorf("%w: %s overflows 96 bits", ErrUnencodable, d)
	}

	words := coefficient.FillBytes(make([]byte, 12)) // big-endian hi|mid|lo
	flags := uint32(scale) << decimalScaleBit
	if negative {
		flags |= decimalSignBit
	}

	data := make([]byte, model.WorkRateSize)
	binary.LittleEndian.PutUint32(data[0:], binary.BigEndian.Uint32(words[8:]))
	binary.LittleEndian.PutUint32(data[4:], binary.BigEndian.Uint32(words[4:]))
	binary.LittleEndian.PutUint32(data[8:], binary.BigEndian.Uint32(words[0:]))
	binary.LittleEndian.PutUint32(data[12:], flags)
	return data, nil
}

// UnmarshalDecimal decodes the 16-byte work rate field. Anything but exactly
// 16 well-formed bytes is corrupt data.
func UnmarshalDecimal(data []byte) (decimal.Decimal, error) {
	if len(data) != model.WorkRateSize {
		return decimal.Decimal{}, fmt.Errorf("%w: a decimal must be exactly %d bytes, got %d",
			ErrCorruptData, model.WorkRateSize, len(data))
	}

	flags := binary.LittleEndian.Uint32(data[12:])
	scale := (flags >> decimalScaleBit) & 0xFF
	if flags&decimalReservedMask != 0 || scale > maxDecimalScale {
		return decimal.Decimal{}, fmt.Errorf("%w: decimal flags %#08x", ErrCorruptData, flags)
	}

	words := make([]byte, 12)
	binary.BigEndian.PutUint32(words[0:], binary.LittleEndian.Uint32(data[8:]))
	binary.BigEndian.PutUint32(words[4:], binary.LittleEndian.Uint32(data[4:]))
	binary.BigEndian.PutUint32(words[8:], binary.LittleEndian.Uint32(data[0:]))

	coefficient := new(big.Int).SetBytes(words)
	if flags&decimalSignBit != 0 {
		coefficient.Neg(coefficient)
	}
	return decimal.NewFromBigInt(coefficient, -int32(scale)), nil
}

func putName(dst []byte, name string) error {
	encoded, err := utf16le.NewEncoder().Bytes([]byte(name))
	if err != nil {
		return fmt.Errorf("%w: name %q: %v", ErrUnencodable, name, err)
	}
	if len(encoded) > len(dst) {
		return fmt.Errorf("%w: name %q is longer than %d UTF-16 code units",
			ErrUnencodable, name, model.NameUnits)
	}

	n := copy(dst, encoded)
	for ; n+1 < len(dst); n += 2 {
		dst[n] = namePadding
		dst[n+1] = 0
	}
	return nil
}

func putDate(dst []byte, date model.Date) error {
	if !date.IsValid() {
		return fmt.Errorf("%w: date %s", ErrUnencodable, date)
	}
	if date.Year > math.MaxInt32 || date.Year < math.MinInt32 {
		return fmt.Errorf("%w: year %d", ErrUnencodable, date.Year)
	}
	binary.LittleEndian.PutUint32(dst[0:], uint32(int32(date.Year)))
	binary.LittleEndian.PutUint32(dst[4:], uint32(int32(date.Month)))
	binary.LittleEndian.PutUint32(dst[8:], uint32(int32(date.Day)))
	return nil
}

func putGender(dst []byte, gender rune) error {
	// one UTF-16 code unit, no surrogate halves
	if gender <= 0 || gender > 0xFFFF || (gender >= 0xD800 && gender <= 0xDFFF) {
		return fmt.Errorf("%w: gender %q", ErrUnencodable, gender)
	}
	binary.LittleEndian.PutUint16(dst, uint16(gender))
	return nil
}
