package codec

import (
	"errors"

	"github.com/cqkv/filecabinet/model"
)

var (
	// ErrCorruptData means bytes read from a slot violate the fixed layout.
	ErrCorruptData = errors.New("data file may be corrupted")
	// ErrUnencodable means a value does not fit its fixed-width field.
	ErrUnencodable = errors.New("value does not fit the slot layout")
)

type Codec interface {
	// MarshalSlot return the model.SlotSize byte image of the slot
	MarshalSlot(*model.Slot) ([]byte, error)

	UnmarshalSlot([]byte, *model.Slot) error

	UnmarshalStatus([]byte) (model.Status, error)

	UnmarshalID([]byte) (int, error)

	UnmarshalName([]byte) (string, error)

	UnmarshalDate([]byte) (model.Date, error)
}
