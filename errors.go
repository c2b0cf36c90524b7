package filecabinet

import (
	"errors"
	"fmt"

	"github.com/cqkv/filecabinet/codec"
	"github.com/cqkv/filecabinet/validation"
)

var (
	ErrValidation  = validation.ErrInvalidRecord
	ErrCorruptData = codec.ErrCorruptData

	ErrNotFound        = addPrefix("record not found")
	ErrInvalidArgument = addPrefix("invalid argument")
	ErrNoRecords       = fmt.Errorf("%w: there are no records", ErrInvalidArgument)

	ErrNotSupported  = addPrefix("operation is not supported by this storage")
	ErrCabinetLocked = addPrefix("data file is used by another process")
	ErrClosed        = addPrefix("cabinet is closed")
)

func addPrefix(errStr string) error {
	return fmt.Errorf("filecabinet err: %s", errStr)
}

func notFound(id int) error {
	return fmt.Errorf("%w: #%d", ErrNotFound, id)
}

func invalidID(id int) error {
	return fmt.Errorf("%w: id must be larger than zero, got %d", ErrInvalidArgument, id)
}

// fromCodec maps codec failures onto the engine's error kinds.
func fromCodec(err error) error {
	if errors.Is(err, codec.ErrUnencodable) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if errors.Is(err, ErrCorruptData) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCorruptData, err)
}

// ErrorKind names the kind of err for logs, metrics and the console.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrCorruptData):
		return "corrupt_data"
	case errors.Is(err, ErrNotSupported):
		return "not_supported"
	default:
		return "error"
	}
}
