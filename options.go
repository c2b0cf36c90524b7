package filecabinet

import (
	"github.com/cqkv/filecabinet/codec"
	"github.com/cqkv/filecabinet/fio"
	"github.com/cqkv/filecabinet/validation"
	"go.uber.org/zap"
)

type options struct {
	validator    validation.Validator
	logger       *zap.Logger
	codec        codec.Codec
	keydirDegree int
	lockFile     bool
	syncWrites   bool

	ioManagerCreator func(path string) (fio.IOManager, error)
}

type Option func(*options)

var defaultIOManagerCreator = func(path string) (fio.IOManager, error) {
	return fio.NewFileIO(path)
}

func defaultOptions() options {
	return options{
		validator:        validation.Default(),
		logger:           zap.NewNop(),
		codec:            codec.NewSlotCodec(),
		lockFile:         true,
		ioManagerCreator: defaultIOManagerCreator,
	}
}

func newOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithValidator(validator validation.Validator) Option {
	return func(o *options) {
		o.validator = validator
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithCodec(codec codec.Codec) Option {
	return func(o *options) {
		o.codec = codec
	}
}

func WithKeydirDegree(degree int) Option {
	return func(o *options) {
		o.keydirDegree = degree
	}
}

func WithIOManagerCreator(fn func(path string) (fio.IOManager, error)) Option {
	return func(o *options) {
		o.ioManagerCreator = fn
	}
}

// WithFileLock toggles the advisory lock taken next to the data file.
func WithFileLock(enabled bool) Option {
	return func(o *options) {
		o.lockFile = enabled
	}
}

// WithSyncWrites fsyncs the data file after every mutation.
func WithSyncWrites(enabled bool) Option {
	return func(o *options) {
		o.syncWrites = enabled
	}
}
