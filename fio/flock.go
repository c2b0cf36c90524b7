package fio

import (
	"github.com/gofrs/flock"
)

type FileLocker interface {
	TryLock() (bool, error)
	Unlock() error
}

const flockSuffix = ".lock"

// NewFlock returns the advisory lock guarding the data file at path.
func NewFlock(path string) *flock.Flock {
	return flock.New(path + flockSuffix)
}
