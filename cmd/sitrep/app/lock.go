package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/covid19datasets/sitrep/pkg/constants"
	"github.com/covid19datasets/sitrep/pkg/errors"
)

// runLock serializes scrapes of one report date on this host.
type runLock struct {
	path string
}

// lockPath returns the lock file for a report date inside dir.
func lockPath(dir string, date time.Time) string {
	return filepath.Join(dir, "sitrep-"+date.Format(constants.SegmentDateLayout)+".lock")
}

// acquireLock creates the lock file exclusively. A lock left behind by a
// crashed run must be removed by hand.
func acquireLock(dir string, date time.Time) (*runLock, error) {
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("create", dir, err)
	}
	path := lockPath(dir, date)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, constants.FilePermissions)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.NewAlreadyExistsError("run lock", path)
		}
		return nil, errors.WrapIO("create", path, err)
	}
	_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(path)
		return nil, errors.WrapIO("write", path, werr)
	}
	return &runLock{path: path}, nil
}

// Release removes the lock file.
func (l *runLock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.WrapIO("delete", l.path, err)
	}
	return nil
}
