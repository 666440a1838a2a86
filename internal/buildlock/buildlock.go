// Package buildlock provides an advisory, file-based lock so two ruxgo
// invocations don't race over the same build root's hash store and
// artifacts. It hands out a google/uuid token per holder, checked on
// release so a stale lock someone else has already cleared is never
// clobbered.
package buildlock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ruxgo-build/ruxgo/internal/buildapi"
)

const lockFileName = ".ruxgo.lock"

type lockRecord struct {
	Token      string    `json:"token"`
	Pid        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Lock is a held advisory lock on a build root.
type Lock struct {
	path  string
	Token string
}

// Acquire creates the lock file for buildRoot, failing if another holder's
// lock is already present. The caller must call Release when done,
// including on error paths.
func Acquire(buildRoot string) (*Lock, error) {
	if err := os.MkdirAll(buildRoot, 0o755); err != nil {
		return nil, buildapi.IO(buildRoot, err)
	}
	path := filepath.Join(buildRoot, lockFileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := readLock(path); readErr == nil {
				return nil, buildapi.IO(buildRoot, fmt.Errorf(
					"a build is already in progress (pid %d, started %s); remove %s if that process is gone",
					existing.Pid, existing.AcquiredAt.Format(time.RFC3339), path))
			}
			return nil, buildapi.IO(buildRoot, fmt.Errorf("a build is already in progress (lock file %s exists)", path))
		}
		return nil, buildapi.IO(buildRoot, err)
	}
	defer f.Close()

	record := lockRecord{Token: uuid.New().String(), Pid: os.Getpid(), AcquiredAt: time.Now()}
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, buildapi.IO(path, err)
	}
	if _, err := f.Write(raw); err != nil {
		return nil, buildapi.IO(path, err)
	}

	return &Lock{path: path, Token: record.Token}, nil
}

// Release removes the lock file, only if it still carries this Lock's
// token (so a stale lock someone else has since cleared and re-acquired is
// never clobbered).
func (l *Lock) Release() error {
	existing, err := readLock(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return buildapi.IO(l.path, err)
	}
	if existing.Token != l.Token {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return buildapi.IO(l.path, err)
	}
	return nil
}

func readLock(path string) (*lockRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var record lockRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
