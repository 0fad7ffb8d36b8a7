package sentry

import (
	"crypto/sha1" //nolint:gosec // The platform identifies sentry files by SHA-1.
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	// DefaultFileMode restricts the token to the current user.
	DefaultFileMode os.FileMode = 0o600

	lockSuffix = ".lock"
)

var errNegativeOffset = errors.New("offset must not be negative")

// Store reads and updates a sentry file.
type Store struct {
	// path is the token file location.
	path string
	// lock guards every read and write of the token file.
	lock *flock.Flock
}

// NewStore returns a store for the token file at path.
func NewStore(path string) *Store {
	path = filepath.Clean(path)

	return &Store{
		path: path,
		lock: flock.New(path + lockSuffix),
	}
}

// Path returns the token file location.
func (s *Store) Path() string {
	return s.path
}

// Write stores data at offset, creating the file if needed, and returns the
// SHA-1 of the full file content together with the resulting file size.
func (s *Store) Write(offset int64, data []byte) (digest []byte, size int64, err error) {
	if offset < 0 {
		return nil, 0, errNegativeOffset
	}

	if err = s.lock.Lock(); err != nil {
		return nil, 0, fmt.Errorf("lock sentry file: %w", err)
	}

	defer func() {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = fmt.Errorf("unlock sentry file: %w", unlockErr)
		}
	}()

	file, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, DefaultFileMode)
	if err != nil {
		return nil, 0, fmt.Errorf("open sentry file: %w", err)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close sentry file: %w", closeErr)
		}
	}()

	if _, err = file.WriteAt(data, offset); err != nil {
		return nil, 0, fmt.Errorf("write sentry file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat sentry file: %w", err)
	}

	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("rewind sentry file: %w", err)
	}

	hasher := sha1.New() //nolint:gosec // See import.
	if _, err = io.Copy(hasher, file); err != nil {
		return nil, 0, fmt.Errorf("hash sentry file: %w", err)
	}

	return hasher.Sum(nil), info.Size(), nil
}

// ReadDigest returns the SHA-1 of the token file, or nil when no token has been stored yet.
func (s *Store) ReadDigest() (digest []byte, err error) {
	if err = s.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock sentry file: %w", err)
	}

	defer func() {
		if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
			err = fmt.Errorf("unlock sentry file: %w", unlockErr)
		}
	}()

	contents, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read sentry file: %w", err)
	}

	sum := sha1.Sum(contents) //nolint:gosec // See import.

	return sum[:], nil
}
