package sentry

import (
	"crypto/sha1" //nolint:gosec // Test mirrors the production digest.
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStore_ReadDigest_Absent verifies that a missing token yields no digest and no error.
func TestStore_ReadDigest_Absent(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "sentry.bin"))

	digest, err := store.ReadDigest()
	require.NoError(t, err)
	require.Nil(t, digest)
}

// TestStore_Write_AppendsAtOffset writes B at offset O of a file of length O and
// checks the digest covers prior content plus B.
func TestStore_Write_AppendsAtOffset(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sentry.bin")
	store := NewStore(path)

	prior := []byte("first-chunk-of-token")
	chunk := []byte{0x00, 0x01, 0xfe, 0xff, 0x42}

	_, size, err := store.Write(0, prior)
	require.NoError(t, err)
	require.EqualValues(t, len(prior), size)

	digest, size, err := store.Write(int64(len(prior)), chunk)
	require.NoError(t, err)
	require.EqualValues(t, len(prior)+len(chunk), size)

	want := sha1.Sum(append(append([]byte{}, prior...), chunk...)) //nolint:gosec // See import.
	require.Equal(t, want[:], digest)

	read, err := store.ReadDigest()
	require.NoError(t, err)
	require.Equal(t, digest, read)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, append(prior, chunk...), contents)
}

// TestStore_Write_Overwrites ensures writes inside the file replace bytes without truncation.
func TestStore_Write_Overwrites(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sentry.bin")
	store := NewStore(path)

	_, _, err := store.Write(0, []byte("abcdef"))
	require.NoError(t, err)

	_, size, err := store.Write(2, []byte("XY"))
	require.NoError(t, err)
	require.EqualValues(t, 6, size)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "abXYef", string(contents))
}

// TestStore_Write_RejectsNegativeOffset checks input validation and that the lock is not leaked.
func TestStore_Write_RejectsNegativeOffset(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "sentry.bin"))

	_, _, err := store.Write(-1, []byte("x"))
	require.Error(t, err)

	_, _, err = store.Write(0, []byte("x"))
	require.NoError(t, err)
	require.False(t, store.lock.Locked())
}
