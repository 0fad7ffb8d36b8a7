package addon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFile creates parent folders and writes contents to dir/name.
func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

// TestLoadManifest_Missing verifies ErrManifestMissing for a folder without addon.json.
func TestLoadManifest_Missing(t *testing.T) {
	t.Parallel()

	m, err := LoadManifest(t.TempDir())
	require.ErrorIs(t, err, ErrManifestMissing)
	require.Nil(t, m)
}

// TestLoadManifest_EmptyIcon verifies ErrIconMissing when Icon is blank.
func TestLoadManifest_EmptyIcon(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ManifestFilename, `{"Title": "Chair", "Icon": ""}`)

	_, err := LoadManifest(dir)
	require.ErrorIs(t, err, ErrIconMissing)
}

// TestLoadManifest_AcceptsComments checks JSONC support and field mapping.
func TestLoadManifest_AcceptsComments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, ManifestFilename, `{
		// Shown on the workshop page.
		"Title": "Office Chair",
		"Description": "Spins.",
		"Icon": "icon.jpg",
		"Tags": ["fun", "build",],
		"Type": 2,
		"WorkshopID": 98765,
		"Ignore": ["*.psd"],
	}`)

	m, err := LoadManifest(dir)
	require.NoError(t, err)
	require.Equal(t, "Office Chair", m.Title)
	require.Equal(t, []string{"fun", "build"}, m.Tags)
	require.Equal(t, 2, m.Type)
	require.EqualValues(t, 98765, m.WorkshopID)
	require.True(t, m.IsPublished())
	require.Equal(t, filepath.Join(dir, "icon.jpg"), m.IconPath(dir))
}

// TestManifest_SaveRoundtrip ensures a saved manifest loads back with the new workshop id.
func TestManifest_SaveRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := &Manifest{Title: "Chair", Icon: "icon.jpg", Tags: []string{"fun"}}

	m.WorkshopID = 12345
	require.NoError(t, m.Save(dir))

	loaded, err := LoadManifest(dir)
	require.NoError(t, err)
	require.Equal(t, m, loaded)
}
