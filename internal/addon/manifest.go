package addon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// ManifestFilename is the manifest location relative to the addon folder.
const ManifestFilename = "addon.json"

// DefaultFileMode is used when the manifest is rewritten.
const DefaultFileMode os.FileMode = 0o644

var (
	// ErrManifestMissing is returned when the addon folder has no addon.json.
	ErrManifestMissing = errors.New("no addon.json file found in the addon folder")
	// ErrIconMissing is returned when the manifest names no icon.
	ErrIconMissing = errors.New("no icon file specified in addon.json")
)

// Manifest describes an addon and its workshop listing.
type Manifest struct {
	Title       string   `json:"Title"`
	Description string   `json:"Description"`
	Icon        string   `json:"Icon"`
	Tags        []string `json:"Tags"`
	Type        int      `json:"Type"`
	// WorkshopID is zero until the addon has been published.
	WorkshopID uint64 `json:"WorkshopID"`
	// Ignore lists slash-separated glob patterns excluded from the package.
	Ignore []string `json:"Ignore,omitempty"`
}

// ManifestPath returns the manifest location inside folder.
func ManifestPath(folder string) string {
	return filepath.Join(folder, ManifestFilename)
}

// LoadManifest reads and checks the manifest of the addon in folder.
func LoadManifest(folder string) (*Manifest, error) {
	path := ManifestPath(folder)

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrManifestMissing
		}

		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err = json.Unmarshal(jsonc.ToJSON(contents), &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}

	if manifest.Icon == "" {
		return nil, ErrIconMissing
	}

	return &manifest, nil
}

// Save overwrites the manifest in folder with m.
func (m *Manifest) Save(folder string) error {
	contents, err := json.MarshalIndent(m, "", "\t")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	contents = append(contents, '\n')

	if err = os.WriteFile(ManifestPath(folder), contents, DefaultFileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// IconPath returns the icon location inside folder.
func (m *Manifest) IconPath(folder string) string {
	return filepath.Join(folder, filepath.FromSlash(m.Icon))
}

// IsPublished reports whether the addon already has a workshop listing.
func (m *Manifest) IsPublished() bool {
	return m.WorkshopID != 0
}
