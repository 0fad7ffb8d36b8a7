package addon

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	gmaIdent   = "GMAD"
	gmaVersion = byte(3)
	// gmaAddonVersion is written for compatibility and ignored by readers.
	gmaAddonVersion int32 = 1
	gmaAuthor             = "Author Name"
)

var errEmptyAddon = errors.New("addon folder contains no files to package")

// entry is a file scheduled for packaging.
type entry struct {
	// name is the lower-cased slash-separated path stored in the archive.
	name string
	// path is the file location on disk.
	path string
	size int64
	crc  uint32
}

// description is the JSON stored in the GMAD description field.
type description struct {
	Description string   `json:"description"`
	Type        int      `json:"type"`
	Tags        []string `json:"tags"`
}

// Build packages folder into a temporary GMAD file created in dir and returns
// it positioned at the start. The caller owns the file and should remove it.
// An empty dir means the OS temp directory.
func Build(m *Manifest, folder, dir string) (*os.File, error) {
	entries, err := collect(folder, m.Ignore)
	if err != nil {
		return nil, err
	}

	file, err := os.CreateTemp(dir, "gmpublish-*.gma")
	if err != nil {
		return nil, fmt.Errorf("create package file: %w", err)
	}

	discard := func(cause error) (*os.File, error) {
		_ = file.Close()
		_ = os.Remove(file.Name())

		return nil, cause
	}

	if err = write(file, m, entries, time.Now()); err != nil {
		return discard(err)
	}

	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return discard(fmt.Errorf("rewind package: %w", err))
	}

	return file, nil
}

// write encodes a GMAD archive with the given entries to w.
func write(w io.Writer, m *Manifest, entries []entry, timestamp time.Time) error {
	buffered := bufio.NewWriter(w)
	hasher := crc32.NewIEEE()
	out := io.MultiWriter(buffered, hasher)

	desc, err := json.Marshal(description{
		Description: m.Description,
		Type:        m.Type,
		Tags:        nonNil(m.Tags),
	})
	if err != nil {
		return fmt.Errorf("encode description: %w", err)
	}

	header := &headerWriter{w: out}
	header.bytes([]byte(gmaIdent))
	header.bytes([]byte{gmaVersion})
	header.uint64(0) // Steam ID, filled by the platform.
	header.uint64(uint64(timestamp.Unix()))
	header.cstring("") // Required content list terminator.
	header.cstring(m.Title)
	header.cstring(string(desc))
	header.cstring(gmaAuthor)
	header.int32(gmaAddonVersion)

	for i, e := range entries {
		header.uint32(uint32(i + 1))
		header.cstring(e.name)
		header.int64(e.size)
		header.uint32(e.crc)
	}

	header.uint32(0)

	if header.err != nil {
		return fmt.Errorf("write package header: %w", header.err)
	}

	for _, e := range entries {
		if err = copyFile(out, e.path); err != nil {
			return err
		}
	}

	if err = binary.Write(buffered, binary.LittleEndian, hasher.Sum32()); err != nil {
		return fmt.Errorf("write package checksum: %w", err)
	}

	if err = buffered.Flush(); err != nil {
		return fmt.Errorf("flush package: %w", err)
	}

	return nil
}

// collect lists the files of folder that belong in the package, sorted by archive name.
func collect(folder string, ignore []string) ([]entry, error) {
	var entries []entry

	err := filepath.WalkDir(folder, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(folder, p)
		if err != nil {
			return err
		}

		name := strings.ToLower(filepath.ToSlash(rel))
		if name == ManifestFilename || isIgnored(name, ignore) {
			return nil
		}

		checksum, size, err := fileCRC(p)
		if err != nil {
			return err
		}

		entries = append(entries, entry{name: name, path: p, size: size, crc: checksum})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan addon folder: %w", err)
	}

	if len(entries) == 0 {
		return nil, errEmptyAddon
	}

	slices.SortFunc(entries, func(a, b entry) int {
		return strings.Compare(a.name, b.name)
	})

	return entries, nil
}

// isIgnored matches name against slash-separated glob patterns. Patterns
// without a slash also match the base name, and a pattern matching a directory
// excludes everything below it.
func isIgnored(name string, patterns []string) bool {
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.Trim(filepath.ToSlash(pattern), "/"))
		if pattern == "" {
			continue
		}

		if !strings.Contains(pattern, "/") {
			if ok, _ := path.Match(pattern, path.Base(name)); ok {
				return true
			}
		}

		for candidate := name; candidate != "." && candidate != ""; candidate = path.Dir(candidate) {
			if ok, _ := path.Match(pattern, candidate); ok {
				return true
			}

			if !strings.Contains(candidate, "/") {
				break
			}
		}
	}

	return false
}

func fileCRC(p string) (uint32, int64, error) {
	file, err := os.Open(filepath.Clean(p))
	if err != nil {
		return 0, 0, err
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := crc32.NewIEEE()

	size, err := io.Copy(hasher, file)
	if err != nil {
		return 0, 0, err
	}

	return hasher.Sum32(), size, nil
}

func copyFile(w io.Writer, p string) error {
	file, err := os.Open(filepath.Clean(p))
	if err != nil {
		return fmt.Errorf("open %s: %w", p, err)
	}

	defer func() {
		_ = file.Close()
	}()

	if _, err = io.Copy(w, file); err != nil {
		return fmt.Errorf("copy %s: %w", p, err)
	}

	return nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}

	return tags
}

// headerWriter writes little-endian fields and keeps the first error.
type headerWriter struct {
	w   io.Writer
	err error
}

func (h *headerWriter) bytes(b []byte) {
	if h.err != nil {
		return
	}

	_, h.err = h.w.Write(b)
}

func (h *headerWriter) cstring(s string) {
	h.bytes(append([]byte(s), 0))
}

func (h *headerWriter) uint32(v uint32) {
	h.bytes(binary.LittleEndian.AppendUint32(nil, v))
}

func (h *headerWriter) int32(v int32) {
	h.uint32(uint32(v))
}

func (h *headerWriter) uint64(v uint64) {
	h.bytes(binary.LittleEndian.AppendUint64(nil, v))
}

func (h *headerWriter) int64(v int64) {
	h.uint64(uint64(v))
}
