package listing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/gmpublish/internal/config"
	"github.com/oshokin/gmpublish/internal/domain/workshop"
)

// Repository defines persistence operations for workshop listings.
type Repository interface {
	Get(ctx context.Context, id uint64) (*workshop.Listing, error)
	Create(ctx context.Context, listing *workshop.Listing) (uint64, error)
	Update(ctx context.Context, listing *workshop.Listing) error
}

// ErrNotFound is returned when a listing does not exist.
var ErrNotFound = fmt.Errorf("listing %w", workshop.ErrNotFound)

// document is the on-disk layout of the listings file.
type document struct {
	NextID   uint64              `yaml:"next_id"`
	Listings []*workshop.Listing `yaml:"listings"`
}

// FileRepository persists listings to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the listings file.
	path string
	// firstID is assigned to the first listing of an empty file.
	firstID uint64
	// mu protects concurrent access to the listings file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string, firstID uint64) *FileRepository {
	if firstID == 0 {
		firstID = 1
	}

	return &FileRepository{
		path:    filepath.Clean(path),
		firstID: firstID,
	}
}

// Get returns a copy of the listing with the given id.
func (r *FileRepository) Get(_ context.Context, id uint64) (*workshop.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}

	index := doc.find(id)
	if index < 0 {
		return nil, ErrNotFound
	}

	return doc.Listings[index].Clone(), nil
}

// Create stores a new listing under the next free id and returns that id.
func (r *FileRepository) Create(_ context.Context, listing *workshop.Listing) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return 0, err
	}

	stored := listing.Clone()
	stored.ID = doc.NextID
	doc.NextID++
	doc.Listings = append(doc.Listings, stored)

	if err = r.save(doc); err != nil {
		return 0, err
	}

	return stored.ID, nil
}

// Update replaces the listing with the same id.
func (r *FileRepository) Update(_ context.Context, listing *workshop.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}

	index := doc.find(listing.ID)
	if index < 0 {
		return ErrNotFound
	}

	doc.Listings[index] = listing.Clone()

	return r.save(doc)
}

// load reads the listings file. A missing file yields an empty document.
func (r *FileRepository) load() (*document, error) {
	contents, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return &document{NextID: r.firstID}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read listings file: %w", err)
	}

	doc := new(document)
	if err = yaml.Unmarshal(contents, doc); err != nil {
		return nil, fmt.Errorf("decode listings file: %w", err)
	}

	if doc.NextID < r.firstID {
		doc.NextID = r.firstID
	}

	return doc, nil
}

func (r *FileRepository) save(doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode listings: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write listings file: %w", err)
	}

	return nil
}

func (d *document) find(id uint64) int {
	return slices.IndexFunc(d.Listings, func(l *workshop.Listing) bool {
		return l.ID == id
	})
}
