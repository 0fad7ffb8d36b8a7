package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/gmpublish/internal/addon"
	"github.com/oshokin/gmpublish/internal/cloud"
	"github.com/oshokin/gmpublish/internal/compress"
	"github.com/oshokin/gmpublish/internal/domain/workshop"
	"github.com/oshokin/gmpublish/internal/logger"
)

var (
	// ErrIconUploadFailed is returned when the preview image could not be uploaded.
	ErrIconUploadFailed = errors.New("icon upload failed")
	// ErrPackageUploadFailed is returned when the addon package could not be uploaded.
	ErrPackageUploadFailed = errors.New("package upload failed")
)

// Uploader sends files to cloud storage.
type Uploader interface {
	DeleteExisting(ctx context.Context, name string, appID uint32) error
	Upload(ctx context.Context, name string, appID uint32, hash []byte, length int64, stream io.ReadSeeker) (bool, error)
}

// Listings creates and updates workshop listings.
type Listings interface {
	CreateListing(ctx context.Context, req *workshop.CreateListingRequest) (uint64, error)
	UpdateListing(ctx context.Context, req *workshop.UpdateListingRequest) error
}

// Options locate the addon and select the package codec.
type Options struct {
	// AddonDir is the folder containing addon.json.
	AddonDir string
	// WorkDir receives the temporary package file. Empty means the OS temp directory.
	WorkDir string
	// AppID is the application the addon is published for.
	AppID uint32
	// Compression is compress.CodecLZMA (default), compress.CodecZstd or compress.CodecLZ4.
	Compression string
}

// Result describes a successful run.
type Result struct {
	// Created is true when a new listing was created.
	Created bool
	// WorkshopID is the id of the created or updated listing.
	WorkshopID uint64
}

// FaultError wraps a failure that is not one of the named pipeline errors.
type FaultError struct {
	// Step names the stage that failed.
	Step string
	// Err is the underlying failure.
	Err error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}

// Fault marks the error as unexpected.
func (*FaultError) Fault() bool {
	return true
}

// Pipeline publishes one addon.
type Pipeline struct {
	// uploader talks to cloud storage.
	uploader Uploader
	// listings talks to the workshop.
	listings Listings
	// opts locate the addon.
	opts Options
}

// New creates a pipeline.
func New(uploader Uploader, listings Listings, opts Options) *Pipeline {
	if opts.AppID == 0 {
		opts.AppID = workshop.DefaultAppID
	}

	if opts.Compression == "" {
		opts.Compression = compress.CodecLZMA
	}

	return &Pipeline{
		uploader: uploader,
		listings: listings,
		opts:     opts,
	}
}

// Publish runs the pipeline and discards the result.
func (p *Pipeline) Publish(ctx context.Context) error {
	_, err := p.Run(ctx)

	return err
}

// Run builds, uploads and publishes the addon. The create or update branch is
// chosen by the manifest's WorkshopID as loaded at the start of the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	ctx = logger.WithName(ctx, "publish")

	for _, name := range []string{workshop.IconCloudName, workshop.PackageCloudName} {
		if err := p.uploader.DeleteExisting(ctx, name, p.opts.AppID); err != nil {
			return nil, &FaultError{Step: "delete stale cloud file", Err: err}
		}
	}

	manifest, err := addon.LoadManifest(p.opts.AddonDir)
	if err != nil {
		if errors.Is(err, addon.ErrManifestMissing) || errors.Is(err, addon.ErrIconMissing) {
			return nil, err
		}

		return nil, &FaultError{Step: "load manifest", Err: err}
	}

	ctx = logger.WithFields(ctx, "title", manifest.Title, "workshop_id", manifest.WorkshopID)
	logger.Info(ctx, "Building addon")

	pkg, err := addon.Build(manifest, p.opts.AddonDir, p.opts.WorkDir)
	if err != nil {
		return nil, &FaultError{Step: "build package", Err: err}
	}

	defer func() {
		_ = pkg.Close()
		_ = os.Remove(pkg.Name())
	}()

	if err = p.uploadIcon(ctx, manifest); err != nil {
		return nil, err
	}

	if err = p.uploadPackage(ctx, pkg); err != nil {
		return nil, err
	}

	if !manifest.IsPublished() {
		return p.create(ctx, manifest)
	}

	return p.update(ctx, manifest)
}

func (p *Pipeline) uploadIcon(ctx context.Context, manifest *addon.Manifest) error {
	icon, err := os.Open(filepath.Clean(manifest.IconPath(p.opts.AddonDir)))
	if err != nil {
		return &FaultError{Step: "open icon", Err: err}
	}

	defer func() {
		_ = icon.Close()
	}()

	hash, size, err := cloud.Hash(icon)
	if err != nil {
		return &FaultError{Step: "hash icon", Err: err}
	}

	ok, err := p.uploader.Upload(ctx, workshop.IconCloudName, p.opts.AppID, hash, size, icon)
	if err != nil {
		return &FaultError{Step: "upload icon", Err: err}
	}

	if !ok {
		return ErrIconUploadFailed
	}

	return nil
}

func (p *Pipeline) uploadPackage(ctx context.Context, pkg io.ReadSeeker) error {
	rawSize, err := pkg.Seek(0, io.SeekEnd)
	if err != nil {
		return &FaultError{Step: "measure package", Err: err}
	}

	stream, err := compress.New(pkg, p.opts.Compression)
	if err != nil {
		return &FaultError{Step: "compress package", Err: err}
	}

	size, err := stream.Len()
	if err != nil {
		return &FaultError{Step: "compress package", Err: err}
	}

	hash, _, err := cloud.Hash(stream)
	if err != nil {
		return &FaultError{Step: "hash package", Err: err}
	}

	logger.InfoKV(ctx, "Package compressed",
		"codec", p.opts.Compression,
		"size", humanize.Bytes(uint64(rawSize)),
		"compressed", humanize.Bytes(uint64(size)))

	ok, err := p.uploader.Upload(ctx, workshop.PackageCloudName, p.opts.AppID, hash, size, stream)
	if err != nil {
		return &FaultError{Step: "upload package", Err: err}
	}

	if !ok {
		return ErrPackageUploadFailed
	}

	return nil
}

func (p *Pipeline) create(ctx context.Context, manifest *addon.Manifest) (*Result, error) {
	request := &workshop.CreateListingRequest{
		AppID:                p.opts.AppID,
		ConsumerAppID:        p.opts.AppID,
		CloudFilename:        workshop.PackageCloudName,
		PreviewCloudFilename: workshop.IconCloudName,
		Title:                manifest.Title,
		Description:          manifest.Description,
		FileType:             workshop.FileTypeCommunity,
		Visibility:           workshop.VisibilityPublic,
		CollectionType:       manifest.Type,
		Tags:                 manifest.Tags,
	}

	id, err := p.listings.CreateListing(ctx, request)
	if err != nil {
		return nil, &FaultError{Step: "create listing", Err: err}
	}

	manifest.WorkshopID = id
	if err = manifest.Save(p.opts.AddonDir); err != nil {
		return nil, &FaultError{Step: "save manifest", Err: err}
	}

	logger.InfoKV(ctx, "Published new workshop item", "id", id)

	return &Result{Created: true, WorkshopID: id}, nil
}

func (p *Pipeline) update(ctx context.Context, manifest *addon.Manifest) (*Result, error) {
	request := &workshop.UpdateListingRequest{
		PublishedFileID: manifest.WorkshopID,
		AppID:           p.opts.AppID,
		Filename:        workshop.PackageCloudName,
		PreviewFilename: workshop.IconCloudName,
		Title:           manifest.Title,
		Description:     manifest.Description,
		Visibility:      workshop.VisibilityPublic,
		Tags:            manifest.Tags,
		ImageWidth:      workshop.PreviewImageSize,
		ImageHeight:     workshop.PreviewImageSize,
	}

	if err := p.listings.UpdateListing(ctx, request); err != nil {
		return nil, &FaultError{Step: "update listing", Err: err}
	}

	logger.Info(ctx, "Updated workshop item")

	return &Result{Created: false, WorkshopID: manifest.WorkshopID}, nil
}
