package cloud

import (
	"context"
	"crypto/sha1" //nolint:gosec // Cloud storage identifies content by SHA-1.
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"github.com/oshokin/gmpublish/internal/domain/workshop"
	"github.com/oshokin/gmpublish/internal/logger"
)

// Remote is the platform cloud storage API.
type Remote interface {
	DeleteFile(ctx context.Context, appID uint32, name string) error
	UploadStream(ctx context.Context, req *workshop.UploadRequest) (bool, error)
}

var (
	errNilStream     = errors.New("stream is nil")
	errBadHashSize   = errors.New("hash must be a SHA-1 digest")
	errLengthDiffers = errors.New("declared length does not match stream length")
	errEmptyName     = errors.New("file name must be provided")
)

// Uploader sends files to cloud storage.
type Uploader struct {
	// remote performs the cloud RPCs.
	remote Remote
	// progress enables a terminal progress bar per upload.
	progress bool
}

// Option configures the uploader.
type Option func(*Uploader)

// WithProgress toggles terminal progress bars.
func WithProgress(enabled bool) Option {
	return func(u *Uploader) {
		u.progress = enabled
	}
}

// NewUploader wraps the provided remote.
func NewUploader(remote Remote, opts ...Option) *Uploader {
	u := &Uploader{
		remote: remote,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// Hash returns the SHA-1 of the whole stream and its size, leaving the stream at position 0.
func Hash(stream io.ReadSeeker) ([]byte, int64, error) {
	if stream == nil {
		return nil, 0, errNilStream
	}

	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("rewind stream: %w", err)
	}

	hasher := sha1.New() //nolint:gosec // See import.

	size, err := io.Copy(hasher, stream)
	if err != nil {
		return nil, 0, fmt.Errorf("hash stream: %w", err)
	}

	if _, err = stream.Seek(0, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("rewind stream: %w", err)
	}

	return hasher.Sum(nil), size, nil
}

// Upload sends length bytes of stream under name. It returns false when the
// platform rejects or fails the transfer and an error only for invalid input.
func (u *Uploader) Upload(
	ctx context.Context,
	name string,
	appID uint32,
	hash []byte,
	length int64,
	stream io.ReadSeeker,
) (bool, error) {
	if err := validate(name, hash, length, stream); err != nil {
		return false, err
	}

	logger.InfoKV(ctx, "Uploading file", "name", name, "size", humanize.Bytes(uint64(length)))

	var body io.Reader = stream

	if u.progress {
		bar := progressbar.DefaultBytes(length, "uploading "+name)

		defer func() {
			_ = bar.Finish()
		}()

		body = io.TeeReader(stream, bar)
	}

	request := &workshop.UploadRequest{
		Name:   name,
		AppID:  appID,
		SHA1:   hash,
		Length: length,
		Stream: body,
	}

	ok, err := u.remote.UploadStream(ctx, request)
	if err != nil {
		logger.ErrorKV(ctx, "Upload failed", "name", name, "error", err)

		return false, nil
	}

	if !ok {
		logger.ErrorKV(ctx, "Upload was rejected", "name", name)

		return false, nil
	}

	logger.InfoKV(ctx, "Uploaded file", "name", name)

	return true, nil
}

// DeleteExisting removes a previously uploaded file. A missing file is not an error.
func (u *Uploader) DeleteExisting(ctx context.Context, name string, appID uint32) error {
	if name == "" {
		return errEmptyName
	}

	err := u.remote.DeleteFile(ctx, appID, name)
	switch {
	case err == nil:
		logger.DebugKV(ctx, "Deleted cloud file", "name", name)

		return nil
	case errors.Is(err, workshop.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("delete %s: %w", name, err)
	}
}

// validate checks the local upload input and leaves the stream at position 0.
func validate(name string, hash []byte, length int64, stream io.ReadSeeker) error {
	if name == "" {
		return errEmptyName
	}

	if stream == nil {
		return errNilStream
	}

	if len(hash) != workshop.SHA1Size {
		return fmt.Errorf("%w: got %d bytes", errBadHashSize, len(hash))
	}

	end, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("measure stream: %w", err)
	}

	if end != length {
		return fmt.Errorf("%w: declared %d, actual %d", errLengthDiffers, length, end)
	}

	if _, err = stream.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind stream: %w", err)
	}

	return nil
}
