package workshop

import (
	"io"
	"slices"
	"time"
)

// Fixed values used by the publisher when talking to the platform.
const (
	// DefaultAppID is the application the addons belong to.
	DefaultAppID uint32 = 4000
	// IconCloudName is the well-known cloud name of the uploaded preview image.
	IconCloudName = "gmpublish_icon.jpg"
	// PackageCloudName is the well-known cloud name of the uploaded package.
	PackageCloudName = "gmpublish.gma"
	// PreviewImageSize is the width and height reported for preview images on update.
	PreviewImageSize = 512
	// SHA1Size is the length of content hashes exchanged with the platform.
	SHA1Size = 20
)

// FileType is the kind of published file.
type FileType uint32

// FileTypeCommunity marks regular community items.
const FileTypeCommunity FileType = 0

// Visibility controls who can see a listing.
type Visibility uint32

// Listing visibilities.
const (
	VisibilityPublic Visibility = iota
	VisibilityFriendsOnly
	VisibilityPrivate
)

// UploadRequest describes a single cloud upload.
type UploadRequest struct {
	Name   string
	AppID  uint32
	SHA1   []byte
	Length int64
	Stream io.Reader
}

// CreateListingRequest creates a new workshop listing from uploaded cloud files.
type CreateListingRequest struct {
	AppID                uint32
	ConsumerAppID        uint32
	CloudFilename        string
	PreviewCloudFilename string
	Title                string
	Description          string
	FileType             FileType
	Visibility           Visibility
	CollectionType       int
	Tags                 []string
}

// UpdateListingRequest replaces the files and metadata of an existing listing.
type UpdateListingRequest struct {
	PublishedFileID uint64
	AppID           uint32
	Filename        string
	PreviewFilename string
	Title           string
	Description     string
	Visibility      Visibility
	Tags            []string
	ImageWidth      int
	ImageHeight     int
}

// Listing is a published workshop entry as stored by the gateway.
type Listing struct {
	ID             uint64     `yaml:"id"`
	Owner          string     `yaml:"owner"`
	AppID          uint32     `yaml:"app_id"`
	Title          string     `yaml:"title"`
	Description    string     `yaml:"description"`
	Tags           []string   `yaml:"tags"`
	FileType       FileType   `yaml:"file_type"`
	Visibility     Visibility `yaml:"visibility"`
	CollectionType int        `yaml:"collection_type"`
	FileSize       int64      `yaml:"file_size"`
	FileSHA1       string     `yaml:"file_sha1"`
	PreviewSHA1    string     `yaml:"preview_sha1"`
	Revision       int        `yaml:"revision"`
	TimeCreated    time.Time  `yaml:"time_created"`
	TimeUpdated    time.Time  `yaml:"time_updated"`
}

// Clone returns a copy of the listing to avoid leaking internal references.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}

	cloned := *l
	cloned.Tags = slices.Clone(l.Tags)

	return &cloned
}
