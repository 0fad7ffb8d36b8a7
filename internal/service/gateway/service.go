package gateway

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // The platform identifies content and sentries by SHA-1.
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/gmpublish/internal/config"
	"github.com/oshokin/gmpublish/internal/domain/workshop"
	"github.com/oshokin/gmpublish/internal/logger"
	repo "github.com/oshokin/gmpublish/internal/repository/listing"
)

const (
	// sentrySize is the length of a freshly issued sentry blob.
	sentrySize = 2048
	// sentryChunks is the number of machine auth updates a sentry is split into.
	sentryChunks = 2
	// sentryFileName names the blob in machine auth updates.
	sentryFileName = "sentry.bin"
	// otpSize is the length of the one-time password attached to each update.
	otpSize = 8
)

var errMachineAuthRejected = errors.New("machine auth acknowledgment rejected")

// cloudKey identifies a cloud file of one account.
type cloudKey struct {
	owner string
	appID uint32
	name  string
}

// cloudFile is the verified metadata of an uploaded file.
type cloudFile struct {
	sha1 []byte
	size int64
}

// service emulates the workshop platform: accounts with guards, sessions,
// per-account cloud storage and listings.
// It is unexported to keep the transport decoupled from the implementation.
type service struct {
	// accounts maps usernames to their settings.
	accounts map[string]config.Account
	// listings persists published listings.
	listings repo.Repository
	// now returns the current time.
	now func() time.Time

	// mu protects the maps below.
	mu sync.Mutex
	// sessions maps session tokens to usernames.
	sessions map[string]string
	// trusted holds hex sentry hashes accepted instead of a guard code, per username.
	trusted map[string]map[string]struct{}
	// files holds uploaded cloud files.
	files map[cloudKey]cloudFile
}

// newService creates a service for the configured accounts backed by the listing repository.
func newService(accounts []config.Account, listings repo.Repository) *service {
	s := &service{
		accounts: make(map[string]config.Account, len(accounts)),
		listings: listings,
		now:      time.Now,
		sessions: make(map[string]string),
		trusted:  make(map[string]map[string]struct{}),
		files:    make(map[cloudKey]cloudFile),
	}

	for _, account := range accounts {
		s.accounts[account.Username] = account
	}

	return s
}

// LogOn checks credentials and guard codes. A guarded account that passes its
// challenge receives a fresh sentry before the logon reply.
func (s *service) LogOn(
	ctx context.Context,
	details *workshop.LogOnDetails,
	push workshop.MachineAuthFunc,
) (*workshop.LogOnResponse, error) {
	ctx = logger.WithKV(ctx, "username", details.Username)

	account, ok := s.accounts[details.Username]
	if !ok || account.Password != details.Password {
		logger.WarnKV(ctx, "Logon rejected", "reason", "invalid password")

		return &workshop.LogOnResponse{Result: workshop.ResultInvalidPassword}, nil
	}

	if account.Guard != config.GuardNone && !s.isTrusted(account.Username, details.SentryHash) {
		if denied := challenge(&account, details); denied != nil {
			logger.InfoKV(ctx, "Logon challenged", "result", denied.Result, "extended_result", denied.ExtendedResult)

			return denied, nil
		}

		if err := s.issueSentry(ctx, account.Username, push); err != nil {
			return nil, err
		}
	}

	token := uuid.NewString()

	s.mu.Lock()
	s.sessions[token] = account.Username
	s.mu.Unlock()

	logger.InfoKV(ctx, "Logged on", "machine", details.MachineName)

	return &workshop.LogOnResponse{
		Result:       workshop.ResultOK,
		SessionToken: token,
	}, nil
}

// challenge returns the denial for a missing or wrong guard code, or nil when the code matches.
func challenge(account *config.Account, details *workshop.LogOnDetails) *workshop.LogOnResponse {
	switch account.Guard {
	case config.GuardEmail:
		if details.AuthCode == account.GuardCode {
			return nil
		}

		response := &workshop.LogOnResponse{
			Result:      workshop.ResultAccountLogonDenied,
			EmailDomain: emailDomain(account.Email),
		}

		if details.AuthCode != "" {
			response.ExtendedResult = workshop.ResultInvalidLoginAuthCode
		}

		return response
	case config.GuardTwoFactor:
		if details.TwoFactorCode == account.GuardCode {
			return nil
		}

		response := &workshop.LogOnResponse{
			Result: workshop.ResultAccountLoginDeniedNeedTwoFactor,
		}

		if details.TwoFactorCode != "" {
			response.ExtendedResult = workshop.ResultTwoFactorCodeMismatch
		}

		return response
	default:
		return nil
	}
}

// issueSentry pushes a random sentry in chunks and trusts the hash reported in the last acknowledgment.
func (s *service) issueSentry(ctx context.Context, username string, push workshop.MachineAuthFunc) error {
	blob := make([]byte, sentrySize)
	if _, err := rand.Read(blob); err != nil {
		return fmt.Errorf("generate sentry: %w", err)
	}

	var (
		chunkSize = sentrySize / sentryChunks
		digest    []byte
	)

	for offset := 0; offset < sentrySize; offset += chunkSize {
		end := min(offset+chunkSize, sentrySize)

		otp := make([]byte, otpSize)
		if _, err := rand.Read(otp); err != nil {
			return fmt.Errorf("generate one-time password: %w", err)
		}

		event := &workshop.MachineAuthEvent{
			JobID:           uuid.NewString(),
			FileName:        sentryFileName,
			Offset:          int64(offset),
			BytesToWrite:    end - offset,
			Data:            blob[offset:end],
			OneTimePassword: otp,
		}

		ack, err := push(event)
		if err != nil {
			return fmt.Errorf("push sentry: %w", err)
		}

		if err = verifyAck(event, ack); err != nil {
			logger.WarnKV(ctx, "Sentry not trusted", "error", err)

			return nil
		}

		digest = ack.SentryHash
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hashes, ok := s.trusted[username]
	if !ok {
		hashes = make(map[string]struct{})
		s.trusted[username] = hashes
	}

	hashes[hex.EncodeToString(digest)] = struct{}{}

	logger.DebugKV(ctx, "Sentry trusted", "sha1", hex.EncodeToString(digest))

	return nil
}

// verifyAck checks that the acknowledgment echoes the update and reports success.
func verifyAck(event *workshop.MachineAuthEvent, ack *workshop.MachineAuthResponse) error {
	switch {
	case ack.JobID != event.JobID:
		return fmt.Errorf("%w: job id %q, want %q", errMachineAuthRejected, ack.JobID, event.JobID)
	case ack.Result != workshop.ResultOK:
		return fmt.Errorf("%w: result %s", errMachineAuthRejected, ack.Result)
	case ack.Offset != event.Offset || ack.BytesWritten != event.BytesToWrite:
		return fmt.Errorf("%w: wrote %d bytes at %d", errMachineAuthRejected, ack.BytesWritten, ack.Offset)
	case !bytes.Equal(ack.OneTimePassword, event.OneTimePassword):
		return fmt.Errorf("%w: one-time password mismatch", errMachineAuthRejected)
	case len(ack.SentryHash) != workshop.SHA1Size:
		return fmt.Errorf("%w: sentry hash missing", errMachineAuthRejected)
	default:
		return nil
	}
}

func (s *service) isTrusted(username string, sentryHash []byte) bool {
	if len(sentryHash) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.trusted[username][hex.EncodeToString(sentryHash)]

	return ok
}

// LogOff forgets the session.
func (s *service) LogOff(ctx context.Context, token string) {
	s.mu.Lock()
	username, ok := s.sessions[token]
	delete(s.sessions, token)
	s.mu.Unlock()

	if ok {
		logger.InfoKV(ctx, "Logged off", "username", username)
	}
}

// DeleteFile removes a cloud file of the session's account.
func (s *service) DeleteFile(ctx context.Context, token string, appID uint32, name string) error {
	username, err := s.authorize(token)
	if err != nil {
		return err
	}

	key := cloudKey{owner: username, appID: appID, name: name}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[key]; !ok {
		return fmt.Errorf("cloud file %s: %w", name, workshop.ErrNotFound)
	}

	delete(s.files, key)

	logger.InfoKV(ctx, "Cloud file deleted", "username", username, "name", name)

	return nil
}

// Upload stores a cloud file if its content matches the declared length and SHA-1.
func (s *service) Upload(ctx context.Context, token string, req *workshop.UploadRequest) (bool, error) {
	username, err := s.authorize(token)
	if err != nil {
		return false, err
	}

	if req.Name == "" || len(req.SHA1) != workshop.SHA1Size || req.Length < 0 {
		return false, fmt.Errorf("%w: upload needs a name, a SHA-1 and a length", workshop.ErrInvalidArgument)
	}

	hasher := sha1.New() //nolint:gosec // See import.

	size, err := io.Copy(hasher, io.LimitReader(req.Stream, req.Length+1))
	if err != nil {
		return false, fmt.Errorf("receive %s: %w", req.Name, err)
	}

	ctx = logger.WithFields(ctx, "username", username, "name", req.Name)

	if size != req.Length {
		logger.WarnKV(ctx, "Upload rejected", "reason", "length mismatch", "declared", req.Length, "received", size)

		return false, nil
	}

	digest := hasher.Sum(nil)
	if !bytes.Equal(digest, req.SHA1) {
		logger.WarnKV(ctx, "Upload rejected", "reason", "sha1 mismatch")

		return false, nil
	}

	s.mu.Lock()
	s.files[cloudKey{owner: username, appID: req.AppID, name: req.Name}] = cloudFile{sha1: digest, size: size}
	s.mu.Unlock()

	logger.InfoKV(ctx, "Cloud file stored", "size", size)

	return true, nil
}

// CreateListing publishes the session's cloud files as a new listing.
func (s *service) CreateListing(ctx context.Context, token string, req *workshop.CreateListingRequest) (uint64, error) {
	username, err := s.authorize(token)
	if err != nil {
		return 0, err
	}

	content, preview, err := s.cloudPair(username, req.AppID, req.CloudFilename, req.PreviewCloudFilename)
	if err != nil {
		return 0, err
	}

	now := s.now()
	listing := &workshop.Listing{
		Owner:          username,
		AppID:          req.ConsumerAppID,
		Title:          req.Title,
		Description:    req.Description,
		Tags:           req.Tags,
		FileType:       req.FileType,
		Visibility:     req.Visibility,
		CollectionType: req.CollectionType,
		FileSize:       content.size,
		FileSHA1:       hex.EncodeToString(content.sha1),
		PreviewSHA1:    hex.EncodeToString(preview.sha1),
		Revision:       1,
		TimeCreated:    now,
		TimeUpdated:    now,
	}

	id, err := s.listings.Create(ctx, listing)
	if err != nil {
		return 0, fmt.Errorf("create listing: %w", err)
	}

	logger.InfoKV(ctx, "Listing created", "username", username, "id", id, "title", req.Title)

	return id, nil
}

// UpdateListing replaces files and metadata of a listing owned by the session's account.
func (s *service) UpdateListing(ctx context.Context, token string, req *workshop.UpdateListingRequest) error {
	username, err := s.authorize(token)
	if err != nil {
		return err
	}

	listing, err := s.listings.Get(ctx, req.PublishedFileID)
	if err != nil {
		return fmt.Errorf("load listing %d: %w", req.PublishedFileID, err)
	}

	if listing.Owner != username {
		return fmt.Errorf("listing %d: %w", req.PublishedFileID, workshop.ErrPermissionDenied)
	}

	content, preview, err := s.cloudPair(username, req.AppID, req.Filename, req.PreviewFilename)
	if err != nil {
		return err
	}

	listing.Title = req.Title
	listing.Description = req.Description
	listing.Tags = req.Tags
	listing.Visibility = req.Visibility
	listing.FileSize = content.size
	listing.FileSHA1 = hex.EncodeToString(content.sha1)
	listing.PreviewSHA1 = hex.EncodeToString(preview.sha1)
	listing.Revision++
	listing.TimeUpdated = s.now()

	if err = s.listings.Update(ctx, listing); err != nil {
		return fmt.Errorf("update listing: %w", err)
	}

	logger.InfoKV(ctx, "Listing updated", "username", username, "id", listing.ID, "revision", listing.Revision)

	return nil
}

// authorize resolves a session token to its username.
func (s *service) authorize(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username, ok := s.sessions[token]
	if !ok {
		return "", workshop.ErrUnauthenticated
	}

	return username, nil
}

// cloudPair looks up the content and preview files a listing is built from.
func (s *service) cloudPair(owner string, appID uint32, contentName, previewName string) (cloudFile, cloudFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, ok := s.files[cloudKey{owner: owner, appID: appID, name: contentName}]
	if !ok {
		return cloudFile{}, cloudFile{}, fmt.Errorf("cloud file %s: %w", contentName, workshop.ErrNotFound)
	}

	preview, ok := s.files[cloudKey{owner: owner, appID: appID, name: previewName}]
	if !ok {
		return cloudFile{}, cloudFile{}, fmt.Errorf("cloud file %s: %w", previewName, workshop.ErrNotFound)
	}

	return content, preview, nil
}

// emailDomain returns the part of the address after "@".
func emailDomain(email string) string {
	_, domain, found := strings.Cut(email, "@")
	if !found {
		return ""
	}

	return domain
}
