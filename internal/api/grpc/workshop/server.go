package workshop

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	domain "github.com/oshokin/gmpublish/internal/domain/workshop"
)

// Service abstracts the platform operations the transport layer depends on.
type Service interface {
	LogOn(ctx context.Context, details *domain.LogOnDetails, push domain.MachineAuthFunc) (*domain.LogOnResponse, error)
	LogOff(ctx context.Context, token string)
	DeleteFile(ctx context.Context, token string, appID uint32, name string) error
	Upload(ctx context.Context, token string, req *domain.UploadRequest) (bool, error)
	CreateListing(ctx context.Context, token string, req *domain.CreateListingRequest) (uint64, error)
	UpdateListing(ctx context.Context, token string, req *domain.UpdateListingRequest) error
}

var errUnexpectedFrame = errors.New("unexpected frame")

// Server implements the workshop.v1.Gateway API.
type Server struct {
	// service provides the platform behaviour.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Session greets the client, handles one logon and keeps the session open until logoff.
// A rejected logon ends the stream, so the client has to reconnect before retrying.
func (s *Server) Session(stream SessionServerStream) error {
	ctx := stream.Context()

	welcome := &ServerFrame{
		Welcome: &Welcome{Result: int32(domain.ResultOK)},
	}

	if err := stream.Send(welcome); err != nil {
		return err
	}

	var token string

	defer func() {
		if token != "" {
			s.service.LogOff(ctx, token)
		}
	}()

	for {
		frame, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		switch {
		case frame.LogOn != nil:
			if token != "" {
				return status.Error(codes.FailedPrecondition, "already logged on")
			}

			response, logOnErr := s.service.LogOn(ctx, frame.LogOn.Details(), machineAuthPusher(stream))
			if logOnErr != nil {
				return toStatus(logOnErr)
			}

			loggedOn := &ServerFrame{
				LoggedOn: &LoggedOn{
					Result:         int32(response.Result),         //nolint:gosec // Result codes are small.
					ExtendedResult: int32(response.ExtendedResult), //nolint:gosec // Result codes are small.
					EmailDomain:    response.EmailDomain,
					SessionToken:   response.SessionToken,
				},
			}

			if err = stream.Send(loggedOn); err != nil {
				return err
			}

			if response.Result != domain.ResultOK {
				return nil
			}

			token = response.SessionToken
		case frame.LogOff != nil:
			if token == "" {
				return status.Error(codes.FailedPrecondition, "not logged on")
			}

			s.service.LogOff(ctx, token)
			token = ""

			return stream.Send(&ServerFrame{LoggedOff: &LoggedOff{Result: int32(domain.ResultOK)}})
		default:
			return status.Error(codes.InvalidArgument, errUnexpectedFrame.Error())
		}
	}
}

// machineAuthPusher sends a sentry chunk on the stream and waits for the matching acknowledgment.
func machineAuthPusher(stream SessionServerStream) domain.MachineAuthFunc {
	return func(event *domain.MachineAuthEvent) (*domain.MachineAuthResponse, error) {
		if err := stream.Send(&ServerFrame{MachineAuth: newMachineAuthUpdate(event)}); err != nil {
			return nil, fmt.Errorf("send machine auth: %w", err)
		}

		frame, err := stream.Recv()
		if err != nil {
			return nil, fmt.Errorf("receive machine auth ack: %w", err)
		}

		if frame.MachineAuth == nil {
			return nil, fmt.Errorf("%w: %w: want machine auth ack", domain.ErrInvalidArgument, errUnexpectedFrame)
		}

		return frame.MachineAuth.Response(), nil
	}
}

// Upload receives a header chunk followed by data chunks and stores the file.
func (s *Server) Upload(stream UploadServerStream) error {
	ctx := stream.Context()

	first, err := stream.Recv()
	if errors.Is(err, io.EOF) {
		return status.Error(codes.InvalidArgument, "upload header is required")
	}

	if err != nil {
		return err
	}

	header := first.Header
	if header == nil {
		return status.Error(codes.InvalidArgument, "upload header is required")
	}

	request := &domain.UploadRequest{
		Name:   header.Name,
		AppID:  header.AppID,
		SHA1:   header.SHA1,
		Length: header.Size,
		Stream: &chunkReader{
			stream:  stream,
			pending: first.Data,
		},
	}

	ok, err := s.service.Upload(ctx, sessionToken(ctx), request)
	if err != nil {
		return toStatus(err)
	}

	return stream.SendAndClose(wrapperspb.Bool(ok))
}

// DeleteFile removes a cloud file owned by the session.
func (s *Server) DeleteFile(ctx context.Context, req *DeleteFileRequest) (*emptypb.Empty, error) {
	if req == nil || req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "file name is required")
	}

	if err := s.service.DeleteFile(ctx, sessionToken(ctx), req.AppID, req.Name); err != nil {
		return nil, toStatus(err)
	}

	return new(emptypb.Empty), nil
}

// Publish creates a listing.
func (s *Server) Publish(ctx context.Context, req *PublishRequest) (*wrapperspb.UInt64Value, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	if req.CloudFilename == "" || req.PreviewCloudFilename == "" {
		return nil, status.Error(codes.InvalidArgument, "cloud file names are required")
	}

	id, err := s.service.CreateListing(ctx, sessionToken(ctx), toDomainCreate(req))
	if err != nil {
		return nil, toStatus(err)
	}

	return wrapperspb.UInt64(id), nil
}

// Update replaces an existing listing.
func (s *Server) Update(ctx context.Context, req *UpdateRequest) (*emptypb.Empty, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	if req.PublishedFileID == 0 {
		return nil, status.Error(codes.InvalidArgument, "published file id is required")
	}

	if err := s.service.UpdateListing(ctx, sessionToken(ctx), toDomainUpdate(req)); err != nil {
		return nil, toStatus(err)
	}

	return new(emptypb.Empty), nil
}

// chunkReader exposes the data chunks of an upload stream as an io.Reader.
type chunkReader struct {
	// stream yields the remaining chunks.
	stream UploadServerStream
	// pending holds unread bytes of the current chunk.
	pending []byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		chunk, err := r.stream.Recv()
		if err != nil {
			return 0, err
		}

		r.pending = chunk.Data
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]

	return n, nil
}
