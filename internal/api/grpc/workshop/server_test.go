package workshop

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	domain "github.com/oshokin/gmpublish/internal/domain/workshop"
)

// fakeService implements Service with overridable hooks.
type fakeService struct {
	// logOnFn handles LogOn when set.
	logOnFn func(ctx context.Context, details *domain.LogOnDetails, push domain.MachineAuthFunc) (*domain.LogOnResponse, error)
	// loggedOff receives tokens passed to LogOff.
	loggedOff chan string
	// deleteErr is returned from DeleteFile.
	deleteErr error
	// uploaded holds the bytes of the last upload.
	uploaded []byte
	// token is the session token seen by the last authorized call.
	token string
	// created is the last create request.
	created *domain.CreateListingRequest
	// updated is the last update request.
	updated *domain.UpdateListingRequest
}

func (f *fakeService) LogOn(
	ctx context.Context,
	details *domain.LogOnDetails,
	push domain.MachineAuthFunc,
) (*domain.LogOnResponse, error) {
	if f.logOnFn != nil {
		return f.logOnFn(ctx, details, push)
	}

	return &domain.LogOnResponse{Result: domain.ResultOK, SessionToken: "token"}, nil
}

func (f *fakeService) LogOff(_ context.Context, token string) {
	if f.loggedOff != nil {
		f.loggedOff <- token
	}
}

func (f *fakeService) DeleteFile(ctx context.Context, token string, _ uint32, _ string) error {
	f.token = token

	return f.deleteErr
}

func (f *fakeService) Upload(_ context.Context, token string, req *domain.UploadRequest) (bool, error) {
	f.token = token

	data, err := io.ReadAll(req.Stream)
	if err != nil {
		return false, err
	}

	f.uploaded = data

	return int64(len(data)) == req.Length, nil
}

func (f *fakeService) CreateListing(_ context.Context, token string, req *domain.CreateListingRequest) (uint64, error) {
	f.token = token
	f.created = req

	return 100001, nil
}

func (f *fakeService) UpdateListing(_ context.Context, token string, req *domain.UpdateListingRequest) error {
	f.token = token
	f.updated = req

	if req.PublishedFileID != 100001 {
		return domain.ErrPermissionDenied
	}

	return nil
}

// startServer serves the fake over an in-memory listener and returns a client.
func startServer(t *testing.T, service Service) *GatewayClient {
	t.Helper()

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	RegisterGatewayServer(server, NewServer(service))

	go func() {
		_ = server.Serve(listener)
	}()

	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return NewGatewayClient(conn)
}

// TestSession_LogOnAndLogOff walks a session through welcome, sentry push, logon and logoff.
func TestSession_LogOnAndLogOff(t *testing.T) {
	t.Parallel()

	loggedOff := make(chan string, 1)
	acks := make(chan *domain.MachineAuthResponse, 1)

	service := &fakeService{
		loggedOff: loggedOff,
		logOnFn: func(_ context.Context, details *domain.LogOnDetails, push domain.MachineAuthFunc) (*domain.LogOnResponse, error) {
			if details.Username != "alice" || details.MachineName != "desk" {
				return &domain.LogOnResponse{Result: domain.ResultInvalidPassword}, nil
			}

			ack, err := push(&domain.MachineAuthEvent{JobID: "job", FileName: "sentry.bin", BytesToWrite: 3, Data: []byte{1, 2, 3}})
			if err != nil {
				return nil, err
			}

			acks <- ack

			return &domain.LogOnResponse{Result: domain.ResultOK, SessionToken: "token"}, nil
		},
	}

	client := startServer(t, service)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := client.Session(ctx)
	require.NoError(t, err)

	frame, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, &domain.ConnectedEvent{Result: domain.ResultOK}, frame.Event())

	details := &domain.LogOnDetails{Username: "alice", Password: "secret", MachineName: "desk"}
	require.NoError(t, stream.Send(&ClientFrame{LogOn: NewLogOn(details)}))

	frame, err = stream.Recv()
	require.NoError(t, err)

	event, ok := frame.Event().(*domain.MachineAuthEvent)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, event.Payload())

	ack := &domain.MachineAuthResponse{JobID: event.JobID, BytesWritten: 3, FileSize: 3, Result: domain.ResultOK}
	require.NoError(t, stream.Send(&ClientFrame{MachineAuth: NewMachineAuthAck(ack)}))
	require.Equal(t, ack.JobID, (<-acks).JobID)

	frame, err = stream.Recv()
	require.NoError(t, err)
	require.NotNil(t, frame.LoggedOn)
	require.Equal(t, "token", frame.LoggedOn.SessionToken)
	require.Equal(t, domain.ResultOK, frame.Event().(*domain.LoggedOnEvent).Result)

	require.NoError(t, stream.Send(&ClientFrame{LogOff: new(LogOff)}))

	frame, err = stream.Recv()
	require.NoError(t, err)
	require.NotNil(t, frame.LoggedOff)
	require.Equal(t, "token", <-loggedOff)

	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)
}

// TestSession_RejectedLogOnEndsStream checks that a challenge closes the stream.
func TestSession_RejectedLogOnEndsStream(t *testing.T) {
	t.Parallel()

	service := &fakeService{
		logOnFn: func(context.Context, *domain.LogOnDetails, domain.MachineAuthFunc) (*domain.LogOnResponse, error) {
			return &domain.LogOnResponse{Result: domain.ResultAccountLogonDenied, EmailDomain: "example.com"}, nil
		},
	}

	client := startServer(t, service)

	stream, err := client.Session(context.Background())
	require.NoError(t, err)

	_, err = stream.Recv()
	require.NoError(t, err)

	require.NoError(t, stream.Send(&ClientFrame{LogOn: &LogOn{Username: "alice"}}))

	frame, err := stream.Recv()
	require.NoError(t, err)

	event, ok := frame.Event().(*domain.LoggedOnEvent)
	require.True(t, ok)
	require.Equal(t, domain.ResultAccountLogonDenied, event.Result)
	require.Equal(t, "example.com", event.EmailDomain)

	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)
}

// TestUpload_StreamsChunksWithToken verifies chunk reassembly and token propagation.
func TestUpload_StreamsChunksWithToken(t *testing.T) {
	t.Parallel()

	service := new(fakeService)
	client := startServer(t, service)

	ctx := WithSessionToken(context.Background(), "token")

	stream, err := client.Upload(ctx)
	require.NoError(t, err)

	content := bytes.Repeat([]byte("gma"), 1000)

	header := &UploadHeader{AppID: 4000, Name: domain.PackageCloudName, SHA1: make([]byte, 20), Size: int64(len(content))}
	require.NoError(t, stream.Send(&UploadChunk{Header: header, Data: content[:100]}))
	require.NoError(t, stream.Send(&UploadChunk{Data: content[100:]}))

	reply, err := stream.CloseAndRecv()
	require.NoError(t, err)
	require.True(t, reply.GetValue())
	require.Equal(t, content, service.uploaded)
	require.Equal(t, "token", service.token)
}

// TestUpload_RequiresHeader ensures a header-less upload is rejected.
func TestUpload_RequiresHeader(t *testing.T) {
	t.Parallel()

	client := startServer(t, new(fakeService))

	stream, err := client.Upload(context.Background())
	require.NoError(t, err)
	require.NoError(t, stream.Send(&UploadChunk{Data: []byte("x")}))

	_, err = stream.CloseAndRecv()
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

// TestUnaryCalls_MapErrors checks listing calls and domain error mapping.
func TestUnaryCalls_MapErrors(t *testing.T) {
	t.Parallel()

	service := &fakeService{deleteErr: domain.ErrNotFound}
	client := startServer(t, service)
	ctx := WithSessionToken(context.Background(), "token")

	_, err := client.DeleteFile(ctx, &DeleteFileRequest{AppID: 4000, Name: domain.IconCloudName})
	require.Equal(t, codes.NotFound, status.Code(err))
	require.ErrorIs(t, FromStatus(err), domain.ErrNotFound)

	_, err = client.DeleteFile(ctx, &DeleteFileRequest{AppID: 4000})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	create := &domain.CreateListingRequest{
		AppID:                4000,
		ConsumerAppID:        4000,
		CloudFilename:        domain.PackageCloudName,
		PreviewCloudFilename: domain.IconCloudName,
		Title:                "Chair",
		CollectionType:       2,
		Tags:                 []string{"fun"},
	}

	id, err := client.Publish(ctx, NewPublishRequest(create))
	require.NoError(t, err)
	require.EqualValues(t, 100001, id.GetValue())
	require.Equal(t, create, service.created)

	update := &domain.UpdateListingRequest{PublishedFileID: 100001, ImageWidth: 512, ImageHeight: 512}

	_, err = client.Update(ctx, NewUpdateRequest(update))
	require.NoError(t, err)
	require.Equal(t, 512, service.updated.ImageWidth)

	update.PublishedFileID = 7

	_, err = client.Update(ctx, NewUpdateRequest(update))
	require.Equal(t, codes.PermissionDenied, status.Code(err))
	require.ErrorIs(t, FromStatus(err), domain.ErrPermissionDenied)
}

// TestToStatus_Internal hides unknown errors behind codes.Internal.
func TestToStatus_Internal(t *testing.T) {
	t.Parallel()

	err := toStatus(errors.New("disk on fire"))
	require.Equal(t, codes.Internal, status.Code(err))
	require.NoError(t, toStatus(nil))
	require.Equal(t, err, FromStatus(err))
}
