//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	api "github.com/oshokin/gmpublish/internal/api/grpc/workshop"
	"github.com/oshokin/gmpublish/internal/config"
	"github.com/oshokin/gmpublish/internal/domain/workshop"
	"github.com/oshokin/gmpublish/internal/logger"
)

const (
	// eventBufferSize bounds the events queued between the reader goroutine and the consumer.
	eventBufferSize = 64
	// uploadChunkSize is the payload size of one upload message.
	uploadChunkSize = 64 << 10
)

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errNotConnected is returned when a session call is made without an open session.
	errNotConnected = errors.New("not connected")
	// errRequestRequired is returned when a nil request is passed.
	errRequestRequired = errors.New("request must be provided")
)

// Client wraps the workshop gateway API.
type Client struct {
	// conn is the underlying gRPC connection to the gateway.
	conn *grpc.ClientConn
	// api is the gateway client stub.
	api *api.GatewayClient

	// callTimeout is the default timeout for unary calls.
	callTimeout time.Duration
	// dialOptions are appended to the default dial options.
	dialOptions []grpc.DialOption

	// events carries session events to Wait.
	events chan workshop.Event
	// done is closed by Close to release the reader goroutine.
	done chan struct{}
	// closeOnce guards done.
	closeOnce sync.Once

	// mu guards the session fields below.
	mu sync.Mutex
	// stream is the open session stream, nil when disconnected.
	stream api.SessionClientStream
	// cancel aborts the open session stream.
	cancel context.CancelFunc
	// token authorizes cloud and listing calls after logon.
	token string
	// userClosed marks a disconnect requested by this side.
	userClosed bool
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithDialOptions appends gRPC dial options, for example a custom dialer.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

// Dial prepares a connection to the workshop gateway. No network traffic
// happens until Connect or another call is made.
// Note: this uses insecure transport credentials; the gateway is expected to
// run on a trusted network.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
		events:      make(chan workshop.Event, eventBufferSize),
		done:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(client)
	}

	dialOptions := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, client.dialOptions...)

	conn, err := grpc.NewClient(address, dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial workshop gateway: %w", err)
	}

	client.conn = conn
	client.api = api.NewGatewayClient(conn)

	return client, nil
}

// Close ends the session and releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	c.Disconnect()
	c.closeOnce.Do(func() {
		close(c.done)
	})

	return c.conn.Close()
}

// Connect opens a session stream. The outcome is reported as a ConnectedEvent.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return
	}

	streamCtx, cancel := context.WithCancel(ctx)

	stream, err := c.api.Session(streamCtx)
	if err != nil {
		cancel()
		logger.WarnKV(ctx, "Unable to open session", "error", err)
		c.emit(&workshop.ConnectedEvent{Result: workshop.ResultNoConnection})

		return
	}

	c.stream = stream
	c.cancel = cancel
	c.userClosed = false

	go c.receive(streamCtx, stream, cancel)
}

// receive translates server frames into events until the stream ends.
func (c *Client) receive(ctx context.Context, stream api.SessionClientStream, cancel context.CancelFunc) {
	defer cancel()

	welcomed := false

	for {
		frame, err := stream.Recv()
		if err != nil {
			userClosed := c.detach(stream)

			if !welcomed {
				logger.WarnKV(ctx, "Connection failed", "error", err)
				c.emit(&workshop.ConnectedEvent{Result: workshop.ResultNoConnection})

				return
			}

			if !errors.Is(err, io.EOF) && !userClosed {
				logger.DebugKV(ctx, "Session stream ended", "error", err)
			}

			c.emit(&workshop.DisconnectedEvent{UserInitiated: userClosed})

			return
		}

		if frame.Welcome != nil {
			welcomed = true
		}

		if frame.LoggedOn != nil && frame.LoggedOn.SessionToken != "" {
			c.mu.Lock()
			c.token = frame.LoggedOn.SessionToken
			c.mu.Unlock()
		}

		if event := frame.Event(); event != nil {
			c.emit(event)
		}
	}
}

// detach forgets the session if it is still the current one and reports
// whether the local side closed it.
func (c *Client) detach(stream api.SessionClientStream) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == stream {
		c.stream = nil
		c.cancel = nil
		c.token = ""
	}

	return c.userClosed
}

// emit queues an event unless the client is closed.
func (c *Client) emit(event workshop.Event) {
	select {
	case c.events <- event:
	case <-c.done:
	}
}

// Wait returns the next event, or false when none arrived within timeout.
func (c *Client) Wait(ctx context.Context, timeout time.Duration) (workshop.Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case event := <-c.events:
		return event, true
	case <-timer.C:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

// LogOn sends the logon details on the open session.
func (c *Client) LogOn(_ context.Context, details *workshop.LogOnDetails) error {
	if details == nil {
		return errRequestRequired
	}

	if err := c.send(&api.ClientFrame{LogOn: api.NewLogOn(details)}); err != nil {
		return fmt.Errorf("log on: %w", err)
	}

	return nil
}

// LogOff asks the gateway to end the logged-on session.
func (c *Client) LogOff(_ context.Context) error {
	c.mu.Lock()
	c.userClosed = true
	c.mu.Unlock()

	if err := c.send(&api.ClientFrame{LogOff: new(api.LogOff)}); err != nil {
		return fmt.Errorf("log off: %w", err)
	}

	return nil
}

// AcknowledgeMachineAuth answers a sentry update.
func (c *Client) AcknowledgeMachineAuth(_ context.Context, response *workshop.MachineAuthResponse) error {
	if response == nil {
		return errRequestRequired
	}

	if err := c.send(&api.ClientFrame{MachineAuth: api.NewMachineAuthAck(response)}); err != nil {
		return fmt.Errorf("acknowledge machine auth: %w", err)
	}

	return nil
}

// Disconnect closes the session stream if one is open.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.userClosed = true

	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Client) send(frame *api.ClientFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return errNotConnected
	}

	return c.stream.Send(frame)
}

// DeleteFile removes a cloud file.
func (c *Client) DeleteFile(ctx context.Context, appID uint32, name string) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request := &api.DeleteFileRequest{
		AppID: appID,
		Name:  name,
	}

	if _, err := c.api.DeleteFile(callCtx, request); err != nil {
		return fmt.Errorf("delete file: %w", api.FromStatus(err))
	}

	return nil
}

// UploadStream sends the request stream in chunks and returns the gateway verdict.
// Uploads are bounded by ctx only because their duration depends on size.
func (c *Client) UploadStream(ctx context.Context, req *workshop.UploadRequest) (bool, error) {
	if req == nil || req.Stream == nil {
		return false, errRequestRequired
	}

	uploadCtx, cancel := context.WithCancel(c.authorized(ctx))
	defer cancel()

	stream, err := c.api.Upload(uploadCtx)
	if err != nil {
		return false, fmt.Errorf("open upload: %w", api.FromStatus(err))
	}

	header := &api.UploadHeader{
		AppID: req.AppID,
		Name:  req.Name,
		SHA1:  req.SHA1,
		Size:  req.Length,
	}

	if err = stream.Send(&api.UploadChunk{Header: header}); err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("send upload header: %w", err)
	}

	buffer := make([]byte, uploadChunkSize)

	for err == nil {
		n, readErr := io.ReadFull(req.Stream, buffer)
		if n > 0 {
			err = stream.Send(&api.UploadChunk{Data: buffer[:n]})
		}

		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}

		if readErr != nil {
			return false, fmt.Errorf("read upload stream: %w", readErr)
		}
	}

	// A failed Send reports io.EOF; the real status comes from CloseAndRecv.
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("send upload chunk: %w", err)
	}

	reply, err := stream.CloseAndRecv()
	if err != nil {
		return false, fmt.Errorf("finish upload: %w", api.FromStatus(err))
	}

	return reply.GetValue(), nil
}

// CreateListing publishes a new listing and returns its id.
func (c *Client) CreateListing(ctx context.Context, req *workshop.CreateListingRequest) (uint64, error) {
	if req == nil {
		return 0, errRequestRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.Publish(callCtx, api.NewPublishRequest(req))
	if err != nil {
		return 0, fmt.Errorf("create listing: %w", api.FromStatus(err))
	}

	return response.GetValue(), nil
}

// UpdateListing replaces an existing listing.
func (c *Client) UpdateListing(ctx context.Context, req *workshop.UpdateListingRequest) error {
	if req == nil {
		return errRequestRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if _, err := c.api.Update(callCtx, api.NewUpdateRequest(req)); err != nil {
		return fmt.Errorf("update listing: %w", api.FromStatus(err))
	}

	return nil
}

// authorized attaches the current session token to ctx.
func (c *Client) authorized(ctx context.Context) context.Context {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	return api.WithSessionToken(ctx, token)
}

// callContext returns an authorized context with the client's call timeout if
// configured, otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = c.authorized(ctx)

	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
