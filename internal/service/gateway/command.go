package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"

	api "github.com/oshokin/gmpublish/internal/api/grpc/workshop"
	"github.com/oshokin/gmpublish/internal/config"
	"github.com/oshokin/gmpublish/internal/logger"
	repository "github.com/oshokin/gmpublish/internal/repository/listing"
)

// Options controls the workshop-gateway process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
}

var errUnknownLogLevel = errors.New("unknown log level")

// Run starts the gRPC server and blocks until context is canceled or server stops.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "workshop-gateway")

	settings, err := config.LoadGateway(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	level, ok := logger.ParseLogLevel(settings.LogLevel)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
	}

	// The gateway logs at its own level, independent of the process default.
	ctx = logger.ToContext(ctx, logger.FromContext(ctx).WithOptions(logger.WithLevel(level)))

	listenAddress := settings.ListenAddress
	if opts.ListenAddress != "" {
		listenAddress = opts.ListenAddress
	}

	repo := repository.NewFileRepository(settings.ListingsFile, settings.FirstListingID)
	svc := newService(settings.Accounts, repo)

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unaryLogger(ctx)),
		grpc.ChainStreamInterceptor(streamLogger(ctx)),
	)
	api.RegisterGatewayServer(grpcServer, api.NewServer(svc))

	logger.InfoKV(ctx, "Workshop gateway listening",
		"listen_address", listenAddress,
		"listings_file", settings.ListingsFile,
		"accounts", len(settings.Accounts))

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// unaryLogger hands the gateway logger to unary handlers and logs failed calls.
func unaryLogger(base context.Context) grpc.UnaryServerInterceptor {
	l := logger.FromContext(base)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx = logger.ToContext(ctx, l.With("method", info.FullMethod))

		resp, err := handler(ctx, req)
		if err != nil {
			logger.WarnKV(ctx, "Call failed", "error", err)
		}

		return resp, err
	}
}

// streamLogger hands the gateway logger to stream handlers.
func streamLogger(base context.Context) grpc.StreamServerInterceptor {
	l := logger.FromContext(base)

	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := logger.ToContext(stream.Context(), l.With("method", info.FullMethod))

		err := handler(srv, &loggedStream{ServerStream: stream, ctx: ctx})
		if err != nil {
			logger.WarnKV(ctx, "Stream failed", "error", err)
		}

		return err
	}
}

// loggedStream overrides the context of a server stream.
type loggedStream struct {
	grpc.ServerStream

	// ctx carries the scoped logger.
	ctx context.Context //nolint:containedctx // grpc.ServerStream exposes its context through a method.
}

func (s *loggedStream) Context() context.Context {
	return s.ctx
}
