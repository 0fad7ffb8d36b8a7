package workshop

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	domain "github.com/oshokin/gmpublish/internal/domain/workshop"
)

// SessionTokenKey is the metadata key carrying the session token.
const SessionTokenKey = "x-session-token"

// WithSessionToken attaches the session token to outgoing calls made with ctx.
func WithSessionToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx, SessionTokenKey, token)
}

// sessionToken extracts the session token from incoming metadata.
func sessionToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	values := md.Get(SessionTokenKey)
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

// toStatus maps domain errors to gRPC status errors.
func toStatus(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal

	switch {
	case errors.Is(err, domain.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrUnauthenticated):
		code = codes.Unauthenticated
	case errors.Is(err, domain.ErrPermissionDenied):
		code = codes.PermissionDenied
	case errors.Is(err, domain.ErrInvalidArgument):
		code = codes.InvalidArgument
	}

	return status.Error(code, err.Error())
}

// FromStatus maps gRPC status errors back to domain errors so callers can use errors.Is.
func FromStatus(err error) error {
	s, ok := status.FromError(err)
	if !ok || s.Code() == codes.OK {
		return err
	}

	var target error

	switch s.Code() {
	case codes.NotFound:
		target = domain.ErrNotFound
	case codes.Unauthenticated:
		target = domain.ErrUnauthenticated
	case codes.PermissionDenied:
		target = domain.ErrPermissionDenied
	case codes.InvalidArgument:
		target = domain.ErrInvalidArgument
	default:
		return err
	}

	return fmt.Errorf("%w: %s", target, s.Message())
}
