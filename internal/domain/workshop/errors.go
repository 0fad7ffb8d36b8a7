package workshop

import "errors"

// Errors shared by the gateway and its clients. The transport maps them to
// and from gRPC status codes.
var (
	// ErrNotFound is returned when a cloud file or listing does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is returned for calls without a valid session.
	ErrUnauthenticated = errors.New("not logged on")
	// ErrPermissionDenied is returned when the session does not own the resource.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidArgument is returned for malformed requests.
	ErrInvalidArgument = errors.New("invalid argument")
)
