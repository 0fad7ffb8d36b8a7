// Package workshop implements the workshop.v1.Gateway gRPC API.
//
// The service descriptor, client stubs and wire messages are written by hand.
// Messages travel with the "cbor" codec registered by this package: request
// and frame structs are CBOR encoded, replies use protobuf well-known types.
// Server adapts a business Service to the API and maps domain errors to
// status codes. Calls made after logon carry the session token in metadata.
package workshop
