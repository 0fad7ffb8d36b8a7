// Package sentry persists the device-trust token issued by the platform.
//
// The token is a raw byte file mutated by partial writes at offsets chosen by
// the server. After each write the SHA-1 of the whole file is returned so the
// caller can acknowledge it; the same digest is presented on later logons.
// Access is serialized with an advisory lock on a sidecar ".lock" file.
package sentry
