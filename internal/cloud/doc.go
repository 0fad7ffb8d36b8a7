// Package cloud uploads hashed content streams to platform cloud storage.
//
// Callers hash a stream with Hash, which rewinds it, and pass the digest and
// length to Uploader.Upload. Remote failures are reported as an unsuccessful
// upload rather than an error; errors are reserved for malformed local input.
package cloud
