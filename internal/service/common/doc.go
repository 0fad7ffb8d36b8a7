// Package common holds helpers shared by several services.
//
// Client is the publisher's connection to the workshop gateway. It runs the
// session stream on a background reader goroutine that turns server frames
// into domain events, and exposes the cloud and listing calls authorized by
// the session token received at logon.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
