// Package session drives the connection and authentication state machine of
// one publishing run.
//
// Manager polls the connection for events with a bounded wait and handles
// them one at a time. It answers credential challenges through a Prompter,
// persists sentry updates through a TrustStore and, once logged on, runs the
// publish pipeline exactly once before logging off. Disconnects are retried
// after a fixed delay until the session reaches LoggedOff or Failed; later
// disconnects are ignored.
package session
