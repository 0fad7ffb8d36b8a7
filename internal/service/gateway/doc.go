// Package gateway runs a local stand-in for the workshop hosting platform.
//
// It serves the workshop.v1.Gateway API for the accounts listed in its
// settings file. Guarded accounts are challenged for an email or two-factor
// code until they present a sentry issued after a successful challenge.
// Cloud files live in memory for the lifetime of the process; listings are
// persisted to a YAML file.
package gateway
