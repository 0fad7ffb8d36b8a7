// Package workshop contains the domain types shared by the publisher and the
// gateway: platform result codes, session events, logon details, cloud upload
// requests and workshop listings.
//
// Events form a closed set. Consumers switch over the concrete pointer types
// (ConnectedEvent, DisconnectedEvent, LoggedOnEvent, LoggedOffEvent,
// MachineAuthEvent) instead of registering per-event callbacks.
package workshop
