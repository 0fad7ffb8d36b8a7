package workshop

// Event is a protocol event delivered by a platform connection.
type Event interface {
	event()
}

// ConnectedEvent reports the outcome of a connection attempt.
type ConnectedEvent struct {
	Result Result
}

// DisconnectedEvent reports that the connection is gone.
type DisconnectedEvent struct {
	// UserInitiated is true when the local side closed the connection.
	UserInitiated bool
}

// LoggedOnEvent reports the outcome of a logon attempt.
type LoggedOnEvent struct {
	Result         Result
	ExtendedResult Result
	// EmailDomain is set on AccountLogonDenied.
	EmailDomain string
}

// LoggedOffEvent reports that the platform ended the logged-on session.
type LoggedOffEvent struct {
	Result Result
}

// MachineAuthEvent carries a chunk of a device-trust (sentry) blob to persist.
type MachineAuthEvent struct {
	JobID           string
	FileName        string
	Offset          int64
	BytesToWrite    int
	Data            []byte
	OneTimePassword []byte
}

func (*ConnectedEvent) event()    {}
func (*DisconnectedEvent) event() {}
func (*LoggedOnEvent) event()     {}
func (*LoggedOffEvent) event()    {}
func (*MachineAuthEvent) event()  {}

// Payload returns the bytes that should be written, bounded by BytesToWrite.
func (e *MachineAuthEvent) Payload() []byte {
	n := e.BytesToWrite
	if n < 0 || n > len(e.Data) {
		n = len(e.Data)
	}

	return e.Data[:n]
}
