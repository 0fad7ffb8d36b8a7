package workshop

// LogOnDetails is sent to the platform for every logon attempt.
type LogOnDetails struct {
	Username      string
	Password      string
	AuthCode      string
	TwoFactorCode string
	// SentryHash is the SHA-1 of the stored sentry file, nil on the first ever logon.
	SentryHash  []byte
	MachineName string
}

// MachineAuthResponse acknowledges a MachineAuthEvent.
type MachineAuthResponse struct {
	JobID           string
	FileName        string
	Offset          int64
	BytesWritten    int
	FileSize        int64
	Result          Result
	LastError       int
	OneTimePassword []byte
	SentryHash      []byte
}

// LogOnResponse is the platform's answer to a logon attempt.
type LogOnResponse struct {
	Result         Result
	ExtendedResult Result
	EmailDomain    string
	// SessionToken authorizes cloud and listing calls. Set only when Result is ResultOK.
	SessionToken string
}

// MachineAuthFunc pushes a sentry chunk to the client and waits for its acknowledgment.
type MachineAuthFunc func(event *MachineAuthEvent) (*MachineAuthResponse, error)
