package workshop

import "fmt"

// Result is a platform result code attached to connection, logon and logoff outcomes.
type Result int

// Result codes understood by the publisher. Values follow the platform's
// EResult numbering and travel unchanged on the wire.
const (
	ResultInvalid                         Result = 0
	ResultOK                              Result = 1
	ResultFail                            Result = 2
	ResultNoConnection                    Result = 3
	ResultInvalidPassword                 Result = 5
	ResultLoggedInElsewhere               Result = 6
	ResultAccessDenied                    Result = 15
	ResultServiceUnavailable              Result = 20
	ResultAccountLogonDenied              Result = 63
	ResultInvalidLoginAuthCode            Result = 65
	ResultAccountLoginDeniedNeedTwoFactor Result = 85
	ResultTwoFactorCodeMismatch           Result = 88
)

// String returns a human-readable name of the result code.
func (r Result) String() string {
	switch r {
	case ResultInvalid:
		return "Invalid"
	case ResultOK:
		return "OK"
	case ResultFail:
		return "Fail"
	case ResultNoConnection:
		return "NoConnection"
	case ResultInvalidPassword:
		return "InvalidPassword"
	case ResultAccessDenied:
		return "AccessDenied"
	case ResultServiceUnavailable:
		return "ServiceUnavailable"
	case ResultAccountLogonDenied:
		return "AccountLogonDenied"
	case ResultAccountLoginDeniedNeedTwoFactor:
		return "AccountLoginDeniedNeedTwoFactor"
	case ResultInvalidLoginAuthCode:
		return "InvalidLoginAuthCode"
	case ResultTwoFactorCodeMismatch:
		return "TwoFactorCodeMismatch"
	case ResultLoggedInElsewhere:
		return "LoggedInElsewhere"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// CodeKind identifies which second-factor code the platform asked for.
type CodeKind int

const (
	// CodeEmail is the code mailed to the account address.
	CodeEmail CodeKind = iota + 1
	// CodeTwoFactor is the time-based code from an authenticator app.
	CodeTwoFactor
)

// String returns a human-readable name of the code kind.
func (k CodeKind) String() string {
	switch k {
	case CodeEmail:
		return "email"
	case CodeTwoFactor:
		return "two-factor"
	default:
		return fmt.Sprintf("CodeKind(%d)", int(k))
	}
}

// Challenge describes a credential challenge presented to the user.
type Challenge struct {
	// Kind is the code the platform expects on the next logon.
	Kind CodeKind
	// EmailDomain hints where an email code was sent. Empty for two-factor challenges.
	EmailDomain string
}
