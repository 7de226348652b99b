package sasl

// State is one point in the authentication driver's state machine. The
// zero value (Stop) is both the initial and terminal state.
type State int

const (
	Stop State = iota
	Plain
	Login
	LoginPasswd
	External
	CramMd5
	DigestMd5
	DigestMd5Resp
	Ntlm
	NtlmType2Msg
	Gssapi
	GssapiToken
	GssapiNoData
	OAuth2
	OAuth2Resp
	Scram
	ScramServerFirst
	Cancel
	Final
)

var stateNames = map[State]string{
	Stop:             "Stop",
	Plain:            "Plain",
	Login:            "Login",
	LoginPasswd:      "LoginPasswd",
	External:         "External",
	CramMd5:          "CramMd5",
	DigestMd5:        "DigestMd5",
	DigestMd5Resp:    "DigestMd5Resp",
	Ntlm:             "Ntlm",
	NtlmType2Msg:     "NtlmType2Msg",
	Gssapi:           "Gssapi",
	GssapiToken:      "GssapiToken",
	GssapiNoData:     "GssapiNoData",
	OAuth2:           "OAuth2",
	OAuth2Resp:       "OAuth2Resp",
	Scram:            "Scram",
	ScramServerFirst: "ScramServerFirst",
	Cancel:           "Cancel",
	Final:            "Final",
}

// String returns the debug name of the state, used by logging only.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Progress reports where the driver left off after a Start or Continue call.
type Progress int

const (
	// Idle means no mechanism was chosen and nothing was sent; the caller
	// should consult Diagnostics.
	Idle Progress = iota
	// InProgress means a message was sent and more turns are expected.
	InProgress
	// Done means the session reached a terminal outcome (success or
	// failure); Result carries which.
	Done
)

func (p Progress) String() string {
	switch p {
	case Idle:
		return "Idle"
	case InProgress:
		return "InProgress"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// Result is the terminal outcome of a session once Progress reaches Done.
type Result int

const (
	// ResultNone applies while Progress != Done.
	ResultNone Result = iota
	ResultOK
	ResultDenied
)

func (r Result) String() string {
	switch r {
	case ResultNone:
		return "None"
	case ResultOK:
		return "OK"
	case ResultDenied:
		return "Denied"
	default:
		return "Unknown"
	}
}

// exemptFromContcodeGate reports whether state is one of the two states
// exempt from the strict contcode gate in Continue: Cancel re-enters Start
// unconditionally, and OAuth2Resp evaluates the server code itself against
// both contcode and finalcode.
func exemptFromContcodeGate(s State) bool {
	return s == Cancel || s == OAuth2Resp
}
