// Package mech implements the individual SASL mechanism primitives
// (PLAIN, LOGIN, CRAM-MD5, DIGEST-MD5, NTLM, GSSAPI, OAUTHBEARER, XOAUTH2,
// SCRAM-SHA-1/256, EXTERNAL) consumed by the driver in package sasl as
// opaque transducers. Each primitive owns its own wire format and crypto
// back-end; the driver only ever calls Supported, InitialResponse, and
// Continue.
package mech

// Credentials bundles everything a mechanism primitive might need to
// produce a response. Not every field applies to every mechanism: PLAIN
// and LOGIN use Username/Password, EXTERNAL needs neither, OAUTHBEARER and
// XOAUTH2 use BearerToken, NTLM uses Username/Password, and GSSAPI and
// DIGEST-MD5 use Username/Password/Service/Host.
type Credentials struct {
	Username    string
	Password    string
	AuthzID     string
	BearerToken string
	Service     string // GSSAPI/DIGEST-MD5 service name, e.g. "imap"
	Host        string // GSSAPI target host, for service principal construction
	MutualAuth  bool   // GSSAPI-only: request mutual authentication
}

// Capabilities reports which optional mechanism back-ends are compiled in
// and/or available on the running platform. The selector consults this
// before offering DIGEST-MD5, CRAM-MD5, NTLM, GSSAPI, or SCRAM.
type Capabilities struct {
	DigestMd5   bool
	Ntlm        bool
	Gssapi      bool
	ScramSha1   bool
	ScramSha256 bool
}

// ErrNeedServerData is returned by InitialResponse when the mechanism has
// no initial-response form and must wait for the first server challenge.
var ErrNeedServerData = errNeedServerData{}

type errNeedServerData struct{}

func (errNeedServerData) Error() string { return "mechanism requires server data first" }

// ErrBadServerData marks a server challenge the mechanism could not
// decode (a garbled NTLM Type 2 message, an unparsable SCRAM
// server-first). The driver recovers from it by cancelling the mechanism
// and falling back to the next one; wrap it with fmt.Errorf("...: %w").
var ErrBadServerData = errBadServerData{}

type errBadServerData struct{}

func (errBadServerData) Error() string { return "server data not decodable by mechanism" }

// Primitive is the capability record for one mechanism: a tagged variant
// in the sense that each concrete type below plugs into the same shape
// without a type switch in the driver.
type Primitive interface {
	// Name is the registry name of this mechanism, e.g. "CRAM-MD5".
	Name() string

	// RequiresUsername reports whether a username is mandatory before this
	// mechanism can be offered (every mechanism except EXTERNAL).
	RequiresUsername() bool

	// Supported reports whether creds and caps satisfy this mechanism's
	// prerequisites (compiled-in support, platform library, a configured
	// token, etc).
	Supported(creds Credentials, caps Capabilities) bool

	// InitialResponse attempts to build the first client message without
	// having seen any server data. Returns ErrNeedServerData for
	// mechanisms that must wait for the first server challenge (LOGIN,
	// CRAM-MD5, DIGEST-MD5); callers should treat a nil, nil return as
	// "empty but valid IR".
	InitialResponse(creds Credentials) ([]byte, error)

	// Continue consumes the server's decoded turn data and returns the
	// next outgoing payload. turn is the driver's 0-based count of
	// Continue calls already made for this mechanism; a turn in which the
	// driver sent the first message because no IR went out is counted
	// too, so a mechanism with an initial-response form sees turn 1 on its
	// first challenge in that case and turn 0 when an IR was sent.
	Continue(turn int, serverData []byte, creds Credentials) ([]byte, error)
}
