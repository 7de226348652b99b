package sasl

import "context"

// ParamFlags carries carrier framing and behavior bits.
type ParamFlags uint8

const (
	// FlagBase64 means every turn (outgoing and incoming) is base64-framed.
	// Carriers that transport raw binary (some LDAP SASL binds) leave it
	// unset and use FramingBinary throughout.
	FlagBase64 ParamFlags = 1 << iota
)

// CarrierParams is the contract a carrier protocol (IMAP, SMTP, POP3,
// LDAP) implements to bind the driver to its wire. It is supplied once per
// SaslSession and never mutated by the driver.
type CarrierParams struct {
	// Service is the carrier's textual service identifier, e.g. "imap",
	// "smtp", "ldap". The driver does not copy it into Credentials; the
	// GSSAPI and DIGEST-MD5 primitives read Credentials.Service only.
	Service string

	// DefMechs is the default preferred-mechanism bitmap, substituted by
	// ParseAuthOption("*").
	DefMechs Mech

	// MaxIRLen caps the combined length of mechanism name + encoded initial
	// response. 0 means no limit.
	MaxIRLen int

	// ContCode is the result code meaning "server wants another turn".
	ContCode int

	// FinalCode is the result code meaning "authentication succeeded".
	FinalCode int

	// Flags carries framing/behavior bits (FlagBase64).
	Flags ParamFlags

	// SendAuth emits the initial AUTH command; data may be empty (no
	// initial response was sent).
	SendAuth func(ctx context.Context, mech string, data string) error

	// ContAuth emits a continuation response.
	ContAuth func(ctx context.Context, mech string, data string) error

	// CancelAuth emits the mechanism-specific cancellation, used when a
	// mechanism primitive reports BadServerEncoding.
	CancelAuth func(ctx context.Context, mech string) error

	// GetMessage retrieves the last-seen server data as opaque bytes,
	// already separated from wire framing by the carrier (e.g. the IMAP
	// continuation line content after "+ ").
	GetMessage func(ctx context.Context) (string, error)
}

// Framing returns the Framing this CarrierParams requests.
func (p *CarrierParams) Framing() Framing {
	if p.Flags&FlagBase64 != 0 {
		return FramingBase64
	}
	return FramingBinary
}
