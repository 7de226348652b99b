package sasl

import "github.com/AtelierNeon/gosasl/pkg/sasl/mech"

// Credentials is re-exported from package mech so callers of package sasl
// never need to import the mechanism package directly.
type Credentials = mech.Credentials

// Capabilities is re-exported from package mech for the same reason.
type Capabilities = mech.Capabilities

// HTTPAuthFlag selects a default mechanism preference bitmap the way the
// carrier's own auth-option configuration (e.g. an HTTP-style "--anyauth")
// would.
type HTTPAuthFlag uint8

const (
	HTTPAuthBasic HTTPAuthFlag = 1 << iota
	HTTPAuthDigest
	HTTPAuthNTLM
	HTTPAuthBearer
	HTTPAuthNegotiate
)

// DefaultsForHTTPAuthFlags maps the carrier's coarse auth-style flags to a
// preferred-mechanism bitmap: Basic to PLAIN+LOGIN, Digest to DIGEST-MD5,
// NTLM to NTLM, Bearer to OAUTHBEARER+XOAUTH2, Negotiate to GSSAPI.
func DefaultsForHTTPAuthFlags(flags HTTPAuthFlag) Mech {
	var m Mech
	if flags&HTTPAuthBasic != 0 {
		m |= MechPlain | MechLogin
	}
	if flags&HTTPAuthDigest != 0 {
		m |= MechDigestMd5
	}
	if flags&HTTPAuthNTLM != 0 {
		m |= MechNtlm
	}
	if flags&HTTPAuthBearer != 0 {
		m |= MechOAuthBearer | MechXOAuth2
	}
	if flags&HTTPAuthNegotiate != 0 {
		m |= MechGssapi
	}
	return m
}

// SaslSession is one authentication attempt: created once per connection
// authentication cycle, mutated only by the driver, and reset to Stop at
// completion.
type SaslSession struct {
	// Params binds this session to its carrier protocol; never mutated.
	Params *CarrierParams

	// Caps reports which optional mechanism back-ends are usable.
	Caps Capabilities

	// state is the current point in the driver's state machine. Only the
	// driver's setState may write it.
	state State

	// authmechs is the bitmap of server-offered mechanisms, shrunk by the
	// driver on a Cancel restart.
	authmechs Mech

	// prefmech is the bitmap of client-preferred mechanisms.
	prefmech Mech

	// authused is the currently selected mechanism; at most one bit set.
	authused Mech

	// curmech is the textual name of authused, handed to carrier callbacks.
	curmech string

	// curPrimitive is the live mech.Primitive instance for authused,
	// carrying any per-mechanism turn state (SCRAM nonce, NTLM/GSSAPI
	// context) across Continue calls.
	curPrimitive mech.Primitive

	// resetprefs is a sticky flag consumed on the first ParseAuthOption
	// call of a parsing cycle.
	resetprefs bool

	// mutualAuth is the GSSAPI-only mutual-authentication toggle.
	mutualAuth bool

	// forceIR, when true, makes the driver compute an initial response
	// even for mechanisms the carrier would not normally precompute one
	// for, so long as it fits within Params.MaxIRLen.
	forceIR bool

	// turn counts Continue invocations for the current mechanism and is
	// handed to the primitive; LOGIN uses it to tell its username leg
	// from its password leg.
	turn int
}

// NewSession creates a session bound to params, with prefmech defaulted to
// params.DefMechs.
func NewSession(params *CarrierParams, caps Capabilities) *SaslSession {
	return &SaslSession{
		Params:     params,
		Caps:       caps,
		state:      Stop,
		prefmech:   params.DefMechs,
		resetprefs: true,
	}
}

// State returns the session's current driver state.
func (s *SaslSession) State() State { return s.state }

// AuthMechs returns the server-offered mechanism bitmap.
func (s *SaslSession) AuthMechs() Mech { return s.authmechs }

// SetAuthMechs installs the server-offered mechanism bitmap; called once
// by the carrier after it parses the server's capability announcement.
func (s *SaslSession) SetAuthMechs(m Mech) { s.authmechs = m }

// PrefMech returns the client-preferred mechanism bitmap.
func (s *SaslSession) PrefMech() Mech { return s.prefmech }

// AuthUsed returns the currently selected mechanism, MechNone if none.
func (s *SaslSession) AuthUsed() Mech { return s.authused }

// CurMech returns the textual name of the currently selected mechanism.
func (s *SaslSession) CurMech() string { return s.curmech }

// SetForceIR sets the runtime force_ir toggle.
func (s *SaslSession) SetForceIR(force bool) { s.forceIR = force }

// ForceIR reports the current force_ir toggle.
func (s *SaslSession) ForceIR() bool { return s.forceIR }

// SetMutualAuth sets the GSSAPI-only mutual-auth toggle.
func (s *SaslSession) SetMutualAuth(mutual bool) { s.mutualAuth = mutual }

// ParseAuthOption folds one URL-style auth option into this session's
// prefmech. Safe to call repeatedly within one parsing cycle;
// resetprefs governs whether the first call clears prior preferences.
func (s *SaslSession) ParseAuthOption(value string) error {
	prefs, err := ParseAuthOption(value, s.prefmech, s.Params.DefMechs, &s.resetprefs)
	if err != nil {
		return err
	}
	s.prefmech = prefs
	return nil
}

// ResetAuthOptionCycle marks the next ParseAuthOption call as the first of
// a new parsing cycle (e.g. the carrier re-parsed a URL's login options).
func (s *SaslSession) ResetAuthOptionCycle() { s.resetprefs = true }

// setState is the single sanctioned state-setter: no other method in this
// package may assign s.state.
func (s *SaslSession) setState(next State) {
	s.state = next
}
