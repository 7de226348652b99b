package sasl

import (
	"errors"

	"github.com/AtelierNeon/gosasl/pkg/sasl/mech"
)

// GssapiConfig carries the Kerberos material needed to construct a GSSAPI
// primitive; left zero-value, GSSAPI is simply never offered.
type GssapiConfig struct {
	Krb5ConfPath string
	KeytabPath   string
}

// mechDescriptor is the capability record the selector walks in priority
// order: a tagged variant over bit, declared turn states, and a
// constructor for a fresh mech.Primitive instance.
type mechDescriptor struct {
	bit          Mech
	state1       State
	state2       State
	chooseIf     func(creds Credentials, caps Capabilities, s *SaslSession) bool
	newPrimitive func(s *SaslSession) mech.Primitive

	// mandatoryIR marks mechanisms whose first message is never optional:
	// SCRAM's client-first carries the nonce the rest of the exchange is
	// keyed on, so it is always precomputed regardless of force_ir, unlike
	// PLAIN/EXTERNAL/OAUTHBEARER/XOAUTH2 whose IR is only sent when the
	// carrier (or force_ir) asks for it.
	mandatoryIR bool
}

// selectorTable is walked in this fixed order, representing decreasing
// security.
func selectorTable(gssapi GssapiConfig) []mechDescriptor {
	return []mechDescriptor{
		{
			bit:    MechExternal,
			state1: External,
			state2: Final,
			chooseIf: func(creds Credentials, _ Capabilities, _ *SaslSession) bool {
				return creds.Password == ""
			},
			newPrimitive: func(*SaslSession) mech.Primitive { return mech.External{} },
		},
		{
			bit:    MechGssapi,
			state1: Gssapi,
			state2: GssapiToken,
			chooseIf: func(creds Credentials, caps Capabilities, _ *SaslSession) bool {
				return (&mech.Gssapi{}).Supported(creds, caps)
			},
			newPrimitive: func(s *SaslSession) mech.Primitive {
				return &mech.Gssapi{Krb5ConfPath: gssapi.Krb5ConfPath, KeytabPath: gssapi.KeytabPath}
			},
		},
		{
			bit:    MechScramSha256,
			state1: Scram,
			state2: ScramServerFirst,
			chooseIf: func(creds Credentials, caps Capabilities, _ *SaslSession) bool {
				return mech.NewScramSha256().Supported(creds, caps)
			},
			newPrimitive: func(*SaslSession) mech.Primitive { return mech.NewScramSha256() },
			mandatoryIR:  true,
		},
		{
			bit:    MechScramSha1,
			state1: Scram,
			state2: ScramServerFirst,
			chooseIf: func(creds Credentials, caps Capabilities, _ *SaslSession) bool {
				return mech.NewScramSha1().Supported(creds, caps)
			},
			newPrimitive: func(*SaslSession) mech.Primitive { return mech.NewScramSha1() },
			mandatoryIR:  true,
		},
		{
			bit:    MechDigestMd5,
			state1: DigestMd5,
			state2: DigestMd5Resp,
			chooseIf: func(creds Credentials, caps Capabilities, _ *SaslSession) bool {
				return (mech.DigestMd5{}).Supported(creds, caps)
			},
			newPrimitive: func(*SaslSession) mech.Primitive { return mech.DigestMd5{} },
		},
		{
			bit:    MechCramMd5,
			state1: CramMd5,
			state2: Final,
			chooseIf: func(creds Credentials, caps Capabilities, _ *SaslSession) bool {
				return (mech.CramMd5{}).Supported(creds, caps)
			},
			newPrimitive: func(*SaslSession) mech.Primitive { return mech.CramMd5{} },
		},
		{
			bit:    MechNtlm,
			state1: Ntlm,
			state2: NtlmType2Msg,
			chooseIf: func(creds Credentials, caps Capabilities, _ *SaslSession) bool {
				return (&mech.Ntlm{}).Supported(creds, caps)
			},
			newPrimitive: func(*SaslSession) mech.Primitive { return &mech.Ntlm{} },
		},
		{
			bit:    MechOAuthBearer,
			state1: OAuth2,
			state2: OAuth2Resp,
			chooseIf: func(creds Credentials, caps Capabilities, _ *SaslSession) bool {
				return (mech.OAuthBearer{}).Supported(creds, caps)
			},
			newPrimitive: func(*SaslSession) mech.Primitive { return mech.OAuthBearer{} },
		},
		{
			bit:    MechXOAuth2,
			state1: OAuth2,
			state2: Final,
			chooseIf: func(creds Credentials, caps Capabilities, _ *SaslSession) bool {
				return (mech.XOAuth2{}).Supported(creds, caps)
			},
			newPrimitive: func(*SaslSession) mech.Primitive { return mech.XOAuth2{} },
		},
		{
			bit:    MechPlain,
			state1: Plain,
			state2: Final,
			chooseIf: func(Credentials, Capabilities, *SaslSession) bool { return true },
			newPrimitive: func(*SaslSession) mech.Primitive { return mech.Plain{} },
		},
		{
			bit:    MechLogin,
			state1: Login,
			state2: LoginPasswd,
			chooseIf: func(Credentials, Capabilities, *SaslSession) bool { return true },
			newPrimitive: func(*SaslSession) mech.Primitive { return mech.Login{} },
		},
	}
}

// selection is the Selector's output for one chosen mechanism.
type selection struct {
	bit        Mech
	name       string
	state1     State
	state2     State
	primitive  mech.Primitive
	initialMsg []byte // nil if this mechanism has no initial response
	hasIR      bool
}

// selectMechanism walks selectorTable in priority order and returns the
// first mechanism in offered∩prefmech whose prerequisites are satisfied.
// ok is false (with a nil error) when nothing was chosen, so the caller
// can run Diagnostics; err is returned only for a fatal failure while
// precomputing an initial response (forced, or mandatory as for SCRAM).
func selectMechanism(sess *SaslSession, creds Credentials, offered Mech, gssapi GssapiConfig) (*selection, bool, error) {
	candidates := offered & sess.prefmech

	for _, desc := range selectorTable(gssapi) {
		if candidates&desc.bit == 0 {
			continue
		}
		if desc.bit != MechExternal && creds.Username == "" {
			continue
		}
		if !desc.chooseIf(creds, sess.Caps, sess) {
			continue
		}

		primitive := desc.newPrimitive(sess)
		sel := &selection{
			bit:       desc.bit,
			name:      Name(desc.bit),
			state1:    desc.state1,
			state2:    desc.state2,
			primitive: primitive,
		}

		// The IR is only computed when the carrier forced it or the
		// mechanism itself mandates one (SCRAM). Everything else defaults
		// to no initial response, starting the turn-based exchange at
		// state1.
		if sess.forceIR || desc.mandatoryIR {
			ir, err := primitive.InitialResponse(creds)
			if err != nil && !errors.Is(err, mech.ErrNeedServerData) {
				return nil, false, newError(ErrOutOfMemory, sel.name, "precomputing initial response", err)
			}
			if err == nil {
				sel.initialMsg = ir
				sel.hasIR = true
			}
		}

		return sel, true, nil
	}

	return nil, false, nil
}
