package sasl

import (
	"context"
	"errors"

	"github.com/AtelierNeon/gosasl/internal/logger"
	"github.com/AtelierNeon/gosasl/pkg/sasl/mech"
)

// Driver runs the authentication state machine for one SaslSession. It is
// the only component that mutates SaslSession.state.
type Driver struct {
	Gssapi GssapiConfig
}

// Start invokes the Selector and, if a mechanism was chosen, sends the
// initial AUTH command. If no mechanism was chosen and no error occurred,
// Progress is left Idle and the caller should consult Diagnostics.
func (d *Driver) Start(ctx context.Context, sess *SaslSession, creds Credentials) (Progress, Result, error) {
	// The mutual-auth toggle can arrive on either the session or the
	// credentials; the state machine and the GSSAPI primitive must agree.
	creds.MutualAuth = creds.MutualAuth || sess.mutualAuth
	sess.mutualAuth = creds.MutualAuth
	sel, ok, err := selectMechanism(sess, creds, sess.authmechs, d.Gssapi)
	if err != nil {
		return Done, ResultDenied, err
	}
	if !ok {
		logger.DebugCtx(ctx, "no mechanism chosen", logger.AuthMechs(uint16(sess.authmechs)), logger.PrefMechs(uint16(sess.prefmech)))
		return Idle, ResultNone, nil
	}

	sess.authused = sel.bit
	sess.curmech = sel.name
	sess.curPrimitive = sel.primitive
	sess.turn = 0

	framing := sess.Params.Framing()
	hasIR := sel.hasIR
	var encoded string

	if hasIR {
		enc, encErr := EncodeOutgoing(sel.initialMsg, framing)
		if encErr != nil {
			return Done, ResultDenied, newError(ErrOutOfMemory, sel.name, "encoding initial response", encErr)
		}
		if sess.Params.MaxIRLen > 0 && len(sel.name)+len(enc) > sess.Params.MaxIRLen {
			// An oversized IR is discarded, not truncated; the mechanism
			// resumes at state1 as if it had never been computed.
			hasIR = false
		} else {
			encoded = enc
		}
	}

	logger.InfoCtx(ctx, "mechanism selected", logger.Mechanism(sel.name), logger.HasIR(hasIR), logger.ForceIR(sess.forceIR))

	if err := sess.Params.SendAuth(ctx, sel.name, encoded); err != nil {
		return Done, ResultDenied, err
	}

	if hasIR {
		sess.setState(sel.state2)
	} else {
		sess.setState(sel.state1)
	}

	return InProgress, ResultNone, nil
}

// Continue advances the state machine in reaction to one server turn: every
// state produces an outgoing buffer and a next state, except Cancel (which
// re-enters Start outright) and the two states that short-circuit the
// result before reaching the common post-processing step.
func (d *Driver) Continue(ctx context.Context, sess *SaslSession, serverCode int, creds Credentials) (Progress, Result, error) {
	creds.MutualAuth = creds.MutualAuth || sess.mutualAuth
	if sess.state == Final {
		sess.setState(Stop)
		if serverCode == sess.Params.FinalCode {
			return Done, ResultOK, nil
		}
		return Done, ResultDenied, nil
	}

	if !exemptFromContcodeGate(sess.state) && serverCode != sess.Params.ContCode {
		sess.setState(Stop)
		return Done, ResultDenied, nil
	}

	if sess.state == Cancel {
		sess.authmechs &^= sess.authused
		sess.authused = MechNone
		sess.curmech = ""
		sess.curPrimitive = nil
		progress, result, err := d.Start(ctx, sess, creds)
		if err != nil || progress != Idle {
			return progress, result, err
		}
		// No fallback mechanism remains. Unlike a fresh Start, a failed
		// restart is terminal: report why nothing was selectable and deny.
		for _, line := range Diagnose(sess, creds, sess.Caps) {
			logger.InfoCtx(ctx, line)
		}
		sess.setState(Stop)
		return Done, ResultDenied, nil
	}

	if sess.state == OAuth2Resp {
		if serverCode == sess.Params.FinalCode {
			sess.setState(Stop)
			return Done, ResultOK, nil
		}
		if serverCode != sess.Params.ContCode {
			sess.setState(Stop)
			return Done, ResultDenied, nil
		}
		// serverCode == ContCode: acknowledge with the single SASL
		// cancel-ack byte and fall through to common post-processing.
	}

	out, newState, err := d.dispatch(ctx, sess, creds)

	if err != nil {
		if isBadServerEncoding(err) {
			if cerr := sess.Params.CancelAuth(ctx, sess.curmech); cerr != nil {
				sess.setState(Stop)
				return Done, ResultDenied, cerr
			}
			logger.WarnCtx(ctx, "mechanism reported bad server encoding, cancelling", logger.Mechanism(sess.curmech), logger.Err(err))
			sess.setState(Cancel)
			return InProgress, ResultNone, nil
		}
		sess.setState(Stop)
		return Done, ResultDenied, err
	}

	encoded, encErr := EncodeOutgoing(out, sess.Params.Framing())
	if encErr != nil {
		sess.setState(Stop)
		return Done, ResultDenied, newError(ErrOutOfMemory, sess.curmech, "encoding continuation", encErr)
	}

	if cerr := sess.Params.ContAuth(ctx, sess.curmech, encoded); cerr != nil {
		sess.setState(Stop)
		return Done, ResultDenied, cerr
	}

	logger.DebugCtx(ctx, "state transition", logger.Mechanism(sess.curmech), logger.State(sess.state.String()), logger.NewState(newState.String()))
	sess.setState(newState)
	sess.turn++
	return InProgress, ResultNone, nil
}

// dispatch produces the outgoing payload and next state for every state
// Continue can see other than Final, Cancel, and the OAuth2Resp
// short-circuit paths already handled by the caller.
func (d *Driver) dispatch(ctx context.Context, sess *SaslSession, creds Credentials) ([]byte, State, error) {
	switch sess.state {
	case DigestMd5Resp:
		// The server's rspauth turn needs no client reply; this always
		// emits an empty line, with no server data consulted.
		return nil, Final, nil

	case OAuth2Resp:
		// Reached only via the ack-and-continue path in Continue.
		return []byte{0x01}, Final, nil
	}

	if sess.curPrimitive == nil {
		return nil, Stop, newError(ErrFailedInit, sess.curmech, "no mechanism context for continuation", nil)
	}

	switch sess.state {
	case Plain, External, Ntlm, Gssapi, OAuth2, Scram:
		// These mechanisms' first turn never depends on server data (the
		// full-response/Type1/AP-REQ/bearer/client-first messages are fully
		// determined by creds), so recomputing via InitialResponse is
		// equivalent to whatever Start would have sent had the IR not been
		// sent or clamped. SCRAM reaches this branch only when its
		// mandatory client-first was not carried as an IR (e.g. clamped by
		// maxirlen); it still must emit that same client-first here before
		// moving on to ScramServerFirst.
		out, err := sess.curPrimitive.InitialResponse(creds)
		if errors.Is(err, mech.ErrNeedServerData) {
			err = nil
		}
		if err != nil {
			return nil, Stop, err
		}
		return out, stateAfter(sess), nil

	case Login, LoginPasswd, CramMd5, DigestMd5, NtlmType2Msg, GssapiToken, GssapiNoData, ScramServerFirst:
		// These all need the server's last turn to compute their response
		// (LOGIN's username/password prompts carry no useful bytes
		// themselves, but the mechanism still drives its response off
		// sess.turn rather than InitialResponse). ScramServerFirst decodes
		// the server-first challenge (nonce, salt, iteration count) and
		// returns the client-final message.
		serverData, err := d.decodeServerTurn(ctx, sess)
		if err != nil {
			return nil, Stop, err
		}
		out, err := sess.curPrimitive.Continue(sess.turn, serverData, creds)
		if err != nil {
			return nil, Stop, err
		}
		return out, stateAfter(sess), nil

	default:
		return nil, Stop, newError(ErrUnsupportedProtocol, sess.curmech, "unrecognized driver state "+sess.state.String(), nil)
	}
}

// stateAfter maps the state the driver is currently committing a turn for
// to the state that follows it, per the selection made at Start and the
// mutual-auth toggle for GSSAPI.
func stateAfter(sess *SaslSession) State {
	switch sess.state {
	case Plain, External, LoginPasswd, CramMd5, NtlmType2Msg:
		return Final
	case Login:
		return LoginPasswd
	case Ntlm:
		return NtlmType2Msg
	case Gssapi:
		return GssapiToken
	case GssapiToken:
		if sess.mutualAuth {
			return GssapiNoData
		}
		return Final
	case GssapiNoData:
		return Final
	case DigestMd5:
		return DigestMd5Resp
	case OAuth2:
		if sess.authused == MechOAuthBearer {
			return OAuth2Resp
		}
		return Final
	case Scram:
		return ScramServerFirst
	case ScramServerFirst:
		return Final
	default:
		return Final
	}
}

func (d *Driver) decodeServerTurn(ctx context.Context, sess *SaslSession) ([]byte, error) {
	raw, err := sess.Params.GetMessage(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeServer(raw, sess.Params.Framing())
}

func isBadServerEncoding(err error) bool {
	if errors.Is(err, mech.ErrBadServerData) {
		return true
	}
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Code == ErrBadServerEncoding
	}
	return false
}
