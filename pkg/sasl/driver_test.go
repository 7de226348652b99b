package sasl

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCarrier is an in-memory CarrierParams stub that records every call
// the driver makes and lets a test script canned server turns.
type fakeCarrier struct {
	sent       []sentAuth
	continued  []sentAuth
	cancelled  []string
	serverMsgs []string // consumed in order by GetMessage
	msgIdx     int
}

type sentAuth struct {
	mech string
	data string
}

func (f *fakeCarrier) params(contCode, finalCode int, defMechs Mech, flags ParamFlags) *CarrierParams {
	return &CarrierParams{
		Service:   "imap",
		DefMechs:  defMechs,
		ContCode:  contCode,
		FinalCode: finalCode,
		Flags:     flags,
		SendAuth: func(_ context.Context, mech, data string) error {
			f.sent = append(f.sent, sentAuth{mech, data})
			return nil
		},
		ContAuth: func(_ context.Context, mech, data string) error {
			f.continued = append(f.continued, sentAuth{mech, data})
			return nil
		},
		CancelAuth: func(_ context.Context, mech string) error {
			f.cancelled = append(f.cancelled, mech)
			return nil
		},
		GetMessage: func(_ context.Context) (string, error) {
			if f.msgIdx >= len(f.serverMsgs) {
				return "", nil
			}
			msg := f.serverMsgs[f.msgIdx]
			f.msgIdx++
			return msg, nil
		},
	}
}

const (
	contCode  = 1
	finalCode = 2
)

// S1: PLAIN with a forced initial response.
func TestDriverPlainWithInitialResponse(t *testing.T) {
	fc := &fakeCarrier{}
	params := fc.params(contCode, finalCode, MechPlain, FlagBase64)
	sess := NewSession(params, Capabilities{})
	sess.SetAuthMechs(MechPlain)
	sess.SetForceIR(true)

	d := &Driver{}
	creds := Credentials{Username: "alice", Password: "secret"}

	progress, result, err := d.Start(context.Background(), sess, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	assert.Equal(t, ResultNone, result)
	require.Len(t, fc.sent, 1)
	assert.Equal(t, "PLAIN", fc.sent[0].mech)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("\x00alice\x00secret")), fc.sent[0].data)
	assert.Equal(t, Final, sess.State())

	progress, result, err = d.Continue(context.Background(), sess, finalCode, creds)
	require.NoError(t, err)
	assert.Equal(t, Done, progress)
	assert.Equal(t, ResultOK, result)
	assert.Equal(t, Stop, sess.State())
	assert.Equal(t, Mech(0), sess.authused&(sess.authused-1), "popcount(authused) must stay <= 1")
}

// Property: without force_ir, a mechanism that could compute an initial
// response (PLAIN) must not send one; the driver starts at state1 and the
// server's first continuation is what actually carries the response.
func TestDriverNoInitialResponseWithoutForceIR(t *testing.T) {
	fc := &fakeCarrier{serverMsgs: []string{""}}
	params := fc.params(contCode, finalCode, MechPlain, FlagBase64)
	sess := NewSession(params, Capabilities{})
	sess.SetAuthMechs(MechPlain)

	d := &Driver{}
	creds := Credentials{Username: "alice", Password: "secret"}

	progress, _, err := d.Start(context.Background(), sess, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	require.Len(t, fc.sent, 1)
	assert.Equal(t, "", fc.sent[0].data, "without force_ir, PLAIN must not carry an initial response")
	assert.Equal(t, Plain, sess.State(), "driver must resume at state1, not state2, when no IR was sent")

	progress, _, err = d.Continue(context.Background(), sess, contCode, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	require.Len(t, fc.continued, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("\x00alice\x00secret")), fc.continued[0].data)
	assert.Equal(t, Final, sess.State())

	progress, result, err := d.Continue(context.Background(), sess, finalCode, creds)
	require.NoError(t, err)
	assert.Equal(t, Done, progress)
	assert.Equal(t, ResultOK, result)
}

// SCRAM's client-first is mandatory regardless of force_ir, and the
// exchange needs a continuation state between the client-first and Final
// to carry the server-first challenge and client-final proof.
func TestDriverScramSha1TwoTurnExchange(t *testing.T) {
	fc := &fakeCarrier{}
	params := fc.params(contCode, finalCode, MechScramSha1, FlagBase64)
	sess := NewSession(params, Capabilities{ScramSha1: true})
	sess.SetAuthMechs(MechScramSha1)

	d := &Driver{}
	creds := Credentials{Username: "user", Password: "pencil"}

	progress, _, err := d.Start(context.Background(), sess, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	require.Len(t, fc.sent, 1)
	assert.Equal(t, "SCRAM-SHA-1", fc.sent[0].mech, "the client-first must be sent even though force_ir is false")
	assert.Equal(t, ScramServerFirst, sess.State())

	clientFirstRaw, err := base64.StdEncoding.DecodeString(fc.sent[0].data)
	require.NoError(t, err)
	clientFirst := string(clientFirstRaw)
	require.True(t, strings.HasPrefix(clientFirst, "n,,n=user,r="))
	clientNonce := strings.TrimPrefix(clientFirst, "n,,n=user,r=")

	serverFirst := "r=" + clientNonce + "3rfcNHYJY1ZVvWVs7j,s=QSXCR+Q6sek8bf92,i=4096"
	fc.serverMsgs = []string{base64.StdEncoding.EncodeToString([]byte(serverFirst))}

	progress, _, err = d.Continue(context.Background(), sess, contCode, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	require.Len(t, fc.continued, 1)
	assert.Equal(t, Final, sess.State(), "client-final must lead to Final, not loop or stop early")

	clientFinalRaw, err := base64.StdEncoding.DecodeString(fc.continued[0].data)
	require.NoError(t, err)
	clientFinal := string(clientFinalRaw)
	assert.Contains(t, clientFinal, "r="+clientNonce+"3rfcNHYJY1ZVvWVs7j")
	assert.Contains(t, clientFinal, "p=")

	progress, result, err := d.Continue(context.Background(), sess, finalCode, creds)
	require.NoError(t, err)
	assert.Equal(t, Done, progress)
	assert.Equal(t, ResultOK, result)
	assert.Equal(t, Stop, sess.State())
}

// S2: LOGIN's two-turn exchange, never offering an initial response.
func TestDriverLoginTwoTurn(t *testing.T) {
	fc := &fakeCarrier{serverMsgs: []string{"", ""}}
	params := fc.params(contCode, finalCode, MechLogin, FlagBase64)
	sess := NewSession(params, Capabilities{})
	sess.SetAuthMechs(MechLogin)

	d := &Driver{}
	creds := Credentials{Username: "bob", Password: "pw"}

	progress, _, err := d.Start(context.Background(), sess, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	require.Len(t, fc.sent, 1)
	assert.Equal(t, "LOGIN", fc.sent[0].mech)
	assert.Equal(t, "", fc.sent[0].data)
	assert.Equal(t, Login, sess.State())

	progress, _, err = d.Continue(context.Background(), sess, contCode, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	require.Len(t, fc.continued, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("bob")), fc.continued[0].data)
	assert.Equal(t, LoginPasswd, sess.State())

	progress, _, err = d.Continue(context.Background(), sess, contCode, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	require.Len(t, fc.continued, 2)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("pw")), fc.continued[1].data)
	assert.Equal(t, Final, sess.State())

	progress, result, err := d.Continue(context.Background(), sess, finalCode, creds)
	require.NoError(t, err)
	assert.Equal(t, Done, progress)
	assert.Equal(t, ResultOK, result)
}

// S4: a recoverable mechanism failure falls back to the next-best mechanism.
func TestDriverCancelFallsBackToNextMechanism(t *testing.T) {
	fc := &fakeCarrier{serverMsgs: []string{"not valid base64!!"}}
	params := fc.params(contCode, finalCode, MechDigestMd5|MechPlain, FlagBase64)
	sess := NewSession(params, Capabilities{DigestMd5: true})
	sess.SetAuthMechs(MechDigestMd5 | MechPlain)

	d := &Driver{}
	creds := Credentials{Username: "chris", Password: "secret"}

	_, _, err := d.Start(context.Background(), sess, creds)
	require.NoError(t, err)
	assert.Equal(t, "DIGEST-MD5", fc.sent[0].mech)
	assert.Equal(t, MechDigestMd5, sess.AuthUsed())

	progress, result, err := d.Continue(context.Background(), sess, contCode, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	assert.Equal(t, ResultNone, result)
	assert.Equal(t, Cancel, sess.State())
	require.Len(t, fc.cancelled, 1)
	assert.Equal(t, "DIGEST-MD5", fc.cancelled[0])

	progress, result, err = d.Continue(context.Background(), sess, contCode, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	assert.Equal(t, ResultNone, result)
	assert.Equal(t, MechPlain, sess.AuthUsed())
	assert.Equal(t, MechPlain, sess.AuthMechs(), "DIGEST-MD5 must be removed from authmechs")
	require.Len(t, fc.sent, 2)
	assert.Equal(t, "PLAIN", fc.sent[1].mech)
}

// A challenge that decodes as base64 but is garbage to the mechanism
// itself must take the same cancel-and-fallback path as malformed base64.
func TestDriverMechanismLevelBadDataFallsBack(t *testing.T) {
	fc := &fakeCarrier{serverMsgs: []string{base64.StdEncoding.EncodeToString([]byte("not an NTLM type 2 message"))}}
	params := fc.params(contCode, finalCode, MechNtlm|MechPlain, FlagBase64)
	sess := NewSession(params, Capabilities{Ntlm: true})
	sess.SetAuthMechs(MechNtlm | MechPlain)

	d := &Driver{}
	creds := Credentials{Username: "bob", Password: "pw"}

	_, _, err := d.Start(context.Background(), sess, creds)
	require.NoError(t, err)
	assert.Equal(t, "NTLM", fc.sent[0].mech)

	// First continuation sends the Type 1 message.
	progress, _, err := d.Continue(context.Background(), sess, contCode, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	assert.Equal(t, NtlmType2Msg, sess.State())

	// Second continuation delivers the garbage Type 2 challenge.
	progress, _, err = d.Continue(context.Background(), sess, contCode, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	assert.Equal(t, Cancel, sess.State())
	require.Len(t, fc.cancelled, 1)
	assert.Equal(t, "NTLM", fc.cancelled[0])

	progress, _, err = d.Continue(context.Background(), sess, contCode, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	assert.Equal(t, MechPlain, sess.AuthUsed())
}

// Property: when the cancelled mechanism was the last one offered, the
// restart finds nothing and the session ends denied rather than idling.
func TestDriverCancelWithNoFallbackDeniesLogin(t *testing.T) {
	fc := &fakeCarrier{serverMsgs: []string{"not valid base64!!"}}
	params := fc.params(contCode, finalCode, MechDigestMd5, FlagBase64)
	sess := NewSession(params, Capabilities{DigestMd5: true})
	sess.SetAuthMechs(MechDigestMd5)

	d := &Driver{}
	creds := Credentials{Username: "chris", Password: "secret"}

	_, _, err := d.Start(context.Background(), sess, creds)
	require.NoError(t, err)

	progress, _, err := d.Continue(context.Background(), sess, contCode, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	assert.Equal(t, Cancel, sess.State())

	progress, result, err := d.Continue(context.Background(), sess, contCode, creds)
	require.NoError(t, err)
	assert.Equal(t, Done, progress)
	assert.Equal(t, ResultDenied, result)
	assert.Equal(t, Stop, sess.State())
	assert.Equal(t, MechNone, sess.AuthMechs())
	require.Len(t, fc.sent, 1, "no further AUTH command may be sent once the offered set is exhausted")
}

// S5: EXTERNAL is preferred when no password is configured; PLAIN is
// chosen once a password is present.
func TestDriverExternalPreferredOverPlainWithoutPassword(t *testing.T) {
	fc := &fakeCarrier{}
	params := fc.params(contCode, finalCode, MechExternal|MechPlain, FlagBase64)
	sess := NewSession(params, Capabilities{})
	sess.SetAuthMechs(MechExternal | MechPlain)

	d := &Driver{}
	_, _, err := d.Start(context.Background(), sess, Credentials{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, MechExternal, sess.AuthUsed())
}

func TestDriverPlainPreferredOverExternalWithPassword(t *testing.T) {
	fc := &fakeCarrier{}
	params := fc.params(contCode, finalCode, MechExternal|MechPlain, FlagBase64)
	sess := NewSession(params, Capabilities{})
	sess.SetAuthMechs(MechExternal | MechPlain)

	d := &Driver{}
	_, _, err := d.Start(context.Background(), sess, Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, MechPlain, sess.AuthUsed())
}

// S6: OAUTHBEARER's cancel-acknowledge turn.
func TestDriverOAuthBearerCancelAck(t *testing.T) {
	fc := &fakeCarrier{}
	params := fc.params(contCode, finalCode, MechOAuthBearer, FlagBase64)
	sess := NewSession(params, Capabilities{})
	sess.SetAuthMechs(MechOAuthBearer)
	sess.SetForceIR(true)

	d := &Driver{}
	creds := Credentials{Username: "alice", BearerToken: "tok", Host: "imap.example.com"}

	_, _, err := d.Start(context.Background(), sess, creds)
	require.NoError(t, err)
	assert.Equal(t, OAuth2Resp, sess.State())

	progress, result, err := d.Continue(context.Background(), sess, contCode, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	assert.Equal(t, ResultNone, result)
	require.Len(t, fc.continued, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte{0x01}), fc.continued[0].data)
	assert.Equal(t, Final, sess.State())

	progress, result, err = d.Continue(context.Background(), sess, finalCode, creds)
	require.NoError(t, err)
	assert.Equal(t, Done, progress)
	assert.Equal(t, ResultOK, result)
}

func TestDriverOAuthBearerDeniedOnUnexpectedCode(t *testing.T) {
	fc := &fakeCarrier{}
	params := fc.params(contCode, finalCode, MechOAuthBearer, FlagBase64)
	sess := NewSession(params, Capabilities{})
	sess.SetAuthMechs(MechOAuthBearer)
	sess.SetForceIR(true)

	d := &Driver{}
	creds := Credentials{Username: "alice", BearerToken: "tok", Host: "imap.example.com"}

	_, _, err := d.Start(context.Background(), sess, creds)
	require.NoError(t, err)
	require.Equal(t, OAuth2Resp, sess.State())

	progress, result, err := d.Continue(context.Background(), sess, 99, creds)
	require.NoError(t, err)
	assert.Equal(t, Done, progress)
	assert.Equal(t, ResultDenied, result)
	assert.Equal(t, Stop, sess.State())
}

// Property: a server code other than contcode, outside {Cancel, OAuth2Resp,
// Final}, yields LoginDenied without a further outgoing message.
func TestDriverResultCodeGate(t *testing.T) {
	fc := &fakeCarrier{serverMsgs: []string{""}}
	params := fc.params(contCode, finalCode, MechLogin, FlagBase64)
	sess := NewSession(params, Capabilities{})
	sess.SetAuthMechs(MechLogin)

	d := &Driver{}
	creds := Credentials{Username: "bob", Password: "pw"}

	_, _, err := d.Start(context.Background(), sess, creds)
	require.NoError(t, err)

	progress, result, err := d.Continue(context.Background(), sess, 42, creds)
	require.NoError(t, err)
	assert.Equal(t, Done, progress)
	assert.Equal(t, ResultDenied, result)
	assert.Equal(t, Stop, sess.State())
	assert.Empty(t, fc.continued)
}

// Property: when maxirlen is smaller than the encoded IR, the first wire
// message must carry no initial response and the driver resumes at state1.
func TestDriverIRLengthClamp(t *testing.T) {
	fc := &fakeCarrier{}
	params := fc.params(contCode, finalCode, MechPlain, FlagBase64)
	params.MaxIRLen = 4 // shorter than "PLAIN" + any encoded body
	sess := NewSession(params, Capabilities{})
	sess.SetAuthMechs(MechPlain)
	sess.SetForceIR(true)

	d := &Driver{}
	creds := Credentials{Username: "alice", Password: "secret"}

	progress, _, err := d.Start(context.Background(), sess, creds)
	require.NoError(t, err)
	assert.Equal(t, InProgress, progress)
	require.Len(t, fc.sent, 1)
	assert.Equal(t, "", fc.sent[0].data, "IR must be discarded, not truncated")
	assert.Equal(t, Plain, sess.State(), "driver must resume at state1 when the IR is clamped")
}

// Property: Idle progress with no error when nothing in offered∩prefmech
// can be selected.
func TestDriverIdleWhenNoMechanismChosen(t *testing.T) {
	fc := &fakeCarrier{}
	params := fc.params(contCode, finalCode, MechGssapi, FlagBase64)
	sess := NewSession(params, Capabilities{}) // Gssapi unsupported
	sess.SetAuthMechs(MechGssapi)

	d := &Driver{}
	progress, result, err := d.Start(context.Background(), sess, Credentials{Username: "alice@EXAMPLE.COM"})
	require.NoError(t, err)
	assert.Equal(t, Idle, progress)
	assert.Equal(t, ResultNone, result)
	assert.Empty(t, fc.sent)
}
