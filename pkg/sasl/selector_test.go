package sasl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(authmechs, prefmech Mech, caps Capabilities) *SaslSession {
	params := &CarrierParams{DefMechs: prefmech, ContCode: contCode, FinalCode: finalCode, Flags: FlagBase64}
	sess := NewSession(params, caps)
	sess.SetAuthMechs(authmechs)
	return sess
}

func TestSelectorPicksFirstInPriorityOrder(t *testing.T) {
	sess := newTestSession(MechCramMd5|MechPlain|MechLogin, MechCramMd5|MechPlain|MechLogin, Capabilities{DigestMd5: true})
	sel, ok, err := selectMechanism(sess, Credentials{Username: "u", Password: "p"}, sess.AuthMechs(), GssapiConfig{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "CRAM-MD5", sel.name)
}

func TestSelectorRestrictsToOfferedIntersectPreferred(t *testing.T) {
	sess := newTestSession(MechPlain|MechLogin, MechLogin, Capabilities{})
	sel, ok, err := selectMechanism(sess, Credentials{Username: "u", Password: "p"}, sess.AuthMechs(), GssapiConfig{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "LOGIN", sel.name, "PLAIN is offered but not preferred")
}

func TestSelectorSkipsUnbuiltMechanism(t *testing.T) {
	sess := newTestSession(MechNtlm|MechPlain, MechNtlm|MechPlain, Capabilities{Ntlm: false})
	sel, ok, err := selectMechanism(sess, Credentials{Username: "u", Password: "p"}, sess.AuthMechs(), GssapiConfig{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "PLAIN", sel.name)
}

func TestSelectorRequiresUsernameExceptExternal(t *testing.T) {
	sess := newTestSession(MechExternal|MechPlain, MechExternal|MechPlain, Capabilities{})
	sel, ok, err := selectMechanism(sess, Credentials{}, sess.AuthMechs(), GssapiConfig{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "EXTERNAL", sel.name, "PLAIN requires a username, EXTERNAL does not")
}

func TestSelectorGssapiRequiresRealmQualifiedUsername(t *testing.T) {
	sess := newTestSession(MechGssapi|MechPlain, MechGssapi|MechPlain, Capabilities{Gssapi: true})
	sel, ok, err := selectMechanism(sess, Credentials{Username: "bareuser", Password: "p"}, sess.AuthMechs(), GssapiConfig{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "PLAIN", sel.name, "a username without @realm disqualifies GSSAPI")

	sel, ok, err = selectMechanism(sess, Credentials{Username: "user@EXAMPLE.COM", Password: "p"}, sess.AuthMechs(), GssapiConfig{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "GSSAPI", sel.name)
}

func TestSelectorOAuthRequiresBearerToken(t *testing.T) {
	sess := newTestSession(MechOAuthBearer|MechPlain, MechOAuthBearer|MechPlain, Capabilities{})
	sel, ok, err := selectMechanism(sess, Credentials{Username: "u", Password: "p"}, sess.AuthMechs(), GssapiConfig{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "PLAIN", sel.name, "no bearer token configured, OAUTHBEARER must be skipped")
}

func TestSelectorNoneWhenNothingOverlaps(t *testing.T) {
	sess := newTestSession(MechNtlm, MechPlain, Capabilities{})
	sel, ok, err := selectMechanism(sess, Credentials{Username: "u"}, sess.AuthMechs(), GssapiConfig{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, sel)
}

func TestSelectorScramSha256PreferredOverSha1(t *testing.T) {
	sess := newTestSession(MechScramSha1|MechScramSha256, MechScramSha1|MechScramSha256, Capabilities{ScramSha1: true, ScramSha256: true})
	sel, ok, err := selectMechanism(sess, Credentials{Username: "u", Password: "p"}, sess.AuthMechs(), GssapiConfig{})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "SCRAM-SHA-256", sel.name)
}
