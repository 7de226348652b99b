package mech

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtelierNeon/gosasl/pkg/sasl/mech/ntlm"
)

func TestNtlmInitialResponseIsType1(t *testing.T) {
	n := &Ntlm{}
	out, err := n.InitialResponse(Credentials{Username: "bob", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, ntlm.IsValid(out))
}

func TestNtlmAuthenticateFromChallenge(t *testing.T) {
	n := &Ntlm{}
	_, err := n.InitialResponse(Credentials{Username: "bob", Password: "pw"})
	require.NoError(t, err)

	challenge := ntlm.BuildNegotiate("", "") // not a real challenge, but exercises the shape
	challenge[8] = byte(ntlm.Challenge)
	binary := []byte{0, 0, 0, 0}
	_ = binary

	out, err := n.Continue(0, challenge, Credentials{Username: "bob", Password: "pw", Service: "imap"})
	require.NoError(t, err)
	assert.True(t, ntlm.IsValid(out))
}
