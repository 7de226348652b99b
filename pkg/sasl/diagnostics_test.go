package sasl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func diagnosticsFor(authmechs, prefmech Mech, caps Capabilities, creds Credentials) []string {
	sess := newTestSession(authmechs, prefmech, caps)
	return Diagnose(sess, creds, caps)
}

func TestDiagnoseNothingOffered(t *testing.T) {
	lines := diagnosticsFor(MechNone, MechPlain, Capabilities{}, Credentials{})
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "no auth mechanism was offered")
}

func TestDiagnoseNoOverlap(t *testing.T) {
	lines := diagnosticsFor(MechNtlm, MechPlain, Capabilities{}, Credentials{})
	assert.Len(t, lines, 1)
	assert.Contains(t, lines[0], "no overlap")
}

func TestDiagnoseExternalNotChosenWithPassword(t *testing.T) {
	lines := diagnosticsFor(MechExternal, MechExternal, Capabilities{}, Credentials{Username: "u", Password: "secret"})
	found := false
	for _, l := range lines {
		if strings.Contains(l, "EXTERNAL not chosen") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDiagnoseMissingPlatformSupport(t *testing.T) {
	lines := diagnosticsFor(MechNtlm, MechNtlm, Capabilities{Ntlm: false}, Credentials{Username: "u"})
	found := false
	for _, l := range lines {
		if strings.Contains(l, "NTLM") && strings.Contains(l, "platform") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDiagnoseMissingBearerToken(t *testing.T) {
	lines := diagnosticsFor(MechOAuthBearer, MechOAuthBearer, Capabilities{}, Credentials{Username: "u"})
	found := false
	for _, l := range lines {
		if strings.Contains(l, "OAUTHBEARER") && strings.Contains(l, "bearer token") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDiagnoseMissingUsername(t *testing.T) {
	lines := diagnosticsFor(MechCramMd5, MechCramMd5, Capabilities{DigestMd5: true}, Credentials{})
	found := false
	for _, l := range lines {
		if strings.Contains(l, "CRAM-MD5") && strings.Contains(l, "username") {
			found = true
		}
	}
	assert.True(t, found)
}
