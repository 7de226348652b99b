package mech

import (
	"fmt"
	"strings"

	"github.com/AtelierNeon/gosasl/pkg/sasl/mech/ntlm"
)

// Ntlm wraps the [MS-NLMP] message builder in package ntlm as a two-turn
// mech.Primitive: the initial response is the Type 1 NEGOTIATE message,
// and Continue turns the server's Type 2 CHALLENGE into a Type 3
// AUTHENTICATE message carrying an NTLMv2 response.
type Ntlm struct{}

func (*Ntlm) Name() string           { return "NTLM" }
func (*Ntlm) RequiresUsername() bool { return true }

func (*Ntlm) Supported(_ Credentials, caps Capabilities) bool {
	return caps.Ntlm
}

func (*Ntlm) InitialResponse(creds Credentials) ([]byte, error) {
	domain, _ := splitDomainUser(creds.Username)
	return ntlm.BuildNegotiate(domain, ""), nil
}

func (*Ntlm) Continue(_ int, serverData []byte, creds Credentials) ([]byte, error) {
	challenge, err := ntlm.ParseChallenge(serverData)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadServerData, err)
	}

	domain, user := splitDomainUser(creds.Username)
	return ntlm.BuildAuthenticate(challenge, domain, user, creds.Password, "")
}

// splitDomainUser splits a DOMAIN\user NTLM principal. Credentials without
// a domain separator authenticate against the server's own target realm.
func splitDomainUser(username string) (domain, user string) {
	if idx := strings.IndexByte(username, '\\'); idx >= 0 {
		return username[:idx], username[idx+1:]
	}
	return "", username
}
