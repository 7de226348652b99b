package mech

import (
	"fmt"
	"strings"

	"github.com/AtelierNeon/gosasl/pkg/sasl/mech/gssapi"
)

// Gssapi wraps package gssapi as a mech.Primitive. The initial response is
// the Kerberos AP-REQ token; Continue handles the (optional) mutual-auth
// AP-REP and then the mandatory security-layer negotiation message.
//
// Credentials.Username is expected as "user@REALM". When KeytabPath is set
// the Kerberos login uses that keytab; otherwise it uses
// Credentials.Password.
type Gssapi struct {
	Krb5ConfPath string
	KeytabPath   string

	client     *gssapi.Client
	mutual     bool
	mutualDone bool
}

func (*Gssapi) Name() string           { return "GSSAPI" }
func (*Gssapi) RequiresUsername() bool { return true }

func (g *Gssapi) Supported(creds Credentials, caps Capabilities) bool {
	if !caps.Gssapi {
		return false
	}
	return strings.Contains(creds.Username, "@")
}

func (g *Gssapi) InitialResponse(creds Credentials) ([]byte, error) {
	user, realm, ok := strings.Cut(creds.Username, "@")
	if !ok {
		return nil, fmt.Errorf("gssapi: username %q is missing a realm", creds.Username)
	}

	var c *gssapi.Client
	var err error
	if g.KeytabPath != "" {
		c, err = gssapi.NewClientWithKeytab(user, realm, g.KeytabPath, g.Krb5ConfPath)
	} else {
		c, err = gssapi.NewClientWithPassword(user, realm, creds.Password, g.Krb5ConfPath)
	}
	if err != nil {
		return nil, err
	}

	g.client = c
	g.mutual = creds.MutualAuth

	target := creds.Service + "/" + creds.Host
	return c.InitialToken(target, g.mutual)
}

// Continue handles the token turn after the AP-REQ: when mutual auth was
// requested and the AP-REP has not been verified yet, that comes first;
// otherwise the server data is the security-layer negotiation message,
// answered with the final wrap token.
func (g *Gssapi) Continue(_ int, serverData []byte, creds Credentials) ([]byte, error) {
	if g.client == nil {
		return nil, fmt.Errorf("gssapi: continue called before initial response")
	}

	if g.mutual && !g.mutualDone {
		if err := g.client.AcceptMutualToken(serverData); err != nil {
			return nil, err
		}
		g.mutualDone = true
		// The security layer negotiation message follows in the next
		// server turn; nothing to send yet.
		return nil, nil
	}

	return g.client.FinalizeSecurityLayer(serverData, creds.AuthzID)
}
