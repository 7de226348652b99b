package mech

import "fmt"

// OAuthBearer implements RFC 7628 OAUTHBEARER. The initial response is a
// GS2 header followed by key=value pairs terminated by two control-A
// bytes. The driver's OAuth2Resp state owns the cancel-acknowledge byte
// (0x01) sent when the server rejects the bearer token; this primitive
// only ever produces the one initial message.
type OAuthBearer struct{}

func (OAuthBearer) Name() string           { return "OAUTHBEARER" }
func (OAuthBearer) RequiresUsername() bool { return true }

func (OAuthBearer) Supported(creds Credentials, _ Capabilities) bool {
	return creds.BearerToken != ""
}

func (o OAuthBearer) InitialResponse(creds Credentials) ([]byte, error) {
	gs2 := "n,,"
	if creds.AuthzID != "" {
		gs2 = "n,a=" + creds.AuthzID + ","
	}
	msg := fmt.Sprintf("%s\x01host=%s\x01auth=Bearer %s\x01\x01", gs2, creds.Host, creds.BearerToken)
	return []byte(msg), nil
}

func (o OAuthBearer) Continue(_ int, _ []byte, _ Credentials) ([]byte, error) {
	return nil, ErrNeedServerData
}
