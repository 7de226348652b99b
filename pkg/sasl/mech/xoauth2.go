package mech

import "fmt"

// XOAuth2 implements Google's XOAUTH2 convention: a single initial
// response of "user=<email>\x01auth=Bearer <token>\x01\x01".
type XOAuth2 struct{}

func (XOAuth2) Name() string           { return "XOAUTH2" }
func (XOAuth2) RequiresUsername() bool { return true }

func (XOAuth2) Supported(creds Credentials, _ Capabilities) bool {
	return creds.BearerToken != ""
}

func (XOAuth2) InitialResponse(creds Credentials) ([]byte, error) {
	msg := fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", creds.Username, creds.BearerToken)
	return []byte(msg), nil
}

func (XOAuth2) Continue(_ int, _ []byte, _ Credentials) ([]byte, error) {
	return nil, ErrNeedServerData
}
