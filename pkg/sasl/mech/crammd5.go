package mech

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
)

// CramMd5 implements RFC 2195: the server sends an opaque challenge
// (typically a timestamp and hostname), and the client replies with
// "username hex(hmac-md5(password, challenge))".
type CramMd5 struct{}

func (CramMd5) Name() string           { return "CRAM-MD5" }
func (CramMd5) RequiresUsername() bool { return true }

func (CramMd5) Supported(_ Credentials, caps Capabilities) bool {
	return caps.DigestMd5
}

func (CramMd5) InitialResponse(_ Credentials) ([]byte, error) {
	return nil, ErrNeedServerData
}

func (CramMd5) Continue(_ int, serverData []byte, creds Credentials) ([]byte, error) {
	mac := hmac.New(md5.New, []byte(creds.Password))
	mac.Write(serverData)
	digest := hex.EncodeToString(mac.Sum(nil))

	resp := creds.Username + " " + digest
	return []byte(resp), nil
}
