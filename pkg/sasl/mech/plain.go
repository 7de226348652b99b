package mech

// Plain implements RFC 4616 PLAIN: a single-turn mechanism whose entire
// response is authzid \0 username \0 password.
type Plain struct{}

func (Plain) Name() string             { return "PLAIN" }
func (Plain) RequiresUsername() bool   { return true }
func (Plain) Supported(_ Credentials, _ Capabilities) bool { return true }

func (Plain) InitialResponse(creds Credentials) ([]byte, error) {
	buf := make([]byte, 0, len(creds.AuthzID)+len(creds.Username)+len(creds.Password)+2)
	buf = append(buf, creds.AuthzID...)
	buf = append(buf, 0)
	buf = append(buf, creds.Username...)
	buf = append(buf, 0)
	buf = append(buf, creds.Password...)
	return buf, nil
}

func (Plain) Continue(_ int, _ []byte, _ Credentials) ([]byte, error) {
	return nil, ErrNeedServerData
}
