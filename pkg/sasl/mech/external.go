package mech

// External implements RFC 4422 appendix A EXTERNAL: a single-turn
// mechanism whose response is the authorization identity (possibly empty,
// meaning "use whatever identity the lower transport layer already
// authenticated").
type External struct{}

func (External) Name() string           { return "EXTERNAL" }
func (External) RequiresUsername() bool { return false }

func (External) Supported(_ Credentials, _ Capabilities) bool { return true }

func (External) InitialResponse(creds Credentials) ([]byte, error) {
	return []byte(creds.AuthzID), nil
}

func (External) Continue(_ int, _ []byte, _ Credentials) ([]byte, error) {
	return nil, ErrNeedServerData
}
