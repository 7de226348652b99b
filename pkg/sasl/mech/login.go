package mech

// Login implements the (unstandardized but near-universal) LOGIN
// mechanism: a two-turn exchange where the server prompts for a username
// and then a password, and the client answers each prompt verbatim. LOGIN
// never offers an initial response in practice: the server's first prompt
// has not been seen yet.
type Login struct{}

func (Login) Name() string             { return "LOGIN" }
func (Login) RequiresUsername() bool   { return true }
func (Login) Supported(_ Credentials, _ Capabilities) bool { return true }

func (Login) InitialResponse(_ Credentials) ([]byte, error) {
	return nil, ErrNeedServerData
}

// Continue ignores the server's prompt text (the carrier has already
// matched "Username:"/"Password:"; the mechanism only needs to know which
// turn it is). turn 0 answers the username prompt, turn 1 the password
// prompt.
func (Login) Continue(turn int, _ []byte, creds Credentials) ([]byte, error) {
	if turn == 0 {
		return []byte(creds.Username), nil
	}
	return []byte(creds.Password), nil
}
