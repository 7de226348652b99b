package mech

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// DigestMd5 implements RFC 2831 DIGEST-MD5. The server's single challenge
// carries realm, nonce, qop, and algorithm directives; the client replies
// with a structured digest-response. The mechanism's second turn
// (sasl.DigestMd5Resp) never calls Continue again — per the driver design
// it always emits an empty line, since the server's final "rspauth"
// verification data requires no client reply.
type DigestMd5 struct{}

func (DigestMd5) Name() string           { return "DIGEST-MD5" }
func (DigestMd5) RequiresUsername() bool { return true }

func (DigestMd5) Supported(_ Credentials, caps Capabilities) bool {
	return caps.DigestMd5
}

func (DigestMd5) InitialResponse(_ Credentials) ([]byte, error) {
	return nil, ErrNeedServerData
}

func (DigestMd5) Continue(_ int, serverData []byte, creds Credentials) ([]byte, error) {
	directives := parseDigestDirectives(string(serverData))

	realm := directives["realm"]
	nonce := directives["nonce"]
	if nonce == "" {
		return nil, fmt.Errorf("%w: digest-md5 challenge is missing a nonce", ErrBadServerData)
	}
	// qop may be a quoted comma-separated list; "auth" is always an
	// acceptable choice and the only one this mechanism implements.
	qop := "auth"

	cnonce, err := digestCnonce()
	if err != nil {
		return nil, fmt.Errorf("digest-md5 cnonce: %w", err)
	}

	digestURI := "imap/" + creds.Host
	if creds.Service != "" {
		digestURI = creds.Service + "/" + creds.Host
	}

	nc := "00000001"

	response := digestResponse(creds.Username, realm, creds.Password, nonce, cnonce, nc, qop, digestURI, creds.AuthzID)

	var b strings.Builder
	b.WriteString(`username="` + creds.Username + `"`)
	if realm != "" {
		b.WriteString(`,realm="` + realm + `"`)
	}
	b.WriteString(`,nonce="` + nonce + `"`)
	b.WriteString(`,cnonce="` + cnonce + `"`)
	b.WriteString(`,nc=` + nc)
	b.WriteString(`,qop=` + qop)
	b.WriteString(`,digest-uri="` + digestURI + `"`)
	b.WriteString(`,response=` + response)
	b.WriteString(`,charset=utf-8`)
	if creds.AuthzID != "" {
		b.WriteString(`,authzid="` + creds.AuthzID + `"`)
	}

	return []byte(b.String()), nil
}

// parseDigestDirectives splits a DIGEST-MD5 challenge or response string
// of comma-separated key=value (optionally quoted) pairs.
func parseDigestDirectives(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range splitDigestDirectives(s) {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.Trim(strings.TrimSpace(kv[1]), `"`)
		out[key] = val
	}
	return out
}

// splitDigestDirectives splits on commas that are not inside a quoted
// value, since realm/nonce values may themselves be arbitrary strings.
func splitDigestDirectives(s string) []string {
	var parts []string
	inQuotes := false
	start := 0
	for i, r := range s {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func digestCnonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// digestResponse implements the RFC 2831 §2.1.2.1 response-value
// computation for qop=auth.
func digestResponse(username, realm, password, nonce, cnonce, nc, qop, digestURI, authzid string) string {
	a1raw := md5.Sum([]byte(username + ":" + realm + ":" + password))
	a1 := string(a1raw[:]) + ":" + nonce + ":" + cnonce
	if authzid != "" {
		a1 += ":" + authzid
	}
	ha1 := md5hex(a1)

	a2 := "AUTHENTICATE:" + digestURI
	ha2 := md5hex(a2)

	kd := ha1 + ":" + nonce + ":" + nc + ":" + cnonce + ":" + qop + ":" + ha2
	return md5hex(kd)
}
