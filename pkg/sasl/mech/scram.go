package mech

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Scram implements RFC 5802 SCRAM for the SHA-1 and SHA-256 hash variants.
// The client-first message is the initial response; the server's
// challenge carries the combined nonce, salt, and iteration count; the
// client-final message carries the computed proof.
type Scram struct {
	HashName string // "SCRAM-SHA-1" or "SCRAM-SHA-256"
	newHash  func() hash.Hash

	clientNonce  string
	clientFirst  string // the bare client-first-message, minus gs2 header
}

// NewScramSha1 returns a SCRAM-SHA-1 primitive.
func NewScramSha1() *Scram {
	return &Scram{HashName: "SCRAM-SHA-1", newHash: sha1.New}
}

// NewScramSha256 returns a SCRAM-SHA-256 primitive.
func NewScramSha256() *Scram {
	return &Scram{HashName: "SCRAM-SHA-256", newHash: sha256.New}
}

func (s *Scram) Name() string           { return s.HashName }
func (s *Scram) RequiresUsername() bool { return true }

func (s *Scram) Supported(_ Credentials, caps Capabilities) bool {
	if s.HashName == "SCRAM-SHA-256" {
		return caps.ScramSha256
	}
	return caps.ScramSha1
}

// scramEscape applies the RFC 5802 §5.1 saslname escaping: "," -> "=2C",
// "=" -> "=3D".
func scramEscape(s string) string {
	s = strings.ReplaceAll(s, "=", "=3D")
	s = strings.ReplaceAll(s, ",", "=2C")
	return s
}

func (s *Scram) InitialResponse(creds Credentials) ([]byte, error) {
	nonceBytes := make([]byte, 18)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("scram nonce: %w", err)
	}
	s.clientNonce = base64.StdEncoding.EncodeToString(nonceBytes)

	s.clientFirst = fmt.Sprintf("n=%s,r=%s", scramEscape(creds.Username), s.clientNonce)
	gs2Header := "n,,"
	if creds.AuthzID != "" {
		gs2Header = "n,a=" + scramEscape(creds.AuthzID) + ","
	}

	return []byte(gs2Header + s.clientFirst), nil
}

func (s *Scram) Continue(_ int, serverData []byte, creds Credentials) ([]byte, error) {
	attrs := parseScramAttrs(string(serverData))

	serverNonce := attrs["r"]
	salt, err := base64.StdEncoding.DecodeString(attrs["s"])
	if err != nil {
		return nil, fmt.Errorf("%w: scram salt: %w", ErrBadServerData, err)
	}
	iterations, err := strconv.Atoi(attrs["i"])
	if err != nil {
		return nil, fmt.Errorf("%w: scram iteration count: %w", ErrBadServerData, err)
	}
	if !strings.HasPrefix(serverNonce, s.clientNonce) {
		return nil, fmt.Errorf("%w: scram server nonce does not extend client nonce", ErrBadServerData)
	}

	channelBinding := base64.StdEncoding.EncodeToString([]byte("n,,"))
	clientFinalNoProof := fmt.Sprintf("c=%s,r=%s", channelBinding, serverNonce)

	saltedPassword := pbkdf2.Key([]byte(creds.Password), salt, iterations, s.newHash().Size(), s.newHash)

	clientKey := hmacSum(s.newHash, saltedPassword, []byte("Client Key"))
	storedKey := hashSum(s.newHash, clientKey)

	authMessage := s.clientFirst + "," + string(serverData) + "," + clientFinalNoProof
	clientSignature := hmacSum(s.newHash, storedKey, []byte(authMessage))

	clientProof := xorBytes(clientKey, clientSignature)

	final := clientFinalNoProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof)
	return []byte(final), nil
}

func hmacSum(newHash func() hash.Hash, key, data []byte) []byte {
	mac := hmac.New(newHash, key)
	mac.Write(data)
	return mac.Sum(nil)
}

func hashSum(newHash func() hash.Hash, data []byte) []byte {
	h := newHash()
	h.Write(data)
	return h.Sum(nil)
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func parseScramAttrs(s string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[kv[0]] = kv[1]
	}
	return out
}
