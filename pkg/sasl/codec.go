package sasl

import "encoding/base64"

// Framing selects how outgoing and incoming turn payloads are carried on
// the wire. Carriers that are inherently binary-safe (raw socket framing)
// set FramingBinary; text-oriented carriers (IMAP, SMTP, POP3 continuation
// lines) set FramingBase64.
type Framing int

const (
	FramingBinary Framing = iota
	FramingBase64
)

// explicitEmpty is the payload sentinel passed by mechanism primitives that
// want to transmit "nothing substantive" as distinct from "nothing at all".
// EncodeOutgoing renders it as the single wire byte "=".
var explicitEmpty = []byte{}

// ExplicitEmpty returns the sentinel payload meaning "send an explicitly
// empty response", as opposed to nil meaning "send nothing". A mechanism
// primitive returns it to request the "=" wire form; the driver's own
// DigestMd5Resp turn returns nil instead and so sends an empty line.
func ExplicitEmpty() []byte {
	return explicitEmpty
}

// EncodeOutgoing renders payload for the wire under framing. A nil payload
// (no message at all) encodes to "". A non-nil zero-length payload (the
// "explicit empty" convention) encodes to "=" under base64 framing, or
// passes through unchanged under binary framing. Any other payload is
// base64-encoded, or passed through verbatim for binary framing.
func EncodeOutgoing(payload []byte, framing Framing) (string, error) {
	if payload == nil {
		return "", nil
	}

	if framing == FramingBinary {
		return string(payload), nil
	}

	if len(payload) == 0 {
		return "=", nil
	}

	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeServer interprets the server's turn payload under framing. Under
// base64 framing, "" or "=" both decode to a zero-length (but non-nil)
// buffer; anything else is base64-decoded, failing with BadServerEncoding
// on malformed input. Under binary framing the bytes pass through.
func DecodeServer(payload string, framing Framing) ([]byte, error) {
	if framing == FramingBinary {
		return []byte(payload), nil
	}

	if payload == "" || payload == "=" {
		return []byte{}, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, newError(ErrBadServerEncoding, "", "malformed base64 from server", err)
	}
	return decoded, nil
}
