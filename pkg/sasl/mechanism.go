package sasl

import "strings"

// Mech is a bitmap of mechanism tokens. At most one bit is ever set in a
// SaslSession's authused field; authmechs and prefmech carry many bits.
type Mech uint16

const (
	MechNone Mech = 0

	MechLogin Mech = 1 << (iota - 1)
	MechPlain
	MechCramMd5
	MechDigestMd5
	MechGssapi
	MechExternal
	MechNtlm
	MechXOAuth2
	MechOAuthBearer
	MechScramSha1
	MechScramSha256
)

// mechEntry is one row of the ordered registry table.
type mechEntry struct {
	name string
	bit  Mech
}

// mechTable is ordered the way Decode scans it; order does not encode
// priority (the Selector owns priority), only precedence among prefix
// collisions, and there are none in this set.
var mechTable = []mechEntry{
	{"LOGIN", MechLogin},
	{"PLAIN", MechPlain},
	{"CRAM-MD5", MechCramMd5},
	{"DIGEST-MD5", MechDigestMd5},
	{"GSSAPI", MechGssapi},
	{"EXTERNAL", MechExternal},
	{"NTLM", MechNtlm},
	{"XOAUTH2", MechXOAuth2},
	{"OAUTHBEARER", MechOAuthBearer},
	{"SCRAM-SHA-256", MechScramSha256}, // neither SCRAM name is a prefix of the other
	{"SCRAM-SHA-1", MechScramSha1},
}

// isMechChar reports whether b can continue a mechanism token, per the
// registry's prefix-termination rule: [A-Z0-9_-].
func isMechChar(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z':
		return true
	case b >= '0' && b <= '9':
		return true
	case b == '_' || b == '-':
		return true
	default:
		return false
	}
}

// Decode scans the registry in order for a mechanism name that is a prefix
// of input[:maxlen]. A prefix match is accepted only if it consumes the
// entire maxlen, or the next byte is outside [A-Z0-9_-]; this stops "PLAIN"
// from matching inside "PLAINXY". Returns (MechNone, 0) when nothing
// matches.
func Decode(input string, maxlen int) (Mech, int) {
	if maxlen < 0 || maxlen > len(input) {
		maxlen = len(input)
	}
	scope := input[:maxlen]

	for _, entry := range mechTable {
		n := len(entry.name)
		if n > len(scope) {
			continue
		}
		if !strings.EqualFold(scope[:n], entry.name) {
			continue
		}
		if n == maxlen {
			return entry.bit, n
		}
		if n < len(scope) && !isMechChar(scope[n]) {
			return entry.bit, n
		}
	}
	return MechNone, 0
}

// Name returns the canonical registry name for a single mechanism bit, or
// "" if bit does not correspond to exactly one known mechanism.
func Name(bit Mech) string {
	for _, entry := range mechTable {
		if entry.bit == bit {
			return entry.name
		}
	}
	return ""
}

// ParseAuthOption folds one URL-style auth option into prefs. "*" resets
// prefs to defaults; otherwise the option must decode to exactly one whole
// mechanism name, which is OR-ed in. resetprefs is consumed (cleared) on
// the first call of a parsing cycle, matching SaslSession.ParseAuthOption.
func ParseAuthOption(value string, prefs Mech, defaults Mech, resetprefs *bool) (Mech, error) {
	if value == "" {
		return prefs, newError(ErrMalformedOption, "", "empty auth option", nil)
	}

	if *resetprefs {
		prefs = MechNone
		*resetprefs = false
	}

	if value == "*" {
		return defaults, nil
	}

	bit, consumed := Decode(value, len(value))
	if bit == MechNone || consumed != len(value) {
		return prefs, newError(ErrMalformedOption, "", "unrecognized auth option: "+value, nil)
	}

	return prefs | bit, nil
}
