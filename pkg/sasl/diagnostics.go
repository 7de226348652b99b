package sasl

import "fmt"

// Diagnose explains why Start left the session Idle instead of choosing a
// mechanism. It never fails: the caller has already established that no
// mechanism could be selected, and these lines are for a log or an error
// message, not for control flow.
func Diagnose(sess *SaslSession, creds Credentials, caps Capabilities) []string {
	var lines []string

	if sess.authmechs == MechNone {
		return append(lines, "sasl: no auth mechanism was offered or recognized")
	}

	enabled := sess.authmechs & sess.prefmech
	if enabled == MechNone {
		return append(lines, "sasl: no overlap between offered and configured auth mechanisms")
	}

	lines = append(lines, "sasl: no auth mechanism offered could be selected")

	if enabled&MechExternal != 0 && creds.Password != "" {
		lines = append(lines, "sasl: EXTERNAL not chosen, a password is set")
	}

	lines = append(lines, unchosen(enabled, MechGssapi, "GSSAPI", caps.Gssapi, creds, "")...)
	lines = append(lines, unchosen(enabled, MechScramSha256, "SCRAM-SHA-256", caps.ScramSha256, creds, "")...)
	lines = append(lines, unchosen(enabled, MechScramSha1, "SCRAM-SHA-1", caps.ScramSha1, creds, "")...)
	lines = append(lines, unchosen(enabled, MechDigestMd5, "DIGEST-MD5", caps.DigestMd5, creds, "")...)
	lines = append(lines, unchosen(enabled, MechCramMd5, "CRAM-MD5", caps.DigestMd5, creds, "")...)
	lines = append(lines, unchosen(enabled, MechNtlm, "NTLM", caps.Ntlm, creds, "")...)

	bearerMissing := ""
	if creds.BearerToken == "" {
		bearerMissing = "a bearer token"
	}
	lines = append(lines, unchosen(enabled, MechOAuthBearer, "OAUTHBEARER", true, creds, bearerMissing)...)
	lines = append(lines, unchosen(enabled, MechXOAuth2, "XOAUTH2", true, creds, bearerMissing)...)

	return lines
}

// unchosen reports, at most, one line for a single offered-but-unusable
// mechanism: not built for this engine, not supported by the platform
// library it depends on, a missing parameter, or a missing username.
func unchosen(enabled Mech, bit Mech, name string, platformSupported bool, creds Credentials, missing string) []string {
	if enabled&bit == 0 {
		return nil
	}
	if !platformSupported {
		return []string{fmt.Sprintf("sasl: %s not supported by the platform/libraries", name)}
	}
	if missing != "" {
		return []string{fmt.Sprintf("sasl: %s is missing %s", name, missing)}
	}
	if bit != MechExternal && creds.Username == "" {
		return []string{fmt.Sprintf("sasl: %s is missing username", name)}
	}
	return nil
}
