// Package ntlm implements the client side of [MS-NLMP] NTLM authentication:
// building the Type 1 NEGOTIATE message, parsing the server's Type 2
// CHALLENGE message, and building the Type 3 AUTHENTICATE message carrying
// an NTLMv2 response.
package ntlm

import (
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // HMAC-MD5 is mandated by NTLMv2, not used for anything else here
	"crypto/rand"
	"encoding/binary"
	"errors"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/crypto/md4"
)

// Signature is the 8-byte signature that identifies NTLM messages.
var Signature = []byte{'N', 'T', 'L', 'M', 'S', 'S', 'P', 0}

// MessageType identifies the three messages in the NTLM handshake.
type MessageType uint32

const (
	Negotiate    MessageType = 1
	Challenge    MessageType = 2
	Authenticate MessageType = 3
)

// NegotiateFlag mirrors the bitfield exchanged across all three messages.
type NegotiateFlag uint32

const (
	FlagUnicode             NegotiateFlag = 0x00000001
	FlagOEM                 NegotiateFlag = 0x00000002
	FlagRequestTarget       NegotiateFlag = 0x00000004
	FlagNTLM                NegotiateFlag = 0x00000200
	FlagAlwaysSign          NegotiateFlag = 0x00008000
	FlagExtendedSecurity    NegotiateFlag = 0x00080000
	FlagTargetInfo          NegotiateFlag = 0x00800000
	FlagVersion             NegotiateFlag = 0x02000000
	Flag128                 NegotiateFlag = 0x20000000
	Flag56                  NegotiateFlag = 0x80000000
)

// Type 2 (CHALLENGE) message offsets, [MS-NLMP] §2.2.1.2.
const (
	challengeTargetNameLenOffset = 12
	challengeTargetNameOffOffset = 16
	challengeFlagsOffset         = 20
	challengeServerChalOffset    = 24
	challengeTargetInfoLenOffset = 40
	challengeTargetInfoOffOffset = 44
)

var (
	// ErrNotNTLM indicates the buffer does not start with the NTLMSSP signature.
	ErrNotNTLM = errors.New("ntlm: not an NTLMSSP message")
	// ErrMessageTooShort indicates a Type 2 message shorter than its fixed header.
	ErrMessageTooShort = errors.New("ntlm: message too short")
)

// IsValid reports whether buf starts with the NTLMSSP signature.
func IsValid(buf []byte) bool {
	return len(buf) >= 8 && string(buf[:8]) == string(Signature)
}

// BuildNegotiate builds the client's Type 1 message. domain and workstation
// are not sent: their fields stay zero and their supplied-flags are never
// set, whatever the arguments hold.
func BuildNegotiate(domain, workstation string) []byte {
	flags := FlagUnicode | FlagOEM | FlagRequestTarget | FlagNTLM | FlagAlwaysSign | FlagExtendedSecurity | Flag128 | Flag56

	buf := make([]byte, 32)
	copy(buf[0:8], Signature)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(Negotiate))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(flags))
	// DomainNameFields and WorkstationFields are left zero: this client
	// never supplies them inline, matching most IMAP/SMTP/POP3 servers'
	// expectations for a workgroup-less NTLM handshake.
	_ = domain
	_ = workstation
	return buf
}

// ChallengeMessage is the parsed form of the server's Type 2 message.
type ChallengeMessage struct {
	Flags           NegotiateFlag
	ServerChallenge [8]byte
	TargetName      string
	TargetInfo      []byte
}

// ParseChallenge parses a Type 2 CHALLENGE message.
func ParseChallenge(buf []byte) (*ChallengeMessage, error) {
	if !IsValid(buf) {
		return nil, ErrNotNTLM
	}
	if len(buf) < 32 {
		return nil, ErrMessageTooShort
	}

	msg := &ChallengeMessage{
		Flags: NegotiateFlag(binary.LittleEndian.Uint32(buf[challengeFlagsOffset : challengeFlagsOffset+4])),
	}
	copy(msg.ServerChallenge[:], buf[challengeServerChalOffset:challengeServerChalOffset+8])

	if len(buf) >= challengeTargetNameOffOffset+4 {
		nameLen := binary.LittleEndian.Uint16(buf[challengeTargetNameLenOffset:])
		nameOff := binary.LittleEndian.Uint32(buf[challengeTargetNameOffOffset:])
		if int(nameOff)+int(nameLen) <= len(buf) {
			msg.TargetName = decodeUTF16LE(buf[nameOff : nameOff+uint32(nameLen)])
		}
	}

	if len(buf) >= challengeTargetInfoOffOffset+4 {
		infoLen := binary.LittleEndian.Uint16(buf[challengeTargetInfoLenOffset:])
		infoOff := binary.LittleEndian.Uint32(buf[challengeTargetInfoOffOffset:])
		if int(infoOff)+int(infoLen) <= len(buf) {
			msg.TargetInfo = append([]byte(nil), buf[infoOff:infoOff+uint32(infoLen)]...)
		}
	}

	return msg, nil
}

// ComputeNTHash computes the NT hash: MD4(UTF16LE(password)).
func ComputeNTHash(password string) [16]byte {
	utf16Password := utf16.Encode([]rune(password))
	passwordBytes := make([]byte, len(utf16Password)*2)
	for i, r := range utf16Password {
		binary.LittleEndian.PutUint16(passwordBytes[i*2:], r)
	}

	h := md4.New()
	h.Write(passwordBytes)
	var ntHash [16]byte
	copy(ntHash[:], h.Sum(nil))
	return ntHash
}

// ComputeNTLMv2Hash computes HMAC-MD5(NT_Hash, UPPERCASE(username)+domain).
func ComputeNTLMv2Hash(ntHash [16]byte, username, domain string) [16]byte {
	combined := strings.ToUpper(username) + domain
	utf16Combined := utf16.Encode([]rune(combined))
	combinedBytes := make([]byte, len(utf16Combined)*2)
	for i, r := range utf16Combined {
		binary.LittleEndian.PutUint16(combinedBytes[i*2:], r)
	}

	mac := hmac.New(md5.New, ntHash[:])
	mac.Write(combinedBytes)

	var out [16]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// BuildAuthenticate builds the client's Type 3 message with an NTLMv2
// response computed against challenge.
func BuildAuthenticate(challenge *ChallengeMessage, domain, username, password, workstation string) ([]byte, error) {
	ntHash := ComputeNTHash(password)
	ntlmv2Hash := ComputeNTLMv2Hash(ntHash, username, domain)

	clientBlob, err := buildClientBlob(challenge.TargetInfo)
	if err != nil {
		return nil, err
	}

	mac := hmac.New(md5.New, ntlmv2Hash[:])
	mac.Write(challenge.ServerChallenge[:])
	mac.Write(clientBlob)
	ntProofStr := mac.Sum(nil)

	ntResponse := append(append([]byte(nil), ntProofStr...), clientBlob...)

	domainUTF16 := encodeUTF16LE(domain)
	userUTF16 := encodeUTF16LE(username)
	workstationUTF16 := encodeUTF16LE(workstation)

	const headerSize = 64
	payloadOff := uint32(headerSize)

	buf := make([]byte, headerSize)
	copy(buf[0:8], Signature)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(Authenticate))

	// LmChallengeResponse is left empty; NTLMv2 only uses NtChallengeResponse.
	writeField(buf, 12, 0, payloadOff)

	writeField(buf, 20, uint16(len(ntResponse)), payloadOff)
	payload := append([]byte(nil), ntResponse...)
	payloadOff += uint32(len(ntResponse))

	writeField(buf, 28, uint16(len(domainUTF16)), payloadOff)
	payload = append(payload, domainUTF16...)
	payloadOff += uint32(len(domainUTF16))

	writeField(buf, 36, uint16(len(userUTF16)), payloadOff)
	payload = append(payload, userUTF16...)
	payloadOff += uint32(len(userUTF16))

	writeField(buf, 44, uint16(len(workstationUTF16)), payloadOff)
	payload = append(payload, workstationUTF16...)
	payloadOff += uint32(len(workstationUTF16))

	// EncryptedRandomSessionKey: unused, KEY_EXCH not negotiated by this client.
	writeField(buf, 52, 0, payloadOff)

	binary.LittleEndian.PutUint32(buf[60:64], uint32(FlagUnicode|FlagNTLM|FlagExtendedSecurity))

	return append(buf, payload...), nil
}

// writeField writes a SecurityBuffer triple (len, maxlen, offset) at off.
func writeField(buf []byte, off int, length uint16, bufOffset uint32) {
	binary.LittleEndian.PutUint16(buf[off:], length)
	binary.LittleEndian.PutUint16(buf[off+2:], length)
	binary.LittleEndian.PutUint32(buf[off+4:], bufOffset)
}

// buildClientBlob builds the NTLMv2 ClientBlob: a fixed header followed by
// the server's TargetInfo AV_PAIR list, terminated as the server sent it.
func buildClientBlob(targetInfo []byte) ([]byte, error) {
	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	blob := make([]byte, 0, 28+len(targetInfo)+4)
	blob = append(blob, 0x01, 0x01, 0x00, 0x00) // RespType, HiRespType
	blob = append(blob, 0x00, 0x00, 0x00, 0x00) // Reserved1
	blob = append(blob, ntlmTimestamp()...)
	blob = append(blob, nonce...)
	blob = append(blob, 0x00, 0x00, 0x00, 0x00) // Reserved2
	blob = append(blob, targetInfo...)
	blob = append(blob, 0x00, 0x00, 0x00, 0x00) // Reserved3
	return blob, nil
}

// ntlmTimestamp returns the current time as an [MS-NLMP] FILETIME: 100ns
// intervals since 1601-01-01.
func ntlmTimestamp() []byte {
	const epochDiff = 11644473600 // seconds between 1601 and 1970
	ft := uint64(time.Now().Unix()+epochDiff) * 10000000
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, ft)
	return out
}

func encodeUTF16LE(s string) []byte {
	u := utf16.Encode([]rune(s))
	out := make([]byte, len(u)*2)
	for i, r := range u {
		binary.LittleEndian.PutUint16(out[i*2:], r)
	}
	return out
}

func decodeUTF16LE(buf []byte) string {
	if len(buf)%2 != 0 {
		buf = buf[:len(buf)-1]
	}
	u := make([]uint16, len(buf)/2)
	for i := range u {
		u[i] = binary.LittleEndian.Uint16(buf[i*2:])
	}
	return string(utf16.Decode(u))
}
