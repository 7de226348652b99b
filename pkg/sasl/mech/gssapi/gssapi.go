// Package gssapi implements the client side of the RFC 4752 GSSAPI SASL
// mechanism over Kerberos 5, using jcmturner/gokrb5's pure-Go krb5
// implementation: an AP-REQ token as the initial response, followed by the
// server's AP-REP/security-layer negotiation message, answered with a
// "no security layer" SASL wrap token carrying the authorization identity.
package gssapi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/crypto"
	gokrb5gssapi "github.com/jcmturner/gokrb5/v8/gssapi"
	"github.com/jcmturner/gokrb5/v8/iana/keyusage"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/spnego"
	"github.com/jcmturner/gokrb5/v8/types"
)

// Client drives one GSSAPI SASL exchange against a single target service
// principal. A new Client is created per authentication attempt; Close
// tears down the krb5 client it wraps.
type Client struct {
	krb5   *client.Client
	ekey   types.EncryptionKey
	subkey types.EncryptionKey
}

// NewClientWithPassword builds a GSSAPI client authenticating with a
// username/password/realm tuple against the given krb5.conf.
func NewClientWithPassword(username, realm, password, krb5confPath string) (*Client, error) {
	cfg, err := config.Load(krb5confPath)
	if err != nil {
		return nil, fmt.Errorf("gssapi: load krb5.conf: %w", err)
	}
	return &Client{krb5: client.NewWithPassword(username, realm, password, cfg)}, nil
}

// NewClientWithKeytab builds a GSSAPI client authenticating from a keytab,
// for service-account style SASL logins that never see a bare password.
func NewClientWithKeytab(username, realm, keytabPath, krb5confPath string) (*Client, error) {
	cfg, err := config.Load(krb5confPath)
	if err != nil {
		return nil, fmt.Errorf("gssapi: load krb5.conf: %w", err)
	}
	kt, err := keytab.Load(keytabPath)
	if err != nil {
		return nil, fmt.Errorf("gssapi: load keytab: %w", err)
	}
	return &Client{krb5: client.NewWithKeytab(username, realm, kt, cfg)}, nil
}

// Close tears down the underlying krb5 client and any ticket cache it holds.
func (c *Client) Close() {
	if c.krb5 != nil {
		c.krb5.Destroy()
	}
}

// InitialToken obtains a service ticket for target (a GSSAPI service
// principal like "imap/mail.example.com") and wraps it in an SPNEGO-free
// Kerberos AP-REQ token, the GSSAPI mechanism's initial response.
func (c *Client) InitialToken(target string, mutualAuth bool) ([]byte, error) {
	tkt, key, err := c.krb5.GetServiceTicket(target)
	if err != nil {
		return nil, fmt.Errorf("gssapi: service ticket: %w", err)
	}
	c.ekey = key

	flags := []int{gokrb5gssapi.ContextFlagInteg}
	if mutualAuth {
		flags = append(flags, gokrb5gssapi.ContextFlagMutual)
	}

	token, err := spnego.NewKRB5TokenAPREQ(c.krb5, tkt, key, flags, []int{})
	if err != nil {
		return nil, fmt.Errorf("gssapi: build AP-REQ: %w", err)
	}
	return token.Marshal()
}

// AcceptMutualToken consumes the server's AP-REP when mutual authentication
// was requested, recovering the negotiated subkey.
func (c *Client) AcceptMutualToken(input []byte) error {
	var token spnego.KRB5Token
	if err := token.Unmarshal(input); err != nil {
		return fmt.Errorf("gssapi: unmarshal server token: %w", err)
	}
	if token.IsKRBError() {
		return fmt.Errorf("gssapi: server rejected ticket: %w", token.KRBError)
	}
	if !token.IsAPRep() {
		return nil
	}

	encPart, err := crypto.DecryptEncPart(token.APRep.EncPart, c.ekey, keyusage.AP_REP_ENCPART)
	if err != nil {
		return fmt.Errorf("gssapi: decrypt AP-REP: %w", err)
	}
	var part messages.EncAPRepPart
	if err := part.Unmarshal(encPart); err != nil {
		return fmt.Errorf("gssapi: unmarshal AP-REP body: %w", err)
	}
	c.subkey = part.Subkey
	return nil
}

// FinalizeSecurityLayer answers the server's security-layer negotiation
// message (RFC 4752 §3.1) declining every optional layer and attaching
// authzid, the only behavior this engine implements (security layers
// beyond authentication are out of scope).
func (c *Client) FinalizeSecurityLayer(serverToken []byte, authzid string) ([]byte, error) {
	var token gokrb5gssapi.WrapToken
	if err := unmarshalWrapToken(&token, serverToken, true); err != nil {
		return nil, fmt.Errorf("gssapi: unmarshal security layer token: %w", err)
	}
	if token.Flags&0b1 == 0 {
		return nil, errors.New("gssapi: security layer token not from acceptor")
	}

	key := c.ekey
	if token.Flags&0b100 != 0 {
		key = c.subkey
	}
	if _, err := token.Verify(key, keyusage.GSSAPI_ACCEPTOR_SEAL); err != nil {
		return nil, fmt.Errorf("gssapi: verify security layer token: %w", err)
	}
	if len(token.Payload) != 4 {
		return nil, errors.New("gssapi: malformed security layer payload")
	}

	payload := append([]byte{0, 0, 0, 0}, []byte(authzid)...)

	encType, err := crypto.GetEtype(key.KeyType)
	if err != nil {
		return nil, fmt.Errorf("gssapi: resolve etype: %w", err)
	}

	reply := gokrb5gssapi.WrapToken{
		Flags:     0b100,
		EC:        uint16(encType.GetHMACBitLength() / 8),
		SndSeqNum: 1,
		Payload:   payload,
	}
	if err := reply.SetCheckSum(key, keyusage.GSSAPI_INITIATOR_SEAL); err != nil {
		return nil, fmt.Errorf("gssapi: checksum security layer reply: %w", err)
	}
	return reply.Marshal()
}

func wrapTokenID() [2]byte { return [2]byte{0x05, 0x04} }

// unmarshalWrapToken parses a GSSAPI WrapToken, duplicated here (rather
// than imported) because gokrb5's gssapi.WrapToken.Unmarshal requires
// DCE-style tokens this client never sends.
func unmarshalWrapToken(wt *gokrb5gssapi.WrapToken, b []byte, expectFromAcceptor bool) error {
	if len(b) < 16 {
		return errors.New("gssapi: wrap token shorter than header")
	}
	id := wrapTokenID()
	if !bytes.Equal(id[:], b[0:2]) {
		return errors.New("gssapi: wrong wrap token id")
	}
	flags := b[2]
	isFromAcceptor := flags&0x01 == 1
	if isFromAcceptor != expectFromAcceptor {
		return errors.New("gssapi: unexpected acceptor flag on wrap token")
	}
	if b[3] != gokrb5gssapi.FillerByte {
		return errors.New("gssapi: bad filler byte on wrap token")
	}

	checksumL := binary.BigEndian.Uint16(b[4:6])
	if int(checksumL) > len(b)-gokrb5gssapi.HdrLen {
		return errors.New("gssapi: inconsistent checksum length")
	}

	wt.Flags = flags
	wt.EC = binary.BigEndian.Uint16(b[4:6])
	wt.RRC = binary.BigEndian.Uint16(b[6:8])
	wt.SndSeqNum = binary.BigEndian.Uint64(b[8:16])
	wt.Payload = b[16 : len(b)-int(checksumL)]
	wt.CheckSum = b[len(b)-int(checksumL):]
	return nil
}
