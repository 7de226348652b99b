package sasl

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodeString(t *testing.T) {
	cases := map[ErrorCode]string{
		ErrMalformedOption:     "MalformedOption",
		ErrOutOfMemory:         "OutOfMemory",
		ErrBadServerEncoding:   "BadServerEncoding",
		ErrLoginDenied:         "LoginDenied",
		ErrUnsupportedProtocol: "UnsupportedProtocol",
		ErrFailedInit:          "FailedInit",
	}
	for code, want := range cases {
		assert.Equal(t, want, code.String())
	}
	assert.Contains(t, ErrorCode(99).String(), "Unknown")
}

func TestErrorMessage(t *testing.T) {
	e := newError(ErrLoginDenied, "CRAM-MD5", "server rejected credentials", nil)
	assert.Equal(t, "sasl: LoginDenied: server rejected credentials (mech: CRAM-MD5)", e.Error())

	plain := newError(ErrMalformedOption, "", "empty option value", nil)
	assert.Equal(t, "sasl: MalformedOption: empty option value", plain.Error())
}

func TestErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("base64: illegal data")
	e := newError(ErrBadServerEncoding, "DIGEST-MD5", "decode failed", cause)
	assert.Same(t, cause, errors.Unwrap(e))
}

func TestErrorIsSentinel(t *testing.T) {
	e := newError(ErrLoginDenied, "NTLM", "server rejected credentials", nil)
	assert.True(t, errors.Is(e, ErrLoginDeniedErr))
	assert.False(t, errors.Is(e, ErrFailedInitErr))
}
