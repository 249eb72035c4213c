package cryptox

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}
	if len(key1) != int(argonKeyLen) {
		t.Errorf("expected %d bytes, got %d", argonKeyLen, len(key1))
	}
}

func TestDeriveKey_DifferentSalts(t *testing.T) {
	password := []byte("secret-password")

	if bytes.Equal(DeriveKey(password, []byte("salt-1")), DeriveKey(password, []byte("salt-2"))) {
		t.Errorf("expected different keys for different salts")
	}
}

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	encoded := HashPassword([]byte("correct horse"))
	require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=1,p=4$"), encoded)

	ok, err := VerifyPassword([]byte("correct horse"), encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword([]byte("wrong horse"), encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPassword_SaltedPerCall(t *testing.T) {
	a := HashPassword([]byte("same"))
	b := HashPassword([]byte("same"))
	assert.NotEqual(t, a, b)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	tests := []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=1$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$!!!$a2V5",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdA$",
	}
	for _, in := range tests {
		_, err := VerifyPassword([]byte("pw"), in)
		assert.ErrorIs(t, err, ErrMalformedHash, in)
	}
}

func TestTokenDigest(t *testing.T) {
	d := TokenDigest("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", d)
	assert.NotEqual(t, d, TokenDigest("abd"))
}
