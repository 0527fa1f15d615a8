package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastArgon() *ArgonHash {
	a := New()
	a.Memory = 1024
	a.Iterations = 1
	return a
}

func TestArgon_RoundTrip(t *testing.T) {
	a := fastArgon()

	hash, err := a.GenerateFromPassword("correct horse battery")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=2$"))

	ok, err := a.VerifyPasswd("correct horse battery", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.VerifyPasswd("wrong horse battery", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon_SaltsDiffer(t *testing.T) {
	a := fastArgon()

	h1, err := a.GenerateFromPassword("same password")
	require.NoError(t, err)
	h2, err := a.GenerateFromPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestArgon_VerifyUsesEmbeddedParams(t *testing.T) {
	hash, err := fastArgon().GenerateFromPassword("tuned later")
	require.NoError(t, err)

	ok, err := New().VerifyPasswd("tuned later", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArgon_InvalidHash(t *testing.T) {
	a := fastArgon()

	for _, bad := range []string{"", "plain", "$bcrypt$v=19$m=1,t=1,p=1$aaaa$bbbb", "$argon2id$v=19$garbage$aaaa$bbbb"} {
		_, err := a.VerifyPasswd("x", bad)
		assert.ErrorIs(t, err, ErrInvalidHash, bad)
	}
}

func TestMakeVerificationCode(t *testing.T) {
	now := time.Now()

	c1, err := MakeVerificationCode(3, now)
	require.NoError(t, err)
	c2, err := MakeVerificationCode(3, now)
	require.NoError(t, err)

	assert.Len(t, c1.Code, codeSize)
	assert.NotEqual(t, c1.Code, c2.Code)
	assert.Equal(t, uint(3), c1.UserID)
	assert.Equal(t, now, c1.CreatedAt)

	_, err = MakeVerificationCode(0, now)
	assert.Error(t, err)
}

func TestMakePasswordResetToken(t *testing.T) {
	tok, err := MakePasswordResetToken(9, time.Now())
	require.NoError(t, err)

	assert.Len(t, tok.Token, tokenSize)
	assert.Nil(t, tok.UsedAt)

	_, err = MakePasswordResetToken(0, time.Now())
	assert.Error(t, err)
}

func TestAuthToken(t *testing.T) {
	secret := []byte("test-secret")
	now := time.Now()

	tok, err := MakeAuthToken(secret, 42, time.Hour, now)
	require.NoError(t, err)

	claims, err := ParseAuthToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)

	_, err = ParseAuthToken([]byte("other"), tok)
	assert.Error(t, err)

	expired, err := MakeAuthToken(secret, 42, time.Hour, now.Add(-2*time.Hour))
	require.NoError(t, err)
	_, err = ParseAuthToken(secret, expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAuthToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{UserID: 1, Type: authTokenType, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("s"))
	require.NoError(t, err)

	_, err = ParseAuthToken([]byte("s"), tok)
	assert.Error(t, err)
}
