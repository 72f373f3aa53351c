package utils

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRandomHex_LengthAndDistinct(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		h, err := RandomHex(8)
		require.NoError(t, err)
		assert.Len(t, h, 16)
		assert.False(t, seen[h])
		seen[h] = true
	}
}

func TestNewAccessToken_Claims(t *testing.T) {
	exh := uint64(12)
	tok, err := NewAccessToken("s3cret", 5, "EXHIBITOR", &exh, 15)
	require.NoError(t, err)

	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(5), claims["sub"])
	assert.Equal(t, "EXHIBITOR", claims["role"])
	assert.Equal(t, float64(12), claims["exh"])
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2-long", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "hunter2-long"))
	assert.False(t, VerifyPassword(hash, "hunter3-long"))
}

func TestHashPassword_Bounds(t *testing.T) {
	_, err := HashPassword("hunter2", 4)
	assert.ErrorIs(t, err, ErrPasswordLength)
	_, err = HashPassword(strings.Repeat("p", MaxPasswordLen+1), 4)
	assert.ErrorIs(t, err, ErrPasswordLength)
	assert.NoError(t, CheckPassword(strings.Repeat("p", MaxPasswordLen)))
}

func TestHashPassword_ClampsCost(t *testing.T) {
	hash, err := HashPassword("correct-horse", 1)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestHashRefreshRaw_Stable(t *testing.T) {
	assert.Equal(t, HashRefreshRaw("abc"), HashRefreshRaw("abc"))
	assert.Len(t, HashRefreshRaw("abc"), 64)
}
