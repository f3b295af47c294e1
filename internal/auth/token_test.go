package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	token, err := Issue("s3cret", "u1", time.Hour)
	require.NoError(t, err)

	claims, err := Verify("s3cret", token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.False(t, claims.Expired(time.Now()))
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)

	// Bearer prefix is tolerated like the Authorization header form.
	_, err = Verify("s3cret", "Bearer "+token)
	assert.NoError(t, err)
}

func TestVerifyRejects(t *testing.T) {
	good, err := Issue("s3cret", "u1", time.Hour)
	require.NoError(t, err)
	expired, err := Issue("s3cret", "u1", -time.Minute)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		token  string
		want   error
	}{
		{"WrongSecret", "other", good, ErrInvalidToken},
		{"Expired", "s3cret", expired, ErrInvalidToken},
		{"Garbage", "s3cret", "abc", ErrInvalidToken},
		{"AlgNone", "s3cret", unsigned, ErrInvalidToken},
		{"EmptySecret", "", good, ErrEmptySecret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Verify(tt.secret, tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIssueValidation(t *testing.T) {
	_, err := Issue("", "u1", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)

	_, err = Issue("s3cret", "", time.Hour)
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestInspect(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": float64(42),
		"email":   "a@example.com",
		"exp":     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Unix(),
	})
	signed, err := token.SignedString([]byte("unknown-to-client"))
	require.NoError(t, err)

	claims, err := Inspect(signed)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, 2030, claims.ExpiresAt.Year())

	_, err = Inspect("opaque-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "x"})
	signed, err = noUser.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = Inspect(signed)
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestKeyMatches(t *testing.T) {
	hash, err := HashKey("admin-key")
	require.NoError(t, err)

	assert.True(t, KeyMatches(hash, "admin-key"))
	assert.False(t, KeyMatches(hash, "wrong"))
	assert.False(t, KeyMatches(hash, ""))
	assert.False(t, KeyMatches(nil, "admin-key"))

	_, err = HashKey("")
	assert.ErrorIs(t, err, ErrEmptyKey)
}
