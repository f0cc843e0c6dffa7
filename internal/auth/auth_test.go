package auth

import (
	"testing"
	"time"

	"hotelbooking/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, h.Check(hash, "correct horse"))
	assert.ErrorIs(t, h.Check(hash, "wrong horse"), ErrInvalidCredentials)

	_, err = h.Hash("short")
	assert.Error(t, err)

	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
}

func TestTokenManager(t *testing.T) {
	user := &models.User{ID: 42, Email: "guest@example.com", Role: models.RoleAdmin}
	m := NewTokenManager("0123456789abcdef0123", "hotel", time.Hour)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	raw, exp, err := m.Issue(user)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	t.Run("Valid", func(t *testing.T) {
		claims, err := m.Parse(raw)
		require.NoError(t, err)
		id, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
		assert.True(t, claims.IsAdmin())
		assert.Equal(t, "guest@example.com", claims.Email)
	})

	t.Run("Expired", func(t *testing.T) {
		later := NewTokenManager("0123456789abcdef0123", "hotel", time.Hour)
		later.now = func() time.Time { return now.Add(2 * time.Hour) }
		_, err := later.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other := NewTokenManager("another-secret-value", "hotel", time.Hour)
		other.now = m.now
		_, err := other.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		other := NewTokenManager("0123456789abcdef0123", "someone-else", time.Hour)
		other.now = m.now
		_, err := other.Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("NoneAlgorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject:   "42",
			Issuer:    "hotel",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})
		unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.Parse(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := m.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
