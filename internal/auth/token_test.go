package auth

import (
	"testing"
	"time"

	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager(t *testing.T) {
	m, err := NewTokenManager("0123456789abcdef0123", time.Hour)
	require.NoError(t, err)
	staff := &model.Staff{ID: 42, Username: "priya", IsStaff: true}

	t.Run("round trip", func(t *testing.T) {
		token, exp, err := m.Issue(staff)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

		claims, err := m.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "priya", claims.Username())
		assert.True(t, claims.IsStaff)
		assert.Equal(t, int64(42), claims.UserID)
	})

	t.Run("expired", func(t *testing.T) {
		token, _, err := m.Issue(staff)
		require.NoError(t, err)

		later := *m
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = later.Parse(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenManager("another-secret-key-value", time.Hour)
		require.NoError(t, err)
		token, _, err := other.Issue(staff)
		require.NoError(t, err)

		_, err = m.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("short secret", func(t *testing.T) {
		_, err := NewTokenManager("short", time.Hour)
		assert.Error(t, err)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))

	_, err = HashPassword("short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
