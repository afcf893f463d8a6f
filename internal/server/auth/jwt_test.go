package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	m := NewManager("測試密鑰", time.Hour)

	token, err := m.Generate("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewManager("密鑰甲", time.Hour).Generate("alice")
	require.NoError(t, err)

	_, err = NewManager("密鑰乙", time.Hour).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewManager("測試密鑰", -time.Minute)

	token, err := m.Generate("alice")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewManager("測試密鑰", time.Hour)

	_, err := m.Verify("不是憑證")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
